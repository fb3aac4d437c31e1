// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package vhd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/diskerr"
)

// vhdSectorSize is the fixed addressing granularity of every VHD image,
// independent of the dynamic header's allocation block size.
const vhdSectorSize = 512

// VhdDisk is a disk.Disk backed by a sparse Connectix/Microsoft dynamic VHD
// image. Fixed VHDs are read and written as a plain disk.RawDisk instead
// (see Open); this type exists only for the Dynamic on-disk layout.
type VhdDisk struct {
	backend disk.Backend

	footer     *Footer
	dynHeader  *DynamicHeader
	bat        []uint32
	bitmapSize uint32

	// freeDataOffset is where the next allocated block (plus its bitmap)
	// will land; it only ever grows.
	freeDataOffset uint64

	pos int64
}

var _ disk.Disk = (*VhdDisk)(nil)

// Open reads a VHD footer and, for dynamic disks, the accompanying dynamic
// header and block allocation table from backend. Fixed-disk images are
// rejected; callers should wrap those directly with disk.NewRawDisk using
// the footer's reported size.
//
// The footer is normally read from the tail of the backend (DataLength-512).
// If that copy fails validation, the redundant copy at offset 0 is tried
// before giving up, mirroring how this format tolerates a torn write to the
// trailing copy.
func Open(backend disk.Backend) (*VhdDisk, error) {
	length := backend.DataLength()
	if length < footerSize {
		return nil, fmt.Errorf("%w: backend too short for a VHD footer", diskerr.ErrInvalidVHDFooter)
	}

	footer, ferr := readFooterAt(backend, int64(length)-footerSize)
	if ferr != nil {
		var err2 error
		footer, err2 = readFooterAt(backend, 0)
		if err2 != nil {
			return nil, ferr
		}
	}

	if footer.DiskType != DiskTypeDynamic {
		return nil, fmt.Errorf("%w: %s disks are opened as raw images, not through vhd.Open", diskerr.ErrNotSupported, footer.DiskType)
	}

	dynBuf := make([]byte, dynamicHeaderSize)
	if _, err := backend.Seek(int64(footer.DataOffset), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(backend, dynBuf); err != nil {
		return nil, err
	}
	dynHeader, err := decodeDynamicHeader(dynBuf)
	if err != nil {
		return nil, err
	}

	batBytes := make([]byte, 4*dynHeader.MaxTableEntries)
	if _, err := backend.Seek(int64(dynHeader.BATOffset), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(backend, batBytes); err != nil {
		return nil, err
	}
	bat := make([]uint32, dynHeader.MaxTableEntries)
	for i := range bat {
		bat[i] = binary.BigEndian.Uint32(batBytes[4*i : 4*i+4])
	}

	freeOffset := roundUp64(dynHeader.BATOffset+uint64(4*dynHeader.MaxTableEntries), vhdSectorSize)
	bmSize := bitmapSize(dynHeader.BlockSize)
	for _, entry := range bat {
		if entry == unallocatedBlock {
			continue
		}
		end := uint64(entry)*vhdSectorSize + uint64(dynHeader.BlockSize) + uint64(bmSize)
		if end > freeOffset {
			freeOffset = end
		}
	}

	return &VhdDisk{
		backend:        backend,
		footer:         footer,
		dynHeader:      dynHeader,
		bat:            bat,
		bitmapSize:     bmSize,
		freeDataOffset: freeOffset,
	}, nil
}

// CreateFixed lays out a fixed-size VHD in backend: maxSectors sectors of
// data followed by a single footer copy. backend must already be sized to
// exactly maxSectors*512+512 bytes (disk.CreateFileBackend does this). A
// fixed VHD has no block allocation table, so the returned disk.Disk is
// simply a disk.Slice over a RawDisk hiding the trailing footer from
// readers and writers.
func CreateFixed(backend disk.Backend, maxSectors uint64) (disk.Disk, error) {
	want := maxSectors*vhdSectorSize + footerSize
	if backend.DataLength() != want {
		return nil, fmt.Errorf("%w: backend must be pre-sized to %d bytes for a fixed VHD of %d sectors", diskerr.ErrInvalidVHDFooter, want, maxSectors)
	}

	footer := createFooter(DiskTypeFixed, maxSectors)
	if _, err := backend.Seek(int64(maxSectors*vhdSectorSize), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := backend.Write(footer.encode()); err != nil {
		return nil, err
	}

	raw, err := disk.NewRawDisk(backend, vhdSectorSize)
	if err != nil {
		return nil, err
	}
	raw.SetFormat(disk.FormatVHD)

	return disk.NewSlice(raw, 0, maxSectors)
}

func readFooterAt(backend disk.Backend, offset int64) (*Footer, error) {
	if _, err := backend.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, footerSize)
	if _, err := io.ReadFull(backend, buf); err != nil {
		return nil, err
	}
	return decodeFooter(buf)
}

// CreateDynamic creates a new dynamic VHD of maxSectors sectors (512 bytes
// each) over backend, using the default 2 MiB allocation block size.
func CreateDynamic(backend disk.Backend, maxSectors uint64) (*VhdDisk, error) {
	return CreateDynamicEx(backend, maxSectors, defaultBlockSize)
}

// CreateDynamicWithArgs is CreateDynamic reading its allocation block size
// from args's "block_size" key, falling back to the 2 MiB default, mirroring
// the original open_disk's argument-bag constructors.
func CreateDynamicWithArgs(backend disk.Backend, maxSectors uint64, args disk.ArgumentMap) (*VhdDisk, error) {
	return CreateDynamicEx(backend, maxSectors, args.GetU32("block_size", defaultBlockSize))
}

// CreateDynamicEx is CreateDynamic with an explicit allocation block size
// in bytes; it must be a multiple of vhdSectorSize.
func CreateDynamicEx(backend disk.Backend, maxSectors uint64, blockSize uint32) (*VhdDisk, error) {
	if blockSize == 0 || blockSize%vhdSectorSize != 0 {
		return nil, fmt.Errorf("%w: block size must be a nonzero multiple of %d", diskerr.ErrInvalidVHDDynamicHeader, vhdSectorSize)
	}

	footer := createFooter(DiskTypeDynamic, maxSectors)
	dynHeader := createDynamicHeader(maxSectors, blockSize)
	bat := make([]uint32, dynHeader.MaxTableEntries)
	for i := range bat {
		bat[i] = unallocatedBlock
	}

	freeDataOffset := roundUp64(dynHeader.BATOffset+uint64(4*len(bat)), vhdSectorSize)

	v := &VhdDisk{
		backend:        backend,
		footer:         footer,
		dynHeader:      dynHeader,
		bat:            bat,
		bitmapSize:     bitmapSize(blockSize),
		freeDataOffset: freeDataOffset,
	}

	if err := v.writeFullLayout(); err != nil {
		return nil, err
	}
	return v, nil
}

// writeFullLayout writes the head footer copy, the dynamic header, the
// whole BAT and the tail footer copy: the complete layout of a freshly
// created, fully-unallocated dynamic VHD.
func (v *VhdDisk) writeFullLayout() error {
	if _, err := v.backend.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(v.footer.encode()); err != nil {
		return err
	}
	if _, err := v.backend.Write(v.dynHeader.encode()); err != nil {
		return err
	}

	batBytes := make([]byte, 4*len(v.bat))
	for i, entry := range v.bat {
		binary.BigEndian.PutUint32(batBytes[4*i:4*i+4], entry)
	}
	if _, err := v.backend.Write(batBytes); err != nil {
		return err
	}

	if _, err := v.backend.Seek(int64(v.freeDataOffset), io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(v.footer.encode()); err != nil {
		return err
	}
	return v.backend.Flush()
}

// blockIndex splits a logical byte offset into its BAT index and the
// byte offset within that block.
func (v *VhdDisk) blockIndex(offset uint64) (index uint32, within uint32) {
	bs := uint64(v.dynHeader.BlockSize)
	return uint32(offset / bs), uint32(offset % bs)
}

// allocBlock assigns batIndex a fresh data block at the current
// freeDataOffset, writes its all-present bitmap, relocates the tail footer
// copy past the new block, and patches the BAT entry both in memory and on
// disk.
func (v *VhdDisk) allocBlock(batIndex uint32) error {
	dataOffset := v.freeDataOffset

	bitmap := bytes.Repeat([]byte{0xFF}, int(v.bitmapSize))
	if _, err := v.backend.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(bitmap); err != nil {
		return err
	}

	blockDataOffset := dataOffset + uint64(v.bitmapSize)
	if _, err := v.backend.Seek(int64(blockDataOffset), io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(make([]byte, v.dynHeader.BlockSize)); err != nil {
		return err
	}

	newFree := blockDataOffset + uint64(v.dynHeader.BlockSize)
	if _, err := v.backend.Seek(int64(newFree), io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(v.footer.encode()); err != nil {
		return err
	}

	entry := uint32(dataOffset / vhdSectorSize)
	var entryBuf [4]byte
	binary.BigEndian.PutUint32(entryBuf[:], entry)
	if _, err := v.backend.Seek(int64(v.dynHeader.BATOffset)+4*int64(batIndex), io.SeekStart); err != nil {
		return err
	}
	if _, err := v.backend.Write(entryBuf[:]); err != nil {
		return err
	}

	v.bat[batIndex] = entry
	v.freeDataOffset = newFree
	return v.backend.Flush()
}

// getOffset resolves a logical (batIndex, within) position to the backend
// byte offset of its data, allocating the block first if write is true and
// the block is currently unallocated. On every write through an already
// allocated block, the bitmap is unconditionally rewritten to all-present,
// matching the behavior of the original dynamic-disk driver this format
// comes from.
func (v *VhdDisk) getOffset(batIndex uint32, within uint32, write bool) (uint64, bool, error) {
	entry := v.bat[batIndex]
	if entry == unallocatedBlock {
		if !write {
			return 0, false, nil
		}
		if err := v.allocBlock(batIndex); err != nil {
			return 0, false, err
		}
		entry = v.bat[batIndex]
	} else if write {
		bitmap := bytes.Repeat([]byte{0xFF}, int(v.bitmapSize))
		if _, err := v.backend.Seek(int64(entry)*vhdSectorSize, io.SeekStart); err != nil {
			return 0, false, err
		}
		if _, err := v.backend.Write(bitmap); err != nil {
			return 0, false, err
		}
	}

	base := uint64(entry)*vhdSectorSize + uint64(v.bitmapSize)
	return base + uint64(within), true, nil
}

func (v *VhdDisk) Read(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if uint64(v.pos) >= v.footer.CurrentSize {
			break
		}
		batIndex, within := v.blockIndex(uint64(v.pos))
		if int(batIndex) >= len(v.bat) {
			break
		}

		chunk := p
		if max := v.dynHeader.BlockSize - within; uint32(len(chunk)) > max {
			chunk = chunk[:max]
		}

		offset, allocated, err := v.getOffset(batIndex, within, false)
		if err != nil {
			return total, err
		}
		if !allocated {
			for i := range chunk {
				chunk[i] = 0
			}
		} else {
			if _, err := v.backend.Seek(int64(offset), io.SeekStart); err != nil {
				return total, err
			}
			if _, err := io.ReadFull(v.backend, chunk); err != nil {
				return total, err
			}
		}

		v.pos += int64(len(chunk))
		total += len(chunk)
		p = p[len(chunk):]
	}
	if total == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return total, nil
}

func (v *VhdDisk) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		batIndex, within := v.blockIndex(uint64(v.pos))
		if int(batIndex) >= len(v.bat) {
			return total, fmt.Errorf("vhd: write past end of disk at offset %d", v.pos)
		}

		chunk := p
		if max := v.dynHeader.BlockSize - within; uint32(len(chunk)) > max {
			chunk = chunk[:max]
		}

		allZero := true
		for _, b := range chunk {
			if b != 0 {
				allZero = false
				break
			}
		}

		if allZero && v.bat[batIndex] == unallocatedBlock {
			// Writing zeros into a block that has never been allocated is a
			// no-op: unallocated blocks already read back as zero.
		} else {
			offset, _, err := v.getOffset(batIndex, within, true)
			if err != nil {
				return total, err
			}
			if _, err := v.backend.Seek(int64(offset), io.SeekStart); err != nil {
				return total, err
			}
			if _, err := v.backend.Write(chunk); err != nil {
				return total, err
			}
		}

		v.pos += int64(len(chunk))
		total += len(chunk)
		p = p[len(chunk):]
	}
	return total, nil
}

func (v *VhdDisk) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = v.pos + offset
	case io.SeekEnd:
		newPos = int64(v.DiskSize()) + offset
	default:
		return 0, fmt.Errorf("vhd: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("vhd: negative seek result %d", newPos)
	}
	v.pos = newPos
	return newPos, nil
}

// DiskSize reports the disk's logical size as recorded in its footer, which
// may be smaller than its BAT capacity (maxTableEntries * blockSize).
func (v *VhdDisk) DiskSize() uint64     { return v.footer.CurrentSize }
func (v *VhdDisk) SectorSize() uint32   { return vhdSectorSize }
func (v *VhdDisk) MediaType() disk.MediaType { return disk.MediaHDD }
func (v *VhdDisk) Format() disk.Format       { return disk.FormatVHD }
func (v *VhdDisk) Flush() error              { return v.backend.Flush() }

// UniqueID returns the footer's UniqueID field.
func (v *VhdDisk) UniqueID() [16]byte { return v.footer.UniqueID }

// DiskType is always DiskTypeDynamic; VhdDisk never represents a fixed or
// differencing image (see Open).
func (v *VhdDisk) DiskType() DiskType { return v.footer.DiskType }

// BlockSize reports the dynamic header's allocation block size in bytes.
func (v *VhdDisk) BlockSize() uint32 { return v.dynHeader.BlockSize }

// MaxTableEntries reports the block allocation table's capacity.
func (v *VhdDisk) MaxTableEntries() uint32 { return v.dynHeader.MaxTableEntries }
