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
	"encoding/binary"
	"fmt"

	"github.com/arturkow2000/diskutil/internal/diskerr"
)

const dynamicHeaderSize = 1024

const dynamicHeaderCookie = "cxsparse"

// defaultBlockSize is the allocation-unit granularity new dynamic disks are
// created with: 2 MiB, matching every common VHD tool.
const defaultBlockSize = 2 * 1024 * 1024

// batStartOffset is where the block allocation table begins in images this
// codec creates: right after the footer copy, the dynamic header, and
// nothing else.
const batStartOffset = vhdSectorSize + dynamicHeaderSize

// unallocatedBlock is the BAT sentinel for "this block has never been
// written".
const unallocatedBlock uint32 = 0xFFFFFFFF

// DynamicHeader is the decoded form of a dynamic/differencing VHD's
// 1024-byte header, immediately following the head footer copy.
//
// Differencing-disk fields (parent locator table) are validated only
// enough to confirm this codec does not support them; they are not
// decoded into named fields.
type DynamicHeader struct {
	DataOffset       uint64
	BATOffset        uint64
	HeaderVersion    uint32
	MaxTableEntries  uint32
	BlockSize        uint32
	ParentUniqueID   [16]byte
	ParentTimeStamp  uint32
	parentLocatorRaw [512 + 8*24 + 256]byte
}

func decodeDynamicHeader(buf []byte) (*DynamicHeader, error) {
	if len(buf) != dynamicHeaderSize {
		return nil, fmt.Errorf("%w: short read", diskerr.ErrInvalidVHDDynamicHeader)
	}
	if string(buf[0:8]) != dynamicHeaderCookie {
		return nil, fmt.Errorf("%w: bad cookie", diskerr.ErrInvalidVHDDynamicHeader)
	}

	checksum := binary.BigEndian.Uint32(buf[36:40])
	if computed := computeChecksum(buf, 36); computed != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch, stored=0x%08x computed=0x%08x", diskerr.ErrInvalidVHDDynamicHeader, checksum, computed)
	}

	h := &DynamicHeader{
		DataOffset:      binary.BigEndian.Uint64(buf[8:16]),
		BATOffset:       binary.BigEndian.Uint64(buf[16:24]),
		HeaderVersion:   binary.BigEndian.Uint32(buf[24:28]),
		MaxTableEntries: binary.BigEndian.Uint32(buf[28:32]),
		BlockSize:       binary.BigEndian.Uint32(buf[32:36]),
		ParentTimeStamp: binary.BigEndian.Uint32(buf[56:60]),
	}
	copy(h.ParentUniqueID[:], buf[40:56])
	copy(h.parentLocatorRaw[:], buf[64:64+len(h.parentLocatorRaw)])

	if h.DataOffset != 0xFFFFFFFFFFFFFFFF {
		return nil, fmt.Errorf("%w: reserved data offset field not 0xFFFFFFFFFFFFFFFF", diskerr.ErrInvalidVHDDynamicHeader)
	}
	if major := h.HeaderVersion >> 16; major != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", diskerr.ErrInvalidVHDDynamicHeader, major, h.HeaderVersion&0xFFFF)
	}
	if h.BlockSize == 0 || h.BlockSize%vhdSectorSize != 0 {
		return nil, fmt.Errorf("%w: invalid block size %d", diskerr.ErrInvalidVHDDynamicHeader, h.BlockSize)
	}

	return h, nil
}

func (h *DynamicHeader) encode() []byte {
	buf := make([]byte, dynamicHeaderSize)
	copy(buf[0:8], dynamicHeaderCookie)
	binary.BigEndian.PutUint64(buf[8:16], h.DataOffset)
	binary.BigEndian.PutUint64(buf[16:24], h.BATOffset)
	binary.BigEndian.PutUint32(buf[24:28], h.HeaderVersion)
	binary.BigEndian.PutUint32(buf[28:32], h.MaxTableEntries)
	binary.BigEndian.PutUint32(buf[32:36], h.BlockSize)
	copy(buf[40:56], h.ParentUniqueID[:])
	binary.BigEndian.PutUint32(buf[56:60], h.ParentTimeStamp)
	copy(buf[64:64+len(h.parentLocatorRaw)], h.parentLocatorRaw[:])

	checksum := computeChecksum(buf, 36)
	binary.BigEndian.PutUint32(buf[36:40], checksum)
	return buf
}

// bitmapSize returns the per-block sector-bitmap size in bytes, rounded up
// to a whole sector: one bit per sector in a block, padded to 512 bytes.
func bitmapSize(blockSize uint32) uint32 {
	bits := blockSize / vhdSectorSize
	bytes := (bits + 7) / 8
	return roundUp32(bytes, vhdSectorSize)
}

func roundUp32(x, align uint32) uint32 {
	return (x + align - 1) / align * align
}

func roundUp64(x, align uint64) uint64 {
	return (x + align - 1) / align * align
}

// createDynamicHeader builds a fresh DynamicHeader for a disk able to
// address maxSectors worth of data at the given block size.
func createDynamicHeader(maxSectors uint64, blockSize uint32) *DynamicHeader {
	totalSize := maxSectors * vhdSectorSize
	batEntries := uint32(roundUp64(totalSize, uint64(blockSize)) / uint64(blockSize))

	return &DynamicHeader{
		DataOffset:      0xFFFFFFFFFFFFFFFF,
		BATOffset:       batStartOffset,
		HeaderVersion:   0x00010000,
		MaxTableEntries: batEntries,
		BlockSize:       blockSize,
	}
}
