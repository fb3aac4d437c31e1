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
package disk

import (
	"fmt"
	"io"
)

// RamDisk is a Disk over an in-memory buffer, used by tests that need a
// cheap, disposable backing store.
type RamDisk struct {
	data       []byte
	pos        int64
	sectorSize uint32
}

var _ Disk = (*RamDisk)(nil)

// NewRamDiskZeroed allocates a zero-filled RamDisk of size bytes.
func NewRamDiskZeroed(size uint64, sectorSize uint32) *RamDisk {
	return NewRamDiskFromBytes(make([]byte, size), sectorSize)
}

// NewRamDiskFromBytes wraps an existing byte slice as a RamDisk without
// copying it.
func NewRamDiskFromBytes(data []byte, sectorSize uint32) *RamDisk {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}
	return &RamDisk{data: data, sectorSize: sectorSize}
}

// Bytes returns the RamDisk's backing storage.
func (d *RamDisk) Bytes() []byte { return d.data }

func (d *RamDisk) Read(p []byte) (int, error) {
	if d.pos >= int64(len(d.data)) {
		return 0, io.EOF
	}
	n := copy(p, d.data[d.pos:])
	d.pos += int64(n)
	return n, nil
}

func (d *RamDisk) Write(p []byte) (int, error) {
	end := d.pos + int64(len(p))
	if end > int64(len(d.data)) {
		return 0, fmt.Errorf("ramdisk: write past end of disk (pos=%d len=%d size=%d)", d.pos, len(p), len(d.data))
	}
	n := copy(d.data[d.pos:end], p)
	d.pos = end
	return n, nil
}

func (d *RamDisk) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = d.pos + offset
	case io.SeekEnd:
		newPos = int64(len(d.data)) + offset
	default:
		return 0, fmt.Errorf("ramdisk: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("ramdisk: negative seek result %d", newPos)
	}
	d.pos = newPos
	return newPos, nil
}

func (d *RamDisk) DiskSize() uint64     { return uint64(len(d.data)) }
func (d *RamDisk) SectorSize() uint32   { return d.sectorSize }
func (d *RamDisk) MediaType() MediaType { return MediaHDD }
func (d *RamDisk) Format() Format       { return FormatRaw }
func (d *RamDisk) Flush() error         { return nil }
