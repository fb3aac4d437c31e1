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
)

// RawDisk is a Disk directly over a Backend whose length is already a
// sector multiple. Reads, writes and seeks pass through verbatim.
type RawDisk struct {
	backend    Backend
	sectorSize uint32
	media      MediaType
	format     Format
}

var _ Disk = (*RawDisk)(nil)

const DefaultSectorSize = 512

// NewRawDisk wraps backend as a RawDisk with the given sector size
// (DefaultSectorSize when sectorSize is 0). Returns an error if the
// backend's length is not a multiple of the sector size.
func NewRawDisk(backend Backend, sectorSize uint32) (*RawDisk, error) {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}
	if backend.DataLength()%uint64(sectorSize) != 0 {
		return nil, fmt.Errorf("disk: backend length %d is not a multiple of sector size %d", backend.DataLength(), sectorSize)
	}
	return &RawDisk{backend: backend, sectorSize: sectorSize, media: MediaHDD, format: FormatRaw}, nil
}

// WithMediaType overrides the default HDD media tag and returns the
// receiver for chaining.
func (d *RawDisk) WithMediaType(m MediaType) *RawDisk {
	d.media = m
	return d
}

func (d *RawDisk) Read(p []byte) (int, error)  { return d.backend.Read(p) }
func (d *RawDisk) Write(p []byte) (int, error) { return d.backend.Write(p) }

func (d *RawDisk) Seek(offset int64, whence int) (int64, error) {
	return d.backend.Seek(offset, whence)
}

func (d *RawDisk) DiskSize() uint64     { return d.backend.DataLength() }
func (d *RawDisk) SectorSize() uint32   { return d.sectorSize }
func (d *RawDisk) MediaType() MediaType { return d.media }
func (d *RawDisk) Format() Format       { return d.format }
func (d *RawDisk) Flush() error         { return d.backend.Flush() }

// SetFormat lets a device-backed RawDisk report FormatDevice instead of the
// default FormatRaw.
func (d *RawDisk) SetFormat(f Format) { d.format = f }
