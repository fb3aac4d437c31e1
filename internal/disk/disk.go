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

// Package disk defines the random-access block device contract shared by
// every backing store this module knows how to drive: plain files, sparse
// VHD images, physical block devices and bounded slices over any of those.
package disk

import "io"

// MediaType classifies the physical nature of a Disk, when known.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaFDD
	MediaHDD
	MediaSSD
	MediaCDROM
)

func (m MediaType) String() string {
	switch m {
	case MediaFDD:
		return "FDD"
	case MediaHDD:
		return "HDD"
	case MediaSSD:
		return "SSD"
	case MediaCDROM:
		return "CDROM"
	default:
		return "Unknown"
	}
}

// Format identifies which codec produced a Disk.
type Format int

const (
	FormatRaw Format = iota
	FormatVHD
	FormatDevice
)

func (f Format) String() string {
	switch f {
	case FormatVHD:
		return "vhd"
	case FormatDevice:
		return "device"
	default:
		return "raw"
	}
}

// Disk is a random-access, byte-addressed block device. Every
// implementation (RawDisk, VhdDisk, DiskSlice, Buffer, RamDisk) shares this
// one capability set instead of forming a type hierarchy.
type Disk interface {
	io.Reader
	io.Writer
	io.Seeker

	// DiskSize reports the disk's total size in bytes; always a multiple
	// of SectorSize.
	DiskSize() uint64

	// SectorSize reports the disk's sector granularity in bytes, a power
	// of two.
	SectorSize() uint32

	// MediaType reports the kind of physical media backing the disk, if
	// known.
	MediaType() MediaType

	// Format reports which codec is fronting the disk.
	Format() Format

	// Flush delegates to the underlying Backend; implementations that do
	// no internal buffering may make this a no-op.
	Flush() error
}
