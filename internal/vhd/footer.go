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

// Package vhd implements the Connectix/Microsoft "Virtual PC" VHD image
// format: the 512-byte footer, the 1024-byte dynamic header and the
// block allocation table of a sparse dynamic disk.
package vhd

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/arturkow2000/diskutil/internal/diskerr"
	"github.com/google/uuid"
)

const footerSize = 512

const footerCookie = "conectix"

// vhdEpoch is the VHD footer's TimeStamp reference point: seconds since
// this instant, per the format's 1 Jan 2000 00:00:00 UTC epoch.
var vhdEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// DiskType identifies the on-disk layout a VHD footer describes.
type DiskType uint32

const (
	DiskTypeNone         DiskType = 0
	DiskTypeFixed        DiskType = 2
	DiskTypeDynamic      DiskType = 3
	DiskTypeDifferencing DiskType = 4
)

func (t DiskType) String() string {
	switch t {
	case DiskTypeFixed:
		return "fixed"
	case DiskTypeDynamic:
		return "dynamic"
	case DiskTypeDifferencing:
		return "differencing"
	default:
		return "none"
	}
}

// CHS is the footer's disk geometry field.
type CHS struct {
	Cylinder        uint16
	Heads           uint8
	SectorsPerTrack uint8
}

// creatorHostOSWindows is the footer's well-known "Wi2k" creator host OS tag.
const creatorHostOSWindows = 0x5769326B

// creatorApplication tags images this codec creates; arbitrary but distinct
// from Microsoft's own tools.
var creatorApplication = [4]byte{'d', 's', 'k', 'u'}

// Footer is the decoded form of a VHD's 512-byte footer, present at the end
// of every image (dynamic disks also keep an identical copy at offset 0).
type Footer struct {
	Features           uint32
	FileFormatVersion  uint32
	DataOffset         uint64
	TimeStamp          uint32
	CreatorApplication [4]byte
	CreatorVersion     uint32
	CreatorHostOS      uint32
	OriginalSize       uint64
	CurrentSize        uint64
	DiskGeometry       CHS
	DiskType           DiskType
	UniqueID           uuid.UUID
	SavedState         uint8
}

func computeChecksum(buf []byte, checksumFieldOffset int) uint32 {
	var sum uint32
	for i, b := range buf {
		if i >= checksumFieldOffset && i < checksumFieldOffset+4 {
			b = 0
		}
		sum += uint32(b)
	}
	return ^sum
}

func decodeFooter(buf []byte) (*Footer, error) {
	if len(buf) != footerSize {
		return nil, fmt.Errorf("%w: short read", diskerr.ErrInvalidVHDFooter)
	}
	if string(buf[0:8]) != footerCookie {
		return nil, fmt.Errorf("%w: bad cookie", diskerr.ErrInvalidVHDFooter)
	}

	checksum := binary.BigEndian.Uint32(buf[64:68])
	if computed := computeChecksum(buf, 64); computed != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch, stored=0x%08x computed=0x%08x", diskerr.ErrInvalidVHDFooter, checksum, computed)
	}

	f := &Footer{
		Features:          binary.BigEndian.Uint32(buf[8:12]),
		FileFormatVersion: binary.BigEndian.Uint32(buf[12:16]),
		DataOffset:        binary.BigEndian.Uint64(buf[16:24]),
		TimeStamp:         binary.BigEndian.Uint32(buf[24:28]),
		CreatorVersion:    binary.BigEndian.Uint32(buf[32:36]),
		CreatorHostOS:     binary.BigEndian.Uint32(buf[36:40]),
		OriginalSize:      binary.BigEndian.Uint64(buf[40:48]),
		CurrentSize:       binary.BigEndian.Uint64(buf[48:56]),
		DiskType:          DiskType(binary.BigEndian.Uint32(buf[60:64])),
		SavedState:        buf[84],
	}
	copy(f.CreatorApplication[:], buf[28:32])
	copy(f.UniqueID[:], buf[68:84])

	geom := binary.BigEndian.Uint32(buf[56:60])
	f.DiskGeometry = CHS{
		Cylinder:        uint16(geom >> 16),
		Heads:           uint8(geom >> 8),
		SectorsPerTrack: uint8(geom),
	}

	if f.Features&2 == 0 {
		return nil, fmt.Errorf("%w: reserved feature bit not set", diskerr.ErrInvalidVHDFooter)
	}
	if major := f.FileFormatVersion >> 16; major != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", diskerr.ErrInvalidVHDFooter, major, f.FileFormatVersion&0xFFFF)
	}
	switch f.DiskType {
	case DiskTypeFixed, DiskTypeDynamic, DiskTypeDifferencing:
	default:
		return nil, fmt.Errorf("%w: unknown disk type 0x%x", diskerr.ErrInvalidVHDFooter, uint32(f.DiskType))
	}

	return f, nil
}

func (f *Footer) encode() []byte {
	buf := make([]byte, footerSize)
	copy(buf[0:8], footerCookie)
	binary.BigEndian.PutUint32(buf[8:12], f.Features)
	binary.BigEndian.PutUint32(buf[12:16], f.FileFormatVersion)
	binary.BigEndian.PutUint64(buf[16:24], f.DataOffset)
	binary.BigEndian.PutUint32(buf[24:28], f.TimeStamp)
	copy(buf[28:32], f.CreatorApplication[:])
	binary.BigEndian.PutUint32(buf[32:36], f.CreatorVersion)
	binary.BigEndian.PutUint32(buf[36:40], f.CreatorHostOS)
	binary.BigEndian.PutUint64(buf[40:48], f.OriginalSize)
	binary.BigEndian.PutUint64(buf[48:56], f.CurrentSize)

	geom := uint32(f.DiskGeometry.Cylinder)<<16 | uint32(f.DiskGeometry.Heads)<<8 | uint32(f.DiskGeometry.SectorsPerTrack)
	binary.BigEndian.PutUint32(buf[56:60], geom)
	binary.BigEndian.PutUint32(buf[60:64], uint32(f.DiskType))
	copy(buf[68:84], f.UniqueID[:])
	buf[84] = f.SavedState

	checksum := computeChecksum(buf, 64)
	binary.BigEndian.PutUint32(buf[64:68], checksum)
	return buf
}

// computeCHS derives the legacy BIOS geometry a VHD footer stores,
// following the algorithm Microsoft's own tools use.
func computeCHS(totalSectors uint64) CHS {
	if totalSectors > 65535*16*255 {
		totalSectors = 65535 * 16 * 255
	}

	var sectorsPerTrack, heads, cylinderTimesHead uint64
	if totalSectors >= 65535*16*63 {
		sectorsPerTrack = 255
		heads = 16
		cylinderTimesHead = totalSectors / sectorsPerTrack
	} else {
		sectorsPerTrack = 17
		cylinderTimesHead = totalSectors / sectorsPerTrack
		heads = (cylinderTimesHead + 1023) / 1024
		if heads < 4 {
			heads = 4
		}
		if cylinderTimesHead >= heads*1024 || heads > 16 {
			sectorsPerTrack = 31
			heads = 16
			cylinderTimesHead = totalSectors / sectorsPerTrack
		}
		if cylinderTimesHead >= heads*1024 {
			sectorsPerTrack = 63
			heads = 16
			cylinderTimesHead = totalSectors / sectorsPerTrack
		}
	}

	return CHS{
		Cylinder:        uint16(cylinderTimesHead / heads),
		Heads:           uint8(heads),
		SectorsPerTrack: uint8(sectorsPerTrack),
	}
}

func createFooter(diskType DiskType, maxSectors uint64) *Footer {
	totalSize := maxSectors * vhdSectorSize

	f := &Footer{
		Features:           2,
		FileFormatVersion:  0x00010000,
		CreatorApplication: creatorApplication,
		CreatorVersion:     0x00010000,
		CreatorHostOS:      creatorHostOSWindows,
		OriginalSize:       totalSize,
		CurrentSize:        totalSize,
		DiskType:           diskType,
		DiskGeometry:       computeCHS(maxSectors),
		UniqueID:           uuid.New(),
		TimeStamp:          uint32(time.Since(vhdEpoch).Seconds()),
	}
	if diskType == DiskTypeDynamic || diskType == DiskTypeDifferencing {
		f.DataOffset = vhdSectorSize
	} else {
		f.DataOffset = 0xFFFFFFFFFFFFFFFF
	}
	return f
}
