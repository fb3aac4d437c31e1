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
	"github.com/arturkow2000/diskutil/internal/device"
)

// DeviceBackend is a Backend over a physical block device. Unlike
// FileBackend, its DataLength and sector size come from the kernel's ioctl
// geometry rather than a stat() call, since raw block devices report a
// misleading (usually zero) st_size.
type DeviceBackend struct {
	*FileBackend
	sectorSize uint32
}

var _ Backend = (*DeviceBackend)(nil)

// OpenDeviceBackend opens the block special file at path and queries its
// geometry. Returns diskerr.ErrNotSupported on platforms without a
// geometry ioctl (see internal/device).
func OpenDeviceBackend(path string, mode AccessMode) (*DeviceBackend, error) {
	fb, err := OpenFileBackend(path, mode)
	if err != nil {
		return nil, err
	}
	sectorSize, size, err := device.Geometry(fb.File())
	if err != nil {
		fb.Close()
		return nil, err
	}
	fb.SetDataLength(size)
	return &DeviceBackend{FileBackend: fb, sectorSize: sectorSize}, nil
}

// SectorSize reports the device's logical sector size as reported by the
// kernel, independent of whatever sector size a caller might otherwise
// assume for a RawDisk.
func (b *DeviceBackend) SectorSize() uint32 { return b.sectorSize }

// OpenDeviceDisk opens path as a physical device and wraps it in a Buffer
// over a RawDisk, since physical devices reject sub-sector access.
func OpenDeviceDisk(path string, mode AccessMode) (Disk, error) {
	backend, err := OpenDeviceBackend(path, mode)
	if err != nil {
		return nil, err
	}
	raw, err := NewRawDisk(backend, backend.SectorSize())
	if err != nil {
		return nil, err
	}
	raw.SetFormat(FormatDevice)
	raw.WithMediaType(MediaHDD)
	return NewBuffer(raw), nil
}
