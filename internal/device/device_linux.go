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

//go:build linux

// Package device queries the logical sector size and total size of a block
// special file via Linux ioctls, the same two numbers the teacher's
// internal/disk/stat.go used to pull out of raw SYS_IOCTL syscalls.
package device

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	blkSSZGet   = 0x1268
	blkGetSize64 = 0x80081272
)

// Geometry reports the logical sector size and total size, in bytes, of the
// block device open at f.
func Geometry(f *os.File) (sectorSize uint32, size uint64, err error) {
	fd := int(f.Fd())

	ss, err := unix.IoctlGetInt(fd, blkSSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("device: BLKSSZGET failed: %w", err)
	}
	if ss <= 0 {
		return 0, 0, fmt.Errorf("device: BLKSSZGET returned non-positive sector size %d", ss)
	}

	sz, err := unix.IoctlGetUint64(fd, blkGetSize64)
	if err != nil {
		return 0, 0, fmt.Errorf("device: BLKGETSIZE64 failed: %w", err)
	}

	return uint32(ss), sz, nil
}

// IsBlockDevice reports whether path names a block special file.
func IsBlockDevice(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.Mode()&os.ModeDevice != 0 && fi.Mode()&os.ModeCharDevice == 0, nil
}
