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
	"io"
	"os"
)

// AccessMode governs which flags a Backend is opened with.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

func (m AccessMode) osFlags() int {
	switch m {
	case WriteOnly:
		return os.O_WRONLY
	case ReadWrite:
		return os.O_RDWR
	default:
		return os.O_RDONLY
	}
}

// Backend is a byte-oriented stream with a length known at open time. A
// Disk exclusively owns the Backend it wraps.
type Backend interface {
	io.Reader
	io.Writer
	io.Seeker
	Flush() error

	// DataLength returns the cached length captured at open.
	DataLength() uint64
}

// FileBackend is a Backend over a regular file.
type FileBackend struct {
	f      *os.File
	length uint64
}

var _ Backend = (*FileBackend)(nil)

// OpenFileBackend opens path under the given AccessMode and caches its
// current length.
func OpenFileBackend(path string, mode AccessMode) (*FileBackend, error) {
	f, err := os.OpenFile(path, mode.osFlags(), 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileBackend{f: f, length: uint64(fi.Size())}, nil
}

// CreateFileBackend creates (or truncates) path, sized to length bytes.
func CreateFileBackend(path string, length uint64) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if length > 0 {
		if err := f.Truncate(int64(length)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &FileBackend{f: f, length: length}, nil
}

func (b *FileBackend) Read(p []byte) (int, error)  { return b.f.Read(p) }
func (b *FileBackend) Write(p []byte) (int, error) { return b.f.Write(p) }

func (b *FileBackend) Seek(offset int64, whence int) (int64, error) {
	return b.f.Seek(offset, whence)
}

func (b *FileBackend) Flush() error { return b.f.Sync() }

func (b *FileBackend) DataLength() uint64 { return b.length }

// Close releases the underlying file handle.
func (b *FileBackend) Close() error { return b.f.Close() }

// File exposes the underlying *os.File, mainly so DeviceBackend can reuse
// FileBackend's plumbing while adding ioctl-derived geometry.
func (b *FileBackend) File() *os.File { return b.f }

// SetDataLength overrides the cached length; used after Truncate grows a
// backend (e.g. VHD footer relocation).
func (b *FileBackend) SetDataLength(n uint64) { b.length = n }
