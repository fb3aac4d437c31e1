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

package vhd_test

import (
	"io"
	"testing"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/vhd"
	"github.com/stretchr/testify/require"
)

// memBackend is a minimal disk.Backend over an in-memory buffer, growing on
// Write/Truncate the way a sparse file would.
type memBackend struct {
	data []byte
	pos  int64
}

func newMemBackend(size uint64) *memBackend {
	return &memBackend{data: make([]byte, size)}
}

func (b *memBackend) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *memBackend) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	n := copy(b.data[b.pos:end], p)
	b.pos = end
	return n, nil
}

func (b *memBackend) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = b.pos + offset
	case io.SeekEnd:
		newPos = int64(len(b.data)) + offset
	}
	b.pos = newPos
	return newPos, nil
}

func (b *memBackend) Flush() error          { return nil }
func (b *memBackend) DataLength() uint64    { return uint64(len(b.data)) }

var _ disk.Backend = (*memBackend)(nil)

func TestCreateDynamicOpenRoundTrip(t *testing.T) {
	backend := newMemBackend(0)
	maxSectors := (64 * 1024 * 1024) / 512 // 64 MiB

	v, err := vhd.CreateDynamic(backend, uint64(maxSectors))
	require.NoError(t, err)
	require.Equal(t, uint64(64*1024*1024), v.DiskSize())
	require.Equal(t, uint32(512), v.SectorSize())
	require.Equal(t, disk.FormatVHD, v.Format())

	reopened, err := vhd.Open(backend)
	require.NoError(t, err)
	require.Equal(t, v.DiskSize(), reopened.DiskSize())
	require.Equal(t, v.UniqueID(), reopened.UniqueID())
}

func TestWriteZeroIntoUnallocatedBlockDoesNotAllocate(t *testing.T) {
	backend := newMemBackend(0)
	v, err := vhd.CreateDynamicEx(backend, 65536, 2*1024*1024)
	require.NoError(t, err)

	sizeBefore := backend.DataLength()
	_, err = v.Seek(0, io.SeekStart)
	require.NoError(t, err)
	n, err := v.Write(make([]byte, 4096))
	require.NoError(t, err)
	require.Equal(t, 4096, n)

	require.Equal(t, sizeBefore, backend.DataLength())
}

func TestWriteNonZeroAllocatesAndReadsBack(t *testing.T) {
	backend := newMemBackend(0)
	v, err := vhd.CreateDynamicEx(backend, 65536, 2*1024*1024)
	require.NoError(t, err)

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}

	_, err = v.Seek(1024*1024, io.SeekStart)
	require.NoError(t, err)
	_, err = v.Write(payload)
	require.NoError(t, err)

	require.Greater(t, backend.DataLength(), uint64(0))

	_, err = v.Seek(1024*1024, io.SeekStart)
	require.NoError(t, err)
	readBack := make([]byte, len(payload))
	_, err = io.ReadFull(v, readBack)
	require.NoError(t, err)
	require.Equal(t, payload, readBack)

	// An untouched region of the same disk still reads back as zero.
	_, err = v.Seek(16*1024*1024, io.SeekStart)
	require.NoError(t, err)
	zeros := make([]byte, 4096)
	_, err = io.ReadFull(v, zeros)
	require.NoError(t, err)
	for _, b := range zeros {
		require.Zero(t, b)
	}
}

func TestSeekEnd(t *testing.T) {
	backend := newMemBackend(0)
	v, err := vhd.CreateDynamic(backend, 2048) // 1 MiB

	require.NoError(t, err)
	pos, err := v.Seek(-512, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(v.DiskSize())-512, pos)
}
