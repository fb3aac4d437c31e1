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

// Slice is a bounded view [firstSector, firstSector+nSectors) over a parent
// Disk, itself exposed again as a Disk. The slice takes ownership of the
// parent for its lifetime: Go has no borrow checker, so "at most one active
// slice" is enforced by construction rather than at runtime.
type Slice struct {
	parent Disk
	start  uint64 // inclusive byte offset into parent
	end    uint64 // inclusive byte offset into parent
	cursor uint64 // logical position relative to start
}

var _ Disk = (*Slice)(nil)

// NewSlice carves out [firstSector, firstSector+nSectors) of parent.
func NewSlice(parent Disk, firstSector, nSectors uint64) (*Slice, error) {
	if nSectors == 0 {
		return nil, fmt.Errorf("disk: slice must span at least one sector")
	}
	sectorSize := uint64(parent.SectorSize())
	start := firstSector * sectorSize
	end := (firstSector+nSectors)*sectorSize - 1
	if (firstSector+nSectors)*sectorSize > parent.DiskSize() {
		return nil, fmt.Errorf("disk: slice [%d, %d) sectors exceeds parent disk size %d bytes", firstSector, firstSector+nSectors, parent.DiskSize())
	}
	return &Slice{parent: parent, start: start, end: end}, nil
}

// DiskSize uses the inclusive model: end - start + 1.
func (s *Slice) DiskSize() uint64 { return s.end - s.start + 1 }

func (s *Slice) SectorSize() uint32   { return s.parent.SectorSize() }
func (s *Slice) MediaType() MediaType { return s.parent.MediaType() }
func (s *Slice) Format() Format       { return s.parent.Format() }
func (s *Slice) Flush() error         { return s.parent.Flush() }

func (s *Slice) available() uint64 {
	size := s.DiskSize()
	if s.cursor >= size {
		return 0
	}
	return size - s.cursor
}

func (s *Slice) Read(p []byte) (int, error) {
	avail := s.available()
	if avail == 0 {
		return 0, io.EOF
	}
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	if _, err := s.parent.Seek(int64(s.start+s.cursor), io.SeekStart); err != nil {
		return 0, err
	}
	read, err := io.ReadFull(s.parent, p[:n])
	s.cursor += uint64(read)
	return read, err
}

func (s *Slice) Write(p []byte) (int, error) {
	avail := s.available()
	if avail == 0 {
		return 0, io.ErrShortWrite
	}
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	if _, err := s.parent.Seek(int64(s.start+s.cursor), io.SeekStart); err != nil {
		return 0, err
	}
	written, err := s.parent.Write(p[:n])
	s.cursor += uint64(written)
	return written, err
}

func (s *Slice) Seek(offset int64, whence int) (int64, error) {
	var newCursor int64
	switch whence {
	case io.SeekStart:
		newCursor = offset
	case io.SeekCurrent:
		newCursor = int64(s.cursor) + offset
	case io.SeekEnd:
		// end refers to the slice's own inclusive end: the cursor becomes
		// DiskSize() + offset in the slice's relative coordinates, so a
		// negative offset moves back from the end (io.SeekEnd convention).
		newCursor = int64(s.DiskSize()) + offset
	default:
		return 0, fmt.Errorf("disk: invalid whence %d", whence)
	}
	if newCursor < 0 {
		return 0, fmt.Errorf("disk: negative seek result %d", newCursor)
	}
	s.cursor = uint64(newCursor)
	return newCursor, nil
}
