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

// Buffer wraps a Disk whose backend only tolerates sector-aligned access
// (physical devices) and makes arbitrary sub-sector reads and writes
// possible. Aligned I/O passes straight through to the inner disk; any
// access whose offset or length is not a sector multiple is split into
// whole-sector operations, with partial sectors staged through a
// read-modify-write scratch buffer so the backend only ever sees full
// sectors.
type Buffer struct {
	inner Disk
	pos   uint64
}

var _ Disk = (*Buffer)(nil)

// NewBuffer wraps inner, which must already report a correct SectorSize.
func NewBuffer(inner Disk) *Buffer {
	return &Buffer{inner: inner}
}

func (b *Buffer) sectorSize() uint64 { return uint64(b.inner.SectorSize()) }

// seekInner positions the wrapped disk at the given absolute byte offset.
func (b *Buffer) seekInner(off uint64) error {
	_, err := b.inner.Seek(int64(off), io.SeekStart)
	return err
}

func (b *Buffer) readSector(sector uint64, into []byte) error {
	if err := b.seekInner(sector * b.sectorSize()); err != nil {
		return err
	}
	_, err := io.ReadFull(b.inner, into)
	return err
}

func (b *Buffer) writeSector(sector uint64, from []byte) error {
	if err := b.seekInner(sector * b.sectorSize()); err != nil {
		return err
	}
	_, err := b.inner.Write(from)
	return err
}

// Read implements io.Reader against the tracked cursor position.
func (b *Buffer) Read(p []byte) (int, error) {
	n, err := b.readAt(b.pos, p)
	b.pos += uint64(n)
	return n, err
}

// Write implements io.Writer against the tracked cursor position.
func (b *Buffer) Write(p []byte) (int, error) {
	n, err := b.writeAt(b.pos, p)
	b.pos += uint64(n)
	return n, err
}

func (b *Buffer) readAt(start uint64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	sz := b.sectorSize()

	end := start + uint64(len(p))
	firstSector := start / sz
	lastSector := (end - 1) / sz

	written := 0
	for sector := firstSector; sector <= lastSector; sector++ {
		sectorStart := sector * sz
		sectorEnd := sectorStart + sz

		copyStart := max64(start, sectorStart)
		copyEnd := min64(end, sectorEnd)
		dst := p[copyStart-start : copyEnd-start]

		if copyStart == sectorStart && copyEnd == sectorEnd {
			// Full, aligned sector: read straight into the caller's
			// buffer, no scratch copy.
			if err := b.readSector(sector, dst); err != nil {
				return written, err
			}
		} else {
			scratch := make([]byte, sz)
			if err := b.readSector(sector, scratch); err != nil {
				return written, err
			}
			copy(dst, scratch[copyStart-sectorStart:copyEnd-sectorStart])
		}
		written += len(dst)
	}
	return written, nil
}

// writeAt performs the read-modify-write described in the package comment:
// a partial head sector and partial tail sector are each staged through
// readSector/writeSector, while any fully-covered sectors in between are
// written directly. Each piece repositions the inner disk explicitly
// before its own I/O so a write spanning many sectors never relies on a
// stale cursor left over from a previous piece.
func (b *Buffer) writeAt(start uint64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	sz := b.sectorSize()
	end := start + uint64(len(p))
	firstSector := start / sz
	lastSector := (end - 1) / sz

	written := 0
	for sector := firstSector; sector <= lastSector; sector++ {
		sectorStart := sector * sz
		sectorEnd := sectorStart + sz
		full := start <= sectorStart && end >= sectorEnd

		chunkStart := max64(start, sectorStart)
		chunkEnd := min64(end, sectorEnd)
		chunk := p[chunkStart-start : chunkEnd-start]

		if full {
			if err := b.writeSector(sector, chunk); err != nil {
				return written, err
			}
			written += len(chunk)
			continue
		}

		scratch := make([]byte, sz)
		if err := b.readSector(sector, scratch); err != nil {
			return written, err
		}
		copy(scratch[chunkStart-sectorStart:chunkEnd-sectorStart], chunk)
		if err := b.writeSector(sector, scratch); err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(b.pos) + offset
	case io.SeekEnd:
		newPos = int64(b.inner.DiskSize()) + offset
	default:
		return 0, fmt.Errorf("buffer: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("buffer: negative seek result %d", newPos)
	}
	b.pos = uint64(newPos)
	return newPos, nil
}

func (b *Buffer) DiskSize() uint64     { return b.inner.DiskSize() }
func (b *Buffer) SectorSize() uint32   { return b.inner.SectorSize() }
func (b *Buffer) MediaType() MediaType { return b.inner.MediaType() }
func (b *Buffer) Format() Format       { return b.inner.Format() }
func (b *Buffer) Flush() error         { return b.inner.Flush() }

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
