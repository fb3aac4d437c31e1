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

// Package part holds the polymorphic lookup contract shared by the MBR and
// GPT codecs, plus a small concrete Partition value CLI commands resolve a
// PartitionID against.
package part

import "github.com/google/uuid"

// PartitionTable is implemented by both mbr.Mbr and gpt.Gpt.
type PartitionTable interface {
	// GetPartitionStartEnd returns the inclusive LBA range of the
	// partition at index, or ok=false if the slot is empty or out of
	// range.
	GetPartitionStartEnd(index int) (start, end uint64, ok bool)

	// FindPartitionByGUID returns the index and LBA range of the
	// partition whose unique GUID matches id. MBR has no concept of
	// partition GUIDs and always returns diskerr.ErrNotSupported.
	FindPartitionByGUID(id uuid.UUID) (index int, start, end uint64, err error)

	// NumPartitions reports the number of slots in the table (4 for MBR,
	// the configured entry count for GPT).
	NumPartitions() int
}

// Partition is a minimal, format-agnostic view of one partition entry used
// by CLI commands (hexdump -p, read/write -p) to resolve a PartitionID into
// a byte range before carving out a disk.Slice.
type Partition struct {
	Index      int
	StartLBA   uint64
	EndLBA     uint64
	SectorSize uint32
}

// StartSector and SectorCount translate the inclusive LBA range into the
// (firstSector, nSectors) pair disk.NewSlice expects.
func (p Partition) StartSector() uint64 { return p.StartLBA }
func (p Partition) SectorCount() uint64 { return p.EndLBA - p.StartLBA + 1 }

// Resolve builds a Partition from a PartitionTable slot.
func Resolve(t PartitionTable, index int) (Partition, bool) {
	start, end, ok := t.GetPartitionStartEnd(index)
	if !ok {
		return Partition{}, false
	}
	return Partition{Index: index, StartLBA: start, EndLBA: end}, true
}
