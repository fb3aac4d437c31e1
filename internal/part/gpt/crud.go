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

package gpt

import (
	"fmt"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/diskerr"
	"github.com/arturkow2000/diskutil/internal/region"
	"github.com/google/uuid"
)

// AddPartitionParams describes a new partition. SizeBytes must be a
// multiple of the disk's sector size. A nil StartLBA picks the first free
// region (in FindFreeRegions order) that fits; a nil TypeGUID defaults to
// TypeMicrosoftBasicData; a nil UniqueGUID generates a fresh v4 UUID.
type AddPartitionParams struct {
	SizeBytes  uint64
	StartLBA   *uint64
	Name       string
	TypeGUID   *uuid.UUID
	UniqueGUID *uuid.UUID
}

// AddPartition places a new partition into the first empty slot and
// rewrites both the primary and backup GPT via Update.
func (g *Gpt) AddPartition(d disk.Disk, params AddPartitionParams) (index int, err error) {
	sectorSize := uint64(d.SectorSize())
	if params.SizeBytes == 0 || params.SizeBytes%sectorSize != 0 {
		return -1, fmt.Errorf("gpt: size (%d) is not a multiple of sector size (%d)", params.SizeBytes, sectorSize)
	}
	sizeSectors := params.SizeBytes / sectorSize

	var r region.Region[uint64]
	if params.StartLBA != nil {
		start := *params.StartLBA
		r = region.New(start, start+sizeSectors-1)

		usable := region.New(g.FirstUsableLBA, g.LastUsableLBA)
		if !r.Belongs(usable) {
			return -1, fmt.Errorf("gpt: %w: %s does not fit in usable region %s", diskerr.ErrRegionUnavailable, r, usable)
		}
		for _, p := range g.Partitions {
			if p == nil {
				continue
			}
			if r.Overlaps(region.New(p.StartLBA, p.EndLBA)) {
				return -1, fmt.Errorf("gpt: %w: overlaps existing partition %s", diskerr.ErrRegionUnavailable, r)
			}
		}
	} else {
		found := false
		for _, free := range g.FindFreeRegions() {
			if free.Size() >= sizeSectors {
				r = region.New(free.Start(), free.Start()+sizeSectors-1)
				found = true
				break
			}
		}
		if !found {
			return -1, fmt.Errorf("gpt: %w: no free region of %d sectors", diskerr.ErrRegionUnavailable, sizeSectors)
		}
	}

	slot := -1
	for i, p := range g.Partitions {
		if p == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return -1, fmt.Errorf("gpt: %w", diskerr.ErrPartitionTableFull)
	}

	typeGUID := TypeMicrosoftBasicData
	if params.TypeGUID != nil {
		typeGUID = *params.TypeGUID
	}
	uniqueGUID := uuid.New()
	if params.UniqueGUID != nil {
		uniqueGUID = *params.UniqueGUID
	}

	g.Partitions[slot] = &GptPartition{
		TypeGUID:   typeGUID,
		UniqueGUID: uniqueGUID,
		StartLBA:   r.Start(),
		EndLBA:     r.End(),
		Name:       params.Name,
	}

	if err := g.Update(d); err != nil {
		g.Partitions[slot] = nil
		return -1, err
	}
	return slot, nil
}

// DeletePartitionByIndex clears slot index and rewrites the GPT.
func (g *Gpt) DeletePartitionByIndex(d disk.Disk, index int) error {
	if index < 0 || index >= len(g.Partitions) || g.Partitions[index] == nil {
		return fmt.Errorf("gpt: %w", diskerr.ErrNotFound)
	}
	saved := g.Partitions[index]
	g.Partitions[index] = nil
	if err := g.Update(d); err != nil {
		g.Partitions[index] = saved
		return err
	}
	return nil
}

// DeletePartitionByGUID locates the partition whose UniqueGUID matches id
// and deletes it.
func (g *Gpt) DeletePartitionByGUID(d disk.Disk, id uuid.UUID) error {
	index, _, _, err := g.FindPartitionByGUID(id)
	if err != nil {
		return err
	}
	return g.DeletePartitionByIndex(d, index)
}

// PartitionPatch carries the fields ModifyPartition should overwrite; a nil
// field leaves the existing value untouched.
type PartitionPatch struct {
	Name       *string
	TypeGUID   *uuid.UUID
	UniqueGUID *uuid.UUID
	Attributes *uint64
}

// ModifyPartition overwrites the supplied fields of slot index in place and
// rewrites the GPT.
func (g *Gpt) ModifyPartition(d disk.Disk, index int, patch PartitionPatch) error {
	if index < 0 || index >= len(g.Partitions) || g.Partitions[index] == nil {
		return fmt.Errorf("gpt: %w", diskerr.ErrNotFound)
	}
	p := g.Partitions[index]
	before := *p

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.TypeGUID != nil {
		p.TypeGUID = *patch.TypeGUID
	}
	if patch.UniqueGUID != nil {
		p.UniqueGUID = *patch.UniqueGUID
	}
	if patch.Attributes != nil {
		p.Attributes = *patch.Attributes
	}

	if err := g.Update(d); err != nil {
		*p = before
		return err
	}
	return nil
}
