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
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/part"
	"github.com/arturkow2000/diskutil/internal/part/gpt"
	"github.com/arturkow2000/diskutil/internal/vhd"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// sectorSizeArgs builds the ArgumentMap openDisk expects out of a command's
// --sector-size flag, the only per-invocation raw-disk override the CLI
// exposes today.
func sectorSizeArgs(cmd *cobra.Command) disk.ArgumentMap {
	args := disk.NewArgumentMap()
	if cmd.Flags().Changed("sector-size") {
		sectorSize, _ := cmd.Flags().GetUint32("sector-size")
		args = args.Set("sector_size", sectorSize)
	}
	return args
}

// PartitionID is a CLI-supplied partition selector: either the numeric slot
// index within a partition table, or a GPT unique partition GUID. MBR
// entries can only ever be addressed by index.
type PartitionID struct {
	IsGUID bool
	Index  int
	GUID   uuid.UUID
}

// ParsePartitionID accepts either a bare non-negative integer (a table
// slot index) or a UUID string (a GPT unique partition GUID).
func ParsePartitionID(s string) (PartitionID, error) {
	if s == "" {
		return PartitionID{}, fmt.Errorf("partition id is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return PartitionID{}, fmt.Errorf("partition index %d is negative", n)
		}
		return PartitionID{Index: n}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return PartitionID{}, fmt.Errorf("%q is neither a partition index nor a GUID", s)
	}
	return PartitionID{IsGUID: true, GUID: id}, nil
}

func (p PartitionID) String() string {
	if p.IsGUID {
		return p.GUID.String()
	}
	return strconv.Itoa(p.Index)
}

// resolvePartition turns a PartitionID into a concrete Partition against pt.
func resolvePartition(pt part.PartitionTable, id PartitionID) (part.Partition, error) {
	if id.IsGUID {
		index, start, end, err := pt.FindPartitionByGUID(id.GUID)
		if err != nil {
			return part.Partition{}, fmt.Errorf("partition %s: %w", id, err)
		}
		return part.Partition{Index: index, StartLBA: start, EndLBA: end}, nil
	}

	p, ok := part.Resolve(pt, id.Index)
	if !ok {
		return part.Partition{}, fmt.Errorf("partition %s: no such slot", id)
	}
	return p, nil
}

// loadPartitionTable reads the partition table off d. Unlike some tools this
// never falls back to MBR: a disk is expected to carry a GPT, and the
// dedicated mbr subcommand is the only way to inspect a disk's MBR.
func loadPartitionTable(d disk.Disk) (part.PartitionTable, error) {
	g, err := gpt.Load(d, gpt.Abort, nil)
	if err != nil {
		return nil, fmt.Errorf("load partition table: %w", err)
	}
	return g, nil
}

// parseDiskFormat maps the --format flag value to a disk.Format.
func parseDiskFormat(s string) (disk.Format, error) {
	switch strings.ToLower(s) {
	case "", "raw":
		return disk.FormatRaw, nil
	case "vhd":
		return disk.FormatVHD, nil
	case "device":
		return disk.FormatDevice, nil
	default:
		return 0, fmt.Errorf("unknown disk format %q (expected raw, vhd or device)", s)
	}
}

// openDisk opens path as a disk.Disk according to format and access. device
// disks ignore access beyond what the OS device node itself allows. args
// carries format-specific overrides the way the original open_disk()'s
// ArgumentMap does; raw disks read "sector_size" out of it.
func openDisk(path string, format disk.Format, access disk.AccessMode, args disk.ArgumentMap) (disk.Disk, error) {
	path = disk.NormalizeVolumePath(path)

	if format == disk.FormatDevice {
		return disk.OpenDeviceDisk(path, access)
	}

	backend, err := disk.OpenFileBackend(path, access)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	switch format {
	case disk.FormatVHD:
		d, err := vhd.Open(backend)
		if err != nil {
			backend.Flush()
			return nil, fmt.Errorf("open %s as vhd: %w", path, err)
		}
		return d, nil
	default:
		sectorSize := args.GetU32("sector_size", disk.DefaultSectorSize)
		d, err := disk.NewRawDisk(backend, sectorSize)
		if err != nil {
			backend.Flush()
			return nil, fmt.Errorf("open %s as raw: %w", path, err)
		}
		return d, nil
	}
}

// diskOrPartitionDisk opens path and, if partitionID is non-nil, narrows the
// result to a disk.Slice over the resolved partition.
func diskOrPartitionDisk(path string, format disk.Format, access disk.AccessMode, partitionID *PartitionID) (disk.Disk, error) {
	d, err := openDisk(path, format, access, disk.NewArgumentMap())
	if err != nil {
		return nil, err
	}
	if partitionID == nil {
		return d, nil
	}

	pt, err := loadPartitionTable(d)
	if err != nil {
		return nil, err
	}
	p, err := resolvePartition(pt, *partitionID)
	if err != nil {
		return nil, err
	}

	slice, err := disk.NewSlice(d, p.StartSector(), p.SectorCount())
	if err != nil {
		return nil, fmt.Errorf("carve partition %s: %w", partitionID, err)
	}
	return slice, nil
}
