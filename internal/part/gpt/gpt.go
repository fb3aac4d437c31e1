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

// Package gpt implements the UEFI GUID Partition Table: loading (with
// automatic fallback to the backup header/array), creation and updating of
// both the primary and backup copies, free-space search and partition CRUD.
package gpt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"unicode/utf16"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/diskerr"
	"github.com/arturkow2000/diskutil/internal/logger"
	"github.com/arturkow2000/diskutil/internal/region"
	"github.com/google/uuid"
)

// gptHeaderSize is the size in bytes of the fixed portion of a GPT header,
// not counting any vendor-defined trailing data up to header_size.
const gptHeaderSize = 0x5C

// EntrySize is the size in bytes of one partition table entry this codec
// writes. Larger entries (more name bytes) are accepted on Load.
const EntrySize = 128

// Revision is the GPT header revision this codec writes (1.0).
const Revision = 0x00010000

const gptSignature = 0x5452415020494645 // "EFI PART" read as a little-endian u64

// ErrorAction controls how Load reacts to recoverable inconsistencies
// (checksum mismatch, wrong current_lba, first_usable_lba overlapping the
// partition array): Abort fails immediately, Ignore logs a warning and
// carries on so the caller can still inspect the table. Only a wrong
// current_lba is patched in memory; the other findings are just logged.
type ErrorAction int

const (
	Abort ErrorAction = iota
	Ignore
)

// GptPartition is one decoded (non-null) partition table entry.
type GptPartition struct {
	TypeGUID   uuid.UUID
	UniqueGUID uuid.UUID
	StartLBA   uint64
	EndLBA     uint64
	Attributes uint64
	Name       string
}

// Size returns the partition's length in sectors.
func (p *GptPartition) Size() uint64 { return p.EndLBA - p.StartLBA + 1 }

// Gpt holds a decoded GPT header plus its partition array.
type Gpt struct {
	Partitions []*GptPartition

	Revision                 uint32
	Reserved                 uint32
	CurrentLBA               uint64
	AlternateLBA             uint64
	FirstUsableLBA           uint64
	LastUsableLBA            uint64
	DiskGUID                 uuid.UUID
	PartitionTableStart      uint64
	PartitionTableEntriesNum uint32
	PartitionTableEntrySize  uint32

	// HeaderAdditionalData is any vendor-defined bytes beyond the fixed
	// 0x5C header fields, preserved verbatim across Load/Update.
	HeaderAdditionalData []byte
}

var _ interface {
	GetPartitionStartEnd(index int) (uint64, uint64, bool)
} = (*Gpt)(nil)

func logWarnf(log *logger.Logger, format string, args ...any) {
	if log != nil {
		log.Warnf(format, args...)
	}
}

func ceilDiv(a, b uint64) uint64 { return (a + b - 1) / b }

// Load reads the primary GPT header and partition array at LBA 1. If the
// primary copy fails validation under Abort, or fails outright to parse,
// Load retries against the backup header at the disk's final LBA before
// surfacing an error. A table recovered from the backup is returned
// pointing at the primary location, so Update rewrites both copies.
func Load(d disk.Disk, action ErrorAction, log *logger.Logger) (*Gpt, error) {
	g, err := loadAt(d, 1, action, log)
	if err == nil {
		return g, nil
	}

	lastLBA := d.DiskSize()/uint64(d.SectorSize()) - 1
	logWarnf(log, "primary GPT header invalid (%v), trying backup at LBA %d", err, lastLBA)

	g2, err2 := loadAt(d, lastLBA, action, log)
	if err2 != nil {
		return nil, err
	}
	// The backup header names itself as current_lba and the backup array
	// as partition_table_start; swap back to the primary header (the
	// backup's alternate_lba) with its array right after it.
	g2.CurrentLBA, g2.AlternateLBA = g2.AlternateLBA, g2.CurrentLBA
	g2.PartitionTableStart = g2.CurrentLBA + 1
	return g2, nil
}

func loadAt(d disk.Disk, headerLBA uint64, action ErrorAction, log *logger.Logger) (*Gpt, error) {
	sectorSize := uint64(d.SectorSize())

	if _, err := d.Seek(int64(headerLBA*sectorSize), io.SeekStart); err != nil {
		return nil, err
	}
	hdr := make([]byte, sectorSize)
	if _, err := io.ReadFull(d, hdr); err != nil {
		return nil, err
	}

	if binary.LittleEndian.Uint64(hdr[0:8]) != gptSignature {
		return nil, diskerr.ErrGPTMissing
	}

	revision := binary.LittleEndian.Uint32(hdr[8:12])
	headerSizeField := binary.LittleEndian.Uint32(hdr[12:16])
	if headerSizeField < 92 {
		return nil, fmt.Errorf("%w: header size (%d) is less than minimum (92)", diskerr.ErrInvalidGPT, headerSizeField)
	}
	headerCRC32 := binary.LittleEndian.Uint32(hdr[16:20])
	reserved := binary.LittleEndian.Uint32(hdr[20:24])

	currentLBA := binary.LittleEndian.Uint64(hdr[24:32])
	if currentLBA != headerLBA {
		switch action {
		case Abort:
			return nil, fmt.Errorf("%w: invalid current_lba", diskerr.ErrInvalidGPT)
		case Ignore:
			logWarnf(log, "fixing current_lba from %d to %d", currentLBA, headerLBA)
			currentLBA = headerLBA
		}
	}

	alternateLBA := binary.LittleEndian.Uint64(hdr[32:40])
	firstUsableLBA := binary.LittleEndian.Uint64(hdr[40:48])
	lastUsableLBA := binary.LittleEndian.Uint64(hdr[48:56])
	diskGUID := readGUID(hdr[56:72])
	partitionTableStart := binary.LittleEndian.Uint64(hdr[72:80])
	partitionTableEntriesNum := binary.LittleEndian.Uint32(hdr[80:84])
	partitionTableEntrySize := binary.LittleEndian.Uint32(hdr[84:88])
	partitionTableCRC32 := binary.LittleEndian.Uint32(hdr[88:92])

	additionalLen := int(headerSizeField) - gptHeaderSize
	if additionalLen < 0 || gptHeaderSize+additionalLen > int(sectorSize) {
		return nil, fmt.Errorf("%w: header size (%d) does not fit in one sector", diskerr.ErrInvalidGPT, headerSizeField)
	}
	var additional []byte
	if additionalLen > 0 {
		additional = append([]byte(nil), hdr[gptHeaderSize:gptHeaderSize+additionalLen]...)
	}

	crcBuf := make([]byte, gptHeaderSize+additionalLen)
	copy(crcBuf, hdr[:gptHeaderSize])
	binary.LittleEndian.PutUint32(crcBuf[16:20], 0)
	copy(crcBuf[gptHeaderSize:], additional)
	if computed := crc32.ChecksumIEEE(crcBuf); computed != headerCRC32 {
		msg := fmt.Sprintf("GPT header checksum mismatch 0x%08x (computed) != 0x%08x", computed, headerCRC32)
		switch action {
		case Abort:
			return nil, fmt.Errorf("%w: %s", diskerr.ErrInvalidGPT, msg)
		case Ignore:
			logWarnf(log, "%s", msg)
		}
	}

	partitionTableLastLBA := partitionTableStart +
		ceilDiv(uint64(partitionTableEntrySize)*uint64(partitionTableEntriesNum), sectorSize) - 1
	if firstUsableLBA <= partitionTableLastLBA {
		msg := fmt.Sprintf("first_usable_lba overlaps with partition table (%d <= %d)", firstUsableLBA, partitionTableLastLBA)
		switch action {
		case Abort:
			return nil, fmt.Errorf("%w: %s", diskerr.ErrInvalidGPT, msg)
		case Ignore:
			logWarnf(log, "%s", msg)
		}
	}

	if _, err := d.Seek(int64(partitionTableStart*sectorSize), io.SeekStart); err != nil {
		return nil, err
	}
	arr := make([]byte, int(partitionTableEntriesNum)*int(partitionTableEntrySize))
	if _, err := io.ReadFull(d, arr); err != nil {
		return nil, err
	}
	if computed := crc32.ChecksumIEEE(arr); computed != partitionTableCRC32 {
		msg := fmt.Sprintf("partition table checksum mismatch 0x%08x (computed) != 0x%08x", computed, partitionTableCRC32)
		switch action {
		case Abort:
			return nil, fmt.Errorf("%w: %s", diskerr.ErrInvalidGPT, msg)
		case Ignore:
			logWarnf(log, "%s", msg)
		}
	}

	nameLen := (int(partitionTableEntrySize) - 0x38) / 2
	partitions := make([]*GptPartition, partitionTableEntriesNum)
	for i := range partitions {
		entry := arr[i*int(partitionTableEntrySize) : (i+1)*int(partitionTableEntrySize)]

		typeGUID := readGUID(entry[0:16])
		uniqueGUID := readGUID(entry[16:32])
		startLBA := binary.LittleEndian.Uint64(entry[32:40])
		endLBA := binary.LittleEndian.Uint64(entry[40:48])
		attributes := binary.LittleEndian.Uint64(entry[48:56])
		name := decodeEntryName(entry[56 : 56+nameLen*2])

		isNull := typeGUID == uuid.Nil && uniqueGUID == uuid.Nil &&
			startLBA == 0 && endLBA == 0 && attributes == 0 && name == ""
		if !isNull {
			partitions[i] = &GptPartition{
				TypeGUID:   typeGUID,
				UniqueGUID: uniqueGUID,
				StartLBA:   startLBA,
				EndLBA:     endLBA,
				Attributes: attributes,
				Name:       name,
			}
		}
	}

	return &Gpt{
		Partitions:               partitions,
		Revision:                 revision,
		Reserved:                 reserved,
		CurrentLBA:               currentLBA,
		AlternateLBA:             alternateLBA,
		FirstUsableLBA:           firstUsableLBA,
		LastUsableLBA:            lastUsableLBA,
		DiskGUID:                 diskGUID,
		PartitionTableStart:      partitionTableStart,
		PartitionTableEntriesNum: partitionTableEntriesNum,
		PartitionTableEntrySize:  partitionTableEntrySize,
		HeaderAdditionalData:     additional,
	}, nil
}

func decodeEntryName(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	n := 0
	for n < len(units) && units[n] != 0 {
		n++
	}
	return string(utf16.Decode(units[:n]))
}

// Create builds a fresh GPT with the default 128 entries of 128 bytes each.
func Create(d disk.Disk) *Gpt { return CreateEx(d, 128) }

// CreateEx builds a fresh GPT with maxEntries partition slots. The primary
// header is placed at LBA 1, the partition array starting at LBA 2;
// first_usable_lba is set just past the array, alternate_lba at
// disk_size/sector_size-1, last_usable_lba just before the backup array.
func CreateEx(d disk.Disk, maxEntries uint32) *Gpt {
	sectorSize := uint64(d.SectorSize())

	const partitionTableStart = 2
	tableSizeSectors := ceilDiv(uint64(EntrySize)*uint64(maxEntries), sectorSize)
	firstUsableLBA := uint64(partitionTableStart) + tableSizeSectors

	diskSize := d.DiskSize()
	alternateLBA := diskSize/sectorSize - 1
	lastUsableLBA := alternateLBA - tableSizeSectors - 1

	return &Gpt{
		Partitions:               make([]*GptPartition, maxEntries),
		Revision:                 Revision,
		CurrentLBA:               1,
		AlternateLBA:             alternateLBA,
		FirstUsableLBA:           firstUsableLBA,
		LastUsableLBA:            lastUsableLBA,
		DiskGUID:                 uuid.New(),
		PartitionTableStart:      partitionTableStart,
		PartitionTableEntriesNum: maxEntries,
		PartitionTableEntrySize:  EntrySize,
	}
}

// Update serializes and writes both the primary header+array (at
// current_lba/partition_table_start) and the backup header+array (at
// alternate_lba, with current_lba and alternate_lba swapped and
// partition_table_start pointed at the backup array, which immediately
// precedes the backup header).
func (g *Gpt) Update(d disk.Disk) error {
	sectorSize := uint64(d.SectorSize())

	arrSectors := ceilDiv(uint64(g.PartitionTableEntrySize)*uint64(g.PartitionTableEntriesNum), sectorSize)
	arr := make([]byte, arrSectors*sectorSize)
	for i := uint32(0); i < g.PartitionTableEntriesNum; i++ {
		entry := arr[int(i)*int(g.PartitionTableEntrySize) : (int(i)+1)*int(g.PartitionTableEntrySize)]
		p := g.Partitions[i]
		if p == nil {
			continue
		}
		writeGUID(entry[0:16], p.TypeGUID)
		writeGUID(entry[16:32], p.UniqueGUID)
		binary.LittleEndian.PutUint64(entry[32:40], p.StartLBA)
		binary.LittleEndian.PutUint64(entry[40:48], p.EndLBA)
		binary.LittleEndian.PutUint64(entry[48:56], p.Attributes)

		nameBytes := entry[56:]
		units := utf16.Encode([]rune(p.Name))
		if len(units)*2 > len(nameBytes) {
			return fmt.Errorf("gpt: partition name %q does not fit in %d bytes", p.Name, len(nameBytes))
		}
		for i, u := range units {
			binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
		}
	}
	// UEFI checksums exactly entriesNum*entrySize bytes, not the
	// sector-padded buffer written to disk; they only coincide when the
	// array happens to end on a sector boundary.
	partitionTableCRC32 := crc32.ChecksumIEEE(arr[:uint64(g.PartitionTableEntriesNum)*uint64(g.PartitionTableEntrySize)])

	backupArrayLBA := g.AlternateLBA - arrSectors

	buildHeader := func(currentLBA, alternateLBA, partitionTableStart uint64) []byte {
		hdr := make([]byte, sectorSize)
		binary.LittleEndian.PutUint64(hdr[0:8], gptSignature)
		binary.LittleEndian.PutUint32(hdr[8:12], g.Revision)
		binary.LittleEndian.PutUint32(hdr[12:16], gptHeaderSize+uint32(len(g.HeaderAdditionalData)))
		// hdr[16:20] (header_crc32) left zero for the checksum pass
		binary.LittleEndian.PutUint32(hdr[20:24], g.Reserved)
		binary.LittleEndian.PutUint64(hdr[24:32], currentLBA)
		binary.LittleEndian.PutUint64(hdr[32:40], alternateLBA)
		binary.LittleEndian.PutUint64(hdr[40:48], g.FirstUsableLBA)
		binary.LittleEndian.PutUint64(hdr[48:56], g.LastUsableLBA)
		writeGUID(hdr[56:72], g.DiskGUID)
		binary.LittleEndian.PutUint64(hdr[72:80], partitionTableStart)
		binary.LittleEndian.PutUint32(hdr[80:84], g.PartitionTableEntriesNum)
		binary.LittleEndian.PutUint32(hdr[84:88], g.PartitionTableEntrySize)
		binary.LittleEndian.PutUint32(hdr[88:92], partitionTableCRC32)
		copy(hdr[gptHeaderSize:], g.HeaderAdditionalData)

		crc := crc32.ChecksumIEEE(hdr[:gptHeaderSize+len(g.HeaderAdditionalData)])
		binary.LittleEndian.PutUint32(hdr[16:20], crc)
		return hdr
	}

	primary := buildHeader(g.CurrentLBA, g.AlternateLBA, g.PartitionTableStart)
	backup := buildHeader(g.AlternateLBA, g.CurrentLBA, backupArrayLBA)

	writeAt := func(lba uint64, b []byte) error {
		if _, err := d.Seek(int64(lba*sectorSize), io.SeekStart); err != nil {
			return err
		}
		_, err := d.Write(b)
		return err
	}

	if err := writeAt(g.CurrentLBA, primary); err != nil {
		return err
	}
	if err := writeAt(g.PartitionTableStart, arr); err != nil {
		return err
	}
	if err := writeAt(backupArrayLBA, arr); err != nil {
		return err
	}
	if err := writeAt(g.AlternateLBA, backup); err != nil {
		return err
	}
	return d.Flush()
}

// FindFreeRegions returns the gaps between first_usable_lba and
// last_usable_lba not covered by any partition, in ascending Start() order.
func (g *Gpt) FindFreeRegions() []region.Region[uint64] {
	usable := []*region.Region[uint64]{ptrRegion(region.New(g.FirstUsableLBA, g.LastUsableLBA))}

	for _, p := range g.Partitions {
		if p == nil {
			continue
		}
		used := region.New(p.StartLBA, p.EndLBA)
		for i, r := range usable {
			if r == nil {
				continue
			}
			left, right := r.Subtract(used)
			usable[i] = left
			if right != nil {
				usable = append(usable, right)
			}
		}
	}

	out := make([]region.Region[uint64], 0, len(usable))
	for _, r := range usable {
		if r != nil {
			out = append(out, *r)
		}
	}
	sortRegionsByStart(out)
	return out
}

func ptrRegion(r region.Region[uint64]) *region.Region[uint64] { return &r }

func sortRegionsByStart(rs []region.Region[uint64]) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].Start() < rs[j-1].Start(); j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

// GetPartitionStartEnd implements part.PartitionTable.
func (g *Gpt) GetPartitionStartEnd(index int) (start, end uint64, ok bool) {
	if index < 0 || index >= len(g.Partitions) || g.Partitions[index] == nil {
		return 0, 0, false
	}
	p := g.Partitions[index]
	return p.StartLBA, p.EndLBA, true
}

// FindPartitionByGUID implements part.PartitionTable.
func (g *Gpt) FindPartitionByGUID(id uuid.UUID) (index int, start, end uint64, err error) {
	for i, p := range g.Partitions {
		if p != nil && p.UniqueGUID == id {
			return i, p.StartLBA, p.EndLBA, nil
		}
	}
	return -1, 0, 0, fmt.Errorf("gpt: %w", diskerr.ErrNotFound)
}

// NumPartitions implements part.PartitionTable.
func (g *Gpt) NumPartitions() int { return len(g.Partitions) }
