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

// Package mbr implements the classic 512-byte Master Boot Record: loading,
// updating and the protective-MBR variant GPT disks carry in sector 0.
package mbr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/diskerr"
	"github.com/google/uuid"
)

// PartitionTypeProtectiveGPT is the well-known MBR type byte for the
// protective partition that shields a GPT disk from legacy tools.
const PartitionTypeProtectiveGPT = 0xEE

// Geometry is the (heads-per-cylinder, sectors-per-track) pair used to
// convert between CHS and LBA addressing. Mbr.Load/Update never need it
// (this codec always trusts the LBA fields), but it is exposed for callers
// that want to round-trip CHS fields exactly as the original tooling would.
type Geometry struct {
	HeadsPerCylinder uint32
	SectorsPerTrack  uint32
}

// DefaultGeometry is used whenever a Geometry's fields are left at zero.
var DefaultGeometry = Geometry{HeadsPerCylinder: 16, SectorsPerTrack: 63}

func (g Geometry) orDefault() Geometry {
	if g.HeadsPerCylinder == 0 || g.SectorsPerTrack == 0 {
		return DefaultGeometry
	}
	return g
}

// CHS is a Cylinder/Head/Sector address, 1-based for sector per legacy
// convention.
type CHS struct {
	Cylinder uint16
	Head     uint8
	Sector   uint8
}

// ChsToLBA converts a CHS triple to an LBA using geometry g.
func ChsToLBA(chs CHS, g Geometry) uint32 {
	g = g.orDefault()
	return (uint32(chs.Cylinder)*g.HeadsPerCylinder+uint32(chs.Head))*g.SectorsPerTrack + (uint32(chs.Sector) - 1)
}

// LBAToCHS converts an LBA to a CHS triple using geometry g, saturating to
// the maximum representable CHS address (1023, 255, 63) past the
// addressable range.
func LBAToCHS(lba uint32, g Geometry) CHS {
	g = g.orDefault()
	c := lba / (g.HeadsPerCylinder * g.SectorsPerTrack)
	h := (lba / g.SectorsPerTrack) % g.HeadsPerCylinder
	s := (lba % g.SectorsPerTrack) + 1
	if c > 1023 {
		return CHS{Cylinder: 1023, Head: 255, Sector: 63}
	}
	return CHS{Cylinder: uint16(c), Head: uint8(h), Sector: uint8(s)}
}

func decodeCHS(b [3]byte) CHS {
	head := b[0]
	sector := b[1] & 0x3F
	cylinder := uint16(b[2]) | ((uint16(b[1]) & 0xC0) << 2)
	return CHS{Cylinder: cylinder, Head: head, Sector: sector}
}

func encodeCHS(chs CHS) [3]byte {
	b0 := chs.Head
	b1 := (chs.Sector & 0x3F) | uint8((chs.Cylinder&0x300)>>2)
	b2 := uint8(chs.Cylinder & 0xFF)
	return [3]byte{b0, b1, b2}
}

// Partition is one of the four MBR partition records.
type Partition struct {
	Flags      uint8
	StartCHS   CHS
	Type       uint8
	EndCHS     CHS
	LBA        uint32
	NumSectors uint32
}

// Start returns the LBA of the partition's first sector.
func (p Partition) Start() uint64 { return uint64(p.LBA) }

// End returns the LBA of the partition's last sector.
func (p Partition) End() uint64 { return uint64(p.LBA) + uint64(p.NumSectors) - 1 }

// Size returns the partition's size in sectors.
func (p Partition) Size() uint32 { return p.NumSectors }

func decodePartition(buf [16]byte) *Partition {
	p := &Partition{
		Flags:      buf[0],
		StartCHS:   decodeCHS([3]byte{buf[1], buf[2], buf[3]}),
		Type:       buf[4],
		EndCHS:     decodeCHS([3]byte{buf[5], buf[6], buf[7]}),
		LBA:        binary.LittleEndian.Uint32(buf[8:12]),
		NumSectors: binary.LittleEndian.Uint32(buf[12:16]),
	}
	if p.NumSectors == 0 {
		return nil
	}
	return p
}

func (p *Partition) encode() [16]byte {
	var buf [16]byte
	buf[0] = p.Flags
	sc := encodeCHS(p.StartCHS)
	copy(buf[1:4], sc[:])
	buf[4] = p.Type
	ec := encodeCHS(p.EndCHS)
	copy(buf[5:8], ec[:])
	binary.LittleEndian.PutUint32(buf[8:12], p.LBA)
	binary.LittleEndian.PutUint32(buf[12:16], p.NumSectors)
	return buf
}

const (
	sigOffset    = 0x1FE
	bootCodeSize = 446
)

var partitionOffsets = [4]int{0x01BE, 0x01CE, 0x01DE, 0x01EE}

// Mbr holds the four partition slots and the 446-byte boot code of a
// classic MBR.
type Mbr struct {
	Partitions [4]*Partition
	Code       [bootCodeSize]byte
}

var _ interface {
	GetPartitionStartEnd(index int) (uint64, uint64, bool)
} = (*Mbr)(nil)

// Load reads sector 0 from d and decodes the partition table. Returns
// diskerr.ErrMBRMissing if the 0x55 0xAA signature is absent.
func Load(d disk.Disk) (*Mbr, error) {
	if _, err := d.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var buf [512]byte
	if _, err := io.ReadFull(d, buf[:]); err != nil {
		return nil, err
	}

	if buf[sigOffset] != 0x55 || buf[sigOffset+1] != 0xAA {
		return nil, diskerr.ErrMBRMissing
	}

	m := &Mbr{}
	copy(m.Code[:], buf[:bootCodeSize])
	for i, off := range partitionOffsets {
		var raw [16]byte
		copy(raw[:], buf[off:off+16])
		m.Partitions[i] = decodePartition(raw)
	}
	return m, nil
}

// Update re-encodes all four slots and rewrites sector 0, leaving the boot
// code untouched.
func (m *Mbr) Update(d disk.Disk) error {
	var buf [512]byte
	copy(buf[:bootCodeSize], m.Code[:])

	for i, off := range partitionOffsets {
		if p := m.Partitions[i]; p != nil {
			enc := p.encode()
			copy(buf[off:off+16], enc[:])
		}
	}
	buf[sigOffset] = 0x55
	buf[sigOffset+1] = 0xAA

	if _, err := d.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := d.Write(buf[:]); err != nil {
		return err
	}
	return nil
}

// nonBootableStub is the "Not a bootable disk." boot sector the original
// tooling ships; see SPEC_FULL.md section 4.6.
var nonBootableStub = buildNonBootableStub()

func buildNonBootableStub() [bootCodeSize]byte {
	const msg = "Not a bootable disk.\r\n"
	var code [bootCodeSize]byte
	// A minimal real-mode stub: set up segments, print the message via
	// INT 10h teletype output, then halt forever. Exact instruction
	// encoding is not load-bearing for this tool (we never make a disk
	// bootable), only that the program halts safely if someone does try
	// to boot it.
	asm := []byte{
		0x31, 0xc0, 0x8e, 0xd8, 0x8e, 0xd0, 0xb8, 0x00, 0x7c, 0x89, 0xc4, 0xbe, 0x2d, 0x7c,
		0xe8, 0x07, 0x00, 0xcd, 0x18, 0xfa, 0xf4, 0xe9, 0xfc, 0xff, 0xb4, 0x0e, 0xbb, 0x1f,
		0x00, 0xb9, 0x01, 0x00, 0xac, 0x84, 0xc0, 0x74, 0x07, 0x56, 0xcd, 0x10, 0x5e, 0xe9,
		0xec, 0xff, 0xc3,
	}
	copy(code[:], asm)
	copy(code[len(asm):], msg)
	return code
}

// CreateProtective builds a single type-0xEE partition spanning LBA 1..
// disk_sectors-1, the protective variant GPT pairs with.
func CreateProtective(d disk.Disk) *Mbr {
	numSectors := d.DiskSize() / uint64(d.SectorSize())
	protSectors := numSectors - 1
	if protSectors > 0xFFFFFFFF {
		protSectors = 0xFFFFFFFF
	}

	m := &Mbr{Code: nonBootableStub}
	m.Partitions[0] = &Partition{
		Flags:      0,
		StartCHS:   CHS{Cylinder: 0, Head: 0, Sector: 2},
		EndCHS:     CHS{Cylinder: 1023, Head: 255, Sector: 63},
		Type:       PartitionTypeProtectiveGPT,
		LBA:        1,
		NumSectors: uint32(protSectors),
	}
	return m
}

// GetPartitionStartEnd implements part.PartitionTable.
func (m *Mbr) GetPartitionStartEnd(index int) (start, end uint64, ok bool) {
	if index < 0 || index >= len(m.Partitions) || m.Partitions[index] == nil {
		return 0, 0, false
	}
	p := m.Partitions[index]
	return p.Start(), p.End(), true
}

// FindPartitionByGUID implements part.PartitionTable; MBR has no concept of
// partition GUIDs.
func (m *Mbr) FindPartitionByGUID(uuid.UUID) (int, uint64, uint64, error) {
	return 0, 0, 0, fmt.Errorf("mbr: %w", diskerr.ErrNotSupported)
}

// NumPartitions implements part.PartitionTable.
func (m *Mbr) NumPartitions() int { return len(m.Partitions) }
