package mbr_test

import (
	"testing"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/part/mbr"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeCHSRoundTrip(t *testing.T) {
	cases := []struct {
		raw [3]byte
		chs mbr.CHS
	}{
		{[3]byte{0x00, 0x20, 0x21}, mbr.CHS{Cylinder: 33, Head: 0, Sector: 32}},
		{[3]byte{0x00, 0x02, 0x00}, mbr.CHS{Cylinder: 0, Head: 0, Sector: 2}},
		{[3]byte{0xee, 0xff, 0xff}, mbr.CHS{Cylinder: 1023, Head: 238, Sector: 63}},
		{[3]byte{0xff, 0xff, 0xff}, mbr.CHS{Cylinder: 1023, Head: 255, Sector: 63}},
		{[3]byte{0x14, 0x10, 0x04}, mbr.CHS{Cylinder: 4, Head: 20, Sector: 16}},
	}

	for _, c := range cases {
		got := decodeCHSExported(c.raw)
		require.Equal(t, c.chs, got)
		require.Equal(t, c.raw, encodeCHSExported(got))
	}
}

// decodeCHSExported/encodeCHSExported bounce through the partition
// encode/decode helpers, which are unexported, via a full 16-byte record so
// the CHS packing is exercised the same way Load/Update exercise it.
func decodeCHSExported(raw [3]byte) mbr.CHS {
	var rec [16]byte
	rec[1], rec[2], rec[3] = raw[0], raw[1], raw[2]
	rec[12] = 1 // num_sectors must be non-zero to decode
	d := disk.NewRamDiskZeroed(512, 512)
	var sector [512]byte
	copy(sector[0x01BE:0x01BE+16], rec[:])
	sector[0x1FE] = 0x55
	sector[0x1FF] = 0xAA
	copy(d.Bytes(), sector[:])
	m, err := mbr.Load(d)
	if err != nil {
		panic(err)
	}
	return m.Partitions[0].StartCHS
}

func encodeCHSExported(chs mbr.CHS) [3]byte {
	d := disk.NewRamDiskZeroed(512, 512)
	m := &mbr.Mbr{}
	m.Partitions[0] = &mbr.Partition{StartCHS: chs, NumSectors: 1}
	if err := m.Update(d); err != nil {
		panic(err)
	}
	var out [3]byte
	copy(out[:], d.Bytes()[0x01BF:0x01BF+3])
	return out
}

func TestChsToLBA(t *testing.T) {
	g := mbr.DefaultGeometry
	require.EqualValues(t, 32256, mbr.ChsToLBA(mbr.CHS{Cylinder: 32, Head: 0, Sector: 1}, g))
	require.EqualValues(t, 32255, mbr.ChsToLBA(mbr.CHS{Cylinder: 31, Head: 15, Sector: 63}, g))
	require.EqualValues(t, 2016, mbr.ChsToLBA(mbr.CHS{Cylinder: 2, Head: 0, Sector: 1}, g))
	require.EqualValues(t, 1133, mbr.ChsToLBA(mbr.CHS{Cylinder: 1, Head: 1, Sector: 63}, g))
}

func TestLBAToCHS(t *testing.T) {
	g := mbr.DefaultGeometry
	require.Equal(t, mbr.CHS{Cylinder: 32, Head: 0, Sector: 1}, mbr.LBAToCHS(32256, g))
	require.Equal(t, mbr.CHS{Cylinder: 31, Head: 15, Sector: 63}, mbr.LBAToCHS(32255, g))
	require.Equal(t, mbr.CHS{Cylinder: 2, Head: 0, Sector: 1}, mbr.LBAToCHS(2016, g))
	require.Equal(t, mbr.CHS{Cylinder: 1, Head: 1, Sector: 63}, mbr.LBAToCHS(1133, g))
}

func TestCreateProtectiveRoundTrip(t *testing.T) {
	d := disk.NewRamDiskZeroed(1024*1024, 512)

	m := mbr.CreateProtective(d)
	require.NoError(t, m.Update(d))

	loaded, err := mbr.Load(d)
	require.NoError(t, err)

	require.Equal(t, byte(0x55), d.Bytes()[0x1FE])
	require.Equal(t, byte(0xAA), d.Bytes()[0x1FF])

	require.NotNil(t, loaded.Partitions[0])
	require.Equal(t, uint8(mbr.PartitionTypeProtectiveGPT), loaded.Partitions[0].Type)
	require.EqualValues(t, 1, loaded.Partitions[0].LBA)
	require.EqualValues(t, 2047, loaded.Partitions[0].NumSectors)

	require.Nil(t, loaded.Partitions[1])
	require.Nil(t, loaded.Partitions[2])
	require.Nil(t, loaded.Partitions[3])
}
