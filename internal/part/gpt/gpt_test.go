package gpt_test

import (
	"testing"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/part/gpt"
	"github.com/arturkow2000/diskutil/internal/region"
	"github.com/stretchr/testify/require"
)

func regionSlice(pairs ...[2]uint64) []region.Region[uint64] {
	out := make([]region.Region[uint64], len(pairs))
	for i, p := range pairs {
		out[i] = region.New(p[0], p[1])
	}
	return out
}

func requireSameRegions(t *testing.T, expected, got []region.Region[uint64]) {
	t.Helper()
	require.Len(t, got, len(expected))
	find := func(r region.Region[uint64]) bool {
		for _, g := range got {
			if g.Start() == r.Start() && g.End() == r.End() {
				return true
			}
		}
		return false
	}
	for _, e := range expected {
		require.Truef(t, find(e), "expected region %s not found in %v", e, got)
	}
}

func TestFindFreeRegions(t *testing.T) {
	newGpt := func(used ...[2]uint64) *gpt.Gpt {
		g := &gpt.Gpt{
			Partitions:     make([]*gpt.GptPartition, len(used)),
			FirstUsableLBA: 34,
			LastUsableLBA:  2097116,
		}
		for i, u := range used {
			g.Partitions[i] = &gpt.GptPartition{StartLBA: u[0], EndLBA: u[1]}
		}
		return g
	}

	g := newGpt([2]uint64{34, 200}, [2]uint64{201, 500})
	requireSameRegions(t, regionSlice([2]uint64{501, 2097116}), g.FindFreeRegions())

	g = newGpt([2]uint64{34, 200}, [2]uint64{8192, 16388}, [2]uint64{1048558, 1572837})
	requireSameRegions(t, regionSlice(
		[2]uint64{201, 8191}, [2]uint64{16389, 1048557}, [2]uint64{1572838, 2097116},
	), g.FindFreeRegions())

	g = newGpt([2]uint64{201, 500}, [2]uint64{34, 200})
	requireSameRegions(t, regionSlice([2]uint64{501, 2097116}), g.FindFreeRegions())
}

func TestCreateLoadRoundTrip(t *testing.T) {
	d := disk.NewRamDiskZeroed(8*1024*1024, 512)

	created := gpt.Create(d)
	require.EqualValues(t, 34, created.FirstUsableLBA)
	require.EqualValues(t, 16350, created.LastUsableLBA)
	require.Len(t, created.Partitions, 128)

	require.NoError(t, created.Update(d))

	loaded, err := gpt.Load(d, gpt.Abort, nil)
	require.NoError(t, err)

	require.EqualValues(t, 1, loaded.CurrentLBA)
	require.EqualValues(t, 34, loaded.FirstUsableLBA)
	require.EqualValues(t, 16350, loaded.LastUsableLBA)
	require.Equal(t, created.DiskGUID, loaded.DiskGUID)
	require.Len(t, loaded.Partitions, 128)
	for _, p := range loaded.Partitions {
		require.Nil(t, p)
	}
}

func TestLoadFallsBackToBackupHeader(t *testing.T) {
	d := disk.NewRamDiskZeroed(8*1024*1024, 512)
	g := gpt.Create(d)
	require.NoError(t, g.Update(d))

	// Corrupt the primary header sector; the backup at AlternateLBA must
	// still be intact and usable.
	_, err := d.Seek(int64(1*512), 0)
	require.NoError(t, err)
	_, err = d.Write(make([]byte, 512))
	require.NoError(t, err)

	loaded, err := gpt.Load(d, gpt.Abort, nil)
	require.NoError(t, err)
	require.Equal(t, g.DiskGUID, loaded.DiskGUID)
}

func TestAddModifyDeletePartition(t *testing.T) {
	d := disk.NewRamDiskZeroed(8*1024*1024, 512)
	g := gpt.Create(d)

	idx, err := g.AddPartition(d, gpt.AddPartitionParams{
		SizeBytes: 1024 * 1024,
		Name:      "data",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, idx, 0)

	p := g.Partitions[idx]
	require.NotNil(t, p)
	require.Equal(t, gpt.TypeMicrosoftBasicData, p.TypeGUID)
	require.Equal(t, "data", p.Name)
	require.EqualValues(t, g.FirstUsableLBA, p.StartLBA)
	require.EqualValues(t, 2048, p.Size())

	loaded, err := gpt.Load(d, gpt.Abort, nil)
	require.NoError(t, err)
	require.NotNil(t, loaded.Partitions[idx])
	require.Equal(t, "data", loaded.Partitions[idx].Name)

	newName := "renamed"
	require.NoError(t, g.ModifyPartition(d, idx, gpt.PartitionPatch{Name: &newName}))
	require.Equal(t, "renamed", g.Partitions[idx].Name)

	require.NoError(t, g.DeletePartitionByIndex(d, idx))
	require.Nil(t, g.Partitions[idx])

	loaded, err = gpt.Load(d, gpt.Abort, nil)
	require.NoError(t, err)
	require.Nil(t, loaded.Partitions[idx])
}

func TestAddPartitionRejectsOverlap(t *testing.T) {
	d := disk.NewRamDiskZeroed(8*1024*1024, 512)
	g := gpt.Create(d)

	start := g.FirstUsableLBA
	_, err := g.AddPartition(d, gpt.AddPartitionParams{SizeBytes: 1024 * 1024, StartLBA: &start})
	require.NoError(t, err)

	_, err = g.AddPartition(d, gpt.AddPartitionParams{SizeBytes: 512, StartLBA: &start})
	require.Error(t, err)
}

func TestAddPartitionTableFull(t *testing.T) {
	d := disk.NewRamDiskZeroed(64*1024*1024, 512)
	g := gpt.CreateEx(d, 4)

	for i := 0; i < 4; i++ {
		_, err := g.AddPartition(d, gpt.AddPartitionParams{SizeBytes: 512 * 64})
		require.NoError(t, err)
	}

	_, err := g.AddPartition(d, gpt.AddPartitionParams{SizeBytes: 512 * 64})
	require.Error(t, err)
}

func TestParseTypeAlias(t *testing.T) {
	id, ok := gpt.ParseTypeAlias("esp")
	require.True(t, ok)
	require.Equal(t, gpt.TypeEFISystem, id)

	_, ok = gpt.ParseTypeAlias("nonexistent")
	require.False(t, ok)
}
