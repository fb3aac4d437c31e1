package disk_test

import (
	"io"
	"testing"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/stretchr/testify/require"
)

func TestSliceCreation(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	s, err := disk.NewSlice(parent, 1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(512), s.DiskSize())
}

func TestSliceOutOfBounds(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	_, err := disk.NewSlice(parent, 2, 2)
	require.Error(t, err)
}

func TestSliceZeroSize(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	_, err := disk.NewSlice(parent, 0, 0)
	require.Error(t, err)
}

func TestSlicePartialReadPastEnd(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	s, err := disk.NewSlice(parent, 1, 1)
	require.NoError(t, err)

	_, err = s.Seek(508, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, 20)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = s.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceSeekEnd(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	s, err := disk.NewSlice(parent, 1, 1)
	require.NoError(t, err)

	pos, err := s.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(502), pos)
}

func TestSliceReadWriteRoundTrip(t *testing.T) {
	parent := disk.NewRamDiskZeroed(1536, 512)
	s, err := disk.NewSlice(parent, 1, 2)
	require.NoError(t, err)

	payload := []byte("hello, slice")
	n, err := s.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	n, err = s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, payload, buf[:n])

	// the sibling sector of the parent disk must be untouched
	require.Equal(t, make([]byte, 512), parent.Bytes()[:512])
}
