package region_test

import (
	"testing"

	"github.com/arturkow2000/diskutil/internal/region"
	"github.com/stretchr/testify/require"
)

func TestSubtractMiddle(t *testing.T) {
	a := region.New(100, 200)
	b := region.New(140, 160)

	left, right := a.Subtract(b)
	require.NotNil(t, left)
	require.NotNil(t, right)
	require.Equal(t, region.New(100, 139), *left)
	require.Equal(t, region.New(161, 200), *right)
}

func TestSubtractCoversAll(t *testing.T) {
	a := region.New(100, 200)
	b := region.New(50, 250)

	left, right := a.Subtract(b)
	require.Nil(t, left)
	require.Nil(t, right)
}

func TestSubtractNoOverlap(t *testing.T) {
	a := region.New(100, 200)
	b := region.New(300, 400)

	left, right := a.Subtract(b)
	require.NotNil(t, left)
	require.Nil(t, right)
	require.Equal(t, a, *left)
}

func TestSubtractLeftEdge(t *testing.T) {
	a := region.New(100, 200)
	b := region.New(100, 150)

	left, right := a.Subtract(b)
	require.Nil(t, left)
	require.NotNil(t, right)
	require.Equal(t, region.New(151, 200), *right)
}

func TestSubtractRightEdge(t *testing.T) {
	a := region.New(100, 200)
	b := region.New(150, 200)

	left, right := a.Subtract(b)
	require.NotNil(t, left)
	require.Nil(t, right)
	require.Equal(t, region.New(100, 149), *left)
}

func TestOverlapsSymmetric(t *testing.T) {
	cases := []struct {
		a, b region.Region[int]
		want bool
	}{
		{region.New(0, 10), region.New(5, 15), true},
		{region.New(0, 10), region.New(11, 20), false},
		{region.New(0, 10), region.New(10, 20), true},
		{region.New(0, 10), region.New(100, 200), false},
	}

	for _, c := range cases {
		require.Equal(t, c.want, c.a.Overlaps(c.b))
		require.Equal(t, c.want, c.b.Overlaps(c.a))
	}
}

func TestBelongs(t *testing.T) {
	outer := region.New(0, 100)
	require.True(t, region.New(10, 20).Belongs(outer))
	require.True(t, region.New(0, 100).Belongs(outer))
	require.False(t, region.New(90, 110).Belongs(outer))
	require.False(t, region.New(-5, 50).Belongs(outer))
}

func TestSize(t *testing.T) {
	require.Equal(t, uint64(101), region.New[uint64](100, 200).Size())
	require.Equal(t, uint64(1), region.NewWithSize[uint64](5, 1).Size())
}

func TestNewWithSizePanicsOnZero(t *testing.T) {
	require.Panics(t, func() {
		region.NewWithSize[int](0, 0)
	})
}

func TestNewPanicsWhenEndBeforeStart(t *testing.T) {
	require.Panics(t, func() {
		region.New(10, 5)
	})
}
