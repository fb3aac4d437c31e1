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

package vhd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFooterEncodeDecodeRoundTrip(t *testing.T) {
	f := createFooter(DiskTypeDynamic, 131072) // 64 MiB
	buf := f.encode()
	require.Len(t, buf, footerSize)

	decoded, err := decodeFooter(buf)
	require.NoError(t, err)
	require.Equal(t, f.CurrentSize, decoded.CurrentSize)
	require.Equal(t, f.DiskType, decoded.DiskType)
	require.Equal(t, f.UniqueID, decoded.UniqueID)
	require.Equal(t, f.DiskGeometry, decoded.DiskGeometry)
}

func TestDecodeFooterRejectsBadChecksum(t *testing.T) {
	f := createFooter(DiskTypeFixed, 2048)
	buf := f.encode()
	buf[100] ^= 0xFF // corrupt a byte outside the checksum field itself

	_, err := decodeFooter(buf)
	require.Error(t, err)
}

func TestDecodeFooterRejectsBadCookie(t *testing.T) {
	f := createFooter(DiskTypeFixed, 2048)
	buf := f.encode()
	copy(buf[0:8], "notavhd!")

	_, err := decodeFooter(buf)
	require.Error(t, err)
}

func TestComputeCHSKnownValues(t *testing.T) {
	// 64 MiB, 512-byte sectors -> 131072 total sectors.
	chs := computeCHS(131072)
	require.Equal(t, uint8(17), chs.SectorsPerTrack)
	require.Equal(t, uint8(8), chs.Heads)
	require.Equal(t, uint16(963), chs.Cylinder)
}

func TestComputeCHSClampsOversizedDisk(t *testing.T) {
	chs := computeCHS(65535 * 16 * 255 * 2)
	require.Equal(t, uint8(255), chs.SectorsPerTrack)
	require.Equal(t, uint8(16), chs.Heads)
}

func TestDynamicHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := createDynamicHeader(131072, defaultBlockSize)
	buf := h.encode()
	require.Len(t, buf, dynamicHeaderSize)

	decoded, err := decodeDynamicHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h.BATOffset, decoded.BATOffset)
	require.Equal(t, h.MaxTableEntries, decoded.MaxTableEntries)
	require.Equal(t, h.BlockSize, decoded.BlockSize)
}

func TestBitmapSizeRoundsUpToSector(t *testing.T) {
	// 2 MiB block / 512-byte sectors = 4096 sectors = 4096 bits = 512 bytes,
	// already a whole sector, so rounding up leaves it unchanged.
	require.Equal(t, uint32(512), bitmapSize(2*1024*1024))
}
