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

// Package diskerr holds the sentinel errors shared by every codec in this
// module. Callers compare with errors.Is; structural failures wrap a
// sentinel with fmt.Errorf("%w: reason") to attach context.
package diskerr

import "errors"

var (
	// ErrInvalidVHDFooter is returned when a VHD footer fails cookie,
	// version or checksum validation.
	ErrInvalidVHDFooter = errors.New("invalid VHD footer")

	// ErrInvalidVHDDynamicHeader is returned when a VHD dynamic header
	// fails cookie, version or checksum validation.
	ErrInvalidVHDDynamicHeader = errors.New("invalid VHD dynamic header")

	// ErrMBRMissing is returned when sector 0 does not end in the 0x55 0xAA
	// boot signature.
	ErrMBRMissing = errors.New("MBR signature not found")

	// ErrGPTMissing is returned when a GPT header does not start with the
	// "EFI PART" signature.
	ErrGPTMissing = errors.New("GPT signature not found")

	// ErrInvalidGPT covers CRC mismatches, inconsistent LBAs and
	// header/array overlap.
	ErrInvalidGPT = errors.New("invalid GPT")

	// ErrUnknownDiskType is returned when a disk image cannot be
	// classified as Raw, VHD or Device.
	ErrUnknownDiskType = errors.New("unknown disk type")

	// ErrInvalidBPB is returned by external FAT collaborators reading a
	// malformed BIOS Parameter Block; kept here so callers across package
	// boundaries can compare against one sentinel.
	ErrInvalidBPB = errors.New("invalid BIOS parameter block")

	// ErrNotSupported is returned for operations a particular Disk/Backend
	// variant or platform does not implement (e.g. device geometry
	// queries on non-Linux builds, MBR.FindPartitionByGUID).
	ErrNotSupported = errors.New("not supported")

	// ErrNotFound is returned when a partition lookup by index or GUID
	// fails to match any slot.
	ErrNotFound = errors.New("not found")

	// ErrPartitionTableFull is returned by Gpt.AddPartition when every
	// slot already holds a partition.
	ErrPartitionTableFull = errors.New("partition table is full")

	// ErrRegionUnavailable is returned by Gpt.AddPartition when an
	// explicit start/size does not fit the usable region or overlaps an
	// existing partition.
	ErrRegionUnavailable = errors.New("region is not available")
)
