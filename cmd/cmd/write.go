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
	"io"
	"math"
	"os"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/pkg/pbar"
	"github.com/arturkow2000/diskutil/pkg/reader"
	"github.com/spf13/cobra"
)

func DefineWriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Write raw data to a disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runWrite,
	}
	cmd.Flags().StringP("format", "f", "raw", "disk format: raw, vhd or device")
	cmd.Flags().Uint64P("offset", "o", 0, "offset in bytes to write to, relative to the selected partition")
	cmd.Flags().Uint64("sector", 0, "offset in sectors to write to, relative to the selected partition")
	cmd.Flags().Uint64P("length", "l", 0, "maximum number of bytes to write")
	cmd.Flags().Uint64P("sectors", "n", 0, "maximum number of sectors to write")
	cmd.Flags().StringP("partition", "p", "", "partition to write to (index or GUID)")
	cmd.Flags().StringSlice("in", nil, "input file (repeatable; concatenated in order; default: stdin)")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	cmd.Flags().Uint32("sector-size", 0, "override the sector size used to interpret a raw image (default 512)")

	cmd.MarkFlagsMutuallyExclusive("offset", "sector")
	cmd.MarkFlagsMutuallyExclusive("length", "sectors")
	cmd.MarkFlagsOneRequired("offset", "sector")
	return cmd
}

func runWrite(cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	diskFormat, err := parseDiskFormat(formatStr)
	if err != nil {
		return err
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, sectorSizeArgs(cmd))
	if err != nil {
		return err
	}
	defer d.Flush()

	in, inLength, closers, err := writeInputStream(cmd)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	target, err := selectTarget(cmd, d)
	if err != nil {
		return err
	}

	defaultLength := uint64(math.MaxUint64)
	if inLength != nil {
		defaultLength = *inLength
	}
	offset, length, err := resolveOffsetLengthNoDiskCap(cmd, target, defaultLength)
	if err != nil {
		return err
	}

	if _, err := target.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	showProgress, _ := cmd.Flags().GetBool("progress")
	var pb *pbar.ProgressBarState
	if showProgress && length != math.MaxUint64 {
		pb = pbar.NewProgressBarState(int64(length))
	}

	chunk := uint64(ioChunkSize)
	if length < chunk {
		chunk = length
	}
	buf := make([]byte, chunk)

	left := length
	for left > 0 {
		n := uint64(len(buf))
		if n > left {
			n = left
		}
		r, err := in.Read(buf[:n])
		if r > 0 {
			if _, werr := target.Write(buf[:r]); werr != nil {
				return fmt.Errorf("write: %w", werr)
			}
			left -= uint64(r)
			if pb != nil {
				pb.ProcessedBytes += int64(r)
				pb.Render(false)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read: %w", err)
		}
		if uint64(r) != n {
			break
		}
	}
	if pb != nil {
		pb.Render(true)
		pb.Finish()
	}
	return nil
}

// resolveOffsetLengthNoDiskCap is resolveOffsetLength without the
// remaining-disk-space fallback: a write with no length flag writes until
// its input stream is exhausted, not until the disk ends.
func resolveOffsetLengthNoDiskCap(cmd *cobra.Command, target disk.Disk, defaultLength uint64) (offset, length uint64, err error) {
	sectorSize := uint64(target.SectorSize())

	offset, _ = cmd.Flags().GetUint64("offset")
	if cmd.Flags().Changed("sector") {
		sector, _ := cmd.Flags().GetUint64("sector")
		offset = sector * sectorSize
	}

	length = defaultLength
	if cmd.Flags().Changed("length") {
		length, _ = cmd.Flags().GetUint64("length")
	} else if cmd.Flags().Changed("sectors") {
		sectors, _ := cmd.Flags().GetUint64("sectors")
		length = sectors * sectorSize
	}
	return offset, length, nil
}

// writeInputStream opens -in, or falls back to stdin. The returned length is
// nil when reading from stdin, since its size is not known up front. When
// more than one -in file is given, their contents are concatenated in order
// through a reader.MultiReadSeeker rather than requiring the caller to
// `cat` them together first. The caller must close every returned closer
// once done reading.
func writeInputStream(cmd *cobra.Command) (io.Reader, *uint64, []io.Closer, error) {
	paths, _ := cmd.Flags().GetStringSlice("in")
	if len(paths) == 0 {
		return os.Stdin, nil, nil, nil
	}

	readers := make([]io.ReadSeeker, 0, len(paths))
	sizes := make([]int64, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, fmt.Errorf("open input file %s: %w", path, err)
		}
		closers = append(closers, f)

		fi, err := f.Stat()
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, fmt.Errorf("stat input file %s: %w", path, err)
		}
		readers = append(readers, f)
		sizes = append(sizes, fi.Size())
	}

	var total uint64
	for _, size := range sizes {
		total += uint64(size)
	}

	if len(readers) == 1 {
		return readers[0], &total, closers, nil
	}
	return reader.NewMultiReadSeeker(readers, sizes), &total, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}
