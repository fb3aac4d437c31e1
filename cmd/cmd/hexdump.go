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
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/pkg/reader"
	"github.com/spf13/cobra"
)

// hexdumpBlockSize bounds how much of the dump is buffered in memory at
// once, independent of the total length requested.
const hexdumpBlockSize = 16 * 1024 * 1024

// hexdumpOptions controls canonical hexdump rendering; only the defaults
// are exposed through the CLI today.
type hexdumpOptions struct {
	PrintOffset bool
	AsciiDump   bool
	Verbose     bool
	WordsPerRow int
}

func defaultHexdumpOptions() hexdumpOptions {
	return hexdumpOptions{PrintOffset: true, AsciiDump: true, WordsPerRow: 16}
}

func isASCIIGraphic(b byte) bool {
	return b >= 0x21 && b <= 0x7e
}

func writeAsciiDump(w io.Writer, line []byte) {
	fmt.Fprint(w, " |")
	for _, b := range line {
		if isASCIIGraphic(b) {
			fmt.Fprintf(w, "%c", b)
		} else {
			fmt.Fprint(w, ".")
		}
	}
	fmt.Fprint(w, "|")
}

func hexdumpRow(w io.Writer, address uint64, row []byte, opt hexdumpOptions) {
	if opt.PrintOffset {
		fmt.Fprintf(w, "%08x  ", address)
	}

	half := opt.WordsPerRow / 2
	for offset, b := range row {
		if offset > 0 {
			fmt.Fprint(w, " ")
		}
		if offset >= half && offset%half == 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%02x", b)
	}

	if opt.AsciiDump {
		if len(row)%opt.WordsPerRow != 0 {
			m := opt.WordsPerRow - len(row)
			padding := m * 3
			if m >= half {
				padding++
			}
			fmt.Fprint(w, strings.Repeat(" ", padding))
		}
		writeAsciiDump(w, row)
	}
	fmt.Fprintln(w)
}

// hexdumpFromReader reads exactly length bytes from r in hexdumpBlockSize
// chunks and prints them as a canonical hex+ASCII dump, collapsing runs of
// identical rows into a single "*" line (unless opt.Verbose).
func hexdumpFromReader(w io.Writer, r io.Reader, length uint64, opt hexdumpOptions) error {
	bufSize := uint64(hexdumpBlockSize)
	if length < bufSize {
		bufSize = length
	}
	buf := make([]byte, bufSize)

	var address uint64
	left := length
	collapsed := false
	lastRow := make([]byte, 0, opt.WordsPerRow)

	for left > 0 {
		n := uint64(hexdumpBlockSize)
		if n > left {
			n = left
		}
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return err
		}

		if !opt.Verbose {
			lastRow = make([]byte, opt.WordsPerRow)
		}

		var rowsLeft, offset uint64
		rowsLeft = n
		for rowsLeft > 0 {
			rowLen := uint64(opt.WordsPerRow)
			if rowLen > rowsLeft {
				rowLen = rowsLeft
			}
			row := buf[offset : offset+rowLen]

			switch {
			case opt.Verbose:
				hexdumpRow(w, address, row, opt)
			case bytes.Equal(lastRow[:rowLen], row):
				if !collapsed {
					fmt.Fprintln(w, "*")
					collapsed = true
				}
			default:
				hexdumpRow(w, address, row, opt)
				if rowLen < uint64(opt.WordsPerRow) {
					lastRow = lastRow[:rowLen]
				}
				copy(lastRow, row)
				collapsed = false
			}

			address += uint64(opt.WordsPerRow)
			rowsLeft -= rowLen
			offset += rowLen
		}

		left -= n
	}
	return nil
}

func DefineHexdumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hexdump <file>",
		Short: "HEX + ASCII dump, similar to the Unix hexdump utility",
		Args:  cobra.ExactArgs(1),
		RunE:  runHexdump,
	}
	cmd.Flags().StringP("format", "f", "raw", "disk format: raw, vhd or device")
	cmd.Flags().Uint64P("offset", "o", 0, "offset in bytes from which to start, relative to the selected partition")
	cmd.Flags().Uint64("sector", 0, "offset in sectors from which to start, relative to the selected partition")
	cmd.Flags().Uint64P("length", "l", 0, "number of bytes to dump")
	cmd.Flags().Uint64P("sectors", "n", 0, "number of sectors to dump")
	cmd.Flags().StringP("partition", "p", "", "partition to dump from (index or GUID)")
	cmd.Flags().Uint32("sector-size", 0, "override the sector size used to interpret a raw image (default 512)")

	cmd.MarkFlagsMutuallyExclusive("offset", "sector")
	cmd.MarkFlagsMutuallyExclusive("length", "sectors")
	cmd.MarkFlagsOneRequired("offset", "sector")
	return cmd
}

func runHexdump(cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	diskFormat, err := parseDiskFormat(formatStr)
	if err != nil {
		return err
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadOnly, sectorSizeArgs(cmd))
	if err != nil {
		return err
	}

	var target disk.Disk = d
	if partitionStr, _ := cmd.Flags().GetString("partition"); partitionStr != "" {
		id, err := ParsePartitionID(partitionStr)
		if err != nil {
			return err
		}
		pt, err := loadPartitionTable(d)
		if err != nil {
			return err
		}
		p, err := resolvePartition(pt, id)
		if err != nil {
			return err
		}
		target, err = disk.NewSlice(d, p.StartSector(), p.SectorCount())
		if err != nil {
			return err
		}
	}

	sectorSize := uint64(target.SectorSize())

	offset, _ := cmd.Flags().GetUint64("offset")
	if cmd.Flags().Changed("sector") {
		sector, _ := cmd.Flags().GetUint64("sector")
		offset = sector * sectorSize
	}

	length := target.DiskSize() - offset
	if cmd.Flags().Changed("length") {
		length, _ = cmd.Flags().GetUint64("length")
	} else if cmd.Flags().Changed("sectors") {
		sectors, _ := cmd.Flags().GetUint64("sectors")
		length = sectors * sectorSize
	}

	if _, err := target.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	// Disk and device backends issue one syscall per Read; buffering in
	// front of them keeps the row-by-row dumper from making one syscall
	// per hexdumpBlockSize-sized chunk's worth of small reads.
	src := reader.NewBufferedReadSeeker(target, hexdumpBlockSize)

	return hexdumpFromReader(os.Stdout, src, length, defaultHexdumpOptions())
}
