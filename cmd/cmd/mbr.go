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
	"os"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/part/mbr"
	"github.com/arturkow2000/diskutil/pkg/util/format"
	"github.com/spf13/cobra"
)

// mbrMaxBootloaderSize is the space available for boot code before the
// partition table begins at offset 0x1BE.
const mbrMaxBootloaderSize = 446

// DefineMbrCommand builds the "mbr" command tree: dump, bootcode.
func DefineMbrCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mbr <file>",
		Short: "Manipulate a classic MBR partition table",
	}
	cmd.PersistentFlags().StringP("format", "f", "raw", "disk format: raw, vhd or device")

	cmd.AddCommand(&cobra.Command{
		Use:   "dump <file>",
		Short: "Print the partition table",
		Args:  cobra.ExactArgs(1),
		RunE:  runMbrDump,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "bootcode <file> <bootloader>",
		Short: "Install bootloader code into the MBR, leaving the partition table untouched",
		Args:  cobra.ExactArgs(2),
		RunE:  runMbrBootcode,
	})
	return cmd
}

func runMbrDump(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	d, err := openDisk(args[0], diskFormat, disk.ReadOnly, disk.NewArgumentMap())
	if err != nil {
		return err
	}

	m, err := mbr.Load(d)
	if err != nil {
		return fmt.Errorf("load mbr: %w", err)
	}

	fmt.Printf("%-5s %-10s %-10s %-10s %-6s %-5s\n", "Index", "Start", "End", "Size", "Type", "Flags")
	for i, p := range m.Partitions {
		if p == nil {
			fmt.Printf("%-5d UNUSED\n", i)
			continue
		}
		size := uint64(p.Size()) * uint64(d.SectorSize())
		fmt.Printf("%-5d %-10d %-10d %-10s 0x%02X   0x%02X\n",
			i, p.Start(), p.End(), format.FormatBytes(int64(size)), p.Type, p.Flags)
	}
	return nil
}

// runMbrBootcode writes the raw bootloader image directly into sector 0's
// boot-code region, bypassing Mbr.Update so the existing partition table is
// preserved byte-for-byte instead of being re-encoded.
func runMbrBootcode(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}

	boot, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read bootloader: %w", err)
	}
	if len(boot) > mbrMaxBootloaderSize {
		return fmt.Errorf("bootloader is %d bytes, too big to fit in %d bytes of MBR boot code", len(boot), mbrMaxBootloaderSize)
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, disk.NewArgumentMap())
	if err != nil {
		return err
	}
	defer d.Flush()

	var sector [512]byte
	if _, err := d.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(d, sector[:]); err != nil {
		return fmt.Errorf("read sector 0: %w", err)
	}

	copy(sector[:mbrMaxBootloaderSize], boot)

	if _, err := d.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := d.Write(sector[:]); err != nil {
		return fmt.Errorf("write sector 0: %w", err)
	}
	return nil
}
