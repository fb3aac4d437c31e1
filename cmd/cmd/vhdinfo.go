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

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/vhd"
	"github.com/arturkow2000/diskutil/pkg/util/format"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func DefineVhdInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vhdinfo <file>",
		Short: "Print information about a dynamic VHD image",
		Args:  cobra.ExactArgs(1),
		RunE:  runVhdInfo,
	}
}

func runVhdInfo(cmd *cobra.Command, args []string) error {
	backend, err := disk.OpenFileBackend(args[0], disk.ReadOnly)
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer backend.Flush()

	d, err := vhd.Open(backend)
	if err != nil {
		return fmt.Errorf("open %s as vhd: %w", args[0], err)
	}

	uniqueID := d.UniqueID()
	fmt.Printf("Disk type        : %s\n", d.DiskType())
	fmt.Printf("Max disk size    : %s\n", format.FormatBytes(int64(d.DiskSize())))
	fmt.Printf("Sector size      : %d\n", d.SectorSize())
	fmt.Printf("Block size       : %s\n", format.FormatBytes(int64(d.BlockSize())))
	fmt.Printf("BAT entries      : %d\n", d.MaxTableEntries())
	fmt.Printf("Unique ID        : %s\n", uuid.UUID(uniqueID))
	return nil
}
