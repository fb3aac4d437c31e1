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
	"math"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/vhd"
	"github.com/arturkow2000/diskutil/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new disk image",
		Args:  cobra.ExactArgs(1),
		RunE:  RunCreate,
	}

	cmd.Flags().StringP("format", "f", "raw", "disk format: raw or vhd")
	cmd.Flags().BoolP("static", "s", false, "create a statically (fixed) sized disk instead of a dynamically growing one; only meaningful for vhd")
	cmd.Flags().String("size", "", "disk size, e.g. 10G, 512M (required)")
	cmd.Flags().String("block-size", "", "allocation block size for a dynamic vhd, e.g. 2M (default 2M); ignored for static vhd and raw")
	cmd.MarkFlagRequired("size")

	return cmd
}

func RunCreate(cmd *cobra.Command, args []string) error {
	path := args[0]

	formatStr, _ := cmd.Flags().GetString("format")
	diskFormat, err := parseDiskFormat(formatStr)
	if err != nil {
		return err
	}

	sizeStr, _ := cmd.Flags().GetString("size")
	sizeBytes, err := format.ParseBytes(sizeStr)
	if err != nil {
		return fmt.Errorf("invalid --size: %w", err)
	}
	if sizeBytes == 0 {
		return fmt.Errorf("--size must be greater than zero")
	}

	static, _ := cmd.Flags().GetBool("static")

	switch diskFormat {
	case disk.FormatRaw:
		return createRaw(path, sizeBytes)
	case disk.FormatVHD:
		blockSizeArgs, err := dynamicVhdArgs(cmd)
		if err != nil {
			return err
		}
		return createVHD(path, sizeBytes, static, blockSizeArgs)
	default:
		return fmt.Errorf("cannot create a disk image of format %s", diskFormat)
	}
}

// dynamicVhdArgs builds the ArgumentMap vhd.CreateDynamicWithArgs expects
// out of --block-size, the way the original open_disk()'s argument bag
// carried per-format creation overrides.
func dynamicVhdArgs(cmd *cobra.Command) (disk.ArgumentMap, error) {
	args := disk.NewArgumentMap()

	blockSizeStr, _ := cmd.Flags().GetString("block-size")
	if blockSizeStr == "" {
		return args, nil
	}
	blockSize, err := format.ParseBytes(blockSizeStr)
	if err != nil {
		return disk.ArgumentMap{}, fmt.Errorf("invalid --block-size: %w", err)
	}
	if blockSize == 0 || blockSize > math.MaxUint32 {
		return disk.ArgumentMap{}, fmt.Errorf("--block-size %d is out of range", blockSize)
	}
	return args.Set("block_size", uint32(blockSize)), nil
}

func createRaw(path string, sizeBytes uint64) error {
	if sizeBytes%disk.DefaultSectorSize != 0 {
		return fmt.Errorf("size %d is not a multiple of the sector size (%d)", sizeBytes, disk.DefaultSectorSize)
	}

	backend, err := disk.CreateFileBackend(path, sizeBytes)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer backend.Flush()
	return nil
}

func createVHD(path string, sizeBytes uint64, static bool, blockSizeArgs disk.ArgumentMap) error {
	if sizeBytes%disk.DefaultSectorSize != 0 {
		return fmt.Errorf("size %d is not a multiple of the sector size (%d)", sizeBytes, disk.DefaultSectorSize)
	}
	maxSectors := sizeBytes / disk.DefaultSectorSize

	if static {
		backend, err := disk.CreateFileBackend(path, sizeBytes+disk.DefaultSectorSize)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := vhd.CreateFixed(backend, maxSectors); err != nil {
			backend.Flush()
			return fmt.Errorf("create fixed vhd %s: %w", path, err)
		}
		return backend.Flush()
	}

	backend, err := disk.CreateFileBackend(path, 0)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	d, err := vhd.CreateDynamicWithArgs(backend, maxSectors, blockSizeArgs)
	if err != nil {
		backend.Flush()
		return fmt.Errorf("create dynamic vhd %s: %w", path, err)
	}
	return d.Flush()
}
