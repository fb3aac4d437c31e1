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
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/mount"
	"github.com/spf13/cobra"
)

// fsmount never parses a FAT boot sector or directory entry itself. The
// file listing it serves over FUSE always comes from an external
// collaborator: either a pre-computed JSON report (--entries) or a helper
// program invoked out-of-process (--fat-reader), mirroring the teacher's
// report-file-driven mount command.
func DefineFsmountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsmount <image> <partition-id> <mountpoint>",
		Short: "Mount a FAT partition read-only over FUSE, given an external file listing",
		Long: `The 'fsmount' command resolves a partition within a disk image and mounts it
read-only as a flat directory of files at mountpoint. This repository does not parse FAT
itself: the file listing is either read from a JSON report (--entries) or obtained by
running an external FAT-reading program (--fat-reader) against the resolved partition.`,
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFsmount,
	}
	cmd.Flags().StringP("format", "f", "raw", "disk format: raw, vhd or device")
	cmd.Flags().String("entries", "", "path to a JSON file listing [{name,offset,size}, ...]")
	cmd.Flags().String("fat-reader", "", "external program that prints a JSON file listing to stdout")

	cmd.MarkFlagsMutuallyExclusive("entries", "fat-reader")
	cmd.MarkFlagsOneRequired("entries", "fat-reader")
	return cmd
}

func runFsmount(cmd *cobra.Command, args []string) error {
	imagePath, partitionStr, mountpoint := args[0], args[1], args[2]

	formatStr, _ := cmd.Flags().GetString("format")
	diskFormat, err := parseDiskFormat(formatStr)
	if err != nil {
		return err
	}

	d, err := openDisk(imagePath, diskFormat, disk.ReadOnly, disk.NewArgumentMap())
	if err != nil {
		return err
	}

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

	target, err := disk.NewSlice(d, p.StartSector(), p.SectorCount())
	if err != nil {
		return fmt.Errorf("fsmount: %w", err)
	}

	var entries []mount.FileEntry
	if path, _ := cmd.Flags().GetString("entries"); path != "" {
		entries, err = readEntriesFile(path)
	} else if reader, _ := cmd.Flags().GetString("fat-reader"); reader != "" {
		sectorSize := uint64(d.SectorSize())
		entries, err = runFatReader(reader, imagePath, p.StartSector()*sectorSize, p.SectorCount()*sectorSize)
	}
	if err != nil {
		return fmt.Errorf("fsmount: file listing: %w", err)
	}

	return mount.Mount(mountpoint, target, entries)
}

// readEntriesFile loads a pre-computed listing produced by an external FAT
// reader and saved to disk, e.g. `fat-reader image.img --offset ... > entries.json`.
func readEntriesFile(path string) ([]mount.FileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []mount.FileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// runFatReader shells out to an external FAT reader, passing the byte range
// of the resolved partition within the original image, and decodes the JSON
// listing it prints to stdout.
func runFatReader(reader, imagePath string, offset, size uint64) ([]mount.FileEntry, error) {
	path, err := exec.LookPath(reader)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", reader, err)
	}

	c := exec.Command(path,
		imagePath,
		"--offset", strconv.FormatUint(offset, 10),
		"--size", strconv.FormatUint(size, 10),
	)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(path), err, strings.TrimSpace(stderr.String()))
	}

	var entries []mount.FileEntry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("parse %s output: %w", filepath.Base(path), err)
	}
	return entries, nil
}
