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
	"strings"

	"github.com/arturkow2000/diskutil/internal/disk"
	"github.com/arturkow2000/diskutil/internal/part/gpt"
	"github.com/arturkow2000/diskutil/internal/part/mbr"
	"github.com/arturkow2000/diskutil/pkg/util/format"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// DefineGptCommand builds the "gpt" command tree: create, dump, add,
// delete/del, modify/mod.
func DefineGptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gpt <file>",
		Short: "Manipulate a GUID Partition Table",
	}
	cmd.PersistentFlags().StringP("format", "f", "raw", "disk format: raw, vhd or device")

	cmd.AddCommand(defineGptCreateCommand())
	cmd.AddCommand(defineGptDumpCommand())
	cmd.AddCommand(defineGptAddCommand())
	cmd.AddCommand(defineGptDeleteCommand())
	cmd.AddCommand(defineGptModifyCommand())
	return cmd
}

func gptDiskFormat(cmd *cobra.Command) (disk.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	return parseDiskFormat(s)
}

// parsePartitionType accepts a raw {GUID} (braced, as the original CLI did)
// or one of the short aliases gpt.ParseTypeAlias knows.
func parsePartitionType(s string) (uuid.UUID, error) {
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		id, err := uuid.Parse(s[1 : len(s)-1])
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("invalid type GUID %q: %w", s, err)
		}
		return id, nil
	}
	if id, ok := gpt.ParseTypeAlias(strings.ToLower(s)); ok {
		return id, nil
	}
	return uuid.UUID{}, fmt.Errorf("unknown partition type %q", s)
}

func defineGptCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new protective MBR and an empty GPT",
		Args:  cobra.ExactArgs(1),
		RunE:  runGptCreate,
	}
	return cmd
}

func runGptCreate(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, disk.NewArgumentMap())
	if err != nil {
		return err
	}
	defer d.Flush()

	if err := mbr.CreateProtective(d).Update(d); err != nil {
		return fmt.Errorf("write protective mbr: %w", err)
	}
	if err := gpt.Create(d).Update(d); err != nil {
		return fmt.Errorf("write gpt: %w", err)
	}
	return nil
}

func defineGptDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the partition table",
		Args:  cobra.ExactArgs(1),
		RunE:  runGptDump,
	}
}

func runGptDump(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	d, err := openDisk(args[0], diskFormat, disk.ReadOnly, disk.NewArgumentMap())
	if err != nil {
		return err
	}

	g, err := gpt.Load(d, gpt.Ignore, nil)
	if err != nil {
		return fmt.Errorf("load gpt: %w", err)
	}

	fmt.Printf("%-5s %-10s %-10s %-10s %-38s %-24s Name\n",
		"Index", "Start", "End", "Size", "Unique GUID", "Type")

	for i, p := range g.Partitions {
		if p == nil {
			continue
		}
		if p.EndLBA < p.StartLBA {
			fmt.Printf("%-5d %-10d %-10d ERROR: end < start\n", i, p.StartLBA, p.EndLBA)
			continue
		}

		size := p.Size() * uint64(d.SectorSize())
		typeName, ok := gpt.TypeName(p.TypeGUID)
		if !ok {
			typeName = p.TypeGUID.String()
		}

		fmt.Printf("%-5d %-10d %-10d %-10s {%-36s} %-24s %s\n",
			i, p.StartLBA, p.EndLBA, format.FormatBytes(int64(size)),
			strings.ToUpper(p.UniqueGUID.String()), typeName, p.Name)
	}
	return nil
}

func defineGptAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file> <size>",
		Short: "Add a partition",
		Args:  cobra.ExactArgs(2),
		RunE:  runGptAdd,
	}
	cmd.Flags().Uint64P("start", "s", 0, "first sector of the new partition (default: first fit)")
	cmd.Flags().StringP("name", "n", "", "partition name")
	cmd.Flags().StringP("guid", "u", "", "unique GUID (default: random)")
	cmd.Flags().StringP("type", "t", "msbasic", "type GUID or alias (msbasic, msreserved, efi/esp, linux, linux-swap)")
	return cmd
}

func runGptAdd(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	sizeBytes, err := format.ParseBytes(args[1])
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, disk.NewArgumentMap())
	if err != nil {
		return err
	}
	defer d.Flush()

	g, err := gpt.Load(d, gpt.Ignore, nil)
	if err != nil {
		return fmt.Errorf("load gpt: %w", err)
	}

	params := gpt.AddPartitionParams{SizeBytes: sizeBytes}

	if cmd.Flags().Changed("start") {
		start, _ := cmd.Flags().GetUint64("start")
		params.StartLBA = &start
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		params.Name = name
	}
	if guidStr, _ := cmd.Flags().GetString("guid"); guidStr != "" {
		id, err := uuid.Parse(guidStr)
		if err != nil {
			return fmt.Errorf("invalid --guid: %w", err)
		}
		params.UniqueGUID = &id
	}
	if typeStr, _ := cmd.Flags().GetString("type"); typeStr != "" {
		id, err := parsePartitionType(typeStr)
		if err != nil {
			return err
		}
		params.TypeGUID = &id
	}

	index, err := g.AddPartition(d, params)
	if err != nil {
		return fmt.Errorf("add partition: %w", err)
	}
	fmt.Printf("added partition #%d\n", index)
	return nil
}

func defineGptDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <file> <partition>",
		Aliases: []string{"del"},
		Short:   "Delete a partition",
		Args:    cobra.ExactArgs(2),
		RunE:    runGptDelete,
	}
}

func runGptDelete(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	id, err := ParsePartitionID(args[1])
	if err != nil {
		return err
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, disk.NewArgumentMap())
	if err != nil {
		return err
	}
	defer d.Flush()

	g, err := gpt.Load(d, gpt.Ignore, nil)
	if err != nil {
		return fmt.Errorf("load gpt: %w", err)
	}

	if id.IsGUID {
		return g.DeletePartitionByGUID(d, id.GUID)
	}
	return g.DeletePartitionByIndex(d, id.Index)
}

func defineGptModifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "modify <file> <partition>",
		Aliases: []string{"mod"},
		Short:   "Modify a partition's name, type GUID or unique GUID",
		Args:    cobra.ExactArgs(2),
		RunE:    runGptModify,
	}
	cmd.Flags().StringP("name", "n", "", "new partition name")
	cmd.Flags().StringP("guid", "u", "", "new unique GUID")
	cmd.Flags().StringP("type", "t", "", "new type GUID or alias")
	return cmd
}

func runGptModify(cmd *cobra.Command, args []string) error {
	diskFormat, err := gptDiskFormat(cmd)
	if err != nil {
		return err
	}
	id, err := ParsePartitionID(args[1])
	if err != nil {
		return err
	}

	d, err := openDisk(args[0], diskFormat, disk.ReadWrite, disk.NewArgumentMap())
	if err != nil {
		return err
	}
	defer d.Flush()

	g, err := gpt.Load(d, gpt.Ignore, nil)
	if err != nil {
		return fmt.Errorf("load gpt: %w", err)
	}

	index := id.Index
	if id.IsGUID {
		foundIndex, _, _, err := g.FindPartitionByGUID(id.GUID)
		if err != nil {
			return fmt.Errorf("find partition: %w", err)
		}
		index = foundIndex
	}

	var patch gpt.PartitionPatch
	if name, _ := cmd.Flags().GetString("name"); cmd.Flags().Changed("name") {
		patch.Name = &name
	}
	if guidStr, _ := cmd.Flags().GetString("guid"); guidStr != "" {
		newGUID, err := uuid.Parse(guidStr)
		if err != nil {
			return fmt.Errorf("invalid --guid: %w", err)
		}
		patch.UniqueGUID = &newGUID
	}
	if typeStr, _ := cmd.Flags().GetString("type"); typeStr != "" {
		newType, err := parsePartitionType(typeStr)
		if err != nil {
			return err
		}
		patch.TypeGUID = &newType
	}

	return g.ModifyPartition(d, index, patch)
}
