package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "diskutil"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - block-level disk image manipulation toolkit",
	}

	rootCmd.AddCommand(
		DefineCreateCommand(),
		DefineGptCommand(),
		DefineMbrCommand(),
		DefineHexdumpCommand(),
		DefineReadCommand(),
		DefineWriteCommand(),
		DefineVhdInfoCommand(),
		DefineFsmountCommand(),
	)

	return rootCmd.Execute()
}
