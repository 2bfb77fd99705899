package main

import (
	"github.com/spf13/cobra"
)

var settingsPath string

// newRootCmd builds the command tree: a persistent --settings flag shared
// by every subcommand.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "enginectl",
		Short: "Devtool for booting the engine harness and driving its VFS/remote layers",
	}

	root.PersistentFlags().StringVar(&settingsPath, "settings", "enginectl.ini", "path to the settings INI file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newWriteCmd())
	root.AddCommand(newMountsCmd())

	return root
}
