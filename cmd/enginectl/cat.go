package main

import (
	"fmt"

	"github.com/forgecore/enginecore/engine"
	"github.com/forgecore/enginecore/vfs"
	"github.com/spf13/cobra"
)

var catMountDir, catAlias string

// newCatCmd boots a harness with a single local mount and performs a
// blocking VFS read, for manually exercising the "Local read" scenario
// (spec.md §8).
func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Read a file through the VFS and print it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := engine.Boot(settingsPath)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			if catMountDir != "" {
				if _, err := h.VFS().MountLocal(catMountDir, catAlias, false); err != nil {
					return err
				}
			}

			data, err := h.VFS().ReadFileBlocking(args[0], vfs.TextFile, nil)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&catMountDir, "mount-dir", "", "local directory to mount before reading")
	cmd.Flags().StringVar(&catAlias, "alias", "data", "alias to mount --mount-dir under")
	return cmd
}
