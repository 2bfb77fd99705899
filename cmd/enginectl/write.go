package main

import (
	"fmt"

	"github.com/forgecore/enginecore/engine"
	"github.com/forgecore/enginecore/vfs"
	"github.com/spf13/cobra"
)

var writeMountDir, writeAlias string
var writeCreateDirs bool

// newWriteCmd exercises the "Atomic write" scenario (spec.md §8) from the
// command line.
func newWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <path> <contents>",
		Short: "Write a file through the VFS, atomically",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := engine.Boot(settingsPath)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			if writeMountDir != "" {
				if _, err := h.VFS().MountLocal(writeMountDir, writeAlias, false); err != nil {
					return err
				}
			}

			var flags vfs.Flags
			if writeCreateDirs {
				flags |= vfs.CreateDirs
			}
			if err := h.VFS().WriteFile(args[0], []byte(args[1]), flags); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enginectl: wrote %d bytes to %s\n", len(args[1]), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&writeMountDir, "mount-dir", "", "local directory to mount before writing")
	cmd.Flags().StringVar(&writeAlias, "alias", "data", "alias to mount --mount-dir under")
	cmd.Flags().BoolVar(&writeCreateDirs, "create-dirs", true, "create missing parent directories")
	return cmd
}
