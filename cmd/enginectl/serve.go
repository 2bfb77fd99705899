package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forgecore/enginecore/engine"
	"github.com/spf13/cobra"
)

// newServeCmd boots the harness and blocks until SIGINT/SIGTERM, starting
// the remote server if tooling.enableServer is set in settings.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Boot the engine harness and keep it running",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := engine.Boot(settingsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enginectl: booted, frame index %d\n", h.FrameIndex())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			return h.Shutdown()
		},
	}
}
