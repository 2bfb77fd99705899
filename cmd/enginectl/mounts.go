package main

import (
	"fmt"

	"github.com/forgecore/enginecore/engine"
	"github.com/spf13/cobra"
)

// newMountsCmd boots a harness (which mounts nothing on its own; this is
// primarily for smoke-testing a boot/shutdown cycle headless) and reports
// the engine's resolved configuration.
func newMountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mounts",
		Short: "Print the resolved engine/tooling configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := engine.Boot(settingsPath)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			eng := h.Settings().Engine()
			tool := h.Settings().Tooling()
			fmt.Fprintf(cmd.OutOrStdout(), "engine.connectToServer = %v\n", eng.ConnectToServer)
			fmt.Fprintf(cmd.OutOrStdout(), "engine.remoteServicesUrl = %s\n", eng.RemoteServicesURL)
			fmt.Fprintf(cmd.OutOrStdout(), "engine.debugAllocations = %v\n", eng.DebugAllocations)
			fmt.Fprintf(cmd.OutOrStdout(), "tooling.enableServer = %v\n", tool.EnableServer)
			fmt.Fprintf(cmd.OutOrStdout(), "tooling.serverPort = %d\n", tool.ServerPort)
			return nil
		},
	}
}
