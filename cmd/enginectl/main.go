// Command enginectl boots the engine harness headless for manual testing of
// the VFS and remote layers, per SPEC_FULL.md §2 (Ambient Stack: CLI / test
// tooling).
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("enginectl: command failed")
		os.Exit(1)
	}
}
