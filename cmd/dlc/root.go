// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is the semantic version, set via -ldflags at release build time.
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dlc",
		Short: "In-container supervisor for disposable test containers",
		Long: `dlc replaces a container image's entrypoint. It installs itself into a
shared volume, spawns the image's original entrypoint as a child process,
evaluates readiness conditions concurrently against a deadline, and streams
lifecycle events to the host-side controller over a TCP connection.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInstallCmd())
	root.AddCommand(newRunCmd())
	return root
}

func fatalf(format string, args ...any) {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "dlc"})
	logger.Fatal(fmt.Sprintf(format, args...))
}
