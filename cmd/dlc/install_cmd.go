// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlctest/disposables/internal/supervisor"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <directory>",
		Short: "Copy this binary into the shared volume directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("dlc install: locate own executable: %w", err)
			}
			return supervisor.Install(self, args[0])
		},
	}
}
