// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dlctest/disposables/internal/supervisor"
	"github.com/dlctest/disposables/internal/wire"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "run <entrypoint> [args...]",
		Short:              "Spawn the given entrypoint and supervise it",
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervised(args)
		},
	}
	return cmd
}

func runSupervised(argv []string) error {
	raw := os.Getenv(wire.SetupEnvVar)
	if raw == "" {
		return fmt.Errorf("dlc run: %s is not set", wire.SetupEnvVar)
	}
	setup, err := wire.DecodeSetupMessage(raw)
	if err != nil {
		return fmt.Errorf("dlc run: decode %s: %w", wire.SetupEnvVar, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "dlc"})
	driver := supervisor.NewDriver(logger)
	sink := supervisor.NewEventSink(logger)

	go supervisor.Run(ctx, argv, setup, driver, sink)

	return sink.ListenAndServe(ctx, setup.Port)
}
