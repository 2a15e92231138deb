// Package main is the entry point for the scenebridge control daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scenebridge/internal/app"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bridge",
		Short:         "Scenebridge control daemon",
		Long:          "bridge runs the control daemon: it accepts the host's websocket\nconnection, mirrors its state, buffers its logs, and exposes the\nsnapshot/execute/logs operations over MCP and HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())

	return cmd
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// MCP owns stdout; operational logging goes to stderr.
			logger := log.New(os.Stderr, "", log.LstdFlags)
			return app.Run(ctx, app.Config{ConfigPath: configPath, Logger: logger})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML settings file")

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
