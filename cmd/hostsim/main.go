// Package main is a stand-in host process used for manual testing: it
// connects to the control daemon, publishes a scripted scene, and answers
// execution requests with a toy evaluator.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scenebridge/internal/config"
	"scenebridge/internal/host"
	"scenebridge/internal/mirror"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		endpoint   string
	)

	cmd := &cobra.Command{
		Use:           "hostsim",
		Short:         "Simulated host for exercising the control daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if endpoint == "" {
				endpoint = cfg.HostEndpoint
			}

			logger := log.New(os.Stderr, "hostsim ", log.LstdFlags)
			agent := host.NewAgent(host.AgentConfig{
				Endpoint:          endpoint,
				Source:            &scriptedScene{},
				Executor:          &toyExecutor{},
				DialTimeout:       cfg.DialTimeout(),
				ReconnectInterval: cfg.ReconnectInterval(),
				PublishInterval:   cfg.SnapshotInterval(),
				Logger:            logger,
			})

			return runErr(agent.Run(ctx))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML settings file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "control daemon websocket URL (overrides config)")

	return cmd
}

// runErr filters the expected shutdown cause: a signal-cancelled run is a
// clean exit, anything else propagates.
func runErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scriptedScene cycles a tiny scene so the mirrored state visibly changes
// between snapshots.
type scriptedScene struct {
	tick atomic.Uint64
}

func (s *scriptedScene) Snapshot() mirror.Snapshot {
	tick := s.tick.Add(1)
	mode := mirror.RunModeStopped
	if tick%2 == 0 {
		mode = mirror.RunModeRunning
	}
	return mirror.Snapshot{
		ActiveEntities:   []string{"camera", "player", fmt.Sprintf("npc-%d", tick%3)},
		SelectedEntities: []string{"player"},
		RunMode:          mode,
		SceneTree: []mirror.SceneNode{
			{Name: "root", Children: []mirror.SceneNode{
				{Name: "player", Tags: []string{"actor"}},
				{Name: "camera"},
			}},
		},
		Assets: map[string][]string{
			"scripts":  {"Assets/Player.script", "Packages/Vendor/Tooling.script"},
			"textures": {"Assets/grass.png"},
		},
		CapturedAt: time.Now(),
	}
}

// toyExecutor pretends to run code: fragments starting with "bad:" fail to
// compile, fragments starting with "boom:" raise at runtime, everything
// else echoes.
type toyExecutor struct{}

func (toyExecutor) Execute(_ context.Context, code string) (host.ExecResult, error) {
	switch {
	case strings.HasPrefix(code, "bad:"):
		return host.ExecResult{}, &host.CompileError{Message: "unexpected token near " + strings.TrimPrefix(code, "bad:")}
	case strings.HasPrefix(code, "boom:"):
		return host.ExecResult{}, &host.RuntimeError{
			Message: "panic: " + strings.TrimPrefix(code, "boom:"),
			Logs:    []string{"evaluating fragment", "raising"},
		}
	default:
		return host.ExecResult{
			Value: "echo: " + code,
			Logs:  []string{"evaluated " + fmt.Sprint(len(code)) + " bytes"},
		}, nil
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
