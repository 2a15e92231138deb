// Package app assembles and runs the control daemon: log buffer, state
// mirror, host hub, command coordinator, frame router, HTTP surface, and
// the optional MCP stdio tool surface.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"scenebridge/internal/bridge"
	"scenebridge/internal/config"
	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	servernet "scenebridge/internal/net"
	"scenebridge/internal/net/ws"
	"scenebridge/internal/telemetry"
)

type Config struct {
	// ConfigPath is the optional YAML settings file.
	ConfigPath string
	Logger     *log.Logger
}

// buildSinks assembles the log fan-out: a console sink on the given writer
// plus, when configured, an NDJSON file sink.
func buildSinks(cfg config.Config, console io.Writer) ([]logbuffer.Sink, func(), error) {
	sinks := []logbuffer.Sink{logbuffer.NewConsoleSink(console)}
	closeSinks := func() {}
	if cfg.LogSinkPath != "" {
		file, err := os.OpenFile(cfg.LogSinkPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log sink %s: %w", cfg.LogSinkPath, err)
		}
		sink := logbuffer.NewJSONSink(file)
		sinks = append(sinks, sink)
		closeSinks = func() { sink.Close() }
	}
	return sinks, closeSinks, nil
}

func Run(ctx context.Context, appCfg Config) error {
	logger := appCfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	buffer := logbuffer.New(cfg.BufferCapacity)
	state := mirror.New()

	// The MCP stdio transport owns stdout; every human-readable stream,
	// the console sink included, goes to stderr.
	sinks, closeSinks, err := buildSinks(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeSinks()

	hub := bridge.NewHub(bridge.HubConfig{Logger: logger, Metrics: metrics})

	coordinator := bridge.NewCoordinator(bridge.CoordinatorConfig{
		Transport: hub,
		Buffer:    buffer,
		Timeout:   cfg.CommandTimeout(),
		Logger:    logger,
		Metrics:   metrics,
	})
	hub.OnDetach(coordinator.FailPending)

	router := bridge.NewRouter(bridge.RouterConfig{
		Mirror:      state,
		Buffer:      buffer,
		Coordinator: coordinator,
		Sinks:       sinks,
		Logger:      logger,
		Metrics:     metrics,
	})

	facade := bridge.NewFacade(bridge.FacadeConfig{
		Hub:         hub,
		Mirror:      state,
		Buffer:      buffer,
		Coordinator: coordinator,
		Logger:      logger,
	})

	wsHandler := ws.NewHandler(hub, router, ws.HandlerConfig{Logger: logger})
	handler := servernet.NewHTTPHandler(hub, buffer, state, wsHandler, servernet.HTTPHandlerConfig{
		Metrics: metrics,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	errCh := make(chan error, 2)

	go func() {
		logger.Printf("control daemon listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	if !cfg.DisableMCP {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "scenebridge", Version: "1.0.0"}, nil)
		facade.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("mcp server failed: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
