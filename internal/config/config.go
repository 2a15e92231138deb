// Package config loads daemon and host-agent settings from an optional
// YAML file, fills defaults, and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment override keys.
const (
	envListenAddr     = "BRIDGE_LISTEN_ADDR"
	envHostEndpoint   = "BRIDGE_HOST_ENDPOINT"
	envBufferCapacity = "BRIDGE_BUFFER_CAPACITY"
	envCommandTimeout = "BRIDGE_COMMAND_TIMEOUT_MS"
	envLogSinkPath    = "BRIDGE_LOG_SINK_PATH"
	envDisableMCP     = "BRIDGE_DISABLE_MCP"
)

// Config is the full settings surface shared by the control daemon and
// the host agent; each binary reads the fields it needs.
type Config struct {
	// ListenAddr is the control daemon's HTTP/websocket bind address.
	ListenAddr string `yaml:"listen_addr"`

	// HostEndpoint is the websocket URL the host agent dials.
	HostEndpoint string `yaml:"host_endpoint"`

	// BufferCapacity is the log ring capacity (default 1000).
	BufferCapacity int `yaml:"buffer_capacity"`

	// CommandTimeoutMS bounds a remote execution round trip.
	CommandTimeoutMS int `yaml:"command_timeout_ms"`

	// SnapshotIntervalMS is the host agent's publication cadence.
	SnapshotIntervalMS int `yaml:"snapshot_interval_ms"`

	// ReconnectIntervalMS is the host agent's reconnect poll cadence.
	ReconnectIntervalMS int `yaml:"reconnect_interval_ms"`

	// DialTimeoutMS bounds a single host agent connection attempt.
	DialTimeoutMS int `yaml:"dial_timeout_ms"`

	// LogSinkPath, when set, mirrors accepted log events to an NDJSON file.
	LogSinkPath string `yaml:"log_sink_path"`

	// DisableMCP turns off the stdio tool surface on the control daemon.
	DisableMCP bool `yaml:"disable_mcp"`
}

func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8571"
	}
	if c.HostEndpoint == "" {
		c.HostEndpoint = "ws://127.0.0.1:8571/ws"
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = 1000
	}
	if c.CommandTimeoutMS <= 0 {
		c.CommandTimeoutMS = 5000
	}
	if c.SnapshotIntervalMS <= 0 {
		c.SnapshotIntervalMS = 1000
	}
	if c.ReconnectIntervalMS <= 0 {
		c.ReconnectIntervalMS = 5000
	}
	if c.DialTimeoutMS <= 0 {
		c.DialTimeoutMS = 5000
	}
}

func (c *Config) applyEnv() {
	if raw := os.Getenv(envListenAddr); raw != "" {
		c.ListenAddr = raw
	}
	if raw := os.Getenv(envHostEndpoint); raw != "" {
		c.HostEndpoint = raw
	}
	if raw := os.Getenv(envBufferCapacity); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			c.BufferCapacity = parsed
		}
	}
	if raw := os.Getenv(envCommandTimeout); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			c.CommandTimeoutMS = parsed
		}
	}
	if raw := os.Getenv(envLogSinkPath); raw != "" {
		c.LogSinkPath = raw
	}
	if os.Getenv(envDisableMCP) == "1" {
		c.DisableMCP = true
	}
}

// Load reads path when non-empty, fills defaults, and applies environment
// overrides. A missing file with an empty path is not an error.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.defaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}

func (c Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

func (c Config) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalMS) * time.Millisecond
}

func (c Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}
