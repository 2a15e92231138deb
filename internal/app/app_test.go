package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenebridge/internal/config"
	"scenebridge/internal/logbuffer"
)

func TestBuildSinksConsoleUsesGivenWriter(t *testing.T) {
	var console bytes.Buffer
	sinks, closeSinks, err := buildSinks(config.Config{}, &console)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer closeSinks()

	if len(sinks) != 1 {
		t.Fatalf("expected only the console sink, got %d", len(sinks))
	}
	if err := sinks[0].Write(logbuffer.Event{Severity: logbuffer.SeverityError, Message: "kaboom"}); err != nil {
		t.Fatalf("console write failed: %v", err)
	}
	if !strings.Contains(console.String(), "kaboom") {
		t.Fatalf("event missing from console writer: %q", console.String())
	}
}

func TestBuildSinksAddsFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	var console bytes.Buffer

	sinks, closeSinks, err := buildSinks(config.Config{LogSinkPath: path}, &console)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(sinks) != 2 {
		t.Fatalf("expected console and file sinks, got %d", len(sinks))
	}

	if err := sinks[1].Write(logbuffer.Event{Severity: logbuffer.SeverityInfo, Message: "persisted"}); err != nil {
		t.Fatalf("file write failed: %v", err)
	}
	closeSinks()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sink file: %v", err)
	}
	if !strings.Contains(string(data), "persisted") {
		t.Fatalf("event missing from sink file: %q", data)
	}
}

func TestBuildSinksRejectsUnwritablePath(t *testing.T) {
	if _, _, err := buildSinks(config.Config{LogSinkPath: filepath.Join(t.TempDir(), "absent", "events.ndjson")}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unwritable path to error")
	}
}
