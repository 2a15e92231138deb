// Package proto defines the wire protocol spoken between the host agent and
// the control daemon: a JSON envelope with a type discriminant, one object
// per websocket text frame.
package proto

import (
	"encoding/json"
	"fmt"

	"scenebridge/internal/mirror"
)

// Version tracks the wire-protocol revision expected by both peers.
const Version = 1

// Frame type discriminants.
const (
	TypeSnapshotUpdate = "snapshotUpdate"
	TypeLogEvent       = "logEvent"
	TypeExecuteCommand = "executeCommand"
	TypeCommandResult  = "commandResult"
)

// DiagnosticTag prefixes log lines emitted by the host's execution context.
// The coordinator uses it to separate command output from ordinary host
// telemetry when assembling an execution outcome.
const DiagnosticTag = "[scenebridge]"

// Command result status values.
const (
	StatusOK           = "ok"
	StatusCompileError = "compileError"
	StatusRuntimeError = "runtimeError"
)

// Envelope wraps every frame on the wire.
type Envelope struct {
	Ver  int             `json:"ver,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses a raw frame and validates the protocol version.
// A missing ver field is treated as the current version.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, err
	}
	if env.Ver == 0 {
		env.Ver = Version
	}
	if env.Ver != Version {
		return env, fmt.Errorf("unsupported protocol version %d", env.Ver)
	}
	if env.Type == "" {
		return env, fmt.Errorf("frame missing type discriminant")
	}
	return env, nil
}

// EncodeFrame renders a complete envelope for the given discriminant.
func EncodeFrame(frameType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", frameType, err)
	}
	return json.Marshal(Envelope{Ver: Version, Type: frameType, Data: raw})
}

// SnapshotUpdate carries a full replacement of the host's observable state.
type SnapshotUpdate struct {
	Snapshot mirror.Snapshot `json:"snapshot"`
}

// DecodeSnapshotUpdate parses a snapshotUpdate payload.
func DecodeSnapshotUpdate(data []byte) (SnapshotUpdate, error) {
	var msg SnapshotUpdate
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode snapshotUpdate: %w", err)
	}
	return msg, nil
}

// LogEvent carries one host-side log line.
type LogEvent struct {
	Message   string `json:"message"`
	Stack     string `json:"stack,omitempty"`
	Severity  string `json:"severity"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds, host wall clock
}

// DecodeLogEvent parses a logEvent payload.
func DecodeLogEvent(data []byte) (LogEvent, error) {
	var msg LogEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode logEvent: %w", err)
	}
	if msg.Message == "" {
		return msg, fmt.Errorf("decode logEvent: empty message")
	}
	return msg, nil
}

// ExecuteCommand asks the host to run a code fragment in its execution
// context. ID correlates the eventual result frame.
type ExecuteCommand struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	IssuedAt int64  `json:"issuedAt"` // unix milliseconds
}

// DecodeExecuteCommand parses an executeCommand payload.
func DecodeExecuteCommand(data []byte) (ExecuteCommand, error) {
	var msg ExecuteCommand
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode executeCommand: %w", err)
	}
	if msg.ID == "" {
		return msg, fmt.Errorf("decode executeCommand: missing id")
	}
	return msg, nil
}

// CommandResult reports the outcome of an executeCommand frame.
type CommandResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DecodeCommandResult parses a commandResult payload.
func DecodeCommandResult(data []byte) (CommandResult, error) {
	var msg CommandResult
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode commandResult: %w", err)
	}
	if msg.ID == "" {
		return msg, fmt.Errorf("decode commandResult: missing id")
	}
	switch msg.Status {
	case StatusOK, StatusCompileError, StatusRuntimeError:
	default:
		return msg, fmt.Errorf("decode commandResult: unknown status %q", msg.Status)
	}
	return msg, nil
}
