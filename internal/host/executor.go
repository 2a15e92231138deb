package host

import (
	"context"
	"errors"
)

// ExecResult is a successful execution: the value the fragment produced and
// the log lines it emitted while running.
type ExecResult struct {
	Value string
	Logs  []string
}

// Executor is the host's opaque code-execution capability: run a fragment,
// return a result or an error, plus captured log lines. Implementations
// wrap whatever scripting surface the host application exposes.
type Executor interface {
	Execute(ctx context.Context, code string) (ExecResult, error)
}

// CompileError reports that the fragment failed to build before running.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return "compile error: " + e.Message }

// RuntimeError reports that the fragment raised during execution.
type RuntimeError struct {
	Message string
	Logs    []string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Message }

// AsCompileError and AsRuntimeError classify executor failures for the
// result frame.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func AsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
