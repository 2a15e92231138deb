package bridge

import (
	"errors"
	"fmt"
)

// Command fault taxonomy surfaced by ExecuteCommand. Transport and protocol
// faults are handled internally and only show up here as their consequence
// (ErrNotConnected on the next call, ErrTransport on a mid-flight drop).
var (
	ErrNotConnected    = errors.New("host is not connected")
	ErrAlreadyInFlight = errors.New("a command is already in flight")
	ErrTimeout         = errors.New("command timed out waiting for the host")
	ErrTransport       = errors.New("connection dropped while the command was in flight")
	ErrRemoteCompile   = errors.New("host reported a compilation failure")
	ErrRemoteRuntime   = errors.New("host reported a runtime failure")
	ErrNoSnapshot      = errors.New("no snapshot has been published yet")
)

// ValidationError reports caller-supplied arguments that fail validation,
// distinct from command faults so the façade can tell "malformed request"
// apart from "peer failed".
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation fault.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
