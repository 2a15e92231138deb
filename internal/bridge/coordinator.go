package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/proto"
	"scenebridge/internal/telemetry"
)

// DefaultCommandTimeout bounds how long Execute waits for a result frame.
const DefaultCommandTimeout = 5000 * time.Millisecond

// Transport is the outbound half of the bridge the coordinator dispatches
// through. *Hub satisfies it.
type Transport interface {
	Connected() bool
	Send(frameType string, payload any) error
}

// Outcome is a successful remote execution.
type Outcome struct {
	// Result is the value reported by the host's execution context.
	Result string
	// Logs are the buffer entries inserted during the execution window
	// whose message carries the diagnostic tag prefix.
	Logs []logbuffer.Event
	// Elapsed is the time between dispatch and resolution.
	Elapsed time.Duration
}

// pendingCommand occupies the coordinator's single in-flight slot.
type pendingCommand struct {
	id       string
	issuedAt time.Time
	sinceSeq uint64
	done     chan resolution
}

type resolution struct {
	outcome Outcome
	err     error
}

// Coordinator correlates at most one in-flight remote execution with its
// eventual result. Concurrent Execute calls are rejected, not queued: the
// host's execution context cannot safely interleave two fragments.
type Coordinator struct {
	mu      sync.Mutex
	pending *pendingCommand

	transport Transport
	buffer    *logbuffer.Buffer
	timeout   time.Duration
	logger    *log.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
}

type CoordinatorConfig struct {
	Transport Transport
	Buffer    *logbuffer.Buffer
	// Timeout defaults to DefaultCommandTimeout when non-positive.
	Timeout time.Duration
	Logger  *log.Logger
	Metrics *telemetry.Metrics
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Coordinator{
		transport: cfg.Transport,
		buffer:    cfg.Buffer,
		timeout:   timeout,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
}

// Execute dispatches a code fragment to the host and waits for the first of
// the result frame or the timeout. The losing outcome is discarded without
// effect, and the pending slot is clear on every return path.
func (c *Coordinator) Execute(ctx context.Context, code string) (Outcome, error) {
	if !c.transport.Connected() {
		c.metrics.CommandFinished(telemetry.CommandRejected)
		return Outcome{}, ErrNotConnected
	}

	pending := &pendingCommand{
		id:       uuid.NewString(),
		issuedAt: c.now(),
		sinceSeq: c.buffer.LastSeq(),
		done:     make(chan resolution, 1),
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		c.metrics.CommandFinished(telemetry.CommandRejected)
		return Outcome{}, ErrAlreadyInFlight
	}
	c.pending = pending
	c.mu.Unlock()

	frame := proto.ExecuteCommand{
		ID:       pending.id,
		Code:     code,
		IssuedAt: pending.issuedAt.UnixMilli(),
	}
	if err := c.transport.Send(proto.TypeExecuteCommand, frame); err != nil {
		c.clear(pending)
		c.metrics.CommandFinished(telemetry.CommandTransport)
		return Outcome{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-pending.done:
		c.observe(res.err)
		return res.outcome, res.err
	case <-timer.C:
		if c.clear(pending) {
			c.metrics.CommandFinished(telemetry.CommandTimeout)
			return Outcome{}, ErrTimeout
		}
		// Resolved between the timer firing and the slot check: the
		// result won the race, take it.
		res := <-pending.done
		c.observe(res.err)
		return res.outcome, res.err
	case <-ctx.Done():
		if c.clear(pending) {
			c.metrics.CommandFinished(telemetry.CommandRejected)
			return Outcome{}, ctx.Err()
		}
		res := <-pending.done
		c.observe(res.err)
		return res.outcome, res.err
	}
}

// Resolve completes the pending command matching the result frame's ID.
// Stale or duplicate results are discarded silently per the protocol.
func (c *Coordinator) Resolve(result proto.CommandResult) {
	c.mu.Lock()
	pending := c.pending
	if pending == nil || pending.id != result.ID {
		c.mu.Unlock()
		c.logger.Printf("discarding stale command result id=%s", result.ID)
		return
	}
	c.pending = nil
	c.mu.Unlock()

	res := resolution{}
	switch result.Status {
	case proto.StatusOK:
		res.outcome = Outcome{
			Result:  result.Result,
			Logs:    c.capturedLogs(pending.sinceSeq),
			Elapsed: c.now().Sub(pending.issuedAt),
		}
	case proto.StatusCompileError:
		res.err = fmt.Errorf("%w: %s", ErrRemoteCompile, result.Error)
	case proto.StatusRuntimeError:
		res.err = fmt.Errorf("%w: %s", ErrRemoteRuntime, result.Error)
	}
	pending.done <- res
}

// FailPending resolves the in-flight command, if any, with a transport
// error. Called on host detach so a dropped connection never leaves the
// caller waiting. Resolution happens at most once.
func (c *Coordinator) FailPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if pending == nil {
		return
	}
	pending.done <- resolution{err: ErrTransport}
}

// InFlight reports whether a command currently occupies the slot.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// clear removes pending from the slot if it still occupies it, reporting
// whether this call performed the removal.
func (c *Coordinator) clear(pending *pendingCommand) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != pending {
		return false
	}
	c.pending = nil
	return true
}

// capturedLogs returns the diagnostic-tagged entries inserted after the
// command was issued — the execution window only, not the whole buffer.
func (c *Coordinator) capturedLogs(sinceSeq uint64) []logbuffer.Event {
	window := c.buffer.EventsSince(sinceSeq)
	captured := make([]logbuffer.Event, 0, len(window))
	for _, event := range window {
		if strings.HasPrefix(event.Message, proto.DiagnosticTag) {
			captured = append(captured, event)
		}
	}
	return captured
}

func (c *Coordinator) observe(err error) {
	switch {
	case err == nil:
		c.metrics.CommandFinished(telemetry.CommandOK)
	case errors.Is(err, ErrRemoteCompile):
		c.metrics.CommandFinished(telemetry.CommandCompileError)
	case errors.Is(err, ErrRemoteRuntime):
		c.metrics.CommandFinished(telemetry.CommandRuntimeError)
	default:
		c.metrics.CommandFinished(telemetry.CommandTransport)
	}
}
