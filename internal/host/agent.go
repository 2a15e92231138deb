// Package host implements the host-side connection lifecycle manager: it
// owns the persistent connection to the control endpoint, reconnects on a
// fixed cadence, publishes state snapshots periodically, and answers
// remote execution requests through the Executor capability.
package host

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	"scenebridge/internal/proto"
)

// Lifecycle defaults.
const (
	DefaultDialTimeout       = 5 * time.Second
	DefaultReconnectInterval = 5 * time.Second
	DefaultPublishInterval   = 1000 * time.Millisecond

	writeWait = 10 * time.Second
)

// State is the connection lifecycle state. Exactly one instance per agent,
// mutated only by the agent itself.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateSource supplies the host state published on every snapshot tick.
type StateSource interface {
	Snapshot() mirror.Snapshot
}

type AgentConfig struct {
	// Endpoint is the control daemon's websocket URL.
	Endpoint string
	Source   StateSource
	Executor Executor
	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration
	// ReconnectInterval is the cadence of the background poll that retries
	// while disconnected.
	ReconnectInterval time.Duration
	// PublishInterval is the snapshot publication cadence while connected.
	PublishInterval time.Duration
	Logger          *log.Logger
}

// Agent maintains at most one active connection to the control endpoint.
type Agent struct {
	cfg    AgentConfig
	logger *log.Logger
	state  atomic.Int32

	mu      sync.Mutex
	session *session
}

// session is one connection's lifetime: its writes are serialized and its
// teardown happens exactly once. Teardown cancels the session context, so
// an execution running against a dropped connection is aborted with it.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

func NewAgent(cfg AgentConfig) *Agent {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Agent{cfg: cfg, logger: logger}
}

// State reports the current lifecycle state.
func (a *Agent) State() State {
	return State(a.state.Load())
}

// Run connects immediately, then polls at the reconnect cadence, dialing
// only while disconnected. It blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.connect(ctx)

	ticker := time.NewTicker(a.cfg.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.mu.Lock()
			sess := a.session
			a.mu.Unlock()
			if sess != nil {
				a.teardown(sess)
			}
			return ctx.Err()
		case <-ticker.C:
			a.connect(ctx)
		}
	}
}

// Retry forces a reconnect attempt, equivalent to the poll timer firing.
// It is a no-op while a connection attempt or connection is active.
func (a *Agent) Retry(ctx context.Context) {
	a.connect(ctx)
}

// connect performs one guarded connection attempt. The compare-and-swap is
// the idempotent-connect guard: a second attempt never starts while one is
// connecting or connected.
func (a *Agent) connect(ctx context.Context) {
	if !a.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return
	}

	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.DialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.DialTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, a.cfg.Endpoint, nil)
	if err != nil {
		a.logger.Printf("connect to %s failed: %v", a.cfg.Endpoint, err)
		a.state.Store(int32(StateDisconnected))
		return
	}

	sessCtx, sessCancel := context.WithCancel(ctx)
	sess := &session{conn: conn, done: make(chan struct{}), cancel: sessCancel}
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	a.state.Store(int32(StateConnected))
	a.logger.Printf("connected to %s", a.cfg.Endpoint)

	go a.receiveLoop(sessCtx, sess)
	go a.publishLoop(sessCtx, sess)
}

// teardown closes the session once and returns the agent to Disconnected.
func (a *Agent) teardown(sess *session) {
	sess.once.Do(func() {
		sess.cancel()
		sess.conn.Close()
		close(sess.done)
		a.mu.Lock()
		if a.session == sess {
			a.session = nil
		}
		a.mu.Unlock()
		a.state.Store(int32(StateDisconnected))
		a.logger.Printf("disconnected from %s", a.cfg.Endpoint)
	})
}

func (a *Agent) receiveLoop(ctx context.Context, sess *session) {
	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			a.teardown(sess)
			return
		}

		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			a.logger.Printf("discarding malformed frame: %v", err)
			continue
		}
		switch env.Type {
		case proto.TypeExecuteCommand:
			// Executions run inline so the single execution context
			// never interleaves two fragments.
			a.handleExecute(ctx, sess, env.Data)
		default:
			a.logger.Printf("discarding frame with unknown type %q", env.Type)
		}
	}
}

func (a *Agent) publishLoop(ctx context.Context, sess *session) {
	a.publishSnapshot(sess)

	ticker := time.NewTicker(a.cfg.PublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-ctx.Done():
			a.teardown(sess)
			return
		case <-ticker.C:
			a.publishSnapshot(sess)
		}
	}
}

func (a *Agent) publishSnapshot(sess *session) {
	if a.cfg.Source == nil {
		return
	}
	snap := a.cfg.Source.Snapshot()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	if err := a.send(sess, proto.TypeSnapshotUpdate, proto.SnapshotUpdate{Snapshot: snap}); err != nil {
		a.logger.Printf("snapshot publication failed: %v", err)
	}
}

func (a *Agent) handleExecute(ctx context.Context, sess *session, data []byte) {
	cmd, err := proto.DecodeExecuteCommand(data)
	if err != nil {
		a.logger.Printf("discarding execute request: %v", err)
		return
	}

	result := proto.CommandResult{ID: cmd.ID}
	if a.cfg.Executor == nil {
		result.Status = proto.StatusRuntimeError
		result.Error = "host has no execution capability"
	} else {
		res, execErr := a.cfg.Executor.Execute(ctx, cmd.Code)
		switch {
		case execErr == nil:
			result.Status = proto.StatusOK
			result.Result = res.Value
			a.forwardExecLogs(sess, res.Logs)
		default:
			if ce, ok := AsCompileError(execErr); ok {
				result.Status = proto.StatusCompileError
				result.Error = ce.Message
			} else if re, ok := AsRuntimeError(execErr); ok {
				result.Status = proto.StatusRuntimeError
				result.Error = re.Message
				a.forwardExecLogs(sess, re.Logs)
			} else {
				result.Status = proto.StatusRuntimeError
				result.Error = execErr.Error()
			}
		}
	}

	if err := a.send(sess, proto.TypeCommandResult, result); err != nil {
		a.logger.Printf("command result send failed: %v", err)
	}
}

// forwardExecLogs ships execution-context output as tagged log events so
// the control side can attribute them to the command's window.
func (a *Agent) forwardExecLogs(sess *session, lines []string) {
	for _, line := range lines {
		message := line
		if len(message) < len(proto.DiagnosticTag) || message[:len(proto.DiagnosticTag)] != proto.DiagnosticTag {
			message = proto.DiagnosticTag + " " + message
		}
		event := proto.LogEvent{
			Message:   message,
			Severity:  logbuffer.SeverityInfo.String(),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := a.send(sess, proto.TypeLogEvent, event); err != nil {
			a.logger.Printf("log forward failed: %v", err)
			return
		}
	}
}

// PublishLog forwards a host-originated log line. Returns false when no
// connection is active.
func (a *Agent) PublishLog(severity logbuffer.Severity, message, stack string) bool {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return false
	}
	event := proto.LogEvent{
		Message:   message,
		Stack:     stack,
		Severity:  severity.String(),
		Timestamp: time.Now().UnixMilli(),
	}
	if err := a.send(sess, proto.TypeLogEvent, event); err != nil {
		a.logger.Printf("log publish failed: %v", err)
		return false
	}
	return true
}

func (a *Agent) send(sess *session, frameType string, payload any) error {
	data, err := proto.EncodeFrame(frameType, payload)
	if err != nil {
		return err
	}
	sess.writeMu.Lock()
	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = sess.conn.WriteMessage(websocket.TextMessage, data)
	sess.writeMu.Unlock()
	if err != nil {
		a.teardown(sess)
	}
	return err
}
