// Package bridge implements the control side of the protocol: ownership of
// the single host connection, frame routing, command correlation, and the
// externally callable query façade.
package bridge

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scenebridge/internal/proto"
	"scenebridge/internal/telemetry"
)

const writeWait = 10 * time.Second

// Hub owns the single host connection. The design assumes exactly one host
// at a time; a second attachment replaces the first, and the replaced
// connection is treated as a disconnect.
type Hub struct {
	mu       sync.Mutex
	current  *hostConn
	logger   *log.Logger
	metrics  *telemetry.Metrics
	onDetach func()
}

// hostConn serializes writes to one websocket connection.
type hostConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type HubConfig struct {
	Logger  *log.Logger
	Metrics *telemetry.Metrics
}

func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger, metrics: cfg.Metrics}
}

// OnDetach registers a hook fired whenever an attached connection is lost
// or replaced. The coordinator uses it to fail an in-flight command.
func (h *Hub) OnDetach(hook func()) {
	h.mu.Lock()
	h.onDetach = hook
	h.mu.Unlock()
}

// Attach makes conn the active host connection, closing and detaching any
// previous one. Returns true when an existing connection was replaced.
func (h *Hub) Attach(conn *websocket.Conn) bool {
	h.mu.Lock()
	previous := h.current
	h.current = &hostConn{conn: conn}
	hook := h.onDetach
	h.mu.Unlock()

	h.metrics.HostAttached(true)
	if previous == nil {
		return false
	}
	h.logger.Printf("replacing existing host connection")
	previous.conn.Close()
	if hook != nil {
		hook()
	}
	return true
}

// Detach clears the active connection if conn is still the one attached.
// Stale detaches from a replaced connection's read loop are ignored.
func (h *Hub) Detach(conn *websocket.Conn) {
	h.mu.Lock()
	if h.current == nil || h.current.conn != conn {
		h.mu.Unlock()
		return
	}
	current := h.current
	h.current = nil
	hook := h.onDetach
	h.mu.Unlock()

	h.metrics.HostAttached(false)
	current.conn.Close()
	if hook != nil {
		hook()
	}
}

// Connected reports whether a host connection is attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// Send encodes and transmits one frame to the attached host. Write errors
// detach the connection so the caller observes the disconnect on its next
// operation rather than a wedged transport.
func (h *Hub) Send(frameType string, payload any) error {
	h.mu.Lock()
	current := h.current
	h.mu.Unlock()
	if current == nil {
		return ErrNotConnected
	}

	data, err := proto.EncodeFrame(frameType, payload)
	if err != nil {
		return err
	}

	current.mu.Lock()
	current.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = current.conn.WriteMessage(websocket.TextMessage, data)
	current.mu.Unlock()
	if err != nil {
		h.logger.Printf("failed to send %s frame: %v", frameType, err)
		h.Detach(current.conn)
		return err
	}
	return nil
}
