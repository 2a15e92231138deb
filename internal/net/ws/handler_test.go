package ws

import (
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scenebridge/internal/bridge"
	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	"scenebridge/internal/proto"
)

type harness struct {
	server *httptest.Server
	hub    *bridge.Hub
	mirror *mirror.Mirror
	buffer *logbuffer.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	hub := bridge.NewHub(bridge.HubConfig{})
	buffer := logbuffer.New(10)
	state := mirror.New()
	coordinator := bridge.NewCoordinator(bridge.CoordinatorConfig{
		Transport: hub,
		Buffer:    buffer,
	})
	router := bridge.NewRouter(bridge.RouterConfig{
		Mirror:      state,
		Buffer:      buffer,
		Coordinator: coordinator,
	})
	handler := NewHandler(hub, router, HandlerConfig{})

	server := httptest.NewServer(nethttp.HandlerFunc(handler.Handle))
	t.Cleanup(server.Close)

	return &harness{server: server, hub: hub, mirror: state, buffer: buffer}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType string, payload any) {
	t.Helper()
	data, err := proto.EncodeFrame(frameType, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", frameType, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write %s: %v", frameType, err)
	}
}

func TestHandlerAttachesAndRoutes(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	waitFor(t, "host attach", h.hub.Connected)

	sendFrame(t, conn, proto.TypeSnapshotUpdate, proto.SnapshotUpdate{
		Snapshot: mirror.Snapshot{RunMode: mirror.RunModeRunning},
	})
	waitFor(t, "snapshot publication", func() bool {
		_, ok := h.mirror.Read(mirror.ViewFull())
		return ok
	})

	sendFrame(t, conn, proto.TypeLogEvent, proto.LogEvent{Message: "hello", Severity: "info"})
	waitFor(t, "log buffering", func() bool { return h.buffer.Len() == 1 })
}

func TestHandlerSurvivesMalformedFrames(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	waitFor(t, "host attach", h.hub.Connected)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The connection must survive the garbage and keep routing.
	sendFrame(t, conn, proto.TypeLogEvent, proto.LogEvent{Message: "still alive", Severity: "info"})
	waitFor(t, "log buffering after garbage", func() bool { return h.buffer.Len() == 1 })
}

func TestHandlerDetachesOnClose(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	waitFor(t, "host attach", h.hub.Connected)

	conn.Close()
	waitFor(t, "host detach", func() bool { return !h.hub.Connected() })
}

func TestSecondConnectionReplacesFirst(t *testing.T) {
	h := newHarness(t)
	first := h.dial(t)
	waitFor(t, "first attach", h.hub.Connected)

	second := h.dial(t)

	// The replaced connection is closed by the hub; its reads fail.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatalf("replaced connection still readable")
	}

	// The replacement keeps routing.
	sendFrame(t, second, proto.TypeLogEvent, proto.LogEvent{Message: "from replacement", Severity: "info"})
	waitFor(t, "routing on replacement", func() bool { return h.buffer.Len() == 1 })
	if !h.hub.Connected() {
		t.Fatalf("hub lost the replacement connection")
	}
}
