package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	"scenebridge/internal/proto"
)

type facadeFixture struct {
	facade    *Facade
	hub       *Hub
	mirror    *mirror.Mirror
	buffer    *logbuffer.Buffer
	transport *fakeTransport
}

func newFacadeFixture() *facadeFixture {
	hub := NewHub(HubConfig{})
	transport := newFakeTransport()
	buffer := logbuffer.New(10)
	state := mirror.New()
	coordinator := newTestCoordinator(transport, buffer, time.Second)
	facade := NewFacade(FacadeConfig{
		Hub:         hub,
		Mirror:      state,
		Buffer:      buffer,
		Coordinator: coordinator,
	})
	return &facadeFixture{
		facade:    facade,
		hub:       hub,
		mirror:    state,
		buffer:    buffer,
		transport: transport,
	}
}

// attachHost marks the hub connected without real network I/O. The conn is
// never written to or closed by these tests.
func (f *facadeFixture) attachHost() {
	f.hub.Attach(&websocket.Conn{})
}

func TestGetSnapshotValidatesViewFirst(t *testing.T) {
	f := newFacadeFixture()

	// Even with no host attached, a bad view is the caller's fault.
	if _, err := f.facade.GetSnapshot("sideways"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetSnapshotRequiresConnection(t *testing.T) {
	f := newFacadeFixture()

	if _, err := f.facade.GetSnapshot(ViewFull); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestGetSnapshotBeforeFirstPublish(t *testing.T) {
	f := newFacadeFixture()
	f.attachHost()

	if _, err := f.facade.GetSnapshot(ViewFull); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestGetSnapshotViews(t *testing.T) {
	f := newFacadeFixture()
	f.attachHost()
	f.mirror.Publish(mirror.Snapshot{
		RunMode: mirror.RunModeStopped,
		Assets: map[string][]string{
			"scripts":  {"Assets/Foo.script"},
			"textures": {"Assets/grass.png"},
		},
	})

	full, err := f.facade.GetSnapshot(ViewFull)
	if err != nil {
		t.Fatalf("full view failed: %v", err)
	}
	if len(full.Assets) != 2 {
		t.Fatalf("full view narrowed assets: %+v", full.Assets)
	}

	scripts, err := f.facade.GetSnapshot(ViewScriptsOnly)
	if err != nil {
		t.Fatalf("scripts view failed: %v", err)
	}
	if len(scripts.Assets) != 1 || scripts.Assets["scripts"][0] != "Assets/Foo.script" {
		t.Fatalf("scripts view mismatch: %+v", scripts.Assets)
	}

	rest, err := f.facade.GetSnapshot(ViewNoScripts)
	if err != nil {
		t.Fatalf("no-scripts view failed: %v", err)
	}
	if _, present := rest.Assets["scripts"]; present {
		t.Fatalf("no-scripts view kept scripts: %+v", rest.Assets)
	}

	// An empty view name means full.
	if _, err := f.facade.GetSnapshot(""); err != nil {
		t.Fatalf("default view failed: %v", err)
	}
}

func TestExecuteCommandRejectsEmptyCode(t *testing.T) {
	f := newFacadeFixture()
	f.attachHost()

	for _, code := range []string{"", "   ", "\n\t"} {
		if _, err := f.facade.ExecuteCommand(context.Background(), code); !IsValidation(err) {
			t.Fatalf("code %q: expected validation error, got %v", code, err)
		}
	}
	select {
	case cmd := <-f.transport.frames:
		t.Fatalf("rejected code reached the transport: %+v", cmd)
	default:
	}
}

func TestExecuteCommandDispatches(t *testing.T) {
	f := newFacadeFixture()
	f.attachHost()

	done := make(chan executeResult, 1)
	go func() {
		outcome, err := f.facade.ExecuteCommand(context.Background(), "scene.dump()")
		done <- executeResult{outcome: outcome, err: err}
	}()

	cmd := waitForFrame(t, f.transport)
	f.facade.coordinator.Resolve(proto.CommandResult{ID: cmd.ID, Status: proto.StatusOK, Result: "dumped"})

	res := waitForResult(t, done)
	if res.err != nil || res.outcome.Result != "dumped" {
		t.Fatalf("execute through the facade failed: %+v", res)
	}
}

func TestQueryLogsValidation(t *testing.T) {
	f := newFacadeFixture()

	if _, err := f.facade.QueryLogs(LogQuery{Limit: -1}); !IsValidation(err) {
		t.Fatalf("negative limit accepted: %v", err)
	}
	if _, err := f.facade.QueryLogs(LogQuery{Severities: []string{"critical"}}); !IsValidation(err) {
		t.Fatalf("unknown severity accepted: %v", err)
	}
	if _, err := f.facade.QueryLogs(LogQuery{Fields: []string{"color"}}); !IsValidation(err) {
		t.Fatalf("unknown field accepted: %v", err)
	}
}

func TestQueryLogsFiltersAndProjects(t *testing.T) {
	f := newFacadeFixture()
	f.buffer.Insert(logbuffer.Event{Message: "boot", Severity: logbuffer.SeverityInfo})
	f.buffer.Insert(logbuffer.Event{Message: "leak detected", Severity: logbuffer.SeverityWarning})
	f.buffer.Insert(logbuffer.Event{Message: "crash", Severity: logbuffer.SeverityError})

	rows, err := f.facade.QueryLogs(LogQuery{
		Severities: []string{"warning", "error"},
		Fields:     []string{logbuffer.FieldMessage},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][logbuffer.FieldMessage] != "leak detected" || rows[1][logbuffer.FieldMessage] != "crash" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if _, present := rows[0][logbuffer.FieldSeverity]; present {
		t.Fatalf("projection kept an unselected field: %+v", rows[0])
	}
}

func TestQueryLogsWorksWhileDisconnected(t *testing.T) {
	f := newFacadeFixture()
	f.buffer.Insert(logbuffer.Event{Message: "offline entry"})

	rows, err := f.facade.QueryLogs(LogQuery{})
	if err != nil {
		t.Fatalf("query failed while disconnected: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the buffered entry, got %+v", rows)
	}
}
