package bridge

import (
	"context"
	"log"
	"strings"
	"time"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
)

// SnapshotView selects one of the three response shapes GetSnapshot offers.
type SnapshotView string

const (
	ViewFull        SnapshotView = "full"
	ViewScriptsOnly SnapshotView = "scriptsOnly"
	ViewNoScripts   SnapshotView = "noScripts"
)

// scriptsCategory is the asset category the scripts-only views pivot on.
const scriptsCategory = "scripts"

// LogQuery is the caller-facing filter for QueryLogs. Severity names and
// field names are validated before the buffer is touched.
type LogQuery struct {
	Severities      []string
	MessageContains string
	StackContains   string
	// After and Before are inclusive unix-millisecond bounds; zero means
	// unbounded.
	After  int64
	Before int64
	Limit  int
	Fields []string
}

// Facade is the externally callable surface: fetch snapshot, execute remote
// command, query logs. Command and validation faults surface synchronously
// as typed errors; transport faults only ever appear as ErrNotConnected on
// a subsequent call.
type Facade struct {
	hub         *Hub
	mirror      *mirror.Mirror
	buffer      *logbuffer.Buffer
	coordinator *Coordinator
	logger      *log.Logger
}

type FacadeConfig struct {
	Hub         *Hub
	Mirror      *mirror.Mirror
	Buffer      *logbuffer.Buffer
	Coordinator *Coordinator
	Logger      *log.Logger
}

func NewFacade(cfg FacadeConfig) *Facade {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Facade{
		hub:         cfg.Hub,
		mirror:      cfg.Mirror,
		buffer:      cfg.Buffer,
		coordinator: cfg.Coordinator,
		logger:      logger,
	}
}

// GetSnapshot returns the mirrored host state narrowed to the given view.
func (f *Facade) GetSnapshot(view SnapshotView) (mirror.Snapshot, error) {
	var mirrorView mirror.View
	switch view {
	case ViewFull, "":
		mirrorView = mirror.ViewFull()
	case ViewScriptsOnly:
		mirrorView = mirror.ViewCategory(scriptsCategory)
	case ViewNoScripts:
		mirrorView = mirror.ViewExcludingCategory(scriptsCategory)
	default:
		return mirror.Snapshot{}, validationErrorf("unknown snapshot view %q", view)
	}

	if !f.hub.Connected() {
		return mirror.Snapshot{}, ErrNotConnected
	}
	snap, ok := f.mirror.Read(mirrorView)
	if !ok {
		return mirror.Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

// ExecuteCommand runs a code fragment in the host's execution context.
func (f *Facade) ExecuteCommand(ctx context.Context, code string) (Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return Outcome{}, validationErrorf("code fragment must not be empty")
	}
	return f.coordinator.Execute(ctx, code)
}

// QueryLogs filters the ring buffer and projects the matches down to the
// requested fields. The read never mutates the buffer and is idempotent
// across repeated calls with an unchanged buffer.
func (f *Facade) QueryLogs(query LogQuery) ([]map[string]any, error) {
	filter := logbuffer.Filter{
		MessageContains: query.MessageContains,
		StackContains:   query.StackContains,
		Limit:           query.Limit,
	}
	if query.Limit < 0 {
		return nil, validationErrorf("limit must not be negative")
	}
	for _, name := range query.Severities {
		severity, err := logbuffer.ParseSeverity(name)
		if err != nil {
			return nil, validationErrorf("%v", err)
		}
		filter.Severities = append(filter.Severities, severity)
	}
	if query.After > 0 {
		filter.After = time.UnixMilli(query.After)
	}
	if query.Before > 0 {
		filter.Before = time.UnixMilli(query.Before)
	}

	matched := f.buffer.Query(filter)
	projected, err := logbuffer.Project(matched, query.Fields)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}
	return projected, nil
}
