package bridge

import (
	"log"
	"time"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	"scenebridge/internal/proto"
	"scenebridge/internal/telemetry"
)

// Router dispatches inbound frames by their type discriminant. It is the
// only mutator of the mirror and the log buffer. Routing never raises to
// the receive loop: one malformed frame must not terminate the connection.
type Router struct {
	mirror      *mirror.Mirror
	buffer      *logbuffer.Buffer
	coordinator *Coordinator
	sinks       []logbuffer.Sink
	logger      *log.Logger
	metrics     *telemetry.Metrics
}

type RouterConfig struct {
	Mirror      *mirror.Mirror
	Buffer      *logbuffer.Buffer
	Coordinator *Coordinator
	// Sinks receive every accepted log event after buffer insertion.
	Sinks   []logbuffer.Sink
	Logger  *log.Logger
	Metrics *telemetry.Metrics
}

func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		mirror:      cfg.Mirror,
		buffer:      cfg.Buffer,
		coordinator: cfg.Coordinator,
		sinks:       cfg.Sinks,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
}

// Route decodes and dispatches one inbound frame.
func (r *Router) Route(payload []byte) {
	env, err := proto.DecodeEnvelope(payload)
	if err != nil {
		r.logger.Printf("discarding malformed frame: %v", err)
		r.metrics.FrameMalformed()
		return
	}

	switch env.Type {
	case proto.TypeSnapshotUpdate:
		r.routeSnapshot(env.Data)
	case proto.TypeLogEvent:
		r.routeLogEvent(env.Data)
	case proto.TypeCommandResult:
		r.routeCommandResult(env.Data)
	default:
		r.logger.Printf("discarding frame with unknown type %q", env.Type)
		r.metrics.FrameUnknown()
	}
}

func (r *Router) routeSnapshot(data []byte) {
	msg, err := proto.DecodeSnapshotUpdate(data)
	if err != nil {
		r.logger.Printf("discarding snapshot update: %v", err)
		r.metrics.FrameMalformed()
		return
	}
	snap := msg.Snapshot
	snap.Assets = mirror.SanitizeAssets(snap.Assets)
	r.mirror.Publish(snap)
	r.metrics.FrameRouted(proto.TypeSnapshotUpdate)
	r.metrics.SnapshotMirrored()
}

func (r *Router) routeLogEvent(data []byte) {
	msg, err := proto.DecodeLogEvent(data)
	if err != nil {
		r.logger.Printf("discarding log event: %v", err)
		r.metrics.FrameMalformed()
		return
	}
	severity, err := logbuffer.ParseSeverity(msg.Severity)
	if err != nil {
		r.logger.Printf("discarding log event: %v", err)
		r.metrics.FrameMalformed()
		return
	}

	event := logbuffer.Event{
		Time:     time.UnixMilli(msg.Timestamp),
		Severity: severity,
		Message:  msg.Message,
		Stack:    msg.Stack,
	}
	if msg.Timestamp == 0 {
		event.Time = time.Now()
	}
	stored, evicted := r.buffer.Insert(event)
	r.metrics.FrameRouted(proto.TypeLogEvent)
	r.metrics.LogEventAccepted(evicted)

	for _, sink := range r.sinks {
		if err := sink.Write(stored); err != nil {
			r.logger.Printf("log sink write failed: %v", err)
		}
	}
}

func (r *Router) routeCommandResult(data []byte) {
	msg, err := proto.DecodeCommandResult(data)
	if err != nil {
		r.logger.Printf("discarding command result: %v", err)
		r.metrics.FrameMalformed()
		return
	}
	r.metrics.FrameRouted(proto.TypeCommandResult)
	r.coordinator.Resolve(msg)
}
