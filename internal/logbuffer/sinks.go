package logbuffer

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"
)

// Sink receives every event accepted by the buffer. Sinks are fan-out
// observers; a failing sink never blocks insertion.
type Sink interface {
	Write(Event) error
	Close() error
}

// ConsoleSink renders events as single lines on a standard logger.
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event Event) error {
	if s.logger == nil {
		return nil
	}
	if event.Stack != "" {
		s.logger.Printf("[%s] %s stack=%q", event.Severity, event.Message, event.Stack)
		return nil
	}
	s.logger.Printf("[%s] %s", event.Severity, event.Message)
	return nil
}

func (s *ConsoleSink) Close() error { return nil }

// JSONSink emits newline-delimited structured events.
type JSONSink struct {
	mu      sync.Mutex
	writer  *bufio.Writer
	encoder *json.Encoder
	closer  io.Closer
}

// NewJSONSink constructs a sink writing NDJSON to w. If w is also an
// io.Closer it is closed by Close.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSONSink{writer: buf, encoder: json.NewEncoder(buf)}
	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}
	return sink
}

func (s *JSONSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wire := map[string]any{
		"seq":      event.Seq,
		"time":     event.Time.Format(time.RFC3339Nano),
		"severity": event.Severity.String(),
		"message":  event.Message,
		"stack":    event.Stack,
	}
	if err := s.encoder.Encode(wire); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
