// Package logbuffer stores host telemetry events in a bounded ring with
// strict oldest-first eviction and a pure filtered query surface.
package logbuffer

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 1000

// Severity classifies a log event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a wire severity string to its enum value.
func ParseSeverity(value string) (Severity, error) {
	switch value {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "fatal":
		return SeverityFatal, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", value)
	}
}

// Event is one telemetry entry. Immutable once constructed; the buffer owns
// it from insertion until eviction. Seq is assigned by the buffer and grows
// monotonically with insertion order.
type Event struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"timestamp"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Stack    string    `json:"stack,omitempty"`
}

// Buffer is a fixed-capacity ordered store of events. Insertion beyond
// capacity evicts the oldest entry first, preserving the relative order of
// the survivors. All methods are safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	start    int
	count    int
	nextSeq  uint64
}

// New creates a buffer with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		events:   make([]Event, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

// Insert appends an event, evicting the oldest entry when the buffer is
// full. It assigns the event's sequence number and returns the stored event
// together with whether an eviction occurred.
func (b *Buffer) Insert(event Event) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	event.Seq = b.nextSeq
	b.nextSeq++

	evicted := false
	if b.count == b.capacity {
		b.start = (b.start + 1) % b.capacity
		b.count--
		evicted = true
	}
	b.events[(b.start+b.count)%b.capacity] = event
	b.count++
	return event, evicted
}

// Len reports the number of retained events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap reports the configured capacity bound.
func (b *Buffer) Cap() int {
	return b.capacity
}

// LastSeq returns the sequence number of the most recently inserted event,
// or zero if nothing has been inserted yet.
func (b *Buffer) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextSeq - 1
}

// Events returns a copy of the retained events in insertion order.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLocked()
}

// EventsSince returns the retained events whose sequence number is strictly
// greater than seq, in insertion order.
func (b *Buffer) EventsSince(seq uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.copyLocked()
	for i, event := range all {
		if event.Seq > seq {
			return all[i:]
		}
	}
	return nil
}

func (b *Buffer) copyLocked() []Event {
	out := make([]Event, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.events[(b.start+i)%b.capacity]
	}
	return out
}
