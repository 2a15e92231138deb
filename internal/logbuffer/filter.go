package logbuffer

import (
	"fmt"
	"strings"
	"time"
)

// Filter selects a subset of the buffer. Zero values mean "no constraint".
// Filtering is a pure read; it never mutates the buffer.
type Filter struct {
	// Severities keeps only events with a matching severity. Empty keeps all.
	Severities []Severity
	// MessageContains keeps events whose message contains the substring
	// (case-sensitive).
	MessageContains string
	// StackContains keeps events whose stack/context text contains the
	// substring (case-sensitive).
	StackContains string
	// After and Before bound the wall-clock timestamp, inclusive.
	After  time.Time
	Before time.Time
	// Limit keeps only the most recent N matches after all other filters
	// applied — the tail of insertion order, never re-sorted.
	Limit int
}

// Query returns the retained events matching the filter, in insertion order.
func (b *Buffer) Query(filter Filter) []Event {
	all := b.Events()
	matched := make([]Event, 0, len(all))
	for _, event := range all {
		if !filter.matches(event) {
			continue
		}
		matched = append(matched, event)
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[len(matched)-filter.Limit:]
	}
	return matched
}

func (f Filter) matches(event Event) bool {
	if len(f.Severities) > 0 {
		found := false
		for _, sev := range f.Severities {
			if event.Severity == sev {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MessageContains != "" && !strings.Contains(event.Message, f.MessageContains) {
		return false
	}
	if f.StackContains != "" && !strings.Contains(event.Stack, f.StackContains) {
		return false
	}
	if !f.After.IsZero() && event.Time.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && event.Time.After(f.Before) {
		return false
	}
	return true
}

// Projectable field names accepted by Project.
const (
	FieldMessage   = "message"
	FieldStack     = "stack"
	FieldSeverity  = "severity"
	FieldTimestamp = "timestamp"
)

// Project reduces events to only the named fields. An empty field list
// keeps everything. Unknown field names are rejected so callers surface a
// validation error instead of silently dropping data.
func Project(events []Event, fields []string) ([]map[string]any, error) {
	selected := map[string]bool{}
	if len(fields) == 0 {
		selected[FieldMessage] = true
		selected[FieldStack] = true
		selected[FieldSeverity] = true
		selected[FieldTimestamp] = true
	}
	for _, field := range fields {
		switch field {
		case FieldMessage, FieldStack, FieldSeverity, FieldTimestamp:
			selected[field] = true
		default:
			return nil, fmt.Errorf("unknown log field %q", field)
		}
	}

	out := make([]map[string]any, 0, len(events))
	for _, event := range events {
		entry := make(map[string]any, len(selected))
		if selected[FieldMessage] {
			entry[FieldMessage] = event.Message
		}
		if selected[FieldStack] {
			entry[FieldStack] = event.Stack
		}
		if selected[FieldSeverity] {
			entry[FieldSeverity] = event.Severity.String()
		}
		if selected[FieldTimestamp] {
			entry[FieldTimestamp] = event.Time.UnixMilli()
		}
		out = append(out, entry)
	}
	return out, nil
}
