package logbuffer

import (
	"testing"
	"time"
)

func insertMessages(t *testing.T, b *Buffer, messages ...string) {
	t.Helper()
	for _, msg := range messages {
		b.Insert(Event{Message: msg})
	}
}

func TestInsertEvictsOldestFirst(t *testing.T) {
	b := New(3)
	insertMessages(t, b, "a", "b", "c")

	stored, evicted := b.Insert(Event{Message: "d"})
	if !evicted {
		t.Fatalf("expected insert beyond capacity to evict")
	}
	if stored.Seq != 4 {
		t.Fatalf("expected fourth insert to get seq 4, got %d", stored.Seq)
	}

	events := b.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(events))
	}
	for i, want := range []string{"b", "c", "d"} {
		if events[i].Message != want {
			t.Fatalf("event %d: expected message %q, got %q", i, want, events[i].Message)
		}
	}
}

func TestInsertPreservesSurvivorOrder(t *testing.T) {
	b := New(4)
	insertMessages(t, b, "a", "b", "c", "d", "e", "f")

	events := b.Events()
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events out of order: seq %d followed by %d", events[i-1].Seq, events[i].Seq)
		}
	}
}

func TestInsertWithinCapacityDoesNotEvict(t *testing.T) {
	b := New(3)
	if _, evicted := b.Insert(Event{Message: "a"}); evicted {
		t.Fatalf("insert into non-full buffer must not evict")
	}
	if b.Len() != 1 {
		t.Fatalf("expected length 1, got %d", b.Len())
	}
}

func TestDefaultCapacityFallback(t *testing.T) {
	b := New(0)
	if b.Cap() != DefaultCapacity {
		t.Fatalf("expected capacity %d, got %d", DefaultCapacity, b.Cap())
	}
}

func TestEventsSinceIsStrictlyGreater(t *testing.T) {
	b := New(10)
	insertMessages(t, b, "a", "b", "c")

	events := b.EventsSince(2)
	if len(events) != 1 || events[0].Message != "c" {
		t.Fatalf("expected only the event after seq 2, got %+v", events)
	}
	if got := b.EventsSince(3); got != nil {
		t.Fatalf("expected no events past the last seq, got %+v", got)
	}
	all := b.EventsSince(0)
	if len(all) != 3 {
		t.Fatalf("expected all 3 events since seq 0, got %d", len(all))
	}
}

func TestQueryWithoutFilterReturnsEverything(t *testing.T) {
	b := New(10)
	insertMessages(t, b, "a", "b", "c")

	first := b.Query(Filter{})
	second := b.Query(Filter{})
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected both queries to return 3 events, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated query changed results at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	if b.Len() != 3 {
		t.Fatalf("query must not mutate the buffer; length is %d", b.Len())
	}
}

func TestQuerySeverityFilter(t *testing.T) {
	b := New(10)
	b.Insert(Event{Message: "boot", Severity: SeverityInfo})
	b.Insert(Event{Message: "leak", Severity: SeverityWarning})
	b.Insert(Event{Message: "crash", Severity: SeverityError})

	events := b.Query(Filter{Severities: []Severity{SeverityWarning, SeverityError}})
	if len(events) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(events))
	}
	if events[0].Message != "leak" || events[1].Message != "crash" {
		t.Fatalf("unexpected matches: %+v", events)
	}
}

func TestQuerySubstringFilters(t *testing.T) {
	b := New(10)
	b.Insert(Event{Message: "null reference", Stack: "at Player.Update"})
	b.Insert(Event{Message: "missing asset", Stack: "at Loader.Fetch"})

	byMessage := b.Query(Filter{MessageContains: "reference"})
	if len(byMessage) != 1 || byMessage[0].Message != "null reference" {
		t.Fatalf("message filter mismatch: %+v", byMessage)
	}

	byStack := b.Query(Filter{StackContains: "Loader"})
	if len(byStack) != 1 || byStack[0].Message != "missing asset" {
		t.Fatalf("stack filter mismatch: %+v", byStack)
	}

	if got := b.Query(Filter{MessageContains: "REFERENCE"}); len(got) != 0 {
		t.Fatalf("substring match must be case-sensitive, got %+v", got)
	}
}

func TestQueryTimeBoundsAreInclusive(t *testing.T) {
	b := New(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Insert(Event{Message: "early", Time: base.Add(-time.Minute)})
	b.Insert(Event{Message: "edge", Time: base})
	b.Insert(Event{Message: "late", Time: base.Add(time.Minute)})

	events := b.Query(Filter{After: base, Before: base})
	if len(events) != 1 || events[0].Message != "edge" {
		t.Fatalf("expected only the boundary event, got %+v", events)
	}
}

func TestQueryLimitKeepsMostRecent(t *testing.T) {
	b := New(10)
	insertMessages(t, b, "a", "b", "c", "d")

	events := b.Query(Filter{Limit: 2})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "c" || events[1].Message != "d" {
		t.Fatalf("limit must keep the tail in order, got %+v", events)
	}
}

func TestProjectSelectsFields(t *testing.T) {
	b := New(10)
	b.Insert(Event{Message: "crash", Stack: "at Foo", Severity: SeverityError})

	rows, err := Project(b.Events(), []string{FieldMessage, FieldSeverity})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row[FieldMessage] != "crash" || row[FieldSeverity] != "error" {
		t.Fatalf("unexpected projection: %+v", row)
	}
	if _, present := row[FieldStack]; present {
		t.Fatalf("stack should have been dropped: %+v", row)
	}
}

func TestProjectRejectsUnknownField(t *testing.T) {
	if _, err := Project(nil, []string{"color"}); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestProjectEmptyFieldsKeepsAll(t *testing.T) {
	b := New(10)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Insert(Event{Message: "boot", Time: at})

	rows, err := Project(b.Events(), nil)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	row := rows[0]
	if row[FieldTimestamp] != at.UnixMilli() {
		t.Fatalf("expected timestamp %d, got %v", at.UnixMilli(), row[FieldTimestamp])
	}
	for _, field := range []string{FieldMessage, FieldStack, FieldSeverity, FieldTimestamp} {
		if _, present := row[field]; !present {
			t.Fatalf("field %q missing from full projection", field)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if sev, err := ParseSeverity("warning"); err != nil || sev != SeverityWarning {
		t.Fatalf("expected warning, got %v (%v)", sev, err)
	}
	if _, err := ParseSeverity("critical"); err == nil {
		t.Fatalf("expected unknown severity to error")
	}
}
