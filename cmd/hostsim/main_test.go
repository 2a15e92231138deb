package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"scenebridge/internal/host"
)

func TestRunErrTreatsCancellationAsClean(t *testing.T) {
	if err := runErr(nil); err != nil {
		t.Fatalf("nil error changed: %v", err)
	}
	if err := runErr(context.Canceled); err != nil {
		t.Fatalf("cancellation not filtered: %v", err)
	}
	if err := runErr(fmt.Errorf("dial: %w", context.Canceled)); err != nil {
		t.Fatalf("wrapped cancellation not filtered: %v", err)
	}

	boom := errors.New("boom")
	if err := runErr(boom); !errors.Is(err, boom) {
		t.Fatalf("real failure swallowed: %v", err)
	}
}

func TestToyExecutorTriggers(t *testing.T) {
	var exec toyExecutor

	if _, err := exec.Execute(context.Background(), "bad: {"); err == nil {
		t.Fatalf("compile trigger did not fail")
	} else if _, ok := host.AsCompileError(err); !ok {
		t.Fatalf("expected a compile error, got %v", err)
	}

	if _, err := exec.Execute(context.Background(), "boom: oops"); err == nil {
		t.Fatalf("runtime trigger did not fail")
	} else if _, ok := host.AsRuntimeError(err); !ok {
		t.Fatalf("expected a runtime error, got %v", err)
	}

	res, err := exec.Execute(context.Background(), "spawn()")
	if err != nil {
		t.Fatalf("echo path failed: %v", err)
	}
	if res.Value != "echo: spawn()" {
		t.Fatalf("unexpected echo value: %q", res.Value)
	}
}
