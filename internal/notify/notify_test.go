package notify

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stub struct {
	calls int
	err   error
}

func (s *stub) Send(ctx context.Context, title, text string) error {
	s.calls++
	return s.err
}

func TestMulti_SendsToAllAndCombinesErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	a, b, c := &stub{err: errA}, &stub{}, &stub{err: errB}

	err := Multi{a, nil, b, c}.Send(context.Background(), "t", "x")
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Fatalf("every notifier must be called: %d %d %d", a.calls, b.calls, c.calls)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("want both errors, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("want 2 errors, got %d", n)
	}
}

func TestMulti_NoErrors(t *testing.T) {
	if err := (Multi{&stub{}}).Send(context.Background(), "t", "x"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLog_WritesAlert(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	if err := (Log{Logger: zap.New(core)}).Send(context.Background(), "DOWN", "details"); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("alert").All()
	if len(entries) != 1 || entries[0].ContextMap()["title"] != "DOWN" {
		t.Fatalf("unexpected log entries: %+v", entries)
	}
}
