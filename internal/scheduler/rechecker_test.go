package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/domain"
	"github.com/hamed0406/liveprobe/internal/probe"
	"github.com/hamed0406/liveprobe/internal/repo/memory"
)

// --- fakes ---

// funcChecker adapts a function to probe.Checker and counts calls.
type funcChecker struct {
	calls atomic.Int32
	fn    func(ctx context.Context, cfg probe.Config) probe.Outcome
}

func (f *funcChecker) Check(ctx context.Context, cfg probe.Config) probe.CheckResult {
	f.calls.Add(1)
	out := f.fn(ctx, cfg)
	return probe.CheckResult{Outcome: out, Report: probe.DefaultReportPolicy().Map(out), LatencyMS: 1}
}

func healthy() *funcChecker {
	return &funcChecker{fn: func(context.Context, probe.Config) probe.Outcome { return probe.Healthy() }}
}

func failing() *funcChecker {
	return &funcChecker{fn: func(context.Context, probe.Config) probe.Outcome {
		return probe.Unhealthy("connection closed", probe.ErrRemoteClosed)
	}}
}

func seed(t *testing.T, urls ...string) *memory.Store {
	t.Helper()
	s := memory.New()
	for _, u := range urls {
		require.NoError(t, s.Add(context.Background(), &domain.Target{URL: u}))
	}
	return s
}

func latest(t *testing.T, s *memory.Store) []domain.TargetStatus {
	t.Helper()
	rows, err := s.Latest(context.Background())
	require.NoError(t, err)
	return rows
}

func newTestRechecker(s *memory.Store, chk probe.Checker) *Rechecker {
	return NewRechecker(zap.NewNop(), s, s, chk, probe.DefaultSettings(), time.Minute, time.Second, 2)
}

// --- tests ---

func TestRechecker_RunOnce_RecordsLatestStatus(t *testing.T) {
	t.Parallel()

	s := seed(t, "nats://broker:4222", "redis://cache:6379")
	chk := healthy()
	newTestRechecker(s, chk).RunOnce(context.Background())

	rows := latest(t, s)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, probe.StatusHealthy, r.Status)
		assert.False(t, r.CheckedAt.IsZero())
	}
	assert.Equal(t, int32(2), chk.calls.Load())
}

func TestRechecker_TimeoutIsReportedAsCanceledFailure(t *testing.T) {
	t.Parallel()

	s := seed(t, "tcp://slow:1113")
	chk := &funcChecker{fn: func(ctx context.Context, _ probe.Config) probe.Outcome {
		<-ctx.Done()
		return probe.Canceled(ctx)
	}}
	rc := newTestRechecker(s, chk)
	rc.Timeout = 20 * time.Millisecond
	rc.RunOnce(context.Background())

	rows := latest(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, probe.StatusUnhealthy, rows[0].Status)
	assert.Contains(t, rows[0].Error, "deadline exceeded")
}

func TestRechecker_InvalidTargetIsNotProbed(t *testing.T) {
	t.Parallel()

	s := memory.New()
	require.NoError(t, s.Add(context.Background(), &domain.Target{URL: "tcp://es:1113", Login: "admin"}))
	chk := healthy()
	newTestRechecker(s, chk).RunOnce(context.Background())

	rows := latest(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, probe.StatusUnhealthy, rows[0].Status)
	assert.Equal(t, "invalid target configuration", rows[0].Description)
	assert.Zero(t, chk.calls.Load())
}

func TestRechecker_BreakerSkipsRepeatedFailures(t *testing.T) {
	t.Parallel()

	s := seed(t, "postgres://db:5432/app")
	chk := failing()
	rc := newTestRechecker(s, chk).WithBreaker(2, time.Hour)

	for i := 0; i < 4; i++ {
		rc.RunOnce(context.Background())
	}

	assert.Equal(t, int32(2), chk.calls.Load())
	rows := latest(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, "circuit open", rows[0].Description)
	assert.Equal(t, probe.StatusUnhealthy, rows[0].Status)
}

func TestRechecker_RespectsConcurrency(t *testing.T) {
	t.Parallel()

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("tcp://node-%d:1113", i)
	}
	s := seed(t, urls...)

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	chk := &funcChecker{fn: func(context.Context, probe.Config) probe.Outcome {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return probe.Healthy()
	}}
	newTestRechecker(s, chk).RunOnce(context.Background())

	assert.Len(t, latest(t, s), 6)
	assert.LessOrEqual(t, peak, 2)
}

func TestRechecker_RunTicksOnInterval(t *testing.T) {
	t.Parallel()

	s := seed(t, "nats://broker:4222")
	chk := healthy()
	rc := newTestRechecker(s, chk)
	clock := clockwork.NewFakeClock()
	rc.Clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rc.Run(ctx) }()

	// immediate pass
	require.Eventually(t, func() bool { return chk.calls.Load() == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return chk.calls.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("rechecker did not stop")
	}
}
