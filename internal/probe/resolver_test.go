package probe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_FirstCompleteWins(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	_, ok := r.Outcome()
	assert.False(t, ok)

	assert.True(t, r.Complete(Healthy()))
	assert.False(t, r.Complete(Unhealthy("late", nil)))

	got, ok := r.Outcome()
	require.True(t, ok)
	assert.Equal(t, OutcomeHealthy, got.Kind)
	assert.Equal(t, OutcomeHealthy, r.Wait(context.Background()).Kind)
}

func TestResolver_FirstDeliveredAcrossGoroutinesWins(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	ev := r.Events()

	first := make(chan struct{})
	go func() {
		ev.Connected()
		close(first)
	}()
	<-first

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ev.Error(errors.New("boom"))
		}()
		go func() {
			defer wg.Done()
			ev.Closed("gone")
		}()
	}
	wg.Wait()

	assert.Equal(t, OutcomeHealthy, r.Wait(context.Background()).Kind)
}

func TestResolver_ConcurrentWritersExactlyOneWinner(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	var winners atomic.Int32
	var winner atomic.Value

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			o := Unhealthy(string(rune('a'+i%26)), nil)
			if r.Complete(o) {
				winners.Add(1)
				winner.Store(o)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), winners.Load())
	assert.Equal(t, winner.Load().(Outcome), r.Wait(context.Background()))
}

func TestResolver_WaitInjectsCanceled(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.Wait(ctx)
	assert.Equal(t, OutcomeCanceled, got.Kind)
	assert.ErrorIs(t, got.Err, ErrCanceled)
	assert.ErrorIs(t, got.Err, context.Canceled)

	// the injected cancellation is now the stored value
	assert.False(t, r.Deliver(ConnectedSignal()))
	stored, _ := r.Outcome()
	assert.Equal(t, OutcomeCanceled, stored.Kind)
}

func TestResolver_CancelAfterSignalIsNoop(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	r.Deliver(ClosedSignal("retries exhausted"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		got := r.Wait(ctx)
		require.Equal(t, OutcomeUnhealthy, got.Kind)
		require.Equal(t, "retries exhausted", got.Description)
	}
}

func TestResolver_WaitDeadline(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	got := r.Wait(ctx)
	assert.Equal(t, OutcomeCanceled, got.Kind)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestSignal_Outcome(t *testing.T) {
	t.Parallel()

	cause := errors.New("tls handshake")

	assert.Equal(t, Healthy(), ConnectedSignal().Outcome())

	closed := ClosedSignal("no servers").Outcome()
	assert.Equal(t, OutcomeUnhealthy, closed.Kind)
	assert.Equal(t, "no servers", closed.Description)
	assert.NoError(t, closed.Err)
	assert.ErrorIs(t, closed.Cause(), ErrRemoteClosed)

	failed := ErrorSignal(cause).Outcome()
	assert.Equal(t, OutcomeUnhealthy, failed.Kind)
	assert.ErrorIs(t, failed.Err, cause)
	assert.ErrorIs(t, failed.Err, ErrRemoteError)
}
