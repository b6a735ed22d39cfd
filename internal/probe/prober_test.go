package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProber(t *testing.T, c *fakeConn) *Prober {
	t.Helper()
	return NewProber(mustConfig(t, "nats://localhost:4222"), c.dialer(), zap.NewNop())
}

func TestProber_ConnectedIsHealthy(t *testing.T) {
	t.Parallel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		go ev.Connected()
		return nil
	})
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeHealthy, out.Kind)
	assert.True(t, c.isReleased())
}

func TestProber_ClosedIsUnhealthyWithReason(t *testing.T) {
	t.Parallel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		go ev.Closed("reconnection limit reached")
		return nil
	})
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.Equal(t, "reconnection limit reached", out.Description)
	assert.ErrorIs(t, out.Cause(), ErrRemoteClosed)
	assert.True(t, c.isReleased())
}

func TestProber_ErrorIsUnhealthyWithCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("authorization violation")
	c := newFakeConn(func(_ context.Context, ev Events) error {
		go ev.Error(cause)
		return nil
	})
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.ErrorIs(t, out.Err, cause)
	assert.ErrorIs(t, out.Err, ErrRemoteError)
	assert.True(t, c.isReleased())
}

func TestProber_FirstSignalWins(t *testing.T) {
	t.Parallel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		ev.Connected()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); ev.Error(errors.New("late error")) }()
		go func() { defer wg.Done(); ev.Closed("late close") }()
		wg.Wait()
		return nil
	})
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeHealthy, out.Kind)
}

func TestProber_DialErrorIsTransportInit(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad url")
	d := DialerFunc(func(string, ConnectionSettings, Events) (Connection, error) {
		return nil, cause
	})
	out := NewProber(mustConfig(t, "nats://x"), d, nil).Probe(context.Background())

	assert.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.ErrorIs(t, out.Err, ErrTransportInit)
	assert.ErrorIs(t, out.Err, cause)
}

func TestProber_ConnectErrorIsTransportInit(t *testing.T) {
	t.Parallel()

	cause := errors.New("no route to host")
	c := newFakeConn(func(context.Context, Events) error { return cause })
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.ErrorIs(t, out.Err, ErrTransportInit)
	assert.ErrorIs(t, out.Err, cause)
	assert.True(t, c.isReleased())
}

func TestProber_ConnectPanicIsUnhealthy(t *testing.T) {
	t.Parallel()

	c := newFakeConn(func(context.Context, Events) error { panic("driver bug") })
	out := newTestProber(t, c).Probe(context.Background())

	assert.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.ErrorIs(t, out.Err, ErrTransportInit)
	assert.True(t, c.isReleased())
}

func TestProber_CanceledWhileConnecting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var c *fakeConn
	c = newFakeConn(func(_ context.Context, ev Events) error {
		cancel()
		// the attempt only finishes initiating once the probe releases it
		<-c.released
		ev.Connected()
		return nil
	})
	out := newTestProber(t, c).Probe(ctx)

	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.ErrorIs(t, out.Err, ErrCanceled)
	assert.True(t, c.isReleased())
	assert.Equal(t, int32(1), c.closeCnt.Load())
}

func TestProber_CanceledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		go ev.Connected()
		return nil
	})
	out := newTestProber(t, c).Probe(ctx)

	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.True(t, c.isReleased())
	assert.Equal(t, int32(1), c.closeCnt.Load())
}

func TestProber_CanceledAtConnectBoundary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c := newFakeConn(func(context.Context, Events) error {
		cancel()
		return nil
	})
	out := newTestProber(t, c).Probe(ctx)

	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.True(t, c.isReleased())
}

func TestProber_CanceledWhileRacing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// connect initiates fine but no event ever arrives
	c := newFakeConn(func(context.Context, Events) error { return nil })
	out := newTestProber(t, c).Probe(ctx)

	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.True(t, c.isReleased())
}

func TestProber_SignalBeatsLaterDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		ev.Closed("refused")
		return nil
	})
	out := newTestProber(t, c).Probe(ctx)

	require.Equal(t, OutcomeUnhealthy, out.Kind)
	assert.Equal(t, "refused", out.Description)
}

func TestProber_EachProbeUsesFreshConnection(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var conns []*fakeConn
	d := DialerFunc(func(_ string, _ ConnectionSettings, ev Events) (Connection, error) {
		c := newFakeConn(func(context.Context, Events) error {
			go ev.Connected()
			return nil
		})
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()
		return c, nil
	})
	p := NewProber(mustConfig(t, "tcp://localhost:1"), d, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, OutcomeHealthy, p.Probe(context.Background()).Kind)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, conns, 3)
	for _, c := range conns {
		assert.True(t, c.isReleased())
	}
}

func TestProber_PassesSettingsToDialer(t *testing.T) {
	t.Parallel()

	var got ConnectionSettings
	var gotTarget string
	d := DialerFunc(func(target string, s ConnectionSettings, ev Events) (Connection, error) {
		gotTarget, got = target, s
		return newFakeConn(func(context.Context, Events) error {
			go ev.Connected()
			return nil
		}), nil
	})
	cfg := mustConfig(t, " redis://cache:6379 ",
		WithCredentials("admin", "changeit"),
		WithRetryLimit(3),
		WithRetryDelay(time.Second),
	)
	NewProber(cfg, d, nil).Probe(context.Background())

	assert.Equal(t, "redis://cache:6379", gotTarget)
	assert.Equal(t, 3, got.RetryLimit)
	assert.Equal(t, time.Second, got.RetryDelay)
	require.NotNil(t, got.Credentials)
	assert.Equal(t, Credentials{Login: "admin", Password: "changeit"}, *got.Credentials)
	assert.Equal(t, ConnectionName, got.Name)
}
