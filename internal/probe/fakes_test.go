package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeConn is a scriptable Connection. connect runs inside Connect with the
// events the prober wired in.
type fakeConn struct {
	connect func(ctx context.Context, ev Events) error

	mu       sync.Mutex
	events   Events
	closeCnt atomic.Int32
	released chan struct{}
	once     sync.Once
}

func newFakeConn(connect func(ctx context.Context, ev Events) error) *fakeConn {
	return &fakeConn{connect: connect, released: make(chan struct{})}
}

func (f *fakeConn) Connect(ctx context.Context) error {
	f.mu.Lock()
	ev := f.events
	f.mu.Unlock()
	if f.connect == nil {
		return nil
	}
	return f.connect(ctx, ev)
}

func (f *fakeConn) Close() error {
	f.closeCnt.Add(1)
	f.once.Do(func() { close(f.released) })
	return nil
}

func (f *fakeConn) isReleased() bool {
	select {
	case <-f.released:
		return true
	default:
		return false
	}
}

func (f *fakeConn) dialer() Dialer {
	return DialerFunc(func(_ string, _ ConnectionSettings, ev Events) (Connection, error) {
		f.mu.Lock()
		f.events = ev
		f.mu.Unlock()
		return f, nil
	})
}

func mustConfig(t testing.TB, target string, opts ...Option) Config {
	t.Helper()
	cfg, err := NewConfig(target, opts...)
	if err != nil {
		t.Fatalf("NewConfig(%q): %v", target, err)
	}
	return cfg
}
