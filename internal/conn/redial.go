package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// ErrClosed is returned by Connect after the connection was closed.
var ErrClosed = errors.New("connection closed")

// DialFunc opens and verifies a single session. The returned closer is
// released as soon as the session has proven the remote is alive.
type DialFunc func(ctx context.Context) (io.Closer, error)

// redialConn turns a blocking DialFunc into an event-emitting Connection.
// Connect starts a background attempt loop: the first attempt plus up to
// RetryLimit retries, RetryDelay apart. Success emits Connected, running
// out of attempts emits Closed and a fatal error (bad credentials) emits
// Error right away.
type redialConn struct {
	dial     DialFunc
	fatal    func(error) bool
	settings probe.ConnectionSettings
	events   probe.Events
	clock    clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

func newRedialConn(dial DialFunc, fatal func(error) bool, s probe.ConnectionSettings, ev probe.Events, clock clockwork.Clock) *redialConn {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &redialConn{
		dial:     dial,
		fatal:    fatal,
		settings: s,
		events:   ev,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Connect starts the attempt loop and returns immediately.
func (c *redialConn) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true
	go c.run()
	return nil
}

// Close stops the attempt loop and waits for it to exit.
func (c *redialConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	c.cancel()
	if started {
		<-c.done
	}
	return nil
}

func (c *redialConn) run() {
	defer close(c.done)

	attempts := c.settings.RetryLimit + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && c.settings.RetryDelay > 0 {
			select {
			case <-c.ctx.Done():
				return
			case <-c.clock.After(c.settings.RetryDelay):
			}
		}

		session, err := c.dial(c.ctx)
		if c.ctx.Err() != nil {
			if session != nil {
				_ = session.Close()
			}
			return
		}
		if err == nil {
			_ = session.Close()
			c.events.Connected()
			return
		}
		if c.fatal != nil && c.fatal(err) {
			c.events.Error(err)
			return
		}
		lastErr = err
	}
	c.events.Closed(fmt.Sprintf("gave up after %d attempt(s): %v", attempts, lastErr))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
