package conn

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// natsConn maps the nats.go client callbacks onto probe events. The client
// already reconnects on its own, so RetryLimit and RetryDelay go straight
// into its options.
type natsConn struct {
	target string
	opts   []nats.Option
	events probe.Events

	mu     sync.Mutex
	nc     *nats.Conn
	closed bool
	// dialing is closed once an in-flight nats.Connect has returned and its
	// handle, if any, has been kept or closed.
	dialing chan struct{}
}

func newNATSConn(target string, s probe.ConnectionSettings, ev probe.Events, timeout time.Duration) *natsConn {
	return &natsConn{
		target: target,
		opts:   natsOptions(s, ev, timeout),
		events: ev,
	}
}

func natsOptions(s probe.ConnectionSettings, ev probe.Events, timeout time.Duration) []nats.Option {
	opts := []nats.Option{
		nats.Name(s.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(s.RetryLimit),
		nats.ReconnectWait(s.RetryDelay),
		nats.ReconnectJitter(0, 0),
		nats.NoCallbacksAfterClientClose(),
		nats.ConnectHandler(func(*nats.Conn) { ev.Connected() }),
		nats.ClosedHandler(func(nc *nats.Conn) {
			reason := "connection closed"
			if err := nc.LastError(); err != nil {
				reason = err.Error()
			}
			ev.Closed(reason)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			ev.Error(err)
		}),
	}
	if s.Credentials != nil {
		opts = append(opts, nats.UserInfo(s.Credentials.Login, s.Credentials.Password))
	}
	if timeout > 0 {
		opts = append(opts, nats.Timeout(timeout))
	}
	return opts
}

// Connect blocks for the first connection attempt only; with
// RetryOnFailedConnect a refused attempt still returns a usable handle and
// the outcome arrives later through the callbacks.
func (c *natsConn) Connect(context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	done := make(chan struct{})
	c.dialing = done
	c.mu.Unlock()
	defer close(done)

	nc, err := nats.Connect(c.target, c.opts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		nc.Close()
		return ErrClosed
	}
	c.nc = nc
	if nc.IsConnected() {
		c.events.Connected()
	}
	return nil
}

// Close releases the connection. If nats.Connect is still dialing, Close
// waits for it to return (bounded by the dial timeout) so the socket is gone
// before Close does.
func (c *natsConn) Close() error {
	c.mu.Lock()
	nc := c.nc
	if c.closed {
		nc = nil
	}
	c.closed = true
	dialing := c.dialing
	c.mu.Unlock()

	if nc != nil {
		nc.Close()
	}
	if dialing != nil {
		<-dialing
	}
	return nil
}
