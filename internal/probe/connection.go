package probe

import "context"

// Connection is a transport that reports its fate through Events.
//
// Connect returns once the attempt has been initiated; that does not mean
// the remote accepted it. Close must be idempotent and safe to call while
// Connect is still running.
type Connection interface {
	Connect(ctx context.Context) error
	Close() error
}

// Dialer creates a fresh, unconnected Connection for one probe.
// Connections are never reused across probes.
type Dialer interface {
	Dial(target string, settings ConnectionSettings, events Events) (Connection, error)
}

type DialerFunc func(target string, settings ConnectionSettings, events Events) (Connection, error)

func (f DialerFunc) Dial(target string, settings ConnectionSettings, events Events) (Connection, error) {
	return f(target, settings, events)
}

// Events receives the terminal signals of a Connection. Callbacks may fire
// from any goroutine, concurrently, and more than once.
type Events struct {
	OnConnected func()
	OnClosed    func(reason string)
	OnError     func(err error)
}

func (e Events) Connected() {
	if e.OnConnected != nil {
		e.OnConnected()
	}
}

func (e Events) Closed(reason string) {
	if e.OnClosed != nil {
		e.OnClosed(reason)
	}
}

func (e Events) Error(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}
