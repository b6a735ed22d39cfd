package probe

import "fmt"

type SignalKind int

const (
	SignalConnected SignalKind = iota + 1
	SignalClosed
	SignalError
)

// Signal is one terminal event emitted by a Connection.
type Signal struct {
	Kind   SignalKind
	Reason string
	Err    error
}

func ConnectedSignal() Signal { return Signal{Kind: SignalConnected} }
func ClosedSignal(reason string) Signal { return Signal{Kind: SignalClosed, Reason: reason} }
func ErrorSignal(err error) Signal { return Signal{Kind: SignalError, Err: err} }

// Outcome maps the signal onto the probe vocabulary.
func (s Signal) Outcome() Outcome {
	switch s.Kind {
	case SignalConnected:
		return Healthy()
	case SignalClosed:
		return Unhealthy(s.Reason, nil)
	case SignalError:
		if s.Err == nil {
			return Unhealthy("", ErrRemoteError)
		}
		return Unhealthy("", fmt.Errorf("%w: %w", ErrRemoteError, s.Err))
	default:
		return Unhealthy("", fmt.Errorf("%w: unknown signal %d", ErrRemoteError, int(s.Kind)))
	}
}
