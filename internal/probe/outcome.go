package probe

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransportInit wraps failures raised directly while creating or
	// connecting the transport, as opposed to ones delivered as events.
	ErrTransportInit = errors.New("transport init failed")
	ErrRemoteClosed  = errors.New("remote closed the connection")
	ErrRemoteError   = errors.New("remote transport error")
	ErrCanceled      = errors.New("probe canceled")
)

type OutcomeKind int

const (
	OutcomeHealthy OutcomeKind = iota + 1
	OutcomeUnhealthy
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHealthy:
		return "healthy"
	case OutcomeUnhealthy:
		return "unhealthy"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the terminal classification of one probe.
type Outcome struct {
	Kind        OutcomeKind
	Description string
	Err         error
}

func Healthy() Outcome {
	return Outcome{Kind: OutcomeHealthy}
}

func Unhealthy(description string, err error) Outcome {
	return Outcome{Kind: OutcomeUnhealthy, Description: description, Err: err}
}

// Canceled builds the outcome for a probe whose context ended first.
func Canceled(ctx context.Context) Outcome {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return Outcome{Kind: OutcomeCanceled, Err: fmt.Errorf("%w: %w", ErrCanceled, cause)}
}

func (o Outcome) Healthy() bool { return o.Kind == OutcomeHealthy }

// Cause returns an error classifying a non-healthy outcome. Closed signals
// carry only a description, so one is synthesized around ErrRemoteClosed.
func (o Outcome) Cause() error {
	switch {
	case o.Kind == OutcomeHealthy:
		return nil
	case o.Err != nil:
		return o.Err
	case o.Kind == OutcomeCanceled:
		return ErrCanceled
	case o.Description != "":
		return fmt.Errorf("%w: %s", ErrRemoteClosed, o.Description)
	default:
		return ErrRemoteClosed
	}
}

func (o Outcome) String() string {
	switch {
	case o.Description != "":
		return o.Kind.String() + ": " + o.Description
	case o.Err != nil:
		return o.Kind.String() + ": " + o.Err.Error()
	default:
		return o.Kind.String()
	}
}
