package probe

import (
	"context"
	"sync/atomic"
)

// Resolver is a single-assignment slot for a probe outcome. The first
// Complete wins; every later write is discarded.
type Resolver struct {
	won     atomic.Bool
	done    chan struct{}
	outcome Outcome
}

func NewResolver() *Resolver {
	return &Resolver{done: make(chan struct{})}
}

// Complete stores o unless another outcome got there first. It reports
// whether this call was the winner.
func (r *Resolver) Complete(o Outcome) bool {
	if !r.won.CompareAndSwap(false, true) {
		return false
	}
	r.outcome = o
	close(r.done)
	return true
}

// Deliver completes the resolver with the outcome a signal maps to.
func (r *Resolver) Deliver(s Signal) bool {
	return r.Complete(s.Outcome())
}

// Events wires connection callbacks straight into the resolver.
func (r *Resolver) Events() Events {
	return Events{
		OnConnected: func() { r.Deliver(ConnectedSignal()) },
		OnClosed:    func(reason string) { r.Deliver(ClosedSignal(reason)) },
		OnError:     func(err error) { r.Deliver(ErrorSignal(err)) },
	}
}

func (r *Resolver) Done() <-chan struct{} { return r.done }

// Outcome returns the stored outcome, if any.
func (r *Resolver) Outcome() (Outcome, bool) {
	select {
	case <-r.done:
		return r.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until an outcome is stored. If ctx ends first a Canceled
// outcome is offered as a candidate; it loses to any outcome already set.
func (r *Resolver) Wait(ctx context.Context) Outcome {
	select {
	case <-r.done:
	case <-ctx.Done():
		r.Complete(Canceled(ctx))
		<-r.done
	}
	return r.outcome
}
