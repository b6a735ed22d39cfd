package probe

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Prober runs one probe at a time against a single configured target.
// Each call to Probe opens and releases its own Connection.
type Prober struct {
	cfg    Config
	dialer Dialer
	logger *zap.Logger
}

func NewProber(cfg Config, dialer Dialer, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{cfg: cfg, dialer: dialer, logger: logger}
}

// Probe opens a connection, races its events against ctx and always
// releases the connection before returning. Timeouts are expressed as ctx
// deadlines; Probe has no timer of its own.
//
// Cancellation is observed while the connect call is in flight, once more
// right after it returns, and as a competing candidate while waiting for
// the first connection event.
func (p *Prober) Probe(ctx context.Context) (out Outcome) {
	log := p.logger.With(zap.String("target", p.cfg.Redacted()))

	var c Connection
	defer func() {
		if rec := recover(); rec != nil {
			out = Unhealthy("", fmt.Errorf("%w: panic: %v", ErrTransportInit, rec))
		}
		if c != nil {
			if err := c.Close(); err != nil {
				log.Debug("probe_close_error", zap.Error(err))
			}
		}
		log.Debug("probe_finished", zap.Stringer("outcome", out))
	}()

	res := NewResolver()
	c, err := p.dialer.Dial(p.cfg.Target, p.cfg.Settings, res.Events())
	if err != nil {
		return Unhealthy("", fmt.Errorf("%w: %w", ErrTransportInit, err))
	}

	connectErr := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				connectErr <- fmt.Errorf("connect panicked: %v", rec)
			}
		}()
		connectErr <- c.Connect(ctx)
	}()

	select {
	case <-ctx.Done():
		// the deferred release closes c, which also stops the pending connect
		log.Debug("probe_canceled", zap.String("phase", "connecting"))
		return Canceled(ctx)
	case err := <-connectErr:
		if ctx.Err() != nil {
			log.Debug("probe_canceled", zap.String("phase", "connected"))
			return Canceled(ctx)
		}
		if err != nil {
			return Unhealthy("", fmt.Errorf("%w: %w", ErrTransportInit, err))
		}
	}

	return res.Wait(ctx)
}
