package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/liveprobe/internal/domain"
	"github.com/hamed0406/liveprobe/internal/probe"
	"github.com/hamed0406/liveprobe/internal/repo"
)

// errProbeFailed marks a non-healthy probe for the circuit breaker.
var errProbeFailed = errors.New("probe failed")

type Rechecker struct {
	Logger      *zap.Logger
	Targets     repo.TargetStore
	Statuses    repo.StatusStore
	Checker     probe.Checker
	Defaults    probe.ConnectionSettings
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
	Clock       clockwork.Clock

	breakers *breakers
}

func NewRechecker(
	logger *zap.Logger,
	ts repo.TargetStore,
	ss repo.StatusStore,
	checker probe.Checker,
	defaults probe.ConnectionSettings,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Rechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Rechecker{
		Logger:      logger,
		Targets:     ts,
		Statuses:    ss,
		Checker:     checker,
		Defaults:    defaults,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
		Clock:       clockwork.NewRealClock(),
	}
}

// WithBreaker skips a target for cooldown after threshold consecutive
// failing probes. A zero threshold disables it.
func (r *Rechecker) WithBreaker(threshold int, cooldown time.Duration) *Rechecker {
	r.breakers = newBreakers(threshold, cooldown)
	return r
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) error {
	if r.Interval == 0 {
		r.Logger.Info("rechecker_disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	t := r.Clock.NewTicker(r.Interval)
	defer t.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return ctx.Err()
		case <-t.Chan():
			r.RunOnce(ctx)
		}
	}
}

// RunOnce probes every registered target once and records the latest status.
func (r *Rechecker) RunOnce(ctx context.Context) {
	ts, err := r.Targets.List(ctx)
	if err != nil {
		r.Logger.Warn("rechecker_list_error", zap.Error(err))
		return
	}
	r.breakers.retain(ts)
	if len(ts) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(r.Concurrency)
	for _, t := range ts {
		t := t
		g.Go(func() error {
			st := r.check(ctx, t)
			if err := r.Statuses.Set(ctx, st); err != nil {
				r.Logger.Warn("rechecker_store_error",
					zap.String("target_id", string(t.ID)),
					zap.String("url", probe.RedactTarget(t.URL)),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Rechecker) check(ctx context.Context, t *domain.Target) *domain.TargetStatus {
	cfg, err := t.ProbeConfig(r.Defaults)
	if err != nil {
		return &domain.TargetStatus{
			TargetID:    t.ID,
			URL:         probe.RedactTarget(t.URL),
			Status:      probe.StatusUnhealthy,
			Description: "invalid target configuration",
			Error:       err.Error(),
			CheckedAt:   r.Clock.Now().UTC(),
		}
	}

	var res probe.CheckResult
	run := func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, r.Timeout)
		defer cancel()
		res = r.Checker.Check(cctx, cfg)
		// shutdown is not the target's fault
		if !res.Report.Status.Up() && ctx.Err() == nil {
			return nil, errProbeFailed
		}
		return nil, nil
	}

	if cb := r.breakers.get(t.ID); cb != nil {
		_, err = cb.Execute(run)
	} else {
		_, err = run()
	}

	now := r.Clock.Now().UTC()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.Logger.Debug("rechecker_circuit_open",
			zap.String("target_id", string(t.ID)),
			zap.String("url", cfg.Redacted()),
		)
		return &domain.TargetStatus{
			TargetID:    t.ID,
			URL:         probe.RedactTarget(t.URL),
			Status:      probe.StatusUnhealthy,
			Description: "circuit open",
			Error:       fmt.Sprintf("skipped after repeated failures: %v", err),
			CheckedAt:   now,
		}
	}

	st := domain.NewTargetStatus(t, res, now)
	r.Logger.Debug("rechecker_checked",
		zap.String("target_id", string(t.ID)),
		zap.String("url", cfg.Redacted()),
		zap.String("status", string(st.Status)),
		zap.Float64("latency_ms", st.LatencyMS),
		zap.String("reason", st.Reason()),
	)
	return st
}
