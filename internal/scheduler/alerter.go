package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/domain"
	"github.com/hamed0406/liveprobe/internal/notify"
	"github.com/hamed0406/liveprobe/internal/probe"
	"github.com/hamed0406/liveprobe/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

type Alerter struct {
	statuses repo.StatusStore
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	logger   *zap.Logger
	clock    clockwork.Clock
}

func NewAlerter(
	statuses repo.StatusStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
	logger *zap.Logger,
) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Alerter{
		statuses: statuses,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := a.clock.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.logScanErr(a.scanOnce(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			a.logScanErr(a.scanOnce(ctx))
		}
	}
}

func (a *Alerter) logScanErr(err error) {
	if err != nil {
		a.logger.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	rows, err := a.statuses.Latest(ctx)
	if err != nil {
		return err
	}

	now := a.clock.Now()

	for _, r := range rows {
		// A canceled probe says nothing about the target.
		if r.Status == probe.StatusCanceled {
			continue
		}
		id := string(r.TargetID)
		up := r.Status.Up()

		rec, err := a.alertDB.GetAlert(ctx, id)
		if err != nil {
			a.logger.Warn("alerter_get_error", zap.String("target_id", id), zap.Error(err))
			continue
		}

		// Has the up/down state changed compared to what we last recorded?
		stateChanged := rec == nil || rec.LastUp != up

		// Cooldown only matters for DOWN alerts.
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !up && cooled
		recoveryAlert := stateChanged && up && rec != nil && a.cfg.AlertOnRecovery

		if downAlert || recoveryAlert {
			title := "🔴 Target DOWN"
			if up {
				title = "🟢 Target RECOVERED"
			}
			if err := a.notifier.Send(ctx, title, alertText(r)); err != nil {
				a.logger.Warn("alerter_send_error", zap.String("target_id", id), zap.Error(err))
			}
			if err := a.alertDB.SetAlert(ctx, id, up, now); err != nil {
				a.logger.Warn("alerter_set_error", zap.String("target_id", id), zap.Error(err))
			}
			continue
		}

		// State changed without a send (DOWN within cooldown, first sighting
		// as UP, or recovery alerts off): record it, keeping the last send time.
		if stateChanged {
			if err := a.alertDB.SetAlert(ctx, id, up, time.Time{}); err != nil {
				a.logger.Warn("alerter_set_error", zap.String("target_id", id), zap.Error(err))
			}
		}
	}

	return nil
}

func alertText(r domain.TargetStatus) string {
	reason := r.Reason()
	if reason == "" {
		reason = "n/a"
	}
	return fmt.Sprintf(
		"URL: %s\nStatus: %s\nLatency: %.0f ms\nReason: %s\nChecked: %s",
		r.URL, r.Status, r.LatencyMS, reason, r.CheckedAt.Format(time.RFC3339),
	)
}
