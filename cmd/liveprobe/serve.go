package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/conn"
	"github.com/hamed0406/liveprobe/internal/httpapi"
	apimw "github.com/hamed0406/liveprobe/internal/httpapi/middleware"
	"github.com/hamed0406/liveprobe/internal/notify"
	"github.com/hamed0406/liveprobe/internal/probe"
	"github.com/hamed0406/liveprobe/internal/repo"
	"github.com/hamed0406/liveprobe/internal/repo/memory"
	"github.com/hamed0406/liveprobe/internal/repo/postgres"
	"github.com/hamed0406/liveprobe/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the periodic prober and the alerter",
	Long: `Start the HTTP API on the configured address together with the
scheduler that probes every registered target and the alerter that notifies
on healthy/failing transitions. Shuts down cleanly on SIGTERM or SIGINT.`,
	RunE: runServe,
}

// stores picks the persistence backend. Latest statuses always live in
// memory; targets and alert state go to Postgres when a DSN is configured.
type stores struct {
	targets  repo.TargetStore
	statuses repo.StatusStore
	alerts   repo.AlertStore
	close    func()
}

func openStores(ctx context.Context, logger *zap.Logger) (*stores, error) {
	mem := memory.New()
	if cfg.Database.DSN == "" {
		logger.Info("store_memory")
		return &stores{targets: mem, statuses: mem, alerts: mem, close: func() {}}, nil
	}
	pg, err := postgres.New(ctx, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Info("store_postgres")
	return &stores{targets: pg, statuses: mem, alerts: pg, close: pg.Close}, nil
}

func notifier(logger *zap.Logger) notify.Notifier {
	m := notify.Multi{notify.Log{Logger: logger}}
	if s := notify.NewSlack(cfg.Alerts.SlackWebhook); s != nil {
		m = append(m, s)
	}
	return m
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cfg.Log.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer st.close()

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	checker := probe.NewChecker(conn.NewFactory(), policy, logger)

	api := httpapi.NewServer(logger, st.targets, st.statuses, checker)
	api.Defaults = cfg.Settings()
	api.ProbeTimeout = cfg.Probe.Timeout
	keys := apimw.Keys{Public: cfg.Server.PublicAPIKeys, Admin: cfg.Server.AdminAPIKeys}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.Router(keys, cfg.Server.CORSOrigins,
			cfg.Server.PublicRPM, cfg.Server.PublicBurst, cfg.Server.AdminRPM, cfg.Server.AdminBurst),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	rechecker := scheduler.NewRechecker(logger, st.targets, st.statuses, checker, cfg.Settings(),
		cfg.Scheduler.Interval, cfg.Probe.Timeout, cfg.Scheduler.Concurrency).
		WithBreaker(cfg.Scheduler.BreakerThreshold, cfg.Scheduler.BreakerCooldown)

	alerter := scheduler.NewAlerter(st.statuses, st.alerts, notifier(logger), scheduler.AlerterConfig{
		AlertOnRecovery: cfg.Alerts.OnRecovery,
		Cooldown:        cfg.Alerts.Cooldown,
		PollInterval:    cfg.Alerts.PollInterval,
	}, logger)

	var g run.Group
	{
		g.Add(func() error {
			logger.Info("api_listen", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				logger.Warn("api_shutdown_error", zap.Error(err))
			}
		})
	}
	{
		rctx, rcancel := context.WithCancel(ctx)
		g.Add(func() error {
			return rechecker.Run(rctx)
		}, func(error) {
			rcancel()
		})
	}
	{
		actx, acancel := context.WithCancel(ctx)
		g.Add(func() error {
			return alerter.Run(actx)
		}, func(error) {
			acancel()
		})
	}
	{
		stop := make(chan struct{})
		g.Add(func() error {
			return interrupt(logger, stop)
		}, func(error) {
			close(stop)
		})
	}

	err = g.Run()
	if errors.Is(err, errSignal) || errors.Is(err, context.Canceled) {
		logger.Info("exiting")
		return nil
	}
	return err
}

var errSignal = errors.New("caught signal")

func interrupt(logger *zap.Logger, stop <-chan struct{}) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case s := <-c:
		logger.Info("caught_signal", zap.String("signal", s.String()))
		return errSignal
	case <-stop:
		return nil
	}
}
