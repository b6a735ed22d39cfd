package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/conn"
	"github.com/hamed0406/liveprobe/internal/probe"
)

type checkOptions struct {
	login      string
	password   string
	retryLimit int
	retryDelay time.Duration
	timeout    time.Duration
}

var checkOpts checkOptions

var checkCmd = &cobra.Command{
	Use:   "check TARGET",
	Short: "Probe a target once and exit with its health",
	Long: `Probe TARGET once. Exit status is 0 when the target is healthy, 1 when
it is not (including a probe canceled by timeout or SIGINT), and 2 when the
target or configuration is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger("")
		if err != nil {
			return &exitError{code: exitConfigError, err: err}
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := checkOpts
		if !cmd.Flags().Changed("retry-limit") {
			opts.retryLimit = -1
		}
		if !cmd.Flags().Changed("retry-delay") {
			opts.retryDelay = -1
		}
		if !cmd.Flags().Changed("timeout") {
			opts.timeout = cfg.Probe.Timeout
		}
		if code := runCheck(ctx, cmd.OutOrStdout(), logger, conn.NewFactory(), args[0], opts); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkOpts.login, "login", "", "login to authenticate with")
	f.StringVar(&checkOpts.password, "password", "", "password to authenticate with")
	f.IntVar(&checkOpts.retryLimit, "retry-limit", 0, "reconnect attempts after the first (default from config)")
	f.DurationVar(&checkOpts.retryDelay, "retry-delay", 0, "wait between attempts (default from config)")
	f.DurationVar(&checkOpts.timeout, "timeout", 0, "give up and report canceled after this long (default from config)")
}

// runCheck probes target once, prints the report and returns the exit code.
// Negative retry settings fall back to the configured defaults.
func runCheck(ctx context.Context, out io.Writer, logger *zap.Logger, d probe.Dialer, target string, o checkOptions) int {
	opts := []probe.Option{
		probe.WithSettings(cfg.Settings()),
		probe.WithCredentials(o.login, o.password),
	}
	if o.retryLimit >= 0 {
		opts = append(opts, probe.WithRetryLimit(o.retryLimit))
	}
	if o.retryDelay >= 0 {
		opts = append(opts, probe.WithRetryDelay(o.retryDelay))
	}
	pc, err := probe.NewConfig(target, opts...)
	if err == nil {
		err = conn.Supports(pc.Target)
	}
	if err != nil {
		fmt.Fprintln(out, "invalid target:", err)
		return exitConfigError
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	policy, err := cfg.Policy()
	if err != nil {
		fmt.Fprintln(out, "invalid config:", err)
		return exitConfigError
	}
	res := probe.NewChecker(d, policy, logger).Check(ctx, pc)

	fmt.Fprintf(out, "%s %s (%.0f ms)\n", pc.Redacted(), res.Report.Status, res.LatencyMS)
	if res.Report.Status.Up() {
		return 0
	}
	fmt.Fprintln(out, "reason:", res.Report.Message())
	if errors.Is(res.Outcome.Err, probe.ErrCanceled) {
		logger.Debug("check_canceled", zap.String("target", pc.Redacted()))
	}
	return exitUnhealthy
}
