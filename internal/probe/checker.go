package probe

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CheckResult holds the outcome of a single probe and how it is reported.
type CheckResult struct {
	Outcome   Outcome
	Report    Report
	LatencyMS float64
}

// Checker probes a configured target once.
type Checker interface {
	Check(ctx context.Context, cfg Config) CheckResult
}

// ConnChecker probes targets through a Dialer and maps outcomes with Policy.
type ConnChecker struct {
	Dialer Dialer
	Policy ReportPolicy
	Logger *zap.Logger
}

func NewChecker(d Dialer, policy ReportPolicy, logger *zap.Logger) *ConnChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnChecker{Dialer: d, Policy: policy, Logger: logger}
}

func (c *ConnChecker) Check(ctx context.Context, cfg Config) CheckResult {
	start := time.Now()
	out := NewProber(cfg, c.Dialer, c.Logger).Probe(ctx)
	latency := time.Since(start).Seconds() * 1000 // ms
	return CheckResult{
		Outcome:   out,
		Report:    c.Policy.Map(out),
		LatencyMS: latency,
	}
}
