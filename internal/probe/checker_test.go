package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConnChecker_MapsOutcome(t *testing.T) {
	t.Parallel()

	c := newFakeConn(func(_ context.Context, ev Events) error {
		go ev.Closed("no servers available for connection")
		return nil
	})
	chk := NewChecker(c.dialer(), ReportPolicy{FailureStatus: StatusDegraded}, zap.NewNop())

	res := chk.Check(context.Background(), mustConfig(t, "nats://down:4222"))

	assert.Equal(t, OutcomeUnhealthy, res.Outcome.Kind)
	assert.Equal(t, StatusDegraded, res.Report.Status)
	assert.Equal(t, "no servers available for connection", res.Report.Description)
	assert.GreaterOrEqual(t, res.LatencyMS, 0.0)
	assert.True(t, c.isReleased())
}

func TestConnChecker_CanceledUsesPolicy(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newFakeConn(nil)
	chk := NewChecker(c.dialer(), ReportPolicy{CanceledStatus: StatusCanceled}, nil)

	res := chk.Check(ctx, mustConfig(t, "nats://slow:4222"))
	assert.Equal(t, StatusCanceled, res.Report.Status)
}
