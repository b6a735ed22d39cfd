package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// closedPort returns a local address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestProbeTCP_Reachable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	cfg, err := probe.NewConfig("tcp://" + ln.Addr().String())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := probe.NewProber(cfg, NewFactory(), zap.NewNop()).Probe(ctx)

	assert.Equal(t, probe.OutcomeHealthy, out.Kind, out.String())
}

func TestProbeTCP_UnreachableGivesUpAfterOneRetry(t *testing.T) {
	t.Parallel()

	cfg, err := probe.NewConfig("tcp://"+closedPort(t),
		probe.WithRetryLimit(1),
		probe.WithRetryDelay(10*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := probe.NewProber(cfg, NewFactory(), zap.NewNop()).Probe(ctx)

	require.Equal(t, probe.OutcomeUnhealthy, out.Kind, out.String())
	assert.Contains(t, out.Description, "gave up after 2 attempt(s)")
	assert.ErrorIs(t, out.Cause(), probe.ErrRemoteClosed)
}

func TestProbeTCP_CanceledImmediately(t *testing.T) {
	t.Parallel()

	cfg, err := probe.NewConfig("tcp://"+closedPort(t), probe.WithRetryDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := probe.NewProber(cfg, NewFactory(), zap.NewNop()).Probe(ctx)

	assert.Equal(t, probe.OutcomeCanceled, out.Kind)
}

func TestTCPAddr_RequiresPort(t *testing.T) {
	t.Parallel()

	_, err := tcpAddr("tcp://eventstore")
	assert.Error(t, err)

	addr, err := tcpAddr("tcp://eventstore:1113")
	require.NoError(t, err)
	assert.Equal(t, "eventstore:1113", addr)
}
