package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// redisDial creates a throwaway client per attempt and PINGs through it.
// The client's own retries are disabled; the attempt loop owns retrying.
func redisDial(target string, s probe.ConnectionSettings, timeout time.Duration) (DialFunc, error) {
	opts, err := redis.ParseURL(target)
	if err != nil {
		return nil, fmt.Errorf("parse redis target: %w", err)
	}
	if s.Credentials != nil {
		opts.Username = s.Credentials.Login
		opts.Password = s.Credentials.Password
	}
	opts.ClientName = s.Name
	opts.MaxRetries = -1
	opts.PoolSize = 1
	if timeout > 0 {
		opts.DialTimeout = timeout
	}
	return func(ctx context.Context) (io.Closer, error) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}, nil
}

func redisFatal(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	msg := rerr.Error()
	return strings.HasPrefix(msg, "NOAUTH") ||
		strings.HasPrefix(msg, "WRONGPASS") ||
		strings.HasPrefix(msg, "NOPERM")
}
