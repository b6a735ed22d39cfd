package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hamed0406/liveprobe/internal/probe"
)

const pgCloseTimeout = time.Second

// postgresDial opens a single pgx connection and pings it.
func postgresDial(target string, s probe.ConnectionSettings, timeout time.Duration) (DialFunc, error) {
	cfg, err := pgx.ParseConfig(target)
	if err != nil {
		return nil, fmt.Errorf("parse postgres target: %w", err)
	}
	if s.Credentials != nil {
		cfg.User = s.Credentials.Login
		cfg.Password = s.Credentials.Password
	}
	if s.Name != "" {
		cfg.RuntimeParams["application_name"] = s.Name
	}
	if timeout > 0 {
		cfg.ConnectTimeout = timeout
	}
	return func(ctx context.Context) (io.Closer, error) {
		c, err := pgx.ConnectConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := c.Ping(ctx); err != nil {
			closePG(c)
			return nil, err
		}
		return closerFunc(func() error { return closePG(c) }), nil
	}, nil
}

func closePG(c *pgx.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgCloseTimeout)
	defer cancel()
	return c.Close(ctx)
}

// postgresFatal reports authentication failures, which retries cannot fix.
func postgresFatal(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "28P01", // invalid_password
		"28000": // invalid_authorization_specification
		return true
	}
	return false
}
