package conn

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"
)

// tcpDial returns a DialFunc that only checks the remote accepts a TCP
// handshake. Credentials are ignored: there is no protocol to log in with.
func tcpDial(target string, timeout time.Duration) (DialFunc, error) {
	addr, err := tcpAddr(target)
	if err != nil {
		return nil, err
	}
	d := &net.Dialer{Timeout: timeout}
	return func(ctx context.Context) (io.Closer, error) {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("tcp dial %q: %w", addr, err)
		}
		return c, nil
	}, nil
}

func tcpAddr(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse tcp target: %w", err)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("tcp target %q: port is required", target)
	}
	return u.Host, nil
}
