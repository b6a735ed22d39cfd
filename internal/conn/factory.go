// Package conn provides probe.Connection implementations for the remote
// services liveprobe knows how to reach, selected by the target URL scheme.
package conn

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// ErrUnsupportedScheme is returned for targets no adapter handles.
var ErrUnsupportedScheme = errors.New("unsupported target scheme")

const defaultDialTimeout = 5 * time.Second

// Factory is a probe.Dialer that picks an adapter from the target scheme.
type Factory struct {
	Clock       clockwork.Clock
	HTTPClient  *http.Client
	DialTimeout time.Duration
}

func NewFactory() *Factory {
	return &Factory{
		Clock:       clockwork.NewRealClock(),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		DialTimeout: defaultDialTimeout,
	}
}

var _ probe.Dialer = (*Factory)(nil)

// Supports reports whether target has a scheme this factory can dial.
func Supports(target string) error {
	_, err := schemeOf(target)
	return err
}

func (f *Factory) Dial(target string, s probe.ConnectionSettings, ev probe.Events) (probe.Connection, error) {
	scheme, err := schemeOf(target)
	if err != nil {
		return nil, err
	}

	var (
		dial  DialFunc
		fatal func(error) bool
	)
	switch scheme {
	case "nats", "tls":
		return newNATSConn(target, s, ev, f.DialTimeout), nil
	case "postgres", "postgresql":
		dial, err = postgresDial(target, s, f.DialTimeout)
		fatal = postgresFatal
	case "redis", "rediss":
		dial, err = redisDial(target, s, f.DialTimeout)
		fatal = redisFatal
	case "http", "https":
		dial = httpDial(f.httpClient(), target, s.Credentials)
		fatal = httpFatal
	case "tcp":
		dial, err = tcpDial(target, f.DialTimeout)
	}
	if err != nil {
		return nil, err
	}
	return newRedialConn(dial, fatal, s, ev, f.Clock), nil
}

func (f *Factory) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func schemeOf(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target: %w", err)
	}
	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "nats", "tls", "postgres", "postgresql", "redis", "rediss", "http", "https", "tcp":
		return scheme, nil
	case "":
		return "", fmt.Errorf("%w: %q has no scheme", ErrUnsupportedScheme, target)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}
