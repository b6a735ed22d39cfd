package probe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// ConnectionName is reported to servers that track client names.
	ConnectionName = "liveprobe health check"

	// DefaultRetryLimit is the number of retries after the first attempt.
	DefaultRetryLimit = 1
	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// ErrConfig is returned when a probe config cannot be built. It is a
// precondition failure and never surfaces as a probe outcome.
var ErrConfig = errors.New("invalid probe config")

// Credentials is a login/password pair for the remote service.
type Credentials struct {
	Login    string
	Password string
}

// ConnectionSettings tune the connection opened by a single probe.
// A zero RetryLimit means the first failed attempt closes the connection.
type ConnectionSettings struct {
	RetryLimit  int
	RetryDelay  time.Duration
	Credentials *Credentials
	Name        string
}

// DefaultSettings returns one retry, 500ms apart, no credentials.
func DefaultSettings() ConnectionSettings {
	return ConnectionSettings{
		RetryLimit: DefaultRetryLimit,
		RetryDelay: DefaultRetryDelay,
		Name:       ConnectionName,
	}
}

// Config is everything needed to probe one target.
type Config struct {
	Target   string
	Settings ConnectionSettings
}

// Option adjusts a Config being built by NewConfig.
type Option func(*Config) error

// WithCredentials sets the login/password pair. Both empty means no
// credentials; exactly one empty is a config error.
func WithCredentials(login, password string) Option {
	return func(c *Config) error {
		creds, err := credentialsFrom(login, password)
		if err != nil {
			return err
		}
		c.Settings.Credentials = creds
		return nil
	}
}

func WithRetryLimit(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: retry limit must be >= 0, got %d", ErrConfig, n)
		}
		c.Settings.RetryLimit = n
		return nil
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: retry delay must be >= 0, got %s", ErrConfig, d)
		}
		c.Settings.RetryDelay = d
		return nil
	}
}

// WithSettings replaces the settings wholesale. The settings are validated
// together with the rest of the config.
func WithSettings(s ConnectionSettings) Option {
	return func(c *Config) error {
		if s.Credentials != nil {
			cp := *s.Credentials
			s.Credentials = &cp
		}
		c.Settings = s
		return nil
	}
}

// NewConfig validates and builds a probe config. Errors wrap ErrConfig.
func NewConfig(target string, opts ...Option) (Config, error) {
	c := Config{
		Target:   strings.TrimSpace(target),
		Settings: DefaultSettings(),
	}
	if c.Target == "" {
		return Config{}, fmt.Errorf("%w: target is required", ErrConfig)
	}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return Config{}, err
		}
	}
	if err := c.Settings.validate(); err != nil {
		return Config{}, err
	}
	if c.Settings.Name == "" {
		c.Settings.Name = ConnectionName
	}
	return c, nil
}

func (s ConnectionSettings) validate() error {
	if s.RetryLimit < 0 {
		return fmt.Errorf("%w: retry limit must be >= 0, got %d", ErrConfig, s.RetryLimit)
	}
	if s.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be >= 0, got %s", ErrConfig, s.RetryDelay)
	}
	if s.Credentials != nil {
		if _, err := credentialsFrom(s.Credentials.Login, s.Credentials.Password); err != nil {
			return err
		}
	}
	return nil
}

func credentialsFrom(login, password string) (*Credentials, error) {
	switch {
	case login == "" && password == "":
		return nil, nil
	case login == "":
		return nil, fmt.Errorf("%w: password given without login", ErrConfig)
	case password == "":
		return nil, fmt.Errorf("%w: login given without password", ErrConfig)
	}
	return &Credentials{Login: login, Password: password}, nil
}

// Redacted returns the target with any embedded password masked, for logs.
func (c Config) Redacted() string { return RedactTarget(c.Target) }

// RedactTarget masks the password embedded in a target URL, if any.
func RedactTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return target
	}
	return u.Redacted()
}
