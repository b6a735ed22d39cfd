package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// Config is the root configuration of the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"` // "127.0.0.1:8080" locally, ":8080" in Docker
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	PublicAPIKeys   []string      `mapstructure:"public_api_keys"`
	AdminAPIKeys    []string      `mapstructure:"admin_api_keys"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	PublicRPM       int           `mapstructure:"public_rpm"`
	PublicBurst     int           `mapstructure:"public_burst"`
	AdminRPM        int           `mapstructure:"admin_rpm"`
	AdminBurst      int           `mapstructure:"admin_burst"`
}

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type ProbeConfig struct {
	RetryLimit     int           `mapstructure:"retry_limit"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	FailureStatus  string        `mapstructure:"failure_status"`
	CanceledStatus string        `mapstructure:"canceled_status"` // empty: report as FailureStatus
}

type SchedulerConfig struct {
	Interval         time.Duration `mapstructure:"interval"` // 0 disables periodic probing
	Concurrency      int           `mapstructure:"concurrency"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"` // 0 disables the breaker
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type AlertsConfig struct {
	SlackWebhook string        `mapstructure:"slack_webhook"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	OnRecovery   bool          `mapstructure:"on_recovery"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // empty means use the in-memory store
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the LIVEPROBE_ prefix (e.g. LIVEPROBE_SERVER_ADDR).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LIVEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Server.PublicAPIKeys = splitKeys(cfg.Server.PublicAPIKeys)
	cfg.Server.AdminAPIKeys = splitKeys(cfg.Server.AdminAPIKeys)
	cfg.Server.CORSOrigins = splitKeys(cfg.Server.CORSOrigins)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.public_api_keys", []string{})
	v.SetDefault("server.admin_api_keys", []string{})
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.public_rpm", 120)
	v.SetDefault("server.public_burst", 60)
	v.SetDefault("server.admin_rpm", 30)
	v.SetDefault("server.admin_burst", 10)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "info")

	v.SetDefault("probe.retry_limit", probe.DefaultRetryLimit)
	v.SetDefault("probe.retry_delay", probe.DefaultRetryDelay)
	v.SetDefault("probe.timeout", 10*time.Second)
	v.SetDefault("probe.failure_status", string(probe.StatusUnhealthy))
	v.SetDefault("probe.canceled_status", "")

	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.concurrency", 8)
	v.SetDefault("scheduler.breaker_threshold", 5)
	v.SetDefault("scheduler.breaker_cooldown", 5*time.Minute)

	v.SetDefault("alerts.slack_webhook", "")
	v.SetDefault("alerts.cooldown", 15*time.Minute)
	v.SetDefault("alerts.on_recovery", true)
	v.SetDefault("alerts.poll_interval", 30*time.Second)

	v.SetDefault("database.dsn", "")
}

// splitKeys flattens comma separated entries and drops blanks.
func splitKeys(in []string) []string {
	var out []string
	for _, s := range in {
		for _, k := range strings.Split(s, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if c.Probe.RetryLimit < 0 {
		errs = append(errs, errors.New("probe.retry_limit must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"probe.retry_delay":          c.Probe.RetryDelay,
		"probe.timeout":              c.Probe.Timeout,
		"scheduler.interval":         c.Scheduler.Interval,
		"scheduler.breaker_cooldown": c.Scheduler.BreakerCooldown,
		"alerts.cooldown":            c.Alerts.Cooldown,
		"alerts.poll_interval":       c.Alerts.PollInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Scheduler.BreakerThreshold < 0 {
		errs = append(errs, errors.New("scheduler.breaker_threshold must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Settings are the service-wide probe defaults targets may override.
func (c *Config) Settings() probe.ConnectionSettings {
	s := probe.DefaultSettings()
	s.RetryLimit = c.Probe.RetryLimit
	s.RetryDelay = c.Probe.RetryDelay
	return s
}

// Policy is the configured mapping from outcomes to reported statuses.
func (c *Config) Policy() (probe.ReportPolicy, error) {
	var p probe.ReportPolicy
	var err error
	if c.Probe.FailureStatus != "" {
		if p.FailureStatus, err = probe.ParseStatus(c.Probe.FailureStatus); err != nil {
			return p, fmt.Errorf("probe.failure_status: %w", err)
		}
		if p.FailureStatus == probe.StatusHealthy {
			return p, errors.New("probe.failure_status must not be healthy")
		}
	}
	if c.Probe.CanceledStatus != "" {
		if p.CanceledStatus, err = probe.ParseStatus(c.Probe.CanceledStatus); err != nil {
			return p, fmt.Errorf("probe.canceled_status: %w", err)
		}
		if p.CanceledStatus == probe.StatusHealthy {
			return p, errors.New("probe.canceled_status must not be healthy")
		}
	}
	return p, nil
}
