package domain

import (
	"encoding/json"
	"time"

	"github.com/hamed0406/liveprobe/internal/probe"
)

type TargetID string

// Target is a registered remote service. RetryLimit and RetryDelayMS are
// optional overrides of the service-wide probe defaults.
type Target struct {
	ID           TargetID  `json:"id"`
	Name         string    `json:"name,omitempty"`
	URL          string    `json:"url"`
	Login        string    `json:"login,omitempty"`
	Password     string    `json:"-"`
	RetryLimit   *int      `json:"retry_limit,omitempty"`
	RetryDelayMS *int64    `json:"retry_delay_ms,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MarshalJSON masks a password embedded in the URL. The stored URL keeps it
// for probing.
func (t Target) MarshalJSON() ([]byte, error) {
	type target Target
	out := target(t)
	out.URL = probe.RedactTarget(t.URL)
	return json.Marshal(out)
}

// ProbeConfig builds the probe config for t on top of defaults. Errors wrap
// probe.ErrConfig.
func (t *Target) ProbeConfig(defaults probe.ConnectionSettings) (probe.Config, error) {
	opts := []probe.Option{
		probe.WithSettings(defaults),
		probe.WithCredentials(t.Login, t.Password),
	}
	if t.RetryLimit != nil {
		opts = append(opts, probe.WithRetryLimit(*t.RetryLimit))
	}
	if t.RetryDelayMS != nil {
		opts = append(opts, probe.WithRetryDelay(time.Duration(*t.RetryDelayMS)*time.Millisecond))
	}
	return probe.NewConfig(t.URL, opts...)
}

// Label is the name if set, the URL otherwise.
func (t *Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return probe.RedactTarget(t.URL)
}
