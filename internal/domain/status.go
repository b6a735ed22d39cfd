package domain

import (
	"time"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// TargetStatus is the latest reported probe result for a target. Only the
// latest one is kept; there is no history.
type TargetStatus struct {
	TargetID    TargetID     `json:"target_id"`
	URL         string       `json:"url"`
	Status      probe.Status `json:"status"`
	Description string       `json:"description,omitempty"`
	Error       string       `json:"error,omitempty"`
	LatencyMS   float64      `json:"latency_ms"`
	CheckedAt   time.Time    `json:"checked_at"`
}

func NewTargetStatus(t *Target, res probe.CheckResult, at time.Time) *TargetStatus {
	s := &TargetStatus{
		TargetID:    t.ID,
		URL:         probe.RedactTarget(t.URL),
		Status:      res.Report.Status,
		Description: res.Report.Description,
		LatencyMS:   res.LatencyMS,
		CheckedAt:   at,
	}
	if res.Report.Err != nil {
		s.Error = res.Report.Err.Error()
	}
	return s
}

// Reason is a single line explaining a non-healthy status.
func (s *TargetStatus) Reason() string {
	switch {
	case s.Description != "" && s.Error != "":
		return s.Description + ": " + s.Error
	case s.Description != "":
		return s.Description
	default:
		return s.Error
	}
}
