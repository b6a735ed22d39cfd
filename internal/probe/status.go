package probe

import (
	"fmt"
	"strings"
)

// Status is the reporting vocabulary consumed by the scheduler and the API.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusCanceled  Status = "canceled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusHealthy, StatusDegraded, StatusUnhealthy, StatusCanceled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Up reports whether the status counts as passing for alerting.
func (s Status) Up() bool { return s == StatusHealthy }

// ReportPolicy decides how failures are reported. Whether a canceled probe
// is a failure or a status of its own is up to the caller; an empty
// CanceledStatus reports it with FailureStatus.
type ReportPolicy struct {
	FailureStatus  Status
	CanceledStatus Status
}

func DefaultReportPolicy() ReportPolicy {
	return ReportPolicy{FailureStatus: StatusUnhealthy}
}

// Report is what the reporting side sees for one probe.
type Report struct {
	Status      Status
	Description string
	Err         error
}

// Message is a single human readable line for the report.
func (r Report) Message() string {
	switch {
	case r.Description != "" && r.Err != nil:
		return r.Description + ": " + r.Err.Error()
	case r.Description != "":
		return r.Description
	case r.Err != nil:
		return r.Err.Error()
	default:
		return string(r.Status)
	}
}

func (p ReportPolicy) Map(o Outcome) Report {
	failure := p.FailureStatus
	if failure == "" {
		failure = StatusUnhealthy
	}
	switch o.Kind {
	case OutcomeHealthy:
		return Report{Status: StatusHealthy}
	case OutcomeCanceled:
		st := p.CanceledStatus
		if st == "" {
			st = failure
		}
		return Report{Status: st, Description: o.Description, Err: o.Err}
	default:
		return Report{Status: failure, Description: o.Description, Err: o.Err}
	}
}
