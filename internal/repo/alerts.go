package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last alerted up/down state of a target and when we
// last sent a notification for it (used for cooldown).
type AlertRecord struct {
	TargetID   string
	LastUp     bool
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// GetAlert returns nil, nil if there's no record yet.
	GetAlert(ctx context.Context, targetID string) (*AlertRecord, error)
	// SetAlert upserts the record. A zero sentAt keeps the previous send
	// time so a state change without a send does not reset the cooldown.
	SetAlert(ctx context.Context, targetID string, up bool, sentAt time.Time) error
}
