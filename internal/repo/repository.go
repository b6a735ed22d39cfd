package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/liveprobe/internal/domain"
)

var (
	// ErrNotFound is returned when a target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a target with the same URL is registered.
	ErrConflict = errors.New("already registered")
)

// Ports implemented by the memory and postgres adapters.
type TargetStore interface {
	Add(ctx context.Context, t *domain.Target) error
	Get(ctx context.Context, id domain.TargetID) (*domain.Target, error)
	List(ctx context.Context) ([]*domain.Target, error)
	Delete(ctx context.Context, id domain.TargetID) error
}

// StatusStore keeps the latest status per target. Setting a status
// replaces the previous one.
type StatusStore interface {
	Set(ctx context.Context, s *domain.TargetStatus) error
	Latest(ctx context.Context) ([]domain.TargetStatus, error)
}
