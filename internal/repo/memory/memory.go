package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/liveprobe/internal/domain"
	"github.com/hamed0406/liveprobe/internal/repo"
)

// Store keeps targets, their latest status and alert state in memory.
type Store struct {
	mu       sync.RWMutex
	targets  map[domain.TargetID]*domain.Target
	statuses map[domain.TargetID]domain.TargetStatus
	alerts   map[string]repo.AlertRecord
	seq      int
}

func New() *Store {
	return &Store{
		targets:  make(map[domain.TargetID]*domain.Target),
		statuses: make(map[domain.TargetID]domain.TargetStatus),
		alerts:   make(map[string]repo.AlertRecord),
	}
}

func (m *Store) Add(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		m.seq++
		t.ID = domain.TargetID(fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102T150405"), m.seq))
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	for _, existing := range m.targets {
		if existing.URL == t.URL && existing.ID != t.ID {
			return fmt.Errorf("target %s: %w", t.URL, repo.ErrConflict)
		}
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Store) List(ctx context.Context) ([]*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the target together with its status and alert state.
func (m *Store) Delete(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.targets, id)
	delete(m.statuses, id)
	delete(m.alerts, string(id))
	return nil
}

// Set replaces the latest status of a target. Statuses for targets that
// were deleted in the meantime are dropped.
func (m *Store) Set(ctx context.Context, s *domain.TargetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[s.TargetID]; !ok {
		return nil
	}
	m.statuses[s.TargetID] = *s
	return nil
}

func (m *Store) Latest(ctx context.Context) ([]domain.TargetStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TargetStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (m *Store) GetAlert(ctx context.Context, targetID string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[targetID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) SetAlert(ctx context.Context, targetID string, up bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	} else if prev, ok := m.alerts[targetID]; ok {
		ts = prev.LastSentAt
	}
	m.alerts[targetID] = repo.AlertRecord{TargetID: targetID, LastUp: up, LastSentAt: ts}
	return nil
}
