package scheduler

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hamed0406/liveprobe/internal/domain"
)

// breakers holds one circuit breaker per target. A breaker trips after
// threshold consecutive failing probes; while open the target is not probed.
type breakers struct {
	mu        sync.Mutex
	m         map[domain.TargetID]*gobreaker.CircuitBreaker
	threshold uint32
	cooldown  time.Duration
}

func newBreakers(threshold int, cooldown time.Duration) *breakers {
	if threshold < 0 {
		threshold = 0
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breakers{
		m:         make(map[domain.TargetID]*gobreaker.CircuitBreaker),
		threshold: uint32(threshold),
		cooldown:  cooldown,
	}
}

// get returns nil when breaking is disabled.
func (b *breakers) get(id domain.TargetID) *gobreaker.CircuitBreaker {
	if b == nil || b.threshold == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.m[id]
	if !ok {
		threshold := b.threshold
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(id),
			MaxRequests: 1,
			Interval:    0,
			Timeout:     b.cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
		b.m[id] = cb
	}
	return cb
}

// retain drops breakers of targets that are no longer registered.
func (b *breakers) retain(ts []*domain.Target) {
	if b == nil {
		return
	}
	keep := make(map[domain.TargetID]struct{}, len(ts))
	for _, t := range ts {
		keep[t.ID] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.m {
		if _, ok := keep[id]; !ok {
			delete(b.m, id)
		}
	}
}
