package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/liveprobe/internal/repo"
)

func (s *Store) GetAlert(ctx context.Context, targetID string) (*repo.AlertRecord, error) {
	const q = `SELECT last_up, last_sent_at FROM alerts WHERE target_id=$1`
	r := repo.AlertRecord{TargetID: targetID}
	err := s.pool.QueryRow(ctx, q, targetID).Scan(&r.LastUp, &r.LastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SetAlert(ctx context.Context, targetID string, up bool, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (target_id, last_up, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (target_id)
		DO UPDATE SET last_up=EXCLUDED.last_up, last_sent_at=COALESCE(EXCLUDED.last_sent_at, alerts.last_sent_at)
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.pool.Exec(ctx, q, targetID, up, ts)
	return err
}
