package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/domain"
	"github.com/hamed0406/liveprobe/internal/repo"
)

var _ repo.TargetStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Store persists the target registry and alert state. Probe statuses are
// not stored here: only the latest one matters and it lives in memory.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS targets (
  id             TEXT PRIMARY KEY,
  name           TEXT NOT NULL DEFAULT '',
  url            TEXT NOT NULL UNIQUE,
  login          TEXT NOT NULL DEFAULT '',
  password       TEXT NOT NULL DEFAULT '',
  retry_limit    INTEGER NULL,
  retry_delay_ms BIGINT NULL,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alerts (
  target_id    TEXT PRIMARY KEY REFERENCES targets(id) ON DELETE CASCADE,
  last_up      BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- TargetStore ----

func (s *Store) Add(ctx context.Context, t *domain.Target) error {
	if t.ID == "" {
		t.ID = domain.TargetID(makeID())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO targets (id, name, url, login, password, retry_limit, retry_delay_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(t.ID), t.Name, t.URL, t.Login, t.Password, t.RetryLimit, t.RetryDelayMS, t.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("target %s: %w", t.URL, repo.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	s.log.Debug("pg_target_added", zap.String("target_id", string(t.ID)))
	return nil
}

const targetColumns = `id, name, url, login, password, retry_limit, retry_delay_ms, created_at`

func scanTarget(row pgx.Row) (*domain.Target, error) {
	var (
		t  domain.Target
		id string
	)
	if err := row.Scan(&id, &t.Name, &t.URL, &t.Login, &t.Password, &t.RetryLimit, &t.RetryDelayMS, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	return &t, nil
}

func (s *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = $1`, string(id))
	t, err := scanTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Target, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+targetColumns+`
		   FROM targets
		  ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ID format similar to memory store: 20060102Thhmmss.nnnnnnnnn
func makeID() string {
	now := time.Now().UTC()
	return now.Format("20060102T150405.") + fmt.Sprintf("%09d", now.Nanosecond())
}
