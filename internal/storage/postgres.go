package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yitumuglobal/site-api/internal/log"
)

// Ensure PostgresCounter implements Counter
var _ Counter = (*PostgresCounter)(nil)

const createRateTable = `
CREATE TABLE IF NOT EXISTS contact_rate_limits (
	key        TEXT PRIMARY KEY,
	count      BIGINT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// The CASE arms restart a lapsed window in the same statement, which keeps
// the increment atomic without an explicit transaction.
const incrementRate = `
INSERT INTO contact_rate_limits (key, count, expires_at)
VALUES ($1, 1, $2)
ON CONFLICT (key) DO UPDATE SET
	count = CASE WHEN contact_rate_limits.expires_at <= $3 THEN 1
	             ELSE contact_rate_limits.count + 1 END,
	expires_at = CASE WHEN contact_rate_limits.expires_at <= $3 THEN EXCLUDED.expires_at
	                  ELSE contact_rate_limits.expires_at END
RETURNING count`

const purgeRate = `DELETE FROM contact_rate_limits WHERE expires_at <= $1`

// PostgresCounter keeps counters in a PostgreSQL table.
type PostgresCounter struct {
	pool *pgxpool.Pool
	now  nowFunc
}

// NewPostgresCounter opens a pool and creates the counter table if needed
func NewPostgresCounter(ctx context.Context, databaseURL string) (*PostgresCounter, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("databaseURL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createRateTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating contact_rate_limits table: %w", err)
	}

	log.LogInfoWithFields("storage", "Postgres rate counter ready", map[string]any{
		"host":     poolConfig.ConnConfig.Host,
		"database": poolConfig.ConnConfig.Database,
	})

	return &PostgresCounter{pool: pool, now: time.Now}, nil
}

// Increment implements Counter
func (s *PostgresCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	now := s.now()
	var count int64
	if err := s.pool.QueryRow(ctx, incrementRate, key, now.Add(window), now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return count, nil
}

// PurgeExpired implements Counter
func (s *PostgresCounter) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, purgeRate, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge counters: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close implements Counter
func (s *PostgresCounter) Close() error {
	s.pool.Close()
	return nil
}
