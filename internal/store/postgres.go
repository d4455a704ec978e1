package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
)

// Postgres is an external shared implementation of ratelimit.Store backed by
// a single key/value table. Expiry is modeled with an expires_at column:
// reads filter expired rows and Increment resets them server-side, so the
// counter path stays atomic across processes. Rows that expire and are never
// touched again are removed by CleanupExpired.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the backing table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS rate_limit_entries (
			key        text PRIMARY KEY,
			value      text NOT NULL,
			expires_at timestamptz
		)
	`

	_, err := p.pool.Exec(ctx, query)

	return err
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM rate_limit_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`

	var value string

	err := p.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ratelimit.ErrNotFound
		}

		return "", err
	}

	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO rate_limit_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	_, err := p.pool.Exec(ctx, query, key, value, expiresAt(ttl))

	return err
}

// Increment atomically adds one to the counter at key and refreshes its
// expiry in a single upsert. An absent or expired row restarts at 1.
func (p *Postgres) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	query := `
		INSERT INTO rate_limit_entries (key, value, expires_at)
		VALUES ($1, '1', $2)
		ON CONFLICT (key) DO UPDATE
		SET value = CASE
			WHEN rate_limit_entries.expires_at IS NOT NULL AND rate_limit_entries.expires_at <= now()
				THEN '1'
			ELSE (rate_limit_entries.value::bigint + 1)::text
		END,
		expires_at = EXCLUDED.expires_at
		RETURNING value::bigint
	`

	var count int64

	if err := p.pool.QueryRow(ctx, query, key, expiresAt(ttl)).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// CleanupExpired deletes rows whose expiry has passed and returns how many
// were removed.
func (p *Postgres) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM rate_limit_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}

	t := time.Now().Add(ttl)

	return &t
}

var (
	_ ratelimit.Store       = (*Postgres)(nil)
	_ ratelimit.Incrementer = (*Postgres)(nil)
)
