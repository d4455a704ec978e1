package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
)

// Postgres persists deny events to PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new postgres-backed deny event store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the backing table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS denied_events (
			id                  uuid PRIMARY KEY,
			identifier          text NOT NULL,
			path                text NOT NULL,
			method              text NOT NULL,
			client_ip           text NOT NULL,
			request_limit       integer NOT NULL,
			window_seconds      integer NOT NULL,
			retry_after_seconds integer NOT NULL,
			denied_at           timestamptz NOT NULL
		)
	`

	_, err := p.pool.Exec(ctx, query)

	return err
}

func (p *Postgres) SaveDenied(ctx context.Context, event *analytics.DeniedEvent) error {
	query := `
		INSERT INTO denied_events
			(id, identifier, path, method, client_ip, request_limit, window_seconds, retry_after_seconds, denied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.Identifier,
		event.Path,
		event.Method,
		event.ClientIP,
		event.Limit,
		event.WindowSeconds,
		event.RetryAfterSeconds,
		event.DeniedAt,
	)

	return err
}

var _ analytics.Store = (*Postgres)(nil)
