package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS cafes (
		id             BIGINT PRIMARY KEY,
		name           TEXT NOT NULL,
		map_url        TEXT NOT NULL DEFAULT '',
		img_url        TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL DEFAULT '',
		seats          TEXT NOT NULL DEFAULT '',
		has_toilet     BOOLEAN NOT NULL DEFAULT false,
		has_wifi       BOOLEAN NOT NULL DEFAULT false,
		has_sockets    BOOLEAN NOT NULL DEFAULT false,
		can_take_calls BOOLEAN NOT NULL DEFAULT false,
		coffee_price   TEXT,
		revision       BIGINT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),

		CONSTRAINT uq_cafes_name UNIQUE (name)
	);

	CREATE TABLE IF NOT EXISTS update_requests (
		id             BIGINT PRIMARY KEY,
		cafe_id        BIGINT NOT NULL,
		name           TEXT,
		location       TEXT,
		coffee_price   TEXT,
		seats          TEXT,
		map_url        TEXT,
		img_url        TEXT,
		has_toilet     BOOLEAN,
		has_wifi       BOOLEAN,
		has_sockets    BOOLEAN,
		can_take_calls BOOLEAN,
		status         TEXT NOT NULL DEFAULT 'pending',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_update_requests_cafe
		ON update_requests (cafe_id);

	CREATE INDEX IF NOT EXISTS idx_update_requests_pending
		ON update_requests (created_at, id) WHERE status = 'pending';
`

// RunMigrations creates the cafes and update_requests tables. It is safe to
// run on every start.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
