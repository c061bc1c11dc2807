package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS location_samples (
	id UUID PRIMARY KEY,
	user_email TEXT NOT NULL,
	user_role TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	altitude DOUBLE PRECISION NOT NULL DEFAULT 0,
	accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
	speed DOUBLE PRECISION NOT NULL DEFAULT 0,
	heading DOUBLE PRECISION NOT NULL DEFAULT 0,
	captured_at TIMESTAMPTZ NOT NULL,
	battery_level DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_background BOOLEAN NOT NULL DEFAULT FALSE,
	source TEXT NOT NULL DEFAULT '',
	device JSONB,
	working_hours JSONB,
	received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, `
CREATE INDEX IF NOT EXISTS idx_location_samples_email_captured
	ON location_samples (user_email, captured_at DESC)`,
}

// EnsureSchema creates the collector tables if they do not exist.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	return WithTransaction(ctx, db, func(ctx context.Context) error {
		q := GetQuerier(ctx, db)
		for _, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to ensure schema: %w", err)
			}
		}
		return nil
	})
}
