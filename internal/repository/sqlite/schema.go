package sqlite

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS offline_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		captured_at TEXT NOT NULL,
		enqueued_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS operator_identity (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		cached_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agent_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

// Migrate creates the agent tables if they do not exist.
func Migrate(ctx context.Context, db *database.SQLiteDB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
