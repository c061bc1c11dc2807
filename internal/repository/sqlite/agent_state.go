package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

const keyShouldTrack = "should_track"

type agentStateRepository struct {
	db  *database.SQLiteDB
	now func() time.Time
}

// SetTracking implements tracking.StateRepository.
func (r *agentStateRepository) SetTracking(ctx context.Context, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		keyShouldTrack, strconv.FormatBool(enabled), r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to persist tracking flag: %w", err)
	}
	return nil
}

// ShouldTrack implements tracking.StateRepository.
func (r *agentStateRepository) ShouldTrack(ctx context.Context) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM agent_state WHERE key = ?`, keyShouldTrack,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read tracking flag: %w", err)
	}

	should, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse tracking flag %q: %w", value, err)
	}
	return should, nil
}

func NewAgentStateRepository(db *database.SQLiteDB) tracking.StateRepository {
	return &agentStateRepository{db: db, now: time.Now}
}
