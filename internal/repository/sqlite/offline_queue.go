package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/codec"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

type offlineQueueRepository struct {
	db *database.SQLiteDB
}

// Push implements tracking.QueueRepository.
func (r *offlineQueueRepository) Push(ctx context.Context, sample tracking.LocationSample, enqueuedAt time.Time, capacity int) (int, error) {
	payload, err := codec.Marshal(sample)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", tracking.ErrQueueEncode, err)
	}

	var evicted int
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO offline_queue (sample_id, payload, captured_at, enqueued_at)
			VALUES (?, ?, ?, ?)`,
			sample.ID, payload,
			sample.CapturedAt.UTC().Format(time.RFC3339Nano),
			enqueuedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}

		if capacity <= 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM offline_queue
			WHERE id NOT IN (
				SELECT id FROM offline_queue ORDER BY id DESC LIMIT ?
			)`, capacity)
		if err != nil {
			return fmt.Errorf("failed to evict queue entries: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count evicted entries: %w", err)
		}
		evicted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return evicted, nil
}

// Peek implements tracking.QueueRepository.
func (r *offlineQueueRepository) Peek(ctx context.Context, limit int) ([]tracking.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payload, enqueued_at
		FROM offline_queue
		ORDER BY id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	defer rows.Close()

	var (
		entries []tracking.QueueEntry
		corrupt []int64
	)
	for rows.Next() {
		var (
			entry      tracking.QueueEntry
			payload    []byte
			enqueuedAt string
		)
		if err := rows.Scan(&entry.ID, &payload, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		if err := codec.Unmarshal(payload, &entry.Sample); err != nil {
			slog.Warn("Dropping undecodable queue entry", "id", entry.ID, "error", err)
			corrupt = append(corrupt, entry.ID)
			continue
		}
		entry.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue: %w", err)
	}
	rows.Close()

	// A payload that cannot be decoded can never be uploaded.
	for _, id := range corrupt {
		if err := r.Delete(ctx, id); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Delete implements tracking.QueueRepository.
func (r *offlineQueueRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete queue entry %d: %w", id, err)
	}
	return nil
}

// Count implements tracking.QueueRepository.
func (r *offlineQueueRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func NewOfflineQueueRepository(db *database.SQLiteDB) tracking.QueueRepository {
	return &offlineQueueRepository{db: db}
}
