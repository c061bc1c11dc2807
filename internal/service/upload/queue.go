package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
)

const DefaultQueueCapacity = 50

// OfflineQueue is the bounded FIFO of samples that could not be uploaded.
// Overflow evicts the oldest entry; newer data is worth more than older.
type OfflineQueue struct {
	repo     tracking.QueueRepository
	capacity int
	now      func() time.Time

	drainMu sync.Mutex
	evicted atomic.Int64
	dropped atomic.Int64
}

func NewOfflineQueue(repo tracking.QueueRepository, capacity int) *OfflineQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &OfflineQueue{repo: repo, capacity: capacity, now: time.Now}
}

// Enqueue persists a sample. A sample that cannot be encoded or stored is
// logged and dropped; the error is returned for the caller's accounting
// only.
func (q *OfflineQueue) Enqueue(ctx context.Context, sample tracking.LocationSample) error {
	evicted, err := q.repo.Push(ctx, sample, q.now(), q.capacity)
	if err != nil {
		q.dropped.Add(1)
		slog.Error("Failed to queue sample, dropping it", "sample_id", sample.ID, "error", err)
		return err
	}

	if evicted > 0 {
		q.evicted.Add(int64(evicted))
		slog.Warn("Offline queue full, evicted oldest samples", "evicted", evicted, "capacity", q.capacity)
	}
	slog.Debug("Sample queued offline", "sample_id", sample.ID)
	return nil
}

// DrainAttempt walks the queue oldest first, handing each sample to
// deliver. Entries are removed only after deliver succeeds, and the walk
// stops at the first failure so ordering is preserved for the next pass.
// Returns the number of samples delivered.
func (q *OfflineQueue) DrainAttempt(ctx context.Context, deliver func(ctx context.Context, sample tracking.LocationSample) error) (int, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	entries, err := q.repo.Peek(ctx, q.capacity)
	if err != nil {
		return 0, fmt.Errorf("failed to read offline queue: %w", err)
	}

	sent := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := deliver(ctx, entry.Sample); err != nil {
			slog.Debug("Drain stopped at first failure", "sample_id", entry.Sample.ID, "delivered", sent, "error", err)
			return sent, err
		}
		if err := q.repo.Delete(ctx, entry.ID); err != nil {
			return sent, fmt.Errorf("failed to remove delivered sample: %w", err)
		}
		sent++
	}

	if sent > 0 {
		slog.Info("Offline queue drained", "delivered", sent)
	}
	return sent, nil
}

// Len returns the number of queued samples, or 0 if the store is
// unreadable.
func (q *OfflineQueue) Len(ctx context.Context) int {
	n, err := q.repo.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count offline queue", "error", err)
		return 0
	}
	return n
}

func (q *OfflineQueue) Capacity() int {
	return q.capacity
}

// Evicted and Dropped count overflow evictions and persistence failures.
func (q *OfflineQueue) Evicted() int64 { return q.evicted.Load() }
func (q *OfflineQueue) Dropped() int64 { return q.dropped.Load() }
