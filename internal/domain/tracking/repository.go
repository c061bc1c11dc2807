package tracking

import (
	"context"
	"time"
)

// QueueRepository is the durable backing store of the offline queue.
type QueueRepository interface {
	// Push appends an entry and then evicts the oldest entries so that at
	// most capacity remain. Returns how many entries were evicted.
	Push(ctx context.Context, sample LocationSample, enqueuedAt time.Time, capacity int) (evicted int, err error)

	// Peek returns up to limit entries, oldest first.
	Peek(ctx context.Context, limit int) ([]QueueEntry, error)

	// Delete removes a single entry after a confirmed upload.
	Delete(ctx context.Context, id int64) error

	Count(ctx context.Context) (int, error)
}

// IdentityRepository persists the last known operator identity so that
// background delivery can attribute samples after the process restarts.
type IdentityRepository interface {
	Save(ctx context.Context, identity Identity) error

	// Load returns ErrIdentityMissing when nothing is cached.
	Load(ctx context.Context) (Identity, error)

	Clear(ctx context.Context) error
}

// StateRepository holds the durable "should be tracking" flag.
type StateRepository interface {
	SetTracking(ctx context.Context, tracking bool) error
	ShouldTrack(ctx context.Context) (bool, error)
}

// SampleRepository is the collector-side store of received samples.
type SampleRepository interface {
	// Create stores a sample. Returns ErrSampleExists when the sample ID was
	// already recorded.
	Create(ctx context.Context, sample LocationSample) error

	ListByEmail(ctx context.Context, email string, filter SampleFilter) ([]LocationSample, error)
}
