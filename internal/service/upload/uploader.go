package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
)

type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
	return o
}

// Uploader delivers samples to the collector, retrying a bounded number of
// times before spilling to the offline queue.
type Uploader struct {
	sender tracking.Sender
	queue  *OfflineQueue
	opts   Options

	wg      sync.WaitGroup
	sent    atomic.Int64
	queued  atomic.Int64
	dropped atomic.Int64
}

func NewUploader(sender tracking.Sender, queue *OfflineQueue, opts Options) *Uploader {
	return &Uploader{sender: sender, queue: queue, opts: opts.withDefaults()}
}

// Send uploads one sample. Samples without an identity are refused. After
// MaxAttempts failed attempts the sample is handed to the offline queue and
// ErrUploadFailed is returned. A sample the collector rejects is not retried
// but is still queued, so the queue decides its fate like any other failure.
func (u *Uploader) Send(ctx context.Context, sample tracking.LocationSample) error {
	if !sample.Attributed() {
		u.dropped.Add(1)
		slog.Warn("Refusing to upload sample without operator identity", "sample_id", sample.ID)
		return tracking.ErrIdentityMissing
	}

	err := u.deliver(ctx, sample)
	if err == nil {
		u.sent.Add(1)
		slog.Debug("Sample uploaded", "sample_id", sample.ID, "source", sample.Source)
		return nil
	}

	// The sample outlives a cancelled session.
	if qerr := u.queue.Enqueue(context.WithoutCancel(ctx), sample); qerr != nil {
		u.dropped.Add(1)
		return fmt.Errorf("%w: %v (queue: %v)", tracking.ErrUploadFailed, err, qerr)
	}
	u.queued.Add(1)
	slog.Info("Upload failed, sample queued offline", "sample_id", sample.ID, "error", err)
	return fmt.Errorf("%w: %v", tracking.ErrUploadFailed, err)
}

// Dispatch runs Send on its own goroutine so the caller never waits on the
// network.
func (u *Uploader) Dispatch(ctx context.Context, sample tracking.LocationSample) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		_ = u.Send(ctx, sample)
	}()
}

// Wait blocks until every dispatched upload has finished.
func (u *Uploader) Wait() {
	u.wg.Wait()
}

// Drain retries queued samples with a single attempt each. Any failure,
// rejection included, ends the pass and keeps the entry. The returned count
// is the number of samples the collector accepted.
func (u *Uploader) Drain(ctx context.Context) (int, error) {
	n, err := u.queue.DrainAttempt(ctx, u.sender.Send)
	u.sent.Add(int64(n))
	return n, err
}

func (u *Uploader) Queue() *OfflineQueue {
	return u.queue
}

type Stats struct {
	Sent    int64
	Queued  int64
	Dropped int64
}

func (u *Uploader) Stats() Stats {
	return Stats{
		Sent:    u.sent.Load(),
		Queued:  u.queued.Load(),
		Dropped: u.dropped.Load() + u.queue.Dropped() + u.queue.Evicted(),
	}
}

func (u *Uploader) deliver(ctx context.Context, sample tracking.LocationSample) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.opts.InitialInterval
	b.MaxInterval = u.opts.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(u.opts.MaxAttempts-1)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := u.sender.Send(ctx, sample)
		if errors.Is(err, tracking.ErrUploadRejected) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("Upload attempt failed, retrying", "sample_id", sample.ID, "attempt", attempt, "wait", wait, "error", err)
	}

	return backoff.RetryNotify(op, policy, notify)
}
