package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/service/upload"
)

// BackgroundDelivery handles a delivery slot invoked by the host outside
// the agent's normal lifetime. It relies only on durable state: the
// tracking flag, the cached identity and the offline queue.
type BackgroundDelivery struct {
	sampler  *Sampler
	uploader *upload.Uploader
	state    tracking.StateRepository
}

func NewBackgroundDelivery(deps Deps, opts Options) *BackgroundDelivery {
	return &BackgroundDelivery{
		sampler:  NewSampler(deps, opts),
		uploader: deps.Uploader,
		state:    deps.State,
	}
}

// RunOnce captures and uploads a single sample when tracking was active,
// then drains the offline queue if the collector is reachable. Returns
// nil when there is nothing to do.
func (b *BackgroundDelivery) RunOnce(ctx context.Context) error {
	should, err := b.state.ShouldTrack(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tracking flag: %w", err)
	}
	if !should {
		slog.Debug("Tracking not active, background delivery skipped")
		return nil
	}

	sample, err := b.sampler.Capture(ctx, tracking.SourceBackground)
	if err != nil {
		if gatingFailure(err) {
			slog.Info("Background delivery gated", "reason", err)
			return nil
		}
		return err
	}

	if err := b.uploader.Send(ctx, sample); err != nil {
		if errors.Is(err, tracking.ErrUploadFailed) {
			slog.Info("Background sample queued offline", "sample_id", sample.ID)
			return nil
		}
		return err
	}

	n, err := b.uploader.Drain(ctx)
	if err != nil {
		slog.Debug("Offline drain deferred", "delivered", n, "error", err)
	}
	return nil
}
