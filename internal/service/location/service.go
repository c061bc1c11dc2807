package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/sse"
)

// EventSampleRecorded is published to the operator's topic for every newly
// stored sample.
const EventSampleRecorded = "sample"

type locationServiceImpl struct {
	sampleRepo tracking.SampleRepository
	hub        *sse.Hub
}

func NewLocationService(sampleRepo tracking.SampleRepository, hub *sse.Hub) tracking.CollectorService {
	return &locationServiceImpl{
		sampleRepo: sampleRepo,
		hub:        hub,
	}
}

// Record implements tracking.CollectorService. The boolean is false when the
// sample ID had already been recorded; that case is still a success so that
// an agent retrying after a lost response drains its queue.
func (s *locationServiceImpl) Record(ctx context.Context, email string, req tracking.UploadSampleRequest) (tracking.SampleResponse, bool, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return tracking.SampleResponse{}, false, err
	}

	if req.Email != strings.ToLower(email) {
		return tracking.SampleResponse{}, false, tracking.ErrIdentityMismatch
	}
	if req.Source == "" {
		req.Source = tracking.SourceScheduler
	}

	sample := req.LocationSample
	sample.CapturedAt = sample.CapturedAt.UTC()

	if err := s.sampleRepo.Create(ctx, sample); err != nil {
		if errors.Is(err, tracking.ErrSampleExists) {
			slog.Debug("Duplicate sample ignored", "sample_id", sample.ID, "email", sample.Email)
			return tracking.NewSampleResponse(sample), false, nil
		}
		return tracking.SampleResponse{}, false, fmt.Errorf("failed to record sample: %w", err)
	}

	resp := tracking.NewSampleResponse(sample)
	s.hub.Publish(sample.Email, sse.Event{Event: EventSampleRecorded, Data: resp})
	return resp, true, nil
}

// ListMine implements tracking.CollectorService.
func (s *locationServiceImpl) ListMine(ctx context.Context, email string, filter tracking.SampleFilter) ([]tracking.SampleResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	samples, err := s.sampleRepo.ListByEmail(ctx, strings.ToLower(email), filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}

	responses := make([]tracking.SampleResponse, 0, len(samples))
	for _, sample := range samples {
		responses = append(responses, tracking.NewSampleResponse(sample))
	}
	return responses, nil
}

// Subscribe implements tracking.CollectorService.
func (s *locationServiceImpl) Subscribe(ctx context.Context, email string) (<-chan sse.Event, func()) {
	return s.hub.Subscribe(strings.ToLower(email))
}
