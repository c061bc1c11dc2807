package platform

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/utils"
)

// SimulatedLocation is a GNSS stand-in for hosts without a receiver. Each
// fresh fix takes a random step of up to StepMeters from the previous one.
type SimulatedLocation struct {
	StepMeters float64
	FixDelay   time.Duration

	mu   sync.Mutex
	last tracking.Position
	rng  *rand.Rand
	now  func() time.Time
}

func NewSimulatedLocation(originLat, originLon float64) *SimulatedLocation {
	return &SimulatedLocation{
		StepMeters: 15,
		last:       tracking.Position{Latitude: originLat, Longitude: originLon},
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:        time.Now,
	}
}

// CurrentPosition implements LocationProvider.
func (s *SimulatedLocation) CurrentPosition(ctx context.Context, req LocationRequest) (tracking.Position, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	s.mu.Lock()
	if req.MaxAge > 0 && !s.last.CapturedAt.IsZero() && s.now().Sub(s.last.CapturedAt) <= req.MaxAge {
		p := s.last
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	if s.FixDelay > 0 {
		select {
		case <-time.After(s.FixDelay):
		case <-ctx.Done():
			return tracking.Position{}, fmt.Errorf("%w: %v", tracking.ErrPositionUnavailable, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return tracking.Position{}, fmt.Errorf("%w: %v", tracking.ErrPositionUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	north := (s.rng.Float64()*2 - 1) * s.StepMeters
	east := (s.rng.Float64()*2 - 1) * s.StepMeters
	lat, lon := utils.OffsetMeters(s.last.Latitude, s.last.Longitude, north, east)

	accuracy := 5 + s.rng.Float64()*5
	if req.Accuracy == AccuracyBalanced {
		accuracy = 20 + s.rng.Float64()*30
	}

	s.last = tracking.Position{
		Latitude:   lat,
		Longitude:  lon,
		Altitude:   s.last.Altitude,
		Accuracy:   accuracy,
		Speed:      s.rng.Float64() * 1.5,
		Heading:    s.rng.Float64() * 360,
		CapturedAt: s.now(),
	}
	return s.last, nil
}
