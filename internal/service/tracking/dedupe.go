package tracking

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/utils"
)

// deduper drops a sample captured within window of the last accepted one
// and within distance meters of it. The scheduler tick and background
// delivery both feed the same deduper.
type deduper struct {
	window   time.Duration
	distance float64

	mu      sync.Mutex
	last    tracking.LocationSample
	hasLast bool
}

func newDeduper(window time.Duration, distance float64) *deduper {
	return &deduper{window: window, distance: distance}
}

func (d *deduper) accept(s tracking.LocationSample) bool {
	if d.window <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasLast {
		gap := s.CapturedAt.Sub(d.last.CapturedAt)
		if gap < 0 {
			gap = -gap
		}
		moved := utils.CalculateHaversineDistance(d.last.Latitude, d.last.Longitude, s.Latitude, s.Longitude)
		if gap < d.window && moved < d.distance {
			return false
		}
	}

	d.last = s
	d.hasLast = true
	return true
}
