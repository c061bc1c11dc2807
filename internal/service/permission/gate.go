package permission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
)

// Gate owns the PermissionState snapshot. Readers get the cached snapshot
// until it is older than the TTL, after which the provider is queried
// again. A failed query fails closed.
type Gate struct {
	provider platform.PermissionProvider
	ttl      time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	state     tracking.PermissionState
	fetchedAt time.Time
	valid     bool
}

func NewGate(provider platform.PermissionProvider, ttl time.Duration, now func() time.Time) *Gate {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{provider: provider, ttl: ttl, now: now}
}

// Status returns the current snapshot, refreshing it when stale.
func (g *Gate) Status(ctx context.Context) tracking.PermissionState {
	g.mu.RLock()
	state, fetchedAt, valid := g.state, g.fetchedAt, g.valid
	g.mu.RUnlock()

	if valid && g.now().Sub(fetchedAt) < g.ttl {
		return state
	}
	return g.Refresh(ctx)
}

// Refresh queries the provider and replaces the snapshot.
func (g *Gate) Refresh(ctx context.Context) tracking.PermissionState {
	state, err := g.provider.Query(ctx)
	if err != nil {
		slog.Warn("Permission query failed, treating as denied", "error", err)
		state = deniedState(g.now())
	}
	if state.CheckedAt.IsZero() {
		state.CheckedAt = g.now()
	}

	g.store(state)
	return state
}

// RequestAll drives the consent flow and reports whether every capability
// ended up granted. It may block while the operator responds.
func (g *Gate) RequestAll(ctx context.Context) (bool, error) {
	state, err := g.provider.Request(ctx)
	if err != nil {
		g.store(deniedState(g.now()))
		return false, err
	}
	if state.CheckedAt.IsZero() {
		state.CheckedAt = g.now()
	}

	g.store(state)
	return state.AllGranted(), nil
}

// Invalidate forces the next Status call to query the provider.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.valid = false
	g.mu.Unlock()
}

func (g *Gate) store(state tracking.PermissionState) {
	g.mu.Lock()
	prev, hadPrev := g.state, g.valid
	g.state = state
	g.fetchedAt = g.now()
	g.valid = true
	g.mu.Unlock()

	if hadPrev && prev.AllGranted() != state.AllGranted() {
		slog.Info("Location permission changed", "granted", state.AllGranted(), "missing", state.Missing())
	}
}

func deniedState(at time.Time) tracking.PermissionState {
	return tracking.PermissionState{
		ForegroundLocation: tracking.PermissionDenied,
		BackgroundLocation: tracking.PermissionDenied,
		LocationServices:   tracking.PermissionDenied,
		CheckedAt:          at,
	}
}
