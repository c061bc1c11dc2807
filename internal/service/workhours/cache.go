package workhours

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
)

// SettingsCache owns the current working-hours Window. Only Refresh replaces
// it; everyone else reads snapshots. Gating verdicts are memoized for a
// short TTL so a fast sampling tick does not re-evaluate every time.
type SettingsCache struct {
	source     workhours.SettingsSource
	verdictTTL time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	window    *workhours.Window
	verdict   Verdict
	verdictAt time.Time
}

func NewSettingsCache(source workhours.SettingsSource, verdictTTL time.Duration, now func() time.Time) *SettingsCache {
	if verdictTTL <= 0 {
		verdictTTL = 10 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &SettingsCache{
		source:     source,
		verdictTTL: verdictTTL,
		now:        now,
	}
}

// Refresh fetches the settings document and swaps in the new window. A
// failed fetch keeps the last good window; a stale schedule is preferable
// to none. Structural problems in the document are logged, but the window
// is still installed: malformed days fail closed in Evaluate.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	doc, err := c.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", workhours.ErrSettingsFetch, err)
	}

	if verr := doc.Validate(); verr != nil {
		slog.Warn("Settings document has invalid entries", "error", verr)
	}

	window := doc.ToWindow(c.now())

	c.mu.Lock()
	c.window = window
	c.verdictAt = time.Time{}
	c.mu.Unlock()

	slog.Debug("Working hours refreshed", "days", len(window.Days), "holidays", len(window.Holidays))
	return nil
}

// Window returns the current window, fetching it once if nothing has been
// loaded yet. Returns ErrScheduleMissing when no window is available.
func (c *SettingsCache) Window(ctx context.Context) (*workhours.Window, error) {
	c.mu.RLock()
	w := c.window
	c.mu.RUnlock()
	if w != nil {
		return w, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", workhours.ErrScheduleMissing, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window, nil
}

// Check returns the gating verdict for the current time, reusing a verdict
// computed within the TTL.
func (c *SettingsCache) Check(ctx context.Context) Verdict {
	now := c.now()

	c.mu.RLock()
	if !c.verdictAt.IsZero() && now.Sub(c.verdictAt) < c.verdictTTL && !now.Before(c.verdictAt) {
		v := c.verdict
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	var v Verdict
	window, err := c.Window(ctx)
	if err != nil {
		slog.Warn("Working hours unavailable, failing closed", "error", err)
		v = Verdict{Reason: ReasonNoSchedule}
	} else {
		v = Evaluate(now, window)
	}

	c.mu.Lock()
	c.verdict = v
	c.verdictAt = now
	c.mu.Unlock()

	return v
}

// Snapshot returns the schedule slice in effect at t, for attaching to a
// sample.
func (c *SettingsCache) Snapshot(t time.Time) workhours.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.SnapshotAt(t)
}
