package permission

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
)

// Remediator routes the operator to the permission screen. Requests made
// before the navigation layer is ready are queued and delivered in order
// once MarkReady is called.
type Remediator struct {
	nav platform.Navigator

	mu      sync.Mutex
	ready   bool
	pending [][]string
}

func NewRemediator(nav platform.Navigator) *Remediator {
	return &Remediator{nav: nav}
}

// Request asks for the remediation screen listing the missing capabilities.
func (r *Remediator) Request(ctx context.Context, missing []string) {
	if r == nil || r.nav == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		r.pending = append(r.pending, append([]string(nil), missing...))
		slog.Debug("Navigation not ready, remediation queued", "pending", len(r.pending))
		return
	}
	r.show(ctx, missing)
}

// MarkReady flushes queued requests oldest first. Later requests go
// straight to the navigator.
func (r *Remediator) MarkReady(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ready = true
	flushed := len(r.pending)
	for _, missing := range r.pending {
		r.show(ctx, missing)
	}
	r.pending = nil
	return flushed
}

// MarkNotReady queues subsequent requests again, e.g. while the navigation
// layer is torn down.
func (r *Remediator) MarkNotReady() {
	r.mu.Lock()
	r.ready = false
	r.mu.Unlock()
}

func (r *Remediator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Remediator) show(ctx context.Context, missing []string) {
	if err := r.nav.ShowPermissionScreen(ctx, missing); err != nil {
		slog.Warn("Failed to show permission screen", "error", err)
	}
}
