package platform

import "sync/atomic"

// AppState tracks whether an interactive client is in the foreground. The
// agent starts backgrounded; the control API flips it.
type AppState struct {
	foreground atomic.Bool
}

func NewAppState() *AppState {
	return &AppState{}
}

func (a *AppState) SetForeground(foreground bool) {
	a.foreground.Store(foreground)
}

// Backgrounded implements AppStateProvider.
func (a *AppState) Backgrounded() bool {
	return !a.foreground.Load()
}
