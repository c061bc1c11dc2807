package tracking

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/platform"
)

// Watchdog verifies that an Active session's background task and sampling
// scheduler are really running, and restarts whichever is not. It runs on
// its own scheduler so a dead sampler cannot take it down too.
type Watchdog struct {
	session  *Session
	tasks    platform.BackgroundTasks
	restarts atomic.Int64
	checks   atomic.Int64
}

func NewWatchdog(session *Session, tasks platform.BackgroundTasks) *Watchdog {
	return &Watchdog{session: session, tasks: tasks}
}

// Check is the watchdog job.
func (w *Watchdog) Check(ctx context.Context) error {
	defer w.checks.Add(1)

	if w.session.State() != tracking.StateActive {
		return nil
	}

	if !w.tasks.Alive(BackgroundTaskName) {
		slog.Warn("Background delivery task is not alive, restarting", "task", BackgroundTaskName)
		w.session.restartBackground()
		w.restarts.Add(1)
	}

	if w.session.jobsStalled() {
		slog.Warn("Sampling scheduler stalled, restarting")
		w.session.restartJobs()
		w.restarts.Add(1)
	}

	return nil
}

// Restarts counts recoveries since the process started.
func (w *Watchdog) Restarts() int64 {
	return w.restarts.Load()
}

// Checks counts completed Check runs.
func (w *Watchdog) Checks() int64 {
	return w.checks.Load()
}
