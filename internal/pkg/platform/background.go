package platform

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// LoopRegistry runs background tasks as in-process goroutines. Liveness is
// judged from a heartbeat written after every run, so a task that is stuck
// or was killed reports as dead even though it is still registered.
type LoopRegistry struct {
	mu    sync.Mutex
	tasks map[string]*loopTask
	now   func() time.Time
}

type loopTask struct {
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
	heartbeat atomic.Int64
}

func NewLoopRegistry() *LoopRegistry {
	return &LoopRegistry{tasks: make(map[string]*loopTask), now: time.Now}
}

// Register implements BackgroundTasks. Registering an existing name
// replaces the previous task.
func (r *LoopRegistry) Register(name string, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		interval = time.Minute
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tasks[name]; ok {
		old.stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &loopTask{interval: interval, cancel: cancel, done: make(chan struct{})}
	task.beat(r.now())
	r.tasks[name] = task

	go func() {
		defer close(task.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
				task.beat(r.now())
			}
		}
	}()

	slog.Debug("Background task registered", "name", name, "interval", interval)
	return nil
}

// Unregister implements BackgroundTasks. Unknown names are ignored.
func (r *LoopRegistry) Unregister(name string) error {
	r.mu.Lock()
	task, ok := r.tasks[name]
	delete(r.tasks, name)
	r.mu.Unlock()

	if ok {
		task.stop()
		slog.Debug("Background task unregistered", "name", name)
	}
	return nil
}

// Alive implements BackgroundTasks.
func (r *LoopRegistry) Alive(name string) bool {
	r.mu.Lock()
	task, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case <-task.done:
		return false
	default:
	}

	last := time.Unix(0, task.heartbeat.Load())
	return r.now().Sub(last) <= 2*task.interval+time.Second
}

// Kill stops a task's goroutine but leaves it registered, the way a host OS
// reclaims a background slot without telling the app.
func (r *LoopRegistry) Kill(name string) {
	r.mu.Lock()
	task, ok := r.tasks[name]
	r.mu.Unlock()
	if ok {
		task.stop()
		slog.Warn("Background task killed", "name", name)
	}
}

// Names lists registered tasks, dead or alive.
func (r *LoopRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close unregisters every task.
func (r *LoopRegistry) Close() {
	for _, name := range r.Names() {
		_ = r.Unregister(name)
	}
}

func (t *loopTask) beat(at time.Time) {
	t.heartbeat.Store(at.UnixNano())
}

func (t *loopTask) stop() {
	t.cancel()
	<-t.done
}
