package progress

import (
	"context"
	"sync"
	"time"

	"kycflow/pkg/domain"
)

// Runner drives a Tracker from a real timer. It owns the ticker for one
// verification session and guarantees it is released when the session
// completes, is abandoned, or the context is cancelled.
type Runner struct {
	mu      sync.Mutex
	tracker *Tracker

	interval    time.Duration
	settleDelay time.Duration

	onChange func([]domain.ProcessingStep)
	onDone   func()

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRunner wires callbacks to a fresh tracker. onChange fires after every
// transition with a snapshot of the stage list; onDone fires exactly once when
// the settle tick lands. Either callback may be nil.
func NewRunner(interval, settleDelay time.Duration, onChange func([]domain.ProcessingStep), onDone func()) *Runner {
	return &Runner{
		tracker:     NewTracker(),
		interval:    interval,
		settleDelay: settleDelay,
		onChange:    onChange,
		onDone:      onDone,
		stopCh:      make(chan struct{}),
	}
}

// Run blocks until the tracker finishes, Stop is called, or ctx is cancelled.
// The ticker is always released on exit.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			if r.tick(ticker) {
				return
			}
		}
	}
}

// tick applies one timer event under the lock; returns true when the session
// is finished and the runner should exit.
func (r *Runner) tick(ticker *time.Ticker) bool {
	r.mu.Lock()
	fired := r.tracker.Tick()
	settling := r.tracker.Settling()
	snapshot := r.tracker.Steps()
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(snapshot)
	}
	if settling {
		// All stages completed; the one remaining tick is the settle delay.
		ticker.Reset(r.settleDelay)
	}
	if fired {
		if r.onDone != nil {
			r.onDone()
		}
		return true
	}
	return false
}

// ResultArrived forwards the real result event to the tracker.
func (r *Runner) ResultArrived() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracker.ResultArrived()
}

// Snapshot returns the current stage list.
func (r *Runner) Snapshot() []domain.ProcessingStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker.Steps()
}

// Done reports whether the terminal signal has fired.
func (r *Runner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker.Done()
}

// Stop halts the runner and releases its timer. Safe to call multiple times
// and from any goroutine.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}
