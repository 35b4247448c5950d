package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses a burst of calls into one: only the last function passed to Do runs, once
// no further call has arrived for the quiet period.
type Debouncer struct {
	mu     sync.Mutex
	period time.Duration
	timer  *time.Timer
	// generation identifies the most recently scheduled function. A timer that fires for an older
	// generation does nothing.
	generation uint64
}

// New creates a debouncer with the given quiet period.
func New(period time.Duration) *Debouncer {
	return &Debouncer{period: period}
}

// Do cancels the pending function, if any, and schedules f to run after the quiet period. The
// function runs on its own goroutine.
func (d *Debouncer) Do(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	generation := d.generation
	d.timer = time.AfterFunc(d.period, func() {
		d.mu.Lock()
		current := generation == d.generation
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			f()
		}
	})
}

// Stop cancels the pending function. It returns true if a function was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
