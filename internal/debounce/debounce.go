// Package debounce coalesces bursts of triggers into a single trailing call.
// The vault saver, the sibling-asset resolver and the external-change rescan
// all fire on every keystroke or event; the Debouncer makes sure the
// expensive work runs once, after the burst settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once delay has elapsed since the last Trigger. Each
// Trigger resets the timer. The callback runs on a timer goroutine; it is
// never invoked concurrently with itself through this Debouncer.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	run     sync.Mutex
}

// New returns a Debouncer around fn. A zero or negative delay still defers
// the call to a timer goroutine, which keeps callers non-blocking.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn to run after the delay, replacing any pending run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = true
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.run.Lock()
	defer d.run.Unlock()
	d.fn()
}

// Stop drops any pending run. It does not wait for a run already started.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}

// Flush runs fn immediately if a run is pending, then returns once it has
// finished. Used on shutdown so a debounced save is not lost.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.mu.Unlock()

	d.run.Lock()
	defer d.run.Unlock()
	d.fn()
}
