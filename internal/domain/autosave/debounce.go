package autosave

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key into one trailing-edge
// callback. A new Fire for a key resets that key's timer; the callback
// runs only when the delay elapses with no further calls.
type Debouncer[K comparable] struct {
	mu      sync.Mutex
	delay   time.Duration
	timers  map[K]*time.Timer
	gens    map[K]uint64
	stopped bool
}

// NewDebouncer creates a debouncer with the given trailing delay.
func NewDebouncer[K comparable](delay time.Duration) *Debouncer[K] {
	return &Debouncer[K]{
		delay:  delay,
		timers: make(map[K]*time.Timer),
		gens:   make(map[K]uint64),
	}
}

// Fire schedules fn after the delay, cancelling any pending call for
// the same key. fn runs on the timer goroutine.
func (d *Debouncer[K]) Fire(key K, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.gens[key]++
	gen := d.gens[key]

	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later Fire or a Cancel moved the generation on; this
		// timer lost the race and must not run. The counter is never
		// reset, so a stale goroutine from an earlier epoch can
		// never alias a fresh generation of the same key.
		if d.stopped || d.gens[key] != gen {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending call for the key.
func (d *Debouncer[K]) Cancel(key K) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
	d.gens[key]++
}

// Stop cancels all pending calls and rejects further fires.
func (d *Debouncer[K]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}

// Pending reports the number of keys with a scheduled call.
func (d *Debouncer[K]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
