package status

import (
	"sync"
	"sync/atomic"
	"time"
)

// Delay used to coalesce the burst of events an editor produces on save
const DefaultDebounceDelay = 150 * time.Millisecond

// debouncer runs fn once per key after the key has been quiet for delay.
// Triggering a key again before it fires restarts its timer.
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	delay    time.Duration
	fn       func(key string)
	stopping atomic.Bool
}

func newDebouncer(delay time.Duration, fn func(key string)) *debouncer {
	return &debouncer{
		timers: make(map[string]*time.Timer),
		delay:  delay,
		fn:     fn,
	}
}

// Trigger schedules fn for key. It returns false once the debouncer is stopped.
func (d *debouncer) Trigger(key string) bool {
	if d.stopping.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping.Load() {
		return false
	}

	// A failed Reset means the timer already fired and fire() owns the entry
	if t, ok := d.timers[key]; ok && t.Reset(d.delay) {
		return true
	}

	d.timers[key] = time.AfterFunc(d.delay, func() { d.fire(key) })
	return true
}

func (d *debouncer) fire(key string) {
	d.mu.Lock()
	_, ok := d.timers[key]
	delete(d.timers, key)
	d.mu.Unlock()

	if ok && !d.stopping.Load() {
		d.fn(key)
	}
}

// Stop cancels pending calls; nothing runs after Stop returns
func (d *debouncer) Stop() {
	d.stopping.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = make(map[string]*time.Timer)
}

// Pending returns the number of scheduled keys
func (d *debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
