// Package debounce runs keyed callbacks after a quiet period.
//
// Every key holds at most one pending callback. Scheduling a key again
// replaces the pending callback and restarts its timer, so only the last
// write within a window runs.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// Debouncer schedules keyed callbacks.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*pending
	gen     uint64
	stopped bool
}

func New() *Debouncer {
	return &Debouncer{pending: make(map[string]*pending)}
}

// Schedule runs fn after delay unless key is scheduled, cancelled or
// flushed again before then.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.gen++
	gen := d.gen
	p := &pending{fn: fn, gen: gen}
	p.timer = time.AfterFunc(delay, func() { d.fire(key, gen) })
	d.pending[key] = p
}

// Cancel drops the pending callback for key. It reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending callback for key immediately on the calling
// goroutine. It reports whether a callback ran.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	p.fn()
	return true
}

// Pending reports whether key has a scheduled callback.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending callback and rejects future schedules.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	// a timer that fired while a newer schedule was being installed loses
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	p.fn()
}
