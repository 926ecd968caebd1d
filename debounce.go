package checklist

import (
	"sync"
	"time"
)

// A Debouncer runs a function once, a fixed delay after the most recent call
// to Schedule. At most one run is pending at any time: scheduling again
// before the delay expires pushes the run back instead of queueing another.
//
// The function runs on its own goroutine. Stop waits for it to return.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // generation of the pending timer; older timers do nothing
	stopped bool

	wg sync.WaitGroup
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Schedule (re)starts the delay. It returns false if the debouncer is stopped.
func (d *Debouncer) Schedule() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.cancel()
	d.gen++
	gen := d.gen
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
	return true
}

func (d *Debouncer) fire(gen uint64) {
	defer d.wg.Done()
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Cancel drops the pending run, if any, and reports whether there was one.
// A run that has already started is not interrupted.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel()
}

// cancel requires d.mu.
func (d *Debouncer) cancel() bool {
	if d.timer == nil {
		return false
	}
	if d.timer.Stop() {
		// The timer's goroutine will never start.
		d.wg.Done()
	}
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush runs the pending function now, on the calling goroutine, and reports
// whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.cancel() {
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()
	d.fn()
	return true
}

// Stop drops the pending run and waits for a started run to finish. A
// stopped debouncer never runs the function again.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
}
