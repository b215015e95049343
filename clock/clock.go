// Package clock implements the simulator's pausable virtual clock: a
// monotonic time source that can be paused and resumed without losing
// elapsed virtual time, with a single outstanding timeout.
//
// The stop/drain/reset discipline around the one *time.Timer is the same
// idiom the teacher repo reuses in every worker that re-arms a timer inside
// a select loop (resetTimer/drainTimer); here it anchors a pause/resume
// primitive instead of a retry backoff.
package clock

import (
	"sync"
	"time"

	"mcusim/types"
)

type pendingTimeout struct {
	callback func()
	endMs    int64
}

// Clock is a pausable monotonic virtual clock. now() advances with wall
// time while running and freezes while paused; a single pending timeout is
// supported, matching the Runner's "one outstanding sleep" usage.
type Clock struct {
	mu sync.Mutex

	timeOrigin time.Time
	elapsed    int64 // virtual ms, valid while paused
	running    bool

	timer   *time.Timer
	pending *pendingTimeout

	done chan struct{}

	// Diagnostics receives non-fatal warnings (e.g. a second setTimeout
	// while one is still unfired). Buffered, best-effort delivery — a full
	// channel drops the diagnostic rather than blocking the caller.
	Diagnostics chan types.Diagnostic
}

// New returns a running Clock anchored at the current wall time.
func New() *Clock {
	c := &Clock{
		timeOrigin:  time.Now(),
		running:     true,
		timer:       time.NewTimer(time.Hour),
		done:        make(chan struct{}),
		Diagnostics: make(chan types.Diagnostic, 8),
	}
	stopTimer(c.timer)
	go c.wait()
	return c
}

// Close stops the clock's background goroutine. The Clock must not be used
// afterward.
func (c *Clock) Close() {
	close(c.done)
}

func (c *Clock) wait() {
	for {
		select {
		case <-c.done:
			return
		case <-c.timer.C:
			c.fire()
		}
	}
}

func (c *Clock) fire() {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()
	if p != nil {
		p.callback()
	}
}

// Now returns the current virtual time in milliseconds.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() int64 {
	if c.running {
		return time.Since(c.timeOrigin).Milliseconds()
	}
	return c.elapsed
}

// Running reports whether the clock currently advances with wall time.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Pause freezes virtual time. The pending timeout's remaining delay is
// preserved; the real timer is stopped, not fired.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.elapsed = c.nowLocked()
	c.running = false
	stopTimer(c.timer)
}

// Start resumes virtual time from where Pause left it, rearming the real
// timer for whatever delay remains on a pending timeout.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	wallNow := time.Now()
	c.timeOrigin = wallNow.Add(-time.Duration(c.elapsed) * time.Millisecond)
	c.running = true
	if c.pending != nil {
		remaining := c.pending.endMs - c.elapsed
		if remaining < 0 {
			remaining = 0
		}
		resetTimer(c.timer, time.Duration(remaining)*time.Millisecond)
	}
}

// SetTimeout schedules callback to run once after delayMs of virtual time.
// Only one timeout may be pending at a time; scheduling a second while one
// is unfired replaces it and reports a diagnostic.
func (c *Clock) SetTimeout(callback func(), delayMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.emitDiagnosticLocked("clock_timeout_overwrite", "setTimeout called with a timeout already pending")
	}
	if delayMs < 0 {
		delayMs = 0
	}
	c.pending = &pendingTimeout{callback: callback, endMs: c.nowLocked() + delayMs}
	if c.running {
		resetTimer(c.timer, time.Duration(delayMs)*time.Millisecond)
	}
	// While paused, Start() arms the real timer for the remaining delay.
}

func (c *Clock) emitDiagnosticLocked(code, msg string) {
	d := types.Diagnostic{Code: code, Message: msg}
	select {
	case c.Diagnostics <- d:
	default:
	}
}

// resetTimer safely stops, drains, and reschedules a timer.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

// stopTimer stops a timer and drains any already-fired value, leaving it
// inert until the next Reset.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
