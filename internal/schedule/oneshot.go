// Package schedule provides the feeder's two countdowns: a one-shot that
// returns the gate to rest after an actuation, and a recurring ticker for
// unattended feeding. Both are built on a mockable clock so timing is
// testable without sleeping.
//
// Callbacks are delivered exactly once per armed cycle that reaches its
// deadline. A stale fire — one whose countdown was superseded by a newer
// Arm, Reprogram, or Cancel before it could run — is dropped, so there is
// never a window with two callbacks pending for the same countdown.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// OneShot is a restartable one-shot countdown. Arming while armed
// restarts the delay from now; countdowns never stack.
type OneShot struct {
	clk clock.Clock
	fn  func()

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64 // bumped on every Arm and Cancel; stale fires check it
	armed bool
}

// NewOneShot creates an idle one-shot that invokes fn when a countdown
// reaches its deadline. fn runs on the clock's timer goroutine and must
// not call Arm or Cancel on this OneShot.
func NewOneShot(clk clock.Clock, fn func()) *OneShot {
	return &OneShot{clk: clk, fn: fn}
}

// Arm cancels any pending countdown and starts a new one of duration d.
func (o *OneShot) Arm(d time.Duration) {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	gen := o.gen
	o.armed = true
	o.timer = o.clk.AfterFunc(d, func() { o.fire(gen) })
	o.mu.Unlock()
}

// Cancel stops a pending countdown without firing. A no-op when idle; a
// cancel that loses the race against an already-running callback is
// benign and changes nothing.
func (o *OneShot) Cancel() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.gen++
	o.armed = false
	o.mu.Unlock()
}

// Armed reports whether a countdown is pending.
func (o *OneShot) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}

func (o *OneShot) fire(gen uint64) {
	o.mu.Lock()
	if gen != o.gen {
		// Superseded by a newer Arm or a Cancel.
		o.mu.Unlock()
		return
	}
	o.armed = false
	o.mu.Unlock()

	o.fn()
}
