package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Ticker is a reprogrammable recurring countdown. Once armed with an
// interval it fires every interval until cancelled or reprogrammed.
// The next countdown is armed only after the callback returns, so fires
// never overlap and a stalled process never accumulates a backlog — at
// most one fire is pending at any time.
type Ticker struct {
	clk clock.Clock
	fn  func()

	mu       sync.Mutex
	timer    *clock.Timer
	gen      uint64
	interval time.Duration
}

// NewTicker creates a disabled ticker that invokes fn on every fire.
// fn runs on the clock's timer goroutine; it may call Reprogram or
// Cancel on this Ticker.
func NewTicker(clk clock.Clock, fn func()) *Ticker {
	return &Ticker{clk: clk, fn: fn}
}

// Reprogram atomically replaces the interval and restarts the countdown
// from now. An interval of 0 (or less) disables the ticker, like Cancel.
func (t *Ticker) Reprogram(interval time.Duration) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	if interval < 0 {
		interval = 0
	}
	t.interval = interval
	if interval > 0 {
		gen := t.gen
		t.timer = t.clk.AfterFunc(interval, func() { t.fire(gen) })
	}
	t.mu.Unlock()
}

// Cancel disables the ticker. Equivalent to Reprogram(0).
func (t *Ticker) Cancel() {
	t.Reprogram(0)
}

// Enabled reports whether the ticker has a recurring interval armed.
func (t *Ticker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval > 0
}

// Interval returns the current recurring interval (0 when disabled).
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *Ticker) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	// Arm the next cycle unless the callback (or a concurrent caller)
	// reprogrammed or cancelled the ticker while fn ran.
	t.mu.Lock()
	if gen == t.gen && t.interval > 0 {
		t.timer = t.clk.AfterFunc(t.interval, func() { t.fire(gen) })
	}
	t.mu.Unlock()
}
