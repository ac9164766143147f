package servo

import "sync"

// Fake is a test double that records applied duty values.
// Safe for concurrent use, since the controller applies duties from both
// command handlers and scheduler callbacks.
type Fake struct {
	mu sync.Mutex

	// applied contains every duty written, after clamping.
	applied []uint32

	// raw contains duty values as requested, before clamping.
	raw []uint32

	clamps uint64

	// ApplyError, if set, is returned by Apply. The write is not recorded.
	ApplyError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake driver for testing.
func NewFake() *Fake {
	return &Fake{}
}

// Apply records the clamped duty value.
func (f *Fake) Apply(duty uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ApplyError != nil {
		return f.ApplyError
	}

	clamped, wasClamped := Clamp(duty)
	if wasClamped {
		f.clamps++
	}
	f.raw = append(f.raw, duty)
	f.applied = append(f.applied, clamped)
	return nil
}

// Applied returns a copy of all duty values written so far, after clamping.
func (f *Fake) Applied() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.applied))
	copy(out, f.applied)
	return out
}

// Raw returns a copy of all duty values as requested, before clamping.
func (f *Fake) Raw() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.raw))
	copy(out, f.raw)
	return out
}

// Last returns the most recently applied duty, or false if nothing was applied.
func (f *Fake) Last() (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applied) == 0 {
		return 0, false
	}
	return f.applied[len(f.applied)-1], true
}

// LastDuty returns the most recently applied duty, or 0 if nothing was
// applied yet. Scenario tests use this where "was anything applied" is
// not in question; Last distinguishes the two.
func (f *Fake) LastDuty() uint32 {
	last, _ := f.Last()
	return last
}

// Clamps returns the number of clamped writes.
func (f *Fake) Clamps() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clamps
}

// Close marks the driver as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = nil
	f.raw = nil
	f.clamps = 0
	f.ApplyError = nil
	f.Closed = false
}
