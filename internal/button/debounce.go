package button

import "time"

// Debouncer turns raw button samples into discrete press events. A press
// is reported once the line has been stable down for the debounce period,
// and not again until the line has been stable up. Time is always
// injected via the sample timestamp; the Debouncer never sleeps.
//
// On startup the Debouncer first establishes a baseline: the line must
// hold one state for a full debounce period before transitions are
// reported. A button held down across boot does not produce a feed.
type Debouncer struct {
	debounce time.Duration

	// stable is the debounced state, true = down.
	stable bool
	// pending is a state observed but not yet stable.
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// NewDebouncer creates a Debouncer with the given debounce duration.
func NewDebouncer(debounce time.Duration) *Debouncer {
	return &Debouncer{debounce: debounce}
}

// Process consumes one sample and reports whether a completed press
// (a debounced up-to-down transition) occurred at this sample.
func (d *Debouncer) Process(down bool, now time.Time) bool {
	if !d.baselined {
		if !d.hasPending || d.pending != down {
			// Start (or restart) observing.
			d.pending = down
			d.hasPending = true
			d.pendingSince = now
			return false
		}
		if now.Sub(d.pendingSince) >= d.debounce {
			d.stable = down
			d.baselined = true
			d.hasPending = false
		}
		return false
	}

	if down == d.stable {
		// No change from stable state, clear any pending.
		d.hasPending = false
		return false
	}

	if !d.hasPending || d.pending != down {
		d.pending = down
		d.hasPending = true
		d.pendingSince = now
		return false
	}

	if now.Sub(d.pendingSince) >= d.debounce {
		d.stable = down
		d.hasPending = false
		// Only the down transition is a press; release is silent.
		return down
	}

	return false
}

// IsBaselined returns whether the debouncer has established a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// Down returns the current debounced state.
func (d *Debouncer) Down() bool {
	return d.stable
}
