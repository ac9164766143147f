package button

import (
	"testing"
	"time"
)

// run feeds samples at a fixed poll interval and returns the number of
// presses reported.
func run(t *testing.T, d *Debouncer, samples []bool, poll time.Duration) int {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	presses := 0
	for i, down := range samples {
		if d.Process(down, now.Add(time.Duration(i)*poll)) {
			presses++
		}
	}
	return presses
}

func TestBaselineBeforePresses(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	// Held down from startup: must not count as a press.
	presses := run(t, d, []bool{true, true, true, true, true}, 20*time.Millisecond)
	if presses != 0 {
		t.Errorf("held-at-boot counted as %d presses", presses)
	}
	if !d.IsBaselined() {
		t.Error("expected baselined after stable samples")
	}
	if !d.Down() {
		t.Error("expected stable state down")
	}
}

func TestSinglePress(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	samples := []bool{
		false, false, false, false, // baseline up (established at 40ms... 50ms window)
		false,             // baselined
		true, true, true,  // press held through debounce
		true,              // press reported here
		false, false, false, false, // release
	}
	presses := run(t, d, samples, 20*time.Millisecond)
	if presses != 1 {
		t.Errorf("expected exactly 1 press, got %d", presses)
	}
}

func TestBounceIgnored(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	samples := []bool{
		false, false, false, false, // baseline up
		true, false, true, false, // contact bounce, never stable
		false, false,
	}
	presses := run(t, d, samples, 20*time.Millisecond)
	if presses != 0 {
		t.Errorf("bounce counted as %d presses", presses)
	}
}

func TestNoRepeatWhileHeld(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	samples := []bool{
		false, false, false, false, // baseline
		true, true, true, true, // press
		true, true, true, true, true, true, // held a long time
	}
	presses := run(t, d, samples, 20*time.Millisecond)
	if presses != 1 {
		t.Errorf("holding the button produced %d presses, want 1", presses)
	}
}

func TestTwoDistinctPresses(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	samples := []bool{
		false, false, false, false, // baseline
		true, true, true, true, // press 1
		false, false, false, false, // release
		true, true, true, true, // press 2
		false, false, false, false,
	}
	presses := run(t, d, samples, 20*time.Millisecond)
	if presses != 2 {
		t.Errorf("expected 2 presses, got %d", presses)
	}
}

func TestReleaseIsSilent(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Baseline down, then a debounced release: no press event.
	step := 20 * time.Millisecond
	i := 0
	next := func(down bool) bool {
		got := d.Process(down, now.Add(time.Duration(i)*step))
		i++
		return got
	}

	for j := 0; j < 4; j++ {
		next(true)
	}
	if !d.IsBaselined() {
		t.Fatal("expected baselined")
	}
	for j := 0; j < 5; j++ {
		if next(false) {
			t.Fatal("release reported as a press")
		}
	}
	if d.Down() {
		t.Error("expected stable state up after release")
	}
}
