//go:build linux

package button

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the button from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealReader requests the button line on actual Raspberry Pi hardware.
// The line is configured as input with the internal pull-up enabled, so
// the button only needs to short the pin to ground.
func NewRealReader(pin int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealReader{chip: chip, line: line}, nil
}

// Pressed returns whether the button is held down.
// Inverts raw GPIO: raw 0 (shorted to ground) = pressed.
func (r *RealReader) Pressed() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return raw == 0, nil
}

// Close releases GPIO resources. The pin is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing so the line is in
// a clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
