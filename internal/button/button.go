// Package button reads the front-panel feed button with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device. The fake implementation allows testing without hardware.
package button

// Reader reads the feed button state.
type Reader interface {
	// Pressed returns whether the button is held down. The raw GPIO
	// value is inverted: the button is wired active-low with a pull-up,
	// so raw 0 = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin the feed button is wired to.
const DefaultPin = 17
