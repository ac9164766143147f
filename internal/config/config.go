// Package config holds the feeder's runtime-tunable configuration and the
// servo's last commanded duty behind a single mutex. Configuration is
// volatile: it is built from flags at startup and lost on restart.
package config

import (
	"fmt"
	"time"

	"github.com/sweeney/pet-feeder/internal/servo"
)

// DefaultResetDelay is how long the gate stays at the feed position
// before the reset timer returns it to rest.
const DefaultResetDelay = 2 * time.Second

// FeederConfig is the runtime-tunable feeder configuration.
type FeederConfig struct {
	// RestDuty is the gate's safe resting position.
	RestDuty uint32

	// FeedDuty is the gate's position during an active feeding.
	FeedDuty uint32

	// ResetDelay is how long after an actuation the gate returns to rest.
	// Always > 0.
	ResetDelay time.Duration

	// AutoFeedMinutes is the unattended feeding period in minutes.
	// 0 disables the recurring schedule. Never negative.
	AutoFeedMinutes int
}

// Default returns the stock configuration.
func Default() FeederConfig {
	return FeederConfig{
		RestDuty:        servo.DefaultRestDuty,
		FeedDuty:        servo.DefaultFeedDuty,
		ResetDelay:      DefaultResetDelay,
		AutoFeedMinutes: 0,
	}
}

// ValidationError reports a rejected configuration change. The store is
// unchanged when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func validateDuty(field string, duty uint32) error {
	if duty < servo.MinDuty || duty > servo.MaxDuty {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("duty %d outside [%d, %d]", duty, servo.MinDuty, servo.MaxDuty),
		}
	}
	return nil
}

func validateResetDelay(d time.Duration) error {
	if d <= 0 {
		return &ValidationError{
			Field:  "reset_delay",
			Reason: fmt.Sprintf("delay %v must be positive", d),
		}
	}
	return nil
}

func validateAutoFeedMinutes(m int) error {
	if m < 0 {
		return &ValidationError{
			Field:  "auto_feed_minutes",
			Reason: fmt.Sprintf("interval %d must not be negative", m),
		}
	}
	return nil
}
