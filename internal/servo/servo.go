// Package servo drives the feeding gate servo through a PWM duty value.
// The real implementation talks to a PCA9685 PWM controller over I2C.
// The fake implementation allows testing without hardware.
package servo

// Duty values on the PCA9685 4096-step scale at 50Hz.
// MinDuty ≈ 0.5ms pulse, MaxDuty ≈ 2.5ms pulse — the mechanical limits
// of the gate servo. Values outside this range are clamped, never
// written raw: an out-of-range pulse can stall the servo against the
// housing and burn it out.
const (
	MinDuty uint32 = 102
	MaxDuty uint32 = 512

	// DefaultRestDuty holds the gate closed (≈1.5ms, center).
	DefaultRestDuty uint32 = 307
	// DefaultFeedDuty opens the gate for a feeding (≈1.25ms).
	DefaultFeedDuty uint32 = 256
)

// Driver applies a PWM duty value to the gate servo.
type Driver interface {
	// Apply writes the duty value to hardware. The value is clamped to
	// [MinDuty, MaxDuty] first; clamping is logged and counted, not an
	// error. An error means the hardware write itself failed.
	Apply(duty uint32) error

	// Close releases the PWM device.
	Close() error
}

// ClampCounter is implemented by drivers that count clamped writes.
// Checked with a type assertion by status consumers.
type ClampCounter interface {
	// Clamps returns the number of Apply calls that required clamping.
	Clamps() uint64
}

// Clamp forces duty into [MinDuty, MaxDuty]. The second return value
// reports whether clamping changed the value.
func Clamp(duty uint32) (uint32, bool) {
	if duty < MinDuty {
		return MinDuty, true
	}
	if duty > MaxDuty {
		return MaxDuty, true
	}
	return duty, false
}
