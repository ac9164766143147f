//go:build !linux

package servo

import "errors"

// PCA9685 is not available on non-Linux platforms.
type PCA9685 struct{}

// NewPCA9685 returns an error on non-Linux platforms.
func NewPCA9685(busName string, addr uint16, channel int) (*PCA9685, error) {
	return nil, errors.New("servo: not supported on this platform (requires Linux)")
}

// Apply is not implemented on non-Linux platforms.
func (d *PCA9685) Apply(duty uint32) error {
	return errors.New("servo: not supported")
}

// Clamps is not implemented on non-Linux platforms.
func (d *PCA9685) Clamps() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (d *PCA9685) Close() error {
	return nil
}
