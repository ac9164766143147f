//go:build linux

package servo

import (
	"fmt"
	"log"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// ServoFrequency is the PWM frequency for standard hobby servos.
const ServoFrequency = 50 * physic.Hertz

// PCA9685 drives the gate servo through a PCA9685 PWM controller on I2C.
type PCA9685 struct {
	bus     i2c.BusCloser
	dev     *pca9685.Dev
	channel int
	clamps  atomic.Uint64
}

// NewPCA9685 opens the named I2C bus (empty string selects the first
// available bus) and configures the PCA9685 at the given address for
// 50Hz servo output on the given channel.
func NewPCA9685(busName string, addr uint16, channel int) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init pca9685 at %#x: %w", addr, err)
	}

	if err := dev.SetPwmFreq(ServoFrequency); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}

	return &PCA9685{
		bus:     bus,
		dev:     dev,
		channel: channel,
	}, nil
}

// Apply clamps duty to the safe range and writes it to the servo channel.
func (d *PCA9685) Apply(duty uint32) error {
	clamped, wasClamped := Clamp(duty)
	if wasClamped {
		d.clamps.Add(1)
		log.Printf("servo: duty %d outside [%d, %d], clamped to %d", duty, MinDuty, MaxDuty, clamped)
	}

	// Pulse starts at tick 0 and ends at tick `clamped` of the 4096-step cycle.
	if err := d.dev.SetPwm(d.channel, 0, gpio.Duty(clamped)); err != nil {
		return fmt.Errorf("set pwm channel %d: %w", d.channel, err)
	}
	return nil
}

// Clamps returns the number of clamped writes since startup.
func (d *PCA9685) Clamps() uint64 {
	return d.clamps.Load()
}

// Close stops the output and releases the I2C bus.
func (d *PCA9685) Close() error {
	if err := d.dev.SetFullOff(d.channel); err != nil {
		d.bus.Close()
		return fmt.Errorf("stop pwm channel %d: %w", d.channel, err)
	}
	if err := d.bus.Close(); err != nil {
		return fmt.Errorf("close i2c bus: %w", err)
	}
	return nil
}
