//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"sigreplay/core"
)

var errPinRange = errors.New("GPIO pin out of range")

// RPGPIODriver implements core.GPIODriver over machine.Pin
type RPGPIODriver struct {
	clock core.Clock

	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin

	// Minimum microseconds between edges delivered to a handler
	debounce  map[core.GPIOPin]uint32
	lastEdge  map[core.GPIOPin]uint32
	edgeValid map[core.GPIOPin]bool
}

// NewRPGPIODriver creates a driver; clock timestamps edges for debouncing
func NewRPGPIODriver(clock core.Clock) *RPGPIODriver {
	return &RPGPIODriver{
		clock:          clock,
		configuredPins: make(map[core.GPIOPin]machine.Pin),
		debounce:       make(map[core.GPIOPin]uint32),
		lastEdge:       make(map[core.GPIOPin]uint32),
		edgeValid:      make(map[core.GPIOPin]bool),
	}
}

// SetDebounce drops edges on pin that follow the previous one within us.
// Must be called before SetEdgeInterrupt.
func (d *RPGPIODriver) SetDebounce(pin core.GPIOPin, us uint32) {
	d.debounce[pin] = us
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if pin > 29 {
		return errPinRange
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

// ConfigureInput configures a floating input
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		// Pin isn't configured - configure it first
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}

	machinePin.Set(value)
	return nil
}

// ReadPin reads the pin level; unconfigured pins read low
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}

// SetEdgeInterrupt calls handler from interrupt context on both edges
func (d *RPGPIODriver) SetEdgeInterrupt(pin core.GPIOPin, handler func()) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return errors.New("GPIO pin not configured as input")
	}

	window := d.debounce[pin]
	if window == 0 {
		return machinePin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
			handler()
		})
	}

	return machinePin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		now := d.clock.NowMicros()
		if d.edgeValid[pin] && now-d.lastEdge[pin] < window {
			return
		}
		d.lastEdge[pin] = now
		d.edgeValid[pin] = true
		handler()
	})
}
