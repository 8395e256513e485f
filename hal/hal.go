/*Package hal provides a uniform hardware abstraction layer over digital
GPIO pins and I²C-addressed analog DAC/ADC devices.

The layer exposes a single capability set, Bus, and binds to it with two
implementations: Real, backed by periph.io's host drivers, and Mock, an
in-memory stand-in with identical semantics. NewBus probes for real
hardware and transparently falls back to the mock, so the rest of the
kernel depends only on the Bus interface and never knows which backend
it is holding.
*/
package hal

import (
	"fmt"
)

// Pull mirrors the pull-resistor configuration of a digital input pin.
type Pull int

// Pull states for a digital input.
const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Vref is the reference voltage of the 4-20mA current loop wiring: the
// DAC/ADC operate on 0-Vref volts, externally converted to/from a 4-20mA
// loop by the board's transmitter/receiver circuitry.
const Vref = 3.3

// MilliampsToVolts maps a commanded loop current to the DAC voltage that
// produces it, per the board's 4-20mA transmitter scaling.
func MilliampsToVolts(mA float64) float64 {
	return ((mA - 4) / 16) * Vref
}

// VoltsToMilliamps maps a measured voltage to the loop current it
// represents, the ADC-side inverse of MilliampsToVolts.
func VoltsToMilliamps(volts float64) float64 {
	return 4 + (volts/Vref)*16
}

// ClampMilliamps restricts a commanded current to the loop's valid range.
func ClampMilliamps(mA float64) float64 {
	if mA < 4 {
		return 4
	}
	if mA > 20 {
		return 20
	}
	return mA
}

// Bus is the capability set the rest of the kernel depends on. It is
// implemented by Real (periph.io-backed) and Mock.
type Bus interface {
	// SetupOutput marks pin as a digital output and drives initial.
	// Idempotent within a session.
	SetupOutput(pin int, initial bool) error

	// SetupInput marks pin as a digital input with the given pull
	// configuration. Idempotent within a session.
	SetupInput(pin int, pull Pull) error

	// Write drives a previously-configured output pin.
	Write(pin int, level bool) error

	// Read samples a previously-configured input pin.
	Read(pin int) (bool, error)

	// DACSetCurrentMA commands a 4-20mA DAC device at the given I²C
	// address to output the given loop current, clamped to [4,20].
	DACSetCurrentMA(address int, mA float64) error

	// ADCReadVoltage samples a channel of an ADC device at the given
	// I²C address, in volts.
	ADCReadVoltage(address int, channel int) (float64, error)

	// ADCReadCurrentMA is ADCReadVoltage re-expressed as a loop current.
	ADCReadCurrentMA(address int, channel int) (float64, error)

	// IsMock reports whether this Bus is backed by the mock
	// implementation rather than real hardware.
	IsMock() bool

	// Cleanup releases all configured pins and device handles.
	// Subsequent operations fail until the pins are set up again.
	Cleanup() error
}

// ErrPinNotConfigured is returned by Read/Write when the pin was never
// passed to SetupInput/SetupOutput.
type ErrPinNotConfigured struct {
	Pin int
}

func (e *ErrPinNotConfigured) Error() string {
	return fmt.Sprintf("hal: pin %d was not configured before use", e.Pin)
}

// ErrWrongDirection is returned when a pin configured as an input is
// written, or a pin configured as an output is read.
type ErrWrongDirection struct {
	Pin        int
	Wanted     string
	Configured string
}

func (e *ErrWrongDirection) Error() string {
	return fmt.Sprintf("hal: pin %d is configured as %s, cannot be used as %s", e.Pin, e.Configured, e.Wanted)
}
