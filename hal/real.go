package hal

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// dacRegisterWrite and the ADC command byte below follow the register
// layout of a generic MCP4725-class DAC and ADS1115-class ADC, the same
// class of device the board's analog I/O expects.
const (
	dacRegisterWrite = 0x40
	adcRegisterConv  = 0x00
	adcFullScale     = 4.096 // volts, matches a +/-4.096V PGA setting
)

// Real is a Bus backed by periph.io's host drivers: digital pins are
// resolved through gpioreg, analog devices are addressed over I²C buses
// opened through i2creg.
type Real struct {
	sync.Mutex
	bus     i2c.BusCloser
	pins    map[int]gpio.PinIO
	pinDirs map[int]pinDir
	pinVals map[int]bool
}

// NewReal binds to the host's default I²C bus and returns a Real Bus.
// It does not resolve GPIO pins eagerly; those are bound lazily in
// SetupOutput/SetupInput since periph only knows pin names, not the
// bare numbers the configuration format uses, until gpioreg is asked.
func NewReal() (*Real, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "hal: periph host.Init failed")
	}
	b, err := i2creg.Open("")
	if err != nil {
		return nil, errors.Wrap(err, "hal: no I2C bus available")
	}
	return &Real{
		bus:     b,
		pins:    make(map[int]gpio.PinIO),
		pinDirs: make(map[int]pinDir),
		pinVals: make(map[int]bool),
	}, nil
}

func (r *Real) resolvePin(pin int) (gpio.PinIO, error) {
	if p, ok := r.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, fmt.Errorf("hal: no GPIO pin registered with name %d", pin)
	}
	r.pins[pin] = p
	return p, nil
}

func (r *Real) SetupOutput(pin int, initial bool) error {
	r.Lock()
	defer r.Unlock()
	p, err := r.resolvePin(pin)
	if err != nil {
		return err
	}
	lvl := gpio.Low
	if initial {
		lvl = gpio.High
	}
	if err := p.Out(lvl); err != nil {
		return errors.Wrapf(err, "hal: failed to configure pin %d as output", pin)
	}
	r.pinDirs[pin] = dirOutput
	r.pinVals[pin] = initial
	return nil
}

func (r *Real) SetupInput(pin int, pull Pull) error {
	r.Lock()
	defer r.Unlock()
	p, err := r.resolvePin(pin)
	if err != nil {
		return err
	}
	var gpull gpio.Pull
	switch pull {
	case PullUp:
		gpull = gpio.PullUp
	case PullDown:
		gpull = gpio.PullDown
	default:
		gpull = gpio.Float
	}
	if err := p.In(gpull, gpio.NoEdge); err != nil {
		return errors.Wrapf(err, "hal: failed to configure pin %d as input", pin)
	}
	r.pinDirs[pin] = dirInput
	return nil
}

func (r *Real) Write(pin int, level bool) error {
	r.Lock()
	defer r.Unlock()
	dir, ok := r.pinDirs[pin]
	if !ok {
		return &ErrPinNotConfigured{Pin: pin}
	}
	if dir != dirOutput {
		return &ErrWrongDirection{Pin: pin, Wanted: "output", Configured: "input"}
	}
	p := r.pins[pin]
	lvl := gpio.Low
	if level {
		lvl = gpio.High
	}
	if err := p.Out(lvl); err != nil {
		return errors.Wrapf(err, "hal: write to pin %d failed", pin)
	}
	r.pinVals[pin] = level
	return nil
}

func (r *Real) Read(pin int) (bool, error) {
	r.Lock()
	defer r.Unlock()
	dir, ok := r.pinDirs[pin]
	if !ok {
		return false, &ErrPinNotConfigured{Pin: pin}
	}
	if dir != dirInput {
		return false, &ErrWrongDirection{Pin: pin, Wanted: "input", Configured: "output"}
	}
	p := r.pins[pin]
	return p.Read() == gpio.High, nil
}

// DACSetCurrentMA writes the 12-bit code corresponding to mA (clamped
// to [4,20]) to the DAC at address, following the MCP4725 write-DAC-
// register format: a 3-byte payload of the command byte followed by
// the 12-bit value left-justified across two bytes.
func (r *Real) DACSetCurrentMA(address int, mA float64) error {
	r.Lock()
	defer r.Unlock()
	volts := MilliampsToVolts(ClampMilliamps(mA))
	code := uint16((volts / Vref) * 4095)
	w := []byte{dacRegisterWrite, byte(code >> 4), byte(code << 4)}
	dev := &i2c.Dev{Bus: r.bus, Addr: uint16(address)}
	if err := dev.Tx(w, nil); err != nil {
		return errors.Wrapf(err, "hal: DAC write to address %#x failed", address)
	}
	return nil
}

// ADCReadVoltage reads a conversion register from the ADC at address,
// following the ADS1115 convention of channel select via a config
// write followed by a 2-byte big-endian conversion read.
func (r *Real) ADCReadVoltage(address int, channel int) (float64, error) {
	r.Lock()
	defer r.Unlock()
	dev := &i2c.Dev{Bus: r.bus, Addr: uint16(address)}
	w := []byte{adcRegisterConv, byte(channel)}
	read := make([]byte, 2)
	if err := dev.Tx(w, read); err != nil {
		return 0, errors.Wrapf(err, "hal: ADC read from address %#x channel %d failed", address, channel)
	}
	raw := int16(uint16(read[0])<<8 | uint16(read[1]))
	return (float64(raw) / 32768.0) * adcFullScale, nil
}

func (r *Real) ADCReadCurrentMA(address int, channel int) (float64, error) {
	v, err := r.ADCReadVoltage(address, channel)
	if err != nil {
		return 0, err
	}
	return VoltsToMilliamps(v), nil
}

func (r *Real) IsMock() bool { return false }

func (r *Real) Cleanup() error {
	r.Lock()
	defer r.Unlock()
	r.pins = make(map[int]gpio.PinIO)
	r.pinDirs = make(map[int]pinDir)
	r.pinVals = make(map[int]bool)
	return r.bus.Close()
}

var _ Bus = (*Real)(nil)
