package hal

import (
	"sync"
)

type pinDir int

const (
	dirUnconfigured pinDir = iota
	dirOutput
	dirInput
)

// Mock is an in-memory Bus with identical semantics to Real: a mock DAC
// stores the last commanded value, a mock ADC returns a configurable
// per-channel voltage (default 0), and a mock GPIO maintains a
// pin-to-value map. It is installed automatically when binding to real
// hardware fails, and can also be constructed directly for tests.
type Mock struct {
	sync.Mutex
	pinDirs  map[int]pinDir
	pinVals  map[int]bool
	dacMA    map[int]float64
	adcVolts map[int]map[int]float64
}

// NewMock constructs an empty Mock bus.
func NewMock() *Mock {
	return &Mock{
		pinDirs:  make(map[int]pinDir),
		pinVals:  make(map[int]bool),
		dacMA:    make(map[int]float64),
		adcVolts: make(map[int]map[int]float64),
	}
}

// SetMockVoltage is a test/diagnostic hook absent from the Bus
// interface: it primes the voltage a subsequent ADCReadVoltage or
// ADCReadCurrentMA will observe on (address, channel).
func (m *Mock) SetMockVoltage(address, channel int, volts float64) {
	m.Lock()
	defer m.Unlock()
	ch, ok := m.adcVolts[address]
	if !ok {
		ch = make(map[int]float64)
		m.adcVolts[address] = ch
	}
	ch[channel] = volts
}

// SetMockDigital is a test/diagnostic hook absent from the Bus
// interface: it drives the value a subsequent Read will observe on
// pin, regardless of its configured direction, standing in for an
// external signal (e.g. a PLC-driven command line) in tests.
func (m *Mock) SetMockDigital(pin int, level bool) {
	m.Lock()
	defer m.Unlock()
	m.pinVals[pin] = level
}

func (m *Mock) SetupOutput(pin int, initial bool) error {
	m.Lock()
	defer m.Unlock()
	m.pinDirs[pin] = dirOutput
	m.pinVals[pin] = initial
	return nil
}

func (m *Mock) SetupInput(pin int, pull Pull) error {
	m.Lock()
	defer m.Unlock()
	m.pinDirs[pin] = dirInput
	if _, ok := m.pinVals[pin]; !ok {
		m.pinVals[pin] = pull == PullUp
	}
	return nil
}

func (m *Mock) Write(pin int, level bool) error {
	m.Lock()
	defer m.Unlock()
	dir, ok := m.pinDirs[pin]
	if !ok {
		return &ErrPinNotConfigured{Pin: pin}
	}
	if dir != dirOutput {
		return &ErrWrongDirection{Pin: pin, Wanted: "output", Configured: "input"}
	}
	m.pinVals[pin] = level
	return nil
}

func (m *Mock) Read(pin int) (bool, error) {
	m.Lock()
	defer m.Unlock()
	dir, ok := m.pinDirs[pin]
	if !ok {
		return false, &ErrPinNotConfigured{Pin: pin}
	}
	if dir != dirInput {
		return false, &ErrWrongDirection{Pin: pin, Wanted: "input", Configured: "output"}
	}
	return m.pinVals[pin], nil
}

func (m *Mock) DACSetCurrentMA(address int, mA float64) error {
	m.Lock()
	defer m.Unlock()
	m.dacMA[address] = ClampMilliamps(mA)
	return nil
}

func (m *Mock) ADCReadVoltage(address int, channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	ch, ok := m.adcVolts[address]
	if !ok {
		return 0, nil
	}
	return ch[channel], nil
}

func (m *Mock) ADCReadCurrentMA(address int, channel int) (float64, error) {
	v, err := m.ADCReadVoltage(address, channel)
	if err != nil {
		return 0, err
	}
	return VoltsToMilliamps(v), nil
}

func (m *Mock) IsMock() bool { return true }

func (m *Mock) Cleanup() error {
	m.Lock()
	defer m.Unlock()
	m.pinDirs = make(map[int]pinDir)
	m.pinVals = make(map[int]bool)
	m.dacMA = make(map[int]float64)
	m.adcVolts = make(map[int]map[int]float64)
	return nil
}

var _ Bus = (*Mock)(nil)
