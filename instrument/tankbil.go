package instrument

import "github.jpl.nasa.gov/bdube/plcsim/hal"

// TankbilParams configures a Tankbil (tank-truck safety interlock)
// instrument.
type TankbilParams struct {
	DeadmanEnabled bool `mapstructure:"deadman_enabled"`
}

// Tankbil simulates a tank-truck loading safety interlock: ground
// strap and overfill sensor inputs combined with an operator deadman
// button that must be pressed periodically to keep the system armed.
type Tankbil struct {
	Base
	params TankbilParams

	groundOK       bool
	overfillOK     bool
	deadmanPressed bool
	deadmanTimer   float64
	deadmanWarning bool
	systemSafe     bool

	testGroundCmd   bool
	testOverfillCmd bool
}

// NewTankbil constructs a Tankbil instrument, unsafe at rest until its
// inputs are read.
func NewTankbil(id string, params TankbilParams) *Tankbil {
	return &Tankbil{Base: NewBase(id, "tankbil"), params: params}
}

func (t *Tankbil) ReadInputs(bus hal.Bus) error {
	t.Lock()
	defer t.Unlock()
	t.groundOK = t.readDigital(bus, "ground_ok_input", false)
	t.overfillOK = t.readDigital(bus, "overfill_ok_input", false)
	t.deadmanPressed = t.readDigital(bus, "deadman_input", false)
	return nil
}

func (t *Tankbil) Update(dt float64, links LinkReader) error {
	t.Lock()
	defer t.Unlock()

	if t.params.DeadmanEnabled {
		if t.deadmanPressed {
			t.deadmanTimer = 0
		} else {
			t.deadmanTimer += dt
		}
		t.deadmanWarning = t.deadmanTimer > 2
	} else {
		t.deadmanTimer = 0
		t.deadmanWarning = false
	}

	t.systemSafe = t.groundOK && t.overfillOK &&
		(!t.params.DeadmanEnabled || t.deadmanTimer < 5)
	return nil
}

func (t *Tankbil) WriteOutputs(bus hal.Bus) error {
	t.Lock()
	warning := t.deadmanWarning
	testGround := t.testGroundCmd
	testOverfill := t.testOverfillCmd
	t.testGroundCmd = false
	t.testOverfillCmd = false
	t.Unlock()

	t.writeDigital(bus, "test_ground_output", testGround)
	t.writeDigital(bus, "test_overfill_output", testOverfill)
	t.writeDigital(bus, "deadman_warning_output", warning)
	return nil
}

func (t *Tankbil) Snapshot() map[string]interface{} {
	t.Lock()
	defer t.Unlock()
	return map[string]interface{}{
		"ground_ok":       t.groundOK,
		"overfill_ok":     t.overfillOK,
		"deadman_pressed": t.deadmanPressed,
		"deadman_timer":   round2(t.deadmanTimer),
		"deadman_warning": t.deadmanWarning,
		"system_safe":     t.systemSafe,
		"config":          t.params,
	}
}

func (t *Tankbil) StateValue(key string) (float64, bool) {
	t.Lock()
	defer t.Unlock()
	if key == "deadman_timer" {
		return t.deadmanTimer, true
	}
	return 0, false
}

func (t *Tankbil) SetParameter(name string, value interface{}) error {
	t.Lock()
	defer t.Unlock()
	if name != "deadman_enabled" {
		return newUnknownParameterError(t.id, name)
	}
	b, ok := value.(bool)
	if !ok {
		return newTypeError(t.id, name, "bool", value)
	}
	t.params.DeadmanEnabled = b
	return nil
}

// TriggerTestGround latches the ground-test output high for the next
// WriteOutputs call, then auto-clears.
func (t *Tankbil) TriggerTestGround() {
	t.Lock()
	defer t.Unlock()
	t.testGroundCmd = true
}

// TriggerTestOverfill latches the overfill-test output high for the
// next WriteOutputs call, then auto-clears.
func (t *Tankbil) TriggerTestOverfill() {
	t.Lock()
	defer t.Unlock()
	t.testOverfillCmd = true
}

func (t *Tankbil) Reset() {
	t.Lock()
	defer t.Unlock()
	t.groundOK = false
	t.overfillOK = false
	t.deadmanPressed = false
	t.deadmanTimer = 0
	t.deadmanWarning = false
	t.systemSafe = false
	t.testGroundCmd = false
	t.testOverfillCmd = false
}

var _ Instrument = (*Tankbil)(nil)
