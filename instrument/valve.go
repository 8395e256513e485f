package instrument

import "github.jpl.nasa.gov/bdube/plcsim/hal"

// Valve status values.
const (
	ValveClosed  = "closed"
	ValveOpening = "opening"
	ValveOpen    = "open"
	ValveClosing = "closing"
	ValveHold    = "hold"
)

// ValveParams configures an on/off Valve instrument.
type ValveParams struct {
	OpenSpeedSec    float64 `mapstructure:"open_speed_sec"`
	CloseSpeedSec   float64 `mapstructure:"close_speed_sec"`
	HasHoldSolenoid bool    `mapstructure:"has_hold_solenoid"`
	HasReturnSpring bool    `mapstructure:"has_return_spring"`
	ValveType       string  `mapstructure:"valve_type"` // cosmetic: import|export
}

// Valve simulates an on/off valve driven by open/close/hold digital
// commands, optionally fitted with a hold solenoid or a spring return.
type Valve struct {
	Base
	params ValveParams

	positionPercent float64
	status          string

	openCmd  bool
	closeCmd bool
	holdCmd  bool
}

// NewValve constructs a Valve instrument, closed at rest.
func NewValve(id string, params ValveParams) *Valve {
	return &Valve{Base: NewBase(id, "valve"), params: params, status: ValveClosed}
}

func (v *Valve) ReadInputs(bus hal.Bus) error {
	v.Lock()
	defer v.Unlock()
	v.openCmd = v.readDigital(bus, "open_input", false)
	v.closeCmd = v.readDigital(bus, "close_input", false)
	v.holdCmd = v.readDigital(bus, "hold_input", false)
	return nil
}

func (v *Valve) Update(dt float64, links LinkReader) error {
	v.Lock()
	defer v.Unlock()

	pos := v.positionPercent
	switch {
	case v.params.HasHoldSolenoid && v.holdCmd:
		v.status = ValveHold
	case v.openCmd && !v.closeCmd:
		if pos < 100 {
			pos += (100 / v.params.OpenSpeedSec) * dt
			v.status = ValveOpening
		} else {
			v.status = ValveOpen
		}
	case v.closeCmd && !v.openCmd:
		if pos > 0 {
			pos -= (100 / v.params.CloseSpeedSec) * dt
			v.status = ValveClosing
		} else {
			v.status = ValveClosed
		}
	case v.params.HasReturnSpring && !v.openCmd && pos > 0:
		pos -= (100 / v.params.CloseSpeedSec) * dt
		v.status = ValveClosing
	default:
		switch {
		case pos <= 1:
			v.status = ValveClosed
		case pos >= 99:
			v.status = ValveOpen
		default:
			v.status = ValveHold
		}
	}
	v.positionPercent = clampPercent(pos)
	return nil
}

func (v *Valve) WriteOutputs(bus hal.Bus) error {
	// No hardware outputs are defined for the on/off valve.
	return nil
}

func (v *Valve) Snapshot() map[string]interface{} {
	v.Lock()
	defer v.Unlock()
	return map[string]interface{}{
		"position_percent": round2(v.positionPercent),
		"status":           v.status,
		"config":           v.params,
	}
}

func (v *Valve) StateValue(key string) (float64, bool) {
	v.Lock()
	defer v.Unlock()
	if key == "position_percent" {
		return v.positionPercent, true
	}
	return 0, false
}

func (v *Valve) SetParameter(name string, value interface{}) error {
	v.Lock()
	defer v.Unlock()
	switch name {
	case "open_speed_sec":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(v.id, name, "float64", value)
		}
		v.params.OpenSpeedSec = f
	case "close_speed_sec":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(v.id, name, "float64", value)
		}
		v.params.CloseSpeedSec = f
	case "has_hold_solenoid":
		b, ok := value.(bool)
		if !ok {
			return newTypeError(v.id, name, "bool", value)
		}
		v.params.HasHoldSolenoid = b
	case "has_return_spring":
		b, ok := value.(bool)
		if !ok {
			return newTypeError(v.id, name, "bool", value)
		}
		v.params.HasReturnSpring = b
	case "valve_type":
		s, ok := value.(string)
		if !ok {
			return newTypeError(v.id, name, "string", value)
		}
		v.params.ValveType = s
	default:
		return newUnknownParameterError(v.id, name)
	}
	return nil
}

func (v *Valve) Reset() {
	v.Lock()
	defer v.Unlock()
	v.positionPercent = 0
	v.status = ValveClosed
	v.openCmd, v.closeCmd, v.holdCmd = false, false, false
}

var _ Instrument = (*Valve)(nil)
