package instrument

import "github.jpl.nasa.gov/bdube/plcsim/hal"

// RegValveParams configures a RegValve (regulating valve) instrument.
type RegValveParams struct {
	ValveType        string  `mapstructure:"valve_type"` // cosmetic: LVRA|LVRD
	OpenSpeedSec     float64 `mapstructure:"open_speed_sec"`
	CloseSpeedSec    float64 `mapstructure:"close_speed_sec"`
	MinPosition20Pct bool    `mapstructure:"min_position_20_pct"`
	FeedbackType     string  `mapstructure:"feedback_type"` // switch|analog
}

// RegValve simulates a proportionally positioned regulating valve whose
// throttled position determines the pressure drop a linked pump sees
// as back-pressure.
type RegValve struct {
	Base
	params RegValveParams

	positionPercent float64
	setpointPercent float64
	openCmd         bool
	holdCmd         bool
	atClosedLimit   bool
	pressureBar     float64
}

// NewRegValve constructs a RegValve instrument, closed at rest.
func NewRegValve(id string, params RegValveParams) *RegValve {
	return &RegValve{Base: NewBase(id, "reg_valve"), params: params, pressureBar: 10, atClosedLimit: true}
}

func (r *RegValve) ReadInputs(bus hal.Bus) error {
	r.Lock()
	defer r.Unlock()
	r.openCmd = r.readDigital(bus, "open_input", false)
	r.holdCmd = r.readDigital(bus, "hold_input", false)
	r.setpointPercent = r.readAnalogVoltsPercent(bus, "setpoint_input", 0)
	return nil
}

func (r *RegValve) Update(dt float64, links LinkReader) error {
	r.Lock()
	defer r.Unlock()

	target := r.setpointPercent
	if r.params.MinPosition20Pct && r.setpointPercent > 0 && target < 20 {
		target = 20
	}

	if !r.holdCmd {
		rate := r.params.OpenSpeedSec
		if target < r.positionPercent {
			rate = r.params.CloseSpeedSec
		}
		ratePerSec := 0.0
		if rate > 0 {
			ratePerSec = 100 / rate
		}
		r.positionPercent = clampPercent(rampToward(r.positionPercent, target, ratePerSec, dt))
	}

	r.atClosedLimit = r.positionPercent < 5

	if r.positionPercent > 0 {
		r.pressureBar = 2 * (1 - r.positionPercent/100)
	} else {
		r.pressureBar = 10
	}
	return nil
}

func (r *RegValve) WriteOutputs(bus hal.Bus) error {
	r.Lock()
	closedLimit := r.atClosedLimit
	pos := r.positionPercent
	r.Unlock()

	r.writeDigital(bus, "closed_limit_output", closedLimit)
	r.writeAnalogCurrent(bus, "position_output", 4+(pos/100)*16)
	return nil
}

func (r *RegValve) Snapshot() map[string]interface{} {
	r.Lock()
	defer r.Unlock()
	return map[string]interface{}{
		"position_percent": round2(r.positionPercent),
		"setpoint_percent": round2(r.setpointPercent),
		"at_closed_limit":  r.atClosedLimit,
		"pressure_bar":     round2(r.pressureBar),
		"config":           r.params,
	}
}

func (r *RegValve) StateValue(key string) (float64, bool) {
	r.Lock()
	defer r.Unlock()
	switch key {
	case "position_percent":
		return r.positionPercent, true
	case "setpoint_percent":
		return r.setpointPercent, true
	case "pressure_bar":
		return r.pressureBar, true
	}
	return 0, false
}

func (r *RegValve) SetParameter(name string, value interface{}) error {
	r.Lock()
	defer r.Unlock()
	switch name {
	case "valve_type":
		s, ok := value.(string)
		if !ok {
			return newTypeError(r.id, name, "string", value)
		}
		r.params.ValveType = s
	case "open_speed_sec":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(r.id, name, "float64", value)
		}
		r.params.OpenSpeedSec = f
	case "close_speed_sec":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(r.id, name, "float64", value)
		}
		r.params.CloseSpeedSec = f
	case "min_position_20_pct":
		b, ok := value.(bool)
		if !ok {
			return newTypeError(r.id, name, "bool", value)
		}
		r.params.MinPosition20Pct = b
	case "feedback_type":
		s, ok := value.(string)
		if !ok {
			return newTypeError(r.id, name, "string", value)
		}
		r.params.FeedbackType = s
	default:
		return newUnknownParameterError(r.id, name)
	}
	return nil
}

func (r *RegValve) Reset() {
	r.Lock()
	defer r.Unlock()
	r.positionPercent = 0
	r.setpointPercent = 0
	r.openCmd, r.holdCmd = false, false
	r.atClosedLimit = true
	r.pressureBar = 10
}

var _ Instrument = (*RegValve)(nil)
