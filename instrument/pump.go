package instrument

import (
	"github.jpl.nasa.gov/bdube/plcsim/hal"
	"github.jpl.nasa.gov/bdube/plcsim/util"
)

// Pump control types.
const (
	PumpControlDigital = "digital"
	PumpControlAnalog  = "analog"
)

// PumpParams configures a Pump instrument.
type PumpParams struct {
	ControlType    string  `mapstructure:"control_type"` // digital|analog
	MaxPressureBar float64 `mapstructure:"max_pressure_bar"`
	SetPressureBar float64 `mapstructure:"set_pressure_bar"`
	MaxFlowLPM     float64 `mapstructure:"max_flow_lpm"`
	RampTimeSec    float64 `mapstructure:"ramp_time_sec"`
}

// Pump simulates a centrifugal pump whose output pressure and flow are
// coupled to a linked regulating valve's back-pressure.
type Pump struct {
	Base
	params PumpParams

	running             bool
	currentSpeedPercent float64
	pressureBar         float64
	flowLPM             float64
	fault               bool

	enableCmd       bool
	speedCmdPercent float64
}

// NewPump constructs a Pump instrument, stopped at rest.
func NewPump(id string, params PumpParams) *Pump {
	return &Pump{Base: NewBase(id, "pump"), params: params}
}

func (p *Pump) ReadInputs(bus hal.Bus) error {
	p.Lock()
	defer p.Unlock()
	p.enableCmd = p.readDigital(bus, "enable_input", false)
	p.speedCmdPercent = p.readAnalogVoltsPercent(bus, "speed_cmd_input", 0)
	return nil
}

func (p *Pump) Update(dt float64, links LinkReader) error {
	p.Lock()
	defer p.Unlock()

	var target float64
	switch {
	case !p.enableCmd:
		target = 0
	case p.params.ControlType == PumpControlAnalog:
		target = p.speedCmdPercent
	default:
		target = 100
	}

	rate := 0.0
	if p.params.RampTimeSec > 0 {
		rate = 100 / p.params.RampTimeSec
	}
	p.currentSpeedPercent = rampToward(p.currentSpeedPercent, target, rate, dt)
	p.running = p.currentSpeedPercent > 1

	backPressure := 0.0
	if targetID, ok := p.link("reg_valve"); ok {
		if v, ok := links.StateValue(targetID, "pressure_bar"); ok {
			backPressure = v
		}
	}

	speedFactor := p.currentSpeedPercent / 100
	p.pressureBar = util.Clamp(p.params.SetPressureBar*speedFactor-0.5*backPressure, 0, p.params.MaxPressureBar)

	pressureDiff := p.pressureBar - backPressure
	if pressureDiff > 0 && p.params.MaxPressureBar > 0 {
		flow := (pressureDiff / p.params.MaxPressureBar) * p.params.MaxFlowLPM * speedFactor
		if flow > p.params.MaxFlowLPM {
			flow = p.params.MaxFlowLPM
		}
		p.flowLPM = flow
	} else {
		p.flowLPM = 0
	}

	p.fault = p.pressureBar >= p.params.MaxPressureBar
	return nil
}

func (p *Pump) WriteOutputs(bus hal.Bus) error {
	p.Lock()
	running := p.running
	fault := p.fault
	speed := p.currentSpeedPercent
	p.Unlock()

	p.writeDigital(bus, "running_output", running)
	p.writeDigital(bus, "fault_output", fault)
	p.writeAnalogCurrent(bus, "feedback_output", 4+(speed/100)*16)
	return nil
}

func (p *Pump) Snapshot() map[string]interface{} {
	p.Lock()
	defer p.Unlock()
	return map[string]interface{}{
		"running":               p.running,
		"current_speed_percent": round2(p.currentSpeedPercent),
		"pressure_bar":          round2(p.pressureBar),
		"flow_lpm":              round2(p.flowLPM),
		"fault":                 p.fault,
		"config":                p.params,
	}
}

func (p *Pump) StateValue(key string) (float64, bool) {
	p.Lock()
	defer p.Unlock()
	switch key {
	case "current_speed_percent":
		return p.currentSpeedPercent, true
	case "pressure_bar":
		return p.pressureBar, true
	case "flow_lpm":
		return p.flowLPM, true
	}
	return 0, false
}

func (p *Pump) SetParameter(name string, value interface{}) error {
	p.Lock()
	defer p.Unlock()
	switch name {
	case "control_type":
		s, ok := value.(string)
		if !ok {
			return newTypeError(p.id, name, "string", value)
		}
		p.params.ControlType = s
	case "max_pressure_bar":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(p.id, name, "float64", value)
		}
		p.params.MaxPressureBar = f
	case "set_pressure_bar":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(p.id, name, "float64", value)
		}
		p.params.SetPressureBar = f
	case "max_flow_lpm":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(p.id, name, "float64", value)
		}
		p.params.MaxFlowLPM = f
	case "ramp_time_sec":
		f, ok := value.(float64)
		if !ok {
			return newTypeError(p.id, name, "float64", value)
		}
		p.params.RampTimeSec = f
	default:
		return newUnknownParameterError(p.id, name)
	}
	return nil
}

func (p *Pump) Reset() {
	p.Lock()
	defer p.Unlock()
	p.running = false
	p.currentSpeedPercent = 0
	p.pressureBar = 0
	p.flowLPM = 0
	p.fault = false
	p.enableCmd = false
	p.speedCmdPercent = 0
}

var _ Instrument = (*Pump)(nil)

// rampToward moves current toward target at ratePerSec, never
// overshooting even when dt spans more than the full ramp period: the
// step is clamped to whichever of [current,target] or [target,current]
// actually bounds the direction of travel.
func rampToward(current, target, ratePerSec, dt float64) float64 {
	step := ratePerSec * dt
	if current < target {
		return util.Clamp(current+step, current, target)
	}
	if current > target {
		return util.Clamp(current-step, target, current)
	}
	return current
}
