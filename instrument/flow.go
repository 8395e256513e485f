package instrument

import (
	"math/rand"

	"github.jpl.nasa.gov/bdube/plcsim/hal"
)

// Flow meter configuration enums.
const (
	FlowUnitLPS = "L/sec"
	FlowUnitLPM = "L/min"

	PulseSingle     = "single"
	PulseQuadrature = "quadrature"
)

// quadratureCycle is the Gray-coded (A,B) sequence a quadrature pulse
// meter emits, indexed by pulse_count mod 4.
var quadratureCycle = [4][2]bool{
	{true, false},
	{true, true},
	{false, true},
	{false, false},
}

// FlowParams configures a Flow (pulse flow meter) instrument.
type FlowParams struct {
	Unit           string  `mapstructure:"unit"`      // L/sec|L/min
	PulseType      string  `mapstructure:"pulse_type"` // single|quadrature
	VelocityMS     float64 `mapstructure:"velocity_ms"`
	NoiseEnabled   bool    `mapstructure:"noise_enabled"`
	NoiseDropoutMS float64 `mapstructure:"noise_dropout_ms"`
	PulsesPerLiter float64 `mapstructure:"pulses_per_liter"`
}

// Flow simulates a pulse-output flow meter fed by a linked pump's flow
// rate, emitting single or quadrature digital pulses per unit volume.
type Flow struct {
	Base
	params FlowParams

	flowLPM           float64
	totalVolumeLiters float64
	pulseA            bool
	pulseB            bool
	pulseAccumulator  float64
	pulseCount        int

	startCmd bool
	resetCmd bool
	noiseCmd bool
}

// NewFlow constructs a Flow instrument with zeroed totals.
func NewFlow(id string, params FlowParams) *Flow {
	return &Flow{Base: NewBase(id, "flow"), params: params}
}

func (f *Flow) ReadInputs(bus hal.Bus) error {
	f.Lock()
	defer f.Unlock()
	f.startCmd = f.readDigital(bus, "start_input", false)
	f.resetCmd = f.readDigital(bus, "reset_input", false)
	f.noiseCmd = f.readDigital(bus, "noise_input", false)
	return nil
}

func (f *Flow) Update(dt float64, links LinkReader) error {
	f.Lock()
	defer f.Unlock()

	if targetID, ok := f.link("pump"); ok {
		if v, ok := links.StateValue(targetID, "flow_lpm"); ok {
			f.flowLPM = v
		}
	}

	if f.resetCmd {
		f.totalVolumeLiters = 0
		f.pulseAccumulator = 0
		f.pulseCount = 0
		f.pulseA, f.pulseB = false, false
		f.resetCmd = false
		return nil
	}

	if !f.startCmd {
		return nil
	}

	// The configured unit describes what flow_lpm is already
	// expressed in for this meter: L/min readings are converted to
	// L/s, L/sec readings are used as-is.
	var flowLPS float64
	if f.params.Unit == FlowUnitLPS {
		flowLPS = f.flowLPM
	} else {
		flowLPS = f.flowLPM / 60
	}

	deltaVol := flowLPS * dt
	f.totalVolumeLiters += deltaVol

	deltaPulses := deltaVol * f.params.PulsesPerLiter
	f.pulseAccumulator += deltaPulses

	for f.pulseAccumulator >= 1 {
		f.pulseCount++
		f.pulseAccumulator -= 1
		if f.noiseCmd && rand.Float64() < 0.1 {
			continue
		}
		if f.params.PulseType == PulseQuadrature {
			state := quadratureCycle[f.pulseCount%4]
			f.pulseA, f.pulseB = state[0], state[1]
		} else {
			f.pulseA = !f.pulseA
			f.pulseB = f.pulseA
		}
	}
	return nil
}

func (f *Flow) WriteOutputs(bus hal.Bus) error {
	f.Lock()
	a, b := f.pulseA, f.pulseB
	f.Unlock()

	f.writeDigital(bus, "pulse_a_output", a)
	f.writeDigital(bus, "pulse_b_output", b)
	return nil
}

func (f *Flow) Snapshot() map[string]interface{} {
	f.Lock()
	defer f.Unlock()
	return map[string]interface{}{
		"flow_lpm":            round2(f.flowLPM),
		"total_volume_liters": round2(f.totalVolumeLiters),
		"total_mass_kg":       round2(f.totalVolumeLiters),
		"pulse_a":             f.pulseA,
		"pulse_b":             f.pulseB,
		"pulse_count":         f.pulseCount,
		"config":              f.params,
	}
}

func (f *Flow) StateValue(key string) (float64, bool) {
	f.Lock()
	defer f.Unlock()
	switch key {
	case "flow_lpm":
		return f.flowLPM, true
	case "total_volume_liters":
		return f.totalVolumeLiters, true
	case "pulse_count":
		return float64(f.pulseCount), true
	}
	return 0, false
}

func (f *Flow) SetParameter(name string, value interface{}) error {
	f.Lock()
	defer f.Unlock()
	switch name {
	case "unit":
		s, ok := value.(string)
		if !ok {
			return newTypeError(f.id, name, "string", value)
		}
		f.params.Unit = s
	case "pulse_type":
		s, ok := value.(string)
		if !ok {
			return newTypeError(f.id, name, "string", value)
		}
		f.params.PulseType = s
	case "velocity_ms":
		v, ok := value.(float64)
		if !ok {
			return newTypeError(f.id, name, "float64", value)
		}
		f.params.VelocityMS = v
	case "noise_enabled":
		b, ok := value.(bool)
		if !ok {
			return newTypeError(f.id, name, "bool", value)
		}
		f.params.NoiseEnabled = b
	case "noise_dropout_ms":
		v, ok := value.(float64)
		if !ok {
			return newTypeError(f.id, name, "float64", value)
		}
		f.params.NoiseDropoutMS = v
	case "pulses_per_liter":
		v, ok := value.(float64)
		if !ok {
			return newTypeError(f.id, name, "float64", value)
		}
		f.params.PulsesPerLiter = v
	default:
		return newUnknownParameterError(f.id, name)
	}
	return nil
}

func (f *Flow) Reset() {
	f.Lock()
	defer f.Unlock()
	f.flowLPM = 0
	f.totalVolumeLiters = 0
	f.pulseAccumulator = 0
	f.pulseCount = 0
	f.pulseA, f.pulseB = false, false
	f.startCmd, f.resetCmd, f.noiseCmd = false, false, false
}

var _ Instrument = (*Flow)(nil)
