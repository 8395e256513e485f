package config

import (
	"log"

	"github.com/fatih/color"
	"github.com/mitchellh/mapstructure"

	"github.jpl.nasa.gov/bdube/plcsim/instrument"
)

var warn = color.New(color.FgYellow).SprintFunc()

func logWarn(format string, args ...interface{}) {
	log.Printf(warn("config: "+format), args...)
}

// constructors maps the configuration document's "type" string to the
// instrument constructor it builds: the loader is the only place this
// mapping exists, per the design note that the string-to-constructor
// decision belongs to configuration loading alone.
var constructors = map[string]func(id string, params map[string]interface{}) (instrument.Instrument, error){
	"level": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.LevelParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewLevel(id, p), nil
	},
	"valve": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.ValveParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewValve(id, p), nil
	},
	"pump": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.PumpParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewPump(id, p), nil
	},
	"flow": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.FlowParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewFlow(id, p), nil
	},
	"reg_valve": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.RegValveParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewRegValve(id, p), nil
	},
	"tankbil": func(id string, params map[string]interface{}) (instrument.Instrument, error) {
		var p instrument.TankbilParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return instrument.NewTankbil(id, p), nil
	},
}

func pinKindFromString(s string) (instrument.PinKind, bool) {
	switch s {
	case "digital_in":
		return instrument.DigitalIn, true
	case "digital_out":
		return instrument.DigitalOut, true
	case "analog_in":
		return instrument.AnalogIn, true
	case "analog_out":
		return instrument.AnalogOut, true
	default:
		return 0, false
	}
}

// Build decodes doc into a fully wired instrument.Registry: each entry
// is constructed via the type->constructor table above, given its IO
// pins, and finally linked to its named targets. Configuration errors
// (missing id/type, unknown type, unresolved link target) are logged
// as warnings and the offending entry or link is dropped; Build itself
// only fails if doc is structurally unusable, which in practice it
// never is once Load has already decoded it.
func Build(doc Document) (*instrument.Registry, error) {
	reg := instrument.NewRegistry()

	for _, ic := range doc.Instruments {
		if ic.ID == "" || ic.Type == "" {
			logWarn("skipping instrument entry missing id or type: %+v", ic)
			continue
		}
		ctor, ok := constructors[ic.Type]
		if !ok {
			logWarn("skipping instrument %q: unknown type %q", ic.ID, ic.Type)
			continue
		}
		inst, err := ctor(ic.ID, ic.Parameters)
		if err != nil {
			logWarn("skipping instrument %q: %v", ic.ID, err)
			continue
		}

		pins := make(map[string]instrument.IOPin, len(ic.IO))
		for name, io := range ic.IO {
			kind, ok := pinKindFromString(io.Type)
			if !ok {
				logWarn("instrument %q: io %q has unknown pin kind %q, dropping", ic.ID, name, io.Type)
				continue
			}
			pins[name] = instrument.IOPin{
				Kind:       kind,
				Pin:        io.Pin,
				I2CAddress: io.I2CAddress,
				Channel:    io.Channel,
			}
		}
		inst.SetIOPins(pins)
		reg.Add(inst)
	}

	for _, ic := range doc.Instruments {
		inst, ok := reg.Get(ic.ID)
		if !ok {
			continue // already dropped above
		}
		links := make(map[string]string, len(ic.Links))
		for name, targetID := range ic.Links {
			if _, ok := reg.Get(targetID); !ok {
				logWarn("instrument %q: link %q targets unknown instrument %q, dropping", ic.ID, name, targetID)
				continue
			}
			links[name] = targetID
		}
		inst.SetLinks(links)
	}

	return reg, nil
}
