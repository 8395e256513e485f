package instrument_test

import (
	"testing"

	"github.jpl.nasa.gov/bdube/plcsim/hal"
	"github.jpl.nasa.gov/bdube/plcsim/instrument"
)

// fixedLinkReader lets tests hand a level/pump a canned linked value
// without standing up a full Registry.
type fixedLinkReader map[string]float64

func (f fixedLinkReader) StateValue(id, key string) (float64, bool) {
	v, ok := f[id+"."+key]
	return v, ok
}

func TestLevelFillsFromFlow(t *testing.T) {
	lvl := instrument.NewLevel("tank1", instrument.LevelParams{
		TankHeightMM:     2000,
		Height100Percent: 2000,
		HeightHHAlarm:    1800,
		TankVolumeM3:     10,
	})
	lvl.SetLinks(map[string]string{"flowmeter": "fm1"})
	links := fixedLinkReader{"fm1.flow_lpm": 60}

	// 10s at 10Hz => 100 ticks of 100ms
	for i := 0; i < 100; i++ {
		if err := lvl.Update(0.1, links); err != nil {
			t.Fatal(err)
		}
	}
	snap := lvl.Snapshot()
	vol := snap["volume_m3"].(float64)
	if diff := vol - 0.01; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("expected volume_m3 ~= 0.01, got %f", vol)
	}
	if snap["hh_alarm"].(bool) {
		t.Errorf("expected hh_alarm false")
	}
}

func TestLevelHHAlarmTrips(t *testing.T) {
	lvl := instrument.NewLevel("tank1", instrument.LevelParams{
		TankHeightMM:     2000,
		Height100Percent: 2000,
		HeightHHAlarm:    1800,
		TankVolumeM3:     10,
	})
	lvl.SetLevelPercent(1799.0 / 2000 * 100)
	lvl.SetLinks(map[string]string{"flowmeter": "fm1"})
	links := fixedLinkReader{"fm1.flow_lpm": 600}
	if err := lvl.Update(0.2, links); err != nil {
		t.Fatal(err)
	}
	snap := lvl.Snapshot()
	if !snap["hh_alarm"].(bool) {
		t.Errorf("expected hh_alarm true, level_mm=%v", snap["level_mm"])
	}
}

func TestValveOpenRamp(t *testing.T) {
	v := instrument.NewValve("v1", instrument.ValveParams{OpenSpeedSec: 5, CloseSpeedSec: 5})
	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	bus.SetupInput(2, hal.PullNone)
	bus.SetupInput(3, hal.PullNone)
	v.SetIOPins(map[string]instrument.IOPin{
		"open_input":  {Kind: instrument.DigitalIn, Pin: 1},
		"close_input": {Kind: instrument.DigitalIn, Pin: 2},
		"hold_input":  {Kind: instrument.DigitalIn, Pin: 3},
	})
	bus.SetMockDigital(1, true)

	ticks := 25 // 2.5s at 100ms
	for i := 0; i < ticks; i++ {
		if err := v.ReadInputs(bus); err != nil {
			t.Fatal(err)
		}
		if err := v.Update(0.1, nil); err != nil {
			t.Fatal(err)
		}
	}
	pos := v.Snapshot()["position_percent"].(float64)
	if pos < 49 || pos > 51 {
		t.Errorf("expected position ~= 50 after 2.5s, got %f", pos)
	}

	for i := 0; i < 35; i++ { // to 6s total
		v.ReadInputs(bus)
		v.Update(0.1, nil)
	}
	snap := v.Snapshot()
	if snap["position_percent"].(float64) != 100 {
		t.Errorf("expected position == 100 at 6s, got %v", snap["position_percent"])
	}
	if snap["status"].(string) != instrument.ValveOpen {
		t.Errorf("expected status open, got %v", snap["status"])
	}
}

func TestValveNoOvershoot(t *testing.T) {
	v := instrument.NewValve("v1", instrument.ValveParams{OpenSpeedSec: 1, CloseSpeedSec: 1})
	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	v.SetIOPins(map[string]instrument.IOPin{"open_input": {Kind: instrument.DigitalIn, Pin: 1}})
	bus.SetMockDigital(1, true)
	v.ReadInputs(bus)
	// dt much larger than the full open period of 1s
	v.Update(10, nil)
	pos := v.Snapshot()["position_percent"].(float64)
	if pos != 100 {
		t.Errorf("expected clamp to exactly 100, got %f", pos)
	}
}

func TestPumpWithBackPressure(t *testing.T) {
	p := instrument.NewPump("pump1", instrument.PumpParams{
		ControlType:    instrument.PumpControlDigital,
		MaxPressureBar: 10,
		SetPressureBar: 8,
		MaxFlowLPM:     100,
		RampTimeSec:    5,
	})
	p.SetLinks(map[string]string{"reg_valve": "rv1"})
	links := fixedLinkReader{"rv1.pressure_bar": 4}

	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	p.SetIOPins(map[string]instrument.IOPin{"enable_input": {Kind: instrument.DigitalIn, Pin: 1}})
	bus.SetMockDigital(1, true)

	for i := 0; i < 100; i++ { // 10s at 100ms
		p.ReadInputs(bus)
		if err := p.Update(0.1, links); err != nil {
			t.Fatal(err)
		}
	}
	snap := p.Snapshot()
	pressure := snap["pressure_bar"].(float64)
	flow := snap["flow_lpm"].(float64)
	if diff := pressure - 6; diff > 0.05 || diff < -0.05 {
		t.Errorf("expected steady-state pressure ~= 6, got %f", pressure)
	}
	if diff := flow - 20; diff > 0.5 || diff < -0.5 {
		t.Errorf("expected steady-state flow ~= 20, got %f", flow)
	}
	if !snap["running"].(bool) {
		t.Errorf("expected running true")
	}
	if snap["fault"].(bool) {
		t.Errorf("expected fault false")
	}
}

func TestFlowQuadraturePulseCount(t *testing.T) {
	f := instrument.NewFlow("fm1", instrument.FlowParams{
		Unit:           instrument.FlowUnitLPM,
		PulseType:      instrument.PulseQuadrature,
		PulsesPerLiter: 100,
	})
	f.SetLinks(map[string]string{"pump": "pump1"})
	links := fixedLinkReader{"pump1.flow_lpm": 60}

	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	f.SetIOPins(map[string]instrument.IOPin{"start_input": {Kind: instrument.DigitalIn, Pin: 1}})
	bus.SetMockDigital(1, true)

	for i := 0; i < 20; i++ { // 2s at 100ms
		f.ReadInputs(bus)
		if err := f.Update(0.1, links); err != nil {
			t.Fatal(err)
		}
	}
	count, _ := f.StateValue("pulse_count")
	if count != 200 {
		t.Errorf("expected pulse_count == 200, got %v", count)
	}
}

func TestFlowResetZeroesTotals(t *testing.T) {
	f := instrument.NewFlow("fm1", instrument.FlowParams{Unit: instrument.FlowUnitLPM, PulsesPerLiter: 100})
	f.SetLinks(map[string]string{"pump": "pump1"})
	links := fixedLinkReader{"pump1.flow_lpm": 60}

	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	bus.SetupInput(2, hal.PullNone)
	f.SetIOPins(map[string]instrument.IOPin{
		"start_input": {Kind: instrument.DigitalIn, Pin: 1},
		"reset_input": {Kind: instrument.DigitalIn, Pin: 2},
	})
	bus.SetMockDigital(1, true)
	for i := 0; i < 10; i++ {
		f.ReadInputs(bus)
		f.Update(0.1, links)
	}
	bus.SetMockDigital(2, true)
	f.ReadInputs(bus)
	f.Update(0.1, links)

	snap := f.Snapshot()
	if snap["total_volume_liters"].(float64) != 0 {
		t.Errorf("expected total_volume_liters reset to 0, got %v", snap["total_volume_liters"])
	}
	if snap["pulse_count"].(int) != 0 {
		t.Errorf("expected pulse_count reset to 0, got %v", snap["pulse_count"])
	}
}

func TestTankbilDeadmanTimeout(t *testing.T) {
	tb := instrument.NewTankbil("tb1", instrument.TankbilParams{DeadmanEnabled: true})
	bus := hal.NewMock()
	bus.SetupInput(1, hal.PullNone)
	bus.SetupInput(2, hal.PullNone)
	bus.SetupInput(3, hal.PullNone)
	tb.SetIOPins(map[string]instrument.IOPin{
		"ground_ok_input":   {Kind: instrument.DigitalIn, Pin: 1},
		"overfill_ok_input": {Kind: instrument.DigitalIn, Pin: 2},
		"deadman_input":     {Kind: instrument.DigitalIn, Pin: 3},
	})
	bus.SetMockDigital(1, true)
	bus.SetMockDigital(2, true)
	bus.SetMockDigital(3, false) // deadman released

	var snap map[string]interface{}
	for i := 0; i < 25; i++ { // to t=2.5s
		tb.ReadInputs(bus)
		tb.Update(0.1, nil)
	}
	snap = tb.Snapshot()
	if !snap["deadman_warning"].(bool) {
		t.Errorf("expected deadman_warning true at t=2.5s")
	}

	for i := 0; i < 26; i++ { // to t=5.1s
		tb.ReadInputs(bus)
		tb.Update(0.1, nil)
	}
	snap = tb.Snapshot()
	if snap["system_safe"].(bool) {
		t.Errorf("expected system_safe false at t=5.1s")
	}

	bus.SetMockDigital(3, true) // press deadman
	tb.ReadInputs(bus)
	tb.Update(0.1, nil)
	snap = tb.Snapshot()
	if snap["deadman_warning"].(bool) {
		t.Errorf("expected deadman_warning false immediately after press")
	}
	if !snap["system_safe"].(bool) {
		t.Errorf("expected system_safe true immediately after press")
	}
}

func TestRegValveMinPositionOnlyWhenSetpointPositive(t *testing.T) {
	r := instrument.NewRegValve("rv1", instrument.RegValveParams{
		OpenSpeedSec:     1,
		CloseSpeedSec:    1,
		MinPosition20Pct: true,
	})
	// drive toward fully closed with raw setpoint 0; must be permitted
	// to close past the 20% floor.
	for i := 0; i < 20; i++ {
		r.Update(0.1, nil)
	}
	pos, _ := r.StateValue("position_percent")
	if pos != 0 {
		t.Errorf("expected position_percent == 0 with raw setpoint 0, got %f", pos)
	}
}

func TestRegistryDeterministicOrder(t *testing.T) {
	reg := instrument.NewRegistry()
	reg.Add(instrument.NewValve("b", instrument.ValveParams{OpenSpeedSec: 1, CloseSpeedSec: 1}))
	reg.Add(instrument.NewValve("a", instrument.ValveParams{OpenSpeedSec: 1, CloseSpeedSec: 1}))
	reg.Add(instrument.NewValve("c", instrument.ValveParams{OpenSpeedSec: 1, CloseSpeedSec: 1}))
	all := reg.All()
	if len(all) != 3 || all[0].ID() != "a" || all[1].ID() != "b" || all[2].ID() != "c" {
		t.Errorf("expected deterministic id order a,b,c, got %v,%v,%v", all[0].ID(), all[1].ID(), all[2].ID())
	}
}

func TestSetParameterRejectsWrongType(t *testing.T) {
	lvl := instrument.NewLevel("tank1", instrument.LevelParams{})
	if err := lvl.SetParameter("tank_volume_m3", "not-a-float"); err == nil {
		t.Errorf("expected error setting tank_volume_m3 to a string")
	}
}

func TestSetParameterUnknownNameIgnored(t *testing.T) {
	lvl := instrument.NewLevel("tank1", instrument.LevelParams{})
	err := lvl.SetParameter("does_not_exist", 1.0)
	if err == nil {
		t.Errorf("expected an error for unknown parameter name")
	}
}
