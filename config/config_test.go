package config_test

import (
	"testing"

	"github.jpl.nasa.gov/bdube/plcsim/config"
)

func TestBuildWiresInstrumentsAndLinks(t *testing.T) {
	doc := config.Document{
		Instruments: []config.InstrumentConfig{
			{
				ID:   "fm1",
				Type: "flow",
				Parameters: map[string]interface{}{
					"unit":             "L/min",
					"pulses_per_liter": 100.0,
				},
				Links: map[string]string{"pump": "pump1"},
			},
			{
				ID:   "pump1",
				Type: "pump",
				Parameters: map[string]interface{}{
					"max_pressure_bar": 10.0,
					"set_pressure_bar": 8.0,
					"max_flow_lpm":     100.0,
					"ramp_time_sec":    5.0,
				},
			},
		},
	}

	reg, err := config.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 instruments, got %d", reg.Len())
	}
	fm, ok := reg.Get("fm1")
	if !ok {
		t.Fatal("expected fm1 to be built")
	}
	if fm.Links()["pump"] != "pump1" {
		t.Errorf("expected fm1 linked to pump1, got %v", fm.Links())
	}
}

func TestBuildDropsEntryMissingIDOrType(t *testing.T) {
	doc := config.Document{
		Instruments: []config.InstrumentConfig{
			{ID: "", Type: "flow"},
			{ID: "x1", Type: ""},
		},
	}
	reg, err := config.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected both malformed entries dropped, got %d instruments", reg.Len())
	}
}

func TestBuildDropsUnknownType(t *testing.T) {
	doc := config.Document{
		Instruments: []config.InstrumentConfig{
			{ID: "weird1", Type: "centrifuge"},
		},
	}
	reg, err := config.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected unknown type dropped, got %d instruments", reg.Len())
	}
}

func TestBuildDropsUnresolvedLink(t *testing.T) {
	doc := config.Document{
		Instruments: []config.InstrumentConfig{
			{
				ID:    "fm1",
				Type:  "flow",
				Links: map[string]string{"pump": "does-not-exist"},
			},
		},
	}
	reg, err := config.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	fm, ok := reg.Get("fm1")
	if !ok {
		t.Fatal("expected fm1 to be built despite the dangling link")
	}
	if _, ok := fm.Links()["pump"]; ok {
		t.Errorf("expected unresolved link dropped, got %v", fm.Links())
	}
}

func TestBuildAssignsIOPins(t *testing.T) {
	doc := config.Document{
		Instruments: []config.InstrumentConfig{
			{
				ID:   "v1",
				Type: "valve",
				IO: map[string]config.IOConfig{
					"open_input": {Type: "digital_in", Pin: 7},
				},
			},
		},
	}
	reg, err := config.Build(doc)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := reg.Get("v1")
	if !ok {
		t.Fatal("expected v1 to be built")
	}
	p, ok := v.IOPins()["open_input"]
	if !ok || p.Pin != 7 {
		t.Errorf("expected open_input pin 7, got %+v", v.IOPins())
	}
}
