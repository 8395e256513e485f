package adapter_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.jpl.nasa.gov/bdube/plcsim/adapter"
	"github.jpl.nasa.gov/bdube/plcsim/engine"
	"github.jpl.nasa.gov/bdube/plcsim/hal"
	"github.jpl.nasa.gov/bdube/plcsim/instrument"
)

func buildAdapter() *adapter.Adapter {
	reg := instrument.NewRegistry()
	reg.Add(instrument.NewLevel("tank1", instrument.LevelParams{
		TankHeightMM:     2000,
		Height100Percent: 2000,
		HeightHHAlarm:    1800,
		TankVolumeM3:     10,
	}))
	reg.Add(instrument.NewTankbil("tb1", instrument.TankbilParams{}))
	eng := engine.New(reg, hal.NewMock(), 10*time.Millisecond)
	return adapter.New(eng)
}

func TestSetLevelPercentAppliesImmediately(t *testing.T) {
	a := buildAdapter()
	a.SetLevelPercent("tank1", 50)
	snap := a.Snapshot()["tank1"].(map[string]interface{})
	pct := snap["level_percent"].(float64)
	if diff := cmp.Diff(50.0, pct, cmpopts.EquateApprox(0, 0.1)); diff != "" {
		t.Errorf("unexpected level_percent (-want +got):\n%s", diff)
	}
}

func TestSetLevelPercentOnWrongTypeIgnored(t *testing.T) {
	a := buildAdapter()
	a.SetLevelPercent("tb1", 50) // tb1 is a tankbil, not a level
}

func TestTriggerTestGroundOnUnknownIDIgnored(t *testing.T) {
	a := buildAdapter()
	a.TriggerTestGround("does-not-exist")
}

func TestStartStopRoundTrip(t *testing.T) {
	a := buildAdapter()
	a.Start()
	time.Sleep(30 * time.Millisecond)
	a.Stop()
	stats := a.Statistics()
	if stats["running"].(bool) {
		t.Errorf("expected running false after Stop")
	}
}
