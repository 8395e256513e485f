/*Package adapter exposes a narrow, read-mostly surface over a running
engine.Engine: snapshot and statistics export, per-instrument parameter
writes, and the handful of supplemented one-shot operations (level
preset, tank-truck interlock test triggers). It deliberately does not
expose the instrument registry, the bus, or the tick loop itself -
anything beyond this surface belongs to whatever process embeds it,
not to the kernel.
*/
package adapter

import (
	"log"

	"github.jpl.nasa.gov/bdube/plcsim/engine"
	"github.jpl.nasa.gov/bdube/plcsim/instrument"
)

// Adapter is a thin façade over an *engine.Engine.
type Adapter struct {
	eng *engine.Engine
}

// New wraps eng.
func New(eng *engine.Engine) *Adapter {
	return &Adapter{eng: eng}
}

// Start begins the tick loop. Idempotent.
func (a *Adapter) Start() { a.eng.Start() }

// Stop halts the tick loop. Idempotent.
func (a *Adapter) Stop() { a.eng.Stop() }

// Snapshot returns every instrument's display projection, keyed by id.
func (a *Adapter) Snapshot() map[string]interface{} {
	return a.eng.Snapshot()
}

// Statistics returns the tick loop's operating characteristics.
func (a *Adapter) Statistics() map[string]interface{} {
	return a.eng.Statistics()
}

// SetParameter writes a single named parameter on the instrument
// identified by id. An unknown id, unknown parameter name, or value of
// the wrong shape is logged and otherwise ignored; it never panics or
// returns an error to the caller, matching the documented behavior
// that a bad write from an external client must not disturb the plant.
func (a *Adapter) SetParameter(id, name string, value interface{}) {
	a.eng.SetParameter(id, name, value)
}

// SetLevelPercent presets the named Level instrument's fill to pct
// without waiting for the flow model to get there. Any other
// instrument type, or an unknown id, is logged and ignored.
func (a *Adapter) SetLevelPercent(id string, pct float64) {
	inst, ok := a.eng.Registry().Get(id)
	if !ok {
		log.Printf("adapter: SetLevelPercent on unknown instrument %q ignored", id)
		return
	}
	lvl, ok := inst.(*instrument.Level)
	if !ok {
		log.Printf("adapter: SetLevelPercent on %q ignored, not a level instrument", id)
		return
	}
	lvl.SetLevelPercent(pct)
}

// TriggerTestGround latches the named Tankbil instrument's ground-test
// output for its next tick. Any other instrument type, or an unknown
// id, is logged and ignored.
func (a *Adapter) TriggerTestGround(id string) {
	tb, ok := a.tankbil(id)
	if !ok {
		return
	}
	tb.TriggerTestGround()
}

// TriggerTestOverfill latches the named Tankbil instrument's
// overfill-test output for its next tick. Any other instrument type,
// or an unknown id, is logged and ignored.
func (a *Adapter) TriggerTestOverfill(id string) {
	tb, ok := a.tankbil(id)
	if !ok {
		return
	}
	tb.TriggerTestOverfill()
}

func (a *Adapter) tankbil(id string) (*instrument.Tankbil, bool) {
	inst, ok := a.eng.Registry().Get(id)
	if !ok {
		log.Printf("adapter: operation on unknown instrument %q ignored", id)
		return nil, false
	}
	tb, ok := inst.(*instrument.Tankbil)
	if !ok {
		log.Printf("adapter: operation on %q ignored, not a tankbil instrument", id)
		return nil, false
	}
	return tb, true
}
