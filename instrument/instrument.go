/*Package instrument implements the per-tick contract shared by every
simulated PLC instrument, the link graph that couples them, and the six
concrete physical models (level, valve, pump, flow, reg_valve, tankbil).

Each variant is a closed tagged type rather than a subclass: it embeds
Base for id/lock/IO-pin/link-table bookkeeping and implements the
Instrument capability set. The configuration loader is the only place
that maps a YAML "type" string to one of these constructors.
*/
package instrument

import (
	"fmt"
	"sync"

	"github.jpl.nasa.gov/bdube/plcsim/hal"
)

// Instrument is the per-tick contract every variant satisfies. The
// engine calls ReadInputs, Update, and WriteOutputs in that order, in
// deterministic id order, once per tick; no instrument may block.
type Instrument interface {
	// ID returns the instrument's configuration-unique identifier.
	ID() string

	// Type returns the configuration "type" string for this variant.
	Type() string

	// ReadInputs copies relevant hardware inputs into state. No
	// instrument may read linked state during this phase.
	ReadInputs(bus hal.Bus) error

	// Update advances the physical model by dt seconds, consulting
	// linked instruments' state through links.
	Update(dt float64, links LinkReader) error

	// WriteOutputs drives hardware outputs from state.
	WriteOutputs(bus hal.Bus) error

	// Snapshot returns the display projection documented for this
	// variant: rounded numeric fields plus a config echo. It is
	// safe for concurrent callers and does not block the tick loop
	// for longer than copying the state out.
	Snapshot() map[string]interface{}

	// StateValue returns the full-precision value of a single state
	// key, used by other instruments' Update phase through a Link.
	// The second return is false if key is not defined for this
	// variant.
	StateValue(key string) (float64, bool)

	// SetParameter mutates the named parameter if it exists and value
	// has the expected shape; otherwise it returns an error and
	// leaves state untouched.
	SetParameter(name string, value interface{}) error

	// Reset restores state to the documented initial values.
	Reset()

	// IOPins returns the logical-name -> IOPin mapping assigned by
	// the configuration loader.
	IOPins() map[string]IOPin

	// SetIOPins installs the logical-name -> IOPin mapping. Called
	// once by the configuration loader before the first tick.
	SetIOPins(pins map[string]IOPin)

	// SetLinks installs the logical-link-name -> target-id mapping.
	// Called once by the configuration loader before the first tick.
	SetLinks(links map[string]string)

	// Links returns the logical-link-name -> target-id mapping.
	Links() map[string]string
}

// LinkReader is the narrow interface Update uses to consult another
// instrument's state without taking an owning reference to it or
// holding more than one instrument lock at a time.
type LinkReader interface {
	// StateValue looks up instrument id in the registry, briefly
	// locks it, copies out key, and releases the lock before
	// returning. ok is false if id is unknown or key is undefined
	// for that instrument's type.
	StateValue(id, key string) (value float64, ok bool)
}

// Base holds the bookkeeping every variant shares: identity, the
// exclusive lock guarding state and parameters, and the IO-pin/link
// tables assigned by the configuration loader. It embeds sync.Mutex,
// so Lock/Unlock are promoted onto every variant; variants call them
// internally to guard their state.
type Base struct {
	sync.Mutex
	id     string
	typ    string
	ioPins map[string]IOPin
	links  map[string]string
}

// NewBase constructs a Base with empty pin/link tables.
func NewBase(id, typ string) Base {
	return Base{
		id:     id,
		typ:    typ,
		ioPins: make(map[string]IOPin),
		links:  make(map[string]string),
	}
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Type() string { return b.typ }

func (b *Base) IOPins() map[string]IOPin { return b.ioPins }

func (b *Base) SetIOPins(pins map[string]IOPin) {
	b.Lock()
	defer b.Unlock()
	b.ioPins = pins
}

func (b *Base) Links() map[string]string { return b.links }

func (b *Base) SetLinks(links map[string]string) {
	b.Lock()
	defer b.Unlock()
	b.links = links
}

// pin looks up a required logical IO pin by name, returning an error
// that identifies both the instrument and the missing logical name if
// absent. The read/write helpers below do not use it: they index the
// map directly and fall back to a default or skip the pin when it is
// missing.
func (b *Base) pin(name string) (IOPin, error) {
	p, ok := b.ioPins[name]
	if !ok {
		return IOPin{}, fmt.Errorf("instrument %q: no IO pin configured for %q", b.id, name)
	}
	return p, nil
}

// link looks up a required link's target id by logical name.
func (b *Base) link(name string) (string, bool) {
	id, ok := b.links[name]
	return id, ok
}

// readDigital reads a digital input pin by logical name, returning def
// if the pin is not configured or the read fails (a missing input
// reads as a safe default per the error-handling taxonomy).
func (b *Base) readDigital(bus hal.Bus, name string, def bool) bool {
	p, ok := b.ioPins[name]
	if !ok {
		return def
	}
	v, err := bus.Read(p.Pin)
	if err != nil {
		return def
	}
	return v
}

// writeDigital drives a digital output pin by logical name, silently
// doing nothing if the pin is not configured (a misconfigured output
// simply does not drive, per the error-handling taxonomy).
func (b *Base) writeDigital(bus hal.Bus, name string, level bool) {
	p, ok := b.ioPins[name]
	if !ok {
		return
	}
	_ = bus.Write(p.Pin, level)
}

// writeAnalogCurrent drives an analog output pin by logical name with
// a 4-20mA loop current, silently doing nothing if unconfigured.
func (b *Base) writeAnalogCurrent(bus hal.Bus, name string, mA float64) {
	p, ok := b.ioPins[name]
	if !ok {
		return
	}
	_ = bus.DACSetCurrentMA(p.I2CAddress, mA)
}

// readAnalogVoltsPercent reads an analog input pin by logical name as
// a 0-10V signal linearly scaled to [0,100], returning def if the pin
// is not configured or the read fails.
func (b *Base) readAnalogVoltsPercent(bus hal.Bus, name string, def float64) float64 {
	p, ok := b.ioPins[name]
	if !ok {
		return def
	}
	v, err := bus.ADCReadVoltage(p.I2CAddress, p.Channel)
	if err != nil {
		return def
	}
	pct := (v / 10.0) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
