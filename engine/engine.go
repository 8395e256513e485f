/*Package engine runs the fixed-rate tick loop that drives a built
instrument graph against a hal.Bus, and consumes reconfiguration
requests arriving from a config.Watcher without stopping the loop.
*/
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/plcsim/config"
	"github.jpl.nasa.gov/bdube/plcsim/hal"
	"github.jpl.nasa.gov/bdube/plcsim/instrument"
)

// defaultPeriod is the nominal tick period absent an explicit target: 10Hz.
const defaultPeriod = 100 * time.Millisecond

// Engine owns a bus, a live instrument registry, and the goroutines
// that tick it at a fixed rate and apply reconfiguration requests.
type Engine struct {
	mu     sync.RWMutex
	bus    hal.Bus
	reg    *instrument.Registry
	period time.Duration

	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	reconfig chan config.Document
	limiter  *rate.Limiter

	stats statistics
}

type statistics struct {
	mu              sync.Mutex
	totalUpdates    uint64
	overruns        uint64
	measuredRateHz  float64
	lastUpdate      time.Time
	lastTickElapsed time.Duration
}

// New constructs an Engine around reg and bus, ticking at period (0
// selects the 10Hz default). The engine does not start ticking until
// Start is called.
func New(reg *instrument.Registry, bus hal.Bus, period time.Duration) *Engine {
	if period <= 0 {
		period = defaultPeriod
	}
	return &Engine{
		bus:      bus,
		reg:      reg,
		period:   period,
		reconfig: make(chan config.Document, 1),
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// InitializeHardware walks every instrument's IO pin assignments and
// provisions the bus accordingly: digital outputs are set up (driven
// low initially) before digital inputs, and no explicit provisioning
// is needed for analog pins beyond the I²C bus being bound, mirroring
// how a real PLC's IO modules are configured before first scan.
func (e *Engine) InitializeHardware() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	outputs := make(map[int]bool)
	inputs := make(map[int]hal.Pull)
	for _, inst := range e.reg.All() {
		for _, p := range inst.IOPins() {
			switch p.Kind {
			case instrument.DigitalOut:
				outputs[p.Pin] = false
			case instrument.DigitalIn:
				inputs[p.Pin] = hal.PullNone
			}
		}
	}
	for pin, initial := range outputs {
		if err := e.bus.SetupOutput(pin, initial); err != nil {
			return err
		}
	}
	for pin, pull := range inputs {
		if err := e.bus.SetupInput(pin, pull); err != nil {
			return err
		}
	}
	return nil
}

// Start begins the tick loop, which also consumes reconfiguration
// requests between ticks, in a background goroutine. Start is
// idempotent: calling it again while already running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.tickLoop()
}

// Stop signals the tick loop to halt and waits up to 2 seconds for it
// to exit cleanly. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("engine: tick loop did not stop within deadline")
	}
}

// Cleanup stops the tick loop (a no-op if it is not running) and then
// releases the underlying hal.Bus.
func (e *Engine) Cleanup() error {
	e.Stop()
	return e.bus.Cleanup()
}

// Snapshot returns every instrument's display projection, keyed by id.
func (e *Engine) Snapshot() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]interface{}, e.reg.Len())
	for _, inst := range e.reg.All() {
		out[inst.ID()] = inst.Snapshot()
	}
	return out
}

// Statistics reports the tick loop's operating characteristics.
func (e *Engine) Statistics() map[string]interface{} {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.mu.RLock()
	running := e.running
	count := e.reg.Len()
	target := float64(time.Second) / float64(e.period)
	e.mu.RUnlock()

	return map[string]interface{}{
		"total_updates":         e.stats.totalUpdates,
		"overrun_count":         e.stats.overruns,
		"measured_rate_hz":      e.stats.measuredRateHz,
		"last_update_timestamp": e.stats.lastUpdate,
		"running":               running,
		"instrument_count":      count,
		"target_rate_hz":        target,
	}
}

// Reconfigure submits a freshly loaded configuration document to be
// applied by the tick loop's own goroutine between ticks, never
// concurrently with a tick. A pending-but-unconsumed submission is
// replaced rather than queued, and submissions faster than once per
// second are dropped (rate-limited) to absorb editors that write a
// file in several quick bursts.
func (e *Engine) Reconfigure(doc config.Document) {
	if !e.limiter.Allow() {
		log.Printf("engine: dropping reconfiguration request, rate limit exceeded")
		return
	}
	select {
	case e.reconfig <- doc:
	default:
		select {
		case <-e.reconfig:
		default:
		}
		e.reconfig <- doc
	}
}

func (e *Engine) applyReconfigure(doc config.Document) {
	reg, err := config.Build(doc)
	if err != nil {
		log.Printf("engine: reconfigure failed: %v", err)
		return
	}
	e.mu.Lock()
	e.reg = reg
	e.mu.Unlock()
	if err := e.InitializeHardware(); err != nil {
		log.Printf("engine: reconfigure hardware setup failed: %v", err)
	}
	log.Printf("engine: applied reconfiguration, %d instruments", reg.Len())
}

func (e *Engine) tickLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-e.stopCh:
			return
		case doc := <-e.reconfig:
			e.applyReconfigure(doc)
			continue
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			start := time.Now()
			e.tick(dt)
			elapsed := time.Since(start)

			e.stats.mu.Lock()
			e.stats.totalUpdates++
			e.stats.lastUpdate = now
			e.stats.lastTickElapsed = elapsed
			if dt > 0 {
				e.stats.measuredRateHz = 1 / dt
			}
			if elapsed > e.period {
				e.stats.overruns++
			}
			e.stats.mu.Unlock()
		}
	}
}

// tick runs one ReadInputs/Update/WriteOutputs pass over every
// instrument, in deterministic id order, isolating any single
// instrument's fault so it cannot take down the rest of the plant.
func (e *Engine) tick(dt float64) {
	e.mu.RLock()
	bus := e.bus
	reg := e.reg
	e.mu.RUnlock()

	for _, inst := range reg.All() {
		e.runPhase(inst.ID(), "read_inputs", func() error { return inst.ReadInputs(bus) })
	}
	for _, inst := range reg.All() {
		e.runPhase(inst.ID(), "update", func() error { return inst.Update(dt, reg) })
	}
	for _, inst := range reg.All() {
		e.runPhase(inst.ID(), "write_outputs", func() error { return inst.WriteOutputs(bus) })
	}
}

func (e *Engine) runPhase(id, phase string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: instrument %q panicked during %s: %v", id, phase, r)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("engine: instrument %q failed during %s: %v", id, phase, err)
	}
}

// SetParameter delegates to the target instrument's SetParameter,
// logging and ignoring an unknown instrument id, unknown parameter
// name, or type mismatch rather than propagating it to the caller.
func (e *Engine) SetParameter(id, name string, value interface{}) {
	e.mu.RLock()
	inst, ok := e.reg.Get(id)
	e.mu.RUnlock()
	if !ok {
		log.Printf("engine: SetParameter on unknown instrument %q ignored", id)
		return
	}
	if err := inst.SetParameter(name, value); err != nil {
		log.Printf("engine: SetParameter(%q, %q) ignored: %v", id, name, err)
	}
}

// Registry exposes the live instrument registry for callers (the
// adapter package) that need direct read access, e.g. for one-shot
// supplemented operations like TriggerTestGround.
func (e *Engine) Registry() *instrument.Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg
}
