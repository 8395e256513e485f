package instrument

import "sort"

// Registry owns every instrument in a configuration, keyed by id.
// Links hold ids into a Registry, never an owning reference to another
// Instrument, so destroying or replacing a configuration cannot leave
// a linked instrument's lifetime extended beyond its owner's.
type Registry struct {
	byID map[string]Instrument
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Instrument)}
}

// Add inserts inst, keyed by its own id. A later Add with a duplicate
// id overwrites the earlier entry. config.Build does not check for
// duplicate ids, so of two entries with the same id the later one is
// kept.
func (r *Registry) Add(inst Instrument) {
	r.byID[inst.ID()] = inst
}

// Get returns the instrument with the given id, or nil, ok=false.
func (r *Registry) Get(id string) (Instrument, bool) {
	inst, ok := r.byID[id]
	return inst, ok
}

// All returns every instrument, ordered by id. The engine's tick loop
// iterates instruments in this deterministic order for every phase.
func (r *Registry) All() []Instrument {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Instrument, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
	}
	return out
}

// Len reports how many instruments are registered.
func (r *Registry) Len() int { return len(r.byID) }

// StateValue implements LinkReader: it looks up id, briefly locks that
// instrument via its own StateValue method, and returns the value.
// Because StateValue is the only cross-instrument access during
// Update, no caller ever holds two instrument locks at once.
func (r *Registry) StateValue(id, key string) (float64, bool) {
	inst, ok := r.byID[id]
	if !ok {
		return 0, false
	}
	return inst.StateValue(key)
}

var _ LinkReader = (*Registry)(nil)
