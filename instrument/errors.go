package instrument

import (
	"fmt"
	"math"

	"github.jpl.nasa.gov/bdube/plcsim/util"
)

// percentLimiter is the [0,100] bound every percent-typed state field
// is held to, per the invariant that percent fields are always
// in-range.
var percentLimiter = util.Limiter{Min: 0, Max: 100}

// clampPercent restricts a percent-typed state field to [0,100].
func clampPercent(p float64) float64 {
	return percentLimiter.Clamp(p)
}

// round2 rounds a value to 2 decimal places for display purposes only;
// internal state remains full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParameterTypeError is returned by SetParameter when value does not
// have the shape the named parameter expects.
type ParameterTypeError struct {
	InstrumentID string
	Name         string
	Wanted       string
	Got          interface{}
}

func (e *ParameterTypeError) Error() string {
	return fmt.Sprintf("instrument %q: parameter %q expects a %s, got %T", e.InstrumentID, e.Name, e.Wanted, e.Got)
}

func newTypeError(instrumentID, name, wanted string, got interface{}) error {
	return &ParameterTypeError{InstrumentID: instrumentID, Name: name, Wanted: wanted, Got: got}
}

// UnknownParameterError is returned by SetParameter when name does not
// exist for the instrument's variant.
type UnknownParameterError struct {
	InstrumentID string
	Name         string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("instrument %q: unknown parameter %q", e.InstrumentID, e.Name)
}

func newUnknownParameterError(instrumentID, name string) error {
	return &UnknownParameterError{InstrumentID: instrumentID, Name: name}
}
