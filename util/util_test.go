package util_test

import (
	"errors"
	"testing"
	"time"

	"github.jpl.nasa.gov/bdube/plcsim/util"
)

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to clamp to %f, got %f", input, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to clamp to %f, got %f", input, low, clamped)
	}
}

func TestLimiterCheck(t *testing.T) {
	l := util.Limiter{Min: 4, Max: 20}
	if !l.Check(12) {
		t.Errorf("expected 12 to satisfy [4,20]")
	}
	if l.Check(3.99) {
		t.Errorf("expected 3.99 to fail [4,20]")
	}
}

func TestMergeErrorsAllNil(t *testing.T) {
	if err := util.MergeErrors([]error{nil, nil, nil}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMergeErrorsSome(t *testing.T) {
	err := util.MergeErrors([]error{nil, errors.New("a"), errors.New("b")})
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if err.Error() != "a\nb" {
		t.Errorf("expected \"a\\nb\", got %q", err.Error())
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
