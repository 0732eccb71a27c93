package rdr

import (
	"errors"
	"fmt"
	"math"

	"github.com/star/caesar/internal/orbit"
	"github.com/star/caesar/internal/vec"
)

// RDR is a target's radar coordinates: zero-Doppler time and slant range.
type RDR struct {
	Time       float64 // orbit time axis units (seconds)
	SlantRange float64 // orbit length units (metres)
	Iterations int
	Converged  bool
}

// Doppler returns a function with the same root as the target's Doppler
// history: v(t) · (target - p(t)). Evaluation errors are stored in *errp and
// the function returns 0 so the search stops at once.
func Doppler(target vec.Vec3, o *orbit.Orbit, errp *error) func(float64) float64 {
	return func(t float64) float64 {
		sv, err := o.Evaluate(t)
		if err != nil {
			if *errp == nil {
				*errp = err
			}
			return 0
		}
		return sv.Tail().Dot(target.Sub(sv.Head()))
	}
}

// XYZToRDR finds the zero-Doppler time of target and the slant range at
// that time. The search covers the orbit's interpolable interval, which
// excludes the first and last sample spacing.
//
// Non-convergence is reported through RDR.Converged, not as an error.
// A root that lies between the outermost samples and the interpolable
// interval yields orbit.ErrOutOfRange; no sign change anywhere over the orbit
// yields ErrNoSignChange.
func XYZToRDR(target vec.Vec3, o *orbit.Orbit, opts Options) (RDR, error) {
	lo, hi, err := o.InterpolableInterval()
	if err != nil {
		return RDR{}, fmt.Errorf("zero-doppler search: %w", err)
	}

	var evalErr error
	doppler := Doppler(target, o, &evalErr)

	res, err := Bisect(doppler, lo, hi, opts)
	if evalErr != nil {
		return RDR{}, fmt.Errorf("zero-doppler search: %w", evalErr)
	}
	if errors.Is(err, ErrNoSignChange) {
		if edgeErr := rootBeyondInterval(doppler, o, lo, hi); edgeErr != nil {
			return RDR{}, fmt.Errorf("zero-doppler search: %w", edgeErr)
		}
	}
	if err != nil {
		return RDR{}, fmt.Errorf("zero-doppler search: %w", err)
	}

	pos, err := o.Position(res.Root)
	if err != nil {
		return RDR{}, fmt.Errorf("platform position at t=%v: %w", res.Root, err)
	}

	return RDR{
		Time:       res.Root,
		SlantRange: target.Sub(pos).Norm(),
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}, nil
}

// rootBeyondInterval reports orbit.ErrOutOfRange when doppler changes sign
// between an outermost sample and the nearer end of [lo, hi]. Outermost
// samples are stored exactly, so evaluating them never fails.
func rootBeyondInterval(doppler func(float64) float64, o *orbit.Orbit, lo, hi float64) error {
	first, last := o.StartTime(), o.EndTime()
	if first > last {
		first, last = last, first
	}

	changes := func(a, b float64) bool {
		fa, fb := doppler(a), doppler(b)
		return fa == 0 || fb == 0 || math.Signbit(fa) != math.Signbit(fb)
	}
	switch {
	case changes(first, lo):
		return fmt.Errorf("%w: zero-doppler time in [%v, %v], before the interpolable interval",
			orbit.ErrOutOfRange, first, lo)
	case changes(hi, last):
		return fmt.Errorf("%w: zero-doppler time in [%v, %v], after the interpolable interval",
			orbit.ErrOutOfRange, hi, last)
	}
	return nil
}
