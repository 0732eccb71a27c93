// Package orbit models a platform trajectory as a continuous function of time,
// interpolated from state vectors sampled on a uniform time grid.
package orbit

import (
	"errors"
	"fmt"
	"math"

	"github.com/star/caesar/internal/grid"
	"github.com/star/caesar/internal/vec"
)

var (
	// ErrEmptyInput is returned when no state vectors are provided.
	ErrEmptyInput = errors.New("no state vectors provided")

	// ErrOutOfRange is returned when the interpolation stencil for a query
	// time would fall outside the stored samples.
	ErrOutOfRange = errors.New("time outside interpolable orbit interval")
)

// componentsPerSample is position (3) plus velocity (3).
const componentsPerSample = 6

// snapTolerance is how close (in fractional sample index) a query must be to
// a grid point to return that sample verbatim.
const snapTolerance = 1e-9

// Orbit holds state vectors at evenly spaced times. Immutable after New;
// safe for concurrent use.
type Orbit struct {
	time      grid.LinearSpace
	statevecs []vec.Vec6
}

// New builds an Orbit from a start time, a time step, and a flat sequence of
// (x, y, z, vx, vy, vz) groups, one per sample in increasing time order.
// The input is copied.
func New(t0, dt float64, flat []float64) (*Orbit, error) {
	if len(flat) == 0 {
		return nil, ErrEmptyInput
	}
	if len(flat)%componentsPerSample != 0 {
		return nil, fmt.Errorf("%w: state vector count %d not a multiple of six", vec.ErrShape, len(flat))
	}
	ls, err := grid.New(t0, dt)
	if err != nil {
		return nil, fmt.Errorf("orbit time step: %w", err)
	}

	statevecs := make([]vec.Vec6, len(flat)/componentsPerSample)
	for i := range statevecs {
		copy(statevecs[i][:], flat[componentsPerSample*i:componentsPerSample*(i+1)])
	}

	return &Orbit{time: ls, statevecs: statevecs}, nil
}

// StartTime returns the time of the first sample.
func (o *Orbit) StartTime() float64 {
	return o.time.Start()
}

// EndTime returns the time of the last sample (not one step beyond it).
func (o *Orbit) EndTime() float64 {
	return o.time.Value(float64(len(o.statevecs) - 1))
}

// InterpolableInterval returns the time range over which Evaluate succeeds:
// from the second sample to the second-to-last, ordered so lo <= hi. Orbits
// with fewer than four samples have no such range and return ErrOutOfRange.
func (o *Orbit) InterpolableInterval() (lo, hi float64, err error) {
	n := len(o.statevecs)
	if n < 4 {
		return 0, 0, fmt.Errorf("%w: need at least 4 samples to interpolate, have %d", ErrOutOfRange, n)
	}
	lo, hi = o.time.Value(1), o.time.Value(float64(n-2))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}

// Spacing returns the time step between samples.
func (o *Orbit) Spacing() float64 {
	return o.time.Spacing()
}

// Len returns the number of stored state vectors.
func (o *Orbit) Len() int {
	return len(o.statevecs)
}

// Samples returns a copy of the stored state vectors.
func (o *Orbit) Samples() []vec.Vec6 {
	out := make([]vec.Vec6, len(o.statevecs))
	copy(out, o.statevecs)
	return out
}

// Evaluate returns the interpolated position and velocity at time t.
//
// Between samples each component is blended from the four neighbours
// bi-1, bi, bi+1, bi+2 where bi = floor(index). All four must exist; queries
// in the first or last sample interval fail with ErrOutOfRange. A query that
// lands on a sample time returns that sample exactly.
func (o *Orbit) Evaluate(t float64) (vec.Vec6, error) {
	i := o.time.IndexOf(t)
	n := len(o.statevecs)

	if math.IsNaN(i) || math.IsInf(i, 0) {
		return vec.Vec6{}, fmt.Errorf("%w: t=%v", ErrOutOfRange, t)
	}

	if r := math.Round(i); math.Abs(i-r) < snapTolerance && r >= 0 && r < float64(n) {
		return o.statevecs[int(r)], nil
	}

	bi := int(math.Floor(i))
	ai, ci, di := bi-1, bi+1, bi+2
	if ai < 0 || di >= n {
		return vec.Vec6{}, fmt.Errorf("%w: t=%v needs samples %d..%d, have 0..%d",
			ErrOutOfRange, t, ai, di, n-1)
	}

	a, b, c, d := o.statevecs[ai], o.statevecs[bi], o.statevecs[ci], o.statevecs[di]
	x := i - float64(bi)

	var out vec.Vec6
	for j := range out {
		out[j] = cubicInterpolate(a[j], b[j], c[j], d[j], x)
	}
	return out, nil
}

// Position returns the interpolated position at t.
func (o *Orbit) Position(t float64) (vec.Vec3, error) {
	sv, err := o.Evaluate(t)
	if err != nil {
		return vec.Vec3{}, err
	}
	return sv.Head(), nil
}

// cubicInterpolate blends b and c using outer neighbours a and d, with x in
// [0, 1). Returns b at x = 0 and c at x = 1.
func cubicInterpolate(a, b, c, d, x float64) float64 {
	y := 1 - x
	return (x*(c-a*y*y+(c*(y*3+1)-d*y)*x) + b*(x*x*(x*3-5)+2)) / 2
}
