// Package grid maps between sample indices and physical coordinates on
// evenly spaced one-dimensional axes (azimuth time, slant range, DEM
// longitude/latitude).
package grid

import (
	"errors"
	"math"
)

// ErrZeroSpacing is returned when a LinearSpace is built with zero spacing.
var ErrZeroSpacing = errors.New("grid spacing must be non-zero")

// LinearSpace is an evenly spaced axis: Value(i) = start + i*spacing.
// Immutable after construction.
type LinearSpace struct {
	start   float64
	spacing float64
}

// New creates a LinearSpace. Spacing may be negative (e.g. north-up DEM rows)
// but not zero.
func New(start, spacing float64) (LinearSpace, error) {
	if spacing == 0 || math.IsNaN(spacing) {
		return LinearSpace{}, ErrZeroSpacing
	}
	return LinearSpace{start: start, spacing: spacing}, nil
}

// MustNew is like New but panics on zero spacing. Intended for constants and tests.
func MustNew(start, spacing float64) LinearSpace {
	ls, err := New(start, spacing)
	if err != nil {
		panic(err)
	}
	return ls
}

// Start returns the coordinate of index 0.
func (l LinearSpace) Start() float64 { return l.start }

// Spacing returns the distance between consecutive samples.
func (l LinearSpace) Spacing() float64 { return l.spacing }

// Value returns the coordinate at (possibly fractional) index i.
func (l LinearSpace) Value(i float64) float64 {
	return l.start + i*l.spacing
}

// IndexOf returns the fractional index of coordinate v.
func (l LinearSpace) IndexOf(v float64) float64 {
	return (v - l.start) / l.spacing
}

// Interval is a range of values with half-open membership [Min, Max).
type Interval struct {
	Min float64
	Max float64
}

// HalfOpenContains reports whether Min <= v < Max.
func (iv Interval) HalfOpenContains(v float64) bool {
	return v >= iv.Min && v < iv.Max
}

// IndexInterval returns the interval of valid fractional indices for an axis
// with n samples, i.e. [0, n).
func IndexInterval(n int) Interval {
	return Interval{Min: 0, Max: float64(n)}
}
