// Package vec provides small fixed-size vectors for platform state and
// line-of-sight geometry.
//
// Vec3 and Vec6 are plain arrays: they copy by value and never grow. Slicing a
// state vector into its position and velocity halves is checked by the array
// types at compile time; HeadOf and TailOf cover runtime-sized data.
package vec

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShape is returned when data has the wrong length for the requested shape.
var ErrShape = errors.New("invalid shape")

// Number is the set of component types HeadOf and TailOf accept.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64 | ~complex64 | ~complex128
}

// Vec3 is a three-component vector, e.g. an ECEF position in metres.
type Vec3 [3]float64

// Vec6 is a platform state vector: position (x, y, z) followed by velocity
// (vx, vy, vz).
type Vec6 [6]float64

// Dot returns the sum of pairwise products.
func (v Vec3) Dot(w Vec3) float64 {
	return floats.Dot(v[:], w[:])
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return floats.Norm(v[:], 2)
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	var out Vec3
	floats.SubTo(out[:], v[:], w[:])
	return out
}

// Head returns the position half of the state vector.
func (s Vec6) Head() Vec3 {
	return Vec3(s[:3])
}

// Tail returns the velocity half of the state vector.
func (s Vec6) Tail() Vec3 {
	return Vec3(s[3:])
}

// Dot returns the sum of pairwise products.
func (s Vec6) Dot(w Vec6) float64 {
	return floats.Dot(s[:], w[:])
}

// Norm returns the Euclidean length of s.
func (s Vec6) Norm() float64 {
	return floats.Norm(s[:], 2)
}

// Sub returns s - w.
func (s Vec6) Sub(w Vec6) Vec6 {
	var out Vec6
	floats.SubTo(out[:], s[:], w[:])
	return out
}

// FromSlice copies exactly three values into a Vec3.
func FromSlice(s []float64) (Vec3, error) {
	if len(s) != 3 {
		return Vec3{}, fmt.Errorf("%w: got %d components, want 3", ErrShape, len(s))
	}
	return Vec3(s), nil
}

// HeadOf returns a copy of the first k elements of v.
func HeadOf[T Number](v []T, k int) ([]T, error) {
	if k < 0 || k > len(v) {
		return nil, fmt.Errorf("%w: head length %d outside [0, %d]", ErrShape, k, len(v))
	}
	out := make([]T, k)
	copy(out, v[:k])
	return out, nil
}

// TailOf returns a copy of the last k elements of v.
func TailOf[T Number](v []T, k int) ([]T, error) {
	if k < 0 || k > len(v) {
		return nil, fmt.Errorf("%w: tail length %d outside [0, %d]", ErrShape, k, len(v))
	}
	out := make([]T, k)
	copy(out, v[len(v)-k:])
	return out, nil
}
