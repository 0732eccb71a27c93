// Package raster samples regularly gridded 2-D fields (DEM heights, complex
// SLC images) at fractional pixel coordinates.
//
// Coordinates are (x, y) = (column, row). Neighbours outside the field are
// replaced by the nearest edge sample, so sampling never fails.
package raster

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// stencil holds the four clamped neighbour indices and their area weights.
type stencil struct {
	r0, r1, c0, c1     int
	w00, w01, w10, w11 float64 // weights for (r0,c0), (r0,c1), (r1,c0), (r1,c1)
}

func newStencil(rows, cols int, x, y float64) stencil {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	x1 := x0 + 1
	y1 := y0 + 1

	return stencil{
		r0:  clamp(y0, rows),
		r1:  clamp(y1, rows),
		c0:  clamp(x0, cols),
		c1:  clamp(x1, cols),
		w00: (x1 - x) * (y1 - y),
		w01: (x - x0) * (y1 - y),
		w10: (x1 - x) * (y - y0),
		w11: (x - x0) * (y - y0),
	}
}

// clamp limits index v to [0, n-1].
func clamp(v float64, n int) int {
	if v <= 0 {
		return 0
	}
	if v >= float64(n-1) {
		return n - 1
	}
	return int(v)
}

// Bilerp returns the bilinear interpolation of a real field at column x, row y.
// Returns NaN for NaN coordinates or an empty field.
func Bilerp(m mat.Matrix, x, y float64) float64 {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 || math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	s := newStencil(rows, cols, x, y)
	return m.At(s.r0, s.c0)*s.w00 +
		m.At(s.r0, s.c1)*s.w01 +
		m.At(s.r1, s.c0)*s.w10 +
		m.At(s.r1, s.c1)*s.w11
}

// BilerpComplex is Bilerp for complex fields such as single-look complex images.
func BilerpComplex(m mat.CMatrix, x, y float64) complex128 {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 || math.IsNaN(x) || math.IsNaN(y) {
		return cmplx.NaN()
	}
	s := newStencil(rows, cols, x, y)
	return m.At(s.r0, s.c0)*complex(s.w00, 0) +
		m.At(s.r0, s.c1)*complex(s.w01, 0) +
		m.At(s.r1, s.c0)*complex(s.w10, 0) +
		m.At(s.r1, s.c1)*complex(s.w11, 0)
}
