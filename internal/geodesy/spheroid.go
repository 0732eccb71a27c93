// Package geodesy models reference ellipsoids and converts between geodetic
// and Earth-centred Earth-fixed coordinates.
//
// A spheroid is an ellipsoid with two equal axes,
//
//	(x² + y²)/a² + z²/b² = 1
//
// where the semi-major axis a is the equatorial radius and the semi-minor
// axis b the polar radius. Reference ellipsoids are usually given by a and
// the flattening f = (a - b)/a: 0 < f < 1 is oblate, f = 0 a sphere, f < 0
// prolate.
package geodesy

import (
	"errors"
	"math"
)

// ErrDomain is returned when a derived quantity is undefined for the
// spheroid's parameters.
var ErrDomain = errors.New("value undefined for spheroid")

// Spheroid is an immutable reference ellipsoid.
type Spheroid struct {
	a float64
	f float64
}

// WGS84 is the World Geodetic System 1984 reference ellipsoid.
var WGS84 = NewSpheroid(6378137.0, 1.0/298.257223563)

// NewSpheroid creates a spheroid from its semi-major axis (metres) and flattening.
func NewSpheroid(a, f float64) Spheroid {
	return Spheroid{a: a, f: f}
}

// SemimajorAxis returns the equatorial radius.
func (s Spheroid) SemimajorAxis() float64 { return s.a }

// A is the same as SemimajorAxis.
func (s Spheroid) A() float64 { return s.a }

// SemiminorAxis returns the polar radius, a(1 - f).
func (s Spheroid) SemiminorAxis() float64 { return s.B() }

// B is the same as SemiminorAxis.
func (s Spheroid) B() float64 { return s.a * (1 - s.f) }

// Flattening returns the (first) flattening.
func (s Spheroid) Flattening() float64 { return s.f }

// F is the same as Flattening.
func (s Spheroid) F() float64 { return s.f }

// InverseFlattening returns 1/f. A sphere has no finite inverse flattening,
// so f == 0 yields ErrDomain.
func (s Spheroid) InverseFlattening() (float64, error) {
	if s.f == 0 {
		return math.Inf(1), ErrDomain
	}
	return 1 / s.f, nil
}

// ThirdFlattening returns n = (a - b)/(a + b) = f/(2 - f).
func (s Spheroid) ThirdFlattening() float64 {
	return s.f / (2 - s.f)
}

// SquaredEccentricity returns e² = 1 - b²/a² = f(2 - f).
func (s Spheroid) SquaredEccentricity() float64 {
	return s.f * (2 - s.f)
}

// Eccentricity returns e. NaN for prolate spheroids, where e² < 0.
func (s Spheroid) Eccentricity() float64 {
	return math.Sqrt(s.SquaredEccentricity())
}

// Equal reports whether both parameters are identical. This is a strict
// identity check with no tolerance, not a test for geometric closeness.
func (s Spheroid) Equal(o Spheroid) bool {
	return s.a == o.a && s.f == o.f
}
