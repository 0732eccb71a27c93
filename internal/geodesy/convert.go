package geodesy

import (
	"math"

	"github.com/star/caesar/internal/vec"
)

// LLH is a geodetic position: longitude and latitude in radians, height in
// metres above the ellipsoid.
type LLH struct {
	Lon, Lat, Height float64
}

// PrimeVerticalRadius returns the radius of curvature in the prime vertical
// (east-west direction) at geodetic latitude lat (radians).
func (s Spheroid) PrimeVerticalRadius(lat float64) float64 {
	sinLat := math.Sin(lat)
	return s.a / math.Sqrt(1-s.SquaredEccentricity()*sinLat*sinLat)
}

// LLHToXYZ converts geodetic coordinates (radians, metres) to ECEF metres.
func (s Spheroid) LLHToXYZ(p LLH) vec.Vec3 {
	e2 := s.SquaredEccentricity()
	n := s.PrimeVerticalRadius(p.Lat)
	cosLat := math.Cos(p.Lat)

	return vec.Vec3{
		(n + p.Height) * cosLat * math.Cos(p.Lon),
		(n + p.Height) * cosLat * math.Sin(p.Lon),
		(n*(1-e2) + p.Height) * math.Sin(p.Lat),
	}
}

// XYZToLLH converts ECEF metres to geodetic coordinates using Bowring's
// iteration. A handful of iterations reach sub-millimetre accuracy for points
// near the surface and in low orbit.
func (s Spheroid) XYZToLLH(xyz vec.Vec3) LLH {
	const iterations = 6

	e2 := s.SquaredEccentricity()
	x, y, z := xyz[0], xyz[1], xyz[2]

	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)
	lat := math.Atan2(z, p*(1-e2))

	for i := 0; i < iterations; i++ {
		lat = math.Atan2(z+e2*s.PrimeVerticalRadius(lat)*math.Sin(lat), p)
	}

	n := s.PrimeVerticalRadius(lat)
	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = p/cosLat - n
	} else {
		h = math.Abs(z)/math.Abs(sinLat) - n*(1-e2)
	}

	return LLH{Lon: lon, Lat: lat, Height: h}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }
