package geocode

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/star/caesar/internal/geodesy"
	"github.com/star/caesar/internal/grid"
	"github.com/star/caesar/internal/orbit"
	"github.com/star/caesar/internal/rdr"
)

const (
	sceneLon = -122.4
	sceneLat = 37.8
)

// northboundPass samples a circular orbit 700 km above the equatorial radius,
// moving north along the meridian 0.35 degrees west of the scene and passing
// the scene latitude about 20 s in.
func northboundPass(t *testing.T) *orbit.Orbit {
	t.Helper()
	const n = 41
	r := geodesy.WGS84.A() + 700e3
	lon := geodesy.Radians(sceneLon - 0.35)
	omega := 7500 / r
	lat0 := geodesy.Radians(sceneLat) - omega*20

	flat := make([]float64, 0, 6*n)
	for k := 0; k < n; k++ {
		lat := lat0 + omega*float64(k)
		flat = append(flat,
			r*math.Cos(lat)*math.Cos(lon),
			r*math.Cos(lat)*math.Sin(lon),
			r*math.Sin(lat),
			-r*omega*math.Sin(lat)*math.Cos(lon),
			-r*omega*math.Sin(lat)*math.Sin(lon),
			r*omega*math.Cos(lat),
		)
	}
	o, err := orbit.New(0, 1, flat)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// flatDEM covers [lon0, lon0+0.2) x (lat0-0.2, lat0] at 0.01 degree posting.
func flatDEM(lon0, lat0, h float64) DEM {
	heights := mat.NewDense(20, 20, nil)
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			heights.Set(i, j, h)
		}
	}
	return DEM{
		Heights: heights,
		Lon:     grid.MustNew(lon0, 0.01),
		Lat:     grid.MustNew(lat0, -0.01),
	}
}

// sceneRequest builds a 4x5 output grid around the scene centre with a radar
// image whose axes are centred on the centre pixel's solution.
func sceneRequest(t *testing.T, fill func(line, sample int) complex128) Request {
	t.Helper()
	o := northboundPass(t)

	centre := geodesy.WGS84.LLHToXYZ(geodesy.LLH{
		Lon: geodesy.Radians(sceneLon), Lat: geodesy.Radians(sceneLat), Height: 100,
	})
	ref, err := rdr.XYZToRDR(centre, o, rdr.DefaultOptions())
	if err != nil {
		t.Fatalf("reference solve: %v", err)
	}

	const lines, samples = 200, 400
	data := mat.NewCDense(lines, samples, nil)
	for i := 0; i < lines; i++ {
		for j := 0; j < samples; j++ {
			data.Set(i, j, fill(i, j))
		}
	}

	return Request{
		Orbit: o,
		DEM:   flatDEM(sceneLon-0.1, sceneLat+0.1, 100),
		Radar: RadarImage{
			Data:    data,
			Azimuth: grid.MustNew(ref.Time-1, 0.01),
			Range:   grid.MustNew(ref.SlantRange-2000, 10),
		},
		Lon:     grid.MustNew(sceneLon-0.002, 0.001),
		Lat:     grid.MustNew(sceneLat+0.0015, -0.001),
		Rows:    4,
		Cols:    5,
		Options: rdr.DefaultOptions(),
	}
}

func TestGeocodeConstantImage(t *testing.T) {
	req := sceneRequest(t, func(int, int) complex128 { return 3 + 4i })

	g := NewGeocoder(NewWorkerPool(2, testLogger()), testLogger())
	out, err := g.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Geocoded != 20 || out.Failed != 0 || out.OutsideDEM != 0 || out.OutsideRadar != 0 {
		t.Errorf("counts = %+v, want all 20 pixels geocoded", out)
	}
	r, c := out.Amplitude.Dims()
	if r != 4 || c != 5 {
		t.Fatalf("output dims = %dx%d, want 4x5", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := out.Amplitude.At(i, j); math.Abs(v-5) > 1e-12 {
				t.Errorf("amplitude(%d,%d) = %v, want 5", i, j, v)
			}
		}
	}
}

func TestGeocodeSamplesAtSolvedCoordinates(t *testing.T) {
	// Amplitude equals the range sample index, so each output pixel reports
	// where in range it landed.
	req := sceneRequest(t, func(_, sample int) complex128 { return complex(float64(sample), 0) })

	g := NewGeocoder(NewWorkerPool(3, testLogger()), testLogger())
	out, err := g.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, px := range [][2]int{{0, 0}, {1, 2}, {3, 4}} {
		row, col := px[0], px[1]
		xyz := geodesy.WGS84.LLHToXYZ(geodesy.LLH{
			Lon:    geodesy.Radians(req.Lon.Value(float64(col))),
			Lat:    geodesy.Radians(req.Lat.Value(float64(row))),
			Height: 100,
		})
		sol, err := rdr.XYZToRDR(xyz, req.Orbit, req.Options)
		if err != nil {
			t.Fatal(err)
		}
		want := req.Radar.Range.IndexOf(sol.SlantRange)
		if got := out.Amplitude.At(row, col); math.Abs(got-want) > 1e-6 {
			t.Errorf("pixel (%d,%d) = %v, want sample index %v", row, col, got, want)
		}
	}

	// Further east is further from a platform passing to the west.
	if out.Amplitude.At(0, 4) <= out.Amplitude.At(0, 0) {
		t.Errorf("range did not increase eastward: %v vs %v", out.Amplitude.At(0, 0), out.Amplitude.At(0, 4))
	}
}

func TestGeocodeSkipsOutsideDEM(t *testing.T) {
	req := sceneRequest(t, func(int, int) complex128 { return 1 })
	// DEM starts between output columns 2 and 3.
	req.DEM = flatDEM(sceneLon+0.0005, sceneLat+0.1, 100)

	out, err := NewGeocoder(NewWorkerPool(2, testLogger()), testLogger()).Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.OutsideDEM != 4*3 || out.Geocoded != 4*2 {
		t.Errorf("counts = %+v, want 12 outside DEM and 8 geocoded", out)
	}
	if out.Amplitude.At(0, 0) != 0 || out.Amplitude.At(0, 4) != 1 {
		t.Errorf("unexpected amplitudes %v and %v", out.Amplitude.At(0, 0), out.Amplitude.At(0, 4))
	}
}

func TestGeocodeSkipsOutsideRadar(t *testing.T) {
	req := sceneRequest(t, func(int, int) complex128 { return 1 })
	// Move the range window 50 km out so no pixel lands in it.
	req.Radar.Range = grid.MustNew(req.Radar.Range.Start()+50e3, 10)

	out, err := NewGeocoder(NewWorkerPool(2, testLogger()), testLogger()).Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.OutsideRadar != 20 || out.Geocoded != 0 {
		t.Errorf("counts = %+v, want all 20 outside the radar image", out)
	}
}

func TestGeocodeInvalidRequest(t *testing.T) {
	valid := sceneRequest(t, func(int, int) complex128 { return 1 })

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"no orbit", func(r *Request) { r.Orbit = nil }},
		{"no rows", func(r *Request) { r.Rows = 0 }},
		{"no dem", func(r *Request) { r.DEM.Heights = nil }},
		{"no radar", func(r *Request) { r.Radar.Data = nil }},
		{"zero axis", func(r *Request) { r.Lon = grid.LinearSpace{} }},
	}
	g := NewGeocoder(NewWorkerPool(1, testLogger()), testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			if _, err := g.Run(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestGeocodeInvalidAxisNamedInOrder(t *testing.T) {
	req := sceneRequest(t, func(int, int) complex128 { return 1 })
	req.Radar.Range = grid.LinearSpace{}
	req.Lat = grid.LinearSpace{}
	req.DEM.Lon = grid.LinearSpace{}

	g := NewGeocoder(NewWorkerPool(1, testLogger()), testLogger())
	for i := 0; i < 20; i++ {
		_, err := g.Run(context.Background(), req)
		if !errors.Is(err, grid.ErrZeroSpacing) {
			t.Fatalf("error = %v, want grid.ErrZeroSpacing", err)
		}
		if !strings.Contains(err.Error(), "output lat axis") {
			t.Fatalf("run %d: error = %q, want the output lat axis reported first", i, err)
		}
	}
}

func TestGeocodeCancelled(t *testing.T) {
	req := sceneRequest(t, func(int, int) complex128 { return 1 })
	req.Rows = 500

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewGeocoder(NewWorkerPool(2, testLogger()), testLogger()).Run(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if out == nil || out.Amplitude == nil {
		t.Fatal("expected partial output on cancellation")
	}
}
