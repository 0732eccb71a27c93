package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/cmplx"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/mat"

	"github.com/star/caesar/internal/geodesy"
	"github.com/star/caesar/internal/grid"
	"github.com/star/caesar/internal/metrics"
	"github.com/star/caesar/internal/orbit"
	"github.com/star/caesar/internal/raster"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/tracing"
)

// ErrInvalidRequest is returned when a geocoding request is incomplete.
var ErrInvalidRequest = errors.New("invalid geocode request")

// DEM is a height raster on a regular lon/lat grid. Lon indexes columns and
// Lat indexes rows, both in degrees.
type DEM struct {
	Heights *mat.Dense
	Lon     grid.LinearSpace
	Lat     grid.LinearSpace
}

// RadarImage is a complex radar image. Azimuth maps line index to
// zero-Doppler time and Range maps sample index to slant range.
type RadarImage struct {
	Data    mat.CMatrix
	Azimuth grid.LinearSpace
	Range   grid.LinearSpace
}

// Request describes one geocoding run. The output grid has Rows x Cols
// pixels; Lon and Lat map column and row indices to degrees.
type Request struct {
	Spheroid geodesy.Spheroid // zero value means WGS84
	Orbit    *orbit.Orbit
	DEM      DEM
	Radar    RadarImage
	Lon      grid.LinearSpace
	Lat      grid.LinearSpace
	Rows     int
	Cols     int
	Options  rdr.Options
}

// Output is a geocoded amplitude image. Pixels that were skipped hold 0.
type Output struct {
	Amplitude    *mat.Dense
	Geocoded     int
	NotConverged int // included in Geocoded
	OutsideDEM   int
	OutsideRadar int
	Failed       int
}

// rowStats are per-row counters, summed after all rows finish.
type rowStats struct {
	geocoded, notConverged, outsideDEM, outsideRadar, failed int
}

// Geocoder resamples radar images onto a lon/lat grid.
type Geocoder struct {
	pool   *WorkerPool
	logger *slog.Logger
}

// NewGeocoder creates a geocoder that spreads output rows across pool.
func NewGeocoder(pool *WorkerPool, logger *slog.Logger) *Geocoder {
	return &Geocoder{pool: pool, logger: logger}
}

func (req *Request) validate() error {
	switch {
	case req.Orbit == nil:
		return fmt.Errorf("%w: no orbit", ErrInvalidRequest)
	case req.Rows <= 0 || req.Cols <= 0:
		return fmt.Errorf("%w: output size %dx%d", ErrInvalidRequest, req.Rows, req.Cols)
	case req.DEM.Heights == nil:
		return fmt.Errorf("%w: no DEM", ErrInvalidRequest)
	case req.Radar.Data == nil:
		return fmt.Errorf("%w: no radar image", ErrInvalidRequest)
	}
	axes := []struct {
		name string
		ls   grid.LinearSpace
	}{
		{"output lon", req.Lon},
		{"output lat", req.Lat},
		{"dem lon", req.DEM.Lon},
		{"dem lat", req.DEM.Lat},
		{"radar azimuth", req.Radar.Azimuth},
		{"radar range", req.Radar.Range},
	}
	for _, ax := range axes {
		if ax.ls.Spacing() == 0 {
			return fmt.Errorf("%w: %s axis: %w", ErrInvalidRequest, ax.name, grid.ErrZeroSpacing)
		}
	}
	return nil
}

// Run geocodes req. For each output pixel the DEM height is sampled
// bilinearly, the point is converted to ECEF and solved for zero-Doppler
// time and slant range, and the radar image amplitude is sampled at the
// matching line and sample. Pixels outside the DEM or the radar image are
// skipped.
func (g *Geocoder) Run(ctx context.Context, req Request) (*Output, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	sph := req.Spheroid
	if sph.A() == 0 {
		sph = geodesy.WGS84
	}

	ctx, span := tracing.Start(ctx, "geocode.run",
		attribute.Int("rows", req.Rows),
		attribute.Int("cols", req.Cols),
	)
	defer span.End()

	start := time.Now()
	demRows, demCols := req.DEM.Heights.Dims()
	demY, demX := grid.IndexInterval(demRows), grid.IndexInterval(demCols)
	radarRows, radarCols := req.Radar.Data.Dims()
	lineIv, sampleIv := grid.IndexInterval(radarRows), grid.IndexInterval(radarCols)

	amp := mat.NewDense(req.Rows, req.Cols, nil)
	stats := make([]rowStats, req.Rows)

	err := g.pool.forEach(ctx, req.Rows, func(r int) {
		st := &stats[r]
		lat := req.Lat.Value(float64(r))
		yi := req.DEM.Lat.IndexOf(lat)
		if !demY.HalfOpenContains(yi) {
			st.outsideDEM += req.Cols
			return
		}

		for c := 0; c < req.Cols; c++ {
			lon := req.Lon.Value(float64(c))
			xi := req.DEM.Lon.IndexOf(lon)
			if !demX.HalfOpenContains(xi) {
				st.outsideDEM++
				continue
			}

			h := raster.Bilerp(req.DEM.Heights, xi, yi)
			xyz := sph.LLHToXYZ(geodesy.LLH{
				Lon:    geodesy.Radians(lon),
				Lat:    geodesy.Radians(lat),
				Height: h,
			})

			res, err := rdr.XYZToRDR(xyz, req.Orbit, req.Options)
			if err != nil {
				st.failed++
				metrics.RecordSolve(metrics.ResultError, 0)
				continue
			}
			if res.Converged {
				metrics.RecordSolve(metrics.ResultConverged, res.Iterations)
			} else {
				st.notConverged++
				metrics.RecordSolve(metrics.ResultNotConverged, res.Iterations)
			}

			line := req.Radar.Azimuth.IndexOf(res.Time)
			sample := req.Radar.Range.IndexOf(res.SlantRange)
			if !lineIv.HalfOpenContains(line) || !sampleIv.HalfOpenContains(sample) {
				st.outsideRadar++
				continue
			}

			amp.Set(r, c, cmplx.Abs(raster.BilerpComplex(req.Radar.Data, sample, line)))
			st.geocoded++
		}
	})

	out := &Output{Amplitude: amp}
	for _, st := range stats {
		out.Geocoded += st.geocoded
		out.NotConverged += st.notConverged
		out.OutsideDEM += st.outsideDEM
		out.OutsideRadar += st.outsideRadar
		out.Failed += st.failed
	}

	duration := time.Since(start)
	metrics.RecordBatch("geocode", duration)
	span.SetAttributes(
		attribute.Int("geocoded", out.Geocoded),
		attribute.Int("failed", out.Failed),
	)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, fmt.Errorf("geocoding cancelled: %w", err)
	}

	g.logger.Info("geocoding complete",
		"rows", req.Rows,
		"cols", req.Cols,
		"geocoded", out.Geocoded,
		"not_converged", out.NotConverged,
		"outside_dem", out.OutsideDEM,
		"outside_radar", out.OutsideRadar,
		"failed", out.Failed,
		"duration_ms", duration.Milliseconds(),
	)
	return out, nil
}
