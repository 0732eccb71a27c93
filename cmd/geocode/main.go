// Command geocode resamples a complex radar image onto a lon/lat grid using a
// DEM and the platform orbit, writing the amplitude as a raw float32 raster.
//
// Rasters are headerless row-major little-endian files: float32 for the DEM
// and the output, complex64 for the radar image. Axes are given as
// "start,step"; sizes as "ROWSxCOLS".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gonum.org/v1/gonum/mat"

	"github.com/star/caesar/internal/geocode"
	"github.com/star/caesar/internal/geodesy"
	"github.com/star/caesar/internal/grid"
	"github.com/star/caesar/internal/raster"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/statevec"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "geocode:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("geocode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	orbitFile := fs.String("orbit", "", "state vector file (t x y z vx vy vz per line)")
	leaderFile := fs.String("leader", "", "CEOS leader file with a platform position record")
	demFile := fs.String("dem", "", "DEM heights, float32")
	demSize := fs.String("dem-size", "", "DEM ROWSxCOLS")
	demLon := fs.String("dem-lon", "", "DEM column axis in degrees: start,step")
	demLat := fs.String("dem-lat", "", "DEM row axis in degrees: start,step")
	slcFile := fs.String("slc", "", "radar image, complex64")
	slcSize := fs.String("slc-size", "", "radar image LINESxSAMPLES")
	azimuth := fs.String("azimuth", "", "line axis in orbit time units: start,step")
	rangeAxis := fs.String("range", "", "sample axis in slant range units: start,step")
	outLon := fs.String("lon", "", "output column axis in degrees: start,step")
	outLat := fs.String("lat", "", "output row axis in degrees: start,step")
	outSize := fs.String("size", "", "output ROWSxCOLS")
	outFile := fs.String("out", "", "output amplitude raster, float32")
	tol := fs.Float64("tol", rdr.DefaultTolerance, "bisection tolerance in seconds")
	maxIter := fs.Int("maxiter", rdr.DefaultMaxIterations, "bisection iteration cap")
	workers := fs.Int("workers", 0, "solver goroutines (0: one per CPU)")
	verbose := fs.Bool("v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, rf := range []struct{ flag, value string }{
		{"-dem", *demFile},
		{"-slc", *slcFile},
		{"-out", *outFile},
	} {
		if rf.value == "" {
			fs.Usage()
			return fmt.Errorf("%s is required", rf.flag)
		}
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	var req geocode.Request
	var err error
	if req.Rows, req.Cols, err = parseSize("-size", *outSize); err != nil {
		return err
	}
	axes := []struct {
		flag  string
		value string
		dst   *grid.LinearSpace
	}{
		{"-lon", *outLon, &req.Lon},
		{"-lat", *outLat, &req.Lat},
		{"-dem-lon", *demLon, &req.DEM.Lon},
		{"-dem-lat", *demLat, &req.DEM.Lat},
		{"-azimuth", *azimuth, &req.Radar.Azimuth},
		{"-range", *rangeAxis, &req.Radar.Range},
	}
	for _, ax := range axes {
		if *ax.dst, err = parseAxis(ax.flag, ax.value); err != nil {
			return err
		}
	}

	loaded, err := statevec.NewStore().Load(*orbitFile, *leaderFile, logger)
	if err != nil {
		return err
	}
	req.Orbit = loaded.Orbit

	demRows, demCols, err := parseSize("-dem-size", *demSize)
	if err != nil {
		return err
	}
	if req.DEM.Heights, err = readRaster(*demFile, func(r io.Reader) (*mat.Dense, error) {
		return raster.ReadFloat32(r, demRows, demCols)
	}); err != nil {
		return fmt.Errorf("DEM: %w", err)
	}

	lines, samples, err := parseSize("-slc-size", *slcSize)
	if err != nil {
		return err
	}
	slc, err := readRaster(*slcFile, func(r io.Reader) (*mat.CDense, error) {
		return raster.ReadComplex64(r, lines, samples)
	})
	if err != nil {
		return fmt.Errorf("radar image: %w", err)
	}
	req.Radar.Data = slc

	req.Spheroid = geodesy.WGS84
	req.Options = rdr.Options{Tolerance: *tol, MaxIterations: *maxIter, RequireBracket: true}

	g := geocode.NewGeocoder(geocode.NewWorkerPool(*workers, logger), logger)
	out, err := g.Run(ctx, req)
	if err != nil {
		return err
	}

	f, err := os.Create(*outFile)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := raster.WriteFloat32(f, out.Amplitude); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", *outFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", *outFile, err)
	}

	fmt.Fprintf(stdout, "geocoded=%d not_converged=%d outside_dem=%d outside_radar=%d failed=%d\n",
		out.Geocoded, out.NotConverged, out.OutsideDEM, out.OutsideRadar, out.Failed)
	return nil
}

func readRaster[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	m, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// parseAxis parses "start,step".
func parseAxis(flagName, s string) (grid.LinearSpace, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return grid.LinearSpace{}, fmt.Errorf("%s: want start,step, got %q", flagName, s)
	}
	var v [2]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return grid.LinearSpace{}, fmt.Errorf("%s: %w", flagName, err)
		}
		v[i] = f
	}
	ls, err := grid.New(v[0], v[1])
	if err != nil {
		return grid.LinearSpace{}, fmt.Errorf("%s: %w", flagName, err)
	}
	return ls, nil
}

// parseSize parses "ROWSxCOLS".
func parseSize(flagName, s string) (rows, cols int, err error) {
	r, c, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%s: want ROWSxCOLS, got %q", flagName, s)
	}
	if rows, err = strconv.Atoi(r); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", flagName, err)
	}
	if cols, err = strconv.Atoi(c); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", flagName, err)
	}
	if rows <= 0 || cols <= 0 {
		return 0, 0, fmt.Errorf("%s: %w: %dx%d", flagName, raster.ErrSize, rows, cols)
	}
	return rows, cols, nil
}
