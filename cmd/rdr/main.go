// Command rdr solves zero-Doppler time and slant range for targets read from
// stdin, one "x y z" (or, with -llh, "lon_deg lat_deg height") per line.
package main

import (
	"bufio"
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

	"github.com/star/caesar/internal/geocode"
	"github.com/star/caesar/internal/geodesy"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/statevec"
	"github.com/star/caesar/internal/vec"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rdr:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rdr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	orbitFile := fs.String("orbit", "", "state vector file (t x y z vx vy vz per line)")
	leaderFile := fs.String("leader", "", "CEOS leader file with a platform position record")
	llh := fs.Bool("llh", false, "read targets as lon_deg lat_deg height on WGS84")
	tol := fs.Float64("tol", rdr.DefaultTolerance, "bisection tolerance in seconds")
	maxIter := fs.Int("maxiter", rdr.DefaultMaxIterations, "bisection iteration cap")
	workers := fs.Int("workers", 0, "solver goroutines (0: one per CPU)")
	verbose := fs.Bool("v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*orbitFile == "") == (*leaderFile == "") {
		fs.Usage()
		return errors.New("exactly one of -orbit or -leader is required")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	store := statevec.NewStore()
	loaded, err := store.Load(*orbitFile, *leaderFile, logger)
	if err != nil {
		return err
	}

	targets, err := readTargets(stdin, *llh)
	if err != nil {
		return err
	}

	opts := rdr.Options{Tolerance: *tol, MaxIterations: *maxIter, RequireBracket: true}
	pool := geocode.NewWorkerPool(*workers, logger)
	res, err := pool.SolveBatch(ctx, loaded.Orbit, targets, opts)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	for _, sol := range res.Solutions {
		if sol.Err != nil {
			fmt.Fprintf(w, "error: %v\n", sol.Err)
			continue
		}
		fmt.Fprintf(w, "%.9f %.4f %t\n", sol.RDR.Time, sol.RDR.SlantRange, sol.RDR.Converged)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Debug("done",
		"targets", len(targets),
		"converged", res.Converged,
		"not_converged", res.NotConverged,
		"failed", res.Failed,
	)
	return nil
}

// readTargets parses three numbers per non-blank, non-comment line.
func readTargets(r io.Reader, llh bool) ([]vec.Vec3, error) {
	var targets []vec.Vec3
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: want 3 numbers, got %d", lineNo, len(fields))
		}
		var p vec.Vec3
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p[i] = v
		}

		if llh {
			p = geodesy.WGS84.LLHToXYZ(geodesy.LLH{
				Lon:    geodesy.Radians(p[0]),
				Lat:    geodesy.Radians(p[1]),
				Height: p[2],
			})
		}
		targets = append(targets, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading targets: %w", err)
	}
	return targets, nil
}
