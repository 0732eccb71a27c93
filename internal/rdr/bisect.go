// Package rdr solves the zero-Doppler range-Doppler problem: given a fixed
// target and a platform orbit, find the acquisition time at which the
// platform's line-of-sight velocity to the target vanishes, and the slant
// range at that time.
package rdr

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoSignChange is returned when the bracket endpoints have the same
	// non-zero sign and a bracket check was requested.
	ErrNoSignChange = errors.New("function does not change sign over bracket")

	// ErrNotConverged marks a result that hit the iteration cap. Solvers
	// never return it themselves; callers that treat non-convergence as fatal
	// can use it via Result.Err.
	ErrNotConverged = errors.New("bisection did not converge")
)

// Default solver settings.
const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 1000
)

// Options controls the bisection search.
type Options struct {
	Tolerance      float64 // absolute half-width tolerance, in units of the search variable
	MaxIterations  int
	RequireBracket bool // check that f(a) and f(b) differ in sign before searching
}

// DefaultOptions returns the standard settings: tolerance 1e-8, at most
// 1000 iterations, bracket checked.
func DefaultOptions() Options {
	return Options{
		Tolerance:      DefaultTolerance,
		MaxIterations:  DefaultMaxIterations,
		RequireBracket: true,
	}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 || math.IsNaN(o.Tolerance) {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Result is the outcome of a bisection search.
type Result struct {
	Root       float64
	Iterations int
	Converged  bool
}

// Err returns ErrNotConverged if the search hit its iteration cap.
func (r Result) Err() error {
	if r.Converged {
		return nil
	}
	return fmt.Errorf("%w after %d iterations (estimate %v)", ErrNotConverged, r.Iterations, r.Root)
}

// Bisect searches [a, b] for a root of f.
//
// f(a) is evaluated once and cached; it is refreshed only when the left bound
// moves. The search stops when a midpoint evaluates to exactly zero or the
// half-width falls below the tolerance. If the iteration cap is reached first
// the last midpoint is returned with Converged false.
//
// With RequireBracket set, f(b) is also evaluated up front and equal non-zero
// signs at both ends yield ErrNoSignChange. Without it the caller is trusted:
// a bracket with zero or several sign changes gives an unspecified but
// deterministic result.
func Bisect(f func(float64) float64, a, b float64, opts Options) (Result, error) {
	opts = opts.withDefaults()

	fa := f(a)
	if fa == 0 {
		return Result{Root: a, Converged: true}, nil
	}
	if opts.RequireBracket {
		fb := f(b)
		if fb == 0 {
			return Result{Root: b, Converged: true}, nil
		}
		if math.Signbit(fa) == math.Signbit(fb) || math.IsNaN(fa) || math.IsNaN(fb) {
			return Result{}, fmt.Errorf("%w: f(%v)=%v, f(%v)=%v", ErrNoSignChange, a, fa, b, fb)
		}
	}

	var c float64
	for i := 1; i <= opts.MaxIterations; i++ {
		c = (a + b) / 2
		fc := f(c)
		if fc == 0 || (b-a)/2 < opts.Tolerance {
			return Result{Root: c, Iterations: i, Converged: true}, nil
		}

		if (fc > 0) == (fa > 0) {
			a, fa = c, fc
		} else {
			b = c
		}
	}

	return Result{Root: c, Iterations: opts.MaxIterations, Converged: false}, nil
}
