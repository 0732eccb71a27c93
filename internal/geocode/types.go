package geocode

import (
	"github.com/star/caesar/internal/rdr"
)

// Solution is the zero-Doppler solve for one target of a batch.
type Solution struct {
	Index int
	RDR   rdr.RDR
	Err   error
}

// BatchResult holds per-target solutions in input order and outcome counts.
// Not-converged solutions carry their last estimate and are not failures.
type BatchResult struct {
	Solutions    []Solution
	Converged    int
	NotConverged int
	Failed       int
}

// Config holds solver settings loaded from environment variables.
type Config struct {
	Workers int         // worker pool size (default: runtime.NumCPU())
	Options rdr.Options // bisection tolerance and iteration cap
}
