// Package geocode runs zero-Doppler solves in bulk: target batches across a
// worker pool, and terrain-corrected resampling of radar images onto a
// lon/lat grid.
package geocode

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/star/caesar/internal/metrics"
	"github.com/star/caesar/internal/orbit"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/tracing"
	"github.com/star/caesar/internal/vec"
)

// solveJob is a unit of work for the worker pool.
type solveJob struct {
	index  int
	target vec.Vec3
}

// WorkerPool manages a fixed number of goroutines for parallel solves.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// A non-positive count means one worker per CPU.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// SolveBatch solves every target against o using the worker pool. Solutions
// are returned in input order. A failed target is logged and counted; it
// never aborts the batch. If ctx is cancelled, targets that were not solved
// carry ctx.Err() and the same error is returned.
func (wp *WorkerPool) SolveBatch(ctx context.Context, o *orbit.Orbit, targets []vec.Vec3, opts rdr.Options) (BatchResult, error) {
	if len(targets) == 0 {
		return BatchResult{}, nil
	}

	ctx, span := tracing.Start(ctx, "rdr.solve_batch",
		attribute.Int("targets", len(targets)),
		attribute.Int("workers", wp.workers),
	)
	defer span.End()

	start := time.Now()
	jobs := make(chan solveJob, wp.workers*2)
	results := make(chan Solution, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := rdr.XYZToRDR(job.target, o, opts)
				select {
				case results <- Solution{Index: job.index, RDR: res, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, t := range targets {
			select {
			case jobs <- solveJob{index: i, target: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	out := BatchResult{Solutions: make([]Solution, len(targets))}
	done := make([]bool, len(targets))
	for sol := range results {
		out.Solutions[sol.Index] = sol
		done[sol.Index] = true

		switch {
		case sol.Err != nil:
			out.Failed++
			metrics.RecordSolve(metrics.ResultError, 0)
			wp.logger.Warn("zero-doppler solve failed",
				"index", sol.Index,
				"error", sol.Err,
			)
		case !sol.RDR.Converged:
			out.NotConverged++
			metrics.RecordSolve(metrics.ResultNotConverged, sol.RDR.Iterations)
		default:
			out.Converged++
			metrics.RecordSolve(metrics.ResultConverged, sol.RDR.Iterations)
		}
	}

	duration := time.Since(start)
	metrics.RecordBatch("rdr", duration)
	span.SetAttributes(
		attribute.Int("converged", out.Converged),
		attribute.Int("not_converged", out.NotConverged),
		attribute.Int("failed", out.Failed),
	)

	if err := ctx.Err(); err != nil {
		var missing int
		for i := range out.Solutions {
			if !done[i] {
				out.Solutions[i] = Solution{Index: i, Err: err}
				missing++
			}
		}
		if missing > 0 {
			out.Failed += missing
			span.SetStatus(codes.Error, err.Error())
			wp.logger.Warn("batch solve cancelled", "unsolved", missing, "error", err)
			return out, err
		}
	}

	wp.logger.Debug("batch solve complete",
		"targets", len(targets),
		"converged", out.Converged,
		"not_converged", out.NotConverged,
		"failed", out.Failed,
		"duration_ms", duration.Milliseconds(),
	)
	return out, nil
}

// forEach calls fn(i) for i in [0, n) across the pool's workers and waits for
// them to finish. It stops handing out indices once ctx is done.
func (wp *WorkerPool) forEach(ctx context.Context, n int, fn func(i int)) error {
	jobs := make(chan int, wp.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < wp.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}
