package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/star/caesar/internal/geocode"
	"github.com/star/caesar/internal/geodesy"
	"github.com/star/caesar/internal/metrics"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/statevec"
	"github.com/star/caesar/internal/vec"
)

type orbitResponse struct {
	Source    string  `json:"source"`
	LoadedAt  string  `json:"loaded_at"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Spacing   float64 `json:"spacing"`
	Samples   int     `json:"samples"`
}

func newOrbitResponse(l *statevec.Loaded) orbitResponse {
	return orbitResponse{
		Source:    l.Source,
		LoadedAt:  l.LoadedAt.UTC().Format(time.RFC3339),
		StartTime: l.Orbit.StartTime(),
		EndTime:   l.Orbit.EndTime(),
		Spacing:   l.Orbit.Spacing(),
		Samples:   l.Orbit.Len(),
	}
}

type target struct {
	XYZ []float64 `json:"xyz,omitempty"`
	LLH []float64 `json:"llh,omitempty"` // lon deg, lat deg, height m on WGS84
}

type rdrRequest struct {
	Targets       []target `json:"targets"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`
}

type rdrResult struct {
	Time       *float64 `json:"time,omitempty"`
	SlantRange *float64 `json:"slant_range,omitempty"`
	Converged  *bool    `json:"converged,omitempty"`
	Iterations *int     `json:"iterations,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type rdrResponse struct {
	Results      []rdrResult `json:"results"`
	Converged    int         `json:"converged"`
	NotConverged int         `json:"not_converged"`
	Failed       int         `json:"failed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// bodyError maps request body read errors to a status code.
func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"error":     "request body too large",
			"max_bytes": tooLarge.Limit,
		})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func orbitHandler(store *statevec.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := store.Get()
		if l == nil {
			writeError(w, http.StatusNotFound, "no orbit loaded")
			return
		}
		writeJSON(w, http.StatusOK, newOrbitResponse(l))
	}
}

func uploadOrbitHandler(logger *slog.Logger, store *statevec.Store, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := http.MaxBytesReader(w, r.Body, maxBytes)
		o, err := statevec.Parse(body, logger)
		if err != nil {
			bodyError(w, err)
			return
		}

		l := store.Set(o, "upload")
		metrics.SetOrbitSamples(o.Len())
		logger.Info("orbit uploaded",
			"samples", o.Len(),
			"start", o.StartTime(),
			"end", o.EndTime(),
		)
		writeJSON(w, http.StatusOK, newOrbitResponse(l))
	}
}

// toECEF converts a request target to an Earth-fixed position.
func (t target) toECEF() (vec.Vec3, error) {
	switch {
	case t.XYZ != nil && t.LLH != nil:
		return vec.Vec3{}, errors.New("target has both xyz and llh")
	case t.XYZ != nil:
		return vec.FromSlice(t.XYZ)
	case t.LLH != nil:
		llh, err := vec.FromSlice(t.LLH)
		if err != nil {
			return vec.Vec3{}, err
		}
		if math.Abs(llh[1]) > 90 {
			return vec.Vec3{}, fmt.Errorf("latitude %v out of range", llh[1])
		}
		return geodesy.WGS84.LLHToXYZ(geodesy.LLH{
			Lon:    geodesy.Radians(llh[0]),
			Lat:    geodesy.Radians(llh[1]),
			Height: llh[2],
		}), nil
	default:
		return vec.Vec3{}, errors.New("target needs xyz or llh")
	}
}

func rdrHandler(logger *slog.Logger, store *statevec.Store, pool *geocode.WorkerPool, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := store.Get()
		if l == nil {
			writeError(w, http.StatusServiceUnavailable, "no orbit loaded")
			return
		}

		var req rdrRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			bodyError(w, fmt.Errorf("invalid request body: %w", err))
			return
		}

		if len(req.Targets) == 0 {
			writeError(w, http.StatusBadRequest, "no targets")
			return
		}
		if len(req.Targets) > cfg.MaxTargets {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":       "too many targets",
				"max_targets": cfg.MaxTargets,
			})
			return
		}

		opts := cfg.Solver
		if req.Tolerance != nil {
			if *req.Tolerance <= 0 || math.IsNaN(*req.Tolerance) {
				writeError(w, http.StatusBadRequest, "tolerance must be positive")
				return
			}
			opts.Tolerance = *req.Tolerance
		}
		if req.MaxIterations != nil {
			if *req.MaxIterations < 1 || *req.MaxIterations > rdr.DefaultMaxIterations {
				writeError(w, http.StatusBadRequest,
					fmt.Sprintf("max_iterations must be in [1, %d]", rdr.DefaultMaxIterations))
				return
			}
			opts.MaxIterations = *req.MaxIterations
		}

		targets := make([]vec.Vec3, len(req.Targets))
		for i, t := range req.Targets {
			p, err := t.toECEF()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"error": err.Error(),
					"index": i,
				})
				return
			}
			targets[i] = p
		}

		batch, err := pool.SolveBatch(r.Context(), l.Orbit, targets, opts)
		if err != nil {
			logger.Warn("solve request aborted", "targets", len(targets), "error", err)
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
			return
		}

		resp := rdrResponse{
			Results:      make([]rdrResult, len(batch.Solutions)),
			Converged:    batch.Converged,
			NotConverged: batch.NotConverged,
			Failed:       batch.Failed,
		}
		for i, sol := range batch.Solutions {
			if sol.Err != nil {
				resp.Results[i] = rdrResult{Error: sol.Err.Error()}
				continue
			}
			s := sol.RDR
			resp.Results[i] = rdrResult{
				Time:       &s.Time,
				SlantRange: &s.SlantRange,
				Converged:  &s.Converged,
				Iterations: &s.Iterations,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
