package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caesar_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caesar_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	rdrSolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caesar_rdr_solves_total",
			Help: "Zero-Doppler solves by outcome.",
		},
		[]string{"result"},
	)

	rdrBisectIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "caesar_rdr_bisect_iterations",
			Help:    "Bisection iterations per zero-Doppler solve.",
			Buckets: []float64{1, 5, 10, 20, 30, 40, 50, 75, 100, 250, 1000},
		},
	)

	batchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caesar_batch_duration_seconds",
			Help:    "Wall time of batch solves and geocoding runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"kind"},
	)

	orbitSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "caesar_orbit_samples",
			Help: "Number of state vectors in the loaded orbit.",
		},
	)
)

// Solve outcome labels.
const (
	ResultConverged    = "converged"
	ResultNotConverged = "not_converged"
	ResultError        = "error"
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(rdrSolvesTotal)
	prometheus.MustRegister(rdrBisectIterations)
	prometheus.MustRegister(batchDurationSeconds)
	prometheus.MustRegister(orbitSamples)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSolve counts one zero-Doppler solve. iterations is ignored for
// errored solves.
func RecordSolve(result string, iterations int) {
	rdrSolvesTotal.WithLabelValues(result).Inc()
	if result != ResultError {
		rdrBisectIterations.Observe(float64(iterations))
	}
}

// RecordBatch records the duration of a batch of the given kind
// ("rdr" or "geocode").
func RecordBatch(kind string, d time.Duration) {
	batchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// SetOrbitSamples sets the loaded orbit's sample count.
func SetOrbitSamples(n int) {
	orbitSamples.Set(float64(n))
}

var knownRoutes = map[string]bool{
	"/healthz":      true,
	"/readyz":       true,
	"/metrics":      true,
	"/api/v1/orbit": true,
	"/api/v1/rdr":   true,
}

// normalizeRoute maps a request path to a bounded set of labels.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
