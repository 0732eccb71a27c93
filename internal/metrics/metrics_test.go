package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/api/v1/orbit", "/api/v1/orbit"},
		{"/api/v1/rdr", "/api/v1/rdr"},

		// Unknown/bot paths collapse to "other".
		{"/", "other"},
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/v1/rdr/123", "other"},
		{"/api/v2/rdr", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordSolve(t *testing.T) {
	conv := rdrSolvesTotal.WithLabelValues(ResultConverged)
	errs := rdrSolvesTotal.WithLabelValues(ResultError)
	beforeConv := testutil.ToFloat64(conv)
	beforeErr := testutil.ToFloat64(errs)
	beforeIter := histogramSampleCount(t, prometheus.DefaultGatherer, "caesar_rdr_bisect_iterations", nil)

	RecordSolve(ResultConverged, 31)
	RecordSolve(ResultConverged, 29)
	RecordSolve(ResultError, 0)

	if got := testutil.ToFloat64(conv) - beforeConv; got != 2 {
		t.Errorf("converged solves delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(errs) - beforeErr; got != 1 {
		t.Errorf("errored solves delta = %v, want 1", got)
	}
	// Errored solves don't observe iterations.
	if got := histogramSampleCount(t, prometheus.DefaultGatherer, "caesar_rdr_bisect_iterations", nil) - beforeIter; got != 2 {
		t.Errorf("iteration samples delta = %d, want 2", got)
	}
}

func TestRecordBatchAndOrbit(t *testing.T) {
	before := histogramSampleCount(t, prometheus.DefaultGatherer, "caesar_batch_duration_seconds", map[string]string{"kind": "rdr"})
	RecordBatch("rdr", 12*time.Millisecond)
	if got := histogramSampleCount(t, prometheus.DefaultGatherer, "caesar_batch_duration_seconds", map[string]string{"kind": "rdr"}) - before; got != 1 {
		t.Errorf("batch samples delta = %d, want 1", got)
	}

	SetOrbitSamples(241)
	if got := testutil.ToFloat64(orbitSamples); got != 241 {
		t.Errorf("caesar_orbit_samples = %v, want 241", got)
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := httpRequestsTotal.WithLabelValues("other", http.MethodGet, "418")
	before := testutil.ToFloat64(counter)

	for _, p := range []string{"/a", "/b", "/c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("requests delta = %v, want 3 under one label", got)
	}
}

func TestHandlerExposesSolverMetrics(t *testing.T) {
	RecordSolve(ResultNotConverged, 1000)
	SetOrbitSamples(10)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{
		"caesar_rdr_solves_total",
		"caesar_rdr_bisect_iterations",
		"caesar_orbit_samples",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %q in /metrics output", name)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	mfs, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
