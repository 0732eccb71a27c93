package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/star/caesar/internal/api"
	"github.com/star/caesar/internal/rdr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLoadSolverConfig(t *testing.T) {
	t.Setenv("CAESAR_WORKERS", "3")
	t.Setenv("CAESAR_BISECT_TOLERANCE", "1e-6")
	t.Setenv("CAESAR_BISECT_MAX_ITER", "bogus")

	cfg := loadSolverConfig(testLogger())
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.Options.Tolerance != 1e-6 {
		t.Errorf("Tolerance = %v, want 1e-6", cfg.Options.Tolerance)
	}
	if cfg.Options.MaxIterations != rdr.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want default after bad value", cfg.Options.MaxIterations)
	}
	if !cfg.Options.RequireBracket {
		t.Error("RequireBracket should default to true")
	}
}

func TestLoadSolverConfigRejectsNonPositive(t *testing.T) {
	t.Setenv("CAESAR_WORKERS", "0")
	t.Setenv("CAESAR_BISECT_TOLERANCE", "-1")

	cfg := loadSolverConfig(testLogger())
	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want default", cfg.Workers)
	}
	if cfg.Options.Tolerance != rdr.DefaultTolerance {
		t.Errorf("Tolerance = %v, want default", cfg.Options.Tolerance)
	}
}

func TestLoadSolverConfigMaxIterationsBounds(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"500", 500},
		{"1", 1},
		{"1000", rdr.DefaultMaxIterations},
		{"1001", rdr.DefaultMaxIterations},
		{"5000", rdr.DefaultMaxIterations},
		{"0", rdr.DefaultMaxIterations},
		{"-3", rdr.DefaultMaxIterations},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("CAESAR_BISECT_MAX_ITER", tc.value)
			cfg := loadSolverConfig(testLogger())
			if cfg.Options.MaxIterations != tc.want {
				t.Errorf("MaxIterations = %d, want %d", cfg.Options.MaxIterations, tc.want)
			}
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("CAESAR_HTTP_ADDR", ":9999")
	t.Setenv("CAESAR_MAX_TARGETS", "50")
	t.Setenv("CAESAR_RATE_LIMIT", "120")
	t.Setenv("CAESAR_TRUST_PROXY", "yes-please")

	cfg := loadServerConfig(testLogger())
	if cfg.Addr != ":9999" || cfg.MaxTargets != 50 || cfg.RateLimit != 120 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.TrustProxy {
		t.Error("invalid CAESAR_TRUST_PROXY should leave proxy trust off")
	}
	if cfg.MaxBodyBytes != api.DefaultMaxBodyBytes {
		t.Errorf("MaxBodyBytes = %d, want default", cfg.MaxBodyBytes)
	}
}

func TestLoadAuthConfig(t *testing.T) {
	t.Setenv("CAESAR_AUTH_ENABLED", "true")
	t.Setenv("CAESAR_AUTH_TOKEN", "")
	if _, err := loadAuthConfig(testLogger()); err == nil {
		t.Error("expected error when auth is enabled without a token")
	}

	t.Setenv("CAESAR_AUTH_TOKEN", "tok")
	cfg, err := loadAuthConfig(testLogger())
	if err != nil || !cfg.Enabled || cfg.Token != "tok" {
		t.Errorf("cfg = %+v, err = %v", cfg, err)
	}

	t.Setenv("CAESAR_AUTH_ENABLED", "maybe")
	if _, err := loadAuthConfig(testLogger()); err == nil {
		t.Error("expected error for non-boolean CAESAR_AUTH_ENABLED")
	}
}

func TestLoadTracingConfig(t *testing.T) {
	t.Setenv("CAESAR_TRACING_ENABLED", "1")
	t.Setenv("CAESAR_TRACING_SERVICE_NAME", "caesar-test")
	t.Setenv("CAESAR_TRACING_SAMPLE_RATIO", "2")

	cfg := loadTracingConfig(testLogger())
	if !cfg.Enabled || cfg.ServiceName != "caesar-test" || cfg.SampleRatio != 1 {
		t.Errorf("config = %+v", cfg)
	}
}
