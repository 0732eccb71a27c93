package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/star/caesar/internal/api"
	"github.com/star/caesar/internal/auth"
	"github.com/star/caesar/internal/geocode"
	"github.com/star/caesar/internal/metrics"
	"github.com/star/caesar/internal/rdr"
	"github.com/star/caesar/internal/statevec"
	"github.com/star/caesar/internal/tracing"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, loadTracingConfig(logger), logger)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	store := statevec.NewStore()
	orbitPath, leaderPath := os.Getenv("CAESAR_ORBIT_FILE"), os.Getenv("CAESAR_LEADER_FILE")
	if orbitPath != "" || leaderPath != "" {
		loaded, err := store.Load(orbitPath, leaderPath, logger)
		if err != nil {
			logger.Warn("failed to load orbit, starting without orbit",
				"orbit_file", orbitPath, "leader_file", leaderPath, "error", err)
		} else {
			metrics.SetOrbitSamples(loaded.Orbit.Len())
		}
	} else {
		logger.Info("no CAESAR_ORBIT_FILE or CAESAR_LEADER_FILE set, waiting for orbit upload")
	}

	solverCfg := loadSolverConfig(logger)
	pool := geocode.NewWorkerPool(solverCfg.Workers, logger)

	srvCfg := loadServerConfig(logger)
	srvCfg.Auth = authCfg
	srvCfg.Solver = solverCfg.Options
	srv := api.NewServer(srvCfg, logger, store, pool)

	go func() {
		logger.Info("starting server",
			"addr", srvCfg.Addr,
			"auth_enabled", authCfg.Enabled,
			"orbit_loaded", store.Ready(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("CAESAR_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("CAESAR_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("CAESAR_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("CAESAR_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadSolverConfig(logger *slog.Logger) geocode.Config {
	cfg := geocode.Config{
		Workers: runtime.NumCPU(),
		Options: rdr.DefaultOptions(),
	}

	if v := os.Getenv("CAESAR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CAESAR_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("CAESAR_BISECT_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0) {
			logger.Warn("invalid CAESAR_BISECT_TOLERANCE value, using default", "value", v, "default", rdr.DefaultTolerance)
		} else {
			cfg.Options.Tolerance = f
		}
	}

	if v := os.Getenv("CAESAR_BISECT_MAX_ITER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > rdr.DefaultMaxIterations {
			logger.Warn("invalid CAESAR_BISECT_MAX_ITER value, using default",
				"value", v, "min", 1, "max", rdr.DefaultMaxIterations, "default", rdr.DefaultMaxIterations)
		} else {
			cfg.Options.MaxIterations = n
		}
	}

	logger.Info("solver config",
		"workers", cfg.Workers,
		"tolerance", cfg.Options.Tolerance,
		"max_iterations", cfg.Options.MaxIterations,
	)

	return cfg
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Addr:         ":8080",
		MaxTargets:   api.DefaultMaxTargets,
		MaxBodyBytes: api.DefaultMaxBodyBytes,
		RateBurst:    10,
	}

	if v := os.Getenv("CAESAR_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("CAESAR_MAX_TARGETS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CAESAR_MAX_TARGETS value, using default", "value", v, "default", cfg.MaxTargets)
		} else {
			cfg.MaxTargets = n
		}
	}

	if v := os.Getenv("CAESAR_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			logger.Warn("invalid CAESAR_MAX_BODY_BYTES value, using default", "value", v, "default", cfg.MaxBodyBytes)
		} else {
			cfg.MaxBodyBytes = n
		}
	}

	if v := os.Getenv("CAESAR_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			logger.Warn("invalid CAESAR_RATE_LIMIT value, rate limiting disabled", "value", v)
		} else {
			cfg.RateLimit = f
		}
	}

	if v := os.Getenv("CAESAR_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CAESAR_RATE_BURST value, using default", "value", v, "default", cfg.RateBurst)
		} else {
			cfg.RateBurst = n
		}
	}

	if v := os.Getenv("CAESAR_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid CAESAR_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("server config",
		"addr", cfg.Addr,
		"max_targets", cfg.MaxTargets,
		"max_body_bytes", cfg.MaxBodyBytes,
		"rate_limit_per_minute", cfg.RateLimit,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadTracingConfig(logger *slog.Logger) tracing.Config {
	cfg := tracing.Config{ServiceName: "caesard", SampleRatio: 1}

	if v := os.Getenv("CAESAR_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid CAESAR_TRACING_ENABLED value, defaulting to false", "value", v)
		} else {
			cfg.Enabled = enabled
		}
	}

	if v := os.Getenv("CAESAR_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}

	if v := os.Getenv("CAESAR_TRACING_SAMPLE_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			logger.Warn("invalid CAESAR_TRACING_SAMPLE_RATIO value, using default", "value", v, "default", cfg.SampleRatio)
		} else {
			cfg.SampleRatio = f
		}
	}

	return cfg
}
