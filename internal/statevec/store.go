package statevec

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/star/caesar/internal/orbit"
)

// Loaded is an orbit together with where and when it was loaded.
type Loaded struct {
	Orbit    *orbit.Orbit
	Source   string
	LoadedAt time.Time
}

// Store provides thread-safe access to the current orbit.
type Store struct {
	current atomic.Pointer[Loaded]
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current orbit, or nil if none has been loaded.
func (s *Store) Get() *Loaded {
	return s.current.Load()
}

// Set atomically replaces the current orbit.
func (s *Store) Set(o *orbit.Orbit, source string) *Loaded {
	l := &Loaded{Orbit: o, Source: source, LoadedAt: time.Now()}
	s.current.Store(l)
	return l
}

// Ready reports whether an orbit has been loaded.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// AgeSeconds returns the age of the current orbit in seconds.
// Returns -1 if nothing is loaded.
func (s *Store) AgeSeconds() float64 {
	l := s.current.Load()
	if l == nil {
		return -1
	}
	return time.Since(l.LoadedAt).Seconds()
}

// LoadFile parses a state vector file and makes it current.
func (s *Store) LoadFile(path string, logger *slog.Logger) (*Loaded, error) {
	return s.load(path, "state vector file", logger, func(f *os.File) (*orbit.Orbit, error) {
		return Parse(f, logger)
	})
}

// LoadLeader reads the platform position record of a CEOS leader file and
// makes its orbit current.
func (s *Store) LoadLeader(path string, logger *slog.Logger) (*Loaded, error) {
	return s.load(path, "leader file", logger, func(f *os.File) (*orbit.Orbit, error) {
		return ReadLeader(f)
	})
}

// Load makes current the orbit from whichever of a state vector file or a
// leader file is named. Exactly one path must be non-empty.
func (s *Store) Load(orbitPath, leaderPath string, logger *slog.Logger) (*Loaded, error) {
	switch {
	case orbitPath != "" && leaderPath != "":
		return nil, errors.New("state vector file and leader file are mutually exclusive")
	case leaderPath != "":
		return s.LoadLeader(leaderPath, logger)
	case orbitPath != "":
		return s.LoadFile(orbitPath, logger)
	}
	return nil, errors.New("no state vector file or leader file given")
}

func (s *Store) load(path, kind string, logger *slog.Logger, parse func(*os.File) (*orbit.Orbit, error)) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", kind, err)
	}
	defer f.Close()

	o, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	logger.Info("orbit loaded",
		"source", path,
		"format", kind,
		"samples", o.Len(),
		"start", o.StartTime(),
		"end", o.EndTime(),
	)
	return s.Set(o, path), nil
}
