// Package statevec reads platform state vectors into an orbit.
package statevec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/star/caesar/internal/orbit"
)

// ErrNonUniform is returned when sample times are not evenly spaced.
var ErrNonUniform = errors.New("state vector times are not uniformly spaced")

// spacingTolerance is the relative deviation allowed between consecutive
// sample intervals.
const spacingTolerance = 1e-6

// Parse reads whitespace-separated rows of "t x y z vx vy vz" from r and
// builds an orbit. Blank lines and lines starting with '#' are ignored.
// Malformed rows are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) (*orbit.Orbit, error) {
	scanner := bufio.NewScanner(r)

	var (
		times  []float64
		flat   []float64
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 7 {
			logger.Warn("skipping state vector row with wrong field count",
				"line", lineNo, "fields", len(fields))
			continue
		}

		row, err := parseFloats(fields)
		if err != nil {
			logger.Warn("skipping malformed state vector row", "line", lineNo, "error", err)
			continue
		}

		times = append(times, row[0])
		flat = append(flat, row[1:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading state vectors: %w", err)
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("state vector file: %w", orbit.ErrEmptyInput)
	}

	dt, err := uniformSpacing(times)
	if err != nil {
		return nil, err
	}

	o, err := orbit.New(times[0], dt, flat)
	if err != nil {
		return nil, fmt.Errorf("building orbit: %w", err)
	}
	return o, nil
}

// uniformSpacing returns the mean sample interval, or ErrNonUniform when any
// interval deviates from it. A single sample gets a spacing of 1.
func uniformSpacing(times []float64) (float64, error) {
	if len(times) == 1 {
		return 1, nil
	}

	n := len(times) - 1
	dt := (times[n] - times[0]) / float64(n)
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0, fmt.Errorf("%w: zero or non-finite spacing", ErrNonUniform)
	}

	for i := 1; i < len(times); i++ {
		step := times[i] - times[i-1]
		if math.Abs(step-dt) > spacingTolerance*math.Abs(dt) {
			return 0, fmt.Errorf("%w: step %d is %v, expected %v", ErrNonUniform, i, step, dt)
		}
	}
	return dt, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("field %d: non-finite value %q", i+1, f)
		}
		out[i] = v
	}
	return out, nil
}

// ParseFixedWidth splits s into consecutive fields of the given width and
// parses each as a float. Leader files store state vectors this way, with
// 22-character fields and Fortran-style 'D' exponents.
func ParseFixedWidth(s string, width int) ([]float64, error) {
	if width <= 0 {
		return nil, fmt.Errorf("field width must be positive, got %d", width)
	}
	s = strings.TrimRight(s, "\r\n")
	if len(s)%width != 0 {
		return nil, fmt.Errorf("record length %d is not a multiple of field width %d", len(s), width)
	}

	out := make([]float64, 0, len(s)/width)
	for off := 0; off < len(s); off += width {
		field := strings.TrimSpace(s[off : off+width])
		field = strings.NewReplacer("D", "E", "d", "e").Replace(field)
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("field at offset %d: %w", off, err)
		}
		out = append(out, v)
	}
	return out, nil
}
