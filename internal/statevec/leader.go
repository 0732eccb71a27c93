package statevec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/star/caesar/internal/orbit"
)

// ErrBadRecord is returned when a leader file does not hold a platform
// position record where one is expected.
var ErrBadRecord = errors.New("malformed platform position record")

// CEOS leader file layout. The platform position record follows the file
// descriptor and dataset summary records.
const (
	descriptorRecordLen = 720
	summaryRecordLen    = 4096
	platformOffset      = descriptorRecordLen + summaryRecordLen

	recordHeaderLen    = 12
	platformRecordType = 30

	fieldWidth      = 22
	sampleWidth     = 6 * fieldWidth
	numPointsOff    = 140
	secondsOfDayOff = 160
	intervalOff     = 182
	statevecsOff    = 386
)

// ParsePlatformRecord builds an orbit from a CEOS platform position record.
// The first sample time is the record's seconds-of-day field, so the orbit's
// time axis is seconds since midnight UTC of the acquisition day.
func ParsePlatformRecord(rec []byte) (*orbit.Orbit, error) {
	if len(rec) < statevecsOff {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrBadRecord, len(rec), statevecsOff)
	}
	if rec[5] != platformRecordType {
		return nil, fmt.Errorf("%w: record type %d, want %d", ErrBadRecord, rec[5], platformRecordType)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(rec[numPointsOff : numPointsOff+4])))
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: number of points %q", ErrBadRecord, rec[numPointsOff:numPointsOff+4])
	}
	end := statevecsOff + n*sampleWidth
	if end > len(rec) {
		return nil, fmt.Errorf("%w: %d points need %d bytes, record has %d", ErrBadRecord, n, end, len(rec))
	}

	t0, err := fixedWidthScalar(rec[secondsOfDayOff : secondsOfDayOff+fieldWidth])
	if err != nil {
		return nil, fmt.Errorf("%w: seconds of day: %w", ErrBadRecord, err)
	}
	dt, err := fixedWidthScalar(rec[intervalOff : intervalOff+fieldWidth])
	if err != nil {
		return nil, fmt.Errorf("%w: time interval: %w", ErrBadRecord, err)
	}

	flat, err := ParseFixedWidth(string(rec[statevecsOff:end]), fieldWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: state vectors: %w", ErrBadRecord, err)
	}

	o, err := orbit.New(t0, dt, flat)
	if err != nil {
		return nil, fmt.Errorf("building orbit: %w", err)
	}
	return o, nil
}

// ReadLeader reads the platform position record from a CEOS leader file and
// builds an orbit from it.
func ReadLeader(r io.Reader) (*orbit.Orbit, error) {
	if _, err := io.CopyN(io.Discard, r, platformOffset); err != nil {
		return nil, fmt.Errorf("%w: skipping leading records: %w", ErrBadRecord, err)
	}

	header := make([]byte, recordHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: record header: %w", ErrBadRecord, err)
	}
	length := binary.BigEndian.Uint32(header[8:12])
	if length < statevecsOff || length > 1<<20 {
		return nil, fmt.Errorf("%w: record length %d", ErrBadRecord, length)
	}

	rec := make([]byte, length)
	copy(rec, header)
	if _, err := io.ReadFull(r, rec[recordHeaderLen:]); err != nil {
		return nil, fmt.Errorf("%w: record body: %w", ErrBadRecord, err)
	}
	return ParsePlatformRecord(rec)
}

func fixedWidthScalar(b []byte) (float64, error) {
	v, err := ParseFixedWidth(string(b), len(b))
	if err != nil {
		return 0, err
	}
	return v[0], nil
}
