package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSize is returned when raw raster dimensions are not positive.
var ErrSize = errors.New("raster dimensions must be positive")

// Raw rasters are headerless, row-major and little-endian: float32 for real
// fields and interleaved float32 (re, im) pairs for complex64 images.

// ReadFloat32 reads a rows x cols float32 raster.
func ReadFloat32(r io.Reader, rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrSize, rows, cols)
	}
	br := bufio.NewReader(r)
	row := make([]float32, cols)
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("reading row %d: %w", i, err)
		}
		for j, v := range row {
			m.Set(i, j, float64(v))
		}
	}
	return m, nil
}

// ReadComplex64 reads a rows x cols complex64 raster.
func ReadComplex64(r io.Reader, rows, cols int) (*mat.CDense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrSize, rows, cols)
	}
	br := bufio.NewReader(r)
	row := make([]complex64, cols)
	m := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("reading row %d: %w", i, err)
		}
		for j, v := range row {
			m.Set(i, j, complex128(v))
		}
	}
	return m, nil
}

// WriteFloat32 writes m as a float32 raster. Values beyond the float32
// range are written as infinities.
func WriteFloat32(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	bw := bufio.NewWriter(w)
	buf := make([]byte, 4*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(float32(m.At(i, j))))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return bw.Flush()
}
