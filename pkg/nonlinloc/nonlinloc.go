// Package nonlinloc reads and writes NonLinLoc 3D velocity model files.
// A model is a pair of files: a text header declaring grid dimensions,
// origin and spacing (in km) plus the grid and data types, and a binary
// .buf file holding the dense value array. Imported models are converted
// to m and m/s and validated before a Grid3D is returned; a malformed or
// inconsistent pair yields ErrImport without a partial model.
package nonlinloc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// ErrImport reports a malformed or inconsistent NonLinLoc model file.
// Importing never corrupts or returns a partially constructed model.
var ErrImport = errors.New("nonlinloc import failed")

// Grid value semantics declared in the header.
const (
	// GridVelocity stores velocities in km/s.
	GridVelocity = "VELOCITY"

	// GridVelocityMeters stores velocities in m/s.
	GridVelocityMeters = "VELOCITY_METERS"

	// GridSlowLen stores slowness times grid spacing, in s.
	GridSlowLen = "SLOW_LEN"
)

// Buffer element types declared in the header.
const (
	DtypeFloat  = "FLOAT"
	DtypeDouble = "DOUBLE"
)

const km = 1e3

// Header is the parsed first line of a NonLinLoc model header file, with
// origin and spacing converted to m.
type Header struct {
	Nx, Ny, Nz int
	Origin     r3.Vec
	Spacing    r3.Vec
	GridType   string
	Dtype      string
}

// ParseHeader parses the first line of a header file.
func ParseHeader(line string) (Header, error) {
	fields := strings.Fields(line)
	if len(fields) != 11 {
		return Header{}, fmt.Errorf("%w: header has %d fields, want 11 (nx ny nz ox oy oz dx dy dz gridType dtype)",
			ErrImport, len(fields))
	}

	var h Header
	ints := make([]int, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return Header{}, fmt.Errorf("%w: dimension field %q: %v", ErrImport, fields[i], err)
		}
		ints[i] = v
	}
	h.Nx, h.Ny, h.Nz = ints[0], ints[1], ints[2]

	vals := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(fields[3+i], 64)
		if err != nil {
			return Header{}, fmt.Errorf("%w: numeric field %q: %v", ErrImport, fields[3+i], err)
		}
		vals[i] = v
	}
	h.Origin = r3.Vec{X: vals[0] * km, Y: vals[1] * km, Z: vals[2] * km}
	h.Spacing = r3.Vec{X: vals[3] * km, Y: vals[4] * km, Z: vals[5] * km}

	h.GridType = fields[9]
	switch h.GridType {
	case GridVelocity, GridVelocityMeters, GridSlowLen:
	default:
		return Header{}, fmt.Errorf("%w: unsupported grid type %q", ErrImport, h.GridType)
	}

	h.Dtype = fields[10]
	switch h.Dtype {
	case DtypeFloat, DtypeDouble:
	default:
		return Header{}, fmt.Errorf("%w: unsupported data type %q", ErrImport, h.Dtype)
	}
	return h, nil
}

func (h Header) elemSize() int {
	if h.Dtype == DtypeDouble {
		return 8
	}
	return 4
}

// bufferPath derives the binary buffer path from the header path.
func bufferPath(headerPath string) string {
	if i := strings.LastIndex(headerPath, "."); i > strings.LastIndexByte(headerPath, os.PathSeparator) {
		return headerPath[:i] + ".buf"
	}
	return headerPath + ".buf"
}

// ReadModel imports a NonLinLoc velocity model: the header at headerPath
// and the .buf buffer next to it. The returned grid stores velocities in
// m/s in row-major (ix, iy, iz) order with iz varying fastest, matching
// the buffer layout.
func ReadModel(headerPath string) (*velocity.Grid3D, error) {
	headerText, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrImport, err)
	}
	line, _, _ := strings.Cut(string(headerText), "\n")
	h, err := ParseHeader(line)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(bufferPath(headerPath))
	if err != nil {
		return nil, fmt.Errorf("%w: reading buffer: %v", ErrImport, err)
	}

	want := h.Nx * h.Ny * h.Nz
	if len(raw) != want*h.elemSize() {
		return nil, fmt.Errorf("%w: header declares %dx%dx%d = %d values but buffer holds %d",
			ErrImport, h.Nx, h.Ny, h.Nz, want, len(raw)/h.elemSize())
	}

	values := make([]float64, want)
	switch h.Dtype {
	case DtypeDouble:
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("%w: decoding buffer: %v", ErrImport, err)
		}
	case DtypeFloat:
		f32 := make([]float32, want)
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, f32); err != nil {
			return nil, fmt.Errorf("%w: decoding buffer: %v", ErrImport, err)
		}
		for i, v := range f32 {
			values[i] = float64(v)
		}
	}

	switch h.GridType {
	case GridVelocity:
		for i := range values {
			values[i] *= km
		}
	case GridSlowLen:
		// Stored value is slowness times spacing; spacing must be cubic
		// for this grid type to be well defined.
		if h.Spacing.X != h.Spacing.Y || h.Spacing.X != h.Spacing.Z {
			return nil, fmt.Errorf("%w: SLOW_LEN grid requires equal spacing on all axes, got (%v, %v, %v)",
				ErrImport, h.Spacing.X, h.Spacing.Y, h.Spacing.Z)
		}
		for i := range values {
			values[i] = h.Spacing.X / values[i]
		}
	}

	grid, err := velocity.NewGrid3D(h.Origin, h.Spacing, h.Nx, h.Ny, h.Nz, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	return grid, nil
}

// WriteModel exports a velocity grid as a NonLinLoc header/buffer pair in
// the VELOCITY_METERS DOUBLE encoding, which round-trips velocity values
// bit-identically through ReadModel.
func WriteModel(headerPath string, grid *velocity.Grid3D) error {
	nx, ny, nz := grid.Dims()
	origin, spacing := grid.Origin(), grid.Spacing()

	header := fmt.Sprintf("%d %d %d %.17g %.17g %.17g %.17g %.17g %.17g %s %s\n",
		nx, ny, nz,
		origin.X/km, origin.Y/km, origin.Z/km,
		spacing.X/km, spacing.Y/km, spacing.Z/km,
		GridVelocityMeters, DtypeDouble)
	if err := os.WriteFile(headerPath, []byte(header), 0644); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(grid.NumNodes() * 8)
	if err := binary.Write(&buf, binary.LittleEndian, grid.Values()); err != nil {
		return fmt.Errorf("encoding buffer: %w", err)
	}
	if err := os.WriteFile(bufferPath(headerPath), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing buffer: %w", err)
	}
	return nil
}
