package vtk

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

func smallGrid(t *testing.T) *velocity.Grid3D {
	t.Helper()
	values := make([]float64, 8)
	for i := range values {
		values[i] = 4000 + 100*float64(i)
	}
	grid, err := velocity.NewGrid3D(r3.Vec{X: 10, Y: 20, Z: 30}, r3.Vec{X: 100, Y: 200, Z: 300}, 2, 2, 2, values)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	return grid
}

func TestWriteStructuredPoints(t *testing.T) {
	grid := smallGrid(t)
	idx := grid.Indexer()
	path := filepath.Join(t.TempDir(), "out.vtk")

	if err := WriteStructuredPoints(path, "arrival", idx, grid.Values()); err != nil {
		t.Fatalf("WriteStructuredPoints failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	content := string(raw)

	for _, line := range []string{
		"# vtk DataFile Version 3.0",
		"BINARY",
		"DATASET STRUCTURED_POINTS",
		"DIMENSIONS 2 2 2",
		"ORIGIN 10 20 30",
		"SPACING 100 200 300",
		"POINT_DATA 8",
		"SCALARS arrival double 1",
	} {
		if !strings.Contains(content, line+"\n") {
			t.Errorf("output missing header line %q", line)
		}
	}

	marker := "LOOKUP_TABLE default\n"
	pos := strings.Index(content, marker)
	if pos < 0 {
		t.Fatal("output missing LOOKUP_TABLE line")
	}
	payload := raw[pos+len(marker):]
	if len(payload) != 8*8 {
		t.Fatalf("binary payload is %d bytes, want 64", len(payload))
	}

	decoded := make([]float64, 8)
	if err := binary.Read(bytes.NewReader(payload), binary.BigEndian, decoded); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}

	// VTK orders points with x varying fastest; the grid stores z fastest.
	nx, ny, _ := idx.Dims()
	for ix := 0; ix < 2; ix++ {
		for iy := 0; iy < 2; iy++ {
			for iz := 0; iz < 2; iz++ {
				want := grid.At(ix, iy, iz)
				got := decoded[(iz*ny+iy)*nx+ix]
				if got != want {
					t.Errorf("point (%d,%d,%d) = %v, want %v", ix, iy, iz, got, want)
				}
			}
		}
	}
}

func TestWriteStructuredPointsLengthMismatch(t *testing.T) {
	grid := smallGrid(t)
	path := filepath.Join(t.TempDir(), "out.vtk")

	err := WriteStructuredPoints(path, "arrival", grid.Indexer(), make([]float64, 7))
	if err == nil {
		t.Error("WriteStructuredPoints accepted a short field")
	}
}

func TestWriteVelocity(t *testing.T) {
	grid := smallGrid(t)
	path := filepath.Join(t.TempDir(), "vel.vtk")

	if err := WriteVelocity(path, grid); err != nil {
		t.Fatalf("WriteVelocity failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !strings.Contains(string(raw), "SCALARS velocity double 1\n") {
		t.Error("output missing velocity scalars declaration")
	}
}
