// Package vtk writes volumetric scalar fields as legacy VTK structured
// points files for external 3D visualization tools. Export is one-way:
// the files are quality-control artifacts and are never read back.
package vtk

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"seistt/pkg/velocity"
)

// WriteStructuredPoints writes one scalar field defined on a regular grid
// to a legacy VTK file. The field must be in row-major (ix, iy, iz) node
// order matching the indexer; fieldName labels the scalars in the file.
// Legacy VTK binary data is big-endian with x varying fastest, so the
// writer reorders on the fly.
func WriteStructuredPoints(path, fieldName string, idx velocity.GridIndexer, field []float64) error {
	if len(field) != idx.NumNodes() {
		return fmt.Errorf("field has %d values for a grid of %d nodes", len(field), idx.NumNodes())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating VTK file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	nx, ny, nz := idx.Dims()
	origin := idx.Origin()
	spacing := idx.Spacing()

	fmt.Fprintf(w, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(w, "seistt %s volume\n", fieldName)
	fmt.Fprintf(w, "BINARY\n")
	fmt.Fprintf(w, "DATASET STRUCTURED_POINTS\n")
	fmt.Fprintf(w, "DIMENSIONS %d %d %d\n", nx, ny, nz)
	fmt.Fprintf(w, "ORIGIN %g %g %g\n", origin.X, origin.Y, origin.Z)
	fmt.Fprintf(w, "SPACING %g %g %g\n", spacing.X, spacing.Y, spacing.Z)
	fmt.Fprintf(w, "POINT_DATA %d\n", nx*ny*nz)
	fmt.Fprintf(w, "SCALARS %s double 1\n", fieldName)
	fmt.Fprintf(w, "LOOKUP_TABLE default\n")

	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				if err := binary.Write(w, binary.BigEndian, field[idx.FlatIndex(ix, iy, iz)]); err != nil {
					return fmt.Errorf("writing VTK data: %w", err)
				}
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing VTK file: %w", err)
	}
	return nil
}

// WriteVelocity exports a velocity grid for visual QC.
func WriteVelocity(path string, grid *velocity.Grid3D) error {
	return WriteStructuredPoints(path, "velocity", grid.Indexer(), grid.Values())
}
