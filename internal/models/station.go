package models

import "gonum.org/v1/gonum/spatial/r3"

// Station is a receiver in local Cartesian coordinates: east and north in
// m from the survey reference point, depth in m positive down (surface
// stations have negative depth equal to their elevation).
type Station struct {
	// Code is the station identifier, e.g. "NET.STA".
	Code string

	// East, North, Depth are the station coordinates in m.
	East, North, Depth float64
}

// Position returns the station coordinates as a vector (X east, Y north,
// Z depth).
func (s Station) Position() r3.Vec {
	return r3.Vec{X: s.East, Y: s.North, Z: s.Depth}
}

// Source is a candidate seismic source position in the same local
// Cartesian frame as Station.
type Source struct {
	// Name labels the source in reports.
	Name string

	// East, North, Depth are the source coordinates in m.
	East, North, Depth float64
}

// Position returns the source coordinates as a vector.
func (s Source) Position() r3.Vec {
	return r3.Vec{X: s.East, Y: s.North, Z: s.Depth}
}
