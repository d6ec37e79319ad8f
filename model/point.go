package model

import "math"

// Point is a position inside a building in metres. Z is measured from the
// ground-floor slab.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Bounds is an axis-aligned box in metres. All comparisons are closed.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Contains reports whether p lies inside or on the surface of the box.
func (b Bounds) Contains(p Point) bool {
	return b.MinX <= p.X && p.X <= b.MaxX &&
		b.MinY <= p.Y && p.Y <= b.MaxY &&
		b.MinZ <= p.Z && p.Z <= b.MaxZ
}

// IsZero reports whether the box is the degenerate all-zero box.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}
