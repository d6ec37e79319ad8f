package core

import (
	"math"

	"github.com/signalsfoundry/router-placement/model"
)

// Intersects reports whether the line of sight p1→p2 passes through wall w.
//
// The test runs on the floor-plan projection: the two segments are solved
// in parametric form and must cross within both of their extents. Parallel
// (and collinear) segments never intersect. The line of sight's height at
// the crossing must then fall within [w.Start.Z, w.Start.Z+w.Height].
func Intersects(p1, p2 model.Point, w model.Wall) bool {
	x1, y1 := p1.X, p1.Y
	x2, y2 := p2.X, p2.Y
	x3, y3 := w.Start.X, w.Start.Y
	x4, y4 := w.End.X, w.End.Y

	denom := (y4-y3)*(x2-x1) - (x4-x3)*(y2-y1)
	if denom == 0 {
		return false
	}

	ua := ((x4-x3)*(y1-y3) - (y4-y3)*(x1-x3)) / denom
	ub := ((x2-x1)*(y1-y3) - (y2-y1)*(x1-x3)) / denom
	if ua < 0 || ua > 1 || ub < 0 || ub > 1 {
		return false
	}

	z := p1.Z + ua*(p2.Z-p1.Z)
	base := w.Start.Z
	return base <= z && z <= base+w.Height
}

// WallLossDB sums the attenuation of every wall crossed by p1→p2. Each
// wall in the slice is tested exactly once.
func WallLossDB(p1, p2 model.Point, walls []model.Wall) float64 {
	total := 0.0
	for _, w := range walls {
		if Intersects(p1, p2, w) {
			total += w.AttenuationDB()
		}
	}
	return total
}

// FloorLossDB charges perFloorDB for every storey separating p1 and p2.
func FloorLossDB(b *model.Building, p1, p2 model.Point, perFloorDB float64) float64 {
	return floorPenalty(b.FloorLevelAt(p1.Z), b.FloorLevelAt(p2.Z), perFloorDB)
}

func floorPenalty(floorA, floorB int, perFloorDB float64) float64 {
	return math.Abs(float64(floorA-floorB)) * perFloorDB
}

// ObstructionTracer accumulates wall and floor losses along straight lines
// of sight through a building.
type ObstructionTracer struct {
	Building           *model.Building
	FloorAttenuationDB float64
}

// NewObstructionTracer binds a tracer to b.
func NewObstructionTracer(b *model.Building, floorAttenuationDB float64) *ObstructionTracer {
	return &ObstructionTracer{Building: b, FloorAttenuationDB: floorAttenuationDB}
}

// LossDB is the obstruction loss between two points: crossed walls plus
// the inter-floor penalty. It reads the building's current walls on every
// call.
func (t *ObstructionTracer) LossDB(p1, p2 model.Point) float64 {
	if t == nil || t.Building == nil {
		return 0
	}
	return WallLossDB(p1, p2, t.Building.Walls()) +
		FloorLossDB(t.Building, p1, p2, t.FloorAttenuationDB)
}
