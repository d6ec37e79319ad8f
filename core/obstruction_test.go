package core

import (
	"testing"

	"github.com/signalsfoundry/router-placement/model"
)

func mustWall(t *testing.T, start, end model.Point, height float64, material string) model.Wall {
	t.Helper()
	w, err := model.NewWall(start, end, height, material, nil)
	if err != nil {
		t.Fatalf("NewWall: %v", err)
	}
	return w
}

func TestIntersectsCrossing(t *testing.T) {
	w := mustWall(t, model.Point{X: 5, Y: 0}, model.Point{X: 5, Y: 10}, 3, model.MaterialConcrete)
	if !Intersects(model.Point{X: 2, Y: 5, Z: 1}, model.Point{X: 8, Y: 5, Z: 1}, w) {
		t.Fatalf("expected line of sight to cross the wall")
	}
	if Intersects(model.Point{X: 1, Y: 5, Z: 1}, model.Point{X: 4, Y: 5, Z: 1}, w) {
		t.Fatalf("segment stopping short of the wall should not intersect")
	}
	if Intersects(model.Point{X: 2, Y: 12, Z: 1}, model.Point{X: 8, Y: 12, Z: 1}, w) {
		t.Fatalf("segment passing beyond the wall end should not intersect")
	}
}

func TestIntersectsParallelAndCollinear(t *testing.T) {
	w := mustWall(t, model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}, 3, model.MaterialConcrete)
	if Intersects(model.Point{X: 0, Y: 1, Z: 1}, model.Point{X: 10, Y: 1, Z: 1}, w) {
		t.Fatalf("parallel segments must not intersect")
	}
	if Intersects(model.Point{X: 2, Y: 0, Z: 1}, model.Point{X: 8, Y: 0, Z: 1}, w) {
		t.Fatalf("collinear segments are treated as parallel")
	}
}

func TestIntersectsEndpointOnWall(t *testing.T) {
	w := mustWall(t, model.Point{X: 5, Y: 0}, model.Point{X: 5, Y: 10}, 3, model.MaterialConcrete)
	if !Intersects(model.Point{X: 5, Y: 5, Z: 1}, model.Point{X: 8, Y: 5, Z: 1}, w) {
		t.Fatalf("an endpoint lying on the wall counts as crossing it")
	}
}

func TestIntersectsHeightGate(t *testing.T) {
	w := mustWall(t, model.Point{X: 5, Y: 0, Z: 0}, model.Point{X: 5, Y: 10, Z: 0}, 3, model.MaterialConcrete)

	if Intersects(model.Point{X: 2, Y: 5, Z: 4}, model.Point{X: 8, Y: 5, Z: 4}, w) {
		t.Fatalf("line of sight above the wall top should pass")
	}
	// Rises from 1 m to 5 m; crosses x=5 at z=3, the top edge.
	if !Intersects(model.Point{X: 2, Y: 5, Z: 1}, model.Point{X: 8, Y: 5, Z: 5}, w) {
		t.Fatalf("line of sight touching the wall top should be blocked")
	}

	upper := mustWall(t, model.Point{X: 5, Y: 0, Z: 7}, model.Point{X: 5, Y: 10, Z: 7}, 7, model.MaterialConcrete)
	if Intersects(model.Point{X: 2, Y: 5, Z: 1}, model.Point{X: 8, Y: 5, Z: 1}, upper) {
		t.Fatalf("wall on the floor above should not block a ground-floor link")
	}
	if !Intersects(model.Point{X: 2, Y: 5, Z: 9}, model.Point{X: 8, Y: 5, Z: 9}, upper) {
		t.Fatalf("wall on the same floor should block")
	}
}

func TestWallLossDB(t *testing.T) {
	concrete := mustWall(t, model.Point{X: 5, Y: 0}, model.Point{X: 5, Y: 10}, 3, model.MaterialConcrete)
	glass := mustWall(t, model.Point{X: 7, Y: 0}, model.Point{X: 7, Y: 10}, 3, model.MaterialGlass)
	walls := []model.Wall{concrete, glass}

	a := model.Point{X: 1, Y: 5, Z: 1}
	if got := WallLossDB(a, model.Point{X: 4, Y: 5, Z: 1}, walls); got != 0 {
		t.Fatalf("unobstructed loss = %v, want 0", got)
	}
	for i := 0; i < 3; i++ {
		if got := WallLossDB(a, model.Point{X: 6, Y: 5, Z: 1}, walls); got != 15.0 {
			t.Fatalf("loss through one concrete wall = %v, want 15", got)
		}
	}
	if got := WallLossDB(a, model.Point{X: 9, Y: 5, Z: 1}, walls); got != 18.0 {
		t.Fatalf("loss through concrete+glass = %v, want 18", got)
	}
	if got := WallLossDB(a, model.Point{X: 9, Y: 5, Z: 1}, nil); got != 0 {
		t.Fatalf("loss with no walls = %v, want 0", got)
	}
}

func twoStoreyBuilding(t *testing.T) *model.Building {
	t.Helper()
	b := model.NewBuilding("two storeys")
	for floor := 0; floor < 2; floor++ {
		r := model.NewRoom("r", floor, 3)
		z := float64(floor) * 3
		corners := []model.Point{{X: 0, Y: 0, Z: z}, {X: 10, Y: 0, Z: z}, {X: 10, Y: 10, Z: z}, {X: 0, Y: 10, Z: z}}
		for i := range corners {
			if err := r.AddWall(corners[i], corners[(i+1)%4], model.MaterialDrywall); err != nil {
				t.Fatalf("AddWall: %v", err)
			}
		}
		if err := b.AddRoom(r); err != nil {
			t.Fatalf("AddRoom: %v", err)
		}
	}
	return b
}

func TestFloorLossDB(t *testing.T) {
	b := twoStoreyBuilding(t)
	lower := model.Point{X: 5, Y: 5, Z: 1}
	upper := model.Point{X: 5, Y: 5, Z: 4}
	if got := FloorLossDB(b, lower, upper, 20); got != 20 {
		t.Fatalf("FloorLossDB across one floor = %v, want 20", got)
	}
	if got := FloorLossDB(b, upper, lower, 20); got != 20 {
		t.Fatalf("FloorLossDB should be symmetric, got %v", got)
	}
	if got := FloorLossDB(b, lower, lower, 20); got != 0 {
		t.Fatalf("FloorLossDB on same floor = %v, want 0", got)
	}
}

func TestObstructionTracerLossDB(t *testing.T) {
	b := twoStoreyBuilding(t)
	tracer := NewObstructionTracer(b, 20)

	inside := model.Point{X: 5, Y: 5, Z: 1}
	if got := tracer.LossDB(inside, model.Point{X: 2, Y: 2, Z: 1}); got != 0 {
		t.Fatalf("in-room loss = %v, want 0", got)
	}
	// Leaves through the x=10 drywall on the ground floor.
	if got := tracer.LossDB(inside, model.Point{X: 15, Y: 5, Z: 1}); got != 4 {
		t.Fatalf("loss through exterior drywall = %v, want 4", got)
	}
	if got := tracer.LossDB(inside, model.Point{X: 5, Y: 5, Z: 4}); got != 20 {
		t.Fatalf("loss to the floor above = %v, want 20", got)
	}
	var nilTracer *ObstructionTracer
	if got := nilTracer.LossDB(inside, inside); got != 0 {
		t.Fatalf("nil tracer loss = %v, want 0", got)
	}
}
