package model

import (
	"errors"
	"fmt"
)

var ErrNilBuilding = errors.New("nil building")

// FloorTolerance widens the top of every room's z-range when classifying a
// height into a floor, so points resting on the ceiling plane still belong
// to the storey below.
const FloorTolerance = 0.1

// Building owns an ordered list of rooms. Every query is recomputed from
// the current room list.
type Building struct {
	Name  string
	Rooms []*Room
}

// NewBuilding returns an empty building.
func NewBuilding(name string) *Building {
	return &Building{Name: name}
}

// AddRoom appends a room. Room order decides which room wins in
// FloorLevelAt when storeys overlap.
func (b *Building) AddRoom(r *Room) error {
	if b == nil {
		return ErrNilBuilding
	}
	if r == nil {
		return fmt.Errorf("%w: nil room", ErrInvalidRoom)
	}
	if r.FloorLevel < 0 {
		return fmt.Errorf("%w: %q has negative floor level %d", ErrInvalidRoom, r.Name, r.FloorLevel)
	}
	b.Rooms = append(b.Rooms, r)
	return nil
}

// Floors is 1 + the highest room floor level, or 1 for an empty building.
func (b *Building) Floors() int {
	floors := 1
	if b == nil {
		return floors
	}
	for _, r := range b.Rooms {
		floors = max(floors, r.FloorLevel+1)
	}
	return floors
}

// Walls returns every wall of every room in room order.
func (b *Building) Walls() []Wall {
	if b == nil {
		return nil
	}
	var walls []Wall
	for _, r := range b.Rooms {
		walls = append(walls, r.Walls...)
	}
	return walls
}

// Contains reports whether p falls inside the bounding box of any room.
// This is a union of boxes, not a polygon test: points in the hull of an
// L-shaped room count as inside.
func (b *Building) Contains(p Point) bool {
	if b == nil {
		return false
	}
	for _, r := range b.Rooms {
		if r.Bounds().Contains(p) {
			return true
		}
	}
	return false
}

// FloorLevelAt returns the floor level of the first room whose storey
// contains z, or 0 when none does.
func (b *Building) FloorLevelAt(z float64) int {
	if b == nil {
		return 0
	}
	for _, r := range b.Rooms {
		lo, hi := r.zRange()
		if lo <= z && z <= hi+FloorTolerance {
			return r.FloorLevel
		}
	}
	return 0
}

// Extent is the union of all room bounds. It is zero when no room has
// walls.
func (b *Building) Extent() Bounds {
	var out Bounds
	seen := false
	if b == nil {
		return out
	}
	for _, r := range b.Rooms {
		rb := r.Bounds()
		if rb.IsZero() {
			continue
		}
		if !seen {
			out = rb
			seen = true
			continue
		}
		out.MinX = min(out.MinX, rb.MinX)
		out.MinY = min(out.MinY, rb.MinY)
		out.MinZ = min(out.MinZ, rb.MinZ)
		out.MaxX = max(out.MaxX, rb.MaxX)
		out.MaxY = max(out.MaxY, rb.MaxY)
		out.MaxZ = max(out.MaxZ, rb.MaxZ)
	}
	return out
}
