package model

import (
	"errors"
	"fmt"
)

var ErrInvalidRoom = errors.New("invalid room")

// DefaultRoomHeightM is the storey height used when a room is created
// without one.
const DefaultRoomHeightM = 3.0

// Room is a set of walls on a single floor. Its vertical extent is
// [FloorLevel*Height, (FloorLevel+1)*Height].
type Room struct {
	Name       string
	Walls      []Wall
	FloorLevel int
	Height     float64

	// Materials resolves wall material tags in AddWall. Nil means
	// DefaultMaterials.
	Materials MaterialTable
}

// NewRoom creates an empty room. A non-positive height is replaced with
// DefaultRoomHeightM.
func NewRoom(name string, floorLevel int, height float64) *Room {
	if height <= 0 {
		height = DefaultRoomHeightM
	}
	return &Room{
		Name:       name,
		FloorLevel: floorLevel,
		Height:     height,
	}
}

// AddWall appends a wall of the room's height between start and end.
func (r *Room) AddWall(start, end Point, material string) error {
	if r == nil {
		return fmt.Errorf("%w: nil room", ErrInvalidRoom)
	}
	w, err := NewWall(start, end, r.Height, material, r.Materials)
	if err != nil {
		return fmt.Errorf("room %q: %w", r.Name, err)
	}
	r.Walls = append(r.Walls, w)
	return nil
}

// Bounds is the axis-aligned box spanned by the wall endpoints and the
// room's storey. A room without walls has zero Bounds.
func (r *Room) Bounds() Bounds {
	if r == nil || len(r.Walls) == 0 {
		return Bounds{}
	}
	first := r.Walls[0].Start
	b := Bounds{MinX: first.X, MinY: first.Y, MaxX: first.X, MaxY: first.Y}
	for _, w := range r.Walls {
		for _, p := range [2]Point{w.Start, w.End} {
			b.MinX = min(b.MinX, p.X)
			b.MinY = min(b.MinY, p.Y)
			b.MaxX = max(b.MaxX, p.X)
			b.MaxY = max(b.MaxY, p.Y)
		}
	}
	b.MinZ, b.MaxZ = r.zRange()
	return b
}

func (r *Room) zRange() (float64, float64) {
	return float64(r.FloorLevel) * r.Height, float64(r.FloorLevel+1) * r.Height
}
