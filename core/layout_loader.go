package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/router-placement/model"
)

var ErrInvalidLayout = errors.New("invalid layout")

// LayoutSummary is a small summary of what was loaded from JSON.
// It's mainly useful for logging from the CLI.
type LayoutSummary struct {
	Name      string
	RoomNames []string
	Walls     int
	Floors    int
}

// internal JSON shapes – keep them unexported so we're free to evolve them.
type layoutJSON struct {
	Name  string     `json:"name"`
	Rooms []roomJSON `json:"rooms"`
}

type roomJSON struct {
	Name       string     `json:"name"`
	FloorLevel int        `json:"floor_level"`
	Height     float64    `json:"height"` // optional; defaults to model.DefaultRoomHeightM
	Walls      []wallJSON `json:"walls"`
}

type wallJSON struct {
	Start    planJSON `json:"start"`
	End      planJSON `json:"end"`
	Material string   `json:"material"` // optional; defaults to concrete
}

// Wall endpoints are floor-plan coordinates; z comes from the room's
// storey.
type planJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LoadLayout reads a building layout from r. Walls are placed at the base
// of their room's storey and resolved against materials (nil means
// model.DefaultMaterials). Rooms keep a private copy of the table. Any
// unknown material fails the whole load.
func LoadLayout(r io.Reader, materials model.MaterialTable) (*model.Building, *LayoutSummary, error) {
	var payload layoutJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("LoadLayout: decode failed: %w", err)
	}

	if materials != nil {
		materials = materials.Clone()
	}

	name := payload.Name
	if name == "" {
		name = "Unnamed Building"
	}
	b := model.NewBuilding(name)
	summary := &LayoutSummary{
		Name:      name,
		RoomNames: make([]string, 0, len(payload.Rooms)),
	}

	for i, jsR := range payload.Rooms {
		if jsR.Name == "" {
			return nil, nil, fmt.Errorf("%w: room %d has empty name", ErrInvalidLayout, i)
		}
		if jsR.Height < 0 {
			return nil, nil, fmt.Errorf("%w: room %q has negative height", ErrInvalidLayout, jsR.Name)
		}
		room := model.NewRoom(jsR.Name, jsR.FloorLevel, jsR.Height)
		room.Materials = materials
		z := float64(room.FloorLevel) * room.Height

		for _, jsW := range jsR.Walls {
			material := jsW.Material
			if material == "" {
				material = model.MaterialConcrete
			}
			start := model.Point{X: jsW.Start.X, Y: jsW.Start.Y, Z: z}
			end := model.Point{X: jsW.End.X, Y: jsW.End.Y, Z: z}
			if err := room.AddWall(start, end, material); err != nil {
				return nil, nil, fmt.Errorf("LoadLayout: %w", err)
			}
		}
		if err := b.AddRoom(room); err != nil {
			return nil, nil, fmt.Errorf("LoadLayout: %w", err)
		}
		summary.RoomNames = append(summary.RoomNames, room.Name)
		summary.Walls += len(room.Walls)
	}

	summary.Floors = b.Floors()
	return b, summary, nil
}

// LoadLayoutFile opens path and calls LoadLayout.
func LoadLayoutFile(path string, materials model.MaterialTable) (*model.Building, *LayoutSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open layout %q: %w", path, err)
	}
	defer f.Close()
	return LoadLayout(f, materials)
}
