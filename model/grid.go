package model

import (
	"errors"
	"fmt"
)

var ErrInvalidGrid = errors.New("invalid grid spec")

// GridSpec describes a regular lattice of sample points laid over every
// floor of a building.
type GridSpec struct {
	// Spacing is the lattice pitch in metres along x and y.
	Spacing float64 `yaml:"spacing" json:"spacing"`
	// Margin insets the lattice from the building extent.
	Margin float64 `yaml:"margin" json:"margin"`
	// HeightAboveFloor places each layer relative to its storey's slab.
	HeightAboveFloor float64 `yaml:"height_above_floor" json:"height_above_floor"`
}

// Validate rejects non-positive spacing and negative offsets.
func (g GridSpec) Validate() error {
	if g.Spacing <= 0 {
		return fmt.Errorf("%w: spacing must be positive, got %v", ErrInvalidGrid, g.Spacing)
	}
	if g.Margin < 0 {
		return fmt.Errorf("%w: margin must be non-negative, got %v", ErrInvalidGrid, g.Margin)
	}
	if g.HeightAboveFloor < 0 {
		return fmt.Errorf("%w: height above floor must be non-negative, got %v", ErrInvalidGrid, g.HeightAboveFloor)
	}
	return nil
}

// GridPoints samples the building on spec's lattice, one layer per floor,
// keeping only points that fall inside some room. Points are ordered by
// floor, then x, then y. The upper x/y edge of the lattice is exclusive.
func GridPoints(b *Building, spec GridSpec) ([]Point, error) {
	if b == nil {
		return nil, ErrNilBuilding
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	ext := b.Extent()
	if ext.IsZero() {
		return nil, nil
	}

	xs := axis(ext.MinX+spec.Margin, ext.MaxX-spec.Margin, spec.Spacing)
	ys := axis(ext.MinY+spec.Margin, ext.MaxY-spec.Margin, spec.Spacing)

	var points []Point
	for floor := 0; floor < b.Floors(); floor++ {
		height, ok := storeyHeight(b, floor)
		if !ok {
			continue
		}
		z := float64(floor)*height + spec.HeightAboveFloor
		for _, x := range xs {
			for _, y := range ys {
				p := Point{X: x, Y: y, Z: z}
				if b.Contains(p) {
					points = append(points, p)
				}
			}
		}
	}
	return points, nil
}

func axis(start, end, step float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v >= end {
			break
		}
		out = append(out, v)
	}
	return out
}

func storeyHeight(b *Building, floor int) (float64, bool) {
	for _, r := range b.Rooms {
		if r.FloorLevel == floor {
			return r.Height, true
		}
	}
	return 0, false
}
