package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownMaterial = errors.New("unknown wall material")
	ErrInvalidMaterial = errors.New("invalid material attenuation")
)

// Built-in material tags.
const (
	MaterialConcrete = "concrete"
	MaterialBrick    = "brick"
	MaterialDrywall  = "drywall"
	MaterialGlass    = "glass"
	MaterialWood     = "wood"
)

// MaterialTable maps a wall material tag to the attenuation in dB a signal
// suffers when it passes through one wall of that material.
type MaterialTable map[string]float64

// DefaultMaterials returns a fresh copy of the built-in attenuation table.
func DefaultMaterials() MaterialTable {
	return MaterialTable{
		MaterialConcrete: 15.0,
		MaterialBrick:    10.0,
		MaterialDrywall:  4.0,
		MaterialGlass:    3.0,
		MaterialWood:     5.0,
	}
}

// Attenuation resolves a material tag. Unknown tags fail with
// ErrUnknownMaterial and an error message listing the valid tags.
func (t MaterialTable) Attenuation(material string) (float64, error) {
	if db, ok := t[material]; ok {
		return db, nil
	}
	return 0, fmt.Errorf("%w: %q (available: %s)", ErrUnknownMaterial, material, strings.Join(t.Names(), ", "))
}

// Names returns the material tags in sorted order.
func (t MaterialTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the table is non-empty and holds only non-negative
// attenuation values.
func (t MaterialTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty material table", ErrInvalidMaterial)
	}
	for _, name := range t.Names() {
		if name == "" {
			return fmt.Errorf("%w: empty material name", ErrInvalidMaterial)
		}
		if db := t[name]; db < 0 {
			return fmt.Errorf("%w: %q has negative attenuation %.2f dB", ErrInvalidMaterial, name, db)
		}
	}
	return nil
}

// Clone returns an independent copy of the table.
func (t MaterialTable) Clone() MaterialTable {
	out := make(MaterialTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
