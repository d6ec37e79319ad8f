package model

// DefaultWallThicknessM is recorded on walls built without an explicit
// thickness. Thickness does not influence attenuation.
const DefaultWallThicknessM = 0.15

// Wall is a vertical planar obstruction between two floor-plan endpoints.
// The wall rises Height metres above Start.Z.
type Wall struct {
	Start      Point
	End        Point
	Height     float64
	Material   string
	ThicknessM float64

	attenuationDB float64
}

// NewWall builds a wall whose material must resolve in materials. A nil
// table falls back to DefaultMaterials.
func NewWall(start, end Point, height float64, material string, materials MaterialTable) (Wall, error) {
	if materials == nil {
		materials = DefaultMaterials()
	}
	db, err := materials.Attenuation(material)
	if err != nil {
		return Wall{}, err
	}
	return Wall{
		Start:         start,
		End:           end,
		Height:        height,
		Material:      material,
		ThicknessM:    DefaultWallThicknessM,
		attenuationDB: db,
	}, nil
}

// AttenuationDB is the loss added by a line of sight crossing this wall.
func (w Wall) AttenuationDB() float64 {
	return w.attenuationDB
}
