package model

import "fmt"

// DemoBuilding returns a 60 x 40 m, three-storey lab building with 7 m
// storeys. Each floor is split into four 30 x 20 m concrete zones that
// share their internal walls.
func DemoBuilding() *Building {
	const floorHeight = 7.0
	b := NewBuilding("Research Lab Complex")

	zones := []struct {
		name           string
		x0, y0, x1, y1 float64
	}{
		{"Zone A", 0, 0, 30, 20},
		{"Zone B", 30, 0, 60, 20},
		{"Zone C", 0, 20, 30, 40},
		{"Zone D", 30, 20, 60, 40},
	}

	for floor := 0; floor < 3; floor++ {
		z := float64(floor) * floorHeight
		for _, zone := range zones {
			r := NewRoom(fmt.Sprintf("%s_F%d", zone.name, floor), floor, floorHeight)
			corners := []Point{
				{X: zone.x0, Y: zone.y0, Z: z},
				{X: zone.x1, Y: zone.y0, Z: z},
				{X: zone.x1, Y: zone.y1, Z: z},
				{X: zone.x0, Y: zone.y1, Z: z},
			}
			for i := range corners {
				// Built-in material; AddWall cannot fail here.
				_ = r.AddWall(corners[i], corners[(i+1)%len(corners)], MaterialConcrete)
			}
			_ = b.AddRoom(r)
		}
	}
	return b
}
