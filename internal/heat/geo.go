package heat

import (
	"fmt"

	"github.com/san-kum/heatbmi/internal/bmi"
)

// CRSNone marks a grid that is not georeferenced.
const CRSNone = "none"

var (
	coordinateNames = []string{"y", "x"}
	coordinateUnits = []string{"m", "m"}
)

// Geo exposes node coordinates of a Model's grids. Coordinates are derived
// from the grid origin and spacing; the plate carries no projection.
type Geo struct {
	m *Model
}

func NewGeo(m *Model) *Geo {
	return &Geo{m: m}
}

// CoordinateNames returns the coordinate names in dimension order.
func (g *Geo) CoordinateNames(id int) ([]string, error) {
	if _, err := g.m.uniform("get_grid_coordinate_names", id); err != nil {
		return nil, err
	}
	return append([]string(nil), coordinateNames...), nil
}

// CoordinateUnits returns the units of each coordinate in dimension order.
func (g *Geo) CoordinateUnits(id int) ([]string, error) {
	if _, err := g.m.uniform("get_grid_coordinate_units", id); err != nil {
		return nil, err
	}
	return append([]string(nil), coordinateUnits...), nil
}

// Coordinate writes the named coordinate of every node, row-major, into
// values, which must hold exactly the grid size.
func (g *Geo) Coordinate(id int, name string, values []float64) ([]float64, error) {
	const op = "get_grid_coordinate"
	state, err := g.m.uniform(op, id)
	if err != nil {
		return nil, err
	}

	dim := -1
	for i, n := range coordinateNames {
		if n == name {
			dim = i
		}
	}
	if dim < 0 {
		return nil, bmi.Errorf(op, name, bmi.ErrInvalidArgument, "unknown coordinate, want one of %v", coordinateNames)
	}
	if len(values) != state.Size() {
		return nil, bmi.Errorf(op, fmt.Sprintf("grid %d", id), bmi.ErrSizeMismatch, "got %d values, want %d", len(values), state.Size())
	}

	shape, spacing, origin := state.Shape(), state.Spacing(), state.Origin()
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			idx := [2]int{i, j}
			values[i*shape[1]+j] = float64(idx[dim])*spacing[dim] + origin[dim]
		}
	}
	return values, nil
}

// CRS returns the coordinate reference system of the grid.
func (g *Geo) CRS(id int) (string, error) {
	if _, err := g.m.uniform("get_grid_crs", id); err != nil {
		return "", err
	}
	return CRSNone, nil
}
