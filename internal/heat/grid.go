package heat

import (
	"fmt"

	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/grid"
	"github.com/san-kum/heatbmi/internal/registry"
)

func (m *Model) lookupGrid(op string, id int) (registry.Grid, *grid.State, error) {
	if err := m.clock.Check(op); err != nil {
		return registry.Grid{}, nil, err
	}
	desc, err := m.reg.Grid(id)
	if err != nil {
		return registry.Grid{}, nil, bmi.Wrap(op, fmt.Sprintf("grid %d", id), bmi.ErrUnknownGrid)
	}
	return desc, m.grids[id], nil
}

// structured returns the grid unless it is unstructured; every other kind
// has a shape and a node count.
func (m *Model) structured(op string, id int) (*grid.State, error) {
	desc, g, err := m.lookupGrid(op, id)
	if err != nil {
		return nil, err
	}
	if desc.Kind == bmi.GridUnstructured {
		return nil, unsupported(op, id, desc.Kind)
	}
	return g, nil
}

// uniform returns the grid when it is uniform rectilinear.
func (m *Model) uniform(op string, id int) (*grid.State, error) {
	desc, g, err := m.lookupGrid(op, id)
	if err != nil {
		return nil, err
	}
	if desc.Kind != bmi.GridUniform {
		return nil, unsupported(op, id, desc.Kind)
	}
	return g, nil
}

func unsupported(op string, id int, kind bmi.GridKind) error {
	return bmi.Errorf(op, fmt.Sprintf("grid %d", id), bmi.ErrUnsupported, "%s grid", kind)
}

func (m *Model) GetGridType(id int) (string, error) {
	desc, _, err := m.lookupGrid("get_grid_type", id)
	if err != nil {
		return "", err
	}
	return desc.Kind.String(), nil
}

func (m *Model) GetGridRank(id int) (int, error) {
	_, g, err := m.lookupGrid("get_grid_rank", id)
	if err != nil {
		return 0, err
	}
	return g.Rank(), nil
}

func (m *Model) GetGridSize(id int) (int, error) {
	_, g, err := m.lookupGrid("get_grid_size", id)
	if err != nil {
		return 0, err
	}
	return g.Size(), nil
}

// GetGridShape writes the number of rows and columns into shape.
func (m *Model) GetGridShape(id int, shape []int) ([]int, error) {
	g, err := m.structured("get_grid_shape", id)
	if err != nil {
		return nil, err
	}
	if len(shape) != g.Rank() {
		return nil, bmi.Errorf("get_grid_shape", fmt.Sprintf("grid %d", id), bmi.ErrSizeMismatch, "got %d values, want %d", len(shape), g.Rank())
	}
	s := g.Shape()
	copy(shape, s[:])
	return shape, nil
}

// GetGridSpacing writes the row and column spacing into spacing.
func (m *Model) GetGridSpacing(id int, spacing []float64) ([]float64, error) {
	g, err := m.uniform("get_grid_spacing", id)
	if err != nil {
		return nil, err
	}
	if len(spacing) != g.Rank() {
		return nil, bmi.Errorf("get_grid_spacing", fmt.Sprintf("grid %d", id), bmi.ErrSizeMismatch, "got %d values, want %d", len(spacing), g.Rank())
	}
	s := g.Spacing()
	copy(spacing, s[:])
	return spacing, nil
}

// GetGridOrigin writes the coordinates of the first node into origin.
func (m *Model) GetGridOrigin(id int, origin []float64) ([]float64, error) {
	g, err := m.uniform("get_grid_origin", id)
	if err != nil {
		return nil, err
	}
	if len(origin) != g.Rank() {
		return nil, bmi.Errorf("get_grid_origin", fmt.Sprintf("grid %d", id), bmi.ErrSizeMismatch, "got %d values, want %d", len(origin), g.Rank())
	}
	o := g.Origin()
	copy(origin, o[:])
	return origin, nil
}

func (m *Model) GetGridNodeCount(id int) (int, error) {
	g, err := m.structured("get_grid_node_count", id)
	if err != nil {
		return 0, err
	}
	return g.Size(), nil
}

// Coordinate arrays belong to rectilinear and structured grids; a uniform
// grid is described by its shape, spacing and origin instead.

func (m *Model) GetGridX(id int, x []float64) ([]float64, error) {
	return nil, m.noData("get_grid_x", id)
}

func (m *Model) GetGridY(id int, y []float64) ([]float64, error) {
	return nil, m.noData("get_grid_y", id)
}

func (m *Model) GetGridZ(id int, z []float64) ([]float64, error) {
	return nil, m.noData("get_grid_z", id)
}

// Connectivity belongs to unstructured grids.

func (m *Model) GetGridEdgeCount(id int) (int, error) {
	return 0, m.noData("get_grid_edge_count", id)
}

func (m *Model) GetGridFaceCount(id int) (int, error) {
	return 0, m.noData("get_grid_face_count", id)
}

func (m *Model) GetGridEdgeNodes(id int, edgeNodes []int) ([]int, error) {
	return nil, m.noData("get_grid_edge_nodes", id)
}

func (m *Model) GetGridFaceEdges(id int, faceEdges []int) ([]int, error) {
	return nil, m.noData("get_grid_face_edges", id)
}

func (m *Model) GetGridFaceNodes(id int, faceNodes []int) ([]int, error) {
	return nil, m.noData("get_grid_face_nodes", id)
}

func (m *Model) GetGridNodesPerFace(id int, nodesPerFace []int) ([]int, error) {
	return nil, m.noData("get_grid_nodes_per_face", id)
}

// noData resolves id and reports ErrUnsupported: the plate stores no
// coordinate arrays or connectivity. Lookup and lifecycle errors come first.
func (m *Model) noData(op string, id int) error {
	desc, _, err := m.lookupGrid(op, id)
	if err != nil {
		return err
	}
	return unsupported(op, id, desc.Kind)
}
