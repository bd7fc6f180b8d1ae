package grid

import (
	"fmt"

	"github.com/san-kum/heatbmi/internal/bmi"
)

// Geometry describes a uniform rectilinear grid. Index 0 is the row
// direction, index 1 the column direction.
type Geometry struct {
	Shape   [2]int
	Spacing [2]float64
	Origin  [2]float64
}

// MaxNodes bounds rows*cols so the field length stays representable and
// allocatable.
const MaxNodes = 1 << 30

// Size returns the number of nodes.
func (g Geometry) Size() int { return g.Shape[0] * g.Shape[1] }

// Validate checks that the shape and spacing are positive and that the node
// count does not exceed MaxNodes.
func (g Geometry) Validate() error {
	if g.Shape[0] <= 0 || g.Shape[1] <= 0 {
		return fmt.Errorf("grid: shape must be positive, got %v", g.Shape)
	}
	if g.Shape[0] > MaxNodes/g.Shape[1] {
		return fmt.Errorf("grid: shape %v exceeds %d nodes", g.Shape, MaxNodes)
	}
	if g.Spacing[0] <= 0 || g.Spacing[1] <= 0 {
		return fmt.Errorf("grid: spacing must be positive, got %v", g.Spacing)
	}
	return nil
}

// State stores a 2D field of float64 values in row-major order together
// with its geometry. The backing slice is allocated once and never replaced.
type State struct {
	geom  Geometry
	field []float64
}

// New allocates a zeroed field for geom.
func New(geom Geometry) (*State, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	return &State{geom: geom, field: make([]float64, geom.Size())}, nil
}

func (s *State) Geometry() Geometry  { return s.geom }
func (s *State) Shape() [2]int       { return s.geom.Shape }
func (s *State) Spacing() [2]float64 { return s.geom.Spacing }
func (s *State) Origin() [2]float64  { return s.geom.Origin }
func (s *State) Size() int           { return s.geom.Size() }
func (s *State) Rank() int           { return len(s.geom.Shape) }

// Field exposes the backing slice so callers can read/write values directly.
func (s *State) Field() []float64 { return s.field }

// Index returns the flat index of row i, column j.
func (s *State) Index(i, j int) int { return i*s.geom.Shape[1] + j }

func (s *State) At(i, j int) float64     { return s.field[s.Index(i, j)] }
func (s *State) Set(i, j int, v float64) { s.field[s.Index(i, j)] = v }

// CopyTo flattens the field into dst, which must hold exactly Size values.
func (s *State) CopyTo(dst []float64) error {
	if len(dst) != len(s.field) {
		return bmi.Errorf("copy", "", bmi.ErrSizeMismatch, "got %d values, want %d", len(dst), len(s.field))
	}
	copy(dst, s.field)
	return nil
}

// Load overwrites the field from src, which must hold exactly Size values.
func (s *State) Load(src []float64) error {
	if len(src) != len(s.field) {
		return bmi.Errorf("load", "", bmi.ErrSizeMismatch, "got %d values, want %d", len(src), len(s.field))
	}
	copy(s.field, src)
	return nil
}

// Fill sets every node from gen, in row-major order.
func (s *State) Fill(gen func() float64) {
	for i := range s.field {
		s.field[i] = gen()
	}
}

// Release drops the field. The state must not be used afterwards.
func (s *State) Release() {
	s.field = nil
}

// Released reports whether Release was called.
func (s *State) Released() bool { return s.field == nil }
