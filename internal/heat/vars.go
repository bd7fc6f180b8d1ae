package heat

import (
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/grid"
	"github.com/san-kum/heatbmi/internal/registry"
)

// variable resolves name to its descriptor and the grid holding its values.
func (m *Model) variable(op, name string) (registry.Variable, *grid.State, error) {
	if err := m.clock.Check(op); err != nil {
		return registry.Variable{}, nil, err
	}
	v, err := m.reg.Variable(name)
	if err != nil {
		return registry.Variable{}, nil, bmi.Wrap(op, name, bmi.ErrUnknownVariable)
	}
	return v, m.grids[v.Grid], nil
}

func (m *Model) GetVarGrid(name string) (int, error) {
	v, _, err := m.variable("get_var_grid", name)
	return v.Grid, err
}

func (m *Model) GetVarType(name string) (string, error) {
	v, _, err := m.variable("get_var_type", name)
	return v.Type, err
}

func (m *Model) GetVarUnits(name string) (string, error) {
	v, _, err := m.variable("get_var_units", name)
	return v.Units, err
}

func (m *Model) GetVarItemSize(name string) (int, error) {
	v, _, err := m.variable("get_var_itemsize", name)
	return v.ItemSize, err
}

func (m *Model) GetVarNBytes(name string) (int, error) {
	v, g, err := m.variable("get_var_nbytes", name)
	if err != nil {
		return 0, err
	}
	return v.ItemSize * g.Size(), nil
}

func (m *Model) GetVarLocation(name string) (bmi.Location, error) {
	v, _, err := m.variable("get_var_location", name)
	return v.Location, err
}

// GetValue copies the variable, flattened row-major, into dest and returns
// dest. dest must hold exactly the grid size.
func (m *Model) GetValue(name string, dest []float64) ([]float64, error) {
	_, g, err := m.variable("get_value", name)
	if err != nil {
		return nil, err
	}
	if len(dest) != g.Size() {
		return nil, bmi.Errorf("get_value", name, bmi.ErrSizeMismatch, "got %d values, want %d", len(dest), g.Size())
	}
	copy(dest, g.Field())
	return dest, nil
}

// GetValuePtr returns the live storage of the variable. The slice keeps its
// identity across updates and observes every later mutation.
func (m *Model) GetValuePtr(name string) ([]float64, error) {
	_, g, err := m.variable("get_value_ptr", name)
	if err != nil {
		return nil, err
	}
	return g.Field(), nil
}

// GetValueAtIndices gathers the values at flat row-major indices into dest.
func (m *Model) GetValueAtIndices(name string, dest []float64, inds []int) ([]float64, error) {
	const op = "get_value_at_indices"
	_, g, err := m.variable(op, name)
	if err != nil {
		return nil, err
	}
	if len(dest) != len(inds) {
		return nil, bmi.Errorf(op, name, bmi.ErrSizeMismatch, "%d indices, %d destination values", len(inds), len(dest))
	}
	if err := checkIndices(op, name, inds, g.Size()); err != nil {
		return nil, err
	}
	field := g.Field()
	for k, i := range inds {
		dest[k] = field[i]
	}
	return dest, nil
}

// SetValue overwrites the whole variable from src, read row-major.
func (m *Model) SetValue(name string, src []float64) error {
	_, g, err := m.variable("set_value", name)
	if err != nil {
		return err
	}
	if len(src) != g.Size() {
		return bmi.Errorf("set_value", name, bmi.ErrSizeMismatch, "got %d values, want %d", len(src), g.Size())
	}
	return g.Load(src)
}

// SetValueAtIndices scatters src into the variable at flat indices. Either
// every value is written or none is.
func (m *Model) SetValueAtIndices(name string, inds []int, src []float64) error {
	const op = "set_value_at_indices"
	_, g, err := m.variable(op, name)
	if err != nil {
		return err
	}
	if len(src) != len(inds) {
		return bmi.Errorf(op, name, bmi.ErrSizeMismatch, "%d indices, %d source values", len(inds), len(src))
	}
	if err := checkIndices(op, name, inds, g.Size()); err != nil {
		return err
	}
	field := g.Field()
	for k, i := range inds {
		field[i] = src[k]
	}
	return nil
}

func checkIndices(op, name string, inds []int, size int) error {
	for _, i := range inds {
		if i < 0 || i >= size {
			return bmi.Errorf(op, name, bmi.ErrIndexOutOfRange, "index %d, grid size %d", i, size)
		}
	}
	return nil
}
