package registry

import (
	"fmt"

	"github.com/san-kum/heatbmi/internal/bmi"
)

// Role marks whether a variable can be written, read, or both by a driver.
type Role uint8

const (
	RoleInput Role = 1 << iota
	RoleOutput
)

// Variable describes one exposed model variable.
type Variable struct {
	Name     string
	Units    string
	Location bmi.Location
	Grid     int
	Type     string
	ItemSize int
	Role     Role
}

// Grid describes one grid id and the variables defined on it, in
// registration order.
type Grid struct {
	ID   int
	Kind bmi.GridKind
	Vars []string
}

// Registry maps standard names to variable descriptors and grid ids to grid
// descriptors. It is filled during initialization and read-only once frozen.
type Registry struct {
	vars    map[string]Variable
	grids   map[int]*Grid
	order   []string
	gridIDs []int
	frozen  bool
}

func New() *Registry {
	return &Registry{
		vars:  make(map[string]Variable),
		grids: make(map[int]*Grid),
	}
}

// AddGrid registers grid id with the given kind.
func (r *Registry) AddGrid(id int, kind bmi.GridKind) error {
	if r.frozen {
		return fmt.Errorf("registry: frozen, cannot add grid %d", id)
	}
	if _, ok := r.grids[id]; ok {
		return fmt.Errorf("registry: duplicate grid %d", id)
	}
	r.grids[id] = &Grid{ID: id, Kind: kind}
	r.gridIDs = append(r.gridIDs, id)
	return nil
}

// AddVariable registers v on its grid, which must already exist.
func (r *Registry) AddVariable(v Variable) error {
	if r.frozen {
		return fmt.Errorf("registry: frozen, cannot add variable %q", v.Name)
	}
	if v.Name == "" {
		return fmt.Errorf("registry: variable name is empty")
	}
	if _, ok := r.vars[v.Name]; ok {
		return fmt.Errorf("registry: duplicate variable %q", v.Name)
	}
	g, ok := r.grids[v.Grid]
	if !ok {
		return bmi.Errorf("add_variable", v.Name, bmi.ErrUnknownGrid, "grid %d", v.Grid)
	}
	if v.Role == 0 {
		return fmt.Errorf("registry: variable %q has neither input nor output role", v.Name)
	}
	r.vars[v.Name] = v
	r.order = append(r.order, v.Name)
	g.Vars = append(g.Vars, v.Name)
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Variable returns the descriptor registered under name.
func (r *Registry) Variable(name string) (Variable, error) {
	v, ok := r.vars[name]
	if !ok {
		return Variable{}, bmi.Wrap("lookup", name, bmi.ErrUnknownVariable)
	}
	return v, nil
}

// Grid returns a copy of the descriptor for grid id.
func (r *Registry) Grid(id int) (Grid, error) {
	g, ok := r.grids[id]
	if !ok {
		return Grid{}, bmi.Wrap("lookup", fmt.Sprintf("grid %d", id), bmi.ErrUnknownGrid)
	}
	out := *g
	out.Vars = append([]string(nil), g.Vars...)
	return out, nil
}

// GridOf returns the grid id of the named variable.
func (r *Registry) GridOf(name string) (int, error) {
	v, err := r.Variable(name)
	if err != nil {
		return 0, err
	}
	return v.Grid, nil
}

// GridIDs returns the registered grid ids in registration order.
func (r *Registry) GridIDs() []int {
	return append([]int(nil), r.gridIDs...)
}

// InputNames returns the input variable names in registration order.
func (r *Registry) InputNames() []string { return r.names(RoleInput) }

// OutputNames returns the output variable names in registration order.
func (r *Registry) OutputNames() []string { return r.names(RoleOutput) }

func (r *Registry) names(role Role) []string {
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.vars[name].Role&role != 0 {
			names = append(names, name)
		}
	}
	return names
}
