package bmi

// GridKind tags the grid variant behind a grid id. The kind decides which
// grid accessors are meaningful; the rest report ErrUnsupported.
type GridKind int

const (
	GridUniform GridKind = iota
	GridRectilinear
	GridStructured
	GridUnstructured
)

func (k GridKind) String() string {
	switch k {
	case GridUniform:
		return "uniform_rectilinear"
	case GridRectilinear:
		return "rectilinear"
	case GridStructured:
		return "structured_quadrilateral"
	case GridUnstructured:
		return "unstructured"
	default:
		return "unknown"
	}
}

// Location is where on the grid a variable is defined.
type Location string

const (
	LocationNode Location = "node"
	LocationEdge Location = "edge"
	LocationFace Location = "face"
)

// Model is the capability interface a component exposes to a driving
// framework. Every method other than GetComponentName fails with
// ErrNotInitialized before Initialize and ErrUseAfterFinalize after Finalize.
type Model interface {
	// Lifecycle. Initialize takes a configuration file path; an empty path
	// selects the model defaults.
	Initialize(configFile string) error
	Update() error
	UpdateFrac(frac float64) error
	UpdateUntil(then float64) error
	Finalize() error

	// Model information.
	GetComponentName() string
	GetInputItemCount() (int, error)
	GetOutputItemCount() (int, error)
	GetInputVarNames() ([]string, error)
	GetOutputVarNames() ([]string, error)

	// Variable information.
	GetVarGrid(name string) (int, error)
	GetVarType(name string) (string, error)
	GetVarUnits(name string) (string, error)
	GetVarItemSize(name string) (int, error)
	GetVarNBytes(name string) (int, error)
	GetVarLocation(name string) (Location, error)

	// Time information.
	GetCurrentTime() (float64, error)
	GetStartTime() (float64, error)
	GetEndTime() (float64, error)
	GetTimeUnits() (string, error)
	GetTimeStep() (float64, error)

	// Getters and setters. GetValue copies; GetValuePtr aliases.
	GetValue(name string, dest []float64) ([]float64, error)
	GetValuePtr(name string) ([]float64, error)
	GetValueAtIndices(name string, dest []float64, inds []int) ([]float64, error)
	SetValue(name string, src []float64) error
	SetValueAtIndices(name string, inds []int, src []float64) error

	// Grid information common to every kind.
	GetGridRank(grid int) (int, error)
	GetGridSize(grid int) (int, error)
	GetGridType(grid int) (string, error)

	// Uniform rectilinear grids.
	GetGridShape(grid int, shape []int) ([]int, error)
	GetGridSpacing(grid int, spacing []float64) ([]float64, error)
	GetGridOrigin(grid int, origin []float64) ([]float64, error)

	// Rectilinear and structured grids.
	GetGridX(grid int, x []float64) ([]float64, error)
	GetGridY(grid int, y []float64) ([]float64, error)
	GetGridZ(grid int, z []float64) ([]float64, error)

	// Unstructured grids.
	GetGridNodeCount(grid int) (int, error)
	GetGridEdgeCount(grid int) (int, error)
	GetGridFaceCount(grid int) (int, error)
	GetGridEdgeNodes(grid int, edgeNodes []int) ([]int, error)
	GetGridFaceEdges(grid int, faceEdges []int) ([]int, error)
	GetGridFaceNodes(grid int, faceNodes []int) ([]int, error)
	GetGridNodesPerFace(grid int, nodesPerFace []int) ([]int, error)
}
