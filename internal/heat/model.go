// Package heat implements the Basic Model Interface for a 2D plate whose
// temperature diffuses under the heat equation.
//
// The plate is a single uniform rectilinear grid (id 0) carrying one
// variable, plate_surface__temperature, in kelvin. Its border rows and
// columns are held fixed while the interior evolves.
package heat

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/hashicorp/go-hclog"
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/clock"
	"github.com/san-kum/heatbmi/internal/config"
	"github.com/san-kum/heatbmi/internal/grid"
	"github.com/san-kum/heatbmi/internal/registry"
	"github.com/san-kum/heatbmi/internal/stencil"
	"github.com/spf13/afero"
)

const (
	ComponentName   = "The 2D Heat Equation"
	TemperatureName = "plate_surface__temperature"
	TemperatureUnit = "K"
	PlateGrid       = 0

	valueType     = "float64"
	valueItemSize = 8
)

var _ bmi.Model = (*Model)(nil)

// Model is the heat plate behind the BMI contract.
type Model struct {
	fs  afero.Fs
	log hclog.Logger
	rng *rand.Rand

	cfg   config.Config
	clock *clock.Clock
	reg   *registry.Registry
	grids map[int]*grid.State
}

// New returns a model that is ready for Initialize.
func New(opts ...Option) *Model {
	m := &Model{
		fs:    afero.NewOsFs(),
		log:   hclog.NewNullLogger(),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

// Initialize builds the model from the YAML file at configFile, or from the
// defaults when configFile is empty.
func (m *Model) Initialize(configFile string) error {
	if configFile == "" {
		return m.InitializeConfig(*config.DefaultConfig())
	}
	cfg, err := config.LoadFS(m.fs, configFile)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", configFile, err)
	}
	return m.InitializeConfig(*cfg)
}

// InitializeReader builds the model from a YAML document read from r.
func (m *Model) InitializeReader(r io.Reader) error {
	cfg, err := config.Decode(r)
	if err != nil {
		return err
	}
	return m.InitializeConfig(*cfg)
}

// InitializeConfig builds the model from cfg. On failure the model is left
// as it was before the call.
func (m *Model) InitializeConfig(cfg config.Config) error {
	if m.clock.Phase() == clock.Finalized {
		return bmi.Wrap("initialize", "", bmi.ErrUseAfterFinalize)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plate, err := grid.New(cfg.Geometry())
	if err != nil {
		return bmi.Errorf("initialize", "", bmi.ErrMalformedValue, "%v", err)
	}
	plate.Fill(m.rng.Float64)

	c := clock.New()
	if err := c.Initialize(cfg.Geometry(), cfg.Alpha); err != nil {
		return err
	}

	reg := registry.New()
	if err := reg.AddGrid(PlateGrid, bmi.GridUniform); err != nil {
		return err
	}
	err = reg.AddVariable(registry.Variable{
		Name:     TemperatureName,
		Units:    TemperatureUnit,
		Location: bmi.LocationNode,
		Grid:     PlateGrid,
		Type:     valueType,
		ItemSize: valueItemSize,
		Role:     registry.RoleInput | registry.RoleOutput,
	})
	if err != nil {
		return err
	}
	reg.Freeze()

	m.cfg = cfg
	m.clock = c
	m.reg = reg
	m.grids = map[int]*grid.State{PlateGrid: plate}

	m.log.Debug("model initialized", "config", cfg.String(), "time_step", c.Step())
	return nil
}

func (m *Model) Update() error {
	plate, err := m.plate("update")
	if err != nil {
		return err
	}
	return m.clock.Advance(plate)
}

// UpdateFrac advances by frac of a time step; frac must lie in [0, 1].
func (m *Model) UpdateFrac(frac float64) error {
	plate, err := m.plate("update_frac")
	if err != nil {
		return err
	}
	return m.clock.AdvanceFraction(plate, frac)
}

// UpdateUntil advances to time then, which must not precede the current time.
func (m *Model) UpdateUntil(then float64) error {
	plate, err := m.plate("update_until")
	if err != nil {
		return err
	}
	m.log.Trace("updating until", "from", m.clock.Time(), "until", then, "time_step", m.clock.Step())
	return m.clock.AdvanceUntil(plate, then)
}

// Finalize releases the plate. Every later call, Finalize included, fails
// with ErrUseAfterFinalize.
func (m *Model) Finalize() error {
	if err := m.clock.Finalize(); err != nil {
		return err
	}
	for _, g := range m.grids {
		g.Release()
	}
	m.grids = nil
	m.log.Debug("model finalized")
	return nil
}

// SetTimeStep overrides the stability-derived time step. A step above
// min(spacing)²/(4*alpha) is accepted but logged at Warn: the explicit scheme
// is unstable there.
func (m *Model) SetTimeStep(dt float64) error {
	if err := m.clock.SetStep(dt); err != nil {
		return err
	}
	if limit := stencil.StableStep(m.cfg.Spacing, m.cfg.Alpha); dt > limit {
		m.log.Warn("time step exceeds the stability limit", "time_step", dt, "limit", limit)
	}
	return nil
}

// Config returns the configuration the model was initialized with.
func (m *Model) Config() (config.Config, error) {
	if err := m.clock.Check("config"); err != nil {
		return config.Config{}, err
	}
	return m.cfg, nil
}

// GetComponentName is available in every phase.
func (m *Model) GetComponentName() string { return ComponentName }

func (m *Model) GetInputItemCount() (int, error) {
	names, err := m.GetInputVarNames()
	return len(names), err
}

func (m *Model) GetOutputItemCount() (int, error) {
	names, err := m.GetOutputVarNames()
	return len(names), err
}

func (m *Model) GetInputVarNames() ([]string, error) {
	if err := m.clock.Check("get_input_var_names"); err != nil {
		return nil, err
	}
	return m.reg.InputNames(), nil
}

func (m *Model) GetOutputVarNames() ([]string, error) {
	if err := m.clock.Check("get_output_var_names"); err != nil {
		return nil, err
	}
	return m.reg.OutputNames(), nil
}

func (m *Model) GetCurrentTime() (float64, error) {
	if err := m.clock.Check("get_current_time"); err != nil {
		return 0, err
	}
	return m.clock.Time(), nil
}

func (m *Model) GetStartTime() (float64, error) {
	if err := m.clock.Check("get_start_time"); err != nil {
		return 0, err
	}
	return m.clock.Start(), nil
}

func (m *Model) GetEndTime() (float64, error) {
	if err := m.clock.Check("get_end_time"); err != nil {
		return 0, err
	}
	return m.clock.End(), nil
}

func (m *Model) GetTimeUnits() (string, error) {
	if err := m.clock.Check("get_time_units"); err != nil {
		return "", err
	}
	return clock.TimeUnits, nil
}

func (m *Model) GetTimeStep() (float64, error) {
	if err := m.clock.Check("get_time_step"); err != nil {
		return 0, err
	}
	return m.clock.Step(), nil
}

// plate returns the grid that update calls advance.
func (m *Model) plate(op string) (*grid.State, error) {
	if err := m.clock.Check(op); err != nil {
		return nil, err
	}
	return m.grids[PlateGrid], nil
}
