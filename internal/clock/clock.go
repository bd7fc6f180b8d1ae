package clock

import (
	"math"

	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/grid"
	"github.com/san-kum/heatbmi/internal/stencil"
)

// Phase is the lifecycle position of a Clock.
type Phase int

const (
	Uninitialized Phase = iota
	Ready
	Finalized
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case Finalized:
		return "finalized"
	default:
		return "uninitialized"
	}
}

const (
	DefaultStartTime = 0.0
	TimeUnits        = "s"
)

// EndTime is the sentinel end of an unbounded run.
var EndTime = math.MaxFloat64

// Clock owns simulation time and the active time step, and advances a grid
// by running the stencil solver on its field.
type Clock struct {
	phase   Phase
	time    float64
	step    float64
	alpha   float64
	spacing [2]float64
	shape   [2]int
	solver  *stencil.Solver
}

func New() *Clock {
	return &Clock{}
}

// Initialize resets time to the start time and derives the stable default
// step from geom and alpha. A finalized clock cannot be reinitialized.
func (c *Clock) Initialize(geom grid.Geometry, alpha float64) error {
	if c.phase == Finalized {
		return bmi.Wrap("initialize", "", bmi.ErrUseAfterFinalize)
	}
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return bmi.Errorf("initialize", "alpha", bmi.ErrInvalidArgument, "must be positive, got %g", alpha)
	}
	if err := geom.Validate(); err != nil {
		return bmi.Errorf("initialize", "", bmi.ErrInvalidArgument, "%v", err)
	}

	c.time = DefaultStartTime
	c.alpha = alpha
	c.spacing = geom.Spacing
	c.shape = geom.Shape
	c.step = stencil.StableStep(geom.Spacing, alpha)
	c.solver = stencil.NewSolver(geom.Size())
	c.phase = Ready
	return nil
}

func (c *Clock) Phase() Phase   { return c.phase }
func (c *Clock) Alpha() float64 { return c.alpha }
func (c *Clock) Time() float64  { return c.time }
func (c *Clock) Step() float64  { return c.step }
func (c *Clock) Start() float64 { return DefaultStartTime }
func (c *Clock) End() float64   { return EndTime }

// Check reports whether the clock is usable, naming op in the error.
func (c *Clock) Check(op string) error {
	switch c.phase {
	case Ready:
		return nil
	case Finalized:
		return bmi.Wrap(op, "", bmi.ErrUseAfterFinalize)
	default:
		return bmi.Wrap(op, "", bmi.ErrNotInitialized)
	}
}

// SetStep replaces the active time step.
func (c *Clock) SetStep(dt float64) error {
	if err := c.Check("set_time_step"); err != nil {
		return err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return bmi.Errorf("set_time_step", "", bmi.ErrInvalidArgument, "step must be positive, got %g", dt)
	}
	c.step = dt
	return nil
}

// Advance moves g forward one step and time by the active step.
func (c *Clock) Advance(g *grid.State) error {
	if err := c.Check("update"); err != nil {
		return err
	}
	if g.Shape() != c.shape {
		return bmi.Errorf("update", "", bmi.ErrSizeMismatch, "grid shape %v, clock shape %v", g.Shape(), c.shape)
	}
	c.solver.Advance(g.Field(), c.shape, c.spacing, c.alpha, c.step)
	c.time += c.step
	return nil
}

// AdvanceFraction advances by frac of the active step. The step is scaled
// for the duration of the call and restored afterwards.
func (c *Clock) AdvanceFraction(g *grid.State, frac float64) error {
	if err := c.Check("update_frac"); err != nil {
		return err
	}
	if !(frac >= 0 && frac <= 1) {
		return bmi.Errorf("update_frac", "", bmi.ErrInvalidArgument, "fraction must be in [0, 1], got %g", frac)
	}

	step := c.step
	defer func() { c.step = step }()
	c.step = frac * step
	return c.Advance(g)
}

// AdvanceUntil takes whole steps towards target and then one fractional
// step for the remainder. Time lands exactly on target.
func (c *Clock) AdvanceUntil(g *grid.State, target float64) error {
	if err := c.Check("update_until"); err != nil {
		return err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) || target < c.time {
		return bmi.Errorf("update_until", "", bmi.ErrInvalidArgument, "target %g must be finite and not before current time %g", target, c.time)
	}

	n := math.Floor((target - c.time) / c.step)
	for k := 0.0; k < n; k++ {
		if err := c.Advance(g); err != nil {
			return err
		}
	}

	frac := (target - c.time) / c.step
	frac = math.Max(0, math.Min(1, frac))
	if frac > 0 {
		if err := c.AdvanceFraction(g, frac); err != nil {
			return err
		}
	}
	c.time = target
	return nil
}

// Finalize ends the clock's life. A second call fails.
func (c *Clock) Finalize() error {
	if err := c.Check("finalize"); err != nil {
		return err
	}
	c.solver = nil
	c.phase = Finalized
	return nil
}
