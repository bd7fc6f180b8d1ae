package clock

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/grid"
)

func setup(t *testing.T, alpha float64) (*Clock, *grid.State) {
	t.Helper()
	geom := grid.Geometry{Shape: [2]int{5, 6}, Spacing: [2]float64{1, 1}}
	g, err := grid.New(geom)
	if err != nil {
		t.Fatal(err)
	}
	g.Field()[g.Index(2, 2)] = 1

	c := New()
	if err := c.Initialize(geom, alpha); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, g
}

func TestInitializeDefaults(t *testing.T) {
	c, _ := setup(t, 1)

	if c.Phase() != Ready {
		t.Errorf("expected phase ready, got %v", c.Phase())
	}
	if c.Time() != 0 {
		t.Errorf("expected time 0, got %f", c.Time())
	}
	if c.Step() != 0.25 {
		t.Errorf("expected step 0.25, got %f", c.Step())
	}
	if c.End() != math.MaxFloat64 {
		t.Errorf("expected unbounded end time, got %g", c.End())
	}
}

func TestInitializeRejectsBadAlpha(t *testing.T) {
	geom := grid.Geometry{Shape: [2]int{3, 3}, Spacing: [2]float64{1, 1}}
	for _, alpha := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		err := New().Initialize(geom, alpha)
		if !errors.Is(err, bmi.ErrInvalidArgument) {
			t.Errorf("alpha %g: expected ErrInvalidArgument, got %v", alpha, err)
		}
	}
}

func TestAdvance(t *testing.T) {
	c, g := setup(t, 1)
	ref := g.Field()

	for i := 0; i < 10; i++ {
		if err := c.Advance(g); err != nil {
			t.Fatal(err)
		}
		want := float64(i+1) * 0.25
		if math.Abs(c.Time()-want) > 1e-12 {
			t.Errorf("step %d: expected time %f, got %f", i, want, c.Time())
		}
	}

	if &ref[0] != &g.Field()[0] {
		t.Error("advance must keep the field identity")
	}
	if g.At(2, 2) >= 1 {
		t.Errorf("expected the peak to decay, got %f", g.At(2, 2))
	}
}

func TestAdvanceFraction(t *testing.T) {
	c, g := setup(t, 1)

	if err := c.AdvanceFraction(g, 0.5); err != nil {
		t.Fatal(err)
	}
	if c.Time() != 0.125 {
		t.Errorf("expected time 0.125, got %f", c.Time())
	}
	if c.Step() != 0.25 {
		t.Errorf("expected step restored to 0.25, got %f", c.Step())
	}
}

func TestAdvanceFractionMatchesSmallerStep(t *testing.T) {
	a, ga := setup(t, 1)
	b, gb := setup(t, 1)

	if err := a.AdvanceFraction(ga, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := b.SetStep(0.125); err != nil {
		t.Fatal(err)
	}
	if err := b.Advance(gb); err != nil {
		t.Fatal(err)
	}

	for i := range ga.Field() {
		if ga.Field()[i] != gb.Field()[i] {
			t.Fatalf("node %d: fractional %f vs explicit %f", i, ga.Field()[i], gb.Field()[i])
		}
	}
}

func TestAdvanceFractionRange(t *testing.T) {
	c, g := setup(t, 1)

	for _, frac := range []float64{-0.1, 1.5, math.NaN()} {
		err := c.AdvanceFraction(g, frac)
		if !errors.Is(err, bmi.ErrInvalidArgument) {
			t.Errorf("frac %g: expected ErrInvalidArgument, got %v", frac, err)
		}
	}
	if c.Time() != 0 || c.Step() != 0.25 {
		t.Errorf("rejected fractions must not change the clock, got time %f step %f", c.Time(), c.Step())
	}
}

func TestAdvanceUntil(t *testing.T) {
	targets := []float64{10.1, 0.3, 1.0, 7.77}

	for _, target := range targets {
		c, g := setup(t, 1)
		if err := c.AdvanceUntil(g, target); err != nil {
			t.Fatal(err)
		}
		if math.Abs(c.Time()-target) > 1e-9 {
			t.Errorf("expected time %f, got %f", target, c.Time())
		}
		if c.Step() != 0.25 {
			t.Errorf("expected step to stay 0.25, got %f", c.Step())
		}
	}
}

func TestAdvanceUntilRejectsPast(t *testing.T) {
	c, g := setup(t, 1)
	if err := c.AdvanceUntil(g, 1); err != nil {
		t.Fatal(err)
	}

	err := c.AdvanceUntil(g, 0.5)
	if !errors.Is(err, bmi.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	if err := c.AdvanceUntil(g, 1); err != nil {
		t.Errorf("advancing to the current time should be a no-op, got %v", err)
	}
}

func TestSetStep(t *testing.T) {
	c, _ := setup(t, 1)

	if err := c.SetStep(0.1); err != nil {
		t.Fatal(err)
	}
	if c.Step() != 0.1 {
		t.Errorf("expected step 0.1, got %f", c.Step())
	}
	if err := c.SetStep(0); !errors.Is(err, bmi.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	geom := grid.Geometry{Shape: [2]int{3, 3}, Spacing: [2]float64{1, 1}}
	g, _ := grid.New(geom)
	c := New()

	if err := c.Advance(g); !errors.Is(err, bmi.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}

	if err := c.Initialize(geom, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	if c.Phase() != Finalized {
		t.Errorf("expected finalized, got %v", c.Phase())
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"advance", func() error { return c.Advance(g) }},
		{"fraction", func() error { return c.AdvanceFraction(g, 0.5) }},
		{"until", func() error { return c.AdvanceUntil(g, 2) }},
		{"set step", func() error { return c.SetStep(1) }},
		{"finalize twice", c.Finalize},
		{"reinitialize", func() error { return c.Initialize(geom, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, bmi.ErrUseAfterFinalize) {
				t.Errorf("expected ErrUseAfterFinalize, got %v", err)
			}
		})
	}
}

func TestAdvanceShapeMismatch(t *testing.T) {
	c, _ := setup(t, 1)
	other, _ := grid.New(grid.Geometry{Shape: [2]int{3, 3}, Spacing: [2]float64{1, 1}})

	if err := c.Advance(other); !errors.Is(err, bmi.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}
