// Package sim drives an initialized BMI model forward in time while metrics
// and observers watch one of its output variables.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-hclog"
	"github.com/san-kum/heatbmi/internal/bmi"
)

type Simulator struct {
	model     bmi.Model
	metrics   []Metric
	observers []Observer
	log       hclog.Logger
}

func New(model bmi.Model) *Simulator {
	return &Simulator{
		model:     model,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       hclog.NewNullLogger(),
	}
}

func (s *Simulator) AddMetric(m Metric)            { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)        { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(logger hclog.Logger) { s.log = logger.Named("sim") }

// Run advances the model to cfg.Until. Whole steps are taken with Update and
// the last partial step with UpdateUntil, so the run ends exactly on Until.
// Metrics and observers see the starting field and the field after every
// step.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	name, shape, size, err := s.layout(cfg)
	if err != nil {
		return nil, err
	}
	t, err := s.model.GetCurrentTime()
	if err != nil {
		return nil, err
	}
	if err := s.validateConfig(cfg, t); err != nil {
		return nil, err
	}

	result := &Result{
		Variable: name,
		Shape:    shape,
		Fields:   make([]Field, 0),
		Times:    make([]float64, 0),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := make(Field, size)
	if _, err := s.model.GetValue(name, x); err != nil {
		return nil, err
	}
	s.observe(x, t)
	result.Fields = append(result.Fields, x.Clone())
	result.Times = append(result.Times, t)

	s.log.Debug("run starting", "variable", name, "from", t, "until", cfg.Until)

	for t < cfg.Until {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.step(t, cfg.Until); err != nil {
			return result, err
		}
		if t, err = s.model.GetCurrentTime(); err != nil {
			return result, err
		}
		if _, err := s.model.GetValue(name, x); err != nil {
			return result, err
		}
		result.StepsTaken++

		if cfg.ValidateState && !x.IsValid() {
			result.Errors = append(result.Errors, SimError{Time: t, Step: result.StepsTaken, Message: "invalid state (NaN/Inf)"})
			break
		}

		s.observe(x, t)
		if cfg.Every > 0 && result.StepsTaken%cfg.Every == 0 {
			result.Fields = append(result.Fields, x.Clone())
			result.Times = append(result.Times, t)
		}
	}

	if last := result.Times[len(result.Times)-1]; last != t {
		result.Fields = append(result.Fields, x.Clone())
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.log.Debug("run finished", "steps", result.StepsTaken, "time", t)
	return result, nil
}

// RunWithCallback advances the model to cfg.Until, calling callback with the
// field before each step. The run stops early when callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Field, float64) bool) error {
	name, _, size, err := s.layout(cfg)
	if err != nil {
		return err
	}
	t, err := s.model.GetCurrentTime()
	if err != nil {
		return err
	}
	if err := s.validateConfig(cfg, t); err != nil {
		return err
	}

	x := make(Field, size)
	for t < cfg.Until {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := s.model.GetValue(name, x); err != nil {
			return err
		}
		if cfg.ValidateState && !x.IsValid() {
			return fmt.Errorf("invalid state at t=%.4f", t)
		}
		if !callback(x, t) {
			return nil
		}
		if err := s.step(t, cfg.Until); err != nil {
			return err
		}
		if t, err = s.model.GetCurrentTime(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Simulator) step(t, until float64) error {
	dt, err := s.model.GetTimeStep()
	if err != nil {
		return err
	}
	if t+dt <= until {
		return s.model.Update()
	}
	return s.model.UpdateUntil(until)
}

func (s *Simulator) observe(x Field, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
}

func (s *Simulator) validateConfig(cfg Config, now float64) error {
	if math.IsNaN(cfg.Until) || math.IsInf(cfg.Until, 0) {
		return fmt.Errorf("until must be finite, got %f", cfg.Until)
	}
	if cfg.Until < now {
		return fmt.Errorf("until %f precedes the current time %f", cfg.Until, now)
	}
	if cfg.Every < 0 {
		return fmt.Errorf("every must not be negative, got %d", cfg.Every)
	}
	return nil
}

// layout resolves the followed variable and the shape of its grid.
func (s *Simulator) layout(cfg Config) (string, []int, int, error) {
	name := cfg.Variable
	if name == "" {
		names, err := s.model.GetOutputVarNames()
		if err != nil {
			return "", nil, 0, err
		}
		if len(names) == 0 {
			return "", nil, 0, fmt.Errorf("model %q has no output variables", s.model.GetComponentName())
		}
		name = names[0]
	}

	grid, err := s.model.GetVarGrid(name)
	if err != nil {
		return "", nil, 0, err
	}
	size, err := s.model.GetGridSize(grid)
	if err != nil {
		return "", nil, 0, err
	}
	rank, err := s.model.GetGridRank(grid)
	if err != nil {
		return "", nil, 0, err
	}
	shape, err := s.model.GetGridShape(grid, make([]int, rank))
	if bmi.KindOf(err) == bmi.KindUnsupported {
		shape, err = []int{size}, nil
	}
	if err != nil {
		return "", nil, 0, err
	}
	return name, shape, size, nil
}
