// Package automation runs scripted scenarios and parameter sweeps of the
// heat model.
package automation

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/config"
	"github.com/san-kum/heatbmi/internal/heat"
	"github.com/san-kum/heatbmi/internal/metrics"
	"github.com/san-kum/heatbmi/internal/sim"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset, config overrides on top of it, and how
// far to run.
type ScenarioStep struct {
	Name   string         `yaml:"name"`
	Preset string         `yaml:"preset"`
	Config map[string]any `yaml:"config"`
	Until  float64        `yaml:"until"`
	Every  int            `yaml:"every"`
	Seed   int64          `yaml:"seed"`
}

// StepResult pairs a finished step with the config it ran.
type StepResult struct {
	Step     ScenarioStep
	Config   config.Config
	TimeStep float64
	Result   *sim.Result
}

// LoadScenario reads a scenario from a YAML file on fs.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Resolve returns the config a step runs with.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	base := config.DefaultConfig()
	if s.Preset != "" {
		if base = config.GetPreset(s.Preset); base == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	return base.Overlay(s.Config)
}

// Runner executes scenarios and sweeps, logging progress.
type Runner struct {
	log      hclog.Logger
	newModel func(cfg config.Config, seed int64) (bmi.Model, error)
}

func NewRunner(logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &Runner{log: logger.Named("automation")}
	r.newModel = r.heatModel
	return r
}

func (r *Runner) heatModel(cfg config.Config, seed int64) (bmi.Model, error) {
	m := heat.New(heat.WithSeed(seed), heat.WithLogger(r.log))
	if err := m.InitializeConfig(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// RunScenario executes every step in order. Results of the steps completed
// before a failure are returned with the error.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		r.log.Info("running step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", step.Name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		res, dt, err := r.run(ctx, cfg, step.Seed, sim.Config{Until: step.Until, Every: step.Every})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Config: *cfg, TimeStep: dt, Result: res})
	}

	return results, nil
}

// ParameterSweep runs the same plate once per value of one config key.
type ParameterSweep struct {
	Base      config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Until     float64
	Seed      int64
}

// SweepResult holds the metrics of one sweep point.
type SweepResult struct {
	ParamValue float64
	TimeStep   float64
	Steps      int
	Metrics    map[string]float64
}

// RunSweep executes a parameter sweep. ParamName is alpha, or one axis of
// spacing or origin written as spacing.0 or origin.1.
func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg, err := setParam(sweep.Base, sweep.ParamName, paramVal)
		if err != nil {
			return nil, err
		}

		res, dt, err := r.run(ctx, cfg, sweep.Seed, sim.Config{Until: sweep.Until})
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			TimeStep:   dt,
			Steps:      res.StepsTaken,
			Metrics:    res.Metrics,
		})

		r.log.Info("sweep point done", "index", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

func setParam(base config.Config, name string, val float64) (*config.Config, error) {
	switch name {
	case "alpha":
		return base.Overlay(map[string]any{"alpha": val})
	case "spacing.0", "spacing.1", "origin.0", "origin.1":
		key, axis := name[:len(name)-2], int(name[len(name)-1]-'0')
		pair := base.Spacing
		if key == "origin" {
			pair = base.Origin
		}
		pair[axis] = val
		return base.Overlay(map[string]any{key: []float64{pair[0], pair[1]}})
	}
	return nil, fmt.Errorf("cannot sweep %q (want alpha, spacing.0, spacing.1, origin.0 or origin.1)", name)
}

func (r *Runner) run(ctx context.Context, cfg *config.Config, seed int64, simCfg sim.Config) (res *sim.Result, dt float64, err error) {
	model, err := r.newModel(*cfg, seed)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if ferr := model.Finalize(); ferr != nil && err == nil {
			res, dt, err = nil, 0, ferr
		}
	}()

	dt, err = model.GetTimeStep()
	if err != nil {
		return nil, 0, err
	}

	s := sim.New(model)
	s.SetLogger(r.log)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	res, err = s.Run(ctx, simCfg)
	return res, dt, err
}

// WriteSweep prints sweep results as a table with one column per metric.
func WriteSweep(w io.Writer, param string, results []SweepResult) error {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := fmt.Fprintf(w, "%s\tdt\tsteps", param); err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)

	for _, r := range results {
		fmt.Fprintf(w, "%g\t%g\t%d", r.ParamValue, r.TimeStep, r.Steps)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return nil
}
