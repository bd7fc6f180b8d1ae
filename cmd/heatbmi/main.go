package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/hashicorp/go-hclog"
	"github.com/san-kum/heatbmi/internal/automation"
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/config"
	"github.com/san-kum/heatbmi/internal/export"
	"github.com/san-kum/heatbmi/internal/heat"
	"github.com/san-kum/heatbmi/internal/metrics"
	"github.com/san-kum/heatbmi/internal/sim"
	"github.com/san-kum/heatbmi/internal/storage"
	"github.com/san-kum/heatbmi/internal/tui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type options struct {
	fs       afero.Fs
	dataDir  string
	logLevel string

	configFile string
	preset     string
	seed       int64
	dt         float64

	until    float64
	every    int
	save     bool
	svgPath  string
	jsonPath string
	watch    bool
	fps      int
	ensemble int
	jobs     int

	param    string
	paramMin float64
	paramMax float64
	points   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	opts := &options{fs: fs}

	rootCmd := &cobra.Command{
		Use:          "heatbmi",
		Short:        "2D heat equation behind the Basic Model Interface",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data", ".heatbmi", "data directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	modelFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&opts.configFile, "config", "", "config file path (yaml)")
		cmd.Flags().StringVar(&opts.preset, "preset", "", "use preset configuration")
		cmd.Flags().Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for the initial field")
		cmd.Flags().Float64Var(&opts.dt, "dt", 0, "override the time step (0 keeps the stable step)")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the model and save the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}
	modelFlags(runCmd)
	runCmd.Flags().Float64Var(&opts.until, "until", 10, "model time to run until")
	runCmd.Flags().IntVar(&opts.every, "every", 0, "record a snapshot every n steps (0 keeps first and last)")
	runCmd.Flags().BoolVar(&opts.save, "save", true, "save the run to the data directory")
	runCmd.Flags().StringVar(&opts.svgPath, "svg", "", "write a heatmap of the final field")
	runCmd.Flags().StringVar(&opts.jsonPath, "json", "", "export the run as json")
	runCmd.Flags().BoolVar(&opts.watch, "watch", false, "redraw the field while running")
	runCmd.Flags().IntVar(&opts.fps, "fps", 15, "frame rate for --watch")
	runCmd.Flags().IntVar(&opts.ensemble, "ensemble", 0, "run n seeds concurrently and report their metrics")
	runCmd.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "ensemble members to run at once")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "describe the model through its BMI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showInfo(cmd, opts)
		},
	}
	modelFlags(infoCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the model with an interactive heatmap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, opts)
		},
	}
	modelFlags(liveCmd)
	liveCmd.Flags().Float64Var(&opts.until, "until", 100, "model time to run until")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, opts)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(cmd, opts, args[0])
		},
	}
	showCmd.Flags().StringVar(&opts.svgPath, "svg", "", "write a heatmap of the final field")
	showCmd.Flags().StringVar(&opts.jsonPath, "json", "", "export the run as json")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(opts.fs, opts.dataDir)
			id, err := st.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := st.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSHAPE\tSPACING\tALPHA")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%dx%d\t%gx%g\t%g\n", name, p.Shape[0], p.Shape[1], p.Spacing[0], p.Spacing[1], p.Alpha)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file from a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := config.SaveFS(opts.fs, args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&opts.preset, "preset", "", "preset to start from")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}
	scenarioCmd.Flags().BoolVar(&opts.save, "save", false, "save each step as a run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one plate per value of a config parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}
	modelFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&opts.param, "param", "alpha", "parameter to sweep (alpha, spacing.0, spacing.1, origin.0, origin.1)")
	sweepCmd.Flags().Float64Var(&opts.paramMin, "min", 0.25, "first parameter value")
	sweepCmd.Flags().Float64Var(&opts.paramMax, "max", 1, "last parameter value")
	sweepCmd.Flags().IntVar(&opts.points, "points", 4, "number of parameter values")
	sweepCmd.Flags().Float64Var(&opts.until, "until", 10, "model time to run until")

	rootCmd.AddCommand(runCmd, infoCmd, liveCmd, listCmd, showCmd, deleteCmd, presetsCmd, initCmd, scenarioCmd, sweepCmd)
	return rootCmd
}

func newLogger(cmd *cobra.Command, opts *options) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "heatbmi",
		Level:  hclog.LevelFromString(opts.logLevel),
		Output: cmd.ErrOrStderr(),
	})
}

// loadConfig resolves the model config: defaults, then a preset, then a
// config file.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.preset != "" {
		cfg = config.GetPreset(opts.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", opts.preset, config.ListPresets())
		}
	}
	if opts.configFile != "" {
		loaded, err := config.LoadFS(opts.fs, opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func newModel(cfg *config.Config, seed int64, opts *options, logger hclog.Logger) (*heat.Model, error) {
	m := heat.New(heat.WithSeed(seed), heat.WithLogger(logger), heat.WithFS(opts.fs))
	if err := m.InitializeConfig(*cfg); err != nil {
		return nil, err
	}
	if opts.dt > 0 {
		if err := m.SetTimeStep(opts.dt); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// finalize releases model and reports a failure through errp unless the
// command already failed.
func finalize(model bmi.Model, logger hclog.Logger, errp *error) {
	ferr := model.Finalize()
	if ferr == nil {
		return
	}
	logger.Debug("finalize failed", "error", ferr)
	if *errp == nil {
		*errp = ferr
	}
}

func runSimulation(cmd *cobra.Command, opts *options) (err error) {
	logger := newLogger(cmd, opts)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.ensemble > 0 {
		return runEnsemble(cmd, opts, cfg, logger)
	}

	model, err := newModel(cfg, opts.seed, opts, logger)
	if err != nil {
		return err
	}
	defer finalize(model, logger, &err)

	s := sim.New(model)
	s.SetLogger(logger)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	if opts.watch {
		shape := []int{cfg.Shape[0], cfg.Shape[1]}
		r, err := tui.NewLiveRenderer(out, model.GetComponentName(), shape, opts.fps)
		if err != nil {
			return err
		}
		r.Start()
		defer r.Stop()
		s.AddObserver(r)
	}

	dt, err := model.GetTimeStep()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "running %s until t=%g (dt=%g)...\n", model.GetComponentName(), opts.until, dt)
	start := time.Now()

	result, err := s.Run(cmd.Context(), sim.Config{Until: opts.until, Every: opts.every, ValidateState: true})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "completed in %v\n", elapsed)
	fmt.Fprintf(out, "steps: %d\n", result.StepsTaken)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "warning: %v\n", e)
	}

	if opts.save {
		st := storage.New(opts.fs, opts.dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{
			Model:    model.GetComponentName(),
			Seed:     opts.seed,
			Config:   *cfg,
			TimeStep: dt,
			Until:    opts.until,
			Result:   result,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run id: %s\n", runID)
	}

	printMetrics(out, result.Metrics)

	if err := writeOutputs(opts, model.GetComponentName(), dt, opts.until, result); err != nil {
		return err
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, opts *options, cfg *config.Config, logger hclog.Logger) error {
	out := cmd.OutOrStdout()
	factory := func(seed int64) (bmi.Model, error) {
		return newModel(cfg, seed, opts, logger)
	}

	fmt.Fprintf(out, "running %d seeds from %d until t=%g...\n", opts.ensemble, opts.seed, opts.until)
	results, err := sim.NewEnsemble(factory, opts.ensemble, opts.seed).
		WithMetrics(metrics.Default).
		WithConcurrency(opts.jobs).
		Run(cmd.Context(), sim.Config{Until: opts.until, Every: opts.every})
	if err != nil {
		return err
	}

	names := make([]string, 0)
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\t"+strings.ToUpper(strings.Join(names, "\t")))
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d", opts.seed+int64(i), r.StepsTaken)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, opts *options, path string) error {
	out := cmd.OutOrStdout()
	scenario, err := automation.LoadScenario(opts.fs, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "scenario %s: %d steps\n", scenario.Name, len(scenario.Steps))
	if scenario.Description != "" {
		fmt.Fprintf(out, "%s\n", scenario.Description)
	}

	results, err := automation.NewRunner(newLogger(cmd, opts)).RunScenario(cmd.Context(), scenario)
	if err != nil {
		return err
	}

	var st *storage.Store
	if opts.save {
		st = storage.New(opts.fs, opts.dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	for i, r := range results {
		fmt.Fprintf(out, "\n[%d] %s: %dx%d plate, dt=%g, %d steps to t=%g\n",
			i+1, r.Step.Name, r.Config.Shape[0], r.Config.Shape[1], r.TimeStep, r.Result.StepsTaken, r.Step.Until)
		if st != nil {
			runID, err := st.Save(storage.Run{
				Model:    heat.ComponentName,
				Seed:     r.Step.Seed,
				Config:   r.Config,
				TimeStep: r.TimeStep,
				Until:    r.Step.Until,
				Result:   r.Result,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run id: %s\n", runID)
		}
		printMetrics(out, r.Result.Metrics)
	}
	return nil
}

func runSweep(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	results, err := automation.NewRunner(newLogger(cmd, opts)).RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      *cfg,
		ParamName: opts.param,
		ParamMin:  opts.paramMin,
		ParamMax:  opts.paramMax,
		NumSteps:  opts.points,
		Until:     opts.until,
		Seed:      opts.seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if err := automation.WriteSweep(w, opts.param, results); err != nil {
		return err
	}
	return w.Flush()
}

func writeOutputs(opts *options, model string, dt, until float64, result *sim.Result) error {
	if opts.svgPath != "" {
		if len(result.Shape) != 2 {
			return fmt.Errorf("cannot draw a rank %d grid", len(result.Shape))
		}
		svg, err := export.FieldToSVG(result.Final(), result.Shape[0], result.Shape[1], 12)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(opts.fs, opts.svgPath, []byte(svg), 0644); err != nil {
			return err
		}
	}
	if opts.jsonPath != "" {
		if err := storage.ExportJSON(opts.fs, opts.jsonPath, model, dt, until, result); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(out io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %.6f\n", name, m[name])
	}
}

func showInfo(cmd *cobra.Command, opts *options) (err error) {
	logger := newLogger(cmd, opts)
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	model, err := newModel(cfg, opts.seed, opts, logger)
	if err != nil {
		return err
	}
	defer finalize(model, logger, &err)

	return describe(cmd.OutOrStdout(), model)
}

// describe prints what a BMI model reports about itself.
func describe(out io.Writer, model bmi.Model) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "component:\t%s\n", model.GetComponentName())

	start, err := model.GetStartTime()
	if err != nil {
		return err
	}
	end, _ := model.GetEndTime()
	step, _ := model.GetTimeStep()
	units, _ := model.GetTimeUnits()
	fmt.Fprintf(w, "time:\t%g .. %g %s, step %g\n", start, end, units, step)

	inputs, err := model.GetInputVarNames()
	if err != nil {
		return err
	}
	outputs, _ := model.GetOutputVarNames()
	fmt.Fprintf(w, "inputs:\t%s\n", strings.Join(inputs, ", "))
	fmt.Fprintf(w, "outputs:\t%s\n", strings.Join(outputs, ", "))

	grids := map[int]bool{}
	vars := map[string]bool{}
	for _, name := range append(append([]string(nil), inputs...), outputs...) {
		if vars[name] {
			continue
		}
		vars[name] = true
		grid, err := model.GetVarGrid(name)
		if err != nil {
			return err
		}
		typ, _ := model.GetVarType(name)
		units, _ := model.GetVarUnits(name)
		nbytes, _ := model.GetVarNBytes(name)
		loc, _ := model.GetVarLocation(name)
		fmt.Fprintf(w, "var %s:\tgrid %d, %s, %s, %d bytes, on %s\n", name, grid, typ, units, nbytes, loc)
		grids[grid] = true
	}

	ids := make([]int, 0, len(grids))
	for id := range grids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		typ, err := model.GetGridType(id)
		if err != nil {
			return err
		}
		rank, _ := model.GetGridRank(id)
		size, _ := model.GetGridSize(id)
		fmt.Fprintf(w, "grid %d:\t%s, rank %d, %d nodes\n", id, typ, rank, size)

		if shape, err := model.GetGridShape(id, make([]int, rank)); err == nil {
			fmt.Fprintf(w, "  shape:\t%v\n", shape)
		}
		if spacing, err := model.GetGridSpacing(id, make([]float64, rank)); err == nil {
			fmt.Fprintf(w, "  spacing:\t%v\n", spacing)
		}
		if origin, err := model.GetGridOrigin(id, make([]float64, rank)); err == nil {
			fmt.Fprintf(w, "  origin:\t%v\n", origin)
		}
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, opts *options) (err error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	// The alternate screen owns the terminal, so logs are dropped.
	logger := hclog.NewNullLogger()
	model, err := newModel(cfg, opts.seed, opts, logger)
	if err != nil {
		return err
	}
	defer finalize(model, logger, &err)

	return tui.RunInteractive(model, opts.until)
}

func listRuns(cmd *cobra.Command, opts *options) error {
	out := cmd.OutOrStdout()
	st := storage.New(opts.fs, opts.dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSHAPE\tUNTIL\tDT\tSTEPS\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%v\t%g\t%g\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Shape,
			run.Until,
			run.TimeStep,
			run.Steps,
			run.Seed,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, opts *options, prefix string) error {
	out := cmd.OutOrStdout()
	st := storage.New(opts.fs, opts.dataDir)

	runID, err := st.Resolve(prefix)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fields, times, err := st.LoadFields(runID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "model: %s (%s)\n", meta.Model, meta.Variable)
	fmt.Fprintf(out, "config: %s\n", meta.Config.String())
	fmt.Fprintf(out, "snapshots: %d, t=%g..%g\n\n", len(fields), times[0], times[len(times)-1])

	final := fields[len(fields)-1]
	if len(meta.Shape) == 2 {
		rows, cols := meta.Shape[0], meta.Shape[1]
		mid := rows / 2
		profile := append([]float64(nil), final[mid*cols:(mid+1)*cols]...)
		fmt.Fprintln(out, asciigraph.Plot(profile,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("row %d at t=%g", mid, times[len(times)-1])),
		))
		fmt.Fprintln(out)
	}

	if len(fields) > 1 {
		means := make([]float64, len(fields))
		for i, f := range fields {
			var sum float64
			for _, v := range f {
				sum += v
			}
			means[i] = sum / float64(len(f))
		}
		fmt.Fprintln(out, asciigraph.Plot(means,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("mean temperature per snapshot"),
		))
		fmt.Fprintln(out)
	}

	printMetrics(out, meta.Metrics)

	result := &sim.Result{
		Variable:   meta.Variable,
		Shape:      meta.Shape,
		Fields:     fields,
		Times:      times,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}
	return writeOutputs(opts, meta.Model, meta.TimeStep, meta.Until, result)
}
