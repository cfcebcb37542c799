package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/clothsim/internal/analysis"
	"github.com/san-kum/clothsim/internal/automation"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
	"github.com/san-kum/clothsim/internal/export"
	"github.com/san-kum/clothsim/internal/gui"
	"github.com/san-kum/clothsim/internal/optim"
	"github.com/san-kum/clothsim/internal/sim"
	"github.com/san-kum/clothsim/internal/storage"
	"github.com/san-kum/clothsim/internal/stream"
	"github.com/san-kum/clothsim/internal/viz"
)

var (
	dataDir    string
	envFile    string
	configFile string
	dt         float64
	duration   float64
	overrides  []string
	noSave     bool
	// analysis
	node      int
	frame     int
	viewName  string
	outPath   string
	svgPath   string
	braille   bool
	metricArg string
	// sweeps
	paramName string
	paramMin  float64
	paramMax  float64
	numSteps  int
	workers   int
	perturb   float64
	trials    int
	seed      int64
	grid      []string
	// serving
	addr        string
	broadcastHz float64
)

// main registers the commands and runs the root command. With no
// subcommand it opens the graphical preset picker.
func main() {
	rootCmd := &cobra.Command{
		Use:   "clothsim",
		Short: "mass-spring cloth simulation lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
			if !cmd.Flags().Changed("data") {
				dataDir = config.DataDir()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return gui.RunInteractive()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene offline and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "list metrics and cursor drivers",
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			fmt.Printf("metrics: %s\n", strings.Join(reg.ListMetrics(), ", "))
			fmt.Printf("drivers: %s\n", strings.Join(reg.ListDrivers(), ", "))
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&node, "node", -1, "node to plot (default: centre)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run frames to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run frames to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one frame of the mesh to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&frame, "frame", -1, "frame index (negative counts from the end)")
	exportSVGCmd.Flags().StringVar(&viewName, "view", "front", "projection: top, front or side")
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().BoolVar(&braille, "braille", false, "render the terminal braille view instead of a flat projection")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "chart energy, device force and node height to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().IntVar(&node, "node", -1, "node to chart (default: centre)")
	exportPNGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.png)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary statistics and frequency analysis of one node",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&node, "node", -1, "node to analyse (default: centre)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "height against vertical velocity for one node",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&node, "node", -1, "node to plot (default: centre)")
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the trajectory to an SVG file")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark tick throughput",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep one parameter across a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&paramName, "param", "springs.structural.ks", "dotted parameter name")
	sweepCmd.Flags().Float64Var(&paramMin, "min", 0.5, "minimum value")
	sweepCmd.Flags().Float64Var(&paramMax, "max", 5, "maximum value")
	sweepCmd.Flags().IntVar(&numSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "perturb one parameter randomly and count unstable runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	sceneFlags(mcCmd)
	mcCmd.Flags().StringVar(&paramName, "param", "damping", "dotted parameter name")
	mcCmd.Flags().Float64Var(&perturb, "perturb", 0.01, "uniform perturbation half-width")
	mcCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	mcCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0: time based)")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search parameters to minimise a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metricArg, "metric", "max_stretch", "metric to minimise")
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "name=v1,v2,... (repeatable)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene in real time in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "run a scene in real time and stream it over websockets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serve,
	}
	sceneFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().Float64Var(&broadcastHz, "hz", 0, "broadcast rate (default from config)")

	guiCmd := &cobra.Command{
		Use:   "gui [preset]",
		Short: "run a scene in the raylib viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && configFile == "" {
				return gui.RunInteractive()
			}
			cfg, err := loadScene(cmd, args)
			if err != nil {
				return err
			}
			return gui.Run(cfg)
		},
	}
	sceneFlags(guiCmd)

	rootCmd.AddCommand(runCmd, listCmd, presetsCmd, metricsCmd, plotCmd, exportCmd, exportCSVCmd,
		exportJSONCmd, exportSVGCmd, exportPNGCmd, analyzeCmd, phaseCmd, benchCmd, scenarioCmd,
		sweepCmd, mcCmd, tuneCmd, liveCmd, serveCmd, guiCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "parameter override name=value (repeatable)")
}

// loadScene resolves the scene config. Precedence, lowest first: preset
// (argument, CLOTHSIM_PRESET, or "reference"), config file, environment,
// flags.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := config.PresetFromEnv()
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		name = "reference"
	}

	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	for _, o := range overrides {
		k, v, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("override %q: expected name=value", o)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", o, err)
		}
		if err := cfg.SetParam(k, f); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s (%dx%d, dt %.4g, %.1fs)...\n", cfg.Name, cfg.Grid.Cols, cfg.Grid.Rows, cfg.Dt, cfg.Duration)
	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d  frames: %d\n", result.StepsTaken, len(result.Frames))
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.RunInfo(), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	reg := experiment.NewRegistry()
	for _, name := range reg.ListMetrics() {
		if v, ok := result.Metrics[name]; ok {
			fmt.Printf("  %s: %.6f\n", name, v)
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tGRID\tFRAMES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%dx%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Cols, run.Rows,
			run.Frames,
		)
	}
	return w.Flush()
}

// loadRun reads a stored run back as a result.
func loadRun(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	series, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(series.Frames) == 0 {
		return nil, nil, fmt.Errorf("run %s has no frames", runID)
	}
	return meta, series.Result(meta), nil
}

// pickNode defaults to the centre node and range-checks the rest.
func pickNode(meta *storage.RunMetadata, n int) (int, error) {
	if n < 0 {
		return (meta.Rows/2)*meta.Cols + meta.Cols/2, nil
	}
	if n >= meta.Cols*meta.Rows {
		return 0, fmt.Errorf("%w: node %d of %d", cloth.ErrNodeOutOfRange, n, meta.Cols*meta.Rows)
	}
	return n, nil
}

func deviceNorms(r *sim.Result) []float64 {
	out := make([]float64, len(r.DeviceForces))
	for i, f := range r.DeviceForces {
		out[i] = f.Len()
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	n, err := pickNode(meta, node)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", len(result.Frames))

	plots := []struct {
		caption string
		data    []float64
	}{
		{"kinetic energy", result.Energy},
		{fmt.Sprintf("node %d height", n), result.Series(n)},
		{"device force |F|", deviceNorms(result)},
	}
	for _, p := range plots {
		if len(p.data) < 2 {
			continue
		}
		fmt.Println(asciigraph.Plot(p.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONStdout(meta.Info(), result)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	view, err := export.ParseView(viewName)
	if err != nil {
		return err
	}
	i := frame
	if i < 0 {
		i += len(result.Frames)
	}
	if i < 0 || i >= len(result.Frames) {
		return fmt.Errorf("frame %d out of range (0..%d)", frame, len(result.Frames)-1)
	}
	edges, err := meshEdges(meta.Cols, meta.Rows)
	if err != nil {
		return err
	}

	var svg string
	if braille {
		canvas := viz.NewCanvas(100, 50)
		viz.RenderSnapshot(canvas, result.Frames[i], edges)
		svg = export.CanvasToSVG(canvas, 4)
	} else {
		svg = export.MeshToSVG(result.Frames[i], edges, view, 800, 800)
	}
	if outPath == "" {
		_, err = fmt.Print(svg)
		return err
	}
	if err := os.WriteFile(outPath, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

// meshEdges rebuilds the structural edge list for a stored lattice size.
func meshEdges(cols, rows int) ([][2]int, error) {
	p := cloth.DefaultParams()
	p.Grid.Cols, p.Grid.Rows = cols, rows
	c, err := cloth.New(p)
	if err != nil {
		return nil, err
	}
	return c.Edges(), nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	n, err := pickNode(meta, node)
	if err != nil {
		return err
	}
	path := outPath
	if path == "" {
		path = meta.ID + ".png"
	}

	chart := export.Chart{
		Title:  meta.ID,
		XLabel: "time (s)",
		YLabel: "value",
		Xs:     result.Times,
		Lines: []export.Line{
			{Name: "kinetic energy", Ys: result.Energy},
			{Name: fmt.Sprintf("node %d y", n), Ys: result.Series(n)},
			{Name: "|F| device", Ys: deviceNorms(result)},
		},
	}
	if err := chart.Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	n, err := pickNode(meta, node)
	if err != nil {
		return err
	}
	data := result.Series(n)
	if len(data) < 4 {
		return fmt.Errorf("not enough frames for analysis: %d", len(data))
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s  node: %d\n\n", meta.Scene, n)
	fmt.Printf("height   %s\n", analysis.Summarize(data))
	fmt.Printf("energy   %s\n", analysis.Summarize(result.Energy))
	if settle := analysis.SettlingTime(result.Times, data, 1e-3); settle >= 0 && settle < result.Times[len(result.Times)-1] {
		fmt.Printf("settles within 1e-3 after %.3fs\n", settle)
	} else {
		fmt.Println("does not settle within 1e-3")
	}

	frameDt := result.Times[1] - result.Times[0]
	ps := analysis.PowerSpectrum(data)
	if len(ps) > 2 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(ps,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (node %d height)", n)),
		))
		fmt.Println()
	}
	freq, mag := analysis.DominantFrequency(data, frameDt)
	fmt.Printf("dominant frequency: %.3f hz (magnitude %.3g)\n", freq, mag)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	n, err := pickNode(meta, node)
	if err != nil {
		return err
	}
	portrait := analysis.GeneratePhasePortrait(result, n)
	fmt.Printf("phase portrait: %s node %d (y against vy)\n\n", meta.ID, n)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20))

	if svgPath == "" {
		return nil
	}
	var svg string
	if portrait != nil {
		svg = export.TrajectoryToSVG(portrait.Points, 800, 600, "#00ff9f")
	}
	if svg == "" {
		return fmt.Errorf("need at least 2 frames for an svg trajectory")
	}
	if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgPath)
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	base, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%dx%d)\n\n", base.Name, base.Grid.Cols, base.Grid.Rows)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC\tSTATE")

	for _, dur := range []float64{1, 5} {
		for _, step := range []float64{1.0 / 1000, 1.0 / 240, 1.0 / 60} {
			cfg := base.Clone()
			cfg.Dt, cfg.Duration = step, dur
			exp, err := experiment.New(cfg)
			if err != nil {
				return err
			}

			// no recording; stop at the first non-finite state
			simCfg := cfg.SimConfig()
			simCfg.ValidateState = false
			steps, state := 0, "ok"
			start := time.Now()
			err = exp.GetSimulator().RunWithCallback(cmd.Context(), simCfg, func(f *sim.Frame) bool {
				steps++
				if !f.Cloth.Valid() {
					state = fmt.Sprintf("diverged at %.3fs", f.Time)
					return false
				}
				return true
			})
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\t%s\n",
				dur, step, steps, elapsed, float64(steps)/elapsed.Seconds(), state)
		}
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	results, err := automation.RunScenario(cmd.Context(), sc, st, os.Stdout)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENE\tRUN\tSTEPS\tERRORS")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", r.Step, r.Scene, r.RunID, r.Result.StepsTaken, len(r.Result.Errors))
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      cfg,
		ParamName: paramName,
		ParamMin:  paramMin,
		ParamMax:  paramMax,
		NumSteps:  numSteps,
		Workers:   workers,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMAX KE\tSAG\tSTRETCH\tSTABLE\n", strings.ToUpper(paramName))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.4g\t%.4f\t%.4f\t%v\n", r.ParamValue, r.MaxEnergy, r.Metrics["sag"], r.Metrics["max_stretch"], r.Stable)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	base, err := paramValue(cfg, paramName)
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:         cfg,
		ParamName:    paramName,
		BaseValue:    base,
		Perturbation: perturb,
		NumTrials:    trials,
		Workers:      workers,
		Seed:         seed,
	})
	if err != nil {
		return err
	}

	sags := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Stable {
			sags = append(sags, r.FinalSag)
		}
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("%s = %.4g ± %.4g over %d trials\n", paramName, base, perturb, len(results))
	fmt.Printf("stable: %d  unstable: %d\n", stable, unstable)
	if len(sags) > 0 {
		fmt.Printf("sag      %s\n", analysis.Summarize(sags))
	}
	return nil
}

// paramValue reads the current value of a dotted parameter. Only the
// parameters worth perturbing are supported.
func paramValue(cfg *config.Config, name string) (float64, error) {
	switch name {
	case "mass":
		return cfg.Mass, nil
	case "damping":
		return cfg.Damping, nil
	case "gravity.y":
		return cfg.Gravity[1], nil
	case "springs.structural.ks":
		return cfg.Springs.Structural.Ks, nil
	case "springs.shear.ks":
		return cfg.Springs.Shear.Ks, nil
	case "springs.bend.ks":
		return cfg.Springs.Bend.Ks, nil
	case "contact.stiffness":
		return cfg.Contact.Stiffness, nil
	}
	return 0, fmt.Errorf("monte carlo does not support parameter %s", name)
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("at least one --grid name=v1,v2,... is required")
	}

	names := make([]string, 0, len(grid))
	ranges := make([][]float64, 0, len(grid))
	for _, g := range grid {
		name, list, ok := strings.Cut(g, "=")
		if !ok {
			return fmt.Errorf("grid %q: expected name=v1,v2,...", g)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("grid %q: %w", g, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	best, value, results, err := optim.NewGridSearch(names, ranges).Search(cmd.Context(), cfg, metricArg)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("evaluated %d combinations (%d failed)\n", len(results), failed)
	fmt.Printf("best %s: %.6g\n", metricArg, value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" {
		return viz.RunInteractive()
	}
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	return viz.RunLive(cmd.Context(), exp.Runner(), viz.OptionsFor(exp))
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	hz := broadcastHz
	if hz <= 0 {
		hz = cfg.Realtime.BroadcastHz
	}

	logger := log.New(os.Stderr, "clothsim: ", log.LstdFlags)
	runner := exp.Runner()
	hub := stream.NewHub(runner, exp.Cloth(), hz, logger)
	server := stream.NewServer(hub, logger)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return server.ListenAndServe(ctx, addr) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
