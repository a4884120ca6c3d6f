package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/xysim/internal/config"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	size        int
	temperature float64
	kernelName  string
	obsName     string
	seed        int64
	steps       int
	fps         int
	aligned     bool
	record      bool
	save        bool
	outFile     string

	scanPoints  int
	scanSamples int
	scanBurnIn  int
	scanWorkers int

	benchSteps int
	benchTemp  float64
	benchSeed  int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "xysim",
		Short:         "XY model Monte Carlo lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(os.Stderr)
		},
		RunE: runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	simFlags(rootCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	simFlags(liveCmd)
	liveCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "frame rate")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run kernel steps at a fixed temperature",
		RunE:  runFixed,
	}
	simFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "kernel steps")
	runCmd.Flags().BoolVar(&save, "save", false, "store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep temperature from T up to 2",
		RunE:  runSweep,
	}
	simFlags(sweepCmd)
	sweepCmd.Flags().BoolVar(&save, "save", false, "store the run")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "parallel equilibrium scan over temperature",
		RunE:  runScan,
	}
	simFlags(scanCmd)
	scanCmd.Flags().IntVar(&scanPoints, "points", 0, "temperatures in [0, 2] (default from config)")
	scanCmd.Flags().IntVar(&scanSamples, "samples", 0, "samples per temperature (default from config)")
	scanCmd.Flags().IntVar(&scanBurnIn, "burn-in", 0, "burn-in steps per temperature (default from config)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "parallel workers (default from config)")
	scanCmd.Flags().BoolVar(&save, "save", false, "store the scan")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "equilibrate and write a PNG",
		RunE:  runSnapshot,
	}
	simFlags(snapshotCmd)
	snapshotCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "kernel steps before the snapshot")
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "xy.png", "output file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark kernels",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 20, "steps per measurement")
	benchCmd.Flags().Float64Var(&benchTemp, "temperature", 0.89, "temperature")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-10s size=%d T=%.2f kernel=%s\n", name, p.Size, p.Temperature, p.Kernel)
			}
			return nil
		},
	}

	rootCmd.AddCommand(liveCmd, runCmd, sweepCmd, scanCmd, snapshotCmd, benchCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// simFlags registers the simulation flags that override the configuration.
func simFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&size, "size", config.DefaultSize, "lattice edge length (32|64|128|256|512)")
	cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "temperature in [0, 2]")
	cmd.Flags().StringVar(&kernelName, "kernel", "metropolis", "update kernel (metropolis|wolff)")
	cmd.Flags().StringVar(&obsName, "observable", "magnetization", "observable (magnetization|energy)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&aligned, "aligned", false, "start from an aligned lattice")
	cmd.Flags().BoolVar(&record, "record", true, "record samples")
}

func setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig resolves defaults, preset, file and environment, then applies
// the flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Size = size
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("kernel") {
		cfg.Kernel = kernelName
	}
	if flags.Changed("observable") {
		cfg.Observable = obsName
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("aligned") {
		cfg.Aligned = aligned
	}
	if flags.Changed("record") {
		cfg.Record = record
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("points") {
		cfg.Scan.Temperatures = scanPoints
	}
	if flags.Changed("samples") {
		cfg.Scan.Samples = scanSamples
	}
	if flags.Changed("burn-in") {
		cfg.Scan.BurnIn = scanBurnIn
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = scanWorkers
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("configuration resolved",
		"size", cfg.Size,
		"temperature", cfg.Temperature,
		"kernel", cfg.Kernel,
		"observable", cfg.Observable,
		"seed", cfg.Seed,
	)
	return cfg, nil
}

// storeDir picks the run store directory when no simulation config is
// needed.
func storeDir() string {
	if dataDir != "" {
		return dataDir
	}
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return config.DefaultDataDir
	}
	return cfg.DataDir
}
