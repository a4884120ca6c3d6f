package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/xysim/internal/config"
	"github.com/san-kum/xysim/internal/engine"
	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/render"
	"github.com/san-kum/xysim/internal/rng"
	"github.com/san-kum/xysim/internal/runner"
	"github.com/san-kum/xysim/internal/scan"
	"github.com/san-kum/xysim/internal/storage"
	"github.com/san-kum/xysim/internal/viz"
)

func newEngine(cfg *config.Config, opts ...engine.Option) *engine.Engine {
	opts = append(cfg.EngineOptions(), opts...)
	return engine.New(append(opts, engine.WithLogger(slog.Default()))...)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	// The terminal belongs to the view; logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "xysim.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	if err := setupLogging(logFile); err != nil {
		return err
	}
	log := slog.Default()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	r := runner.New(runner.WithFPS(cfg.FPS), runner.WithLogger(log))
	eng := newEngine(cfg, engine.WithPublisher(r))
	if err := r.Send(ctx, cfg.Setup(r.Sink())...); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.Run(gctx, eng); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return viz.Run(gctx, r, cfg.DataDir, log)
	})
	return g.Wait()
}

func runFixed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	eng := newEngine(cfg)
	eng.Handle(cfg.Setup(nil)...)

	fmt.Printf("running %d %s steps at T=%.2f on %d×%d...\n", cfg.Steps, eng.Kernel(), eng.Temperature(), cfg.Size, cfg.Size)
	start := time.Now()
	trace := make([]float64, 0, cfg.Steps)
	for i := 0; i < cfg.Steps; i++ {
		if i%64 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		eng.Handle(engine.Step())
		trace = append(trace, eng.Observable().Measure(eng.Lattice()))
	}
	elapsed := time.Since(start)

	acc := eng.Accumulator()
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("samples: %d\n", acc.Samples())
	if idx, ok := observable.BinIndex(eng.Temperature()); ok {
		b := acc.Bin(idx)
		if mean, ok := b.Mean(); ok {
			fmt.Printf("%s: %.6f\n", eng.Observable(), mean)
		}
		if b.HasResponse() {
			fmt.Printf("%s: %.6f\n", eng.Observable().ResponseName(), b.Response)
		}
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(trace,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s vs step", eng.Observable())),
	))

	if !save {
		return nil
	}
	return saveBins(cfg, eng, storage.KindRun, map[string]float64{
		"elapsed_s": elapsed.Seconds(),
	})
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var published int
	eng := newEngine(cfg, engine.WithPublisher(engine.PublisherFunc(func(p engine.Publication) {
		published++
		if p.T != nil {
			slog.Debug("sweep", "T", *p.T)
		}
	})))
	eng.Handle(cfg.Setup(nil)...)
	eng.Handle(engine.Sweep())

	fmt.Printf("sweeping %s from T=%.2f on %d×%d...\n", eng.Kernel(), eng.Temperature(), cfg.Size, cfg.Size)
	start := time.Now()
	// Virtual clock: every tick lands past the publish interval.
	tick := cfg.PublishIntervalMs + 1
	for now := tick; eng.State() == engine.Sweeping; now += tick {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		eng.Tick(now)
	}
	elapsed := time.Since(start)

	acc := eng.Accumulator()
	fmt.Printf("completed in %v (%d publications, %d samples)\n\n", elapsed, published, acc.Samples())
	plotBins(acc.Means(), acc.Responses(), acc.Observable())

	if !save {
		return nil
	}
	return saveBins(cfg, eng, storage.KindSweep, map[string]float64{
		"elapsed_s":    elapsed.Seconds(),
		"publications": float64(published),
	})
}

func saveBins(cfg *config.Config, eng *engine.Engine, kind string, summary map[string]float64) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	acc := eng.Accumulator()
	meta := storage.RunMetadata{
		Kind:        kind,
		Seed:        cfg.Seed,
		Size:        cfg.Size,
		Kernel:      eng.Kernel().String(),
		Observable:  eng.Observable().String(),
		Temperature: eng.Temperature(),
		Steps:       int(eng.Steps()),
		Samples:     acc.Samples(),
		Summary:     summary,
	}
	runID, err := st.Save(meta, storage.BinRecords(acc))
	if err != nil {
		return err
	}
	meta.ID = runID
	slog.Info("run saved", "run", meta)
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := cfg.ScanParams().ResolveSeed()
	if err != nil {
		return err
	}

	fmt.Printf("scanning %d temperatures on %d×%d with %s sampling (seed %d)...\n", p.Temperatures, p.Size, p.Size, p.SampleKernel, p.Seed)
	start := time.Now()
	points, err := scan.Run(cmd.Context(), p, func(done, total int, pt scan.Point) {
		slog.Info("scan progress", "done", done, "total", total, "point", pt)
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tENERGY\tMAGNETIZATION\tSPECIFIC HEAT\tSUSCEPTIBILITY")
	for _, pt := range points {
		fmt.Fprintf(w, "%.3f\t%.6f\t%.6f\t%s\t%s\n",
			pt.T, pt.Energy, pt.Magnetization, formatNullable(pt.SpecificHeat), formatNullable(pt.Susceptibility))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ncompleted in %v\n\n", elapsed)
	plotPoints(points)

	if !save {
		return nil
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Seed:    p.Seed,
		Size:    p.Size,
		Kernel:  p.SampleKernel.String(),
		Steps:   p.BurnIn + p.Samples,
		Samples: p.Samples * p.Temperatures,
		Summary: map[string]float64{"elapsed_s": elapsed.Seconds(), "workers": float64(p.Workers)},
	}
	runID, err := st.SaveScan(meta, storage.ScanRecords(points))
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var frame runner.Frame
	sink := engine.FrameSinkFunc(func(pix []byte, w, h int) {
		frame = runner.Frame{Pix: pix, W: w, H: h}
	})
	eng := newEngine(cfg)
	eng.Handle(cfg.Setup(sink)...)
	eng.Handle(engine.SetRecord(false))
	for i := 0; i < cfg.Steps; i++ {
		if i%64 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		eng.Handle(engine.Step())
	}
	eng.Handle(engine.Render())

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := render.WritePNG(f, frame.Pix, frame.W, frame.H); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d×%d, T=%.2f, M=%.4f)\n", outFile, frame.W, frame.H,
		eng.Temperature(), observable.MagnetizationOf(eng.Lattice()))
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Printf("benchmarking kernels at T=%.2f\n\n", benchTemp)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KERNEL\tSIZE\tSTEPS\tTIME\tSTEPS/SEC\tSITES/SEC")

	for _, k := range []kernel.Kernel{kernel.Metropolis, kernel.Wolff} {
		for _, n := range lattice.Sizes[:3] {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l, err := lattice.New(n, n)
			if err != nil {
				return err
			}
			src := rng.New(benchSeed)
			l.Randomize(src)
			stepper := kernel.NewStepper()

			start := time.Now()
			for i := 0; i < benchSteps; i++ {
				stepper.Step(k, l, src, benchTemp)
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(benchSteps) / elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.1f\t%.0f\n",
				k, n, benchSteps, elapsed, stepsPerSec, stepsPerSec*float64(n*n))
		}
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tSIZE\tKERNEL\tOBS\tT\tSAMPLES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%.2f\t%d\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Size,
			run.Kernel,
			run.Observable,
			run.Temperature,
			run.Samples,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(storeDir())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("kind: %s\n", meta.Kind)
	fmt.Printf("size: %d×%d\n", meta.Size, meta.Size)
	fmt.Printf("samples: %d\n\n", meta.Samples)

	if meta.Kind == storage.KindScan {
		records, err := st.LoadScan(runID)
		if err != nil {
			return err
		}
		plotPoints(storage.Points(records))
		return nil
	}

	bins, err := st.LoadBins(runID)
	if err != nil {
		return err
	}
	obs, err := observable.Parse(meta.Observable)
	if err != nil {
		obs = observable.Magnetization
	}
	means, responses := storage.Series(bins)
	plotBins(means, responses, obs)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return storage.New(storeDir()).ExportCSV(os.Stdout, args[0])
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(storeDir()).ExportJSON(os.Stdout, args[0])
}

func plotBins(means, responses []*float64, obs observable.Observable) {
	printed := false
	for _, s := range []struct {
		ys      []*float64
		caption string
	}{
		{means, fmt.Sprintf("%s vs T", obs)},
		{responses, fmt.Sprintf("%s vs T", obs.ResponseName())},
	} {
		if g := viz.PlotSeries(s.ys, s.caption, 80, 10); g != "" {
			fmt.Println(g)
			fmt.Println()
			printed = true
		}
	}
	if !printed {
		fmt.Println("no data to plot")
	}
}

func plotPoints(points []scan.Point) {
	series := []struct {
		caption string
		value   func(scan.Point) float64
	}{
		{"energy vs T", func(p scan.Point) float64 { return p.Energy }},
		{"magnetization vs T", func(p scan.Point) float64 { return p.Magnetization }},
		{"specific heat vs T", func(p scan.Point) float64 { return p.SpecificHeat }},
		{"susceptibility vs T", func(p scan.Point) float64 { return p.Susceptibility }},
	}
	for _, s := range series {
		ys := make([]*float64, len(points))
		for i, p := range points {
			if v := s.value(p); !math.IsNaN(v) && !math.IsInf(v, 0) {
				ys[i] = &v
			}
		}
		if g := viz.PlotSeries(ys, s.caption, 80, 10); g != "" {
			fmt.Println(g)
			fmt.Println()
		}
	}
}

func formatNullable(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.6f", v)
}
