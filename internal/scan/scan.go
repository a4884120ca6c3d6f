// Package scan estimates equilibrium observables over a grid of temperatures.
// Each temperature is an independent chain started from an aligned lattice,
// so points run in parallel.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/rng"
)

const (
	DefaultTemperatures = 201
	DefaultBurnIn       = 256
	DefaultSamples      = 1024
	DefaultSize         = 64
	// MaxTemperature is the last point of the grid.
	MaxTemperature = 2.0

	cancelCheck = 32
)

// Params configures a scan.
type Params struct {
	Size         int
	Temperatures int // grid points over [0, MaxTemperature]
	BurnIn       int // Metropolis steps before sampling
	Samples      int // sampled steps per point
	Workers      int // 0 means GOMAXPROCS
	SampleKernel kernel.Kernel
	Seed         int64 // point k uses Seed+k; 0 draws a random base
}

func DefaultParams() Params {
	return Params{
		Size:         DefaultSize,
		Temperatures: DefaultTemperatures,
		BurnIn:       DefaultBurnIn,
		Samples:      DefaultSamples,
		SampleKernel: kernel.Wolff,
	}
}

func (p Params) validate() error {
	switch {
	case !lattice.ValidSize(p.Size, p.Size):
		return fmt.Errorf("%w: size %d", ErrInvalidParams, p.Size)
	case p.Temperatures < 2:
		return fmt.Errorf("%w: need at least 2 temperatures, got %d", ErrInvalidParams, p.Temperatures)
	case p.Samples < 1:
		return fmt.Errorf("%w: samples %d", ErrInvalidParams, p.Samples)
	case p.BurnIn < 0 || p.Workers < 0:
		return fmt.Errorf("%w: burn-in %d, workers %d", ErrInvalidParams, p.BurnIn, p.Workers)
	}
	return nil
}

// Temperature returns grid point k.
func (p Params) Temperature(k int) float64 {
	return MaxTemperature * float64(k) / float64(p.Temperatures-1)
}

// Point is the estimate at one temperature. Response fields are NaN at T=0.
type Point struct {
	T              float64
	Energy         float64
	Magnetization  float64
	SpecificHeat   float64
	Susceptibility float64
}

func (pt Point) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("T", pt.T),
		slog.Float64("E", pt.Energy),
		slog.Float64("M", pt.Magnetization),
		slog.Float64("C", pt.SpecificHeat),
		slog.Float64("chi", pt.Susceptibility),
	)
}

// Progress is called after each finished point, serialized across workers.
type Progress func(done, total int, pt Point)

// ResolveSeed returns p with a random base seed drawn when Seed is 0, so the
// caller can record the seed a scan actually ran with.
func (p Params) ResolveSeed() (Params, error) {
	if p.Seed != 0 {
		return p, nil
	}
	seed, err := rng.NewSeed()
	if err != nil {
		return p, err
	}
	p.Seed = seed
	return p, nil
}

// Run evaluates every grid point and returns them in temperature order.
// Pass params through ResolveSeed first to learn the seed of an unseeded scan.
func Run(ctx context.Context, p Params, progress Progress) ([]Point, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	p, err := p.ResolveSeed()
	if err != nil {
		return nil, err
	}
	workers := p.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	points := make([]Point, p.Temperatures)
	var (
		mu       sync.Mutex
		finished int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := range p.Temperatures {
		g.Go(func() error {
			pt, err := Estimate(gctx, p, k)
			if err != nil {
				return err
			}
			points[k] = pt
			if progress != nil {
				mu.Lock()
				finished++
				progress(finished, p.Temperatures, pt)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Estimate runs the chain for grid point k: aligned start, BurnIn
// Metropolis steps, then Samples steps of the sample kernel with energy and
// magnetization measured after each.
func Estimate(ctx context.Context, p Params, k int) (Point, error) {
	T := p.Temperature(k)
	l, err := lattice.New(p.Size, p.Size)
	if err != nil {
		return Point{}, err
	}
	src := rng.New(p.Seed + int64(k))
	stepper := kernel.NewStepper()
	l.Align(src)

	for i := 0; i < p.BurnIn; i++ {
		if i%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return Point{}, &PointError{Index: k, T: T, Wrapped: err}
			}
		}
		stepper.Step(kernel.Metropolis, l, src, T)
	}

	energies := make([]float64, p.Samples)
	mags := make([]float64, p.Samples)
	for i := 0; i < p.Samples; i++ {
		if i%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return Point{}, &PointError{Index: k, T: T, Wrapped: err}
			}
		}
		stepper.Step(p.SampleKernel, l, src, T)
		energies[i] = observable.EnergyOf(l)
		mags[i] = observable.MagnetizationOf(l)
	}

	return Summarize(T, l.Size(), energies, mags), nil
}

// Summarize reduces sample series to a Point. Responses use the population
// variance scaled by N/T² for energy and N/T for magnetization.
func Summarize(T float64, sites int, energies, mags []float64) Point {
	eMean, eVar := stat.PopMeanVariance(energies, nil)
	mMean, mVar := stat.PopMeanVariance(mags, nil)
	pt := Point{
		T:              T,
		Energy:         eMean,
		Magnetization:  mMean,
		SpecificHeat:   math.NaN(),
		Susceptibility: math.NaN(),
	}
	if T > 0 {
		n := float64(sites)
		pt.SpecificHeat = eVar * n / (T * T)
		pt.Susceptibility = mVar * n / T
	}
	return pt
}
