package engine

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/render"
	"github.com/san-kum/xysim/internal/rng"
)

const (
	// DefaultSize is used when Init carries an invalid geometry.
	DefaultSize = 64
	// DefaultTemperature is the temperature after Init.
	DefaultTemperature = 1.0
	// MaxTemperature bounds T and terminates a sweep.
	MaxTemperature = 2.0
	// DefaultPublishInterval is the minimum spacing of running publications.
	DefaultPublishInterval = 500.0
)

// SweepSchedule controls the sweep driver.
type SweepSchedule struct {
	Increment     float64 // T step after each publication
	StepsPerFrame int     // recorded kernel steps per tick
	BurnIn        int     // unrecorded steps after each increment
}

// DefaultSweepSchedule advances T by 0.01 with 20 steps per frame and 10
// burn-in steps.
func DefaultSweepSchedule() SweepSchedule {
	return SweepSchedule{Increment: 0.01, StepsPerFrame: 20, BurnIn: 10}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher routes publications to p.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithSource sets the random source for kernels and initialization.
func WithSource(src rng.Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithSeed seeds a PCG source.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.src = rng.New(seed) }
}

// WithLogger sets the logger for dropped instructions and sweep progress.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPublishInterval sets the minimum spacing, in milliseconds, between
// running publications.
func WithPublishInterval(ms float64) Option {
	return func(e *Engine) { e.interval = ms }
}

// WithSweepSchedule overrides the sweep driver parameters.
func WithSweepSchedule(s SweepSchedule) Option {
	return func(e *Engine) { e.schedule = s }
}

// Engine owns the simulation state. It is not safe for concurrent use; a
// single goroutine handles commands and ticks.
type Engine struct {
	log      *slog.Logger
	src      rng.Source
	pub      Publisher
	interval float64
	schedule SweepSchedule

	ready    bool
	sink     FrameSink
	lat      *lattice.Lattice
	stepper  *kernel.Stepper
	acc      *observable.Accumulator
	palette  *render.Palette
	renderer *render.Renderer

	temperature float64
	kern        kernel.Kernel
	obs         observable.Observable
	record      bool

	state       State
	lastPublish float64
	sweepArmed  bool
	steps       uint64
	last        kernel.Stats
}

// New returns an engine waiting for Init. Commands other than Init are
// dropped until it arrives.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:         slog.Default(),
		interval:    DefaultPublishInterval,
		schedule:    DefaultSweepSchedule(),
		palette:     render.NewPalette(),
		stepper:     kernel.NewStepper(),
		lastPublish: math.Inf(-1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		seed, err := rng.NewSeed()
		if err != nil {
			e.log.Warn("falling back to fixed seed", "error", err)
		}
		e.src = rng.New(seed)
	}
	return e
}

// Handle processes a batch in order. No tick runs between the commands of
// one batch.
func (e *Engine) Handle(batch ...Command) {
	for _, c := range batch {
		switch c := c.(type) {
		case Init:
			e.init(c)
		case *Init:
			if c != nil {
				e.init(*c)
			}
		case SetProperty:
			if e.ready {
				e.setProperty(c.Name, c.Value)
			}
		case Call:
			if e.ready {
				e.call(c)
			}
		default:
			e.log.Debug("dropping instruction", "type", c)
		}
	}
}

// HandleJSON decodes a wire batch and handles it. Malformed JSON is dropped.
func (e *Engine) HandleJSON(data []byte) {
	batch, err := DecodeBatch(data)
	if err != nil {
		e.log.Debug("dropping batch", "error", err)
		return
	}
	e.Handle(batch...)
}

func (e *Engine) init(c Init) {
	w, h := c.Width, c.Height
	if !lattice.ValidSize(w, h) {
		e.log.Debug("invalid init size, using default", "width", w, "height", h, "default", DefaultSize)
		w, h = DefaultSize, DefaultSize
	}
	e.lat, _ = lattice.New(w, h)
	e.acc = observable.NewAccumulator(observable.Magnetization, e.lat.Size())
	e.renderer = render.NewRenderer(e.palette, w, h)
	e.sink = c.Sink
	e.temperature = DefaultTemperature
	e.kern = kernel.Metropolis
	e.obs = observable.Magnetization
	e.record = true
	e.state = Idle
	e.steps = 0
	e.ready = true

	e.initializeData()
	e.render()
}

func (e *Engine) setProperty(name string, value any) {
	switch name {
	case PropertyT:
		t, ok := toFloat(value)
		if !ok || math.IsNaN(t) {
			e.log.Debug("dropping temperature", "value", value)
			return
		}
		e.temperature = clampTemperature(t)
	case PropertyRecord:
		b, ok := value.(bool)
		if !ok {
			e.log.Debug("dropping record", "value", value)
			return
		}
		e.record = b
	case PropertyKernel:
		e.setKernel(value)
	case PropertyObservable:
		e.setObservable(value)
	default:
		e.log.Debug("dropping unknown property", "name", name)
	}
}

func (e *Engine) call(c Call) {
	switch c.Method {
	case MethodResize:
		e.resize(c.Args)
	case MethodInitializeData:
		e.initializeData()
	case MethodInitializeDataAligned:
		e.initializeDataAligned()
	case MethodSetKernel:
		e.setKernel(arg(c.Args, 0))
	case MethodSetObservable:
		e.setObservable(arg(c.Args, 0))
	case MethodPlay:
		e.Play()
	case MethodPause:
		e.Pause()
	case MethodStep:
		e.Step()
	case MethodSweep:
		e.Sweep()
	case MethodRender:
		e.render()
	default:
		e.log.Debug("dropping unknown method", "method", c.Method)
	}
}

func (e *Engine) resize(args []any) {
	w, okW := toInt(arg(args, 0))
	h, okH := toInt(arg(args, 1))
	if !okW || !okH {
		e.log.Debug("dropping resize", "args", args)
		return
	}
	if err := e.lat.Resize(w, h); err != nil {
		e.log.Debug("dropping resize", "width", w, "height", h, "error", err)
		return
	}
	e.acc.Reset(e.obs, e.lat.Size())
	e.renderer.Resize(w, h)
}

func (e *Engine) initializeData() {
	e.lat.Randomize(e.src)
	e.acc.Reset(e.obs, e.lat.Size())
	e.publishCleared()
}

func (e *Engine) initializeDataAligned() {
	e.lat.Align(e.src)
	e.acc.Reset(e.obs, e.lat.Size())
	e.publishCleared()
}

func (e *Engine) setKernel(v any) {
	name, _ := v.(string)
	k, err := kernel.Parse(name)
	if err != nil {
		e.log.Debug("dropping kernel", "value", v, "error", err)
		return
	}
	e.kern = k
}

func (e *Engine) setObservable(v any) {
	name, _ := v.(string)
	o, err := observable.Parse(name)
	if err != nil {
		e.log.Debug("dropping observable", "value", v, "error", err)
		return
	}
	e.obs = o
	e.acc.Reset(o, e.lat.Size())
	e.publishCleared()
}

// render paints the lattice and hands the raster to the sink. Without a
// sink it does nothing.
func (e *Engine) render() {
	if e.sink == nil || !e.ready {
		return
	}
	pix := e.renderer.Render(e.lat)
	e.sink.Frame(pix, e.lat.W, e.lat.H)
}

// advance runs one kernel step at the current temperature.
func (e *Engine) advance() {
	e.last = e.stepper.Step(e.kern, e.lat, e.src, e.temperature)
	e.steps++
}

func (e *Engine) sample() {
	e.acc.Record(e.temperature, e.obs.Measure(e.lat))
}

func (e *Engine) publish(p Publication) {
	if e.pub != nil {
		e.pub.Publish(p)
	}
}

func (e *Engine) publishCleared() {
	e.publish(Publication{Observable: nullSeries(), Variance: nullSeries()})
}

func (e *Engine) aggregates() (*Series, *Series) {
	return &Series{Y: e.acc.Means()}, &Series{Y: e.acc.Responses()}
}

// Ready reports whether Init has been handled.
func (e *Engine) Ready() bool { return e.ready }

// State returns the scheduler mode.
func (e *Engine) State() State { return e.state }

// Temperature returns the current T.
func (e *Engine) Temperature() float64 { return e.temperature }

// Kernel returns the active update kernel.
func (e *Engine) Kernel() kernel.Kernel { return e.kern }

// Observable returns the sampled observable.
func (e *Engine) Observable() observable.Observable { return e.obs }

// Record reports whether play and step feed the accumulators.
func (e *Engine) Record() bool { return e.record }

// Size returns the lattice edge lengths, zero before Init.
func (e *Engine) Size() (w, h int) {
	if e.lat == nil {
		return 0, 0
	}
	return e.lat.W, e.lat.H
}

// Lattice exposes the spin field for read-only inspection on the engine's
// goroutine.
func (e *Engine) Lattice() *lattice.Lattice { return e.lat }

// Accumulator exposes the bins for read-only inspection on the engine's
// goroutine.
func (e *Engine) Accumulator() *observable.Accumulator { return e.acc }

// Steps returns the number of kernel steps since Init.
func (e *Engine) Steps() uint64 { return e.steps }

// LastStats returns the statistics of the most recent kernel step.
func (e *Engine) LastStats() kernel.Stats { return e.last }

// Snapshot returns a complete publication of the current state.
func (e *Engine) Snapshot() Publication {
	p := Publication{
		T:         ptr(e.temperature),
		IsPlaying: ptr(e.state != Idle),
	}
	if e.ready {
		p.Observable, p.Variance = e.aggregates()
	}
	return p
}

func clampTemperature(t float64) float64 {
	return math.Max(0, math.Min(MaxTemperature, t))
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
