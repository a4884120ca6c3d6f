// Package runner hosts an engine on its own goroutine: it serializes command
// batches, drives the frame clock and fans publications and rasters out on
// channels.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/san-kum/xysim/internal/engine"
)

// ErrStopped is returned by Send and Inspect after Run has returned.
var ErrStopped = errors.New("runner: stopped")

const (
	DefaultFPS            = 60
	DefaultPublicationCap = 16
)

// Frame is an owned copy of one RGBA raster.
type Frame struct {
	Pix  []byte
	W, H int
}

type request struct {
	batch   []engine.Command
	inspect func(*engine.Engine)
}

// Option configures a Runner.
type Option func(*Runner)

// WithFPS sets the frame clock rate.
func WithFPS(fps int) Option {
	return func(r *Runner) {
		if fps > 0 {
			r.fps = fps
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithPublicationBuffer sets the publication channel capacity.
func WithPublicationBuffer(n int) Option {
	return func(r *Runner) { r.pubCap = n }
}

// Runner owns an engine while Run is active. All engine access goes through
// Send and Inspect.
type Runner struct {
	log    *slog.Logger
	fps    int
	pubCap int

	// requests carries batches and inspections on one channel so that an
	// inspection observes every batch sent before it.
	requests chan request
	pubs    chan engine.Publication
	frames  chan Frame
	done    chan struct{}
	ctx     context.Context
}

// New returns a runner. Pass it to engine.WithPublisher and use Sink as the
// Init frame sink so that output reaches Publications and Frames.
func New(opts ...Option) *Runner {
	r := &Runner{
		log:    slog.Default(),
		fps:    DefaultFPS,
		pubCap: DefaultPublicationCap,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.requests = make(chan request, 8)
	r.pubs = make(chan engine.Publication, r.pubCap)
	r.frames = make(chan Frame, 1)
	r.done = make(chan struct{})
	return r
}

// Publications delivers engine publications in order. It is closed when Run
// returns.
func (r *Runner) Publications() <-chan engine.Publication { return r.pubs }

// Frames delivers the most recent raster; stale frames are dropped. It is
// closed when Run returns.
func (r *Runner) Frames() <-chan Frame { return r.frames }

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Sink returns the frame sink feeding Frames.
func (r *Runner) Sink() engine.FrameSink { return engine.FrameSinkFunc(r.frame) }

// Publish implements engine.Publisher. It blocks while the publication
// buffer is full, until the run context is cancelled.
func (r *Runner) Publish(p engine.Publication) {
	if r.ctx == nil {
		select {
		case r.pubs <- p:
		default:
			r.log.Debug("dropping publication before run")
		}
		return
	}
	select {
	case r.pubs <- p:
	case <-r.ctx.Done():
	}
}

func (r *Runner) frame(pix []byte, w, h int) {
	f := Frame{Pix: append([]byte(nil), pix...), W: w, H: h}
	select {
	case r.frames <- f:
		return
	default:
	}
	select {
	case <-r.frames:
	default:
	}
	select {
	case r.frames <- f:
	default:
	}
}

// Send queues a batch. Batches are handled in the order they are sent, each
// as one unit between frame ticks.
func (r *Runner) Send(ctx context.Context, batch ...engine.Command) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.requests <- request{batch: batch}:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inspect runs fn on the runner goroutine and waits for it to return. fn
// must not retain the engine.
func (r *Runner) Inspect(ctx context.Context, fn func(*engine.Engine)) error {
	finished := make(chan struct{})
	wrapped := func(e *engine.Engine) {
		defer close(finished)
		fn(e)
	}
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.requests <- request{inspect: wrapped}:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		// Run closes done only after the loop exits, so a request it
		// served has already finished.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Run drives eng until ctx is cancelled and returns ctx.Err(). Ticks carry
// milliseconds since Run started.
func (r *Runner) Run(ctx context.Context, eng *engine.Engine) error {
	r.ctx = ctx
	defer func() {
		close(r.done)
		close(r.pubs)
		close(r.frames)
	}()

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()

	r.log.Debug("runner started", "fps", r.fps)
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("runner stopped", "steps", eng.Steps())
			return ctx.Err()
		case req := <-r.requests:
			if req.inspect != nil {
				req.inspect(eng)
				continue
			}
			eng.Handle(req.batch...)
		case t := <-ticker.C:
			eng.Tick(float64(t.Sub(start).Microseconds()) / 1000)
		}
	}
}
