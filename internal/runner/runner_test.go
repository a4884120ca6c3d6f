package runner_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/xysim/internal/engine"
	"github.com/san-kum/xysim/internal/runner"
)

var _ = Describe("Runner", func() {
	var (
		r      *runner.Runner
		cancel context.CancelFunc
		ctx    context.Context
		result chan error
	)

	BeforeEach(func() {
		quiet := slog.New(slog.DiscardHandler)
		r = runner.New(runner.WithFPS(120), runner.WithLogger(quiet))
		eng := engine.New(engine.WithPublisher(r), engine.WithSeed(7), engine.WithLogger(quiet))

		ctx, cancel = context.WithCancel(context.Background())
		result = make(chan error, 1)
		go func() { result <- r.Run(ctx, eng) }()

		Expect(r.Send(ctx, engine.Init{Width: 32, Height: 32, Sink: r.Sink()})).To(Succeed())
	})

	AfterEach(func() {
		cancel()
		Eventually(result).Should(Receive())
	})

	It("delivers the initial frame and cleared series", func() {
		var f runner.Frame
		Eventually(r.Frames()).Should(Receive(&f))
		Expect(f.W).To(Equal(32))
		Expect(f.Pix).To(HaveLen(32 * 32 * 4))

		var p engine.Publication
		Eventually(r.Publications()).Should(Receive(&p))
		Expect(p.Observable).NotTo(BeNil())
		Expect(p.T).To(BeNil())
	})

	It("plays on the frame clock and pauses with a final snapshot", func() {
		Eventually(r.Publications()).Should(Receive())
		Expect(r.Send(ctx, engine.SetTemperature(0.8), engine.Play())).To(Succeed())

		var p engine.Publication
		Eventually(r.Publications(), 2*time.Second).Should(Receive(&p))
		Expect(*p.T).To(Equal(0.8))

		Expect(r.Send(ctx, engine.Pause())).To(Succeed())
		Eventually(func() bool {
			select {
			case p := <-r.Publications():
				return p.IsPlaying != nil && !*p.IsPlaying
			default:
				return false
			}
		}, 2*time.Second).Should(BeTrue())

		var state engine.State
		Expect(r.Inspect(ctx, func(e *engine.Engine) { state = e.State() })).To(Succeed())
		Expect(state).To(Equal(engine.Idle))
	})

	It("applies batches in order", func() {
		Expect(r.Send(ctx,
			engine.SetTemperature(0.2),
			engine.SetKernel("wolff"),
			engine.Resize(64, 64),
			engine.SetTemperature(1.7),
		)).To(Succeed())

		var (
			t    float64
			w    int
			kern string
		)
		Expect(r.Inspect(ctx, func(e *engine.Engine) {
			t = e.Temperature()
			w, _ = e.Size()
			kern = e.Kernel().String()
		})).To(Succeed())
		Expect(t).To(Equal(1.7))
		Expect(w).To(Equal(64))
		Expect(kern).To(Equal("Wolff"))
	})

	It("inspects after every batch sent before it", func() {
		for i := 1; i <= 200; i++ {
			want := float64(i%200) / 100
			Expect(r.Send(ctx, engine.SetTemperature(want))).To(Succeed())

			var got float64
			Expect(r.Inspect(ctx, func(e *engine.Engine) { got = e.Temperature() })).To(Succeed())
			Expect(got).To(Equal(want), "iteration %d", i)
		}
	})

	It("stops on cancellation and closes its channels", func() {
		cancel()
		var err error
		Eventually(result).Should(Receive(&err))
		Expect(err).To(MatchError(context.Canceled))
		result <- err

		Eventually(r.Done()).Should(BeClosed())
		Expect(r.Send(context.Background(), engine.Play())).To(MatchError(runner.ErrStopped))
		Expect(r.Inspect(context.Background(), func(*engine.Engine) {})).To(MatchError(runner.ErrStopped))
	})
})
