package engine_test

import (
	"encoding/json"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/xysim/internal/engine"
	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/render"
)

type capture struct {
	pubs []engine.Publication
}

func (c *capture) Publish(p engine.Publication) { c.pubs = append(c.pubs, p) }

func (c *capture) reset() { c.pubs = nil }

type frames struct {
	count int
	last  []byte
	w, h  int
}

func (f *frames) Frame(pix []byte, w, h int) {
	f.count++
	f.last = append(f.last[:0], pix...)
	f.w, f.h = w, h
}

func newEngine(size int, seed int64) (*engine.Engine, *capture, *frames) {
	pubs := &capture{}
	sink := &frames{}
	e := engine.New(
		engine.WithPublisher(pubs),
		engine.WithSeed(seed),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)
	e.Handle(engine.Init{Width: size, Height: size, Sink: sink})
	return e, pubs, sink
}

func allNil(ys []*float64) bool {
	for _, y := range ys {
		if y != nil {
			return false
		}
	}
	return true
}

var _ = Describe("Engine", func() {
	Describe("initialization", func() {
		It("drops commands until Init arrives", func() {
			pubs := &capture{}
			e := engine.New(engine.WithPublisher(pubs), engine.WithSeed(1),
				engine.WithLogger(slog.New(slog.DiscardHandler)))
			e.Handle(engine.SetTemperature(0.3), engine.Play(), engine.Step())

			Expect(e.Ready()).To(BeFalse())
			Expect(e.State()).To(Equal(engine.Idle))
			Expect(e.Steps()).To(BeZero())
			Expect(pubs.pubs).To(BeEmpty())
		})

		It("ignores a nil Init pointer", func() {
			e := engine.New(engine.WithSeed(1), engine.WithLogger(slog.New(slog.DiscardHandler)))
			Expect(func() { e.Handle((*engine.Init)(nil), engine.Step()) }).NotTo(Panic())
			Expect(e.Ready()).To(BeFalse())
			Expect(e.Steps()).To(BeZero())

			e.Handle(&engine.Init{Width: 32, Height: 32})
			Expect(e.Ready()).To(BeTrue())
		})

		It("allocates, randomizes and renders once", func() {
			e, pubs, sink := newEngine(32, 1)

			Expect(e.Ready()).To(BeTrue())
			w, h := e.Size()
			Expect(w).To(Equal(32))
			Expect(h).To(Equal(32))
			Expect(e.Temperature()).To(Equal(engine.DefaultTemperature))
			Expect(e.Kernel()).To(Equal(kernel.Metropolis))
			Expect(e.Observable()).To(Equal(observable.Magnetization))
			Expect(e.Record()).To(BeTrue())

			Expect(sink.count).To(Equal(1))
			Expect(sink.last).To(HaveLen(32 * 32 * 4))
			Expect(pubs.pubs).To(HaveLen(1))
			Expect(allNil(pubs.pubs[0].Observable.Y)).To(BeTrue())
			Expect(pubs.pubs[0].Observable.Y).To(HaveLen(observable.Bins))
		})

		It("falls back to the default size for an invalid geometry", func() {
			e, _, _ := newEngine(100, 1)
			w, _ := e.Size()
			Expect(w).To(Equal(engine.DefaultSize))
		})

		It("keeps simulating without a frame sink", func() {
			e := engine.New(engine.WithSeed(2), engine.WithLogger(slog.New(slog.DiscardHandler)))
			e.Handle(engine.Init{Width: 32, Height: 32})
			e.Handle(engine.Step(), engine.Render())
			Expect(e.Steps()).To(Equal(uint64(1)))
		})
	})

	Describe("properties and methods", func() {
		var (
			e    *engine.Engine
			pubs *capture
		)

		BeforeEach(func() {
			e, pubs, _ = newEngine(32, 3)
			pubs.reset()
		})

		It("clamps T into [0, 2] and drops NaN", func() {
			e.Handle(engine.SetTemperature(3.5))
			Expect(e.Temperature()).To(Equal(2.0))
			e.Handle(engine.SetTemperature(-1))
			Expect(e.Temperature()).To(Equal(0.0))
			e.Handle(engine.SetTemperature(0.7), engine.SetTemperature(math.NaN()))
			Expect(e.Temperature()).To(Equal(0.7))
			e.Handle(engine.SetProperty{Name: "T", Value: "hot"})
			Expect(e.Temperature()).To(Equal(0.7))
		})

		It("ignores unknown properties and methods", func() {
			before := append([]float64(nil), e.Lattice().Spins()...)
			e.Handle(
				engine.SetProperty{Name: "colorScheme", Value: "dark"},
				engine.Call{Method: engine.MethodUnknown},
				engine.Call{Method: engine.Method(200)},
			)
			Expect(e.Lattice().Spins()).To(Equal(before))
			Expect(pubs.pubs).To(BeEmpty())
		})

		It("switches kernel and observable", func() {
			e.Handle(engine.SetKernel("Wolff"), engine.SetObservable("Energy"))
			Expect(e.Kernel()).To(Equal(kernel.Wolff))
			Expect(e.Observable()).To(Equal(observable.Energy))
			Expect(pubs.pubs).To(HaveLen(1))
			Expect(allNil(pubs.pubs[0].Variance.Y)).To(BeTrue())

			e.Handle(engine.SetKernel("heatbath"), engine.SetProperty{Name: engine.PropertyKernel, Value: 4})
			Expect(e.Kernel()).To(Equal(kernel.Wolff))
		})

		It("drops invalid resizes", func() {
			e.Handle(engine.Resize(100, 100), engine.Resize(64, 128), engine.Call{Method: engine.MethodResize})
			w, h := e.Size()
			Expect(w).To(Equal(32))
			Expect(h).To(Equal(32))
		})

		It("initializes an aligned field", func() {
			e.Handle(engine.InitializeDataAligned())
			spins := e.Lattice().Spins()
			for _, s := range spins {
				Expect(s).To(Equal(spins[0]))
			}
			Expect(observable.MagnetizationOf(e.Lattice())).To(BeNumerically("~", 1, 1e-12))
		})

		It("records on step only when record is set", func() {
			e.Handle(engine.SetTemperature(1), engine.Step(), engine.Step())
			Expect(e.Accumulator().Bin(100).Count).To(Equal(2))

			e.Handle(engine.SetRecord(false), engine.Step())
			Expect(e.Accumulator().Bin(100).Count).To(Equal(2))
			Expect(e.Steps()).To(Equal(uint64(3)))
		})
	})

	Describe("scheduler", func() {
		var (
			e    *engine.Engine
			pubs *capture
			sink *frames
		)

		BeforeEach(func() {
			e, pubs, sink = newEngine(32, 4)
			pubs.reset()
		})

		It("treats pause while idle as a no-op", func() {
			e.Handle(engine.Pause(), engine.Pause())
			Expect(pubs.pubs).To(BeEmpty())
			Expect(e.State()).To(Equal(engine.Idle))
		})

		It("does not stack frame loops on repeated play", func() {
			e.Handle(engine.Play(), engine.Play(), engine.Play())
			Expect(e.State()).To(Equal(engine.Running))
			for i := 1; i <= 5; i++ {
				e.Tick(float64(i) * 16)
			}
			Expect(e.Steps()).To(Equal(uint64(5)))
		})

		It("does nothing on ticks while idle", func() {
			e.Tick(16)
			e.Tick(32)
			Expect(e.Steps()).To(BeZero())
		})

		It("throttles play publications and publishes once on pause", func() {
			e.Handle(engine.SetTemperature(1.234), engine.Play())

			var times []float64
			for now := 0.0; now < 3000; now += 16 {
				n := len(pubs.pubs)
				e.Tick(now)
				if len(pubs.pubs) > n {
					times = append(times, now)
				}
			}
			Expect(len(times)).To(BeNumerically(">=", 5))
			for i := 1; i < len(times); i++ {
				Expect(times[i] - times[i-1]).To(BeNumerically(">=", 500))
			}
			for _, p := range pubs.pubs {
				Expect(*p.T).To(Equal(1.23))
				Expect(p.IsPlaying).To(BeNil())
			}

			pubs.reset()
			e.Handle(engine.Pause(), engine.Pause())
			Expect(pubs.pubs).To(HaveLen(1))
			Expect(*pubs.pubs[0].IsPlaying).To(BeFalse())
			Expect(pubs.pubs[0].Observable.Y[123]).NotTo(BeNil())
		})

		It("does not publish while playing without recording", func() {
			e.Handle(engine.SetRecord(false), engine.Play())
			for now := 0.0; now < 2000; now += 16 {
				e.Tick(now)
			}
			Expect(pubs.pubs).To(BeEmpty())
			Expect(sink.count).To(BeNumerically(">", 100))
		})

		It("slips an extra step into a running loop", func() {
			e.Handle(engine.Play())
			e.Tick(16)
			e.Handle(engine.Step())
			Expect(e.State()).To(Equal(engine.Running))
			Expect(e.Steps()).To(Equal(uint64(2)))
		})
	})

	Describe("end-to-end", func() {
		It("keeps a cold aligned Metropolis lattice ordered", func() {
			e, _, _ := newEngine(32, 10)
			e.Handle(engine.SetTemperature(0.01), engine.InitializeDataAligned())
			for i := 0; i < 50; i++ {
				e.Handle(engine.Step())
				Expect(observable.MagnetizationOf(e.Lattice())).To(BeNumerically(">=", 0.95))
			}
		})

		It("disorders a hot Metropolis lattice", func() {
			e, _, _ := newEngine(32, 11)
			e.Handle(engine.SetTemperature(2), engine.InitializeData())
			var sum float64
			for i := 0; i < 200; i++ {
				e.Handle(engine.Step())
				sum += observable.MagnetizationOf(e.Lattice())
			}
			Expect(sum / 200).To(BeNumerically("<", 0.25))
		})

		It("orders a random lattice with Wolff at T=0.5", func() {
			e, _, _ := newEngine(64, 12)
			e.Handle(engine.SetKernel("wolff"), engine.SetTemperature(0.5), engine.InitializeData())

			e0 := observable.EnergyOf(e.Lattice())
			m0 := observable.MagnetizationOf(e.Lattice())
			var energies, mags []float64
			for i := 0; i < 10; i++ {
				e.Handle(engine.Step())
				energies = append(energies, observable.EnergyOf(e.Lattice()))
				mags = append(mags, observable.MagnetizationOf(e.Lattice()))
			}

			Expect(energies[0]).To(BeNumerically("<", e0))
			Expect(energies[9]).To(BeNumerically("<", energies[0]))
			var late float64
			for _, m := range mags[5:] {
				late += m
			}
			Expect(late / 5).To(BeNumerically(">", m0))
		})

		It("sweeps from T=0 to T=2 and stops", func() {
			e, pubs, _ := newEngine(32, 13)
			e.Handle(engine.SetTemperature(0))
			pubs.reset()
			e.Handle(engine.Sweep())
			Expect(e.State()).To(Equal(engine.Sweeping))

			now := 0.0
			for i := 0; i < 1000 && e.State() == engine.Sweeping; i++ {
				now += 501
				e.Tick(now)
			}
			Expect(e.State()).To(Equal(engine.Idle))

			Expect(len(pubs.pubs)).To(BeNumerically(">=", 200))
			prev := -1.0
			for _, p := range pubs.pubs {
				Expect(p.T).NotTo(BeNil())
				Expect(*p.T).To(BeNumerically(">=", prev))
				prev = *p.T
			}
			last := pubs.pubs[len(pubs.pubs)-1]
			Expect(*last.T).To(Equal(2.0))
			Expect(last.IsPlaying).NotTo(BeNil())
			Expect(*last.IsPlaying).To(BeFalse())
			Expect(e.Temperature()).To(Equal(2.0))

			// every visited bin above T=0 collected samples
			Expect(e.Accumulator().Bin(0).Count).To(BeZero())
			Expect(e.Accumulator().Bin(150).Count).To(BeNumerically(">", 0))
		})

		It("clears the accumulators on resize", func() {
			e, pubs, _ := newEngine(32, 14)
			e.Handle(engine.SetTemperature(1), engine.Play())
			for now := 0.0; now < 1000; now += 16 {
				e.Tick(now)
			}
			e.Handle(engine.Pause())
			Expect(e.Accumulator().Samples()).To(BeNumerically(">", 0))

			pubs.reset()
			e.Handle(engine.Resize(128, 128), engine.InitializeData())
			w, _ := e.Size()
			Expect(w).To(Equal(128))
			for i := 0; i < observable.Bins; i++ {
				Expect(e.Accumulator().Bin(i).Count).To(BeZero())
			}
			Expect(pubs.pubs).To(HaveLen(1))
			Expect(allNil(pubs.pubs[0].Observable.Y)).To(BeTrue())
		})

		It("renders a uniform field as one palette entry", func() {
			e, _, sink := newEngine(32, 15)
			e.Lattice().Fill(math.Pi / 2)
			e.Handle(engine.Render())

			r, g, b := render.NewPalette().Entry(384)
			Expect(sink.w).To(Equal(32))
			for i := 0; i < len(sink.last); i += 4 {
				Expect(sink.last[i : i+4]).To(Equal([]byte{r, g, b, 255}))
			}
		})
	})

	Describe("wire format", func() {
		It("decodes a mixed batch", func() {
			batch, err := engine.DecodeBatch([]byte(`[
				{"width": 64, "height": 64},
				{"property": "T", "value": 1.5},
				{"method": "setStep", "parameters": ["Wolff"]},
				{"method": "resize", "parameters": [128, 128]},
				{"method": "teleport"},
				{"unrelated": true}
			]`))
			Expect(err).NotTo(HaveOccurred())
			Expect(batch).To(HaveLen(5))
			Expect(batch[0]).To(Equal(engine.Init{Width: 64, Height: 64}))
			Expect(batch[2]).To(Equal(engine.Call{Method: engine.MethodSetKernel, Args: []any{"Wolff"}}))
			Expect(batch[4]).To(Equal(engine.Call{Method: engine.MethodUnknown}))
		})

		It("rejects malformed JSON", func() {
			_, err := engine.DecodeBatch([]byte(`{"method":`))
			Expect(err).To(HaveOccurred())
		})

		It("drives an engine from JSON", func() {
			e := engine.New(engine.WithSeed(5), engine.WithLogger(slog.New(slog.DiscardHandler)))
			e.HandleJSON([]byte(`[{"width":32,"height":32},{"property":"T","value":0.4},{"method":"resize","parameters":[64,64]},{"method":"setKernel","parameters":["Wolff"]}]`))
			w, _ := e.Size()
			Expect(w).To(Equal(64))
			Expect(e.Temperature()).To(Equal(0.4))
			Expect(e.Kernel()).To(Equal(kernel.Wolff))
		})

		It("encodes empty bins as null and omits unset fields", func() {
			e, _, _ := newEngine(32, 6)
			obs, _ := json.Marshal(engine.Publication{Observable: e.Snapshot().Observable})
			var decoded map[string]any
			Expect(json.Unmarshal(obs, &decoded)).To(Succeed())
			Expect(decoded).NotTo(HaveKey("T"))
			Expect(decoded).NotTo(HaveKey("isPlaying"))
			ys := decoded["observable"].(map[string]any)["y"].([]any)
			Expect(ys).To(HaveLen(observable.Bins))
			Expect(ys[0]).To(BeNil())
		})
	})
})
