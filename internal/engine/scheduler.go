package engine

import (
	"fmt"
	"math"
)

// State is the scheduler mode.
type State uint8

const (
	Idle State = iota
	Running
	Sweeping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Sweeping:
		return "sweeping"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Play enters continuous mode. It is a no-op unless idle, so repeated calls
// never stack frame loops. The first tick afterwards publishes immediately.
func (e *Engine) Play() {
	if !e.ready || e.state != Idle {
		return
	}
	e.state = Running
	e.lastPublish = math.Inf(-1)
}

// Pause stops play or sweep and publishes the aggregates once. Pausing an
// idle engine does nothing.
func (e *Engine) Pause() {
	if !e.ready || e.state == Idle {
		return
	}
	e.state = Idle
	obs, variance := e.aggregates()
	e.publish(Publication{IsPlaying: ptr(false), Observable: obs, Variance: variance})
}

// Step advances one kernel step, samples when recording and renders once.
// While running it slips one extra step between frames without changing
// mode.
func (e *Engine) Step() {
	if !e.ready {
		return
	}
	e.advance()
	if e.record {
		e.sample()
	}
	e.render()
}

// Sweep starts a temperature sweep from the current T. Each publication
// advances T by the schedule increment and runs a burn-in; the sweep ends on
// the first tick with T above the maximum. A sweep started while playing
// takes over the frame loop.
func (e *Engine) Sweep() {
	if !e.ready || e.state == Sweeping {
		return
	}
	e.state = Sweeping
	e.sweepArmed = false
	e.log.Info("sweep started", "T", e.temperature, "kernel", e.kern, "observable", e.obs)
	if e.temperature > MaxTemperature {
		e.finishSweep()
	}
}

// Tick is the host frame callback, with now in milliseconds on a monotonic
// clock. It does nothing while idle.
func (e *Engine) Tick(now float64) {
	switch e.state {
	case Running:
		e.tickPlay(now)
	case Sweeping:
		e.tickSweep(now)
	}
}

func (e *Engine) tickPlay(now float64) {
	e.advance()
	if e.record {
		e.sample()
		if now-e.lastPublish > e.interval {
			e.lastPublish = now
			obs, variance := e.aggregates()
			e.publish(Publication{
				T:          ptr(math.Round(100*e.temperature) / 100),
				Observable: obs,
				Variance:   variance,
			})
		}
	}
	e.render()
}

func (e *Engine) tickSweep(now float64) {
	if e.temperature > MaxTemperature {
		e.finishSweep()
		return
	}
	if !e.sweepArmed {
		e.sweepArmed = true
		e.lastPublish = now
	}

	for i := 0; i < e.schedule.StepsPerFrame; i++ {
		e.advance()
		e.sample()
	}
	e.render()

	if now-e.lastPublish > e.interval {
		obs, variance := e.aggregates()
		e.publish(Publication{T: ptr(e.temperature), Observable: obs, Variance: variance})

		e.temperature = math.Round(100*e.temperature+100*e.schedule.Increment) / 100
		e.lastPublish = now
		for i := 0; i < e.schedule.BurnIn; i++ {
			e.advance()
		}
	}
}

func (e *Engine) finishSweep() {
	e.temperature = MaxTemperature
	e.state = Idle
	obs, variance := e.aggregates()
	e.publish(Publication{
		T:          ptr(e.temperature),
		IsPlaying:  ptr(false),
		Observable: obs,
		Variance:   variance,
	})
	e.log.Info("sweep finished", "samples", e.acc.Samples(), "steps", e.steps)
}
