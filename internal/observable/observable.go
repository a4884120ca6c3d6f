// Package observable measures scalar properties of the spin field and
// aggregates them per temperature bin.
package observable

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/xysim/internal/lattice"
)

// ErrUnknownObservable indicates an observable name that does not parse.
var ErrUnknownObservable = errors.New("observable: unknown observable")

// Observable selects which scalar is sampled per step.
type Observable uint8

const (
	Magnetization Observable = iota
	Energy
)

func (o Observable) String() string {
	switch o {
	case Magnetization:
		return "Magnetization"
	case Energy:
		return "Energy"
	default:
		return fmt.Sprintf("Observable(%d)", uint8(o))
	}
}

// ResponseName is the name of the derived response function.
func (o Observable) ResponseName() string {
	if o == Energy {
		return "Specific heat"
	}
	return "Susceptibility"
}

// ResponsePower is the power of T dividing the variance: 1 for
// magnetization (χ), 2 for energy (c).
func (o Observable) ResponsePower() int {
	if o == Energy {
		return 2
	}
	return 1
}

// Measure evaluates the observable on l.
func (o Observable) Measure(l *lattice.Lattice) float64 {
	if o == Energy {
		return EnergyOf(l)
	}
	return MagnetizationOf(l)
}

// Parse resolves an observable by name, case-insensitively.
func Parse(name string) (Observable, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "magnetization", "m":
		return Magnetization, nil
	case "energy", "e":
		return Energy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownObservable, name)
}

// Names lists the accepted observable names.
func Names() []string { return []string{"magnetization", "energy"} }

// MagnetizationOf returns |Σ (cos θ, sin θ)| / N, in [0, 1].
func MagnetizationOf(l *lattice.Lattice) float64 {
	var sx, sy float64
	for _, s := range l.Spins() {
		sin, cos := math.Sincos(s)
		sx += cos
		sy += sin
	}
	m := math.Hypot(sx, sy) / float64(l.Size())
	if m > 1 {
		return 1
	}
	return m
}

// EnergyOf returns the energy per site, -Σ<ij> cos(θi - θj) / N, with each
// bond counted once (right and down neighbor of every site).
func EnergyOf(l *lattice.Lattice) float64 {
	spins := l.Spins()
	w, h := l.W, l.H
	var sum float64
	for y := 0; y < h; y++ {
		down := ((y + 1) % h) * w
		row := y * w
		for x := 0; x < w; x++ {
			s := spins[row+x]
			sum -= math.Cos(s-spins[row+(x+1)%w]) + math.Cos(s-spins[down+x])
		}
	}
	return sum / float64(l.Size())
}
