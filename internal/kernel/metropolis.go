package kernel

import (
	"math"

	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/rng"
)

// LocalEnergy returns -Σ cos(theta - θn) over the given neighbor indices.
func LocalEnergy(spins []float64, nb [4]int, theta float64) float64 {
	return -(math.Cos(theta-spins[nb[0]]) +
		math.Cos(theta-spins[nb[1]]) +
		math.Cos(theta-spins[nb[2]]) +
		math.Cos(theta-spins[nb[3]]))
}

// Accept applies the Metropolis criterion to an energy change dE. Downhill
// moves are always taken; uphill moves draw u and compare it with
// exp(-dE/T). At T <= 0 only strict decreases are accepted.
func Accept(dE, T float64, src rng.Source) bool {
	if dE < 0 {
		return true
	}
	u := src.Float64()
	if T <= 0 {
		return false
	}
	return u < math.Exp(-dE/T)
}

// MetropolisSweep visits every site once in row-major order, proposing a
// uniform random offset at each.
func MetropolisSweep(l *lattice.Lattice, src rng.Source, T float64) Stats {
	var st Stats
	spins := l.Spins()
	for y := 0; y < l.H; y++ {
		for x := 0; x < l.W; x++ {
			i := y*l.W + x
			nb := l.Neighbors(x, y)
			cur := spins[i]

			e0 := LocalEnergy(spins, nb, cur)
			delta := rng.Angle(src)
			e1 := LocalEnergy(spins, nb, cur+delta)

			if Accept(e1-e0, T, src) {
				l.SetAt(i, cur+delta)
				st.Accepted++
			}
		}
	}
	st.Flipped = st.Accepted
	return st
}
