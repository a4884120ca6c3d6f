package kernel

import (
	"math"

	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/rng"
)

const (
	unvisited uint8 = iota
	pending
	inCluster
)

// Reflect flips the component of the spin along the unit vector at angle r,
// θ' = 2r + π - θ, normalized to [0, 2π). Reflect(Reflect(θ, r), r) == θ
// modulo 2π, and cos(r - θ') == -cos(r - θ).
func Reflect(theta, r float64) float64 {
	return lattice.Normalize(2*r + math.Pi - theta)
}

// BondProbability returns the probability of adding a neighbor to a cluster
// given a = cos(r - θs)·cos(r - θn) with θs the cluster spin before its
// reflection: 1 - exp(min(0, -(2/T)·a)). Written against the reflected spin
// this is the usual 1 - exp(min(0, (2/T)·cos(r - θs')·cos(r - θn))). At
// T <= 0 parallel projections always bond.
func BondProbability(T, a float64) float64 {
	if a <= 0 {
		return 0
	}
	if T <= 0 {
		return 1
	}
	return 1 - math.Exp(-2*a/T)
}

// Wolff grows clusters about random reflection axes until the number of
// flipped spins covers the lattice. The loop stops once
// flipped·(1 + 1/iterations) >= W·H, so each further cluster has to be
// smaller for growth to continue.
func (s *Stepper) Wolff(l *lattice.Lattice, src rng.Source, T float64) Stats {
	n := l.Size()
	if len(s.mark) != n {
		s.mark = make([]uint8, n)
		s.queue = make([]int, 0, 64)
	}

	var st Stats
	for {
		r := rng.Angle(src)
		size := s.grow(l, src, T, r, src.IntN(n))
		st.Clusters++
		st.Flipped += size
		if float64(st.Flipped)*(1+1/float64(st.Clusters)) >= float64(n) {
			break
		}
	}
	return st
}

// grow builds one cluster from seed. Sites are reflected as they are
// dequeued; the bond test uses the dequeued site's pre-reflection angle.
func (s *Stepper) grow(l *lattice.Lattice, src rng.Source, T, r float64, seed int) int {
	spins := l.Spins()
	queue := append(s.queue[:0], seed)
	s.mark[seed] = pending

	for head := 0; head < len(queue); head++ {
		site := queue[head]
		pre := spins[site]
		l.SetAt(site, Reflect(pre, r))
		s.mark[site] = inCluster

		proj := math.Cos(r - pre)
		for _, nb := range l.NeighborsOf(site) {
			if s.mark[nb] != unvisited {
				continue
			}
			if src.Float64() < BondProbability(T, proj*math.Cos(r-spins[nb])) {
				s.mark[nb] = pending
				queue = append(queue, nb)
			}
		}
	}

	for _, site := range queue {
		s.mark[site] = unvisited
	}
	s.queue = queue
	return len(queue)
}
