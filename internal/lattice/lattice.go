// Package lattice owns the XY spin field: a square W×H grid of angles in
// [0, 2π) with periodic boundaries, stored row-major.
package lattice

import (
	"errors"
	"math"

	"github.com/san-kum/xysim/internal/rng"
)

const twoPi = 2 * math.Pi

// Sizes lists the accepted lattice edge lengths.
var Sizes = []int{32, 64, 128, 256, 512}

// ErrInvalidSize indicates a requested lattice size outside [Sizes] or a
// non-square request.
var ErrInvalidSize = errors.New("lattice: invalid size")

// ValidSize reports whether w×h is an accepted lattice geometry.
func ValidSize(w, h int) bool {
	if w != h {
		return false
	}
	for _, s := range Sizes {
		if w == s {
			return true
		}
	}
	return false
}

// Normalize maps any finite angle into [0, 2π).
func Normalize(theta float64) float64 {
	theta = math.Mod(math.Mod(theta, twoPi)+twoPi, twoPi)
	// math.Mod can return exactly 2π for tiny negative inputs after the shift.
	if theta >= twoPi {
		return 0
	}
	return theta
}

// Lattice stores the spin field in row-major order.
type Lattice struct {
	W, H  int
	spins []float64
}

// New allocates a zeroed lattice. It returns ErrInvalidSize for geometries
// outside [Sizes].
func New(w, h int) (*Lattice, error) {
	if !ValidSize(w, h) {
		return nil, ErrInvalidSize
	}
	return &Lattice{W: w, H: h, spins: make([]float64, w*h)}, nil
}

// Size returns the number of sites.
func (l *Lattice) Size() int { return len(l.spins) }

// Index returns the linear index of (x, y).
func (l *Lattice) Index(x, y int) int { return y*l.W + x }

// Get returns the spin at (x, y).
func (l *Lattice) Get(x, y int) float64 { return l.spins[y*l.W+x] }

// Set stores theta at (x, y) after normalizing it into [0, 2π).
func (l *Lattice) Set(x, y int, theta float64) { l.spins[y*l.W+x] = Normalize(theta) }

// At returns the spin at linear index i.
func (l *Lattice) At(i int) float64 { return l.spins[i] }

// SetAt stores theta at linear index i after normalizing it.
func (l *Lattice) SetAt(i int, theta float64) { l.spins[i] = Normalize(theta) }

// Spins exposes the backing slice for read-only sweeps. Writers must go
// through Set/SetAt to keep the range invariant.
func (l *Lattice) Spins() []float64 { return l.spins }

// Neighbors returns the indices of the four periodic neighbors of (x, y)
// in the order top, right, bottom, left.
func (l *Lattice) Neighbors(x, y int) [4]int {
	w, h := l.W, l.H
	return [4]int{
		((y-1+h)%h)*w + x,
		y*w + (x+1)%w,
		((y+1)%h)*w + x,
		y*w + (x-1+w)%w,
	}
}

// NeighborsOf is Neighbors for a linear index.
func (l *Lattice) NeighborsOf(i int) [4]int {
	return l.Neighbors(i%l.W, i/l.W)
}

// Resize discards all content and reallocates a zeroed field. Invalid
// geometries are rejected and leave the lattice untouched.
func (l *Lattice) Resize(w, h int) error {
	if !ValidSize(w, h) {
		return ErrInvalidSize
	}
	l.W, l.H = w, h
	l.spins = make([]float64, w*h)
	return nil
}

// Each calls f for every site in row-major order.
func (l *Lattice) Each(f func(x, y int, theta float64)) {
	for y := 0; y < l.H; y++ {
		row := l.spins[y*l.W : (y+1)*l.W]
		for x, theta := range row {
			f(x, y, theta)
		}
	}
}

// Fill sets every spin to theta.
func (l *Lattice) Fill(theta float64) {
	theta = Normalize(theta)
	for i := range l.spins {
		l.spins[i] = theta
	}
}

// Randomize draws every spin uniformly from [0, 2π).
func (l *Lattice) Randomize(src rng.Source) {
	for i := range l.spins {
		l.spins[i] = rng.Angle(src)
	}
}

// Align sets all spins to one random angle.
func (l *Lattice) Align(src rng.Source) {
	l.Fill(rng.Angle(src))
}

// Clone returns a deep copy.
func (l *Lattice) Clone() *Lattice {
	c := &Lattice{W: l.W, H: l.H, spins: make([]float64, len(l.spins))}
	copy(c.spins, l.spins)
	return c
}
