// Package kernel implements the Markov-chain update rules for the XY model
// with Hamiltonian H = -Σ<ij> cos(θi - θj).
//
// Two kernels are available:
//
//   - [Metropolis]: one step is a single-site sweep over every site in
//     row-major order.
//   - [Wolff]: one step grows and reflects embedded clusters until roughly
//     W·H spins have been flipped.
//
// The Wolff reflection is θ' = 2r + π - θ, a mirror across the line
// perpendicular to r. This differs from the textbook 2r - θ (a mirror
// across r itself) by π; the bond test is written to match.
//
// Both leave every spin in [0, 2π).
package kernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/rng"
)

// ErrUnknownKernel indicates a kernel name that does not parse.
var ErrUnknownKernel = errors.New("kernel: unknown kernel")

// Kernel selects the update rule.
type Kernel uint8

const (
	Metropolis Kernel = iota
	Wolff
)

func (k Kernel) String() string {
	switch k {
	case Metropolis:
		return "Metropolis"
	case Wolff:
		return "Wolff"
	default:
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
}

// Parse resolves a kernel by name, case-insensitively.
func Parse(name string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "metropolis":
		return Metropolis, nil
	case "wolff":
		return Wolff, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
}

// Names lists the accepted kernel names.
func Names() []string { return []string{"metropolis", "wolff"} }

// Stats summarizes one step.
type Stats struct {
	// Accepted counts accepted Metropolis proposals.
	Accepted int
	// Clusters counts Wolff clusters grown.
	Clusters int
	// Flipped counts reflected spins (Wolff) or accepted moves (Metropolis).
	Flipped int
}

// Stepper advances a lattice by one logical step. It keeps scratch buffers
// for cluster growth so repeated steps do not allocate; a Stepper must not be
// shared between goroutines.
type Stepper struct {
	mark  []uint8
	queue []int
}

// NewStepper returns a Stepper with empty scratch space.
func NewStepper() *Stepper { return &Stepper{} }

// Step advances l by one step of kernel k at temperature T.
func (s *Stepper) Step(k Kernel, l *lattice.Lattice, src rng.Source, T float64) Stats {
	switch k {
	case Wolff:
		return s.Wolff(l, src, T)
	default:
		return MetropolisSweep(l, src, T)
	}
}
