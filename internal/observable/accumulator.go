package observable

import "math"

const (
	// Bins is the number of temperature bins covering T in [0, 2].
	Bins = 201
	// BinsPerUnit is the bin density: bin i holds samples taken at T ≈ i/100.
	BinsPerUnit = 100
)

// BinIndex returns round(100·T) and whether it falls inside [0, Bins).
func BinIndex(T float64) (int, bool) {
	if math.IsNaN(T) {
		return 0, false
	}
	i := int(math.Round(BinsPerUnit * T))
	return i, i >= 0 && i < Bins
}

// BinTemperature returns the temperature bin i represents.
func BinTemperature(i int) float64 { return float64(i) / BinsPerUnit }

// Bin holds the running moments of one temperature bin.
type Bin struct {
	Sum      float64
	Sum2     float64
	Count    int
	Response float64
}

// Mean returns Sum/Count. ok is false for empty bins and bins whose sum is
// exactly zero; both are published as null.
func (b Bin) Mean() (mean float64, ok bool) {
	if b.Count == 0 || b.Sum == 0 {
		return 0, false
	}
	return b.Sum / float64(b.Count), true
}

// HasResponse reports whether the response function is publishable.
func (b Bin) HasResponse() bool {
	return b.Response != 0 && !math.IsNaN(b.Response) && !math.IsInf(b.Response, 0)
}

// Accumulator aggregates one observable into per-temperature bins and
// derives the response function from the second moment.
type Accumulator struct {
	obs   Observable
	sites int
	bins  [Bins]Bin
}

// NewAccumulator returns an empty accumulator for a lattice of the given
// number of sites.
func NewAccumulator(obs Observable, sites int) *Accumulator {
	return &Accumulator{obs: obs, sites: sites}
}

// Observable returns the accumulated observable.
func (a *Accumulator) Observable() Observable { return a.obs }

// Sites returns the lattice size used in the response function.
func (a *Accumulator) Sites() int { return a.sites }

// Reset clears every bin and rebinds the observable and lattice size.
func (a *Accumulator) Reset(obs Observable, sites int) {
	a.obs = obs
	a.sites = sites
	a.bins = [Bins]Bin{}
}

// varianceTolerance is the relative size below which ⟨O²⟩ - ⟨O⟩² is
// cancellation noise and counts as zero.
const varianceTolerance = 1e-12

// Record adds value to the bin of temperature T and refreshes that bin's
// response function, (⟨O²⟩ - ⟨O⟩²)·N / T^p. Samples that round into the
// T=0 bin, fall outside [0, 2] or are NaN are dropped; the returned index
// is meaningful only when ok.
func (a *Accumulator) Record(T, value float64) (idx int, ok bool) {
	if T <= 0 || math.IsNaN(value) {
		return 0, false
	}
	idx, ok = BinIndex(T)
	if !ok || idx == 0 {
		return idx, false
	}

	b := &a.bins[idx]
	b.Sum += value
	b.Sum2 += value * value
	b.Count++

	n := float64(b.Count)
	mean := b.Sum / n
	second := b.Sum2 / n
	variance := second - mean*mean
	if variance <= varianceTolerance*second {
		variance = 0
	}
	b.Response = variance * float64(a.sites) / math.Pow(T, float64(a.obs.ResponsePower()))
	return idx, true
}

// Bin returns a copy of bin i.
func (a *Accumulator) Bin(i int) Bin { return a.bins[i] }

// Bins returns a copy of all bins.
func (a *Accumulator) Bins() []Bin {
	out := make([]Bin, Bins)
	copy(out, a.bins[:])
	return out
}

// Samples returns the total number of recorded samples.
func (a *Accumulator) Samples() int {
	n := 0
	for i := range a.bins {
		n += a.bins[i].Count
	}
	return n
}

// Means returns the per-bin means with nil for unpublishable bins.
func (a *Accumulator) Means() []*float64 {
	out := make([]*float64, Bins)
	for i := range a.bins {
		if m, ok := a.bins[i].Mean(); ok {
			out[i] = &m
		}
	}
	return out
}

// Responses returns the per-bin response functions with nil for bins whose
// variance is zero or undefined.
func (a *Accumulator) Responses() []*float64 {
	out := make([]*float64, Bins)
	for i := range a.bins {
		if a.bins[i].HasResponse() {
			r := a.bins[i].Response
			out[i] = &r
		}
	}
	return out
}
