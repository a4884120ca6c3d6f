package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// PlotSeries charts a per-bin series against temperature. Null bins become
// gaps; leading and trailing nulls are trimmed. It returns "" when fewer than
// two bins carry values.
func PlotSeries(ys []*float64, caption string, width, height int) string {
	first, last := -1, -1
	n := 0
	for i, y := range ys {
		if y == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		n++
	}
	if n < 2 {
		return ""
	}

	data := make([]float64, 0, last-first+1)
	for _, y := range ys[first : last+1] {
		if y == nil {
			data = append(data, math.NaN())
			continue
		}
		data = append(data, *y)
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.Precision(3),
	)
}

// Count returns how many entries of ys are non-null.
func Count(ys []*float64) int {
	n := 0
	for _, y := range ys {
		if y != nil {
			n++
		}
	}
	return n
}
