// Package render turns the spin field into RGBA rasters: a fixed hue
// wheel maps each angle to a color.
package render

import (
	"image/color"
	"math"
)

const (
	// PaletteSize is the number of hue steps around the circle.
	PaletteSize = 1536
	// Scale maps an angle in radians to a palette index.
	Scale = PaletteSize / (2 * math.Pi)
)

// Palette is an immutable RGB lookup table, three bytes per entry.
type Palette struct {
	rgb [PaletteSize * 3]byte
}

// NewPalette builds the hue wheel with entry i at H = (i+0.5)/1536·2π,
// S = 1, L = 0.5.
func NewPalette() *Palette {
	p := &Palette{}
	for i := 0; i < PaletteSize; i++ {
		h := (float64(i) + 0.5) / PaletteSize * 2 * math.Pi
		r, g, b := HSLToRGB(h, 1, 0.5)
		p.rgb[3*i] = toByte(r)
		p.rgb[3*i+1] = toByte(g)
		p.rgb[3*i+2] = toByte(b)
	}
	return p
}

// Entry returns the RGB bytes of entry i.
func (p *Palette) Entry(i int) (r, g, b byte) {
	k := 3 * i
	return p.rgb[k], p.rgb[k+1], p.rgb[k+2]
}

// Color returns entry i as an opaque color.
func (p *Palette) Color(i int) color.RGBA {
	r, g, b := p.Entry(i)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Index quantizes an angle in [0, 2π) to a palette index.
func Index(theta float64) int {
	k := int(math.Floor(theta * Scale))
	if k < 0 {
		return 0
	}
	if k >= PaletteSize {
		return PaletteSize - 1
	}
	return k
}

// HSLToRGB converts a hue in radians with saturation and lightness in
// [0, 1] to RGB channels in [0, 1].
func HSLToRGB(h, s, l float64) (r, g, b float64) {
	deg := h * 180 / math.Pi
	a := s * math.Min(l, 1-l)
	f := func(n float64) float64 {
		k := math.Mod(n+deg/30, 12)
		return l - a*math.Max(math.Min(math.Min(k-3, 9-k), 1), -1)
	}
	return f(0), f(8), f(4)
}

func toByte(c float64) byte {
	v := math.Round(c * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
