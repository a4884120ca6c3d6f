package render

import (
	"image"
	"image/png"
	"io"

	"github.com/san-kum/xysim/internal/lattice"
)

// Renderer owns a W·H·4 RGBA buffer. Alpha is written once when the buffer
// is allocated; Render only touches the color channels.
type Renderer struct {
	palette *Palette
	w, h    int
	pix     []byte
}

// NewRenderer allocates an opaque buffer for a w×h lattice.
func NewRenderer(p *Palette, w, h int) *Renderer {
	r := &Renderer{palette: p}
	r.Resize(w, h)
	return r
}

// Resize reallocates the buffer. Same-size calls keep the current buffer.
func (r *Renderer) Resize(w, h int) {
	if w == r.w && h == r.h && r.pix != nil {
		return
	}
	r.w, r.h = w, h
	r.pix = make([]byte, w*h*4)
	for i := 3; i < len(r.pix); i += 4 {
		r.pix[i] = 0xff
	}
}

// Render paints l into the buffer and returns it. The buffer follows the
// lattice geometry.
func (r *Renderer) Render(l *lattice.Lattice) []byte {
	r.Resize(l.W, l.H)
	pal := &r.palette.rgb
	pix := r.pix
	for i, theta := range l.Spins() {
		k := Index(theta) * 3
		o := i * 4
		pix[o] = pal[k]
		pix[o+1] = pal[k+1]
		pix[o+2] = pal[k+2]
	}
	return pix
}

// Pixels returns the current buffer without repainting.
func (r *Renderer) Pixels() []byte { return r.pix }

// Bounds returns the buffer geometry.
func (r *Renderer) Bounds() (w, h int) { return r.w, r.h }

// Image wraps the buffer as an image sharing its memory.
func (r *Renderer) Image() *image.RGBA {
	return FrameImage(r.pix, r.w, r.h)
}

// FrameImage wraps an RGBA byte buffer of size w·h·4.
func FrameImage(pix []byte, w, h int) *image.RGBA {
	return &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
}

// WritePNG encodes an RGBA frame as PNG.
func WritePNG(w io.Writer, pix []byte, width, height int) error {
	return png.Encode(w, FrameImage(pix, width, height))
}
