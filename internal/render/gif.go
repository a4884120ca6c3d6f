package render

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
)

// gifColors is the size of a GIF color table; the hue wheel is subsampled
// to fit.
const gifColors = 256

// ErrNoFrames is returned when encoding an empty recording.
var ErrNoFrames = errors.New("render: no frames recorded")

// Recorder collects RGBA frames into an animated GIF.
type Recorder struct {
	Delay  int // per frame, in 1/100 s
	Limit  int // maximum frames kept, 0 for no limit
	pal    color.Palette
	lookup map[uint32]uint8
	frames []*image.Paletted
}

// NewRecorder builds a recorder whose color table is p sampled every
// PaletteSize/256 entries.
func NewRecorder(p *Palette, delay int) *Recorder {
	step := PaletteSize / gifColors
	r := &Recorder{
		Delay:  delay,
		pal:    make(color.Palette, 0, gifColors),
		lookup: make(map[uint32]uint8, PaletteSize),
	}
	for i := 0; i < gifColors; i++ {
		r.pal = append(r.pal, p.Color(i*step+step/2))
	}
	for i := 0; i < PaletteSize; i++ {
		key := rgbKey(p.Entry(i))
		if _, ok := r.lookup[key]; !ok {
			r.lookup[key] = uint8(i / step)
		}
	}
	return r
}

func rgbKey(r, g, b byte) uint32 { return uint32(r)<<16 | uint32(g)<<8 | uint32(b) }

// Add appends one w×h RGBA frame. Colors outside the hue wheel fall back to
// the nearest table entry.
func (r *Recorder) Add(pix []byte, w, h int) {
	if r.Limit > 0 && len(r.frames) >= r.Limit {
		return
	}
	img := image.NewPaletted(image.Rect(0, 0, w, h), r.pal)
	for i := 0; i < w*h; i++ {
		o := i * 4
		idx, ok := r.lookup[rgbKey(pix[o], pix[o+1], pix[o+2])]
		if !ok {
			idx = uint8(r.pal.Index(color.RGBA{R: pix[o], G: pix[o+1], B: pix[o+2], A: 0xff}))
		}
		img.Pix[i] = idx
	}
	r.frames = append(r.frames, img)
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int { return len(r.frames) }

// Reset drops all frames.
func (r *Recorder) Reset() { r.frames = nil }

// Encode writes the recording as a looping GIF.
func (r *Recorder) Encode(w io.Writer) error {
	if len(r.frames) == 0 {
		return ErrNoFrames
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.Delay)
	}
	return gif.EncodeAll(w, &anim)
}
