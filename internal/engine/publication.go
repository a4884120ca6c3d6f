package engine

import "github.com/san-kum/xysim/internal/observable"

// Series is one per-bin curve; nil entries are published as null.
type Series struct {
	Y []*float64 `json:"y"`
}

// Publication is a partial snapshot of the engine. Nil fields mean
// unchanged.
type Publication struct {
	T          *float64 `json:"T,omitempty"`
	IsPlaying  *bool    `json:"isPlaying,omitempty"`
	Observable *Series  `json:"observable,omitempty"`
	Variance   *Series  `json:"variance,omitempty"`
}

// Publisher receives publications on the engine's goroutine.
type Publisher interface {
	Publish(Publication)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Publication)

func (f PublisherFunc) Publish(p Publication) { f(p) }

// FrameSink receives a W·H·4 RGBA raster after each render. The buffer is
// reused by the engine; sinks that keep it must copy.
type FrameSink interface {
	Frame(pix []byte, w, h int)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(pix []byte, w, h int)

func (f FrameSinkFunc) Frame(pix []byte, w, h int) { f(pix, w, h) }

func nullSeries() *Series {
	return &Series{Y: make([]*float64, observable.Bins)}
}

func ptr[T any](v T) *T { return &v }
