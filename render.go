package graphseg

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RenderMode selects how Render colours segments.
type RenderMode int

const (
	// RenderMeanColor paints each pixel with the mean samples of its segment.
	RenderMeanColor RenderMode = iota
	// RenderIdentity returns the source samples unchanged; segment boundaries
	// are available through Labels.
	RenderIdentity
	// RenderRandomColor paints each segment with a colour derived from its
	// representative, stable across calls.
	RenderRandomColor
)

func (m RenderMode) String() string {
	switch m {
	case RenderIdentity:
		return "identity"
	case RenderRandomColor:
		return "random"
	default:
		return "mean"
	}
}

// ParseRenderMode maps a mode name back to its value.
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(s) {
	case "mean", "mix", "mix_color":
		return RenderMeanColor, nil
	case "identity", "source":
		return RenderIdentity, nil
	case "random":
		return RenderRandomColor, nil
	}
	return 0, fmt.Errorf("%w: unknown render mode %q", ErrInvalidParameter, s)
}

// Render returns a new buffer with the shape of the segmented grid.
func (r *Result) Render(mode RenderMode) (*SampleBuffer, error) {
	out := newSampleBuffer(r.w, r.h, r.c)
	switch mode {
	case RenderIdentity:
		copy(out.pix, r.pix)
	case RenderMeanColor:
		r.paint(out, r.means())
	case RenderRandomColor:
		r.paint(out, r.randomColors())
	default:
		return nil, fmt.Errorf("%w: render mode %d", ErrInvalidParameter, mode)
	}
	return out, nil
}

// RenderPalette paints each segment with the palette colour nearest, in
// L*a*b*, to the segment's mean. The grid must be RGB with samples in [0,255].
func (r *Result) RenderPalette(palette []colorful.Color) (*SampleBuffer, error) {
	if r.c != 3 {
		return nil, fmt.Errorf("%w: palette rendering needs 3 channels, got %d", ErrInvalidParameter, r.c)
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrInvalidParameter)
	}
	means := r.means()
	colors := make([]float64, len(means))
	for s := range r.segments {
		mean := colorful.Color{
			R: means[s*3] / 255.0,
			G: means[s*3+1] / 255.0,
			B: means[s*3+2] / 255.0,
		}.Clamped()
		best, bestD := 0, math.MaxFloat64
		for i, p := range palette {
			if d := mean.DistanceLab(p); d < bestD {
				best, bestD = i, d
			}
		}
		p := palette[best].Clamped()
		colors[s*3] = p.R * 255
		colors[s*3+1] = p.G * 255
		colors[s*3+2] = p.B * 255
	}
	out := newSampleBuffer(r.w, r.h, r.c)
	r.paint(out, colors)
	return out, nil
}

// paint writes colors[segment*c : segment*c+c] to every member pixel.
func (r *Result) paint(out *SampleBuffer, colors []float64) {
	for v, s := range r.index {
		off := v * r.c
		for ch := 0; ch < r.c; ch++ {
			out.pix[off+ch] = colors[s*r.c+ch]
		}
	}
}

func (r *Result) randomColors() []float64 {
	out := make([]float64, len(r.segments)*r.c)
	for s, seg := range r.segments {
		rng := rand.New(rand.NewSource(int64(seg.Representative) + 1))
		if r.c == 3 {
			col := colorful.Hsv(rng.Float64()*360, 0.5+0.5*rng.Float64(), 0.6+0.4*rng.Float64())
			out[s*3] = col.R * 255
			out[s*3+1] = col.G * 255
			out[s*3+2] = col.B * 255
			continue
		}
		for ch := 0; ch < r.c; ch++ {
			out[s*r.c+ch] = math.Floor(rng.Float64() * 256)
		}
	}
	return out
}
