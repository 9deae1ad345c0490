package graphseg

import (
	"fmt"
	"image"
	"math"
)

// MaxSamples bounds the number of samples a single buffer may hold.
const MaxSamples = math.MaxInt32

// Token identifies the backing array of a SampleBuffer. Tokens compare equal
// only when they refer to the same allocation, so a renew that reuses storage
// keeps the token and a renew that reallocates changes it.
type Token struct {
	p *float64
}

// SampleBuffer is a contiguous width × height × channel grid of samples,
// interleaved per pixel: Pix[(y*W+x)*C+ch].
//
// Its capacity may exceed its logical length; Renew reuses the allocation
// whenever the new grid fits.
type SampleBuffer struct {
	w, h, c int
	pix     []float64
}

// NewSampleBuffer copies a rectangular [row][column][channel] grid into a new
// buffer. A grid with no rows or no columns yields an empty buffer.
func NewSampleBuffer(grid [][][]float64) (*SampleBuffer, error) {
	b := &SampleBuffer{}
	if err := b.Renew(grid); err != nil {
		return nil, err
	}
	return b, nil
}

func newSampleBuffer(w, h, c int) *SampleBuffer {
	b := &SampleBuffer{}
	b.reshape(w, h, c)
	return b
}

// Renew replaces the contents and shape of b with grid. Storage is reused
// when w*h*c fits in the current capacity. On error b is left unchanged.
func (b *SampleBuffer) Renew(grid [][][]float64) error {
	w, h, c, err := checkGrid(grid)
	if err != nil {
		return err
	}
	b.reshape(w, h, c)
	b.fillGrid(grid)
	return nil
}

// RenewImage is Renew for an image; the buffer becomes 3-channel RGB with
// samples in [0,255].
func (b *SampleBuffer) RenewImage(img image.Image) error {
	bounds := img.Bounds()
	if _, ok := sampleCount(bounds.Dx(), bounds.Dy(), 3); !ok {
		return fmt.Errorf("%w: %dx%d image", ErrAllocation, bounds.Dx(), bounds.Dy())
	}
	b.reshape(bounds.Dx(), bounds.Dy(), 3)
	b.fillImage(img)
	return nil
}

// Width returns the number of columns.
func (b *SampleBuffer) Width() int { return b.w }

// Height returns the number of rows.
func (b *SampleBuffer) Height() int { return b.h }

// Channels returns the number of samples per pixel.
func (b *SampleBuffer) Channels() int { return b.c }

// Len returns width*height*channels.
func (b *SampleBuffer) Len() int { return len(b.pix) }

// Cap returns the number of samples the current allocation can hold.
func (b *SampleBuffer) Cap() int { return cap(b.pix) }

// Token returns the identity of the current allocation.
func (b *SampleBuffer) Token() Token {
	if cap(b.pix) == 0 {
		return Token{}
	}
	return Token{p: &b.pix[:1][0]}
}

// Samples returns the interleaved samples. The slice aliases the buffer and
// must not be modified; it is invalidated by the next Renew.
func (b *SampleBuffer) Samples() []float64 { return b.pix }

// At returns a copy of the channels of pixel (x,y).
func (b *SampleBuffer) At(x, y int) []float64 {
	off := pixOffset(b.w, b.c, x, y)
	out := make([]float64, b.c)
	copy(out, b.pix[off:off+b.c])
	return out
}

// Grid returns the contents as a freshly allocated [row][column][channel] grid.
func (b *SampleBuffer) Grid() [][][]float64 {
	grid := make([][][]float64, b.h)
	for y := 0; y < b.h; y++ {
		row := make([][]float64, b.w)
		for x := 0; x < b.w; x++ {
			off := pixOffset(b.w, b.c, x, y)
			row[x] = append([]float64(nil), b.pix[off:off+b.c]...)
		}
		grid[y] = row
	}
	return grid
}

func (b *SampleBuffer) clone() *SampleBuffer {
	out := newSampleBuffer(b.w, b.h, b.c)
	copy(out.pix, b.pix)
	return out
}

// reshape sets the shape, reslicing in place when the allocation is large
// enough. Callers overwrite every sample afterwards.
func (b *SampleBuffer) reshape(w, h, c int) {
	n := w * h * c
	if n <= cap(b.pix) {
		b.pix = b.pix[:n]
	} else {
		b.pix = make([]float64, n)
	}
	b.w, b.h, b.c = w, h, c
}

func (b *SampleBuffer) fillGrid(grid [][][]float64) {
	i := 0
	for _, row := range grid {
		for _, px := range row {
			for _, v := range px {
				b.pix[i] = v
				i++
			}
		}
	}
}

func (b *SampleBuffer) fillImage(img image.Image) {
	bounds := img.Bounds()
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := pixOffset(b.w, 3, x, y)
			b.pix[off] = float64(r >> 8)
			b.pix[off+1] = float64(g >> 8)
			b.pix[off+2] = float64(bl >> 8)
		}
	}
}

func pixOffset(w, c, x, y int) int {
	return (y*w + x) * c
}

// checkGrid validates grid and returns its shape. Empty grids are accepted
// with a channel count of zero; samples must be finite.
func checkGrid(grid [][][]float64) (w, h, c int, err error) {
	h = len(grid)
	if h == 0 {
		return 0, 0, 0, nil
	}
	w = len(grid[0])
	if w > 0 {
		c = len(grid[0][0])
		if c == 0 {
			return 0, 0, 0, fmt.Errorf("%w: pixel (0,0) has no channels", ErrShape)
		}
	}
	for y, row := range grid {
		if len(row) != w {
			return 0, 0, 0, fmt.Errorf("%w: row %d has %d pixels, want %d", ErrShape, y, len(row), w)
		}
		for x, px := range row {
			if len(px) != c {
				return 0, 0, 0, fmt.Errorf("%w: pixel (%d,%d) has %d channels, want %d", ErrShape, x, y, len(px), c)
			}
			for ch, v := range px {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return 0, 0, 0, fmt.Errorf("%w: pixel (%d,%d) channel %d is %v", ErrShape, x, y, ch, v)
				}
			}
		}
	}
	if w == 0 {
		return 0, h, 0, nil
	}
	if _, ok := sampleCount(w, h, c); !ok {
		return 0, 0, 0, fmt.Errorf("%w: %dx%dx%d samples", ErrAllocation, w, h, c)
	}
	return w, h, c, nil
}

// sampleCount returns w*h*c, reporting false on overflow or when the product
// exceeds MaxSamples.
func sampleCount(w, h, c int) (int, bool) {
	if w < 0 || h < 0 || c < 0 {
		return 0, false
	}
	n := 1
	for _, d := range [...]int{w, h, c} {
		if d == 0 {
			return 0, true
		}
		if n > MaxSamples/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}
