package graphseg

import (
	"fmt"
	"image"
	"image/color"
)

// FromImage converts img into a 3-channel RGB buffer with samples in [0,255].
func FromImage(img image.Image) (*SampleBuffer, error) {
	b := &SampleBuffer{}
	if err := b.RenewImage(img); err != nil {
		return nil, err
	}
	return b, nil
}

// GridFromImage converts img into a [row][column][R,G,B] grid in [0,255].
func GridFromImage(img image.Image) ([][][]float64, error) {
	b, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	return b.Grid(), nil
}

// Image converts a 1-, 3- or 4-channel buffer into an NRGBA image. Samples
// are rounded and clamped to [0,255]; single-channel buffers become grey.
func (b *SampleBuffer) Image() (*image.NRGBA, error) {
	if b.c != 1 && b.c != 3 && b.c != 4 {
		return nil, fmt.Errorf("%w: cannot convert %d channels to an image", ErrInvalidParameter, b.c)
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.w, b.h))
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			off := pixOffset(b.w, b.c, x, y)
			var c color.NRGBA
			switch b.c {
			case 1:
				v := clampByte(b.pix[off])
				c = color.NRGBA{R: v, G: v, B: v, A: 255}
			case 3:
				c = color.NRGBA{R: clampByte(b.pix[off]), G: clampByte(b.pix[off+1]), B: clampByte(b.pix[off+2]), A: 255}
			case 4:
				c = color.NRGBA{R: clampByte(b.pix[off]), G: clampByte(b.pix[off+1]), B: clampByte(b.pix[off+2]), A: clampByte(b.pix[off+3])}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

func clampByte(v float64) uint8 {
	return uint8(max(0, min(255, v+0.5)))
}
