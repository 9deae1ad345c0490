package graphseg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// kernelWidth is the Gaussian half-width in units of sigma.
const kernelWidth = 4.0

// Smooth returns a Gaussian-blurred copy of buf. The blur is separable, runs
// per channel and replicates edge pixels. sigma == 0 returns an unblurred
// copy; negative sigma fails with ErrInvalidParameter. Any finite sigma is
// accepted: the mask never grows beyond the buffer's larger side.
func Smooth(buf *SampleBuffer, sigma float64) (*SampleBuffer, error) {
	if err := checkSigma(sigma); err != nil {
		return nil, err
	}
	if sigma == 0 {
		return buf.clone(), nil
	}
	dst := &SampleBuffer{}
	smoothInto(dst, &SampleBuffer{}, buf, sigma)
	return dst, nil
}

func checkSigma(sigma float64) error {
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return fmt.Errorf("%w: sigma %v", ErrInvalidParameter, sigma)
	}
	return nil
}

// gaussianKernel returns the right half of a symmetric mask, mask[0] being
// the centre tap. mask[0] + 2*sum(mask[1:]) == 1.
//
// The half-width is ceil(4*sigma) but never more than limit. With replicated
// borders every tap at distance >= limit-1 reads the edge pixel, so the
// weight of the dropped taps is added to the last one and the blur is the
// same as with the full mask.
func gaussianKernel(sigma float64, limit int) []float64 {
	limit = max(limit, 1)
	half := math.Ceil(sigma * kernelWidth)
	n := limit
	if half < float64(limit) {
		n = int(half)
	}
	// Very wide masks are summed in units of sigma to keep the total finite.
	unit := 1.0
	tail := 0.0
	if from := float64(n + 1); from <= half {
		if half-from < maxTailTaps {
			for i := from; i <= half; i++ {
				tail += gaussianTap(i, sigma)
			}
		} else {
			unit = sigma
			tail = gaussianTailOverSigma(from, half, sigma)
		}
	}
	mask := make([]float64, n+1)
	for i := range mask {
		mask[i] = gaussianTap(float64(i), sigma) / unit
	}
	mask[n] += tail
	floats.Scale(1/(2*floats.Sum(mask)-mask[0]), mask)
	return mask
}

// maxTailTaps bounds the dropped taps summed one by one.
const maxTailTaps = 1 << 16

func gaussianTap(i, sigma float64) float64 {
	t := i / sigma
	return math.Exp(-0.5 * t * t)
}

// gaussianTailOverSigma approximates sum(gaussianTap(i) for i in [a,b]) / sigma
// with the trapezoidal Euler-Maclaurin estimate; the error is O(1/sigma^2).
func gaussianTailOverSigma(a, b, sigma float64) float64 {
	integral := math.Sqrt(math.Pi/2) * (math.Erf(b/sigma/math.Sqrt2) - math.Erf(a/sigma/math.Sqrt2))
	return integral + (gaussianTap(a, sigma)+gaussianTap(b, sigma))/sigma/2
}

// smoothInto blurs src into dst using tmp as the intermediate. dst and tmp
// are reshaped to match src and may be reused across calls.
func smoothInto(dst, tmp, src *SampleBuffer, sigma float64) {
	dst.reshape(src.w, src.h, src.c)
	if sigma <= 0 {
		copy(dst.pix, src.pix)
		return
	}
	tmp.reshape(src.w, src.h, src.c)
	mask := gaussianKernel(sigma, max(src.w, src.h))
	convolveRows(tmp, src, mask)
	convolveCols(dst, tmp, mask)
}

func convolveRows(dst, src *SampleBuffer, mask []float64) {
	w, h, c := src.w, src.h, src.c
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := pixOffset(w, c, x, y)
			for ch := 0; ch < c; ch++ {
				sum := mask[0] * src.pix[off+ch]
				for i := 1; i < len(mask); i++ {
					l := pixOffset(w, c, max(x-i, 0), y)
					r := pixOffset(w, c, min(x+i, w-1), y)
					sum += mask[i] * (src.pix[l+ch] + src.pix[r+ch])
				}
				dst.pix[off+ch] = sum
			}
		}
	}
}

func convolveCols(dst, src *SampleBuffer, mask []float64) {
	w, h, c := src.w, src.h, src.c
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := pixOffset(w, c, x, y)
			for ch := 0; ch < c; ch++ {
				sum := mask[0] * src.pix[off+ch]
				for i := 1; i < len(mask); i++ {
					u := pixOffset(w, c, x, max(y-i, 0))
					d := pixOffset(w, c, x, min(y+i, h-1))
					sum += mask[i] * (src.pix[u+ch] + src.pix[d+ch])
				}
				dst.pix[off+ch] = sum
			}
		}
	}
}
