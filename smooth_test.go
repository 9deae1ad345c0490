package graphseg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestGaussianKernel(t *testing.T) {
	for _, sigma := range []float64{0.3, 0.8, 1, 2.5} {
		mask := gaussianKernel(sigma, 100)
		assert.Len(t, mask, int(math.Ceil(4*sigma))+1, "sigma %v", sigma)
		assert.InDelta(t, 1, 2*floats.Sum(mask)-mask[0], 1e-12, "sigma %v", sigma)
		for i := 1; i < len(mask); i++ {
			assert.Less(t, mask[i], mask[i-1])
		}
	}
	assert.Len(t, gaussianKernel(0.8, 100), 5)
}

func TestGaussianKernel_Capped(t *testing.T) {
	full := gaussianKernel(3, 100)
	require.Len(t, full, 13)

	capped := gaussianKernel(3, 4)
	require.Len(t, capped, 5)
	assert.InDelta(t, 1, 2*floats.Sum(capped)-capped[0], 1e-12)
	assert.InDeltaSlice(t, full[:4], capped[:4], 1e-12)
	assert.InDelta(t, floats.Sum(full[4:]), capped[4], 1e-12)

	for _, sigma := range []float64{1e5, 1e300, math.MaxFloat64} {
		mask := gaussianKernel(sigma, 3)
		require.Len(t, mask, 4, "sigma %v", sigma)
		for _, v := range mask {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "sigma %v", sigma)
		}
		assert.InDelta(t, 1, 2*floats.Sum(mask)-mask[0], 1e-9, "sigma %v", sigma)
	}
}

func spikeBuffer(n int, v float64) *SampleBuffer {
	grid := make([][][]float64, n)
	for y := 0; y < n; y++ {
		grid[y] = make([][]float64, n)
		for x := 0; x < n; x++ {
			grid[y][x] = []float64{0}
		}
	}
	grid[n/2][n/2][0] = v
	b, _ := NewSampleBuffer(grid)
	return b
}

func TestSmooth_ZeroSigmaCopies(t *testing.T) {
	src := spikeBuffer(5, 100)
	out, err := Smooth(src, 0)
	require.NoError(t, err)
	assert.Equal(t, src.Samples(), out.Samples())
	assert.NotEqual(t, src.Token(), out.Token())
}

func TestSmooth_InvalidSigma(t *testing.T) {
	src := spikeBuffer(3, 1)
	for _, sigma := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := Smooth(src, sigma)
		assert.ErrorIs(t, err, ErrInvalidParameter, "sigma %v", sigma)
	}
}

func TestSmooth_ConstantPreserved(t *testing.T) {
	grid := [][][]float64{
		{{42, 7}, {42, 7}, {42, 7}},
		{{42, 7}, {42, 7}, {42, 7}},
	}
	src, err := NewSampleBuffer(grid)
	require.NoError(t, err)
	out, err := Smooth(src, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Width())
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, 2, out.Channels())
	for i, v := range out.Samples() {
		want := 42.0
		if i%2 == 1 {
			want = 7
		}
		assert.InDelta(t, want, v, 1e-4)
	}
}

func TestSmooth_SpikeSpreadsSymmetrically(t *testing.T) {
	src := spikeBuffer(9, 100)
	out, err := Smooth(src, 0.8)
	require.NoError(t, err)

	var total float64
	for _, v := range out.Samples() {
		total += float64(v)
	}
	assert.InDelta(t, 100, total, 1e-3)

	centre := out.At(4, 4)[0]
	assert.Less(t, centre, 100.0)
	for d := 1; d <= 4; d++ {
		left, right := out.At(4-d, 4)[0], out.At(4+d, 4)[0]
		up, down := out.At(4, 4-d)[0], out.At(4, 4+d)[0]
		assert.InDelta(t, left, right, 1e-5)
		assert.InDelta(t, left, up, 1e-5)
		assert.InDelta(t, up, down, 1e-5)
		assert.Less(t, left, centre)
	}
	// source untouched
	assert.Equal(t, []float64{100}, src.At(4, 4))
}

func TestSmooth_WideSigmaMatchesFullMask(t *testing.T) {
	src, err := NewSampleBuffer([][][]float64{
		{{1}, {9}, {4}},
		{{16}, {2}, {7}},
		{{0}, {5}, {12}},
		{{3}, {8}, {6}},
	})
	require.NoError(t, err)
	const sigma = 2.5

	want, tmp := newSampleBuffer(3, 4, 1), newSampleBuffer(3, 4, 1)
	mask := gaussianKernel(sigma, 1<<20)
	require.Len(t, mask, 11)
	convolveRows(tmp, src, mask)
	convolveCols(want, tmp, mask)

	got, err := Smooth(src, sigma)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Samples(), got.Samples(), 1e-9)
}

func TestSmooth_HugeSigma(t *testing.T) {
	src, err := NewSampleBuffer([][][]float64{{{0}, {10}}, {{20}, {30}}})
	require.NoError(t, err)
	for _, sigma := range []float64{1e5, 1e300, math.MaxFloat64} {
		out, err := Smooth(src, sigma)
		require.NoError(t, err, "sigma %v", sigma)
		assert.Equal(t, 2, out.Width())
		assert.Equal(t, 2, out.Height())
		// the blur flattens to the mean of the corners
		for _, v := range out.Samples() {
			assert.InDelta(t, 15, v, 1e-3, "sigma %v", sigma)
		}
	}
}

func TestSmoothInto_ReusesStorage(t *testing.T) {
	src := spikeBuffer(6, 10)
	dst, tmp := &SampleBuffer{}, &SampleBuffer{}
	smoothInto(dst, tmp, src, 1)
	tok := dst.Token()
	smoothInto(dst, tmp, spikeBuffer(4, 10), 1)
	assert.Equal(t, tok, dst.Token())
	assert.Equal(t, 16, dst.Len())
}
