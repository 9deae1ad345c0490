package graphseg_test

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/graphseg"
)

// stripesGrid builds a 6×2 grid of three 2-pixel-wide vertical stripes with
// values 0, 10 and 30 in every channel:
//
//	A A B B C C
//	A A B B C C
//
// Flat stripes always merge; the stripes themselves merge depending on k:
// A|B at k >= 40, then AB|C once min(10+k/8, k/4) >= 20, i.e. k >= 80.
func stripesGrid(c int) [][][]float64 {
	values := []float64{0, 0, 10, 10, 30, 30}
	grid := make([][][]float64, 2)
	for y := range grid {
		grid[y] = make([][]float64, len(values))
		for x, v := range values {
			px := make([]float64, c)
			for ch := range px {
				px[ch] = v
			}
			grid[y][x] = px
		}
	}
	return grid
}

func randomGrid(r *rand.Rand, w, h, c int) [][][]float64 {
	grid := make([][][]float64, h)
	for y := range grid {
		grid[y] = make([][]float64, w)
		for x := range grid[y] {
			px := make([]float64, c)
			for ch := range px {
				px[ch] = float64(r.Intn(256))
			}
			grid[y][x] = px
		}
	}
	return grid
}

func members(res *graphseg.Result) [][]int {
	var out [][]int
	for _, s := range res.Segments() {
		out = append(out, s.Members)
	}
	return out
}

// assertPartition checks that every vertex is in exactly one segment and
// that labels agree with segment membership.
func assertPartition(t *testing.T, res *graphseg.Result, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, s := range res.Segments() {
		assert.True(t, slices.IsSorted(s.Members))
		assert.Contains(t, s.Members, s.Representative)
		for _, m := range s.Members {
			seen[m]++
			assert.Equal(t, s.Representative, res.Label(m))
		}
	}
	for v, count := range seen {
		assert.Equal(t, 1, count, "vertex %d", v)
	}
}

func TestSegment_SinglePixel(t *testing.T) {
	target := float64(10 + rand.Intn(11))
	g, err := graphseg.NewGraph([][][]float64{{{target}}})
	require.NoError(t, err)

	for _, k := range []float64{0.001, 1, 1000, math.Inf(1)} {
		res, err := g.Segment(k, 0)
		require.NoError(t, err)
		assert.Equal(t, []graphseg.Segment{{Representative: 0, Members: []int{0}}}, res.Segments())
	}
}

func TestSegment_SampleGrid(t *testing.T) {
	g, err := graphseg.NewGraph(sampleGrid(15))
	require.NoError(t, err)
	res, err := g.Segment(1, 0)
	require.NoError(t, err)
	assertPartition(t, res, 6)
	// every edge is heavier than 1, so nothing merges
	assert.Equal(t, 6, res.Len())
	assert.True(t, g.Sorted())
}

func TestSegment_Stripes(t *testing.T) {
	g, err := graphseg.NewGraph(stripesGrid(1))
	require.NoError(t, err)

	res, err := g.Segment(50, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 6, 7, 8, 9}, {4, 5, 10, 11}}, members(res))

	res, err = g.Segment(1, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 6, 7}, {2, 3, 8, 9}, {4, 5, 10, 11}}, members(res))
}

func TestSegment_MonotoneInK(t *testing.T) {
	cases := []struct {
		k    float64
		want int
	}{
		{1, 3}, {39, 3}, {40, 2}, {50, 2}, {60, 2}, {79, 2}, {80, 1}, {100, 1}, {1000, 1},
	}
	for _, conn := range []graphseg.Connectivity{graphseg.Conn4, graphseg.Conn8} {
		g, err := graphseg.NewGraph(stripesGrid(1), graphseg.WithConnectivity(conn))
		require.NoError(t, err)
		prev := math.MaxInt
		for _, tc := range cases {
			res, err := g.Segment(tc.k, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Len(), "k=%v conn=%d", tc.k, conn)
			assert.LessOrEqual(t, res.Len(), prev)
			prev = res.Len()
		}
	}
}

func TestSegment_MinSize(t *testing.T) {
	g, err := graphseg.NewGraph(stripesGrid(1))
	require.NoError(t, err)

	for _, tc := range []struct{ minSize, want int }{{0, 3}, {4, 3}, {5, 1}} {
		res, err := g.Segment(1, tc.minSize)
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Len(), "min size %d", tc.minSize)
		assertPartition(t, res, 12)
	}
}

func TestSegment_MinSizeRemovesFragments(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	g, err := graphseg.NewGraph(randomGrid(r, 20, 15, 3), graphseg.WithSigma(0.5))
	require.NoError(t, err)

	res, err := g.Segment(100, 10)
	require.NoError(t, err)
	assertPartition(t, res, 300)
	for _, s := range res.Segments() {
		assert.GreaterOrEqual(t, len(s.Members), 10)
	}
}

func TestSegment_PartitionRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	grid := randomGrid(r, 16, 12, 3)
	for _, conn := range []graphseg.Connectivity{graphseg.Conn4, graphseg.Conn8} {
		for _, metric := range []graphseg.Metric{graphseg.MetricEuclidean, graphseg.MetricManhattan, graphseg.MetricLab} {
			g, err := graphseg.NewGraph(grid, graphseg.WithConnectivity(conn), graphseg.WithMetric(metric))
			require.NoError(t, err)
			res, err := g.Segment(50, 5)
			require.NoError(t, err)
			assertPartition(t, res, 16*12)
		}
	}
}

func TestSegment_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	g, err := graphseg.NewGraph(randomGrid(r, 12, 9, 3), graphseg.WithSigma(0.8))
	require.NoError(t, err)

	first, err := g.Segment(200, 4)
	require.NoError(t, err)
	second, err := g.Segment(200, 4)
	require.NoError(t, err)
	assert.Equal(t, first.Segments(), second.Segments())
	assert.Equal(t, first.Labels(), second.Labels())
}

func TestSegment_AfterRenew(t *testing.T) {
	g, err := graphseg.NewGraph(stripesGrid(1))
	require.NoError(t, err)
	res, err := g.Segment(1000, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())

	require.NoError(t, g.Renew([][][]float64{{{0}, {100}}}))
	next, err := g.Segment(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, next.Labels())
	assert.Equal(t, [][]int{{0}, {1}}, members(next))

	// the earlier result is untouched
	assert.Equal(t, 1, res.Len())
	assert.Len(t, res.Labels(), 12)
}

func TestSegment_InvalidParameters(t *testing.T) {
	g, err := graphseg.NewGraph(sampleGrid(15))
	require.NoError(t, err)

	for _, k := range []float64{0, -1, math.NaN(), math.Inf(-1)} {
		_, err := g.Segment(k, 0)
		assert.ErrorIs(t, err, graphseg.ErrInvalidParameter, "k=%v", k)
	}
	_, err = g.Segment(1, -1)
	assert.ErrorIs(t, err, graphseg.ErrInvalidParameter)
}

func TestResult_Stats(t *testing.T) {
	g, err := graphseg.NewGraph(stripesGrid(1))
	require.NoError(t, err)

	res, err := g.Segment(1, 0)
	require.NoError(t, err)
	stats := res.Stats()
	require.Len(t, stats, 3)
	for i, want := range []float64{0, 10, 30} {
		assert.Equal(t, 4, stats[i].Size)
		assert.InDelta(t, want, stats[i].Mean[0], 1e-9)
		assert.InDelta(t, 0, stats[i].StdDev[0], 1e-9)
	}

	res, err = g.Segment(1000, 0)
	require.NoError(t, err)
	stats = res.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 12, stats[0].Size)
	assert.InDelta(t, 40.0/3, stats[0].Mean[0], 1e-9)
	assert.InDelta(t, 13.0268, stats[0].StdDev[0], 1e-3)

	single, err := graphseg.NewGraph([][][]float64{{{7, 8}}})
	require.NoError(t, err)
	res, err = single.Segment(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []graphseg.SegmentStats{{Representative: 0, Size: 1, Mean: []float64{7, 8}, StdDev: []float64{0, 0}}}, res.Stats())
}
