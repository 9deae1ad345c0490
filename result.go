package graphseg

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Segment is one connected region. Members are vertex indices in ascending
// order; Representative is the root vertex of the region in the forest.
type Segment struct {
	Representative int
	Members        []int
}

// SegmentStats summarises the source samples of one segment.
type SegmentStats struct {
	Representative int
	Size           int
	Mean           []float64
	StdDev         []float64
}

// Result is the immutable outcome of one Graph.Segment call. It holds its own
// copy of the source samples, so renewing the graph does not affect it.
type Result struct {
	w, h, c  int
	labels   []int // vertex -> representative
	index    []int // vertex -> position in segments
	segments []Segment
	pix      []float64
}

// extract resolves every vertex to its root and groups vertices into
// segments ordered by their smallest member.
func extract(f forest, src *SampleBuffer) *Result {
	n := len(f)
	res := &Result{
		w:      src.w,
		h:      src.h,
		c:      src.c,
		labels: make([]int, n),
		index:  make([]int, n),
		pix:    slices.Clone(src.pix),
	}
	slot := make([]int, n)
	for i := range slot {
		slot[i] = -1
	}
	for i := 0; i < n; i++ {
		r := f.find(i)
		res.labels[i] = r
		s := slot[r]
		if s < 0 {
			s = len(res.segments)
			slot[r] = s
			res.segments = append(res.segments, Segment{
				Representative: r,
				Members:        make([]int, 0, f[r].size),
			})
		}
		res.index[i] = s
		res.segments[s].Members = append(res.segments[s].Members, i)
	}
	return res
}

// Len returns the number of segments.
func (r *Result) Len() int { return len(r.segments) }

// Width returns the width of the segmented grid.
func (r *Result) Width() int { return r.w }

// Height returns the height of the segmented grid.
func (r *Result) Height() int { return r.h }

// Channels returns the channel count of the segmented grid.
func (r *Result) Channels() int { return r.c }

// Label returns the representative vertex of vertex i's segment.
func (r *Result) Label(i int) int { return r.labels[i] }

// Labels returns the representative of every vertex in row-major order.
func (r *Result) Labels() []int { return slices.Clone(r.labels) }

// Segments returns the segments ordered by smallest member.
func (r *Result) Segments() []Segment {
	out := make([]Segment, len(r.segments))
	for i, s := range r.segments {
		out[i] = Segment{Representative: s.Representative, Members: slices.Clone(s.Members)}
	}
	return out
}

// Stats returns per-channel mean and standard deviation of every segment,
// in Segments order.
func (r *Result) Stats() []SegmentStats {
	out := make([]SegmentStats, len(r.segments))
	var col []float64
	for i, s := range r.segments {
		st := SegmentStats{
			Representative: s.Representative,
			Size:           len(s.Members),
			Mean:           make([]float64, r.c),
			StdDev:         make([]float64, r.c),
		}
		for ch := 0; ch < r.c; ch++ {
			col = col[:0]
			for _, m := range s.Members {
				col = append(col, r.pix[m*r.c+ch])
			}
			if len(col) == 1 {
				st.Mean[ch] = col[0]
				continue
			}
			st.Mean[ch], st.StdDev[ch] = stat.MeanStdDev(col, nil)
		}
		out[i] = st
	}
	return out
}

// means returns the mean channel values of every segment, flattened as
// [segment*c + channel].
func (r *Result) means() []float64 {
	type accumulator struct {
		sum   []float64
		count int
	}
	acc := make([]accumulator, len(r.segments))
	for i := range acc {
		acc[i].sum = make([]float64, r.c)
	}
	for v, s := range r.index {
		off := v * r.c
		for ch := 0; ch < r.c; ch++ {
			acc[s].sum[ch] += r.pix[off+ch]
		}
		acc[s].count++
	}
	out := make([]float64, len(r.segments)*r.c)
	for s := range acc {
		n := float64(acc[s].count)
		for ch := 0; ch < r.c; ch++ {
			out[s*r.c+ch] = acc[s].sum[ch] / n
		}
	}
	return out
}
