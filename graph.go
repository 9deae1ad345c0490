// Package graphseg implements efficient graph-based image segmentation
// (Felzenszwalb & Huttenlocher, IJCV 2004).
//
// A grid of multi-channel samples is expanded into a pixel-adjacency graph
// whose edges are weighted by channel distance. Edges are sorted and pixels
// are merged into segments with a union-find forest while the adaptive
// tolerance internal_difference + k/size allows it.
//
//	g, err := graphseg.NewGraph(grid, graphseg.WithSigma(0.8))
//	res, err := g.Segment(300, 20)
//	out, err := res.Render(graphseg.RenderMeanColor)
//
// A Graph keeps its storage between Renew calls so that repeated
// segmentations of similarly sized inputs do not reallocate. A Graph is not
// safe for concurrent use.
package graphseg

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Connectivity selects the pixel neighbourhood.
type Connectivity int

const (
	// Conn4 links each pixel to its right and lower neighbours.
	Conn4 Connectivity = iota
	// Conn8 adds the lower-right and lower-left diagonals.
	Conn8
)

// Forward neighbour offsets; each unordered pair is visited once.
var (
	offsets4 = [][2]int{{1, 0}, {0, 1}}
	offsets8 = [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}
)

func (c Connectivity) offsets() [][2]int {
	if c == Conn8 {
		return offsets8
	}
	return offsets4
}

// Vertex is one pixel of the graph. Samples is a copy of its channels.
type Vertex struct {
	X, Y    int
	Samples []float64
}

// Edge joins two adjacent pixels, addressed by row-major vertex index.
type Edge struct {
	U, V   int
	Weight float64
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithConnectivity sets the neighbourhood. Default Conn4.
func WithConnectivity(c Connectivity) GraphOption {
	return func(g *Graph) { g.conn = c }
}

// WithMetric sets the edge weight metric. Default MetricEuclidean.
// MetricLab only accepts 3-channel grids; building or renewing with any
// other channel count fails with ErrInvalidParameter.
func WithMetric(m Metric) GraphOption {
	return func(g *Graph) { g.metric = m }
}

// WithSigma blurs the samples before edge weights are computed. Default 0
// (no smoothing). Vertices always report the unblurred samples.
func WithSigma(sigma float64) GraphOption {
	return func(g *Graph) { g.sigma = sigma }
}

// WithLogger sets the logger used for debug tracing. By default nothing is
// logged.
func WithLogger(l logrus.FieldLogger) GraphOption {
	return func(g *Graph) { g.log = l }
}

// Graph is the pixel-adjacency graph of one sample buffer snapshot.
type Graph struct {
	src    *SampleBuffer
	smooth *SampleBuffer
	tmp    *SampleBuffer
	lab    *SampleBuffer
	edges  []Edge
	sorted bool
	forest forest

	conn   Connectivity
	metric Metric
	sigma  float64
	log    logrus.FieldLogger
}

// NewGraph copies grid ([row][column][channel]) into a new Graph and builds
// its edges. It fails with ErrShape for ragged grids, ErrEmptyGraph for
// grids with no rows or columns and ErrInvalidParameter for bad options.
func NewGraph(grid [][][]float64, opts ...GraphOption) (*Graph, error) {
	g, err := newGraph(opts)
	if err != nil {
		return nil, err
	}
	if err := g.Renew(grid); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGraphFromImage is NewGraph for an image, read as RGB in [0,255].
func NewGraphFromImage(img image.Image, opts ...GraphOption) (*Graph, error) {
	g, err := newGraph(opts)
	if err != nil {
		return nil, err
	}
	if err := g.RenewImage(img); err != nil {
		return nil, err
	}
	return g, nil
}

func newGraph(opts []GraphOption) (*Graph, error) {
	g := &Graph{
		src:    &SampleBuffer{},
		smooth: &SampleBuffer{},
		tmp:    &SampleBuffer{},
		lab:    &SampleBuffer{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = discardLogger()
	}
	if err := checkSigma(g.sigma); err != nil {
		return nil, err
	}
	if g.conn != Conn4 && g.conn != Conn8 {
		return nil, fmt.Errorf("%w: connectivity %d", ErrInvalidParameter, g.conn)
	}
	if g.metric < MetricEuclidean || g.metric > MetricLab {
		return nil, fmt.Errorf("%w: metric %d", ErrInvalidParameter, g.metric)
	}
	return g, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Renew replaces the graph's pixels with grid and rebuilds vertices and
// edges. The sample storage is reused when the new grid fits in it, leaving
// IdentityToken unchanged. On error the graph keeps its previous state.
//
// Any well-formed grid is accepted, except that a graph built WithMetric
// (MetricLab) rejects grids without exactly 3 channels.
func (g *Graph) Renew(grid [][][]float64) error {
	w, h, c, err := checkGrid(grid)
	if err != nil {
		return err
	}
	if err := g.accept(w, h, c); err != nil {
		return err
	}
	g.src.reshape(w, h, c)
	g.src.fillGrid(grid)
	g.build()
	return nil
}

// RenewImage is Renew for an image, read as RGB in [0,255].
func (g *Graph) RenewImage(img image.Image) error {
	b := img.Bounds()
	if _, ok := sampleCount(b.Dx(), b.Dy(), 3); !ok {
		return fmt.Errorf("%w: %dx%d image", ErrAllocation, b.Dx(), b.Dy())
	}
	if err := g.accept(b.Dx(), b.Dy(), 3); err != nil {
		return err
	}
	g.src.reshape(b.Dx(), b.Dy(), 3)
	g.src.fillImage(img)
	g.build()
	return nil
}

// accept reports whether a w×h×c input can be built with the graph's options.
func (g *Graph) accept(w, h, c int) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: got %dx%d", ErrEmptyGraph, w, h)
	}
	if g.metric == MetricLab && c != 3 {
		return fmt.Errorf("%w: lab metric needs 3 channels, got %d", ErrInvalidParameter, c)
	}
	return nil
}

func (g *Graph) build() {
	start := time.Now()
	in := g.src
	if g.sigma > 0 {
		smoothInto(g.smooth, g.tmp, in, g.sigma)
		in = g.smooth
	}
	if g.metric == MetricLab {
		labInto(g.lab, in)
		in = g.lab
	}
	g.edges = appendEdges(g.edges[:0], in, g.conn, g.metric.distance())
	g.sorted = false

	g.log.WithFields(logrus.Fields{
		"width":    g.src.w,
		"height":   g.src.h,
		"channels": g.src.c,
		"edges":    len(g.edges),
		"sigma":    g.sigma,
		"metric":   g.metric.String(),
		"elapsed":  time.Since(start),
	}).Debug("graph built")
}

// appendEdges emits one edge per adjacent pixel pair of buf in row-major
// order, forward neighbours only.
func appendEdges(edges []Edge, buf *SampleBuffer, conn Connectivity, dist func(a, b []float64) float64) []Edge {
	w, h, c := buf.w, buf.h, buf.c
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := y*w + x
			pu := buf.pix[u*c : u*c+c]
			for _, d := range conn.offsets() {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				v := ny*w + nx
				edges = append(edges, Edge{U: u, V: v, Weight: dist(pu, buf.pix[v*c:v*c+c])})
			}
		}
	}
	return edges
}

// Width returns the number of columns.
func (g *Graph) Width() int { return g.src.w }

// Height returns the number of rows.
func (g *Graph) Height() int { return g.src.h }

// Channels returns the number of samples per pixel.
func (g *Graph) Channels() int { return g.src.c }

// Shape returns width, height and channel count.
func (g *Graph) Shape() (w, h, c int) { return g.src.w, g.src.h, g.src.c }

// IdentityToken identifies the storage behind the graph's samples.
func (g *Graph) IdentityToken() Token { return g.src.Token() }

// Len returns the number of vertices.
func (g *Graph) Len() int { return g.src.w * g.src.h }

// Vertex returns vertex i (row-major, i = y*width + x).
func (g *Graph) Vertex(i int) Vertex {
	x, y := i%g.src.w, i/g.src.w
	return Vertex{X: x, Y: y, Samples: g.src.At(x, y)}
}

// Vertices returns every vertex in row-major order.
func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, g.Len())
	for i := range out {
		out[i] = g.Vertex(i)
	}
	return out
}

// Edges returns a copy of the edges in their current order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Sorted reports whether the edges are in weight order.
func (g *Graph) Sorted() bool { return g.sorted }
