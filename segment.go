package graphseg

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Segment partitions the graph's vertices.
//
// Edges are visited in sorted order (Sort is called if needed). Two
// components merge when the edge weight is within both of their thresholds
// diff + k/size, so larger k yields fewer, larger segments. When minSize > 0
// a second pass over the same edges merges any component still smaller than
// minSize into its neighbour.
//
// Each call starts from singletons, so calling Segment twice on an unchanged
// graph yields identical results. k must be positive and minSize
// non-negative, else ErrInvalidParameter.
func (g *Graph) Segment(k float64, minSize int) (*Result, error) {
	if !(k > 0) {
		return nil, fmt.Errorf("%w: k must be positive, got %v", ErrInvalidParameter, k)
	}
	if minSize < 0 {
		return nil, fmt.Errorf("%w: min size must be non-negative, got %d", ErrInvalidParameter, minSize)
	}
	start := time.Now()
	g.Sort()
	g.forest = g.forest.reset(g.Len())
	f := g.forest

	merges := 0
	for _, e := range g.edges {
		a, b := f.find(e.U), f.find(e.V)
		if a == b {
			continue
		}
		if e.Weight <= min(f.threshold(a, k), f.threshold(b, k)) {
			f.union(a, b, e.Weight)
			merges++
		}
	}

	forced := 0
	if minSize > 0 {
		forced = enforceMinSize(f, g.edges, minSize)
	}

	res := extract(f, g.src)
	g.log.WithFields(logrus.Fields{
		"k":        k,
		"min_size": minSize,
		"merges":   merges,
		"forced":   forced,
		"segments": res.Len(),
		"elapsed":  time.Since(start),
	}).Debug("graph segmented")
	return res, nil
}

// enforceMinSize merges, in edge order, every pair of components where
// either side is smaller than minSize, regardless of threshold. It returns
// the number of merges.
func enforceMinSize(f forest, edges []Edge, minSize int) int {
	merges := 0
	for _, e := range edges {
		a, b := f.find(e.U), f.find(e.V)
		if a == b || (f[a].size >= minSize && f[b].size >= minSize) {
			continue
		}
		f.union(a, b, math.Max(e.Weight, math.Max(f[a].diff, f[b].diff)))
		merges++
	}
	return merges
}
