package graphseg

import (
	"cmp"
	"slices"
)

// Sort orders the edges by non-decreasing weight. The sort is stable, so
// equal weights keep their construction order and segmentation is
// reproducible. Sorting an already sorted graph is a no-op.
func (g *Graph) Sort() *Graph {
	if g.sorted {
		return g
	}
	sortEdges(g.edges)
	g.sorted = true
	return g
}

func sortEdges(edges []Edge) {
	slices.SortStableFunc(edges, func(a, b Edge) int {
		return cmp.Compare(a.Weight, b.Weight)
	})
}
