package graphseg

// component is one node of the disjoint-set forest. size and diff are only
// meaningful on roots; diff is the largest edge weight merged into the
// component.
type component struct {
	parent int
	size   int
	diff   float64
}

// forest is a disjoint-set arena addressed by vertex index.
type forest []component

// reset makes every vertex of an n-vertex graph its own singleton, reusing f's
// storage when possible.
func (f forest) reset(n int) forest {
	if cap(f) < n {
		f = make(forest, n)
	}
	f = f[:n]
	for i := range f {
		f[i] = component{parent: i, size: 1}
	}
	return f
}

// find returns the root of i and points every node on the path at it.
func (f forest) find(i int) int {
	root := i
	for f[root].parent != root {
		root = f[root].parent
	}
	for f[i].parent != root {
		next := f[i].parent
		f[i].parent = root
		i = next
	}
	return root
}

// union joins roots a and b, attaching the smaller tree under the larger,
// and returns the new root. diff becomes the merged component's internal
// difference.
func (f forest) union(a, b int, diff float64) int {
	if f[a].size < f[b].size {
		a, b = b, a
	}
	f[b].parent = a
	f[a].size += f[b].size
	f[a].diff = diff
	return a
}

// threshold is the largest edge weight root r still accepts.
func (f forest) threshold(r int, k float64) float64 {
	return f[r].diff + k/float64(f[r].size)
}
