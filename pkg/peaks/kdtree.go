package peaks

import "gonum.org/v1/gonum/spatial/kdtree"

// point is a peak location in voxel units for the kd-tree
type point struct {
	flat int
	x    [3]float64
	dims int
}

// Compare implements the kdtree.Comparable interface
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return p.x[d] - q.x[d]
}

// Dims returns the number of dimensions for the KD-tree
func (p point) Dims() int { return p.dims }

// Distance returns the squared Euclidean distance between two points
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	d := 0.0
	for i := 0; i < p.dims; i++ {
		v := p.x[i] - q.x[i]
		d += v * v
	}
	return d
}

// points is a collection of point that satisfies kdtree.Interface
type points []point

func (p points) Index(i int) kdtree.Comparable        { return p[i] }
func (p points) Len() int                             { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d}, kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for points
type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].x[p.Dim] < p.points[j].x[p.Dim] }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

// within reports whether any point of t lies no farther than r from q.
func within(t *kdtree.Tree, q point, r float64) bool {
	keeper := kdtree.NewDistKeeper(r * r)
	t.NearestSet(keeper, q)
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		if item.Dist <= r*r {
			return true
		}
	}
	return false
}
