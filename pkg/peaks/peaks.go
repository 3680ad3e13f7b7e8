// Package peaks finds the seed points of the SNOW partitioning: local maxima
// of the distance field, filtered to suppress the spurious peaks that noise
// and saddles in the field would otherwise turn into extra regions.
package peaks

import (
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"

	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/filter"
)

// Peak is a seed voxel and the distance value found there.
type Peak struct {
	// Index is the flat voxel index in the distance field
	Index int
	// Coords is the N-D voxel index
	Coords []int
	// Value is the (unsmoothed) distance value at the voxel
	Value float64
}

// Options configures peak detection.
type Options struct {
	// RMax is the radius in voxels of the maximum filter; a peak survives only
	// if no voxel within RMax holds a larger value.
	RMax float64
	// RMin merges peaks no farther than RMin voxels apart, keeping the highest.
	RMin float64
	// Sigma is the standard deviation in voxels of an optional Gaussian
	// pre-smoothing of the field. Zero disables smoothing.
	Sigma float64
	// Workers bounds the goroutines of the initial scan. Zero uses all CPUs.
	Workers int
}

// DefaultOptions returns the settings used by the SNOW driver.
func DefaultOptions() Options {
	return Options{RMax: 4, RMin: 2, Sigma: 0.4}
}

// Find returns the peaks of dt sorted by flat index. Voxels with dt <= 0 are
// solid and never become peaks.
func Find(dt *models.Field, opts Options) ([]Peak, error) {
	const op = "peaks.Find"
	if dt == nil || len(dt.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty distance field")
	}
	work, _ := dt.Squeeze()

	field := work
	if opts.Sigma > 0 {
		smoothed, err := smoothVoid(work, opts.Sigma, opts.Workers)
		if err != nil {
			return nil, err
		}
		field = smoothed
	}
	void := func(i int) bool { return work.Data[i] > 0 }

	d := newNeighbourhood(work, 1.8)
	cands := scan(field, void, d, opts.Workers)

	if opts.RMax > 1 {
		wide := newNeighbourhood(work, opts.RMax)
		kept := cands[:0]
		for _, c := range cands {
			if wide.isMax(field, c) {
				kept = append(kept, c)
			}
		}
		cands = kept
	}
	cands = collapsePlateaus(field, cands, d)
	if opts.RMin > 0 {
		cands = merge(work, cands, opts.RMin)
	}

	sort.Ints(cands)
	out := make([]Peak, len(cands))
	for i, c := range cands {
		out[i] = Peak{Index: c, Coords: dt.Coords(c, nil), Value: dt.Data[c]}
	}
	return out, nil
}

// smoothVoid is a Gaussian normalized over the void voxels of f: solid
// voxels contribute no weight and come out zero, so walls do not drag down
// the values next to them.
func smoothVoid(f *models.Field, sigma float64, workers int) (*models.Field, error) {
	mask := models.NewLike[float64](f)
	masked := models.NewLike[float64](f)
	for i, v := range f.Data {
		if v > 0 {
			mask.Data[i] = 1
			masked.Data[i] = v
		}
	}
	fopts := filter.Options{Workers: workers}
	num, err := filter.Gaussian(masked, sigma, fopts)
	if err != nil {
		return nil, err
	}
	den, err := filter.Gaussian(mask, sigma, fopts)
	if err != nil {
		return nil, err
	}
	for i := range num.Data {
		if mask.Data[i] == 0 || den.Data[i] <= 0 {
			num.Data[i] = 0
			continue
		}
		num.Data[i] /= den.Data[i]
	}
	return num, nil
}

// neighbourhood is a spherical footprint of flat and per-axis offsets.
type neighbourhood struct {
	g       *models.Field
	offsets [][]int
	flat    []int
}

func newNeighbourhood(g *models.Field, r float64) *neighbourhood {
	n := &neighbourhood{g: g}
	dims := g.Dims()
	ri := int(r)
	cur := make([]int, dims)
	var walk func(a int)
	walk = func(a int) {
		if a == dims {
			d2, zero := 0, true
			for _, v := range cur {
				d2 += v * v
				if v != 0 {
					zero = false
				}
			}
			if zero || float64(d2) > r*r {
				return
			}
			n.offsets = append(n.offsets, append([]int(nil), cur...))
			n.flat = append(n.flat, g.Index(cur...))
			return
		}
		if g.Shape[a] == 1 {
			cur[a] = 0
			walk(a + 1)
			return
		}
		for v := -ri; v <= ri; v++ {
			cur[a] = v
			walk(a + 1)
		}
	}
	walk(0)
	return n
}

// each calls fn with the flat index of every in-bounds neighbour of i.
func (n *neighbourhood) each(i int, fn func(j int) bool) {
	p := n.g.Coords(i, nil)
	for k, off := range n.offsets {
		inside := true
		for a, o := range off {
			if c := p[a] + o; c < 0 || c >= n.g.Shape[a] {
				inside = false
				break
			}
		}
		if inside && !fn(i+n.flat[k]) {
			return
		}
	}
}

// isMax reports whether no neighbour of i holds a larger value.
func (n *neighbourhood) isMax(f *models.Field, i int) bool {
	v := f.Data[i]
	ok := true
	n.each(i, func(j int) bool {
		if f.Data[j] > v {
			ok = false
		}
		return ok
	})
	return ok
}

// scan finds void voxels that are maxima of their immediate neighbourhood.
func scan(f *models.Field, void func(int) bool, n *neighbourhood, workers int) []int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	total := len(f.Data)
	chunk := (total + workers - 1) / workers
	parts := make([][]int, 0, workers)
	for start := 0; start < total; start += chunk {
		parts = append(parts, nil)
	}

	var wg sync.WaitGroup
	for p := range parts {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			first := p * chunk
			last := min(first+chunk, total)
			for i := first; i < last; i++ {
				if void(i) && n.isMax(f, i) {
					parts[p] = append(parts[p], i)
				}
			}
		}(p)
	}
	wg.Wait()

	var out []int
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// collapsePlateaus keeps the lowest flat index of every connected group of
// candidates sharing the same value.
func collapsePlateaus(f *models.Field, cands []int, n *neighbourhood) []int {
	set := make(map[int]bool, len(cands))
	for _, c := range cands {
		set[c] = true
	}
	seen := make(map[int]bool, len(cands))
	out := make([]int, 0, len(cands))
	for _, c := range cands {
		if seen[c] {
			continue
		}
		// cands is ascending, so c is the lowest index of its plateau
		out = append(out, c)
		seen[c] = true
		queue := []int{c}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			n.each(cur, func(j int) bool {
				if set[j] && !seen[j] && f.Data[j] == f.Data[c] {
					seen[j] = true
					queue = append(queue, j)
				}
				return true
			})
		}
	}
	return out
}

// merge suppresses peaks within r of a higher one (ties: lower flat index).
func merge(dt *models.Field, cands []int, r float64) []int {
	order := append([]int(nil), cands...)
	sort.Slice(order, func(i, j int) bool {
		vi, vj := dt.Data[order[i]], dt.Data[order[j]]
		if vi != vj {
			return vi > vj
		}
		return order[i] < order[j]
	})

	toPoint := func(i int) point {
		p := point{flat: i, dims: dt.Dims()}
		for a, c := range dt.Coords(i, nil) {
			p.x[a] = float64(c)
		}
		return p
	}

	var tree *kdtree.Tree
	kept := make([]int, 0, len(order))
	for _, c := range order {
		p := toPoint(c)
		if tree != nil && within(tree, p, r) {
			continue
		}
		if tree == nil {
			tree = kdtree.New(points{p}, false)
		} else {
			tree.Insert(p, false)
		}
		kept = append(kept, c)
	}
	return kept
}
