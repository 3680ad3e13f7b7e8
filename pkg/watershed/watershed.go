// Package watershed partitions the void space of a pore image into regions by
// marker based flooding of the negated distance field, and drives the full
// SNOW segmentation (distance transform, peak detection, flooding).
package watershed

import (
	"sort"

	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/peaks"
)

// Options controls the flooding.
type Options struct {
	// Mask restricts flooding to its true voxels. Nil floods all void voxels.
	Mask *models.Binary
}

// Result holds a partitioned image.
type Result struct {
	// Regions labels every floodable void voxel 1..len(Peaks); 0 elsewhere
	Regions *models.Labels

	// Peaks are the markers sorted by flat index; Peaks[i] seeds label i+1.
	// It includes seeds added for void components that had no marker.
	Peaks []peaks.Peak

	// Boundary is indexed by label and is true for regions touching an image face
	Boundary []bool
}

// NumRegions returns the number of labels in the partition.
func (r *Result) NumRegions() int { return len(r.Peaks) }

// Partition floods dt from markers. Voxels with dt <= 0 are solid and stop the
// flood. Flooding pops voxels in order of decreasing distance value with ties
// broken by the lower flat index, so the result is reproducible.
func Partition(dt *models.Field, markers []peaks.Peak, opts Options) (*Result, error) {
	const op = "watershed.Partition"
	if dt == nil || len(dt.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty distance field")
	}
	if opts.Mask != nil && !models.SameShape(dt, opts.Mask) {
		return nil, errs.New(errs.InputShape, op, "mask shape %v does not match field shape %v", opts.Mask.Shape, dt.Shape)
	}
	floodable := func(i int) bool {
		return dt.Data[i] > 0 && (opts.Mask == nil || opts.Mask.Data[i])
	}

	labels := models.NewLike[int32](dt)
	seeds := make([]peaks.Peak, 0, len(markers))
	for _, m := range markers {
		if m.Index < 0 || m.Index >= len(dt.Data) || !floodable(m.Index) {
			return nil, errs.New(errs.InputShape, op, "marker at %v lies outside the floodable void", m.Coords)
		}
		if labels.Data[m.Index] != 0 {
			return nil, errs.New(errs.InputShape, op, "duplicate marker at %v", m.Coords)
		}
		seeds = append(seeds, m)
		labels.Data[m.Index] = int32(len(seeds))
	}

	f := &flooder{dt: dt, labels: labels, floodable: floodable}
	for _, s := range seeds {
		f.queue.push(-dt.Data[s.Index], s.Index)
	}
	f.run()

	// Seed void components that no marker reached
	for i := range labels.Data {
		if labels.Data[i] != 0 || !floodable(i) {
			continue
		}
		top := f.componentMax(i)
		seeds = append(seeds, peaks.Peak{Index: top, Coords: dt.Coords(top, nil), Value: dt.Data[top]})
		labels.Data[top] = int32(len(seeds))
		f.queue.push(-dt.Data[top], top)
		f.run()
	}

	return relabel(labels, seeds), nil
}

type flooder struct {
	dt        *models.Field
	labels    *models.Labels
	floodable func(int) bool
	queue     floodQueue
	buf       []int
}

func (f *flooder) run() {
	for f.queue.Len() > 0 {
		cur := f.queue.pop()
		lbl := f.labels.Data[cur.index]
		f.buf = f.labels.FaceNeighbors(cur.index, f.buf[:0])
		for _, j := range f.buf {
			if f.labels.Data[j] != 0 || !f.floodable(j) {
				continue
			}
			f.labels.Data[j] = lbl
			f.queue.push(-f.dt.Data[j], j)
		}
	}
}

// componentMax returns the highest distance voxel (lowest flat index on ties)
// of the unlabeled floodable component containing start.
func (f *flooder) componentMax(start int) int {
	visited := map[int]bool{start: true}
	stack := []int{start}
	best := start
	var buf []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v, b := f.dt.Data[cur], f.dt.Data[best]; v > b || v == b && cur < best {
			best = cur
		}
		buf = f.labels.FaceNeighbors(cur, buf[:0])
		for _, j := range buf {
			if !visited[j] && f.labels.Data[j] == 0 && f.floodable(j) {
				visited[j] = true
				stack = append(stack, j)
			}
		}
	}
	return best
}

// relabel renumbers labels so that label i+1 belongs to the i-th seed in flat
// index order, and flags regions touching the image faces.
func relabel(labels *models.Labels, seeds []peaks.Peak) *Result {
	order := make([]int, len(seeds))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return seeds[order[a]].Index < seeds[order[b]].Index })

	remap := make([]int32, len(seeds)+1)
	sorted := make([]peaks.Peak, len(seeds))
	for newIdx, old := range order {
		remap[old+1] = int32(newIdx + 1)
		sorted[newIdx] = seeds[old]
	}

	boundary := make([]bool, len(seeds)+1)
	for i, l := range labels.Data {
		if l == 0 {
			continue
		}
		nl := remap[l]
		labels.Data[i] = nl
		if !boundary[nl] && labels.OnFace(i) {
			boundary[nl] = true
		}
	}
	return &Result{Regions: labels, Peaks: sorted, Boundary: boundary}
}
