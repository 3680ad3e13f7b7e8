package extraction

import (
	"runtime"
	"sync"

	"porenet/internal/models"
)

// face is the shared face between voxel p and the voxel one step further along
// axis; p < q in flat order.
type face struct {
	p, q int
	axis int
}

type pairKey struct{ a, b int32 }

// tally holds the per-region sums of one slab. Every quantity is an integer
// count or a max with a flat-index tie-break, so merging slabs in any order
// gives the same result.
type tally struct {
	count    []int64
	coordSum []int64 // (label, axis) row-major
	surface  []int64 // (label, axis) faces toward solid or another region
	peak     []int   // flat index of the max distance voxel, -1 if none
	boundary []bool
	faces    map[pairKey][]face
}

func newTally(nr, dims int) *tally {
	t := &tally{
		count:    make([]int64, nr+1),
		coordSum: make([]int64, (nr+1)*dims),
		surface:  make([]int64, (nr+1)*dims),
		peak:     make([]int, nr+1),
		boundary: make([]bool, nr+1),
		faces:    make(map[pairKey][]face),
	}
	for i := range t.peak {
		t.peak[i] = -1
	}
	return t
}

// better reports whether voxel i beats the current peak cur.
func better(dt []float64, i, cur int) bool {
	if cur < 0 {
		return true
	}
	return dt[i] > dt[cur] || dt[i] == dt[cur] && i < cur
}

// accumulate scans voxels [first, last) of lbl. Faces are attributed to their
// lower voxel so each is seen by exactly one slab.
func (t *tally) accumulate(lbl *models.Labels, dt []float64, first, last int) {
	dims := lbl.Dims()
	st := lbl.Strides()
	c := make([]int, dims)
	for i := first; i < last; i++ {
		r := lbl.Data[i]
		if r == 0 {
			continue
		}
		c = lbl.Coords(i, c)
		t.count[r]++
		if better(dt, i, t.peak[r]) {
			t.peak[r] = i
		}
		for a := 0; a < dims; a++ {
			t.coordSum[int(r)*dims+a] += int64(c[a])
			n := lbl.Shape[a]
			if n > 1 && (c[a] == 0 || c[a] == n-1) {
				t.boundary[r] = true
			}
			if c[a] > 0 && lbl.Data[i-st[a]] != r {
				t.surface[int(r)*dims+a]++
			}
			if c[a] < n-1 {
				j := i + st[a]
				s := lbl.Data[j]
				if s == r {
					continue
				}
				t.surface[int(r)*dims+a]++
				if s == 0 {
					continue
				}
				k := pairKey{a: r, b: s}
				if s < r {
					k = pairKey{a: s, b: r}
				}
				t.faces[k] = append(t.faces[k], face{p: i, q: j, axis: a})
			}
		}
	}
}

// merge folds o into t. Slabs must be merged in ascending flat order so face
// lists stay sorted.
func (t *tally) merge(o *tally, dt []float64) {
	for r := range t.count {
		t.count[r] += o.count[r]
		t.boundary[r] = t.boundary[r] || o.boundary[r]
		if o.peak[r] >= 0 && better(dt, o.peak[r], t.peak[r]) {
			t.peak[r] = o.peak[r]
		}
	}
	for i := range t.coordSum {
		t.coordSum[i] += o.coordSum[i]
		t.surface[i] += o.surface[i]
	}
	for k, f := range o.faces {
		t.faces[k] = append(t.faces[k], f...)
	}
}

// gather runs accumulate over contiguous slabs with up to workers goroutines.
func gather(lbl *models.Labels, dt []float64, nr, workers int) *tally {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	total := len(lbl.Data)
	chunk := (total + workers - 1) / workers
	var parts []*tally
	for start := 0; start < total; start += chunk {
		parts = append(parts, newTally(nr, lbl.Dims()))
	}

	var wg sync.WaitGroup
	for p, t := range parts {
		wg.Add(1)
		go func(p int, t *tally) {
			defer wg.Done()
			first := p * chunk
			t.accumulate(lbl, dt, first, min(first+chunk, total))
		}(p, t)
	}
	wg.Wait()

	out := parts[0]
	for _, t := range parts[1:] {
		out.merge(t, dt)
	}
	return out
}
