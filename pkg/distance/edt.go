// Package distance computes exact Euclidean distance transforms of binary
// pore images.
//
// The transform is separable: a 1D lower-envelope-of-parabolas pass runs along
// every active axis in turn, each pass parallel across image lines. Singleton
// axes are skipped so a one-voxel-thick slab yields exactly the 2D result.
package distance

import (
	"math"
	"runtime"
	"sync"

	"porenet/internal/models"
	"porenet/pkg/errs"
)

// Options controls the distance transform.
type Options struct {
	// Periodic wraps distances across the given axes. Empty means no axis is
	// periodic; otherwise it needs one flag per image axis.
	Periodic []bool

	// Workers bounds the goroutines used per pass. Zero uses all CPUs.
	Workers int
}

// Transform returns, for every void voxel of im, the distance in physical units
// to the nearest solid voxel or, along non-periodic axes, to the region just
// outside the image. Solid voxels hold 0.
func Transform(im *models.Binary, opts Options) (*models.Field, error) {
	const op = "distance.Transform"
	if im == nil || len(im.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty image")
	}
	if im.Dims() != 2 && im.Dims() != 3 {
		return nil, errs.New(errs.InputShape, op, "expected 2 or 3 dimensions, got %d", im.Dims())
	}
	if len(opts.Periodic) != 0 && len(opts.Periodic) != im.Dims() {
		return nil, errs.New(errs.InputShape, op, "got %d periodic flags for %d axes", len(opts.Periodic), im.Dims())
	}

	work, kept := im.Squeeze()
	periodic := make([]bool, work.Dims())
	for i, a := range kept {
		if len(opts.Periodic) > 0 {
			periodic[i] = opts.Periodic[a]
		}
	}

	hasSolid := false
	sq := make([]float64, len(work.Data))
	for i, void := range work.Data {
		if void {
			sq[i] = math.Inf(1)
		} else {
			hasSolid = true
		}
	}
	if !hasSolid {
		closed := true
		for a, s := range work.Shape {
			if s > 1 && !periodic[a] {
				closed = false
			}
		}
		if closed {
			return nil, errs.New(errs.InputShape, op, "fully periodic image has no solid phase")
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	for a, n := range work.Shape {
		if n == 1 {
			continue
		}
		transformAxis(sq, work.Strides()[a], n, work.Spacing[a], periodic[a], workers)
	}

	out := models.NewLike[float64](im)
	for i, v := range sq {
		out.Data[i] = math.Sqrt(v)
	}
	return out, nil
}

// transformAxis runs the 1D pass over every line along one axis.
func transformAxis(sq []float64, stride, n int, w float64, periodic bool, workers int) {
	lines := len(sq) / n
	if workers > lines {
		workers = lines
	}
	chunk := (lines + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < lines; start += chunk {
		end := min(start+chunk, lines)
		wg.Add(1)
		go func(first, last int) {
			defer wg.Done()
			env := newEnvelope(n, periodic)
			line := make([]float64, n)
			for l := first; l < last; l++ {
				outer, inner := l/stride, l%stride
				base := outer*stride*n + inner
				for i := 0; i < n; i++ {
					line[i] = sq[base+i*stride]
				}
				env.solve(line, w)
				for i := 0; i < n; i++ {
					sq[base+i*stride] = line[i]
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// envelope holds the scratch buffers of the lower envelope computation.
type envelope struct {
	periodic bool
	xs, fs   []float64 // candidate sites
	v        []int     // envelope site indices
	z        []float64 // envelope breakpoints
}

func newEnvelope(n int, periodic bool) *envelope {
	size := n + 2
	if periodic {
		size = 3 * n
	}
	return &envelope{
		periodic: periodic,
		xs:       make([]float64, 0, size),
		fs:       make([]float64, 0, size),
		v:        make([]int, size),
		z:        make([]float64, size+1),
	}
}

// solve replaces line (squared distances) by min_q line[q] + (w(p-q))^2.
func (e *envelope) solve(line []float64, w float64) {
	n := len(line)
	e.xs, e.fs = e.xs[:0], e.fs[:0]
	if e.periodic {
		for rep := -1; rep <= 1; rep++ {
			for q, f := range line {
				if !math.IsInf(f, 1) {
					e.xs = append(e.xs, w*float64(q+rep*n))
					e.fs = append(e.fs, f)
				}
			}
		}
	} else {
		e.xs = append(e.xs, -w)
		e.fs = append(e.fs, 0)
		for q, f := range line {
			if !math.IsInf(f, 1) {
				e.xs = append(e.xs, w*float64(q))
				e.fs = append(e.fs, f)
			}
		}
		e.xs = append(e.xs, w*float64(n))
		e.fs = append(e.fs, 0)
	}
	if len(e.xs) == 0 {
		return
	}

	k := 0
	e.v[0] = 0
	e.z[0] = math.Inf(-1)
	e.z[1] = math.Inf(1)
	for q := 1; q < len(e.xs); q++ {
		s := e.intersect(q, e.v[k])
		for s <= e.z[k] {
			k--
			s = e.intersect(q, e.v[k])
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}

	k = 0
	for p := 0; p < n; p++ {
		x := w * float64(p)
		for e.z[k+1] < x {
			k++
		}
		d := x - e.xs[e.v[k]]
		line[p] = d*d + e.fs[e.v[k]]
	}
}

// intersect returns the abscissa where the parabolas of sites q and r meet.
func (e *envelope) intersect(q, r int) float64 {
	xq, xr := e.xs[q], e.xs[r]
	return ((e.fs[q] + xq*xq) - (e.fs[r] + xr*xr)) / (2 * (xq - xr))
}
