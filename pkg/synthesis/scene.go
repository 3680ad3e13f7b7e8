package synthesis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/network"
)

type ball struct {
	c r3.Vec
	r float64
}

type stick struct {
	a, b r3.Vec
	r    float64
	// cuboid frame: v and w span the cross-section
	v, w r3.Vec
}

type scene struct {
	dims        int
	domain      r3.Box
	poreShape   string
	throatShape string
	pores       []ball
	throats     []stick
}

func sizes(tbl *network.Table, key string, fallbacks ...string) ([]float64, error) {
	keys := fallbacks
	if key != "" {
		keys = []string{key}
	}
	for _, k := range keys {
		if v := tbl.Scalars(k); v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: none of %v", ErrMissingSize, keys)
}

func prepare(net *network.Network, opts Options) (*scene, error) {
	coords, ok := net.Pore.Get(network.PoreCoords)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSize, network.PoreCoords)
	}
	if coords.Cols != 2 && coords.Cols != 3 {
		return nil, errs.New(errs.InputShape, "synthesis.Generate", "pore.coords has %d columns", coords.Cols)
	}
	pd, err := sizes(net.Pore, opts.PoreSizeKey, network.PoreDiameter, network.PoreInscribedDiameter)
	if err != nil {
		return nil, err
	}
	td, err := sizes(net.Throat, opts.ThroatSizeKey, network.ThroatDiameter, network.ThroatInscribedDiameter)
	if err != nil {
		return nil, err
	}

	sc := &scene{dims: coords.Cols, poreShape: opts.PoreShape, throatShape: opts.ThroatShape}
	vec := func(i int) r3.Vec {
		row := coords.Row(i)
		v := r3.Vec{X: row[0], Y: row[1]}
		if len(row) == 3 {
			v.Z = row[2]
		}
		return v
	}

	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < net.NumPores(); i++ {
		b := ball{c: vec(i), r: pd[i] / 2}
		sc.pores = append(sc.pores, b)
		ext := r3.Vec{X: b.r, Y: b.r, Z: b.r}
		lo = minVec(lo, r3.Sub(b.c, ext))
		hi = maxVec(hi, r3.Add(b.c, ext))
	}
	for i, c := range net.Conns {
		s := stick{a: vec(c[0]), b: vec(c[1]), r: td[i] / 2}
		u := r3.Sub(s.b, s.a)
		if r3.Norm2(u) == 0 || s.r <= 0 {
			continue
		}
		u = r3.Unit(u)
		s.v = r3.Unit(r3.Cross(u, leastAligned(u)))
		s.w = r3.Cross(u, s.v)
		sc.throats = append(sc.throats, s)
	}

	// Each pore owns a cell about as wide as its closest neighbour spacing,
	// so the box around the centres is padded by half of that.
	margin := math.Inf(1)
	for _, s := range sc.throats {
		margin = math.Min(margin, r3.Norm(r3.Sub(s.b, s.a))/2)
	}
	if !math.IsInf(margin, 1) {
		pad := r3.Vec{X: margin, Y: margin, Z: margin}
		for _, b := range sc.pores {
			lo = minVec(lo, r3.Sub(b.c, pad))
			hi = maxVec(hi, r3.Add(b.c, pad))
		}
	}
	if sc.dims == 2 {
		lo.Z, hi.Z = 0, 0
	}
	sc.domain = r3.Box{Min: lo, Max: hi}
	if opts.Domain != nil {
		sc.domain = *opts.Domain
	}
	return sc, nil
}

func leastAligned(u r3.Vec) r3.Vec {
	x, y, z := math.Abs(u.X), math.Abs(u.Y), math.Abs(u.Z)
	switch {
	case x <= y && x <= z:
		return r3.Vec{X: 1}
	case y <= z:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

func minVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// canvas maps voxel indices to physical voxel centres.
type canvas struct {
	im    *models.Binary
	h     float64
	lo    r3.Vec
	shape [3]int
}

func (cv *canvas) centre(i, j, k int) r3.Vec {
	return r3.Vec{
		X: cv.lo.X + (float64(i)+0.5)*cv.h,
		Y: cv.lo.Y + (float64(j)+0.5)*cv.h,
		Z: cv.lo.Z + (float64(k)+0.5)*cv.h,
	}
}

// fill sets every voxel whose centre lies in [lo, hi] and satisfies inside.
func (cv *canvas) fill(lo, hi r3.Vec, inside func(p r3.Vec) bool) {
	rng := func(a, b float64, n int) (int, int) {
		first := max(0, int(math.Floor((a-cv.h/2)/cv.h)))
		last := min(n-1, int(math.Ceil((b-cv.h/2)/cv.h)))
		return first, last
	}
	i0, i1 := rng(lo.X-cv.lo.X, hi.X-cv.lo.X, cv.shape[0])
	j0, j1 := rng(lo.Y-cv.lo.Y, hi.Y-cv.lo.Y, cv.shape[1])
	k0, k1 := rng(lo.Z-cv.lo.Z, hi.Z-cv.lo.Z, cv.shape[2])
	ny, nz := cv.shape[1], cv.shape[2]
	for i := i0; i <= i1; i++ {
		for j := j0; j <= j1; j++ {
			for k := k0; k <= k1; k++ {
				if inside(cv.centre(i, j, k)) {
					cv.im.Data[(i*ny+j)*nz+k] = true
				}
			}
		}
	}
}

func (sc *scene) render(h float64) (*models.Binary, error) {
	size := r3.Sub(sc.domain.Max, sc.domain.Min)
	cells := func(e float64) int { return max(1, int(math.Ceil(e/h-1e-9))) }
	shape := []int{cells(size.X), cells(size.Y)}
	cv := &canvas{h: h, lo: sc.domain.Min, shape: [3]int{shape[0], shape[1], 1}}
	if sc.dims == 3 {
		shape = append(shape, cells(size.Z))
		cv.shape[2] = shape[2]
	} else {
		// voxel centres sit on the network plane
		cv.lo.Z = -h / 2
	}
	im, err := models.NewGrid[bool](shape, h)
	if err != nil {
		return nil, err
	}
	cv.im = im

	for _, p := range sc.pores {
		ext := r3.Vec{X: p.r, Y: p.r, Z: p.r}
		var inside func(q r3.Vec) bool
		if sc.poreShape == Cube {
			inside = func(q r3.Vec) bool {
				d := r3.Sub(q, p.c)
				return math.Abs(d.X) <= p.r && math.Abs(d.Y) <= p.r && math.Abs(d.Z) <= p.r
			}
		} else {
			inside = func(q r3.Vec) bool { return r3.Norm2(r3.Sub(q, p.c)) <= p.r*p.r }
		}
		cv.fill(r3.Sub(p.c, ext), r3.Add(p.c, ext), inside)
	}

	for _, s := range sc.throats {
		u := r3.Sub(s.b, s.a)
		l2 := r3.Norm2(u)
		ext := r3.Vec{X: s.r, Y: s.r, Z: s.r}
		if sc.throatShape == Cuboid {
			// the square cross-section reaches sqrt(2) r off the axis
			ext = r3.Scale(math.Sqrt2, ext)
		}
		lo := r3.Sub(minVec(s.a, s.b), ext)
		hi := r3.Add(maxVec(s.a, s.b), ext)
		cv.fill(lo, hi, func(q r3.Vec) bool {
			d := r3.Sub(q, s.a)
			t := r3.Dot(d, u) / l2
			if t < 0 || t > 1 {
				return false
			}
			if sc.throatShape == Cuboid {
				return math.Abs(r3.Dot(d, s.v)) <= s.r && math.Abs(r3.Dot(d, s.w)) <= s.r
			}
			perp := r3.Sub(d, r3.Scale(t, u))
			return r3.Norm2(perp) <= s.r*s.r
		})
	}
	return im, nil
}
