// Package lattice generates regular pore networks with stick-and-ball
// geometry, mainly as known inputs for synthesis and extraction checks.
package lattice

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"porenet/pkg/errs"
	"porenet/pkg/network"
)

// Options controls the random pore sizes of Cubic.
type Options struct {
	// MinFraction and MaxFraction bound pore.diameter as fractions of the
	// lattice spacing.
	MinFraction float64
	MaxFraction float64
}

// DefaultOptions returns pore diameters between 0.4 and 0.8 spacings.
func DefaultOptions() Options {
	return Options{MinFraction: 0.4, MaxFraction: 0.8}
}

// Lattice is a generated cubic network and the box it fills.
type Lattice struct {
	Network *network.Network
	Shape   []int
	Spacing float64
}

// Extent returns the size of the lattice box along each axis.
func (l *Lattice) Extent() []float64 {
	out := make([]float64, len(l.Shape))
	for a, n := range l.Shape {
		out[a] = float64(n) * l.Spacing
	}
	return out
}

// Domain returns the lattice box. 2D lattices have a flat Z extent.
func (l *Lattice) Domain() r3.Box {
	e := l.Extent()
	box := r3.Box{Max: r3.Vec{X: e[0], Y: e[1]}}
	if len(e) == 3 {
		box.Max.Z = e[2]
	}
	return box
}

// TotalVolume is the box volume (area for 2D lattices).
func (l *Lattice) TotalVolume() float64 {
	v := 1.0
	for _, e := range l.Extent() {
		v *= e
	}
	return v
}

// Cubic builds a shape[0] x shape[1] (x shape[2]) lattice with pores at
// (i+0.5)*spacing joined to their axis neighbours. Pores are cubes of side
// pore.diameter; throats are cylinders of half the smaller pore diameter
// spanning the gap between the two cubes.
func Cubic(shape []int, spacing float64, opts Options, rng *rand.Rand) (*Lattice, error) {
	const op = "lattice.Cubic"
	if len(shape) != 2 && len(shape) != 3 {
		return nil, errs.New(errs.InputShape, op, "expected 2 or 3 axes, got %d", len(shape))
	}
	np := 1
	for _, n := range shape {
		if n < 1 {
			return nil, errs.New(errs.InputShape, op, "invalid shape %v", shape)
		}
		np *= n
	}
	if spacing <= 0 || opts.MinFraction <= 0 || opts.MaxFraction < opts.MinFraction || opts.MaxFraction > 1 {
		return nil, fmt.Errorf("lattice: invalid spacing %g or size fractions %g..%g", spacing, opts.MinFraction, opts.MaxFraction)
	}
	dims := len(shape)
	strides := make([]int, dims)
	s := 1
	for a := dims - 1; a >= 0; a-- {
		strides[a] = s
		s *= shape[a]
	}

	coords := make([]float64, np*dims)
	diam := make([]float64, np)
	vol := make([]float64, np)
	boundary := make([]float64, np)
	idx := make([]int, dims)
	for p := 0; p < np; p++ {
		rem := p
		for a := dims - 1; a >= 0; a-- {
			idx[a] = rem % shape[a]
			rem /= shape[a]
		}
		for a := 0; a < dims; a++ {
			coords[p*dims+a] = (float64(idx[a]) + 0.5) * spacing
			if shape[a] > 1 && (idx[a] == 0 || idx[a] == shape[a]-1) {
				boundary[p] = 1
			}
		}
		diam[p] = spacing * (opts.MinFraction + rng.Float64()*(opts.MaxFraction-opts.MinFraction))
		vol[p] = math.Pow(diam[p], float64(dims))
	}

	var conns [][2]int
	for p := 0; p < np; p++ {
		rem := p
		for a := dims - 1; a >= 0; a-- {
			idx[a] = rem % shape[a]
			rem /= shape[a]
		}
		for a := 0; a < dims; a++ {
			if idx[a] < shape[a]-1 {
				conns = append(conns, [2]int{p, p + strides[a]})
			}
		}
	}

	nt := len(conns)
	tdiam := make([]float64, nt)
	tlen := make([]float64, nt)
	tvol := make([]float64, nt)
	area := make([]float64, nt)
	total := make([]float64, nt)
	for i, c := range conns {
		da, db := diam[c[0]], diam[c[1]]
		tdiam[i] = 0.5 * math.Min(da, db)
		tlen[i] = spacing - (da+db)/2
		total[i] = spacing
		if dims == 3 {
			area[i] = math.Pi / 4 * tdiam[i] * tdiam[i]
		} else {
			area[i] = tdiam[i]
		}
		tvol[i] = area[i] * tlen[i]
	}

	eq := make([]float64, np)
	for p, v := range vol {
		if dims == 3 {
			eq[p] = math.Cbrt(6 * v / math.Pi)
		} else {
			eq[p] = math.Sqrt(4 * v / math.Pi)
		}
	}

	pore := network.NewTable("pore", np)
	pore.MustSet(network.PoreCoords, network.Vectors(dims, coords))
	pore.MustSet(network.PoreDiameter, network.Scalars(diam))
	pore.MustSet(network.PoreInscribedDiameter, network.Scalars(append([]float64(nil), diam...)))
	pore.MustSet(network.PoreEquivalentDiameter, network.Scalars(eq))
	pore.MustSet(network.PoreVolume, network.Scalars(vol))
	pore.MustSet(network.PoreBoundary, network.Scalars(boundary))

	throat := network.NewTable("throat", nt)
	throat.MustSet(network.ThroatDiameter, network.Scalars(tdiam))
	throat.MustSet(network.ThroatInscribedDiameter, network.Scalars(append([]float64(nil), tdiam...)))
	throat.MustSet(network.ThroatEquivalentDiameter, network.Scalars(append([]float64(nil), tdiam...)))
	throat.MustSet(network.ThroatCrossSectionalArea, network.Scalars(area))
	throat.MustSet(network.ThroatLength, network.Scalars(tlen))
	throat.MustSet(network.ThroatConduitLength, network.Scalars(append([]float64(nil), tlen...)))
	throat.MustSet(network.ThroatTotalLength, network.Scalars(total))
	throat.MustSet(network.ThroatVolume, network.Scalars(tvol))

	net, err := network.New(pore, throat, conns)
	if err != nil {
		return nil, err
	}
	return &Lattice{Network: net, Shape: append([]int(nil), shape...), Spacing: spacing}, nil
}
