package extraction

import (
	"math"

	"porenet/internal/models"
	"porenet/pkg/network"
)

// builder turns a merged tally into attribute tables.
type builder struct {
	grid    *models.Labels // squeezed
	kept    []int          // original axis of each squeezed axis
	outDims int
	dt      []float64
	tally   *tally
	nr      int

	centroids []float64 // squeezed physical coordinates, nr rows
	radii     []float64
}

type throatRow struct {
	area       float64
	inscribed  float64
	total      float64
	conduit    float64
	rawConduit float64
	clamped    bool
	patch      int
}

// expand copies squeezed coordinates into a row of the original dimensionality.
func (b *builder) expand(dst, src []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for i, a := range b.kept {
		dst[a] = src[i]
	}
}

func equivalentDiameter(measure float64, dims int) float64 {
	if dims == 3 {
		return math.Cbrt(6 * measure / math.Pi)
	}
	return math.Sqrt(4 * measure / math.Pi)
}

func (b *builder) pores() *network.Table {
	g, t, nr := b.grid, b.tally, b.nr
	dims := g.Dims()
	vox := g.VoxelVolume()

	label := make([]float64, nr)
	coords := make([]float64, nr*b.outDims)
	peak := make([]float64, nr*b.outDims)
	volume := make([]float64, nr)
	eqd := make([]float64, nr)
	insd := make([]float64, nr)
	area := make([]float64, nr)
	boundary := make([]float64, nr)
	b.centroids = make([]float64, nr*dims)
	b.radii = make([]float64, nr)

	c := make([]int, dims)
	row := make([]float64, dims)
	for r := 1; r <= nr; r++ {
		i := r - 1
		n := float64(t.count[r])
		for a := 0; a < dims; a++ {
			row[a] = float64(t.coordSum[r*dims+a]) / n * g.Spacing[a]
			area[i] += float64(t.surface[r*dims+a]) * g.FaceArea(a)
		}
		copy(b.centroids[i*dims:], row)
		b.expand(coords[i*b.outDims:(i+1)*b.outDims], row)

		c = g.Coords(t.peak[r], c)
		for a := 0; a < dims; a++ {
			row[a] = float64(c[a]) * g.Spacing[a]
		}
		b.expand(peak[i*b.outDims:(i+1)*b.outDims], row)

		label[i] = float64(r)
		volume[i] = n * vox
		eqd[i] = equivalentDiameter(volume[i], g.EffectiveDims())
		b.radii[i] = b.dt[t.peak[r]]
		insd[i] = 2 * b.radii[i]
		if t.boundary[r] {
			boundary[i] = 1
		}
	}

	tbl := network.NewTable("pore", nr)
	tbl.MustSet(network.PoreRegionLabel, network.Scalars(label))
	tbl.MustSet(network.PoreCoords, network.Vectors(b.outDims, coords))
	tbl.MustSet(network.PoreVolume, network.Scalars(volume))
	tbl.MustSet(network.PoreEquivalentDiameter, network.Scalars(eqd))
	tbl.MustSet(network.PoreInscribedDiameter, network.Scalars(insd))
	tbl.MustSet(network.PoreSurfaceArea, network.Scalars(area))
	tbl.MustSet(network.PoreLocalPeak, network.Vectors(b.outDims, peak))
	tbl.MustSet(network.PoreBoundary, network.Scalars(boundary))
	return tbl
}

// throat measures one contact patch between regions k.a and k.b.
func (b *builder) throat(k pairKey, faces []face, minLen float64) throatRow {
	g := b.grid
	var row throatRow
	for _, f := range faces {
		row.area += g.FaceArea(f.axis)
		row.inscribed = math.Max(row.inscribed, math.Max(b.dt[f.p], b.dt[f.q]))
	}
	row.inscribed *= 2

	dims := g.Dims()
	pa, pb := int(k.a)-1, int(k.b)-1
	var d2 float64
	for a := 0; a < dims; a++ {
		d := b.centroids[pa*dims+a] - b.centroids[pb*dims+a]
		d2 += d * d
	}
	row.total = math.Sqrt(d2)
	row.rawConduit = row.total - b.radii[pa] - b.radii[pb]
	row.conduit = row.rawConduit
	if row.conduit < minLen {
		row.conduit = minLen
		row.clamped = true
	}
	return row
}

func (b *builder) throats(rows []throatRow, patches bool) *network.Table {
	n := len(rows)
	area := make([]float64, n)
	insd := make([]float64, n)
	eqd := make([]float64, n)
	total := make([]float64, n)
	conduit := make([]float64, n)
	clamped := make([]float64, n)
	patch := make([]float64, n)
	for i, r := range rows {
		area[i] = r.area
		insd[i] = r.inscribed
		if b.grid.EffectiveDims() == 3 {
			eqd[i] = equivalentDiameter(r.area, 2)
		} else {
			eqd[i] = r.area
		}
		total[i] = r.total
		conduit[i] = r.conduit
		if r.clamped {
			clamped[i] = 1
		}
		patch[i] = float64(r.patch)
	}

	tbl := network.NewTable("throat", n)
	tbl.MustSet(network.ThroatCrossSectionalArea, network.Scalars(area))
	tbl.MustSet(network.ThroatInscribedDiameter, network.Scalars(insd))
	tbl.MustSet(network.ThroatEquivalentDiameter, network.Scalars(eqd))
	tbl.MustSet(network.ThroatTotalLength, network.Scalars(total))
	tbl.MustSet(network.ThroatConduitLength, network.Scalars(conduit))
	tbl.MustSet(network.ThroatClamped, network.Scalars(clamped))
	if patches {
		tbl.MustSet(network.ThroatPatch, network.Scalars(patch))
	}
	return tbl
}
