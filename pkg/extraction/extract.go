// Package extraction converts a labeled pore image into a pore network and
// maps per-region values back onto the image.
package extraction

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"porenet/internal/logger"
	"porenet/internal/models"
	"porenet/pkg/distance"
	"porenet/pkg/errs"
	"porenet/pkg/network"
)

// DefaultMinConduitLength is the conduit length floor in voxel lengths.
const DefaultMinConduitLength = 0.01

// Options configures ExtractNetwork.
type Options struct {
	// SplitPatches emits one throat per connected contact patch of a region
	// pair instead of one throat per pair.
	SplitPatches bool

	// MinConduitLength floors throat.conduit_length, in units of the smallest
	// voxel spacing. Zero uses DefaultMinConduitLength.
	MinConduitLength float64

	// DistanceField optionally supplies the distance transform of the void
	// (label > 0) phase, e.g. the one computed by the segmentation.
	DistanceField *models.Field

	// Workers bounds the goroutines of the aggregation. Zero uses all CPUs.
	Workers int

	// Logger receives progress and clamp warnings; nil disables logging
	Logger *zerolog.Logger
}

// ExtractNetwork builds a network from a labeled image: one pore per positive
// label r (pore ID r-1) and one throat per pair of face-adjacent regions.
// Physical quantities use the grid spacing. Singleton axes are squeezed for
// the computation and their coordinate columns come back as zeros.
func ExtractNetwork(labels *models.Labels, opts Options) (*network.Network, error) {
	const op = "extraction.ExtractNetwork"
	if labels == nil || len(labels.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty label image")
	}
	if labels.Dims() != 2 && labels.Dims() != 3 {
		return nil, errs.New(errs.InputShape, op, "expected 2 or 3 dimensions, got %d", labels.Dims())
	}
	log := logger.OrNop(opts.Logger)
	start := time.Now()

	nr := 0
	for i, l := range labels.Data {
		if l < 0 {
			return nil, errs.New(errs.InputShape, op, "negative label %d at voxel %v", l, labels.Coords(i, nil))
		}
		nr = max(nr, int(l))
	}

	dt, err := voidDistance(labels, opts.DistanceField)
	if err != nil {
		return nil, err
	}
	work, kept := labels.Squeeze()

	t := gather(work, dt.Data, nr, opts.Workers)
	for r := 1; r <= nr; r++ {
		if t.count[r] == 0 {
			return nil, errs.New(errs.DegenerateGeometry, op, "label %d has no voxels; labels must be dense in 1..%d", r, nr)
		}
	}

	b := &builder{
		grid:    work,
		kept:    kept,
		outDims: labels.Dims(),
		dt:      dt.Data,
		tally:   t,
		nr:      nr,
	}
	pore := b.pores()

	pairs := make([]pairKey, 0, len(t.faces))
	for k := range t.faces {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	minLen := opts.MinConduitLength
	if minLen <= 0 {
		minLen = DefaultMinConduitLength
	}
	spacing := math.Inf(1)
	for _, s := range work.Spacing {
		spacing = math.Min(spacing, s)
	}
	minLen *= spacing

	var conns [][2]int
	var rows []throatRow
	for _, k := range pairs {
		patches := [][]face{t.faces[k]}
		if opts.SplitPatches {
			patches = splitPatches(work, t.faces[k])
		}
		for pi, faces := range patches {
			row := b.throat(k, faces, minLen)
			row.patch = pi
			if row.clamped {
				log.Warn().
					Err(errs.New(errs.DegenerateGeometry, op, "conduit length %.4g below %.4g", row.rawConduit, minLen)).
					Int("pore1", int(k.a)-1).
					Int("pore2", int(k.b)-1).
					Msg("conduit length clamped")
			}
			rows = append(rows, row)
			conns = append(conns, [2]int{int(k.a) - 1, int(k.b) - 1})
		}
	}

	throat := b.throats(rows, opts.SplitPatches)
	net, err := network.New(pore, throat, conns)
	if err != nil {
		return nil, errs.Wrap(errs.DegenerateGeometry, op, err)
	}
	if err := net.Validate(); err != nil {
		return nil, errs.Wrap(errs.DegenerateGeometry, op, err)
	}
	log.Debug().
		Int("pores", net.NumPores()).
		Int("throats", net.NumThroats()).
		Dur("elapsed", time.Since(start)).
		Msg("network extracted")
	return net, nil
}

// voidDistance returns the squeezed distance field of the labeled void.
func voidDistance(labels *models.Labels, given *models.Field) (*models.Field, error) {
	if given != nil {
		if !models.SameShape(labels, given) {
			return nil, errs.New(errs.InputShape, "extraction.ExtractNetwork", "distance field shape %v does not match labels %v", given.Shape, labels.Shape)
		}
		sq, _ := given.Squeeze()
		return sq, nil
	}
	void := models.NewLike[bool](labels)
	for i, l := range labels.Data {
		void.Data[i] = l > 0
	}
	dt, err := distance.Transform(void, distance.Options{})
	if err != nil {
		return nil, err
	}
	sq, _ := dt.Squeeze()
	return sq, nil
}
