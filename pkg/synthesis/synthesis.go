// Package synthesis renders a pore network back into a binary voxel image by
// drawing a solid shape for every pore and throat.
package synthesis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"porenet/internal/logger"
	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/generators"
	"porenet/pkg/network"
)

var (
	// ErrUnknownShape indicates an unsupported pore or throat shape name.
	ErrUnknownShape = errors.New("synthesis: unknown shape")
	// ErrMissingSize indicates that neither the size key nor its fallback exists.
	ErrMissingSize = errors.New("synthesis: missing size attribute")
)

// Pore and throat shapes.
const (
	Cube     = "cube"
	Sphere   = "sphere"
	Cylinder = "cylinder"
	Cuboid   = "cuboid"
)

// Options configures Generate.
type Options struct {
	// PoreShape is "sphere" or "cube"
	PoreShape string
	// ThroatShape is "cylinder" or "cuboid"
	ThroatShape string
	// MaxDim caps the number of voxels along the longest axis
	MaxDim int
	// RTol stops refinement once the porosity changes by less than this fraction
	RTol float64
	// Domain is the physical box to render. nil uses the pore centres padded
	// by half the shortest throat span, widened to hold every pore extent.
	Domain *r3.Box
	// PoreSizeKey and ThroatSizeKey name the diameter attributes. Empty
	// values use pore.diameter and throat.diameter, falling back to the
	// inscribed diameters.
	PoreSizeKey   string
	ThroatSizeKey string
	// Logger receives refinement progress; nil disables logging
	Logger *zerolog.Logger
}

// DefaultOptions returns spheres and cylinders refined up to 200 voxels.
func DefaultOptions() Options {
	return Options{PoreShape: Sphere, ThroatShape: Cylinder, MaxDim: 200, RTol: 0.1}
}

// initialDim is the resolution of the first pass along the longest axis.
const initialDim = 16

// Generate renders net. Resolution starts at a coarse voxel count along the
// longest axis and doubles until the porosity settles within RTol or MaxDim
// is reached. Networks with two coordinate columns give 2D images.
func Generate(net *network.Network, opts Options) (*models.Binary, error) {
	const op = "synthesis.Generate"
	if opts.PoreShape != Cube && opts.PoreShape != Sphere {
		return nil, fmt.Errorf("%w: pore shape %q", ErrUnknownShape, opts.PoreShape)
	}
	if opts.ThroatShape != Cylinder && opts.ThroatShape != Cuboid {
		return nil, fmt.Errorf("%w: throat shape %q", ErrUnknownShape, opts.ThroatShape)
	}
	if opts.MaxDim <= 0 {
		opts.MaxDim = DefaultOptions().MaxDim
	}
	log := logger.OrNop(opts.Logger)

	sc, err := prepare(net, opts)
	if err != nil {
		return nil, err
	}
	size := r3.Sub(sc.domain.Max, sc.domain.Min)
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	if longest <= 0 || size.X <= 0 || size.Y <= 0 || sc.dims == 3 && size.Z <= 0 {
		return nil, errs.New(errs.DegenerateGeometry, op, "empty domain %v", size)
	}

	n := min(initialDim, opts.MaxDim)
	var im *models.Binary
	prev := -1.0
	for {
		start := time.Now()
		im, err = sc.render(longest / float64(n))
		if err != nil {
			return nil, errs.Wrap(errs.InputShape, op, err)
		}
		phi := generators.Porosity(im)
		log.Debug().
			Ints("shape", im.Shape).
			Float64("porosity", phi).
			Dur("elapsed", time.Since(start)).
			Msg("voxel image rendered")
		if prev > 0 && math.Abs(phi-prev)/prev < opts.RTol || n >= opts.MaxDim {
			return im, nil
		}
		prev = phi
		n = min(2*n, opts.MaxDim)
	}
}
