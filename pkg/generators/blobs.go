// Package generators creates synthetic porous images for tests and demos.
//
// Generators take an explicit *rand.Rand so callers control reproducibility
// without touching process-wide random state.
package generators

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"porenet/internal/models"
	"porenet/pkg/filter"
)

// BlobOptions controls the blob generator
type BlobOptions struct {
	// Porosity is the target void fraction in (0, 1]
	Porosity float64

	// Blobiness scales the feature size; larger values give smaller blobs
	Blobiness float64

	// Spacing is the voxel size attached to the image (unit when empty)
	Spacing []float64
}

// DefaultBlobOptions returns a half-porous image with unit blobiness.
func DefaultBlobOptions() BlobOptions {
	return BlobOptions{Porosity: 0.5, Blobiness: 1}
}

// Blobs returns an image of smooth random blobs: uniform noise smoothed by a
// Gaussian of sigma mean(shape)/(40*blobiness), thresholded at the porosity
// quantile. Noise is drawn in flat index order, so shapes that differ only by
// where a singleton axis sits produce the same pattern.
func Blobs(shape []int, opts BlobOptions, rng *rand.Rand) (*models.Binary, error) {
	if !(opts.Porosity > 0 && opts.Porosity <= 1) {
		return nil, fmt.Errorf("porosity must be in (0, 1], got %v", opts.Porosity)
	}
	if !(opts.Blobiness > 0) {
		return nil, fmt.Errorf("blobiness must be positive, got %v", opts.Blobiness)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	noise, err := models.NewGrid[float64](shape, opts.Spacing...)
	if err != nil {
		return nil, err
	}
	for i := range noise.Data {
		noise.Data[i] = rng.Float64()
	}

	sum := 0
	for _, s := range shape {
		sum += s
	}
	sigma := float64(sum) / float64(len(shape)) / (40 * opts.Blobiness)
	smooth, err := filter.Gaussian(noise, sigma, filter.Options{})
	if err != nil {
		return nil, err
	}

	sorted := append([]float64(nil), smooth.Data...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(opts.Porosity, stat.Empirical, sorted, nil)

	im := models.NewLike[bool](smooth)
	for i, v := range smooth.Data {
		im.Data[i] = v <= threshold
	}
	return im, nil
}

// Porosity returns the void fraction of im.
func Porosity(im *models.Binary) float64 {
	if len(im.Data) == 0 {
		return 0
	}
	n := 0
	for _, v := range im.Data {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(im.Data))
}
