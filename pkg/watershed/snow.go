package watershed

import (
	"time"

	"github.com/rs/zerolog"

	"porenet/internal/logger"
	"porenet/internal/models"
	"porenet/pkg/distance"
	"porenet/pkg/errs"
	"porenet/pkg/peaks"
)

// SnowOptions configures the SNOW segmentation
type SnowOptions struct {
	// Distance configures the distance transform (periodic axes, workers)
	Distance distance.Options

	// Peaks configures seed detection and merging
	Peaks peaks.Options

	// Mask optionally restricts partitioning to a sub-region
	Mask *models.Binary

	// Logger receives stage timings; nil disables logging
	Logger *zerolog.Logger
}

// DefaultSnowOptions returns the standard SNOW settings.
func DefaultSnowOptions() SnowOptions {
	return SnowOptions{Peaks: peaks.DefaultOptions()}
}

// SnowResult holds every intermediate of a SNOW segmentation.
type SnowResult struct {
	// Image is the input binary image
	Image *models.Binary

	// DistanceField is the distance transform of Image
	DistanceField *models.Field

	// Peaks are the surviving seeds; Peaks[i] seeds region i+1
	Peaks []peaks.Peak

	// Regions is the labeled partition of the void space
	Regions *models.Labels

	// Boundary is indexed by label and flags regions touching the image faces
	Boundary []bool
}

// PeakImage returns an image holding the region label at each peak voxel.
func (s *SnowResult) PeakImage() *models.Labels {
	out := models.NewLike[int32](s.Regions)
	for i, p := range s.Peaks {
		out.Data[p.Index] = int32(i + 1)
	}
	return out
}

// Snow segments the void phase of im into pore regions.
func Snow(im *models.Binary, opts SnowOptions) (*SnowResult, error) {
	const op = "watershed.Snow"
	if im == nil || len(im.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty image")
	}
	log := logger.OrNop(opts.Logger)

	start := time.Now()
	dt, err := distance.Transform(im, opts.Distance)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("distance transform done")

	start = time.Now()
	pk, err := peaks.Find(dt, opts.Peaks)
	if err != nil {
		return nil, err
	}
	if opts.Mask != nil {
		if !models.SameShape(im, opts.Mask) {
			return nil, errs.New(errs.InputShape, op, "mask shape %v does not match image shape %v", opts.Mask.Shape, im.Shape)
		}
		kept := pk[:0]
		for _, p := range pk {
			if opts.Mask.Data[p.Index] {
				kept = append(kept, p)
			}
		}
		pk = kept
	}
	log.Debug().Int("peaks", len(pk)).Dur("elapsed", time.Since(start)).Msg("peak detection done")

	start = time.Now()
	res, err := Partition(dt, pk, Options{Mask: opts.Mask})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("regions", res.NumRegions()).
		Int("seeded", res.NumRegions()-len(pk)).
		Dur("elapsed", time.Since(start)).
		Msg("watershed done")

	return &SnowResult{
		Image:         im,
		DistanceField: dt,
		Peaks:         res.Peaks,
		Regions:       res.Regions,
		Boundary:      res.Boundary,
	}, nil
}
