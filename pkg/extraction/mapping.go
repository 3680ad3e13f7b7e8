package extraction

import (
	"porenet/internal/models"
	"porenet/pkg/errs"
)

// MapToRegions broadcasts values[r-1] onto every voxel labeled r; label 0
// voxels get 0. len(values) must equal the largest label.
func MapToRegions(labels *models.Labels, values []float64) (*models.Field, error) {
	const op = "extraction.MapToRegions"
	if labels == nil || len(labels.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty label image")
	}
	var top int32
	for _, l := range labels.Data {
		if l < 0 {
			return nil, errs.New(errs.InputShape, op, "negative label %d", l)
		}
		top = max(top, l)
	}
	if len(values) != int(top) {
		return nil, errs.New(errs.ValueCountMismatch, op, "got %d values for %d regions", len(values), top)
	}

	out := models.NewLike[float64](labels)
	for i, l := range labels.Data {
		if l > 0 {
			out.Data[i] = values[l-1]
		}
	}
	return out, nil
}
