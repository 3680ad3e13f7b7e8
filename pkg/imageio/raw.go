package imageio

import (
	"os"

	"porenet/internal/models"
	"porenet/pkg/errs"
)

// RawOptions describes a raw voxel dump: one byte per voxel, first axis
// fastest, as written for MetaImage consumers.
type RawOptions struct {
	// VoidValue is the byte marking void voxels; every other value is solid
	VoidValue byte

	// Spacing is the voxel size, scalar or per axis
	Spacing []float64
}

// LoadRaw reads a raw dump of the given shape.
func LoadRaw(path string, shape []int, opts RawOptions) (*models.Binary, error) {
	im, err := models.NewGrid[bool](shape, opts.Spacing...)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != im.Len() {
		return nil, errs.New(errs.InputShape, "imageio.LoadRaw", "%s holds %d bytes, shape %v needs %d", path, len(data), shape, im.Len())
	}
	order := fortranOrder(im.Shape)
	for i, f := range order {
		im.Data[i] = data[f] == opts.VoidValue
	}
	return im, nil
}

// SaveRaw writes im in the layout LoadRaw reads, void as VoidValue and solid
// as any other byte.
func SaveRaw(path string, im *models.Binary, voidValue byte) error {
	solid := byte(1)
	if voidValue == 1 {
		solid = 0
	}
	data := make([]byte, im.Len())
	for i, f := range fortranOrder(im.Shape) {
		if im.Data[i] {
			data[f] = voidValue
		} else {
			data[f] = solid
		}
	}
	return os.WriteFile(path, data, 0644)
}

// fortranOrder maps each row-major flat index to its first-axis-fastest offset.
func fortranOrder(shape []int) []int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	out := make([]int, n)
	idx := make([]int, len(shape))
	for i := range out {
		f, stride := 0, 1
		for a := range shape {
			f += idx[a] * stride
			stride *= shape[a]
		}
		out[i] = f
		// advance the row-major index, last axis fastest
		for a := len(shape) - 1; a >= 0; a-- {
			idx[a]++
			if idx[a] < shape[a] {
				break
			}
			idx[a] = 0
		}
	}
	return out
}
