// Package visualization renders axis slices of label and value images as
// WebP or PNG previews, for inspecting segmentations and region quantities.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"

	"porenet/internal/models"
)

// Viewer extracts 2D slices from a 2D or 3D image.
type Viewer struct {
	// values holds the voxel values in grid order
	values []float64

	// shape is the grid shape padded to three axes
	shape [3]int

	// labels selects the categorical palette instead of gray levels
	labels bool

	// lo and hi are the value range mapped to black and white
	lo, hi float64

	// Scale enlarges each voxel to Scale x Scale pixels
	Scale int
}

// NewFieldViewer shows f in gray levels stretched over its value range.
func NewFieldViewer(f *models.Field) *Viewer {
	v := newViewer(f.Shape, f.Data)
	v.lo, v.hi = math.Inf(1), math.Inf(-1)
	for _, x := range f.Data {
		v.lo = math.Min(v.lo, x)
		v.hi = math.Max(v.hi, x)
	}
	return v
}

// NewLabelViewer shows l with one color per label; label 0 is black.
func NewLabelViewer(l *models.Labels) *Viewer {
	data := make([]float64, len(l.Data))
	for i, x := range l.Data {
		data[i] = float64(x)
	}
	v := newViewer(l.Shape, data)
	v.labels = true
	return v
}

// NewBinaryViewer shows void white and solid black.
func NewBinaryViewer(im *models.Binary) *Viewer {
	data := make([]float64, len(im.Data))
	for i, x := range im.Data {
		if x {
			data[i] = 1
		}
	}
	v := newViewer(im.Shape, data)
	v.lo, v.hi = 0, 1
	return v
}

func newViewer(shape []int, data []float64) *Viewer {
	v := &Viewer{values: data, shape: [3]int{1, 1, 1}, Scale: 1}
	copy(v.shape[:], shape)
	return v
}

// Depth returns the number of slices along axis.
func (v *Viewer) Depth(axis string) (int, error) {
	a, err := axisIndex(axis)
	if err != nil {
		return 0, err
	}
	return v.shape[a], nil
}

func axisIndex(axis string) (int, error) {
	switch strings.ToLower(axis) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractSlice extracts the plane at position normal to axis. Grid axis 0
// maps to x, 1 to y and 2 to z; a 2D image has a single z slice.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	a, err := axisIndex(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= v.shape[a] {
		return nil, fmt.Errorf("position %d outside 0..%d along %s", position, v.shape[a]-1, axis)
	}

	// the two remaining axes become image columns and rows
	var cols, rows int
	switch a {
	case 0:
		cols, rows = 2, 1
	case 1:
		cols, rows = 0, 2
	default:
		cols, rows = 0, 1
	}
	w, h := v.shape[cols], v.shape[rows]
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	idx := [3]int{}
	idx[a] = position
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			idx[cols], idx[rows] = c, r
			flat := (idx[0]*v.shape[1]+idx[1])*v.shape[2] + idx[2]
			img.SetRGBA(c, r, v.color(v.values[flat]))
		}
	}
	if v.Scale <= 1 {
		return img, nil
	}
	big := image.NewRGBA(image.Rect(0, 0, w*v.Scale, h*v.Scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), img, img.Bounds(), draw.Src, nil)
	return big, nil
}

func (v *Viewer) color(x float64) color.RGBA {
	if v.labels {
		return labelColor(int64(x))
	}
	g := uint8(0)
	if v.hi > v.lo {
		g = uint8(math.Round(255 * (x - v.lo) / (v.hi - v.lo)))
	}
	return color.RGBA{R: g, G: g, B: g, A: 255}
}

// labelColor spreads consecutive labels over well separated hues.
func labelColor(l int64) color.RGBA {
	if l <= 0 {
		return color.RGBA{A: 255}
	}
	h := math.Mod(float64(l)*0.618033988749895, 1)
	r, g, b := hsv(h, 0.65, 0.95)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hsv(h, s, v float64) (uint8, uint8, uint8) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p, q, t := v*(1-s), v*(1-f*s), v*(1-(1-f)*s)
	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return uint8(255 * r), uint8(255 * g), uint8(255 * b)
}

// SaveSlice saves an extracted slice as WebP or PNG depending on the
// filename extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".webp":
		err = nativewebp.Encode(file, img, nil)
	case ".png":
		err = png.Encode(file, img)
	default:
		return fmt.Errorf("unsupported preview format %q", filepath.Ext(filename))
	}
	if err != nil {
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis
// as slice_<axis>_<pos>.<format>.
func (v *Viewer) SaveSliceSequence(axis, outputDir, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	n, err := v.Depth(axis)
	if err != nil {
		return err
	}
	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
