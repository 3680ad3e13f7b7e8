// Package imageio loads binary pore images from slice stacks and raw voxel
// dumps, and writes them back.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"porenet/internal/models"
	"porenet/pkg/errs"
)

// DefaultThreshold is the gray level above which a pixel is void.
const DefaultThreshold = 127

// StackOptions controls slice stack loading.
type StackOptions struct {
	// Threshold is the 8-bit gray level above which a pixel is void
	Threshold uint8

	// Invert treats dark pixels as void
	Invert bool

	// Spacing is the voxel size, scalar or per axis
	Spacing []float64
}

var stackExts = map[string]bool{".tif": true, ".tiff": true, ".png": true, ".jpg": true, ".jpeg": true}

// LoadStack reads every image file of dir, ordered by the number embedded in
// its name, into a [width, height, slices] binary image. A single file gives
// a 2D [width, height] image. Axis 0 runs along image x.
func LoadStack(dir string, opts StackOptions) (*models.Binary, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// Filter and sort image files
	var names []string
	for _, f := range files {
		if !f.IsDir() && stackExts[strings.ToLower(filepath.Ext(f.Name()))] {
			names = append(names, f.Name())
		}
	}
	if len(names) == 0 {
		return nil, errs.New(errs.InputShape, "imageio.LoadStack", "no slice images found in %s", dir)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	var im *models.Binary
	var w, h int
	for z, name := range names {
		img, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		b := img.Bounds()
		if im == nil {
			w, h = b.Dx(), b.Dy()
			shape := []int{w, h}
			if len(names) > 1 {
				shape = append(shape, len(names))
			}
			if im, err = models.NewGrid[bool](shape, opts.Spacing...); err != nil {
				return nil, err
			}
		} else if b.Dx() != w || b.Dy() != h {
			return nil, errs.New(errs.InputShape, "imageio.LoadStack", "slice %s is %dx%d, expected %dx%d", name, b.Dx(), b.Dy(), w, h)
		}
		nz := len(names)
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
				void := g > opts.Threshold
				if opts.Invert {
					void = !void
				}
				if nz > 1 {
					im.Data[(x*h+y)*nz+z] = void
				} else {
					im.Data[x*h+y] = void
				}
			}
		}
	}
	return im, nil
}

// LoadImage decodes a TIFF, PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return tiff.Decode(f)
	case ".png":
		return png.Decode(f)
	case ".jpg", ".jpeg":
		return jpeg.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
}

// SaveStack writes one TIFF slice per position along the last axis of a 3D
// image, or a single slice for a 2D image. Void pixels are white.
func SaveStack(im *models.Binary, dir string) error {
	if im.Dims() != 2 && im.Dims() != 3 {
		return errs.New(errs.InputShape, "imageio.SaveStack", "expected 2 or 3 dimensions, got %d", im.Dims())
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	w, h, nz := im.Shape[0], im.Shape[1], 1
	if im.Dims() == 3 {
		nz = im.Shape[2]
	}
	for z := 0; z < nz; z++ {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				if im.Data[(x*h+y)*nz+z] {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("slice_%04d.tif", z)))
		if err != nil {
			return err
		}
		if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// extractNumber returns the digits of a file name read as one integer, or 0.
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() > 0 {
		if n, err := strconv.Atoi(digits.String()); err == nil {
			return n
		}
	}
	return 0
}
