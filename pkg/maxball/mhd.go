package maxball

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"porenet/internal/models"
	"porenet/pkg/imageio"
)

// writeMetaImage stores im as {prefix}.mhd + {prefix}.raw in dir: one
// unsigned byte per voxel, void 0 and solid 1, first axis fastest. 2D images
// gain a unit third axis. It returns the header path.
func writeMetaImage(dir, prefix string, im *models.Binary, spacing []float64) (string, error) {
	shape := [3]int{1, 1, 1}
	sp := [3]float64{1, 1, 1}
	copy(shape[:], im.Shape)
	copy(sp[:], spacing)

	rawName := prefix + ".raw"
	if err := imageio.SaveRaw(filepath.Join(dir, rawName), im, 0); err != nil {
		return "", fmt.Errorf("writing raw image: %w", err)
	}

	header := filepath.Join(dir, prefix+".mhd")
	f, err := os.Create(header)
	if err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "ObjectType = Image")
	fmt.Fprintln(w, "NDims = 3")
	fmt.Fprintf(w, "ElementSpacing = %s\n", joinFloats(sp[:]))
	fmt.Fprintf(w, "ElementSize = %s\n", joinFloats(sp[:]))
	fmt.Fprintf(w, "DimSize = %d %d %d\n", shape[0], shape[1], shape[2])
	fmt.Fprintln(w, "ElementType = MET_UCHAR")
	fmt.Fprintf(w, "ElementDataFile = %s\n", rawName)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	return header, f.Close()
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return strings.Join(parts, " ")
}
