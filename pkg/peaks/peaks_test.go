package peaks

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porenet/internal/models"
	"porenet/pkg/distance"
	"porenet/pkg/errs"
	"porenet/pkg/filter"
)

// twoDisks draws two touching disks; their centres are the only true maxima
func twoDisks(t *testing.T, shape []int) *models.Binary {
	im, err := models.NewGrid[bool](shape)
	require.NoError(t, err)
	centres := [][2]float64{{10, 10}, {10, 25}}
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for _, c := range centres {
				di, dj := float64(i)-c[0], float64(j)-c[1]
				if di*di+dj*dj <= 8*8 {
					im.Set(true, i, j)
				}
			}
		}
	}
	return im
}

func TestFindTwoDisks(t *testing.T) {
	im := twoDisks(t, []int{21, 36})
	dt, err := distance.Transform(im, distance.Options{})
	require.NoError(t, err)

	found, err := Find(dt, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, []int{10, 10}, found[0].Coords)
	assert.Equal(t, []int{10, 25}, found[1].Coords)
	for _, p := range found {
		assert.Greater(t, p.Value, 0.0)
		assert.Equal(t, dt.Index(p.Coords...), p.Index)
	}
}

func TestFindPeaksAreUniqueAndVoid(t *testing.T) {
	im, err := models.NewGrid[bool]([]int{30, 30})
	require.NoError(t, err)
	for i := range im.Data {
		im.Data[i] = (i*7919)%11 != 0
	}
	dt, err := distance.Transform(im, distance.Options{})
	require.NoError(t, err)

	found, err := Find(dt, Options{RMax: 2, RMin: 1, Sigma: 0})
	require.NoError(t, err)
	require.NotEmpty(t, found)
	seen := map[int]bool{}
	for i, p := range found {
		assert.False(t, seen[p.Index], "duplicate peak %d", p.Index)
		seen[p.Index] = true
		assert.True(t, im.Data[p.Index], "peak on solid")
		if i > 0 {
			assert.Greater(t, p.Index, found[i-1].Index)
		}
	}
}

func TestFindPlateauCollapses(t *testing.T) {
	dt, err := models.NewGrid[float64]([]int{5, 8})
	require.NoError(t, err)
	// flat ridge of equal maxima inside an otherwise solid field
	for j, v := range []float64{1, 2, 3, 3, 3, 3, 2, 1} {
		dt.Set(v, 2, j)
	}
	found, err := Find(dt, Options{RMax: 1, Sigma: 0})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []int{2, 2}, found[0].Coords)
}

// cones builds a field of max_k(h_k - |x - c_k|), solid where negative
func cones(t *testing.T, shape []int, centres [][2]int, heights []float64) *models.Field {
	dt, err := models.NewGrid[float64](shape)
	require.NoError(t, err)
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			best := 0.0
			for k, c := range centres {
				di, dj := float64(i-c[0]), float64(j-c[1])
				best = math.Max(best, heights[k]-math.Sqrt(di*di+dj*dj))
			}
			dt.Set(best, i, j)
		}
	}
	return dt
}

func TestFindMergeKeepsHighest(t *testing.T) {
	dt := cones(t, []int{12, 12}, [][2]int{{4, 4}, {4, 7}, {10, 10}}, []float64{5, 6, 4})

	found, err := Find(dt, Options{RMax: 1, Sigma: 0})
	require.NoError(t, err)
	require.Len(t, found, 3)

	found, err = Find(dt, Options{RMax: 1, RMin: 3.5, Sigma: 0})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, []int{4, 7}, found[0].Coords)
	assert.Equal(t, []int{10, 10}, found[1].Coords)
}

func TestFindSlabMatches2D(t *testing.T) {
	im := twoDisks(t, []int{21, 36})
	dt, err := distance.Transform(im, distance.Options{})
	require.NoError(t, err)
	want, err := Find(dt, DefaultOptions())
	require.NoError(t, err)

	slab, err := models.FromData([]int{21, 1, 36}, dt.Data)
	require.NoError(t, err)
	got, err := Find(slab, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Index, got[i].Index)
		assert.Equal(t, []int{want[i].Coords[0], 0, want[i].Coords[1]}, got[i].Coords)
	}
}

func TestSmoothVoidIgnoresSolid(t *testing.T) {
	f, err := models.NewGrid[float64]([]int{12, 10})
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		for j := 0; j < 10; j++ {
			if i >= 4 {
				f.Set(3, i, j)
			}
		}
	}

	got, err := smoothVoid(f, 1.5, 2)
	require.NoError(t, err)
	for i, v := range f.Data {
		if v > 0 {
			assert.InDelta(t, 3.0, got.Data[i], 1e-9, "void voxel %v", f.Coords(i, nil))
		} else {
			assert.Zero(t, got.Data[i], "solid voxel %v", f.Coords(i, nil))
		}
	}

	// an unmasked blur drags the wall layer down
	plain, err := filter.Gaussian(f, 1.5, filter.Options{})
	require.NoError(t, err)
	assert.Less(t, plain.At(4, 5), 2.9)
}

func TestFindRejectsEmpty(t *testing.T) {
	_, err := Find(nil, DefaultOptions())
	assert.True(t, errors.Is(err, errs.ErrInputShape))
}
