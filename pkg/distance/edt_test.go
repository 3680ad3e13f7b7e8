package distance

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porenet/internal/models"
	"porenet/pkg/errs"
)

// randomImage creates a binary image with the given void fraction
func randomImage(t *testing.T, rng *rand.Rand, shape []int, porosity float64, spacing ...float64) *models.Binary {
	im, err := models.NewGrid[bool](shape, spacing...)
	require.NoError(t, err)
	for i := range im.Data {
		im.Data[i] = rng.Float64() < porosity
	}
	return im
}

// bruteForce computes the reference transform by scanning every solid voxel
func bruteForce(im *models.Binary, periodic []bool) []float64 {
	out := make([]float64, len(im.Data))
	p := make([]int, im.Dims())
	q := make([]int, im.Dims())
	for i, void := range im.Data {
		if !void {
			continue
		}
		im.Coords(i, p)
		best := math.Inf(1)
		for a, n := range im.Shape {
			if n == 1 || (len(periodic) > 0 && periodic[a]) {
				continue
			}
			w := im.Spacing[a]
			best = math.Min(best, float64(p[a]+1)*w)
			best = math.Min(best, float64(n-p[a])*w)
		}
		for j, v := range im.Data {
			if v {
				continue
			}
			im.Coords(j, q)
			d2 := 0.0
			for a, n := range im.Shape {
				d := math.Abs(float64(p[a] - q[a]))
				if len(periodic) > 0 && periodic[a] {
					d = math.Min(d, float64(n)-d)
				}
				d *= im.Spacing[a]
				d2 += d * d
			}
			best = math.Min(best, math.Sqrt(d2))
		}
		out[i] = best
	}
	return out
}

func TestTransformMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		name     string
		shape    []int
		spacing  []float64
		periodic []bool
	}{
		{"2D", []int{13, 9}, nil, nil},
		{"2D anisotropic", []int{10, 14}, []float64{1, 0.5}, nil},
		{"3D", []int{7, 6, 8}, nil, nil},
		{"3D periodic x", []int{7, 6, 8}, nil, []bool{true, false, false}},
		{"2D fully periodic", []int{11, 12}, []float64{2}, []bool{true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			im := randomImage(t, rng, tc.shape, 0.8, tc.spacing...)
			im.Data[0] = false
			dt, err := Transform(im, Options{Periodic: tc.periodic, Workers: 3})
			require.NoError(t, err)
			want := bruteForce(im, tc.periodic)
			for i := range want {
				assert.InDelta(t, want[i], dt.Data[i], 1e-9, "voxel %d", i)
			}
		})
	}
}

func TestTransformSolidIsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	im := randomImage(t, rng, []int{20, 20}, 0.5)
	dt, err := Transform(im, Options{})
	require.NoError(t, err)
	for i, void := range im.Data {
		if void {
			assert.Greater(t, dt.Data[i], 0.0)
		} else {
			assert.Zero(t, dt.Data[i])
		}
	}
}

func TestTransformSlabMatches2D(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	flat := randomImage(t, rng, []int{15, 12}, 0.7)
	want, err := Transform(flat, Options{})
	require.NoError(t, err)

	for _, shape := range [][]int{{15, 12, 1}, {15, 1, 12}, {1, 15, 12}} {
		slab, err := models.FromData(shape, flat.Data)
		require.NoError(t, err)
		got, err := Transform(slab, Options{})
		require.NoError(t, err)
		assert.Equal(t, want.Data, got.Data, "shape %v", shape)
		assert.Equal(t, shape, got.Shape)
	}
}

func TestTransformErrors(t *testing.T) {
	_, err := Transform(nil, Options{})
	assert.True(t, errors.Is(err, errs.ErrInputShape))

	im, err := models.NewGrid[bool]([]int{4, 4})
	require.NoError(t, err)
	_, err = Transform(im, Options{Periodic: []bool{true}})
	assert.True(t, errors.Is(err, errs.ErrInputShape))

	for i := range im.Data {
		im.Data[i] = true
	}
	_, err = Transform(im, Options{Periodic: []bool{true, true}})
	assert.True(t, errors.Is(err, errs.ErrInputShape))

	// open boundaries give a finite distance even without solid
	dt, err := Transform(im, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, dt.At(1, 1))
	assert.Equal(t, 1.0, dt.At(0, 2))
}
