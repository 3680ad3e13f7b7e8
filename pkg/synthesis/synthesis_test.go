package synthesis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"porenet/pkg/errs"
	"porenet/pkg/generators"
	"porenet/pkg/lattice"
	"porenet/pkg/network"
)

func cubicLattice(t *testing.T, shape []int) *lattice.Lattice {
	t.Helper()
	lat, err := lattice.Cubic(shape, 1, lattice.DefaultOptions(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	return lat
}

func TestGenerateMatchesLatticePorosity(t *testing.T) {
	lat := cubicLattice(t, []int{5, 5, 5})
	box := lat.Domain()
	opts := Options{
		PoreShape:   Cube,
		ThroatShape: Cylinder,
		MaxDim:      100,
		RTol:        1e-9,
		Domain:      &box,
	}
	im, err := Generate(lat.Network, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 100}, im.Shape)

	net := lat.Network
	void := floats.Sum(net.Pore.Scalars(network.PoreVolume)) + floats.Sum(net.Throat.Scalars(network.ThroatVolume))
	assert.InEpsilon(t, void/lat.TotalVolume(), generators.Porosity(im), 0.1)
}

func TestGenerateDefaultDomainIsLatticeBox(t *testing.T) {
	lat := cubicLattice(t, []int{5, 5, 5})
	opts := Options{PoreShape: Cube, ThroatShape: Cylinder, MaxDim: 400, RTol: 0.01}

	sc, err := prepare(lat.Network, opts)
	require.NoError(t, err)
	want := lat.Domain()
	for _, pair := range [][2]float64{
		{want.Min.X, sc.domain.Min.X}, {want.Min.Y, sc.domain.Min.Y}, {want.Min.Z, sc.domain.Min.Z},
		{want.Max.X, sc.domain.Max.X}, {want.Max.Y, sc.domain.Max.Y}, {want.Max.Z, sc.domain.Max.Z},
	} {
		assert.InDelta(t, pair[0], pair[1], 1e-12)
	}

	im, err := Generate(lat.Network, opts)
	require.NoError(t, err)
	net := lat.Network
	void := floats.Sum(net.Pore.Scalars(network.PoreVolume)) + floats.Sum(net.Throat.Scalars(network.ThroatVolume))
	assert.InEpsilon(t, void/lat.TotalVolume(), generators.Porosity(im), 0.1)
}

func TestGenerateStopsWhenPorositySettles(t *testing.T) {
	lat := cubicLattice(t, []int{3, 3, 3})
	opts := DefaultOptions()
	opts.RTol = 10
	opts.Domain = &r3.Box{Max: r3.Vec{X: 3, Y: 3, Z: 3}}
	im, err := Generate(lat.Network, opts)
	require.NoError(t, err)
	// second pass is the first that can compare against a previous one
	assert.Equal(t, []int{32, 32, 32}, im.Shape)
}

func TestGenerate2D(t *testing.T) {
	lat := cubicLattice(t, []int{4, 4})
	opts := DefaultOptions()
	opts.ThroatShape = Cuboid
	opts.MaxDim = 64
	opts.RTol = 1e-9
	im, err := Generate(lat.Network, opts)
	require.NoError(t, err)
	require.Equal(t, 2, im.Dims())
	assert.Equal(t, 64, max(im.Shape[0], im.Shape[1]))
	phi := generators.Porosity(im)
	assert.Greater(t, phi, 0.1)
	assert.Less(t, phi, 0.9)
}

func TestGenerateFallsBackToInscribedDiameter(t *testing.T) {
	pore := network.NewTable("pore", 2)
	pore.MustSet(network.PoreCoords, network.Vectors(3, []float64{1, 1, 1, 3, 1, 1}))
	pore.MustSet(network.PoreInscribedDiameter, network.Scalars([]float64{1, 1}))
	throat := network.NewTable("throat", 1)
	throat.MustSet(network.ThroatInscribedDiameter, network.Scalars([]float64{0.5}))
	net, err := network.New(pore, throat, [][2]int{{0, 1}})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.MaxDim = 40
	opts.RTol = 1e-9
	im, err := Generate(net, opts)
	require.NoError(t, err)
	// centres padded by half the throat span: 4 x 2 x 2
	assert.Equal(t, 40, im.Shape[0])
	assert.Greater(t, generators.Porosity(im), 0.0)

	opts.PoreSizeKey = "pore.seed"
	_, err = Generate(net, opts)
	assert.ErrorIs(t, err, ErrMissingSize)
}

func TestGenerateErrors(t *testing.T) {
	lat := cubicLattice(t, []int{2, 2, 2})
	opts := DefaultOptions()
	opts.PoreShape = "cone"
	_, err := Generate(lat.Network, opts)
	assert.ErrorIs(t, err, ErrUnknownShape)

	opts = DefaultOptions()
	opts.ThroatShape = "prism"
	_, err = Generate(lat.Network, opts)
	assert.ErrorIs(t, err, ErrUnknownShape)

	opts = DefaultOptions()
	opts.Domain = &r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 1, Y: 2, Z: 2}}
	_, err = Generate(lat.Network, opts)
	assert.ErrorIs(t, err, errs.ErrDegenerateGeometry)
}
