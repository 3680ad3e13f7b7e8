package network

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangle builds a three pore network with every required key.
func triangle(t *testing.T) *Network {
	t.Helper()
	pore := NewTable("pore", 3)
	pore.MustSet(PoreCoords, Vectors(2, []float64{0, 0, 1, 0, 0, 1}))
	pore.MustSet(PoreVolume, Scalars([]float64{1, 2, 3}))
	pore.MustSet(PoreInscribedDiameter, Scalars([]float64{0.5, 0.6, 0.7}))
	pore.MustSet(PoreEquivalentDiameter, Scalars([]float64{1.1, 1.6, 1.9}))
	pore.MustSet(PoreBoundary, Scalars([]float64{1, 0, 1}))

	throat := NewTable("throat", 3)
	throat.MustSet(ThroatInscribedDiameter, Scalars([]float64{0.2, 0.3, 0.4}))
	throat.MustSet(ThroatCrossSectionalArea, Scalars([]float64{1, 1, 2}))
	throat.MustSet(ThroatConduitLength, Scalars([]float64{0.4, 0.8, 0.7}))
	throat.MustSet(ThroatTotalLength, Scalars([]float64{1, 1.41, 1}))
	throat.MustSet(ThroatEquivalentDiameter, Scalars([]float64{1.1, 1.1, 1.6}))

	net, err := New(pore, throat, [][2]int{{1, 0}, {1, 2}, {0, 2}})
	require.NoError(t, err)
	return net
}

func TestNewNormalizesConns(t *testing.T) {
	net := triangle(t)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {0, 2}}, net.Conns)
	assert.Equal(t, 3, net.NumPores())
	assert.Equal(t, 3, net.NumThroats())
	assert.NoError(t, net.Validate())
	assert.NoError(t, net.CheckSchema())
	assert.Equal(t, [][]int{{1, 2}, {0, 2}, {0, 1}}, net.Neighbours())
}

func TestNewRejectsBadConns(t *testing.T) {
	cases := []struct {
		name  string
		conns [][2]int
		want  error
	}{
		{"self loop", [][2]int{{1, 1}}, ErrSelfLoop},
		{"missing pore", [][2]int{{0, 3}}, ErrPoreRange},
		{"negative pore", [][2]int{{-1, 0}}, ErrPoreRange},
		{"duplicate", [][2]int{{0, 1}, {1, 0}}, ErrDuplicateThroat},
		{"row count", [][2]int{{0, 1}, {1, 2}, {0, 2}}, ErrRowCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := len(tc.conns)
			if tc.want == ErrRowCount {
				rows = 2
			}
			_, err := New(NewTable("pore", 3), NewTable("throat", rows), tc.conns)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPatchesAllowRepeatedPairs(t *testing.T) {
	throat := NewTable("throat", 2)
	throat.MustSet(ThroatPatch, Scalars([]float64{0, 1}))
	net, err := New(NewTable("pore", 2), throat, [][2]int{{0, 1}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, net.NumThroats())

	throat = NewTable("throat", 2)
	throat.MustSet(ThroatPatch, Scalars([]float64{1, 1}))
	_, err = New(NewTable("pore", 2), throat, [][2]int{{0, 1}, {0, 1}})
	assert.ErrorIs(t, err, ErrDuplicateThroat)
}

func TestNewCopiesTables(t *testing.T) {
	pore := NewTable("pore", 2)
	pore.MustSet(PoreVolume, Scalars([]float64{1, 2}))
	vol := pore.Scalars(PoreVolume)
	throat := NewTable("throat", 1)
	throat.MustSet(ThroatVolume, Scalars([]float64{0.5}))
	net, err := New(pore, throat, [][2]int{{0, 1}})
	require.NoError(t, err)

	pore.MustSet(PoreVolume, Scalars([]float64{7, 8}))
	pore.MustSet(PoreDiameter, Scalars([]float64{1, 1}))
	throat.MustSet(ThroatVolume, Scalars([]float64{math.NaN()}))
	vol[0] = 99

	assert.Equal(t, []float64{1, 2}, net.Pore.Scalars(PoreVolume))
	assert.False(t, net.Pore.Has(PoreDiameter))
	assert.Equal(t, []float64{0.5}, net.Throat.Scalars(ThroatVolume))
	assert.NoError(t, net.Validate())
}

func TestTableClone(t *testing.T) {
	tbl := NewTable("throat", 2)
	tbl.MustSet(ThroatConns, Vectors(2, []float64{0, 1, 1, 2}))
	tbl.MustSet(ThroatLength, Scalars([]float64{3, 4}))
	c := tbl.Clone()
	assert.Equal(t, "throat", c.Prefix())
	assert.Equal(t, 2, c.Rows())
	assert.Equal(t, tbl.Keys(), c.Keys())
	a, _ := c.Get(ThroatConns)
	assert.Equal(t, 2, a.Cols)
	assert.Equal(t, []float64{0, 1, 1, 2}, a.Values)

	a.Values[0] = 5
	orig, _ := tbl.Get(ThroatConns)
	assert.Equal(t, 0.0, orig.Values[0])
}

func TestTableSet(t *testing.T) {
	tbl := NewTable("pore", 2)
	assert.ErrorIs(t, tbl.Set("throat.volume", Scalars([]float64{1, 2})), ErrKeyPrefix)
	assert.ErrorIs(t, tbl.Set("pore.volume", Scalars([]float64{1})), ErrRowCount)
	assert.ErrorIs(t, tbl.Set("pore.coords", Vectors(3, []float64{1, 2, 3})), ErrRowCount)
	require.NoError(t, tbl.Set("pore.volume", Scalars([]float64{1, 2})))
	require.NoError(t, tbl.Set("pore.volume", Scalars([]float64{3, 4})))
	assert.Equal(t, []string{"pore.volume"}, tbl.Keys())
	assert.Equal(t, []float64{3, 4}, tbl.Scalars("pore.volume"))
	assert.Nil(t, tbl.Scalars("pore.missing"))
}

func TestValidateRejectsNonFinite(t *testing.T) {
	net := triangle(t)
	a, _ := net.Throat.Get(ThroatConduitLength)
	a.Values[1] = math.NaN()
	assert.ErrorIs(t, net.Validate(), ErrNonFinite)

	a.Values[1] = math.Inf(1)
	assert.ErrorIs(t, net.Validate(), ErrNonFinite)

	_, err := json.Marshal(net)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestCheckSchema(t *testing.T) {
	net, err := New(NewTable("pore", 1), NewTable("throat", 0), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, net.CheckSchema(), ErrMissingKey)
}

func TestMap(t *testing.T) {
	m := triangle(t).Map()
	assert.Len(t, m, 11)
	conns := m[ThroatConns]
	assert.Equal(t, 2, conns.Cols)
	assert.Equal(t, []float64{0, 1, 1, 2, 0, 2}, conns.Values)
	assert.Equal(t, []float64{1, 0}, m[PoreCoords].Row(1))
	assert.Equal(t, []float64{0, 1, 0}, m[PoreCoords].Column(0))
}

func TestJSON(t *testing.T) {
	net := triangle(t)
	b, err := json.Marshal(net)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, []any{[]any{0.0, 0.0}, []any{1.0, 0.0}, []any{0.0, 1.0}}, raw[PoreCoords])
	assert.Equal(t, []any{1.0, 2.0, 3.0}, raw[PoreVolume])
	assert.Equal(t, []any{[]any{0.0, 1.0}, []any{1.0, 2.0}, []any{0.0, 2.0}}, raw[ThroatConns])

	var back Network
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, net.Conns, back.Conns)
	assert.NoError(t, back.CheckSchema())
	for k, want := range net.Map() {
		got, ok := back.Map()[k]
		require.True(t, ok, k)
		assert.Equal(t, want, got, k)
	}
}

func TestUnmarshalRejectsUnknownPrefix(t *testing.T) {
	var n Network
	err := json.Unmarshal([]byte(`{"pore.coords":[[0,0]],"net.weird":[1]}`), &n)
	assert.ErrorIs(t, err, ErrKeyPrefix)

	err = json.Unmarshal([]byte(`{"pore.volume":[1]}`), &n)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestSummarize(t *testing.T) {
	s := triangle(t).Summarize()
	assert.Equal(t, 3, s.NumPores)
	assert.Equal(t, 3, s.NumThroats)
	assert.Equal(t, 0, s.Isolated)
	assert.Equal(t, 2, s.BoundaryPores)
	assert.InDelta(t, 2.0, s.MeanCoordination, 1e-12)
	assert.InDelta(t, 6.0, s.TotalPoreVolume, 1e-12)
	assert.InDelta(t, 0.6, s.MeanPoreDiameter, 1e-12)
	assert.InDelta(t, 0.1, s.StdPoreDiameter, 1e-12)
	assert.InDelta(t, 0.3, s.MeanThroatDiameter, 1e-12)
}
