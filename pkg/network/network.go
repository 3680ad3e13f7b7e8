// Package network holds the pore network data model shared by every
// extraction method and consumer.
//
// A Network is two attribute tables, one row per pore and one row per throat,
// plus the typed throat connectivity. Keys follow the "pore.*" / "throat.*"
// convention consumed by exporters. Pore IDs are the dense range
// 0..NumPores()-1; a pore extracted from region label r has ID r-1.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrKeyPrefix indicates an attribute key outside its table's prefix.
	ErrKeyPrefix = errors.New("network: attribute key has the wrong prefix")
	// ErrRowCount indicates an attribute whose length does not match its table.
	ErrRowCount = errors.New("network: attribute row count mismatch")
	// ErrPoreRange indicates a throat referencing a pore ID outside 0..Np-1.
	ErrPoreRange = errors.New("network: throat references a missing pore")
	// ErrSelfLoop indicates a throat connecting a pore to itself.
	ErrSelfLoop = errors.New("network: throat connects a pore to itself")
	// ErrDuplicateThroat indicates a pore pair registered twice for the same patch.
	ErrDuplicateThroat = errors.New("network: duplicate throat")
	// ErrNonFinite indicates a NaN or infinite attribute value, an extraction defect.
	ErrNonFinite = errors.New("network: non-finite attribute value")
	// ErrMissingKey indicates a required schema attribute is absent.
	ErrMissingKey = errors.New("network: missing required attribute")
)

// Network is an immutable pore network.
type Network struct {
	// Pore holds "pore.*" attributes, one row per pore
	Pore *Table

	// Throat holds "throat.*" attributes, one row per throat
	Throat *Table

	// Conns holds the two pore IDs of each throat, lower ID first
	Conns [][2]int
}

// New assembles and validates a network from copies of pore and throat, so
// later changes to the caller's tables do not reach it. Conns are normalized
// so the lower pore ID comes first. A pore pair may appear more than once only when the
// throat table carries distinct "throat.patch" values for those throats.
func New(pore, throat *Table, conns [][2]int) (*Network, error) {
	if pore == nil || throat == nil {
		return nil, fmt.Errorf("network: pore and throat tables are required")
	}
	if pore.Prefix() != "pore" || throat.Prefix() != "throat" {
		return nil, fmt.Errorf("%w: tables are %q and %q", ErrKeyPrefix, pore.Prefix(), throat.Prefix())
	}
	if throat.Rows() != len(conns) {
		return nil, fmt.Errorf("%w: %d throat rows for %d conns", ErrRowCount, throat.Rows(), len(conns))
	}

	np := pore.Rows()
	patch := throat.Scalars(ThroatPatch)
	type key struct {
		a, b  int
		patch float64
	}
	seen := make(map[key]int, len(conns))
	norm := make([][2]int, len(conns))
	for i, c := range conns {
		a, b := c[0], c[1]
		if a > b {
			a, b = b, a
		}
		if a < 0 || b >= np {
			return nil, fmt.Errorf("%w: throat %d joins %d and %d with %d pores", ErrPoreRange, i, c[0], c[1], np)
		}
		if a == b {
			return nil, fmt.Errorf("%w: throat %d on pore %d", ErrSelfLoop, i, a)
		}
		k := key{a: a, b: b}
		if patch != nil {
			k.patch = patch[i]
		}
		if j, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: throats %d and %d both join %d and %d", ErrDuplicateThroat, j, i, a, b)
		}
		seen[k] = i
		norm[i] = [2]int{a, b}
	}
	return &Network{Pore: pore.Clone(), Throat: throat.Clone(), Conns: norm}, nil
}

// NumPores returns the number of pores.
func (n *Network) NumPores() int { return n.Pore.Rows() }

// NumThroats returns the number of throats.
func (n *Network) NumThroats() int { return len(n.Conns) }

// Validate reports ErrNonFinite for any NaN or infinite attribute value.
func (n *Network) Validate() error {
	for _, tbl := range []*Table{n.Pore, n.Throat} {
		for _, k := range tbl.Keys() {
			a, _ := tbl.Get(k)
			for i, v := range a.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: %s row %d is %v", ErrNonFinite, k, i/a.Cols, v)
				}
			}
		}
	}
	return nil
}

// CheckSchema reports ErrMissingKey unless every attribute shared by all
// extraction methods is present.
func (n *Network) CheckSchema() error {
	for _, k := range RequiredPoreKeys {
		if !n.Pore.Has(k) {
			return fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
	}
	for _, k := range RequiredThroatKeys {
		if !n.Throat.Has(k) {
			return fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
	}
	return nil
}

// Map returns every attribute keyed by name, including "throat.conns".
func (n *Network) Map() map[string]Array {
	out := make(map[string]Array, len(n.Pore.Keys())+len(n.Throat.Keys())+1)
	for _, tbl := range []*Table{n.Pore, n.Throat} {
		for _, k := range tbl.Keys() {
			out[k], _ = tbl.Get(k)
		}
	}
	conns := make([]float64, 0, 2*len(n.Conns))
	for _, c := range n.Conns {
		conns = append(conns, float64(c[0]), float64(c[1]))
	}
	out[ThroatConns] = Vectors(2, conns)
	return out
}

// Neighbours returns the adjacent pore IDs of every pore, ascending.
func (n *Network) Neighbours() [][]int {
	adj := make([][]int, n.NumPores())
	for _, c := range n.Conns {
		adj[c[0]] = append(adj[c[0]], c[1])
		adj[c[1]] = append(adj[c[1]], c[0])
	}
	for _, a := range adj {
		sort.Ints(a)
	}
	return adj
}

// CoordinationNumbers returns the number of throats at each pore.
func (n *Network) CoordinationNumbers() []float64 {
	z := make([]float64, n.NumPores())
	for _, c := range n.Conns {
		z[c[0]]++
		z[c[1]]++
	}
	return z
}
