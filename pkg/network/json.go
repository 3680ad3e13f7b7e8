package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MarshalJSON encodes the network as one object keyed by attribute name.
// Single-column attributes become flat arrays and vector attributes arrays of
// rows. Pore keys come first, then throat.conns, then the other throat keys.
func (n *Network) MarshalJSON() ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("network: encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}
	for _, k := range n.Pore.Keys() {
		a, _ := n.Pore.Get(k)
		if err := field(k, rowsOf(a)); err != nil {
			return nil, err
		}
	}
	conns := n.Conns
	if conns == nil {
		conns = [][2]int{}
	}
	if err := field(ThroatConns, conns); err != nil {
		return nil, err
	}
	for _, k := range n.Throat.Keys() {
		a, _ := n.Throat.Get(k)
		if err := field(k, rowsOf(a)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func rowsOf(a Array) any {
	if a.Cols == 1 {
		if a.Values == nil {
			return []float64{}
		}
		return a.Values
	}
	rows := make([][]float64, a.Rows())
	for i := range rows {
		rows[i] = a.Row(i)
	}
	return rows
}

// UnmarshalJSON decodes the format written by MarshalJSON. Keys are restored
// in sorted order within each table. The pore count is taken from pore.coords.
func (n *Network) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	var conns [][2]int
	if c, ok := raw[ThroatConns]; ok {
		if err := json.Unmarshal(c, &conns); err != nil {
			return fmt.Errorf("network: decoding %s: %w", ThroatConns, err)
		}
	}
	coords, ok := raw[PoreCoords]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingKey, PoreCoords)
	}
	ca, err := decodeArray(coords)
	if err != nil {
		return fmt.Errorf("network: decoding %s: %w", PoreCoords, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pore := NewTable("pore", ca.Rows())
	throat := NewTable("throat", len(conns))
	for _, k := range keys {
		if k == ThroatConns {
			continue
		}
		var tbl *Table
		switch {
		case strings.HasPrefix(k, "pore."):
			tbl = pore
		case strings.HasPrefix(k, "throat."):
			tbl = throat
		default:
			return fmt.Errorf("%w: %q", ErrKeyPrefix, k)
		}
		a, err := decodeArray(raw[k])
		if err != nil {
			return fmt.Errorf("network: decoding %s: %w", k, err)
		}
		if a.Cols == 0 {
			a.Cols = 1
		}
		if err := tbl.Set(k, a); err != nil {
			return err
		}
	}
	out, err := New(pore, throat, conns)
	if err != nil {
		return err
	}
	*n = *out
	return nil
}

// decodeArray accepts a flat array or an array of equal length rows.
func decodeArray(b json.RawMessage) (Array, error) {
	var flat []float64
	if err := json.Unmarshal(b, &flat); err == nil {
		return Scalars(flat), nil
	}
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return Array{}, err
	}
	if len(rows) == 0 {
		return Array{Cols: 1}, nil
	}
	cols := len(rows[0])
	vals := make([]float64, 0, cols*len(rows))
	for i, r := range rows {
		if len(r) != cols {
			return Array{}, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		vals = append(vals, r...)
	}
	return Vectors(cols, vals), nil
}
