package network

import (
	"fmt"
	"strings"
)

// Array is one attribute: Rows() rows of Cols values, stored row-major.
type Array struct {
	Cols   int
	Values []float64
}

// Scalars wraps one value per row.
func Scalars(v []float64) Array { return Array{Cols: 1, Values: v} }

// Vectors wraps cols values per row.
func Vectors(cols int, v []float64) Array { return Array{Cols: cols, Values: v} }

// Rows returns the number of rows.
func (a Array) Rows() int {
	if a.Cols == 0 {
		return 0
	}
	return len(a.Values) / a.Cols
}

// Row returns the values of row i.
func (a Array) Row(i int) []float64 { return a.Values[i*a.Cols : (i+1)*a.Cols] }

// Column copies column c.
func (a Array) Column(c int) []float64 {
	out := make([]float64, a.Rows())
	for i := range out {
		out[i] = a.Values[i*a.Cols+c]
	}
	return out
}

// Table is an ordered set of attributes sharing a row count and key prefix.
type Table struct {
	prefix string
	rows   int
	keys   []string
	data   map[string]Array
}

// NewTable creates an empty table for keys "<prefix>.*" with the given rows.
func NewTable(prefix string, rows int) *Table {
	return &Table{prefix: prefix, rows: rows, data: make(map[string]Array)}
}

// Prefix returns the key prefix ("pore" or "throat").
func (t *Table) Prefix() string { return t.prefix }

// Rows returns the row count every attribute must match.
func (t *Table) Rows() int { return t.rows }

// Set stores an attribute, replacing any previous value under key.
func (t *Table) Set(key string, a Array) error {
	if !strings.HasPrefix(key, t.prefix+".") {
		return fmt.Errorf("%w: %q does not start with %q", ErrKeyPrefix, key, t.prefix+".")
	}
	if a.Cols <= 0 || len(a.Values) != t.rows*a.Cols {
		return fmt.Errorf("%w: %s has %d values, want %d rows of %d", ErrRowCount, key, len(a.Values), t.rows, a.Cols)
	}
	if _, ok := t.data[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.data[key] = a
	return nil
}

// MustSet is Set for attributes built alongside the table, where a mismatch
// is a programming error.
func (t *Table) MustSet(key string, a Array) {
	if err := t.Set(key, a); err != nil {
		panic(err)
	}
}

// Get returns the attribute under key.
func (t *Table) Get(key string) (Array, bool) {
	a, ok := t.data[key]
	return a, ok
}

// Scalars returns the values of a single-column attribute, or nil.
func (t *Table) Scalars(key string) []float64 {
	a, ok := t.data[key]
	if !ok || a.Cols != 1 {
		return nil
	}
	return a.Values
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.data[key]
	return ok
}

// Keys returns the attribute keys in insertion order.
func (t *Table) Keys() []string { return append([]string(nil), t.keys...) }

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		prefix: t.prefix,
		rows:   t.rows,
		keys:   append([]string(nil), t.keys...),
		data:   make(map[string]Array, len(t.data)),
	}
	for k, a := range t.data {
		out.data[k] = Array{Cols: a.Cols, Values: append([]float64(nil), a.Values...)}
	}
	return out
}
