package models

import (
	"fmt"

	"porenet/pkg/errs"
)

// Grid represents a 2D or 3D image with metadata
type Grid[T any] struct {
	// Shape is the extent of the grid along each axis
	Shape []int

	// Spacing is the physical size of a voxel along each axis
	Spacing []float64

	// Data is the voxel data as a 1D array in row-major order (last axis fastest)
	Data []T

	strides []int
}

// Binary is a void/solid phase image; true marks void (pore space).
type Binary = Grid[bool]

// Labels is a region image; 0 marks solid, positive values are region IDs.
type Labels = Grid[int32]

// Field is a real-valued image such as a distance transform.
type Field = Grid[float64]

// NewGrid allocates a zero-valued grid. Spacing may be omitted (unit voxels),
// a single isotropic value, or one value per axis.
func NewGrid[T any](shape []int, spacing ...float64) (*Grid[T], error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return FromData(shape, make([]T, n), spacing...)
}

// FromData wraps existing voxel data without copying it.
func FromData[T any](shape []int, data []T, spacing ...float64) (*Grid[T], error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, errs.New(errs.InputShape, "models.FromData", "data length %d does not match shape %v", len(data), shape)
	}
	sp, err := resolveSpacing(len(shape), spacing)
	if err != nil {
		return nil, err
	}
	g := &Grid[T]{
		Shape:   append([]int(nil), shape...),
		Spacing: sp,
		Data:    data,
	}
	g.strides = computeStrides(g.Shape)
	return g, nil
}

// NewLike allocates a zero-valued grid with the shape and spacing of g.
func NewLike[U, T any](g *Grid[T]) *Grid[U] {
	out := &Grid[U]{
		Shape:   append([]int(nil), g.Shape...),
		Spacing: append([]float64(nil), g.Spacing...),
		Data:    make([]U, len(g.Data)),
	}
	out.strides = computeStrides(out.Shape)
	return out
}

func checkShape(shape []int) (int, error) {
	if len(shape) != 2 && len(shape) != 3 {
		return 0, errs.New(errs.InputShape, "models.Grid", "expected 2 or 3 dimensions, got %d", len(shape))
	}
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return 0, errs.New(errs.InputShape, "models.Grid", "shape %v has an empty axis", shape)
		}
		n *= s
	}
	return n, nil
}

func resolveSpacing(dims int, spacing []float64) ([]float64, error) {
	sp := make([]float64, dims)
	switch len(spacing) {
	case 0:
		for i := range sp {
			sp[i] = 1
		}
	case 1:
		for i := range sp {
			sp[i] = spacing[0]
		}
	case dims:
		copy(sp, spacing)
	default:
		return nil, errs.New(errs.InputShape, "models.Grid", "got %d spacing values for %d axes", len(spacing), dims)
	}
	for _, s := range sp {
		if !(s > 0) {
			return nil, errs.New(errs.InputShape, "models.Grid", "voxel spacing must be positive, got %v", sp)
		}
	}
	return sp, nil
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Dims returns the number of axes.
func (g *Grid[T]) Dims() int { return len(g.Shape) }

// Len returns the number of voxels.
func (g *Grid[T]) Len() int { return len(g.Data) }

// Strides returns the flat index step of each axis.
func (g *Grid[T]) Strides() []int {
	if g.strides == nil {
		g.strides = computeStrides(g.Shape)
	}
	return g.strides
}

// Index converts an N-D index to a flat index.
func (g *Grid[T]) Index(idx ...int) int {
	st := g.Strides()
	flat := 0
	for a, i := range idx {
		flat += i * st[a]
	}
	return flat
}

// Coords converts a flat index to an N-D index, reusing dst when large enough.
func (g *Grid[T]) Coords(flat int, dst []int) []int {
	if cap(dst) < len(g.Shape) {
		dst = make([]int, len(g.Shape))
	}
	dst = dst[:len(g.Shape)]
	for a := len(g.Shape) - 1; a >= 0; a-- {
		dst[a] = flat % g.Shape[a]
		flat /= g.Shape[a]
	}
	return dst
}

// Contains reports whether idx lies inside the grid.
func (g *Grid[T]) Contains(idx []int) bool {
	for a, i := range idx {
		if i < 0 || i >= g.Shape[a] {
			return false
		}
	}
	return true
}

// At returns the value at an N-D index.
func (g *Grid[T]) At(idx ...int) T { return g.Data[g.Index(idx...)] }

// Set stores v at an N-D index.
func (g *Grid[T]) Set(v T, idx ...int) { g.Data[g.Index(idx...)] = v }

// ActiveAxes returns the axes with an extent greater than one.
func (g *Grid[T]) ActiveAxes() []int {
	axes := make([]int, 0, len(g.Shape))
	for a, s := range g.Shape {
		if s > 1 {
			axes = append(axes, a)
		}
	}
	return axes
}

// EffectiveDims counts the axes with an extent greater than one.
func (g *Grid[T]) EffectiveDims() int { return len(g.ActiveAxes()) }

// VoxelVolume is the measure of one voxel over the active axes, so a
// single-voxel-thick slab reports an area.
func (g *Grid[T]) VoxelVolume() float64 {
	v := 1.0
	for _, a := range g.ActiveAxes() {
		v *= g.Spacing[a]
	}
	return v
}

// FaceArea is the measure of the voxel face normal to axis, over the active axes.
func (g *Grid[T]) FaceArea(axis int) float64 {
	v := 1.0
	for _, a := range g.ActiveAxes() {
		if a != axis {
			v *= g.Spacing[a]
		}
	}
	return v
}

// OnFace reports whether flat lies on the outer face of an active axis.
func (g *Grid[T]) OnFace(flat int) bool {
	for a := len(g.Shape) - 1; a >= 0; a-- {
		c := flat % g.Shape[a]
		flat /= g.Shape[a]
		if g.Shape[a] > 1 && (c == 0 || c == g.Shape[a]-1) {
			return true
		}
	}
	return false
}

// FaceNeighbors appends the flat indices of the face neighbours of flat
// (4 in 2D, 6 in 3D, fewer at the image faces) to buf.
func (g *Grid[T]) FaceNeighbors(flat int, buf []int) []int {
	st := g.Strides()
	rem := flat
	for a := len(g.Shape) - 1; a >= 0; a-- {
		c := rem % g.Shape[a]
		rem /= g.Shape[a]
		if c > 0 {
			buf = append(buf, flat-st[a])
		}
		if c < g.Shape[a]-1 {
			buf = append(buf, flat+st[a])
		}
	}
	return buf
}

// Squeeze drops singleton axes when that leaves at least two axes. The returned
// grid shares Data with g; kept lists the original axis of each remaining axis.
func (g *Grid[T]) Squeeze() (squeezed *Grid[T], kept []int) {
	kept = g.ActiveAxes()
	if len(kept) == len(g.Shape) || len(kept) < 2 {
		kept = make([]int, len(g.Shape))
		for a := range kept {
			kept[a] = a
		}
		return g, kept
	}
	shape := make([]int, len(kept))
	spacing := make([]float64, len(kept))
	for i, a := range kept {
		shape[i] = g.Shape[a]
		spacing[i] = g.Spacing[a]
	}
	out := &Grid[T]{Shape: shape, Spacing: spacing, Data: g.Data}
	out.strides = computeStrides(shape)
	return out, kept
}

// Clone returns a deep copy of g.
func (g *Grid[T]) Clone() *Grid[T] {
	out := NewLike[T](g)
	copy(out.Data, g.Data)
	return out
}

// SameShape reports whether g and o have identical shapes.
func SameShape[T, U any](g *Grid[T], o *Grid[U]) bool {
	if len(g.Shape) != len(o.Shape) {
		return false
	}
	for a := range g.Shape {
		if g.Shape[a] != o.Shape[a] {
			return false
		}
	}
	return true
}

func (g *Grid[T]) String() string {
	return fmt.Sprintf("Grid%v(spacing=%v)", g.Shape, g.Spacing)
}
