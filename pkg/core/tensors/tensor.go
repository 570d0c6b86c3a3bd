// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a `Tensor`, a concrete multidimensional array value.
//
// Tensors are the values fed to a trace as parameters and returned as its outputs. They are also
// the values held by constant nodes of a graph.
//
// A Tensor is defined by its shape (a data type and its axes' dimensions) and its content, stored
// as a flat (1D) Go slice of the underlying dtype, in row-major order.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalar[T Float](value T): creates a scalar tensor.
//
//   - FromScalarAndDimensions[T Float](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T Float](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
package tensors

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Float is the set of Go types a Tensor can hold.
type Float interface {
	float32 | float64
}

// Tensor represents a multidimensional array, from a scalar with 0 dimensions to arbitrarily large dimensions.
//
// The flat storage is owned by the Tensor. ConstFlatData gives read access to it without copies.
// Tensors given to a graph as constants or returned by a trace are never modified afterward,
// so they can be shared across goroutines for reading.
type Tensor struct {
	shape shapes.Shape

	// flat is either []float32 or []float64.
	flat any
}

// FromShape returns a Tensor with the given shape, filled with zeros.
//
// It panics if the dtype is not Float32 or Float64.
func FromShape(shape shapes.Shape) *Tensor {
	t := &Tensor{shape: shape.Clone()}
	switch shape.DType {
	case dtypes.Float32:
		t.flat = make([]float32, shape.Size())
	case dtypes.Float64:
		t.flat = make([]float64, shape.Size())
	default:
		exceptions.Panicf("tensors.FromShape(%s): dtype not supported, only Float32 and Float64", shape)
	}
	return t
}

// FromScalar creates a scalar tensor with the given value.
// The `DType` is inferred from the value.
func FromScalar[T Float](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
func FromScalarAndDimensions[T Float](value T, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dtypes.FromGenericsType[T](), dimensions...))
	flat := t.flat.([]T)
	for ii := range flat {
		flat[ii] = value
	}
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T Float](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	flat := make([]T, len(data))
	copy(flat, data)
	return &Tensor{shape: shape, flat: flat}
}

// FromFloat64s creates a tensor of the given shape, converting values from float64.
// It returns an error if the number of values doesn't match the shape size or if the dtype is not supported.
func FromFloat64s(shape shapes.Shape, values []float64) (*Tensor, error) {
	if len(values) != shape.Size() {
		return nil, errors.Errorf("FromFloat64s(%s): got %d values, want %d", shape, len(values), shape.Size())
	}
	switch shape.DType {
	case dtypes.Float32:
		flat := make([]float32, len(values))
		for ii, v := range values {
			flat[ii] = float32(v)
		}
		return &Tensor{shape: shape.Clone(), flat: flat}, nil
	case dtypes.Float64:
		flat := make([]float64, len(values))
		copy(flat, values)
		return &Tensor{shape: shape.Clone(), flat: flat}, nil
	}
	return nil, errors.Errorf("FromFloat64s(%s): dtype not supported", shape)
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor holds a single value with rank 0.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Memory used by the tensor's values, in bytes.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the tensor is valid: non-nil and with storage for its shape.
func (t *Tensor) Ok() bool {
	return t != nil && t.flat != nil && t.shape.Ok()
}

// FlatData returns the underlying flat slice, either []float32 or []float64.
//
// The returned slice is the tensor's own storage: it should only be mutated by the owner of the tensor.
func (t *Tensor) FlatData() any { return t.flat }

// ConstFlatData calls accessFn with the flat data of the tensor, without copying it.
// It returns an error if T doesn't match the tensor's dtype.
//
// accessFn must not modify the contents of flat.
func ConstFlatData[T Float](t *Tensor, accessFn func(flat []T)) error {
	flat, ok := t.flat.([]T)
	if !ok {
		return errors.Errorf("ConstFlatData[%T]: tensor has dtype %s", *new(T), t.shape.DType)
	}
	accessFn(flat)
	return nil
}

// MustConstFlatData is like ConstFlatData, but panics on error.
func MustConstFlatData[T Float](t *Tensor, accessFn func(flat []T)) {
	if err := ConstFlatData(t, accessFn); err != nil {
		panic(err)
	}
}

// MutableFlatData calls accessFn with the flat data of the tensor, which it can update in place.
func MutableFlatData[T Float](t *Tensor, accessFn func(flat []T)) error {
	return ConstFlatData(t, accessFn)
}

// CopyFlatData returns a copy of the flat data of the tensor.
func CopyFlatData[T Float](t *Tensor) ([]T, error) {
	var data []T
	err := ConstFlatData(t, func(flat []T) { data = slices.Clone(flat) })
	return data, err
}

// MustCopyFlatData is like CopyFlatData, but panics on error.
func MustCopyFlatData[T Float](t *Tensor) []T {
	data, err := CopyFlatData[T](t)
	if err != nil {
		panic(err)
	}
	return data
}

// ToScalar returns the scalar value of a tensor of size 1. It panics otherwise.
func ToScalar[T Float](t *Tensor) T {
	if t.Size() != 1 {
		exceptions.Panicf("ToScalar: tensor %s has %d elements", t.shape, t.Size())
	}
	return MustCopyFlatData[T](t)[0]
}

// Float64s returns a copy of the values converted to float64.
func (t *Tensor) Float64s() []float64 {
	switch flat := t.flat.(type) {
	case []float32:
		values := make([]float64, len(flat))
		for ii, v := range flat {
			values[ii] = float64(v)
		}
		return values
	case []float64:
		return slices.Clone(flat)
	}
	return nil
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{shape: t.shape.Clone()}
	switch flat := t.flat.(type) {
	case []float32:
		c.flat = slices.Clone(flat)
	case []float64:
		c.flat = slices.Clone(flat)
	}
	return c
}

// Reshaped returns a Tensor with the given shape that shares the storage of t.
// The dtype and the number of elements must be the same.
func (t *Tensor) Reshaped(shape shapes.Shape) (*Tensor, error) {
	if t.shape.DType != shape.DType || t.Size() != shape.Size() {
		return nil, errors.Errorf("Tensor.Reshaped: cannot view %s as %s", t.shape, shape)
	}
	return &Tensor{shape: shape.Clone(), flat: t.flat}, nil
}

// CopyFrom copies the contents of from into t. Both must have the same dtype and size,
// but the dimensions can differ: it is used to implement reshapes.
func (t *Tensor) CopyFrom(from *Tensor) error {
	if t.shape.DType != from.shape.DType || t.Size() != from.Size() {
		return errors.Errorf("Tensor.CopyFrom: incompatible shapes %s and %s", t.shape, from.shape)
	}
	switch flat := t.flat.(type) {
	case []float32:
		copy(flat, from.flat.([]float32))
	case []float64:
		copy(flat, from.flat.([]float64))
	}
	return nil
}

// Equal checks whether t == other: same shape and exactly the same values.
// NaN values are considered equal to each other, so constants holding NaN can be deduplicated.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	switch flat := t.flat.(type) {
	case []float32:
		return slices.EqualFunc(flat, other.flat.([]float32), func(a, b float32) bool {
			return a == b || (a != a && b != b)
		})
	case []float64:
		return slices.EqualFunc(flat, other.flat.([]float64), func(a, b float64) bool {
			return a == b || (math.IsNaN(a) && math.IsNaN(b))
		})
	}
	return false
}

// InDelta checks whether Abs(t - other) <= delta for every element, and that shapes are the same.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	values0, values1 := t.Float64s(), other.Float64s()
	for ii, v0 := range values0 {
		v1 := values1[ii]
		if math.IsNaN(v0) && math.IsNaN(v1) {
			continue
		}
		if v0 != v1 && !(math.Abs(v0-v1) <= delta) {
			return false
		}
	}
	return true
}
