// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the description of a tensor's dtype and dimensions.
//
// A Shape is attached to every node of a computation graph when the node is recorded, and it is
// what the builder operations use to validate an operation before anything is inserted.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. Negative axes count from the end, so -1 is the last axis.
//   - Dimension: the size of a tensor along one of its axes. Dimensions can be 0 (empty tensors).
//   - DType: the data type of the unit element, from github.com/gomlx/gopjrt/dtypes.
//   - Scalar: a shape with rank 0, holding exactly one value.
//
// Example: the shape of a 2x3 float32 matrix is created with `shapes.Make(dtypes.Float32, 2, 3)`
// and printed as `(Float32)[2 3]`.
package shapes

import (
	"fmt"
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape of a tensor value or of the output of a graph node.
//
// Shapes are used as immutable values: functions that need to change one return a Clone.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with the given dtype and dimensions. The dimensions are copied.
//
// It panics if any of the dimensions is negative, use MakeChecked to get an error instead.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s, err := MakeChecked(dtype, dimensions...)
	if err != nil {
		exceptions.Panicf("shapes.Make: %v", err)
	}
	return s
}

// MakeChecked is like Make, but returns an error if the shape is not valid.
func MakeChecked(dtype dtypes.DType, dimensions ...int) (Shape, error) {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	if err := s.Check(); err != nil {
		return Invalid(), err
	}
	return s, nil
}

// Scalar returns a scalar Shape for the Go type T.
func Scalar[T dtypes.Number]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A zero Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Check returns an error describing why the shape is invalid, or nil.
func (s Shape) Check() error {
	if s.DType == dtypes.InvalidDType {
		return errors.Errorf("shape %s has an invalid dtype", s)
	}
	maxSize := math.MaxInt / max(int(s.DType.Memory()), 1)
	size := 1
	for axis, dim := range s.Dimensions {
		if dim < 0 {
			return errors.Errorf("shape %s has a negative dimension %d on axis %d", s, dim, axis)
		}
		if dim != 0 && size > maxSize/dim {
			return errors.Errorf("shape %s is too large: its size in bytes overflows int", s)
		}
		size *= dim
	}
	return nil
}

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no axes (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// AdjustAxis converts a possibly negative axis to its non-negative value.
// It returns an error if the axis is out of range for the rank of the shape.
func (s Shape) AdjustAxis(axis int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		return 0, errors.Errorf("axis %d out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return adjusted, nil
}

// Dim returns the dimension of the given axis. Negative axes count from the end.
// Like slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjusted, err := s.AdjustAxis(axis)
	if err != nil {
		exceptions.Panicf("Shape.Dim(%d): %v", axis, err)
	}
	return s.Dimensions[adjusted]
}

// Size returns the number of elements of DType needed for this shape: the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the number of bytes used to store a value of this shape.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Strides returns the row-major strides of each axis, in number of elements.
func (s Shape) Strides() []int {
	strides := make([]int, s.Rank())
	stride := 1
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= s.Dimensions[axis]
	}
	return strides
}

// Equal compares dtype and dimensions.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dimensions, s2.Dimensions)
}

// EqualDimensions compares only the dimensions, dtypes can differ.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// String implements fmt.Stringer, pretty-printing the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}
