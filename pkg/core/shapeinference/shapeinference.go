// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the shape resulting from operations and validates its inputs.
//
// Every function here is pure: it only looks at the input shapes and either returns the output
// shape or an error wrapping ErrShapeMismatch. The graph builder calls them before inserting any
// node, so a failed check leaves the graph untouched.
//
// It defines a BinaryOp function for all binary elementwise operations, using the broadcasting
// rules below, and one function per remaining OpType.
//
// Broadcasting: two shapes are compatible if their dtypes match and either one of them is a
// scalar, or they have the same rank and on each axis the dimensions are equal or one of them is 1.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/support/sets"
	"github.com/gomlx/tensortrace/pkg/support/xslices"
	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned (wrapped) whenever the operands of an operation have incompatible
// shapes or dtypes. Test for it with errors.Is.
var ErrShapeMismatch = errors.New("shape mismatch")

// SupportedDTypes are the dtypes values can have. The reference kernels are implemented for these.
var SupportedDTypes = sets.MakeWith(dtypes.Float32, dtypes.Float64)

// mismatchf returns an error wrapping ErrShapeMismatch, with a stack trace.
func mismatchf(format string, args ...any) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

// CheckShape validates a shape given to a parameter or constant: the shape must be well-formed
// and of a supported dtype.
func CheckShape(shape shapes.Shape) error {
	if err := shape.Check(); err != nil {
		return mismatchf("%v", err)
	}
	if !SupportedDTypes.Has(shape.DType) {
		return mismatchf("dtype %s not supported (shape %s), only Float32 and Float64 are", shape.DType, shape)
	}
	return nil
}

// UnaryOp checks the operand of a unary elementwise operation and returns the output shape,
// which is the same as the operand.
func UnaryOp(opType ops.OpType, operand shapes.Shape) (output shapes.Shape, err error) {
	if !ops.UnaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the UnaryOperations set, cannot process it with UnaryOp", opType)
		return
	}
	if err = CheckShape(operand); err != nil {
		err = errors.WithMessagef(err, "invalid operand for UnaryOp %s", opType)
		return
	}
	output = operand.Clone()
	return
}

// BinaryOp returns the broadcast shape of a binary elementwise operation.
//
// LessThan returns 1 or 0 in the dtype of its operands, so the output dtype is always the operands' one.
func BinaryOp(opType ops.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !ops.BinaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the BinaryOperations set, cannot process it with BinaryOp", opType)
		return
	}
	if err = CheckShape(lhsShape); err != nil {
		err = errors.WithMessagef(err, "invalid lhs operand for BinaryOp %s", opType)
		return
	}
	if err = CheckShape(rhsShape); err != nil {
		err = errors.WithMessagef(err, "invalid rhs operand for BinaryOp %s", opType)
		return
	}
	if lhsShape.DType != rhsShape.DType {
		err = mismatchf("data types (DType) for BinaryOp %s must match, got %s and %s", opType, lhsShape, rhsShape)
		return
	}
	return binaryOpImpl(opType, lhsShape, rhsShape)
}

func binaryOpImpl(opType ops.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	// Trivial cases: if one of the sides is a scalar, return the other side shape.
	if lhsShape.IsScalar() {
		return rhsShape.Clone(), nil
	}
	if rhsShape.IsScalar() {
		return lhsShape.Clone(), nil
	}

	// Other cases, either the dimensions match or one of them is 1.
	if lhsShape.Rank() != rhsShape.Rank() {
		err = mismatchf("if operands are not scalars, their rank must match for BinaryOp %s, got shapes %s and %s",
			opType, lhsShape, rhsShape)
		return
	}
	output = lhsShape.Clone()
	for axis := range output.Rank() {
		lhsDim := lhsShape.Dimensions[axis]
		rhsDim := rhsShape.Dimensions[axis]
		if lhsDim != 1 && rhsDim != 1 && lhsDim != rhsDim {
			err = mismatchf("dimension of axis #%d doesn't match and cannot be broadcast for BinaryOp %s, got shapes %s and %s",
				axis, opType, lhsShape, rhsShape)
			return shapes.Invalid(), err
		}
		if lhsDim == 1 {
			output.Dimensions[axis] = rhsDim
		}
	}
	if err = output.Check(); err != nil {
		return shapes.Invalid(), mismatchf("BinaryOp %s of shapes %s and %s: %v", opType, lhsShape, rhsShape, err)
	}
	return
}

// NormalizeAxes converts negative axes to their positive values and checks that they are in range
// and not repeated. An empty list of axes means all axes. The returned axes are sorted.
func NormalizeAxes(operand shapes.Shape, axes []int) ([]int, error) {
	if len(axes) == 0 {
		return xslices.Iota(0, operand.Rank()), nil
	}
	normalized := make([]int, 0, len(axes))
	seen := sets.Make[int](len(axes))
	for _, axis := range axes {
		adjusted, err := operand.AdjustAxis(axis)
		if err != nil {
			return nil, mismatchf("%v", err)
		}
		if seen.Has(adjusted) {
			return nil, mismatchf("axis %d given more than once (axes=%v) for shape %s", axis, axes, operand)
		}
		seen.Insert(adjusted)
		normalized = append(normalized, adjusted)
	}
	slices.Sort(normalized)
	return normalized, nil
}

// ReduceOp works for ReduceSum and ReduceMax. The given axes must already be normalized
// (see NormalizeAxes): the reduced axes are removed from the output shape.
func ReduceOp(opType ops.OpType, operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if !ops.ReduceOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the ReduceOperations set, cannot process it with ReduceOp", opType)
		return
	}
	if err = CheckShape(operand); err != nil {
		err = errors.WithMessagef(err, "invalid operand for %s", opType)
		return
	}
	reduced := sets.Make[int](len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			err = mismatchf("%s requires each axis to be 0 <= axis < rank, but got invalid axis %d for shape %s",
				opType, axis, operand)
			return shapes.Invalid(), err
		}
		reduced.Insert(axis)
	}
	output = shapes.Shape{DType: operand.DType}
	for axis, dim := range operand.Dimensions {
		if !reduced.Has(axis) {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	return
}

// ReshapeOp to the given dimensions: trivial output shape, but this function also checks
// that the sizes are the same.
func ReshapeOp(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	if err = CheckShape(operand); err != nil {
		err = errors.WithMessage(err, "invalid operand for Reshape")
		return
	}
	output, err = shapes.MakeChecked(operand.DType, dims...)
	if err != nil {
		return shapes.Invalid(), mismatchf("Reshape() to dimensions %v: %v", dims, err)
	}
	if operand.Size() != output.Size() {
		return shapes.Invalid(), mismatchf("Reshape() cannot reshape %s to dimensions %v, their sizes don't match",
			operand, dims)
	}
	return
}
