// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	F32 = dtypes.Float32
	F64 = dtypes.Float64
	I32 = dtypes.Int32

	MS = shapes.Make
)

func TestCheckShape(t *testing.T) {
	require.NoError(t, CheckShape(MS(F32, 2, 3)))
	require.NoError(t, CheckShape(MS(F64)))
	require.NoError(t, CheckShape(MS(F32, 0, 3)))

	err := CheckShape(MS(I32, 2))
	require.ErrorIs(t, err, ErrShapeMismatch)
	err = CheckShape(shapes.Invalid())
	require.ErrorIs(t, err, ErrShapeMismatch)
	err = CheckShape(shapes.Shape{DType: F32, Dimensions: []int{2, -1}})
	require.ErrorIs(t, err, ErrShapeMismatch)
	err = CheckShape(MS(F32, 1<<33, 1<<31))
	require.ErrorIs(t, err, ErrShapeMismatch)

	// Each operand fits, but the broadcast output doesn't.
	_, err = BinaryOp(ops.OpTypeAdd, MS(F32, 1<<40, 1), MS(F32, 1, 1<<40))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBinaryOp(t *testing.T) {
	// Invalid operation type (not binary op).
	_, err := BinaryOp(ops.OpTypeExp, MS(F32), MS(F32))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrShapeMismatch))

	// The same shape should be ok.
	var output shapes.Shape
	matrixShape := MS(F32, 2, 3)
	output, err = BinaryOp(ops.OpTypeAdd, matrixShape, matrixShape)
	require.NoError(t, err)
	require.True(t, matrixShape.Equal(output))

	// Scalar with matrix, either side.
	scalarShape := MS(F32)
	output, err = BinaryOp(ops.OpTypeMul, scalarShape, matrixShape)
	require.NoError(t, err)
	require.True(t, matrixShape.Equal(output))
	output, err = BinaryOp(ops.OpTypeSub, matrixShape, scalarShape)
	require.NoError(t, err)
	require.True(t, matrixShape.Equal(output))

	// Broadcast axes of dimension 1, from both sides.
	output, err = BinaryOp(ops.OpTypeMax, MS(F32, 1, 3), MS(F32, 2, 1))
	require.NoError(t, err)
	require.True(t, MS(F32, 2, 3).Equal(output))

	// LessThan keeps the operands' dtype.
	output, err = BinaryOp(ops.OpTypeLessThan, MS(F64, 4), MS(F64, 4))
	require.NoError(t, err)
	require.Equal(t, F64, output.DType)

	// Mismatches.
	_, err = BinaryOp(ops.OpTypeAdd, MS(F32, 3), MS(F32, 4))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = BinaryOp(ops.OpTypeAdd, MS(F32, 3), MS(F32, 1, 3))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = BinaryOp(ops.OpTypeAdd, MS(F32, 3), MS(F64, 3))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = BinaryOp(ops.OpTypeAdd, MS(I32, 3), MS(I32, 3))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestUnaryOp(t *testing.T) {
	output, err := UnaryOp(ops.OpTypeSqrt, MS(F32, 5))
	require.NoError(t, err)
	require.True(t, MS(F32, 5).Equal(output))

	_, err = UnaryOp(ops.OpTypeAdd, MS(F32, 5))
	require.Error(t, err)
	_, err = UnaryOp(ops.OpTypeExp, MS(I32, 5))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReduceOp(t *testing.T) {
	operand := MS(F32, 2, 3, 4)
	axes, err := NormalizeAxes(operand, []int{-1, 0})
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, axes)
	output, err := ReduceOp(ops.OpTypeReduceSum, operand, axes)
	require.NoError(t, err)
	require.True(t, MS(F32, 3).Equal(output))

	// No axes means all axes, the result is a scalar.
	axes, err = NormalizeAxes(operand, nil)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, axes)
	output, err = ReduceOp(ops.OpTypeReduceMax, operand, axes)
	require.NoError(t, err)
	require.True(t, output.IsScalar())

	_, err = NormalizeAxes(operand, []int{1, 1})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NormalizeAxes(operand, []int{3})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = ReduceOp(ops.OpTypeReduceSum, operand, []int{5})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = ReduceOp(ops.OpTypeNeg, operand, []int{0})
	require.Error(t, err)
}

func TestReshapeOp(t *testing.T) {
	output, err := ReshapeOp(MS(F32, 2, 3), []int{3, 2})
	require.NoError(t, err)
	require.True(t, MS(F32, 3, 2).Equal(output))
	output, err = ReshapeOp(MS(F32, 1, 1), nil)
	require.NoError(t, err)
	require.True(t, output.IsScalar())

	_, err = ReshapeOp(MS(F32, 2, 3), []int{4})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = ReshapeOp(MS(F32, 2, 3), []int{-6})
	require.ErrorIs(t, err, ErrShapeMismatch)
}
