// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"

	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapeinference"
	"github.com/pkg/errors"
)

// unaryOp records an elementwise unary operation.
func (t Tensor) unaryOp(op ops.OpType) (Tensor, error) {
	if err := checkOperands(op.String(), t); err != nil {
		return Tensor{}, err
	}
	shape, err := shapeinference.UnaryOp(op, t.Shape())
	if err != nil {
		return Tensor{}, errors.WithMessagef(err, "%s(%s)", op, t)
	}
	return t.graph.insertNode(op, []NodeId{t.id}, shape, nil), nil
}

// binaryOp records an elementwise binary operation, with broadcasting.
func (t Tensor) binaryOp(op ops.OpType, rhs Tensor) (Tensor, error) {
	if err := checkOperands(op.String(), t, rhs); err != nil {
		return Tensor{}, err
	}
	shape, err := shapeinference.BinaryOp(op, t.Shape(), rhs.Shape())
	if err != nil {
		return Tensor{}, errors.WithMessagef(err, "%s(%s, %s)", op, t, rhs)
	}
	return t.graph.insertNode(op, []NodeId{t.id, rhs.id}, shape, nil), nil
}

// reduceOp records a reduction over the given axes.
func (t Tensor) reduceOp(op ops.OpType, axes []int) (Tensor, error) {
	if err := checkOperands(op.String(), t); err != nil {
		return Tensor{}, err
	}
	normalized, err := shapeinference.NormalizeAxes(t.Shape(), axes)
	if err != nil {
		return Tensor{}, errors.WithMessagef(err, "%s(%s, axes=%v)", op, t, axes)
	}
	shape, err := shapeinference.ReduceOp(op, t.Shape(), normalized)
	if err != nil {
		return Tensor{}, errors.WithMessagef(err, "%s(%s, axes=%v)", op, t, axes)
	}
	return t.graph.insertNode(op, []NodeId{t.id}, shape, &ir.ReduceData{Axes: normalized}), nil
}

// Neg returns -t.
func (t Tensor) Neg() (Tensor, error) { return t.unaryOp(ops.OpTypeNeg) }

// Abs returns |t|.
func (t Tensor) Abs() (Tensor, error) { return t.unaryOp(ops.OpTypeAbs) }

// Exp returns e^t.
func (t Tensor) Exp() (Tensor, error) { return t.unaryOp(ops.OpTypeExp) }

// Exp2 returns 2^t.
func (t Tensor) Exp2() (Tensor, error) { return t.unaryOp(ops.OpTypeExp2) }

// Log returns the natural logarithm of t.
func (t Tensor) Log() (Tensor, error) { return t.unaryOp(ops.OpTypeLog) }

// Log2 returns the base 2 logarithm of t.
func (t Tensor) Log2() (Tensor, error) { return t.unaryOp(ops.OpTypeLog2) }

// Sqrt returns the square root of t.
func (t Tensor) Sqrt() (Tensor, error) { return t.unaryOp(ops.OpTypeSqrt) }

// Recip returns 1/t.
func (t Tensor) Recip() (Tensor, error) { return t.unaryOp(ops.OpTypeRecip) }

// Sin returns the sine of t.
func (t Tensor) Sin() (Tensor, error) { return t.unaryOp(ops.OpTypeSin) }

// Cos returns the cosine of t.
func (t Tensor) Cos() (Tensor, error) { return t.unaryOp(ops.OpTypeCos) }

// Tanh returns the hyperbolic tangent of t.
func (t Tensor) Tanh() (Tensor, error) { return t.unaryOp(ops.OpTypeTanh) }

// Logistic returns 1/(1+e^-t), also known as sigmoid.
func (t Tensor) Logistic() (Tensor, error) { return t.unaryOp(ops.OpTypeLogistic) }

// Add returns t+rhs.
//
// Binary operations require operands of the same dtype, and broadcast their shapes: operands
// of the same rank are compatible if each axis has the same dimension or one of them is 1, and
// a scalar is compatible with any shape.
func (t Tensor) Add(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeAdd, rhs) }

// Sub returns t-rhs.
func (t Tensor) Sub(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeSub, rhs) }

// Mul returns t*rhs.
func (t Tensor) Mul(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeMul, rhs) }

// Div returns t/rhs.
func (t Tensor) Div(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeDiv, rhs) }

// Max returns the elementwise maximum of t and rhs.
func (t Tensor) Max(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeMax, rhs) }

// Min returns the elementwise minimum of t and rhs.
func (t Tensor) Min(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeMin, rhs) }

// Pow returns t^rhs.
func (t Tensor) Pow(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypePow, rhs) }

// Mod returns the remainder of t/rhs, with the sign of t.
func (t Tensor) Mod(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeMod, rhs) }

// LessThan returns 1 where t < rhs and 0 elsewhere, in the dtype of the operands.
func (t Tensor) LessThan(rhs Tensor) (Tensor, error) { return t.binaryOp(ops.OpTypeLessThan, rhs) }

// ReduceSum sums the values over the given axes, which are removed from the shape.
// Negative axes count from the end. If no axes are given, it reduces over all axes, returning a scalar.
func (t Tensor) ReduceSum(axes ...int) (Tensor, error) { return t.reduceOp(ops.OpTypeReduceSum, axes) }

// ReduceMax is like ReduceSum, but takes the maximum value.
func (t Tensor) ReduceMax(axes ...int) (Tensor, error) { return t.reduceOp(ops.OpTypeReduceMax, axes) }

// Reshape returns a tensor with the same values, in row-major order, and the given dimensions.
// The total size must be the same.
func (t Tensor) Reshape(dimensions ...int) (Tensor, error) {
	if err := checkOperands("Reshape", t); err != nil {
		return Tensor{}, err
	}
	shape, err := shapeinference.ReshapeOp(t.Shape(), slices.Clone(dimensions))
	if err != nil {
		return Tensor{}, errors.WithMessagef(err, "Reshape(%s, %v)", t, dimensions)
	}
	return t.graph.insertNode(ops.OpTypeReshape, []NodeId{t.id}, shape, nil), nil
}
