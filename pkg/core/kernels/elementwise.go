// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"golang.org/x/exp/constraints"
)

func init() {
	for op := range ops.UnaryOperations {
		kernels[op] = execUnary
	}
	for op := range ops.BinaryOperations {
		kernels[op] = execBinary
	}
}

// UnaryFn returns the scalar function of a unary elementwise op. Values are computed in float64.
func UnaryFn(op ops.OpType) func(x float64) float64 {
	switch op {
	case ops.OpTypeNeg:
		return func(x float64) float64 { return -x }
	case ops.OpTypeAbs:
		return math.Abs
	case ops.OpTypeExp:
		return math.Exp
	case ops.OpTypeExp2:
		return math.Exp2
	case ops.OpTypeLog:
		return math.Log
	case ops.OpTypeLog2:
		return math.Log2
	case ops.OpTypeSqrt:
		return math.Sqrt
	case ops.OpTypeRecip:
		return func(x float64) float64 { return 1 / x }
	case ops.OpTypeSin:
		return math.Sin
	case ops.OpTypeCos:
		return math.Cos
	case ops.OpTypeTanh:
		return math.Tanh
	case ops.OpTypeLogistic:
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	}
	exceptions.Panicf("%s is not a unary elementwise op", op)
	return nil
}

// BinaryFn returns the scalar function of a binary elementwise op. Values are computed in float64.
//
// LessThan returns 1 if lhs < rhs, and 0 otherwise. Mod is the floating-point remainder, with the sign of lhs.
func BinaryFn(op ops.OpType) func(lhs, rhs float64) float64 {
	switch op {
	case ops.OpTypeAdd:
		return func(lhs, rhs float64) float64 { return lhs + rhs }
	case ops.OpTypeSub:
		return func(lhs, rhs float64) float64 { return lhs - rhs }
	case ops.OpTypeMul:
		return func(lhs, rhs float64) float64 { return lhs * rhs }
	case ops.OpTypeDiv:
		return func(lhs, rhs float64) float64 { return lhs / rhs }
	case ops.OpTypeMax:
		return math.Max
	case ops.OpTypeMin:
		return math.Min
	case ops.OpTypePow:
		return math.Pow
	case ops.OpTypeMod:
		return math.Mod
	case ops.OpTypeLessThan:
		return func(lhs, rhs float64) float64 {
			if lhs < rhs {
				return 1
			}
			return 0
		}
	}
	exceptions.Panicf("%s is not a binary elementwise op", op)
	return nil
}

func execUnary(op ops.OpType, _ any, inputs []*tensors.Tensor, output *tensors.Tensor) {
	fn := UnaryFn(op)
	dispatchByDType(op, output.DType(),
		func() { execUnaryGeneric(fn, checkedFlat[float32](inputs[0]), checkedFlat[float32](output)) },
		func() { execUnaryGeneric(fn, checkedFlat[float64](inputs[0]), checkedFlat[float64](output)) })
}

func execUnaryGeneric[T constraints.Float](fn func(float64) float64, inputs, outputs []T) {
	for ii, input := range inputs {
		outputs[ii] = T(fn(float64(input)))
	}
}

func execBinary(op ops.OpType, _ any, inputs []*tensors.Tensor, output *tensors.Tensor) {
	fn := BinaryFn(op)
	lhs, rhs := inputs[0], inputs[1]
	lhsIdx := newOperandIndexer(lhs.Shape(), output.Shape())
	rhsIdx := newOperandIndexer(rhs.Shape(), output.Shape())
	dispatchByDType(op, output.DType(),
		func() {
			execBinaryGeneric(fn, checkedFlat[float32](lhs), checkedFlat[float32](rhs), checkedFlat[float32](output),
				lhsIdx, rhsIdx)
		},
		func() {
			execBinaryGeneric(fn, checkedFlat[float64](lhs), checkedFlat[float64](rhs), checkedFlat[float64](output),
				lhsIdx, rhsIdx)
		})
}

func execBinaryGeneric[T constraints.Float](fn func(lhs, rhs float64) float64, lhs, rhs, output []T,
	lhsIdx, rhsIdx operandIndexer) {
	for outputIdx := range output {
		output[outputIdx] = T(fn(float64(lhs[lhsIdx.Next()]), float64(rhs[rhsIdx.Next()])))
	}
}

// operandIndexer yields, for each consecutive element of the output, the flat index of an operand.
type operandIndexer interface {
	Next() int
}

// newOperandIndexer picks the simplest indexer for an operand being broadcast to outputShape.
func newOperandIndexer(operandShape, outputShape shapes.Shape) operandIndexer {
	if operandShape.Size() == 1 {
		return &scalarIndexer{}
	}
	if operandShape.EqualDimensions(outputShape) {
		return &sequentialIndexer{}
	}
	return newBroadcastIterator(operandShape, outputShape)
}

type scalarIndexer struct{}

func (*scalarIndexer) Next() int { return 0 }

type sequentialIndexer struct{ flatIdx int }

func (s *sequentialIndexer) Next() int {
	s.flatIdx++
	return s.flatIdx - 1
}

// broadcastIterator allows one to iterate over the flat indices of a tensor that is being broadcast
// (some dimensions of size 1 will grow).
type broadcastIterator struct {
	flatIdx     int
	perAxesIdx  []int
	targetDims  []int
	isBroadcast []bool
	strides     []int
}

// newBroadcastIterator returns an iterator over the flat indices of a tensor of fromShape being broadcast to toShape.
//
// Pre-requisite: fromShape.Rank() == toShape.Rank().
func newBroadcastIterator(fromShape, toShape shapes.Shape) *broadcastIterator {
	rank := fromShape.Rank()
	if rank != toShape.Rank() {
		exceptions.Panicf("broadcastIterator: rank mismatch fromShape=%s, toShape=%s", fromShape, toShape)
	}
	bi := &broadcastIterator{
		perAxesIdx:  make([]int, rank),
		targetDims:  toShape.Dimensions,
		isBroadcast: make([]bool, rank),
		strides:     make([]int, rank),
	}
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		bi.strides[axis] = stride
		stride *= fromShape.Dimensions[axis]
		bi.isBroadcast[axis] = fromShape.Dimensions[axis] != toShape.Dimensions[axis]
	}
	return bi
}

func (bi *broadcastIterator) Next() (flatIdx int) {
	flatIdx = bi.flatIdx
	bi.flatIdx++
	rank := len(bi.perAxesIdx)
	for axis := rank - 1; axis >= 0; axis-- {
		bi.perAxesIdx[axis]++
		if bi.perAxesIdx[axis] < bi.targetDims[axis] {
			if bi.isBroadcast[axis] {
				// Broadcasting on this axis: go back and repeat the same slice of the tensor.
				bi.flatIdx -= bi.strides[axis]
			}
			break
		}
		bi.perAxesIdx[axis] = 0
	}
	return
}
