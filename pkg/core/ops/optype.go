// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops enumerates the kinds of operations a graph node can record, and classifies them.
package ops

import "github.com/gomlx/tensortrace/pkg/support/sets"

// OpType is the kind of operation recorded by a node.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	// Unary elementwise.
	OpTypeNeg
	OpTypeAbs
	OpTypeExp
	OpTypeExp2
	OpTypeLog
	OpTypeLog2
	OpTypeSqrt
	OpTypeRecip
	OpTypeSin
	OpTypeCos
	OpTypeTanh
	OpTypeLogistic

	// Binary elementwise.
	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeMax
	OpTypeMin
	OpTypePow
	OpTypeMod
	OpTypeLessThan

	// Reductions.
	OpTypeReduceSum
	OpTypeReduceMax

	OpTypeReshape

	// OpTypeFused is only created by the optimizer: a tree of elementwise ops evaluated in one go.
	OpTypeFused

	// OpTypeLast should always be kept the last, it is used as a counter/marker.
	OpTypeLast
)

var (
	// UnaryOperations take one operand and return a value of the same shape.
	UnaryOperations = sets.MakeWith(
		OpTypeNeg, OpTypeAbs, OpTypeExp, OpTypeExp2, OpTypeLog, OpTypeLog2, OpTypeSqrt,
		OpTypeRecip, OpTypeSin, OpTypeCos, OpTypeTanh, OpTypeLogistic,
	)

	// BinaryOperations take two operands, lhs and rhs, with broadcasting.
	BinaryOperations = sets.MakeWith(
		OpTypeAdd, OpTypeSub, OpTypeMul, OpTypeDiv, OpTypeMax, OpTypeMin, OpTypePow, OpTypeMod,
		OpTypeLessThan,
	)

	// CommutativeOperations are binary operations invariant to the order of the operands.
	CommutativeOperations = sets.MakeWith(OpTypeAdd, OpTypeMul, OpTypeMax, OpTypeMin)

	// ReduceOperations reduce a set of axes of their single operand.
	ReduceOperations = sets.MakeWith(OpTypeReduceSum, OpTypeReduceMax)

	// ElementwiseOperations can be fused together by the optimizer.
	ElementwiseOperations = UnaryOperations.Union(BinaryOperations)

	// SourceOperations have no operands.
	SourceOperations = sets.MakeWith(OpTypeParameter, OpTypeConstant)
)

// IsElementwise returns whether op maps each output element from the corresponding operands' elements.
func (op OpType) IsElementwise() bool { return ElementwiseOperations.Has(op) }
