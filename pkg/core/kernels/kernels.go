// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements reference, pure Go, evaluation of every operation a trace can hold.
//
// Kernels are used to run traces and by the optimizer to fold constants. They are simple
// loops over flat data, with no concern for performance.
//
// Kernels write into an output tensor allocated by the caller, which lets a trace reuse the
// storage of buffers whose values are no longer needed. The output never aliases an input.
package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// kernel computes the op into output. Errors are reported by panicking, see Execute.
type kernel func(op ops.OpType, data any, inputs []*tensors.Tensor, output *tensors.Tensor)

// kernels should be populated during initialization (`init` functions) for the ops implemented.
var kernels [ops.OpTypeLast]kernel

// Execute computes op with the given inputs and op specific data (see package ir) into output,
// which must already have the op's output shape.
//
// Panics raised by the kernels (e.g. unsupported dtypes) are returned as errors.
func Execute(op ops.OpType, data any, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	if op < 0 || op >= ops.OpTypeLast || kernels[op] == nil {
		return errors.Errorf("no kernel implemented for op %s", op)
	}
	for ii, input := range inputs {
		if !input.Ok() {
			return errors.Errorf("%s: input #%d is not a valid tensor", op, ii)
		}
		if input.DType() != output.DType() {
			return errors.Errorf("%s: input #%d has dtype %s, but output has dtype %s", op, ii, input.DType(), output.DType())
		}
	}
	err := exceptions.TryCatch[error](func() { kernels[op](op, data, inputs, output) })
	if err != nil {
		return errors.WithMessagef(err, "executing %s", op)
	}
	return nil
}

// Evaluate allocates an output tensor of the given shape and executes op into it.
func Evaluate(op ops.OpType, data any, inputs []*tensors.Tensor, outputShape shapes.Shape) (*tensors.Tensor, error) {
	var output *tensors.Tensor
	err := exceptions.TryCatch[error](func() { output = tensors.FromShape(outputShape) })
	if err != nil {
		return nil, err
	}
	if err = Execute(op, data, inputs, output); err != nil {
		return nil, err
	}
	return output, nil
}

// checkedFlat returns the flat data of t for the kernel's type parameter. It panics on mismatch.
func checkedFlat[T constraints.Float](t *tensors.Tensor) []T {
	flat, ok := t.FlatData().([]T)
	if !ok {
		exceptions.Panicf("tensor %s is not of the expected dtype", t.Shape())
	}
	return flat
}

// dispatchByDType calls fn32 or fn64 according to the dtype.
func dispatchByDType(op ops.OpType, dtype dtypes.DType, fn32, fn64 func()) {
	switch dtype {
	case dtypes.Float32:
		fn32()
	case dtypes.Float64:
		fn64()
	default:
		exceptions.Panicf("unsupported data type %s for %s", dtype, op)
	}
}
