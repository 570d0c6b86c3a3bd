// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"golang.org/x/exp/constraints"
)

func init() {
	kernels[ops.OpTypeFused] = execFused
}

// compiledStep is a FusedStep with its scalar function resolved.
type compiledStep struct {
	unary  func(float64) float64
	binary func(float64, float64) float64
	args   []ir.FusedArg
}

func compileFused(data *ir.FusedData, numInputs int) []compiledStep {
	if len(data.Steps) == 0 {
		exceptions.Panicf("fused program has no steps")
	}
	steps := make([]compiledStep, len(data.Steps))
	for ii, step := range data.Steps {
		for _, arg := range step.Args {
			if arg.FromStep && (arg.Index < 0 || arg.Index >= ii) {
				exceptions.Panicf("fused step #%d references step #%d", ii, arg.Index)
			}
			if !arg.FromStep && (arg.Index < 0 || arg.Index >= numInputs) {
				exceptions.Panicf("fused step #%d references input #%d, but there are only %d inputs", ii, arg.Index, numInputs)
			}
		}
		steps[ii].args = step.Args
		switch {
		case ops.UnaryOperations.Has(step.Op) && len(step.Args) == 1:
			steps[ii].unary = UnaryFn(step.Op)
		case ops.BinaryOperations.Has(step.Op) && len(step.Args) == 2:
			steps[ii].binary = BinaryFn(step.Op)
		default:
			exceptions.Panicf("fused step #%d: cannot fuse %s with %d arguments", ii, step.Op, len(step.Args))
		}
	}
	return steps
}

func execFused(op ops.OpType, data any, inputs []*tensors.Tensor, output *tensors.Tensor) {
	fusedData, ok := data.(*ir.FusedData)
	if !ok {
		exceptions.Panicf("%s requires *ir.FusedData, got %T", op, data)
	}
	steps := compileFused(fusedData, len(inputs))
	isScalar := make([]bool, len(inputs))
	for ii, input := range inputs {
		switch {
		case input.Shape().EqualDimensions(output.Shape()):
		case input.Size() == 1:
			isScalar[ii] = true
		default:
			exceptions.Panicf("%s: input #%d has shape %s, incompatible with output shape %s",
				op, ii, input.Shape(), output.Shape())
		}
	}
	dispatchByDType(op, output.DType(),
		func() { execFusedGeneric(steps, flatInputs[float32](inputs), isScalar, checkedFlat[float32](output)) },
		func() { execFusedGeneric(steps, flatInputs[float64](inputs), isScalar, checkedFlat[float64](output)) })
}

func flatInputs[T constraints.Float](inputs []*tensors.Tensor) [][]T {
	flats := make([][]T, len(inputs))
	for ii, input := range inputs {
		flats[ii] = checkedFlat[T](input)
	}
	return flats
}

// execFusedGeneric evaluates the whole program for each element, intermediate values are never materialized.
func execFusedGeneric[T constraints.Float](steps []compiledStep, inputs [][]T, isScalar []bool, output []T) {
	values := make([]float64, len(steps))
	read := func(arg ir.FusedArg, elementIdx int) float64 {
		if arg.FromStep {
			return values[arg.Index]
		}
		if isScalar[arg.Index] {
			return float64(inputs[arg.Index][0])
		}
		return float64(inputs[arg.Index][elementIdx])
	}
	last := len(steps) - 1
	for elementIdx := range output {
		for stepIdx, step := range steps {
			var value float64
			if step.unary != nil {
				value = step.unary(read(step.args[0], elementIdx))
			} else {
				value = step.binary(read(step.args[0], elementIdx), read(step.args[1], elementIdx))
			}
			// Rounded to T, so results match the unfused ops exactly.
			values[stepIdx] = float64(T(value))
		}
		output[elementIdx] = T(values[last])
	}
}
