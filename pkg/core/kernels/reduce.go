// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"golang.org/x/exp/constraints"
)

func init() {
	kernels[ops.OpTypeReduceSum] = execReduce
	kernels[ops.OpTypeReduceMax] = execReduce
	kernels[ops.OpTypeReshape] = execReshape
}

func execReduce(op ops.OpType, data any, inputs []*tensors.Tensor, output *tensors.Tensor) {
	reduceData, ok := data.(*ir.ReduceData)
	if !ok {
		exceptions.Panicf("%s requires *ir.ReduceData, got %T", op, data)
	}
	input := inputs[0]
	outputStrides := reduceOutputStrides(input.Shape(), reduceData.Axes)
	dispatchByDType(op, output.DType(),
		func() {
			execReduceGeneric(op, input.Shape(), checkedFlat[float32](input), checkedFlat[float32](output), outputStrides)
		},
		func() {
			execReduceGeneric(op, input.Shape(), checkedFlat[float64](input), checkedFlat[float64](output), outputStrides)
		})
}

// reduceOutputStrides returns for each input axis the stride in the output flat index, 0 for reduced axes.
func reduceOutputStrides(inputShape shapes.Shape, axes []int) []int {
	rank := inputShape.Rank()
	reduced := make([]bool, rank)
	for _, axis := range axes {
		if axis < 0 || axis >= rank {
			exceptions.Panicf("reduce axis %d out of range for %s", axis, inputShape)
		}
		reduced[axis] = true
	}
	strides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		if reduced[axis] {
			continue
		}
		strides[axis] = stride
		stride *= inputShape.Dimensions[axis]
	}
	return strides
}

func execReduceGeneric[T constraints.Float](op ops.OpType, inputShape shapes.Shape, input, output []T, outputStrides []int) {
	var initial T
	if op == ops.OpTypeReduceMax {
		initial = T(math.Inf(-1))
	}
	for ii := range output {
		output[ii] = initial
	}
	for inputIdx, indices := range inputShape.Iter() {
		outputIdx := 0
		for axis, idx := range indices {
			outputIdx += idx * outputStrides[axis]
		}
		value := input[inputIdx]
		switch op {
		case ops.OpTypeReduceSum:
			output[outputIdx] += value
		case ops.OpTypeReduceMax:
			if value > output[outputIdx] || value != value {
				output[outputIdx] = value
			}
		}
	}
}

func execReshape(op ops.OpType, _ any, inputs []*tensors.Tensor, output *tensors.Tensor) {
	if err := output.CopyFrom(inputs[0]); err != nil {
		exceptions.Panicf("%s: %v", op, err)
	}
}
