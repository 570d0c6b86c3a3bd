// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOpsHaveKernels(t *testing.T) {
	for _, op := range ops.OpTypeValues() {
		if ops.SourceOperations.Has(op) || op == ops.OpTypeInvalid || op == ops.OpTypeLast {
			continue
		}
		assert.NotNil(t, kernels[op], "missing kernel for %s", op)
	}
}

func TestUnary(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float64{0, 1, 4}, 3)
	output := must.M1(Evaluate(ops.OpTypeSqrt, nil, []*tensors.Tensor{input}, input.Shape()))
	require.Equal(t, []float64{0, 1, 2}, output.Float64s())

	output = must.M1(Evaluate(ops.OpTypeNeg, nil, []*tensors.Tensor{input}, input.Shape()))
	require.Equal(t, []float64{0, -1, -4}, output.Float64s())

	input32 := tensors.FromFlatDataAndDimensions([]float32{0, 3}, 2)
	output = must.M1(Evaluate(ops.OpTypeLogistic, nil, []*tensors.Tensor{input32}, input32.Shape()))
	got := tensors.MustCopyFlatData[float32](output)
	require.Equal(t, float32(0.5), got[0])
	require.InDelta(t, 1/(1+math.Exp(-3)), float64(got[1]), 1e-6)

	output = must.M1(Evaluate(ops.OpTypeExp2, nil, []*tensors.Tensor{input32}, input32.Shape()))
	require.Equal(t, []float32{1, 8}, tensors.MustCopyFlatData[float32](output))
}

func TestBinary(t *testing.T) {
	lhs := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	scalar := tensors.FromScalar(float32(10))
	output := must.M1(Evaluate(ops.OpTypeAdd, nil, []*tensors.Tensor{lhs, scalar}, lhs.Shape()))
	require.Equal(t, []float32{11, 12, 13, 14, 15, 16}, tensors.MustCopyFlatData[float32](output))

	// Broadcast of a column [2, 1] and a row [1, 3].
	column := tensors.FromFlatDataAndDimensions([]float32{10, 20}, 2, 1)
	row := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 1, 3)
	output = must.M1(Evaluate(ops.OpTypeSub, nil, []*tensors.Tensor{column, row}, shapes.Make(dtypes.Float32, 2, 3)))
	require.Equal(t, []float32{9, 8, 7, 19, 18, 17}, tensors.MustCopyFlatData[float32](output))

	output = must.M1(Evaluate(ops.OpTypeLessThan, nil, []*tensors.Tensor{lhs, tensors.FromScalar(float32(3))}, lhs.Shape()))
	require.Equal(t, []float32{1, 1, 0, 0, 0, 0}, tensors.MustCopyFlatData[float32](output))

	output = must.M1(Evaluate(ops.OpTypeMod, nil, []*tensors.Tensor{lhs, tensors.FromScalar(float32(4))}, lhs.Shape()))
	require.Equal(t, []float32{1, 2, 3, 0, 1, 2}, tensors.MustCopyFlatData[float32](output))

	// Mixed dtypes are rejected.
	_, err := Evaluate(ops.OpTypeAdd, nil, []*tensors.Tensor{lhs, tensors.FromScalar(1.0)}, lhs.Shape())
	require.Error(t, err)
}

func TestReduce(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float64{1, 5, 3, 4, 2, 6}, 2, 3)
	output := must.M1(Evaluate(ops.OpTypeReduceSum, &ir.ReduceData{Axes: []int{1}}, []*tensors.Tensor{input},
		shapes.Make(dtypes.Float64, 2)))
	require.Equal(t, []float64{9, 12}, output.Float64s())

	output = must.M1(Evaluate(ops.OpTypeReduceMax, &ir.ReduceData{Axes: []int{0}}, []*tensors.Tensor{input},
		shapes.Make(dtypes.Float64, 3)))
	require.Equal(t, []float64{4, 5, 6}, output.Float64s())

	output = must.M1(Evaluate(ops.OpTypeReduceSum, &ir.ReduceData{Axes: []int{0, 1}}, []*tensors.Tensor{input},
		shapes.Make(dtypes.Float64)))
	require.Equal(t, []float64{21}, output.Float64s())

	// Reducing an empty axis.
	empty := tensors.FromShape(shapes.Make(dtypes.Float64, 0, 2))
	output = must.M1(Evaluate(ops.OpTypeReduceMax, &ir.ReduceData{Axes: []int{0}}, []*tensors.Tensor{empty},
		shapes.Make(dtypes.Float64, 2)))
	require.Equal(t, []float64{math.Inf(-1), math.Inf(-1)}, output.Float64s())

	// Missing data.
	_, err := Evaluate(ops.OpTypeReduceSum, nil, []*tensors.Tensor{input}, shapes.Make(dtypes.Float64))
	require.Error(t, err)
}

func TestReshape(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	output := must.M1(Evaluate(ops.OpTypeReshape, nil, []*tensors.Tensor{input}, shapes.Make(dtypes.Float32, 3, 2)))
	require.Equal(t, []int{3, 2}, output.Shape().Dimensions)
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.MustCopyFlatData[float32](output))
}

func TestFused(t *testing.T) {
	// sqrt(exp(in0)) + in0, then * in1 (a scalar).
	data := &ir.FusedData{Steps: []ir.FusedStep{
		{Op: ops.OpTypeExp, Args: []ir.FusedArg{{Index: 0}}},
		{Op: ops.OpTypeSqrt, Args: []ir.FusedArg{{FromStep: true, Index: 0}}},
		{Op: ops.OpTypeAdd, Args: []ir.FusedArg{{FromStep: true, Index: 1}, {Index: 0}}},
		{Op: ops.OpTypeMul, Args: []ir.FusedArg{{FromStep: true, Index: 2}, {Index: 1}}},
	}}
	a := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2}, 3)
	two := tensors.FromScalar(float32(2))
	output := must.M1(Evaluate(ops.OpTypeFused, data, []*tensors.Tensor{a, two}, a.Shape()))

	// Compare with the unfused evaluation: it must be exactly the same.
	exp := must.M1(Evaluate(ops.OpTypeExp, nil, []*tensors.Tensor{a}, a.Shape()))
	sqrt := must.M1(Evaluate(ops.OpTypeSqrt, nil, []*tensors.Tensor{exp}, a.Shape()))
	add := must.M1(Evaluate(ops.OpTypeAdd, nil, []*tensors.Tensor{sqrt, a}, a.Shape()))
	want := must.M1(Evaluate(ops.OpTypeMul, nil, []*tensors.Tensor{add, two}, a.Shape()))
	require.True(t, want.Equal(output), "fused %s, unfused %s", output, want)

	// Malformed programs.
	bad := &ir.FusedData{Steps: []ir.FusedStep{{Op: ops.OpTypeExp, Args: []ir.FusedArg{{FromStep: true, Index: 0}}}}}
	_, err := Evaluate(ops.OpTypeFused, bad, []*tensors.Tensor{a}, a.Shape())
	require.Error(t, err)
	bad = &ir.FusedData{Steps: []ir.FusedStep{{Op: ops.OpTypeReduceSum, Args: []ir.FusedArg{{Index: 0}}}}}
	_, err = Evaluate(ops.OpTypeFused, bad, []*tensors.Tensor{a}, a.Shape())
	require.Error(t, err)
}

func TestUnsupported(t *testing.T) {
	_, err := Evaluate(ops.OpTypeParameter, nil, nil, shapes.Make(dtypes.Float32))
	require.Error(t, err)
	_, err = Evaluate(ops.OpTypeNeg, nil, nil, shapes.Make(dtypes.Int32))
	require.Error(t, err)
}
