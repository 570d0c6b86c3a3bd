// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	zeros := FromShape(shapes.Make(dtypes.Float64, 2, 3))
	require.Equal(t, []float64{0, 0, 0, 0, 0, 0}, MustCopyFlatData[float64](zeros))

	scalar := FromScalar(float32(7))
	require.True(t, scalar.IsScalar())
	require.Equal(t, dtypes.Float32, scalar.DType())
	require.Equal(t, float32(7), ToScalar[float32](scalar))

	filled := FromScalarAndDimensions(2.0, 3)
	require.Equal(t, []float64{2, 2, 2}, MustCopyFlatData[float64](filled))

	data := []float32{1, 2, 3, 4}
	tensor := FromFlatDataAndDimensions(data, 2, 2)
	data[0] = 100 // Data must have been copied.
	require.Equal(t, []float32{1, 2, 3, 4}, MustCopyFlatData[float32](tensor))
	require.True(t, shapes.Make(dtypes.Float32, 2, 2).Equal(tensor.Shape()))

	require.Panics(t, func() { FromFlatDataAndDimensions([]float32{1, 2, 3}, 2, 2) })
	require.Panics(t, func() { FromShape(shapes.Make(dtypes.Int32, 2)) })

	empty := FromShape(shapes.Make(dtypes.Float32, 0, 4))
	require.Equal(t, 0, empty.Size())
	require.True(t, empty.Ok())

	converted, err := FromFloat64s(shapes.Make(dtypes.Float32, 2), []float64{0.5, 1.5})
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 1.5}, MustCopyFlatData[float32](converted))
	_, err = FromFloat64s(shapes.Make(dtypes.Float32, 3), []float64{0.5, 1.5})
	require.Error(t, err)
}

func TestFlatDataAccess(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]float64{1, 2, 3}, 3)
	err := ConstFlatData(tensor, func(flat []float32) {})
	require.Error(t, err, "accessing float64 tensor as float32 should fail")

	require.NoError(t, MutableFlatData(tensor, func(flat []float64) { flat[1] = 20 }))
	require.Equal(t, []float64{1, 20, 3}, tensor.Float64s())

	clone := tensor.Clone()
	require.NoError(t, MutableFlatData(clone, func(flat []float64) { flat[0] = -1 }))
	require.Equal(t, []float64{1, 20, 3}, tensor.Float64s())

	reshaped := FromShape(shapes.Make(dtypes.Float64, 3, 1))
	require.NoError(t, reshaped.CopyFrom(tensor))
	require.Equal(t, []float64{1, 20, 3}, reshaped.Float64s())
	require.Error(t, reshaped.CopyFrom(FromScalar(float64(1))))

	view, err := tensor.Reshaped(shapes.Make(dtypes.Float64, 1, 3))
	require.NoError(t, err)
	require.NoError(t, MutableFlatData(view, func(flat []float64) { flat[2] = 30 }))
	require.Equal(t, []float64{1, 20, 30}, tensor.Float64s())
	_, err = tensor.Reshaped(shapes.Make(dtypes.Float64, 2))
	require.Error(t, err)
}

func TestEqualAndInDelta(t *testing.T) {
	t0 := FromFlatDataAndDimensions([]float32{1, float32(math.NaN())}, 2)
	t1 := FromFlatDataAndDimensions([]float32{1, float32(math.NaN())}, 2)
	assert.True(t, t0.Equal(t1))
	assert.False(t, t0.Equal(FromFlatDataAndDimensions([]float32{1, float32(math.NaN())}, 2, 1)))
	assert.False(t, t0.Equal(nil))

	t2 := FromFlatDataAndDimensions([]float64{1, 2.0001}, 2)
	t3 := FromFlatDataAndDimensions([]float64{1, 2}, 2)
	assert.False(t, t2.Equal(t3))
	assert.True(t, t2.InDelta(t3, 1e-3))
	assert.False(t, t2.InDelta(t3, 1e-6))
}

func TestString(t *testing.T) {
	require.Equal(t, "float32(3)", FromScalar(float32(3)).String())
	require.Equal(t, "[2][2]float32{{1, 2},\n {3, 4}}",
		FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2).String())
	require.Equal(t, "[10]float64{0, 1, 2, ..., 7, 8, 9}",
		FromFlatDataAndDimensions([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 10).String())
	require.Equal(t, "(Float32)[0]", FromShape(shapes.Make(dtypes.Float32, 0)).String())
}
