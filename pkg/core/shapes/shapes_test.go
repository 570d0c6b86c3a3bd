// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())
	require.Error(t, invalidShape.Check())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))
	require.Equal(t, "(Float64)", shape0.String())

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, []int{6, 2, 1}, shape1.Strides())
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	// Empty tensors are valid.
	empty := Make(dtypes.Float32, 3, 0)
	require.NoError(t, empty.Check())
	require.Equal(t, 0, empty.Size())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 2, -1) })
	_, err := MakeChecked(dtypes.Float32, -2)
	require.Error(t, err)
}

func TestCheckOverflow(t *testing.T) {
	// 2^33 * 2^31 elements wraps around to 0 in an int.
	require.Error(t, Make(dtypes.Float32, 1<<33, 1<<31).Check())
	// Fits in elements, but not in bytes.
	require.Error(t, Make(dtypes.Float64, 1<<61).Check())
	require.NoError(t, Make(dtypes.Float64, 1<<20, 1<<20).Check())
	// Zero dimensions never overflow.
	require.NoError(t, Make(dtypes.Float32, 0, 1<<62, 1<<62).Check())
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Dimensions[0] = 7
	require.Equal(t, 2, s.Dimensions[0], "Clone must not share dimensions")
	require.False(t, s.Equal(c))
	require.True(t, s.EqualDimensions(Make(dtypes.Float64, 2, 3)))
	require.False(t, s.Equal(Make(dtypes.Float64, 2, 3)))
	require.True(t, Scalar[float32]().Equal(Make(dtypes.Float32)))
}
