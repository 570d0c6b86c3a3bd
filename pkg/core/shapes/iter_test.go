// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape_Iter(t *testing.T) {
	shape := Make(dtypes.Float64, 3, 2)
	collect := make([][]int, 0, shape.Size())
	var counter int
	for flatIdx, indices := range shape.Iter() {
		collect = append(collect, slices.Clone(indices))
		require.Equal(t, counter, flatIdx)
		counter++
	}
	want := [][]int{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
		{2, 0},
		{2, 1},
	}
	require.Equal(t, want, collect)

	// Scalar: one iteration with empty indices.
	counter = 0
	for flatIdx, indices := range Make(dtypes.Float32).Iter() {
		require.Equal(t, 0, flatIdx)
		require.Empty(t, indices)
		counter++
	}
	require.Equal(t, 1, counter)

	// Zero-sized: no iterations.
	for range Make(dtypes.Float32, 2, 0).Iter() {
		t.Fatal("zero-sized shape should not yield")
	}

	// Early break.
	counter = 0
	for range Make(dtypes.Float32, 10).Iter() {
		counter++
		if counter == 3 {
			break
		}
	}
	require.Equal(t, 3, counter)
}
