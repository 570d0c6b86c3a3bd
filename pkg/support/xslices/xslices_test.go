// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIota(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Iota(3, 3))
	assert.Equal(t, []float64{0.5, 1.5}, Iota(0.5, 2))
	assert.Empty(t, Iota(0, 0))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Empty(t, Map([]int(nil), strconv.Itoa))
}

func TestPop(t *testing.T) {
	value, rest := Pop([]int{1, 2, 3})
	assert.Equal(t, 3, value)
	assert.Equal(t, []int{1, 2}, rest)
	value, rest = Pop(rest[:0])
	assert.Equal(t, 0, value)
	assert.Empty(t, rest)
}
