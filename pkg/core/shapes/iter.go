// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"

	"github.com/gomlx/exceptions"
)

// Iter iterates sequentially, in row-major order, over all indices of the shape.
//
// It yields the flat index and a slice with the index on each axis.
// The yielded slice is owned by the iterator: don't change it inside the loop.
//
// A shape with a zero dimension yields nothing, a scalar yields once with empty indices.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return s.IterOn(make([]int, s.Rank()))
}

// IterOn is like Iter, but updates the given indices slice, which must have length equal to the rank.
func (s Shape) IterOn(indices []int) iter.Seq2[int, []int] {
	if len(indices) != s.Rank() {
		exceptions.Panicf("Shape.IterOn given len(indices) == %d, want it to be equal to the rank %d", len(indices), s.Rank())
	}
	return func(yield func(int, []int) bool) {
		if !s.Ok() || s.Size() == 0 {
			return
		}
		for axis := range indices {
			indices[axis] = 0
		}
		rank := s.Rank()
		flatIdx := 0
	yielder:
		for {
			if !yield(flatIdx, indices) {
				return
			}
			flatIdx++

			// Last axis changes fastest, carry-over to the previous ones.
			for axis := rank - 1; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < s.Dimensions[axis] {
					continue yielder
				}
				indices[axis] = 0
			}
			break
		}
	}
}
