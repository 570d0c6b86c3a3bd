// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide functionality missing in the slices package.
package xslices

import "golang.org/x/exp/constraints"

// Iota returns a slice of incremental values, starting with start and of length len.
// E.g.: Iota(3, 2) -> []int{3, 4}
func Iota[T constraints.Integer | constraints.Float](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Pop last element of the slice, and returns slice with one less element.
// If slice is empty it returns the zero value for `T` and returns slice unchanged.
func Pop[T any](slice []T) (T, []T) {
	var value T
	if len(slice) > 0 {
		value = slice[len(slice)-1]
		slice = slice[:len(slice)-1]
	}
	return value, slice
}
