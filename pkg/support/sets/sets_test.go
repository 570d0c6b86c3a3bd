// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := Make[int](10)
	assert.Len(t, s, 0)

	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7)
	u := s.Union(s2)
	assert.Equal(t, []int{3, 5, 7}, Sorted(u))
	// Union doesn't change its operands.
	assert.Len(t, s, 2)

	s.Delete(7, 11)
	assert.Equal(t, []int{3}, Sorted(s))
	assert.Empty(t, Sorted(Make[string]()))
}
