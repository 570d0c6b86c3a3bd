// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bytes"
	"fmt"
	"strings"
)

// TensorStringDefaultPrecision used by Tensor.String.
const TensorStringDefaultPrecision = 4

// String converts to string, if not too large. It uses t.Summary(precision=4).
func (t *Tensor) String() string {
	if t == nil {
		return "<nil tensor>"
	}
	return t.Summary(TensorStringDefaultPrecision)
}

// Summary returns a multi-line summary of the Tensor's content.
// Rows with more than 6 elements, and axes with more than 6 rows, are elided in the middle.
func (t *Tensor) Summary(precision int) string {
	if t.Size() == 0 {
		return t.shape.String()
	}
	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }
	values := t.Float64s()
	wValue := func(idx int) { w("%.*g", precision, values[idx]) }

	dims := t.shape.Dimensions
	for _, dim := range dims {
		w("[%d]", dim)
	}
	w("%s", strings.ToLower(t.shape.DType.String()))
	if len(dims) == 0 {
		w("(")
		wValue(0)
		w(")")
		return buf.String()
	}

	var printElements func(index, indent int, currentDims []int)
	printElements = func(index, indent int, currentDims []int) {
		w("{")
		if len(currentDims) == 1 {
			for ii := range currentDims[0] {
				if currentDims[0] > 6 && ii == 3 {
					w(", ...")
				}
				if currentDims[0] > 6 && ii >= 3 && ii < currentDims[0]-3 {
					continue
				}
				if ii > 0 {
					w(", ")
				}
				wValue(index + ii)
			}
			w("}")
			return
		}
		stride := 1
		for _, dim := range currentDims[1:] {
			stride *= dim
		}
		indentStr := strings.Repeat(" ", indent)
		for ii := range currentDims[0] {
			if currentDims[0] > 6 && ii >= 3 && ii < currentDims[0]-3 {
				if ii == 3 {
					w(",\n%s...", indentStr)
				}
				continue
			}
			if ii > 0 {
				w(",\n%s", indentStr)
			}
			printElements(index+ii*stride, indent+1, currentDims[1:])
		}
		w("}")
	}
	printElements(0, 1, dims)
	return buf.String()
}
