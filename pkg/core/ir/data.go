// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
)

// Node data types, stored in Node.Data.

// DataComparable is implemented by node data types that support de-duplication.
type DataComparable interface {
	// EqualData returns true if this data is semantically equivalent to other.
	// The other parameter is guaranteed to be the same concrete type.
	EqualData(other DataComparable) bool
}

// ParameterData is the data of a parameter node.
type ParameterData struct {
	Name string
}

// EqualData implements DataComparable. Parameters are never merged: two parameter nodes are different inputs.
func (d *ParameterData) EqualData(other DataComparable) bool {
	return d == other.(*ParameterData)
}

func (d *ParameterData) String() string { return fmt.Sprintf("%q", d.Name) }

// ConstantData is the data of a constant node: its value.
type ConstantData struct {
	Value *tensors.Tensor
}

// EqualData implements DataComparable.
func (d *ConstantData) EqualData(other DataComparable) bool {
	return d.Value.Equal(other.(*ConstantData).Value)
}

func (d *ConstantData) String() string {
	if d.Value.Size() <= 4 {
		return fmt.Sprintf("%v", d.Value.Float64s())
	}
	return "..."
}

// ReduceData holds the reduced axes, normalized to non-negative values and sorted.
type ReduceData struct {
	Axes []int
}

// EqualData implements DataComparable.
func (d *ReduceData) EqualData(other DataComparable) bool {
	return slices.Equal(d.Axes, other.(*ReduceData).Axes)
}

func (d *ReduceData) String() string { return fmt.Sprintf("axes=%v", d.Axes) }

// FusedArg references the value an argument of a FusedStep reads:
// either the fused node's input #Index, or the result of the previous step #Index.
type FusedArg struct {
	FromStep bool
	Index    int
}

// FusedStep is one elementwise operation in a fused program.
type FusedStep struct {
	Op   ops.OpType
	Args []FusedArg
}

// FusedData is the program of a fused node: a sequence of elementwise steps evaluated per element.
// The result of the node is the result of the last step.
//
// Inputs of a fused node either have the node's output shape or have exactly one element (broadcast).
type FusedData struct {
	Steps []FusedStep
}

// EqualData implements DataComparable.
func (d *FusedData) EqualData(other DataComparable) bool {
	o := other.(*FusedData)
	return slices.EqualFunc(d.Steps, o.Steps, func(s0, s1 FusedStep) bool {
		return s0.Op == s1.Op && slices.Equal(s0.Args, s1.Args)
	})
}

// String lists the steps, with inputs as "in#i" and previous steps as "s#i".
func (d *FusedData) String() string {
	parts := make([]string, 0, len(d.Steps))
	for ii := range d.Steps {
		parts = append(parts, d.StepString(ii))
	}
	return strings.Join(parts, "; ")
}

// StepString returns step #idx formatted as "s2=Add(s1,in0)".
func (d *FusedData) StepString(idx int) string {
	step := d.Steps[idx]
	args := make([]string, 0, len(step.Args))
	for _, arg := range step.Args {
		if arg.FromStep {
			args = append(args, fmt.Sprintf("s%d", arg.Index))
		} else {
			args = append(args, fmt.Sprintf("in%d", arg.Index))
		}
	}
	return fmt.Sprintf("s%d=%s(%s)", idx, step.Op, strings.Join(args, ","))
}

// DataEqual compares node data for equality.
// Handles nil, DataComparable, and falls back to reflect.DeepEqual for anything else.
func DataEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if comparable, ok := a.(DataComparable); ok {
		return comparable.EqualData(b.(DataComparable))
	}
	return reflect.DeepEqual(a, b)
}
