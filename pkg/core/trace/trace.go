// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package trace linearizes an ir.Function into a Trace: an immutable, ordered list of instructions
// reading and writing numbered buffers.
//
// Generate schedules the nodes in a topological order (ties broken by node id, so by insertion
// order), computes the liveness of every value and assigns values to buffers, reusing the buffer
// of a value after its last use for a later value of the same dtype and size.
//
// Parameters and constants are bound to buffers outside the instruction stream: they are never
// written and never reused.
package trace

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrTraceGeneration is matched (with errors.Is) by every error returned by Generate.
	ErrTraceGeneration = errors.New("trace generation failed")

	// ErrInvalidParameters is returned (wrapped) when running a trace with the wrong parameters.
	ErrInvalidParameters = errors.New("invalid trace parameters")
)

// GenerationError is returned by Generate. It matches ErrTraceGeneration and unwraps to its cause.
type GenerationError struct {
	Function string
	Err      error
}

// Error implements error.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("trace generation for %q failed: %v", e.Function, e.Err)
}

// Unwrap returns the cause.
func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTraceGeneration) true.
func (e *GenerationError) Is(target error) bool { return target == ErrTraceGeneration }

// BufferID identifies a buffer of a trace.
type BufferID int

// BufferKind tells where the value of a buffer comes from.
type BufferKind int

const (
	// BufferTemporary buffers are written by instructions.
	BufferTemporary BufferKind = iota

	// BufferParameter buffers are given by the caller of Run.
	BufferParameter

	// BufferConstant buffers hold a constant value.
	BufferConstant
)

// String implements fmt.Stringer.
func (k BufferKind) String() string {
	switch k {
	case BufferTemporary:
		return "temporary"
	case BufferParameter:
		return "parameter"
	case BufferConstant:
		return "constant"
	}
	return fmt.Sprintf("BufferKind(%d)", int(k))
}

// Buffer is a storage slot of a trace.
//
// Temporary buffers may hold, over time, several values with disjoint lifetimes: Shape is the
// shape of the first one, later ones have the same dtype and size, but possibly other dimensions.
type Buffer struct {
	ID    BufferID
	Kind  BufferKind
	Shape shapes.Shape

	// Name of the parameter, for BufferParameter.
	Name string

	// Value of the constant, for BufferConstant.
	Value *tensors.Tensor
}

// Instruction computes Op over the values in the Inputs buffers and writes the result to the Output buffer.
type Instruction struct {
	Op     ops.OpType
	Inputs []BufferID
	Output BufferID
	Shape  shapes.Shape

	// Data with op specific parameters, see ir.Node.
	Data any

	// Node is the id of the node in the function the trace was generated from.
	Node ir.NodeID
}

// String implements fmt.Stringer.
func (inst *Instruction) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "b%d = %s(", inst.Output, inst.Op)
	for ii, input := range inst.Inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "b%d", input)
	}
	sb.WriteString(")")
	if inst.Data != nil {
		_, _ = fmt.Fprintf(&sb, "{%v}", inst.Data)
	}
	_, _ = fmt.Fprintf(&sb, " -> %s", inst.Shape)
	return sb.String()
}

// Trace is the immutable, executable result of Generate.
// It is safe to call Run concurrently: each call uses its own storage.
type Trace struct {
	name    string
	graphID uuid.UUID

	instructions []Instruction
	buffers      []Buffer
	parameters   []BufferID
	outputs      []BufferID

	// parameterUsed tells whether parameter #i is read by any instruction or returned as an output.
	parameterUsed []bool

	// temporaryMemory is the memory of all temporary buffers, naiveMemory the one needed without buffer reuse.
	temporaryMemory, naiveMemory uintptr
}

// Name of the function the trace was generated from.
func (t *Trace) Name() string { return t.name }

// GraphID of the graph the trace was generated from, or uuid.Nil.
func (t *Trace) GraphID() uuid.UUID { return t.graphID }

// NumInstructions returns the length of the instruction stream.
func (t *Trace) NumInstructions() int { return len(t.instructions) }

// Instruction returns the instruction at position idx.
// The returned value is a copy: its slices must not be modified.
func (t *Trace) Instruction(idx int) Instruction { return t.instructions[idx] }

// Instructions returns a copy of the instruction stream.
func (t *Trace) Instructions() []Instruction {
	return append([]Instruction(nil), t.instructions...)
}

// NumBuffers returns the number of buffers used, including parameters and constants.
func (t *Trace) NumBuffers() int { return len(t.buffers) }

// Buffer returns the description of the buffer.
func (t *Trace) Buffer(id BufferID) Buffer { return t.buffers[id] }

// NumParameters returns the number of parameters Run expects.
func (t *Trace) NumParameters() int { return len(t.parameters) }

// ParameterShape returns the shape of the parameter #idx.
func (t *Trace) ParameterShape(idx int) shapes.Shape { return t.buffers[t.parameters[idx]].Shape }

// ParameterUsed returns whether parameter #idx is needed to run the trace.
func (t *Trace) ParameterUsed(idx int) bool { return t.parameterUsed[idx] }

// NumOutputs returns the number of values returned by Run.
func (t *Trace) NumOutputs() int { return len(t.outputs) }

// OutputShape returns the shape of the output #idx.
func (t *Trace) OutputShape(idx int) shapes.Shape {
	for ii := len(t.instructions) - 1; ii >= 0; ii-- {
		if t.instructions[ii].Output == t.outputs[idx] {
			return t.instructions[ii].Shape
		}
	}
	return t.buffers[t.outputs[idx]].Shape
}

// Outputs returns the buffers holding the outputs, in order.
func (t *Trace) Outputs() []BufferID { return append([]BufferID(nil), t.outputs...) }

// Memory returns the memory used by temporary buffers in one execution.
func (t *Trace) Memory() uintptr { return t.temporaryMemory }

// NaiveMemory returns the memory that would be used if no buffer were reused.
func (t *Trace) NaiveMemory() uintptr { return t.naiveMemory }

// String pretty-prints the trace.
func (t *Trace) String() string {
	var sb strings.Builder
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&sb, format, args...) }
	w("Trace %q: %d instructions, %d buffers, memory %s (without reuse %s)\n",
		t.name, len(t.instructions), len(t.buffers),
		humanize.Bytes(uint64(t.temporaryMemory)), humanize.Bytes(uint64(t.naiveMemory)))
	for _, buffer := range t.buffers {
		switch buffer.Kind {
		case BufferParameter:
			w("\tb%d: parameter %q %s\n", buffer.ID, buffer.Name, buffer.Shape)
		case BufferConstant:
			w("\tb%d: constant %s\n", buffer.ID, buffer.Shape)
		}
	}
	for ii := range t.instructions {
		w("\t%s\n", &t.instructions[ii])
	}
	w("\toutputs: ")
	for ii, output := range t.outputs {
		if ii > 0 {
			w(", ")
		}
		w("b%d", output)
	}
	w("\n")
	return sb.String()
}

// bufferPoolKey is how free buffers are indexed for reuse.
type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}
