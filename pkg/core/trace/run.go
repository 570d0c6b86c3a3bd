// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"github.com/gomlx/tensortrace/pkg/support/workerspool"
	"github.com/gomlx/tensortrace/pkg/core/kernels"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/gomlx/tensortrace/pkg/support/xslices"
	"github.com/pkg/errors"
)

// execution holds the storage of one run of a trace.
type execution struct {
	t *Trace

	// inputs[i] and outputs[i] are views, with the instruction's shapes, on the storage of the
	// buffers read and written by instruction #i.
	inputs  [][]*tensors.Tensor
	outputs []*tensors.Tensor

	// results are the values returned, one per trace output.
	results []*tensors.Tensor

	// finalValues holds the last value of each buffer.
	finalValues []*tensors.Tensor
}

// newExecution checks the parameters and allocates the storage of every temporary buffer.
func (t *Trace) newExecution(params []*tensors.Tensor) (*execution, error) {
	if len(params) != len(t.parameters) {
		return nil, errors.Wrapf(ErrInvalidParameters, "trace %q takes %d parameters, %d given",
			t.name, len(t.parameters), len(params))
	}
	for ii, param := range params {
		buffer := &t.buffers[t.parameters[ii]]
		if param == nil {
			if t.parameterUsed[ii] {
				return nil, errors.Wrapf(ErrInvalidParameters, "trace %q: parameter #%d (%q) is nil",
					t.name, ii, buffer.Name)
			}
			continue
		}
		if !param.Ok() || !param.Shape().Equal(buffer.Shape) {
			return nil, errors.Wrapf(ErrInvalidParameters, "trace %q: parameter #%d (%q) should be shaped %s, got %s",
				t.name, ii, buffer.Name, buffer.Shape, param.Shape())
		}
	}

	// current holds, while walking the instructions, the value in each buffer.
	current := make([]*tensors.Tensor, len(t.buffers))
	storage := make([]*tensors.Tensor, len(t.buffers))
	for ii, param := range params {
		current[t.parameters[ii]] = param
	}
	for ii := range t.buffers {
		buffer := &t.buffers[ii]
		switch buffer.Kind {
		case BufferConstant:
			current[ii] = buffer.Value
		case BufferTemporary:
			storage[ii] = tensors.FromShape(buffer.Shape)
		}
	}

	e := &execution{
		t:       t,
		inputs:  make([][]*tensors.Tensor, len(t.instructions)),
		outputs: make([]*tensors.Tensor, len(t.instructions)),
	}
	for ii := range t.instructions {
		inst := &t.instructions[ii]
		e.inputs[ii] = make([]*tensors.Tensor, len(inst.Inputs))
		for jj, input := range inst.Inputs {
			e.inputs[ii][jj] = current[input]
		}
		view, err := storage[inst.Output].Reshaped(inst.Shape)
		if err != nil {
			return nil, errors.WithMessagef(err, "trace %q: instruction #%d", t.name, ii)
		}
		e.outputs[ii] = view
		current[inst.Output] = view
	}

	// Outputs that are not produced by an instruction, or that are repeated, are returned as
	// copies, so the caller owns every returned tensor.
	e.results = make([]*tensors.Tensor, len(t.outputs))
	seen := make(map[BufferID]bool, len(t.outputs))
	for ii, output := range t.outputs {
		e.results[ii] = current[output]
		if t.buffers[output].Kind != BufferTemporary || seen[output] {
			e.results[ii] = nil // Copied after execution.
		}
		seen[output] = true
	}
	e.finalValues = current
	return e, nil
}

// run executes instruction #idx.
func (e *execution) run(idx int) error {
	inst := &e.t.instructions[idx]
	err := kernels.Execute(inst.Op, inst.Data, e.inputs[idx], e.outputs[idx])
	if err != nil {
		return errors.WithMessagef(err, "trace %q: instruction #%d (%s)", e.t.name, idx, inst)
	}
	return nil
}

// finish fills in the results that are copies.
func (e *execution) finish() []*tensors.Tensor {
	for ii, output := range e.t.outputs {
		if e.results[ii] == nil {
			e.results[ii] = e.finalValues[output].Clone()
		}
	}
	return e.results
}

// Run executes the trace with the given parameters, in the order given to Generate's function
// parameters, and returns the outputs.
//
// Parameters not needed by the outputs (see ParameterUsed) may be nil. Parameter tensors are only read.
// It is safe to call Run concurrently.
func (t *Trace) Run(params []*tensors.Tensor) ([]*tensors.Tensor, error) {
	e, err := t.newExecution(params)
	if err != nil {
		return nil, err
	}
	for idx := range t.instructions {
		if err = e.run(idx); err != nil {
			return nil, err
		}
	}
	return e.finish(), nil
}

// dependencies returns, for each instruction, the instructions that must wait for it.
//
// Besides reading values written by earlier instructions, an instruction writing to a reused
// buffer must wait for the previous writer and for every reader of the previous value.
func (t *Trace) dependencies() (dependents [][]int, numDependencies []int) {
	n := len(t.instructions)
	dependents = make([][]int, n)
	numDependencies = make([]int, n)
	lastWriter := make([]int, len(t.buffers))
	for ii := range lastWriter {
		lastWriter[ii] = -1
	}
	readers := make([][]int, len(t.buffers))
	for idx := range t.instructions {
		inst := &t.instructions[idx]
		waitFor := make(map[int]bool)
		for _, input := range inst.Inputs {
			if writer := lastWriter[input]; writer >= 0 {
				waitFor[writer] = true
			}
			readers[input] = append(readers[input], idx)
		}
		if writer := lastWriter[inst.Output]; writer >= 0 {
			waitFor[writer] = true
		}
		for _, reader := range readers[inst.Output] {
			if reader != idx {
				waitFor[reader] = true
			}
		}
		readers[inst.Output] = nil
		lastWriter[inst.Output] = idx
		for dep := range waitFor {
			dependents[dep] = append(dependents[dep], idx)
		}
		numDependencies[idx] = len(waitFor)
	}
	return
}

// RunParallel is like Run, but executes independent instructions concurrently, using the workers of pool.
//
// A nil pool means workerspool.New(), that is, up to runtime.NumCPU() instructions at a time.
//
// On failure it waits for the instructions already started, and returns the first error.
func (t *Trace) RunParallel(pool *workerspool.Pool, params []*tensors.Tensor) ([]*tensors.Tensor, error) {
	if pool == nil {
		pool = workerspool.New()
	}
	e, err := t.newExecution(params)
	if err != nil {
		return nil, err
	}
	n := len(t.instructions)
	dependents, numDependencies := t.dependencies()

	type completion struct {
		idx int
		err error
	}
	done := make(chan completion, n)
	var ready []int
	for idx := range n {
		if numDependencies[idx] == 0 {
			ready = append(ready, idx)
		}
	}
	inFlight, completed := 0, 0
	var firstErr error
	for completed < n {
		for len(ready) > 0 && firstErr == nil {
			var idx int
			idx, ready = xslices.Pop(ready)
			inFlight++
			pool.WaitToStart(func() {
				done <- completion{idx: idx, err: e.run(idx)}
			})
		}
		if inFlight == 0 {
			break
		}
		c := <-done
		inFlight--
		completed++
		if c.err != nil {
			if firstErr == nil {
				firstErr = c.err
			}
			continue
		}
		for _, dependent := range dependents[c.idx] {
			numDependencies[dependent]--
			if numDependencies[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if completed != n {
		return nil, errors.Errorf("trace %q: only %d of %d instructions executed", t.name, completed, n)
	}
	return e.finish(), nil
}
