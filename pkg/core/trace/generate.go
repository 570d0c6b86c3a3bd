// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Generate linearizes fn into a Trace.
//
// Only nodes the outputs depend on are scheduled. Every parameter keeps its slot, even if unused,
// so the trace has the same parameters as fn.
//
// Errors are always a *GenerationError, which matches ErrTraceGeneration.
func Generate(fn *ir.Function) (*Trace, error) {
	if fn == nil {
		return nil, &GenerationError{Err: errors.New("nil function")}
	}
	t, err := generate(fn)
	if err != nil {
		return nil, &GenerationError{Function: fn.Name, Err: err}
	}
	if klog.V(2).Enabled() {
		klog.Infof("trace.Generate(%q):\n%s", fn.Name, t)
	}
	return t, nil
}

func generate(fn *ir.Function) (*Trace, error) {
	if err := fn.Validate(); err != nil {
		return nil, err
	}
	t := &Trace{
		name:          fn.Name,
		graphID:       fn.GraphID,
		parameterUsed: make([]bool, len(fn.Parameters)),
	}

	// Mark nodes needed by the outputs.
	live := make([]bool, fn.NumNodes())
	for _, output := range fn.Outputs {
		live[output] = true
	}
	for ii := fn.NumNodes() - 1; ii >= 0; ii-- {
		if live[ii] {
			for _, input := range fn.Nodes[ii].Inputs {
				live[input] = true
			}
		}
	}

	// Source nodes are bound to their own buffers: parameters first, in order, then constants.
	valueBuffer := make([]BufferID, fn.NumNodes())
	for ii := range valueBuffer {
		valueBuffer[ii] = -1
	}
	for paramIdx, nodeID := range fn.Parameters {
		node := fn.Node(nodeID)
		id := t.newBuffer(BufferParameter, node)
		t.buffers[id].Name = node.Data.(*ir.ParameterData).Name
		t.parameters = append(t.parameters, id)
		valueBuffer[nodeID] = id
		t.parameterUsed[paramIdx] = live[nodeID]
	}
	for _, node := range fn.Nodes {
		if node.Op == ops.OpTypeConstant && live[node.ID] {
			id := t.newBuffer(BufferConstant, node)
			t.buffers[id].Value = node.Data.(*ir.ConstantData).Value
			valueBuffer[node.ID] = id
		}
	}

	order, err := schedule(fn, live)
	if err != nil {
		return nil, err
	}

	// Liveness: position of the last instruction reading each value. Outputs are read "at the end".
	position := make([]int, fn.NumNodes())
	for pos, nodeID := range order {
		position[nodeID] = pos
	}
	end := len(order)
	lastUse := make([]int, fn.NumNodes())
	for ii := range lastUse {
		lastUse[ii] = -1
	}
	for _, nodeID := range order {
		for _, input := range fn.Node(nodeID).Inputs {
			lastUse[input] = max(lastUse[input], position[nodeID])
		}
	}
	for _, output := range fn.Outputs {
		lastUse[output] = end
	}

	// Linear scan buffer assignment. The output of an instruction is allocated before its inputs
	// are released, so an instruction never writes to a buffer it reads.
	freeBuffers := make(map[bufferPoolKey]*treeset.Set)
	t.instructions = make([]Instruction, 0, len(order))
	for pos, nodeID := range order {
		node := fn.Node(nodeID)
		key := bufferPoolKey{dtype: node.Shape.DType, length: node.Shape.Size()}
		var output BufferID
		if free, found := freeBuffers[key]; found && !free.Empty() {
			it := free.Iterator()
			it.First()
			lowest := it.Value().(int)
			free.Remove(lowest)
			output = BufferID(lowest)
		} else {
			output = t.newBuffer(BufferTemporary, node)
			t.temporaryMemory += node.Shape.Memory()
		}
		t.naiveMemory += node.Shape.Memory()
		valueBuffer[nodeID] = output

		inputs := make([]BufferID, len(node.Inputs))
		for ii, input := range node.Inputs {
			inputs[ii] = valueBuffer[input]
		}
		t.instructions = append(t.instructions, Instruction{
			Op:     node.Op,
			Inputs: inputs,
			Output: output,
			Shape:  node.Shape.Clone(),
			Data:   node.Data,
			Node:   nodeID,
		})

		for ii, input := range node.Inputs {
			if lastUse[input] != pos || isSource(fn.Node(input).Op) {
				continue
			}
			buffer := inputs[ii]
			inputKey := bufferPoolKey{dtype: t.buffers[buffer].Shape.DType, length: t.buffers[buffer].Shape.Size()}
			free, found := freeBuffers[inputKey]
			if !found {
				free = treeset.NewWith(utils.IntComparator)
				freeBuffers[inputKey] = free
			}
			free.Add(int(buffer)) // Repeated inputs are added only once to the set.
		}
	}

	t.outputs = make([]BufferID, len(fn.Outputs))
	for ii, output := range fn.Outputs {
		t.outputs[ii] = valueBuffer[output]
		if fn.Node(output).Op == ops.OpTypeParameter {
			for paramIdx, nodeID := range fn.Parameters {
				if nodeID == output {
					t.parameterUsed[paramIdx] = true
				}
			}
		}
	}
	return t, nil
}

func isSource(op ops.OpType) bool {
	return ops.SourceOperations.Has(op)
}

func (t *Trace) newBuffer(kind BufferKind, node *ir.Node) BufferID {
	id := BufferID(len(t.buffers))
	t.buffers = append(t.buffers, Buffer{ID: id, Kind: kind, Shape: node.Shape.Clone()})
	return id
}

// schedule returns the live non-source nodes in topological order, with ties broken by the
// smallest node id, which is the insertion order.
func schedule(fn *ir.Function, live []bool) ([]ir.NodeID, error) {
	pending := make([]int, fn.NumNodes())
	consumers := make([][]ir.NodeID, fn.NumNodes())
	numScheduled := 0
	for _, node := range fn.Nodes {
		if !live[node.ID] || isSource(node.Op) {
			continue
		}
		numScheduled++
		for _, input := range node.Inputs {
			if isSource(fn.Node(input).Op) {
				continue
			}
			pending[node.ID]++
			consumers[input] = append(consumers[input], node.ID)
		}
	}

	ready := priorityqueue.NewWith(utils.IntComparator)
	for _, node := range fn.Nodes {
		if live[node.ID] && !isSource(node.Op) && pending[node.ID] == 0 {
			ready.Enqueue(int(node.ID))
		}
	}
	order := make([]ir.NodeID, 0, numScheduled)
	for !ready.Empty() {
		value, _ := ready.Dequeue()
		nodeID := ir.NodeID(value.(int))
		order = append(order, nodeID)
		for _, consumer := range consumers[nodeID] {
			pending[consumer]--
			if pending[consumer] == 0 {
				ready.Enqueue(int(consumer))
			}
		}
	}
	if len(order) != numScheduled {
		return nil, errors.Errorf("function %q: %d nodes could not be scheduled, the graph has a cycle",
			fn.Name, numScheduled-len(order))
	}
	return order, nil
}
