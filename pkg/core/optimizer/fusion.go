// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
)

// Fusion merges trees of elementwise operations into single ops.OpTypeFused nodes.
//
// A node is absorbed into its consumer's fused node if:
//
//   - Both are elementwise (unary or binary) operations.
//   - The consumer is its only user, and it is not an output.
//   - It has the same dimensions as its consumer, so every intermediate value has the fused node's shape.
//
// Inputs external to the tree must have the fused node's dimensions or exactly one element.
// At most MaxFusedOps operations are merged in one node.
type Fusion struct {
	MaxFusedOps int
}

// Name implements Pass.
func (*Fusion) Name() string { return "Fusion" }

// conformsTo returns whether a value of shape s can be read by a fused node of the given output shape.
func conformsTo(s, output shapes.Shape) bool {
	return s.EqualDimensions(output) || s.Size() == 1
}

// Run implements Pass.
func (p *Fusion) Run(fn *ir.Function) (*ir.Function, bool, error) {
	numNodes := fn.NumNodes()
	consumers := fn.Consumers()

	// candidate: elementwise node whose inputs can all be read by a fused node of its shape.
	candidate := make([]bool, numNodes)
	for _, node := range fn.Nodes {
		if !node.Op.IsElementwise() {
			continue
		}
		candidate[node.ID] = true
		for _, input := range node.Inputs {
			if !conformsTo(fn.Nodes[input].Shape, node.Shape) {
				candidate[node.ID] = false
				break
			}
		}
	}

	// absorbable: candidate that can be merged into its single consumer.
	absorbable := func(id ir.NodeID) bool {
		if !candidate[id] || fn.IsOutput(id) || len(consumers[id]) == 0 {
			return false
		}
		consumer := consumers[id][0]
		for _, c := range consumers[id] {
			if c != consumer {
				return false
			}
		}
		return candidate[consumer] && fn.Nodes[id].Shape.EqualDimensions(fn.Nodes[consumer].Shape)
	}

	// Assign groups from the last node backwards, so each group grows from its root.
	groupOf := make([]ir.NodeID, numNodes)
	for ii := range groupOf {
		groupOf[ii] = ir.InvalidNodeID
	}
	groupSize := make(map[ir.NodeID]int)
	for idx := numNodes - 1; idx >= 0; idx-- {
		id := ir.NodeID(idx)
		if !candidate[id] {
			continue
		}
		root := groupOf[id]
		if root == ir.InvalidNodeID {
			root = id
			groupOf[id] = id
			groupSize[root] = 1
		}
		for _, input := range fn.Nodes[id].Inputs {
			if groupOf[input] != ir.InvalidNodeID || !absorbable(input) || groupSize[root] >= p.MaxFusedOps {
				continue
			}
			groupOf[input] = root
			groupSize[root]++
		}
	}

	r := ir.NewRewriter(fn)
	changed := false
	for _, node := range fn.Nodes {
		root := groupOf[node.ID]
		if root == ir.InvalidNodeID || groupSize[root] < 2 {
			if _, err := r.Copy(node.ID); err != nil {
				return nil, false, err
			}
			continue
		}
		if root != node.ID {
			// Interior node, emitted as part of its root.
			continue
		}
		data, externals := buildFusedProgram(fn, groupOf, node.ID)
		inputs, err := r.MapAll(externals)
		if err != nil {
			return nil, false, err
		}
		r.Alias(node.ID, r.Emit(ops.OpTypeFused, inputs, node.Shape.Clone(), data))
		changed = true
	}
	newFn, err := r.Finish()
	if err != nil {
		return nil, false, err
	}
	return newFn, changed, nil
}

// buildFusedProgram returns the steps of the group rooted at root, in post-order, and the
// external inputs (source node ids) the steps read.
func buildFusedProgram(fn *ir.Function, groupOf []ir.NodeID, root ir.NodeID) (*ir.FusedData, []ir.NodeID) {
	data := &ir.FusedData{}
	var externals []ir.NodeID
	externalIdx := make(map[ir.NodeID]int)
	stepIdx := make(map[ir.NodeID]int)

	var visit func(id ir.NodeID) ir.FusedArg
	visit = func(id ir.NodeID) ir.FusedArg {
		if groupOf[id] != root {
			idx, found := externalIdx[id]
			if !found {
				idx = len(externals)
				externalIdx[id] = idx
				externals = append(externals, id)
			}
			return ir.FusedArg{Index: idx}
		}
		if idx, found := stepIdx[id]; found {
			return ir.FusedArg{FromStep: true, Index: idx}
		}
		node := fn.Nodes[id]
		args := make([]ir.FusedArg, len(node.Inputs))
		for ii, input := range node.Inputs {
			args[ii] = visit(input)
		}
		idx := len(data.Steps)
		data.Steps = append(data.Steps, ir.FusedStep{Op: node.Op, Args: args})
		stepIdx[id] = idx
		return ir.FusedArg{FromStep: true, Index: idx}
	}
	visit(root)
	return data, externals
}
