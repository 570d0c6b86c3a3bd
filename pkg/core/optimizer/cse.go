// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"slices"

	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
)

// CSE implements common-subexpression elimination: nodes with the same op, the same inputs
// (in the same order), the same shape and equal data are merged into the first one.
//
// Operands of commutative operations (ops.CommutativeOperations) match in either order.
// Constants with the same shape and values are merged too. Parameters are never merged.
type CSE struct{}

// Name implements Pass.
func (*CSE) Name() string { return "CSE" }

// dedupKey is used to index candidate nodes for de-duplication.
type dedupKey struct {
	opType     ops.OpType
	inputCount int
	firstInput ir.NodeID // InvalidNodeID if there are no inputs.
}

func makeDedupKey(opType ops.OpType, inputs []ir.NodeID) dedupKey {
	key := dedupKey{
		opType:     opType,
		inputCount: len(inputs),
		firstInput: ir.InvalidNodeID,
	}
	if len(inputs) > 0 {
		key.firstInput = inputs[0]
	}
	if ops.CommutativeOperations.Has(opType) && len(inputs) == 2 {
		key.firstInput = min(inputs[0], inputs[1])
	}
	return key
}

// sameInputs compares the inputs of two nodes of type opType.
func sameInputs(opType ops.OpType, a, b []ir.NodeID) bool {
	if slices.Equal(a, b) {
		return true
	}
	return ops.CommutativeOperations.Has(opType) && len(a) == 2 && len(b) == 2 &&
		a[0] == b[1] && a[1] == b[0]
}

// Run implements Pass.
func (*CSE) Run(fn *ir.Function) (*ir.Function, bool, error) {
	r := ir.NewRewriter(fn)
	dst := r.Target()
	candidatesByKey := make(map[dedupKey][]ir.NodeID)
	changed := false

nodesLoop:
	for _, node := range fn.Nodes {
		if node.Op == ops.OpTypeParameter {
			if _, err := r.Copy(node.ID); err != nil {
				return nil, false, err
			}
			continue
		}
		inputs, err := r.MapAll(node.Inputs)
		if err != nil {
			return nil, false, err
		}
		key := makeDedupKey(node.Op, inputs)
		for _, candidateID := range candidatesByKey[key] {
			candidate := dst.Node(candidateID)
			if sameInputs(node.Op, candidate.Inputs, inputs) && candidate.Shape.Equal(node.Shape) &&
				ir.DataEqual(candidate.Data, node.Data) {
				r.Alias(node.ID, candidateID)
				changed = true
				continue nodesLoop
			}
		}
		newID := r.Emit(node.Op, inputs, node.Shape.Clone(), node.Data)
		r.Alias(node.ID, newID)
		candidatesByKey[key] = append(candidatesByKey[key], newID)
	}
	newFn, err := r.Finish()
	if err != nil {
		return nil, false, err
	}
	return newFn, changed, nil
}
