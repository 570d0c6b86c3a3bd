// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
)

// DeadCodeElimination removes nodes that don't contribute to any output.
// Parameters are always kept, so the function keeps its signature.
type DeadCodeElimination struct{}

// Name implements Pass.
func (*DeadCodeElimination) Name() string { return "DeadCodeElimination" }

// Run implements Pass.
func (*DeadCodeElimination) Run(fn *ir.Function) (*ir.Function, bool, error) {
	live := make([]bool, fn.NumNodes())
	for _, output := range fn.Outputs {
		live[output] = true
	}
	// Inputs always come before their users, so one backward sweep is enough.
	for idx := fn.NumNodes() - 1; idx >= 0; idx-- {
		node := fn.Nodes[idx]
		if node.Op == ops.OpTypeParameter {
			live[idx] = true
		}
		if !live[idx] {
			continue
		}
		for _, input := range node.Inputs {
			live[input] = true
		}
	}

	r := ir.NewRewriter(fn)
	changed := false
	for _, node := range fn.Nodes {
		if !live[node.ID] {
			changed = true
			continue
		}
		if _, err := r.Copy(node.ID); err != nil {
			return nil, false, err
		}
	}
	newFn, err := r.Finish()
	if err != nil {
		return nil, false, err
	}
	return newFn, changed, nil
}
