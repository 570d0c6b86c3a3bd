// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/kernels"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"k8s.io/klog/v2"
)

// ConstantFolding evaluates, at optimization time, nodes whose operands are all constants.
//
// Folding is transitive: a node whose operands became constants is folded as well.
// Nodes whose result would be larger than MaxFoldedSize elements are left as they are.
type ConstantFolding struct {
	MaxFoldedSize int
}

// Name implements Pass.
func (*ConstantFolding) Name() string { return "ConstantFolding" }

// Run implements Pass.
func (p *ConstantFolding) Run(fn *ir.Function) (*ir.Function, bool, error) {
	r := ir.NewRewriter(fn)
	dst := r.Target()
	changed := false
	for _, node := range fn.Nodes {
		value := p.fold(dst, r, node)
		if value == nil {
			if _, err := r.Copy(node.ID); err != nil {
				return nil, false, err
			}
			continue
		}
		r.Alias(node.ID, r.Emit(ops.OpTypeConstant, nil, node.Shape.Clone(), &ir.ConstantData{Value: value}))
		changed = true
	}
	newFn, err := r.Finish()
	if err != nil {
		return nil, false, err
	}
	return newFn, changed, nil
}

// fold returns the value of node if it can be folded, or nil.
func (p *ConstantFolding) fold(dst *ir.Function, r *ir.Rewriter, node *ir.Node) *tensors.Tensor {
	if ops.SourceOperations.Has(node.Op) || node.Shape.Size() > p.MaxFoldedSize {
		return nil
	}
	inputs := make([]*tensors.Tensor, len(node.Inputs))
	for ii, input := range node.Inputs {
		dstInput := dst.Node(r.Map(input))
		if dstInput.Op != ops.OpTypeConstant {
			return nil
		}
		inputs[ii] = dstInput.Data.(*ir.ConstantData).Value
	}
	value, err := kernels.Evaluate(node.Op, node.Data, inputs, node.Shape)
	if err != nil {
		klog.Warningf("constant folding of node %s skipped: %v", node, err)
		return nil
	}
	return value
}
