// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package optimizer rewrites an ir.Function into an equivalent, cheaper one.
//
// The optimizer runs a pipeline of passes, in order:
//
//  1. Constant folding: nodes whose operands are all constants are evaluated and replaced by constants.
//  2. Common-subexpression elimination (CSE): identical nodes are merged.
//  3. Dead-code elimination (DCE): nodes that don't contribute to any output are removed.
//  4. Fusion: trees of elementwise operations are merged into a single fused node.
//
// Each pass returns a new, validated Function: the input Function is never modified.
// The shapes and values of the outputs are preserved by every pass.
package optimizer

import (
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass is one semantics-preserving rewrite of a Function.
type Pass interface {
	// Name of the pass, used for logging.
	Name() string

	// Run returns the rewritten function and whether anything changed.
	// If nothing changed it may return the input function itself.
	Run(fn *ir.Function) (*ir.Function, bool, error)
}

// Pipeline returns the passes enabled by the options, in the order they should run.
func Pipeline(opts Options) []Pass {
	var passes []Pass
	if opts.ConstantFolding {
		passes = append(passes, &ConstantFolding{MaxFoldedSize: opts.MaxFoldedSize})
	}
	if opts.CSE {
		passes = append(passes, &CSE{})
	}
	if opts.DeadCodeElimination {
		passes = append(passes, &DeadCodeElimination{})
	}
	if opts.Fusion {
		passes = append(passes, &Fusion{MaxFusedOps: opts.MaxFusedOps})
	}
	return passes
}

// Optimize validates fn and runs the pipeline configured by opts over it.
func Optimize(fn *ir.Function, opts Options) (*ir.Function, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := fn.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "optimizing %q", fn.Name)
	}
	return Run(fn, Pipeline(opts)...)
}

// Run the given passes in order over fn.
func Run(fn *ir.Function, passes ...Pass) (*ir.Function, error) {
	for _, pass := range passes {
		numNodes := fn.NumNodes()
		newFn, changed, err := pass.Run(fn)
		if err != nil {
			return nil, errors.WithMessagef(err, "optimizer pass %s on %q", pass.Name(), fn.Name)
		}
		klog.V(2).Infof("optimizer: pass %s on %q: changed=%v, %d -> %d nodes",
			pass.Name(), fn.Name, changed, numNodes, newFn.NumNodes())
		fn = newFn
	}
	if klog.V(3).Enabled() {
		klog.Infof("optimized function:\n%s", fn)
	}
	return fn, nil
}
