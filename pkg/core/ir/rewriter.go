// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Rewriter builds a new Function from a source Function, node by node.
//
// Passes visit the source nodes in order and, for each one, either Copy it, Alias it to
// a node already emitted, Emit a replacement, or skip it. Inputs of copied nodes are translated
// with the mapping built so far, which is always possible since inputs come before their users.
type Rewriter struct {
	src, dst *Function
	mapping  []NodeID
}

// NewRewriter starts rewriting src into a new empty Function.
func NewRewriter(src *Function) *Rewriter {
	r := &Rewriter{
		src:     src,
		dst:     NewFunction(src.Name),
		mapping: make([]NodeID, len(src.Nodes)),
	}
	r.dst.GraphID = src.GraphID
	for ii := range r.mapping {
		r.mapping[ii] = InvalidNodeID
	}
	return r
}

// Source returns the function being rewritten.
func (r *Rewriter) Source() *Function { return r.src }

// Target returns the function being built.
func (r *Rewriter) Target() *Function { return r.dst }

// Map returns the id in the target function of the source node srcID, or InvalidNodeID if not mapped (yet).
func (r *Rewriter) Map(srcID NodeID) NodeID { return r.mapping[srcID] }

// MapAll translates source ids into target ids. It returns an error if any of them is not mapped.
func (r *Rewriter) MapAll(srcIDs []NodeID) ([]NodeID, error) {
	mapped := make([]NodeID, len(srcIDs))
	for ii, srcID := range srcIDs {
		mapped[ii] = r.mapping[srcID]
		if mapped[ii] == InvalidNodeID {
			return nil, errors.Errorf("rewriting %q: node #%d used before being mapped", r.src.Name, srcID)
		}
	}
	return mapped, nil
}

// Copy emits a copy of the source node, with its inputs translated, and maps it to the copy.
func (r *Rewriter) Copy(srcID NodeID) (NodeID, error) {
	node := r.src.Nodes[srcID]
	inputs, err := r.MapAll(node.Inputs)
	if err != nil {
		return InvalidNodeID, err
	}
	dstNode := r.dst.AddNode(node.Op, inputs, node.Shape.Clone(), node.Data)
	r.mapping[srcID] = dstNode.ID
	return dstNode.ID, nil
}

// Emit appends a new node to the target function, with inputs given as target ids.
func (r *Rewriter) Emit(op ops.OpType, dstInputs []NodeID, shape shapes.Shape, data any) NodeID {
	return r.dst.AddNode(op, dstInputs, shape, data).ID
}

// Alias maps the source node srcID to the already emitted target node dstID.
func (r *Rewriter) Alias(srcID, dstID NodeID) {
	r.mapping[srcID] = dstID
}

// Finish translates the outputs, validates and returns the new function.
// Every source parameter must have been mapped.
func (r *Rewriter) Finish() (*Function, error) {
	for _, param := range r.src.Parameters {
		if r.mapping[param] == InvalidNodeID {
			return nil, errors.Errorf("rewriting %q: parameter node #%d was dropped", r.src.Name, param)
		}
	}
	outputs, err := r.MapAll(r.src.Outputs)
	if err != nil {
		return nil, errors.WithMessage(err, "mapping outputs")
	}
	r.dst.Outputs = outputs
	if err = r.dst.Validate(); err != nil {
		return nil, err
	}
	return r.dst, nil
}
