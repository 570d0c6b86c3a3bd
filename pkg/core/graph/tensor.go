// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Tensor is a handle to a node of a Graph: the symbolic value the node computes.
//
// It is a small comparable value: copying it creates another handle to the same node, and it can
// be used as a map key. The zero value is an invalid Tensor.
type Tensor struct {
	graph *Graph
	id    NodeId
}

// IsValid returns whether the handle references a node of a graph.
func (t Tensor) IsValid() bool {
	return t.graph != nil && t.id >= 0 && int(t.id) < len(t.graph.nodes)
}

// Graph that holds the node, or nil for an invalid Tensor.
func (t Tensor) Graph() *Graph { return t.graph }

// Id of the node within its graph.
func (t Tensor) Id() NodeId {
	if t.graph == nil {
		return InvalidNodeId
	}
	return t.id
}

func (t Tensor) node() *node { return t.graph.nodes[t.id] }

// Shape of the value of the tensor. It returns an invalid shape for an invalid Tensor.
func (t Tensor) Shape() shapes.Shape {
	if !t.IsValid() {
		return shapes.Invalid()
	}
	return t.node().shape
}

// DType of the value of the tensor.
func (t Tensor) DType() dtypes.DType { return t.Shape().DType }

// Rank of the value of the tensor.
func (t Tensor) Rank() int { return t.Shape().Rank() }

// Op that computes the tensor, OpTypeInvalid for an invalid Tensor.
func (t Tensor) Op() ops.OpType {
	if !t.IsValid() {
		return ops.OpTypeInvalid
	}
	return t.node().op
}

// Inputs returns the operands of the operation that computes the tensor.
func (t Tensor) Inputs() []Tensor {
	if !t.IsValid() {
		return nil
	}
	return xslices.Map(t.node().inputs, func(id NodeId) Tensor { return Tensor{graph: t.graph, id: id} })
}

// String implements fmt.Stringer. E.g.: "#3 Add(#1, #2) -> (Float32)[3]".
func (t Tensor) String() string {
	if !t.IsValid() {
		return "Tensor(invalid)"
	}
	n := t.node()
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "#%d %s(", n.id, n.op)
	for ii, input := range n.inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "#%d", input)
	}
	sb.WriteString(")")
	if n.data != nil {
		_, _ = fmt.Fprintf(&sb, "{%v}", n.data)
	}
	_, _ = fmt.Fprintf(&sb, " -> %s", n.shape)
	return sb.String()
}

// checkOperands returns an error if any of the tensors is invalid, or if they don't all belong to the same graph.
func checkOperands(opName string, operands ...Tensor) error {
	var g *Graph
	for ii, operand := range operands {
		if !operand.IsValid() {
			return errors.Wrapf(ErrInvalidTensor, "%s: operand #%d", opName, ii)
		}
		if g == nil {
			g = operand.graph
		} else if operand.graph != g {
			return errors.Wrapf(ErrCrossGraphReference, "%s: operand #%d belongs to graph %q, operand #0 to graph %q",
				opName, ii, operand.graph.name, g.name)
		}
	}
	return nil
}
