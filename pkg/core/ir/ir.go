// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir defines Function, a flat, index-based copy of a computation graph.
//
// A Function is what the optimizer passes rewrite and what the trace generator linearizes.
// Nodes are stored in a slice indexed by their NodeID, and a node's inputs always reference
// nodes with a smaller NodeID: the slice order is a valid topological order.
//
// Functions are never shared with the graph they were copied from, so rewriting one never
// affects the user's graph.
package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnresolvedShape is returned (wrapped) by Validate when a node doesn't have a valid shape.
var ErrUnresolvedShape = errors.New("unresolved shape")

// NodeID is the index of a Node in Function.Nodes.
type NodeID int

// InvalidNodeID is used to mark unmapped nodes.
const InvalidNodeID NodeID = -1

// Node is one operation of a Function.
type Node struct {
	ID     NodeID
	Op     ops.OpType
	Inputs []NodeID
	Shape  shapes.Shape

	// Data holds op specific parameters: ParameterData, ConstantData, ReduceData or FusedData.
	// It is nil for the other ops.
	Data any
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "#%d %s(", n.ID, n.Op)
	for ii, input := range n.Inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "#%d", input)
	}
	sb.WriteString(")")
	if n.Data != nil {
		_, _ = fmt.Fprintf(&sb, "{%v}", n.Data)
	}
	_, _ = fmt.Fprintf(&sb, " -> %s", n.Shape)
	return sb.String()
}

// Function is a DAG of nodes with designated parameters and outputs.
type Function struct {
	// Name is informative only, copied from the graph.
	Name string

	// GraphID identifies the graph the function was copied from. It may be uuid.Nil.
	GraphID uuid.UUID

	Nodes []*Node

	// Parameters lists the parameter nodes, in the order their values are given when executing.
	Parameters []NodeID

	// Outputs lists the nodes whose values are returned, in order. A node may appear more than once.
	Outputs []NodeID
}

// NewFunction returns an empty Function.
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// NumNodes returns the number of nodes in the function.
func (f *Function) NumNodes() int { return len(f.Nodes) }

// AddNode appends a new node and returns it. The inputs slice is owned by the new node afterward.
//
// Parameter nodes are also appended to f.Parameters.
func (f *Function) AddNode(op ops.OpType, inputs []NodeID, shape shapes.Shape, data any) *Node {
	n := &Node{
		ID:     NodeID(len(f.Nodes)),
		Op:     op,
		Inputs: inputs,
		Shape:  shape,
		Data:   data,
	}
	f.Nodes = append(f.Nodes, n)
	if op == ops.OpTypeParameter {
		f.Parameters = append(f.Parameters, n.ID)
	}
	return n
}

// Node returns the node with the given id. It panics if out of range.
func (f *Function) Node(id NodeID) *Node { return f.Nodes[id] }

// IsOutput returns whether the node is one of the outputs.
func (f *Function) IsOutput(id NodeID) bool {
	for _, output := range f.Outputs {
		if output == id {
			return true
		}
	}
	return false
}

// Consumers returns, for each node, the list of nodes that use it as input, in increasing order.
// A node that uses the same input twice is listed twice.
func (f *Function) Consumers() [][]NodeID {
	consumers := make([][]NodeID, len(f.Nodes))
	for _, node := range f.Nodes {
		for _, input := range node.Inputs {
			consumers[input] = append(consumers[input], node.ID)
		}
	}
	return consumers
}

// Clone returns a deep copy of the function structure. Node data is shared, since it is immutable.
func (f *Function) Clone() *Function {
	c := &Function{
		Name:       f.Name,
		GraphID:    f.GraphID,
		Nodes:      make([]*Node, len(f.Nodes)),
		Parameters: append([]NodeID(nil), f.Parameters...),
		Outputs:    append([]NodeID(nil), f.Outputs...),
	}
	for ii, node := range f.Nodes {
		c.Nodes[ii] = &Node{
			ID:     node.ID,
			Op:     node.Op,
			Inputs: append([]NodeID(nil), node.Inputs...),
			Shape:  node.Shape.Clone(),
			Data:   node.Data,
		}
	}
	return c
}

// Validate checks the structural invariants of the function:
//
//   - Node ids match their positions, and inputs only reference earlier nodes (so it is a DAG).
//   - Every node has a valid shape, otherwise the error wraps ErrUnresolvedShape.
//   - Source nodes (parameters and constants) have no inputs and the expected data.
//   - Parameters and Outputs reference existing nodes, and Parameters only parameter nodes.
func (f *Function) Validate() error {
	for idx, node := range f.Nodes {
		if node == nil {
			return errors.Errorf("function %q: node #%d is nil", f.Name, idx)
		}
		if node.ID != NodeID(idx) {
			return errors.Errorf("function %q: node at position %d has id #%d", f.Name, idx, node.ID)
		}
		if !node.Op.IsAOpType() || node.Op == ops.OpTypeInvalid || node.Op == ops.OpTypeLast {
			return errors.Errorf("function %q: node #%d has invalid op %d", f.Name, idx, node.Op)
		}
		if err := node.Shape.Check(); err != nil {
			return errors.Wrapf(ErrUnresolvedShape, "function %q: node %s: %v", f.Name, node, err)
		}
		for _, input := range node.Inputs {
			if input < 0 || input >= node.ID {
				return errors.Errorf("function %q: node %s references input #%d, which is not an earlier node",
					f.Name, node, input)
			}
		}
		switch node.Op {
		case ops.OpTypeParameter:
			if _, ok := node.Data.(*ParameterData); !ok || len(node.Inputs) != 0 {
				return errors.Errorf("function %q: malformed parameter node %s", f.Name, node)
			}
		case ops.OpTypeConstant:
			data, ok := node.Data.(*ConstantData)
			if !ok || len(node.Inputs) != 0 || data.Value == nil || !data.Value.Shape().Equal(node.Shape) {
				return errors.Errorf("function %q: malformed constant node %s", f.Name, node)
			}
		default:
			if len(node.Inputs) == 0 {
				return errors.Errorf("function %q: node %s has no inputs", f.Name, node)
			}
		}
	}
	numParameters := 0
	for _, node := range f.Nodes {
		if node.Op == ops.OpTypeParameter {
			numParameters++
		}
	}
	if numParameters != len(f.Parameters) {
		return errors.Errorf("function %q: has %d parameter nodes, but %d listed as parameters",
			f.Name, numParameters, len(f.Parameters))
	}
	for _, id := range f.Parameters {
		if id < 0 || int(id) >= len(f.Nodes) || f.Nodes[id].Op != ops.OpTypeParameter {
			return errors.Errorf("function %q: invalid parameter reference #%d", f.Name, id)
		}
	}
	for _, id := range f.Outputs {
		if id < 0 || int(id) >= len(f.Nodes) {
			return errors.Errorf("function %q: invalid output reference #%d", f.Name, id)
		}
	}
	return nil
}

// String returns a multi-line listing of the function.
func (f *Function) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Function %q: %d nodes, parameters=%v, outputs=%v\n",
		f.Name, len(f.Nodes), f.Parameters, f.Outputs)
	for _, node := range f.Nodes {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", node)
	}
	return sb.String()
}
