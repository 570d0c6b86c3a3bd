// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is used to record computations over tensors as a graph, and to compile them into
// an executable Trace.
//
// The main elements in the package are:
//
//   - Graph holds all the recorded nodes. It is created empty with New, and only grows.
//
//   - Tensor is a lightweight handle to a node of a Graph. Operations on a Tensor (Add, Exp,
//     ReduceSum, etc.) don't compute anything: they check the shapes of their operands and
//     record a new node in the graph, returning its handle.
//
//   - Graph.GenTrace compiles the recorded graph (or the part of it needed for the requested
//     outputs) into a Trace: it optimizes a private copy of the graph, and schedules it into an
//     ordered list of instructions over reusable buffers. The Trace can be executed with Trace.Run
//     or exported to an external collaborator with Trace.Export.
//
// There is no implicit "current graph": every Tensor knows its Graph, and mixing tensors of
// different graphs fails with ErrCrossGraphReference.
//
// # Error Handling
//
// Operations return errors, and they never modify the graph when they fail: in particular,
// operands with incompatible shapes return an error matching ErrShapeMismatch, and the number of
// nodes in the graph is unchanged.
//
// # Concurrency
//
// A Graph must not be modified concurrently. Once the graph is not being modified, GenTrace can be
// called concurrently, and the generated traces can be run concurrently.
package graph

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/shapeinference"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/gomlx/tensortrace/pkg/support/xslices"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned (wrapped) when the operands of an operation have incompatible shapes.
	ErrShapeMismatch = shapeinference.ErrShapeMismatch

	// ErrCrossGraphReference is returned (wrapped) when an operation mixes tensors of different graphs.
	ErrCrossGraphReference = errors.New("tensors from different graphs")

	// ErrInvalidTensor is returned (wrapped) when an operation is given an invalid (zero value) Tensor.
	ErrInvalidTensor = errors.New("invalid tensor")
)

// NodeId is the index of a node within its Graph.
type NodeId int

// InvalidNodeId is the id of the zero value Tensor.
const InvalidNodeId NodeId = -1

// node is a recorded operation. It is never modified after being inserted.
type node struct {
	id     NodeId
	op     ops.OpType
	inputs []NodeId
	shape  shapes.Shape

	// data is the op specific static information, in the form used by the ir package:
	// *ir.ParameterData, *ir.ConstantData or *ir.ReduceData.
	data any
}

// Graph holds the recorded nodes of a computation.
type Graph struct {
	id   uuid.UUID
	name string

	// nodes is append-only: inputs of a node always have smaller ids.
	nodes []*node

	// parameters are the parameter nodes, in order of creation.
	parameters        []NodeId
	parameterNameToId map[string]NodeId

	numTraces atomic.Int64
}

// New creates an empty Graph.
func New() *Graph {
	id := uuid.New()
	return &Graph{
		id:                id,
		name:              fmt.Sprintf("graph_%s", id.String()[:8]),
		parameterNameToId: make(map[string]NodeId),
	}
}

// SetName sets the name of the graph, used in traces and error messages. It returns the graph itself.
func (g *Graph) SetName(name string) *Graph {
	g.name = name
	return g
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// ID uniquely identifies the graph. It is carried by the traces generated from it.
func (g *Graph) ID() uuid.UUID { return g.id }

// NumNodes returns the number of nodes recorded so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumParameters returns the number of input nodes.
func (g *Graph) NumParameters() int { return len(g.parameters) }

// NumTraces returns the number of traces successfully generated from the graph.
func (g *Graph) NumTraces() int { return int(g.numTraces.Load()) }

// Nodes returns handles to all nodes in the graph, in insertion order.
func (g *Graph) Nodes() []Tensor {
	handles := make([]Tensor, len(g.nodes))
	for ii := range g.nodes {
		handles[ii] = Tensor{graph: g, id: NodeId(ii)}
	}
	return handles
}

// Parameters returns handles to the input nodes, in order of creation.
func (g *Graph) Parameters() []Tensor {
	return xslices.Map(g.parameters, func(id NodeId) Tensor { return Tensor{graph: g, id: id} })
}

// ParameterByName returns the input node with the given name, if any.
func (g *Graph) ParameterByName(name string) (Tensor, bool) {
	id, found := g.parameterNameToId[name]
	if !found {
		return Tensor{}, false
	}
	return Tensor{graph: g, id: id}, true
}

// String returns a multi-line description of the graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)"
	}
	parts := []string{
		fmt.Sprintf("Graph %q: %d nodes, %d parameters", g.name, len(g.nodes), len(g.parameters)),
	}
	for ii := range g.nodes {
		parts = append(parts, fmt.Sprintf("\t%s", Tensor{graph: g, id: NodeId(ii)}))
	}
	return strings.Join(parts, "\n")
}

// insertNode appends a node, whose inputs and shape were already checked, and returns its handle.
func (g *Graph) insertNode(op ops.OpType, inputs []NodeId, shape shapes.Shape, data any) Tensor {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, &node{
		id:     id,
		op:     op,
		inputs: inputs,
		shape:  shape.Clone(),
		data:   data,
	})
	return Tensor{graph: g, id: id}
}

// Tensor creates a new input node with the given shape, whose value is given when running the trace.
// It is automatically named "p#<n>", where n is the index of the parameter.
//
// It fails if the shape is not valid: a dtype other than Float32 or Float64, or negative dimensions.
func (g *Graph) Tensor(shape shapes.Shape) (Tensor, error) {
	return g.Parameter("", shape)
}

// Parameter creates a new named input node with the given shape, whose value is given when running the trace.
//
// If a parameter with the same name and shape already exists, it is returned. If it has another shape, it fails.
// An empty name creates an automatically named parameter, see Graph.Tensor.
func (g *Graph) Parameter(name string, shape shapes.Shape) (Tensor, error) {
	if err := shapeinference.CheckShape(shape); err != nil {
		return Tensor{}, errors.WithMessagef(err, "Graph(%q).Parameter(%q)", g.name, name)
	}
	if name == "" {
		for n := len(g.parameters); ; n++ {
			name = fmt.Sprintf("p#%d", n)
			if _, found := g.parameterNameToId[name]; !found {
				break
			}
		}
	} else if id, found := g.parameterNameToId[name]; found {
		existing := g.nodes[id].shape
		if !existing.Equal(shape) {
			return Tensor{}, errors.Wrapf(ErrShapeMismatch, "Graph(%q).Parameter(%q): already defined with shape %s, requested %s",
				g.name, name, existing, shape)
		}
		return Tensor{graph: g, id: id}, nil
	}
	t := g.insertNode(ops.OpTypeParameter, nil, shape, &ir.ParameterData{Name: name})
	g.parameters = append(g.parameters, t.id)
	g.parameterNameToId[name] = t.id
	return t, nil
}

// Constant creates a node with the given value. The value is copied.
func (g *Graph) Constant(value *tensors.Tensor) (Tensor, error) {
	if !value.Ok() {
		return Tensor{}, errors.Wrapf(ErrInvalidTensor, "Graph(%q).Constant: value is nil or empty", g.name)
	}
	if err := shapeinference.CheckShape(value.Shape()); err != nil {
		return Tensor{}, errors.WithMessagef(err, "Graph(%q).Constant", g.name)
	}
	value = value.Clone()
	return g.insertNode(ops.OpTypeConstant, nil, value.Shape(), &ir.ConstantData{Value: value}), nil
}

// Scalar creates a constant scalar node of the given dtype.
func (g *Graph) Scalar(dtype dtypes.DType, value float64) (Tensor, error) {
	shape := shapes.Shape{DType: dtype}
	if err := shapeinference.CheckShape(shape); err != nil {
		return Tensor{}, errors.WithMessagef(err, "Graph(%q).Scalar(%s, %g)", g.name, dtype, value)
	}
	t, err := tensors.FromFloat64s(shape, []float64{value})
	if err != nil {
		return Tensor{}, err
	}
	return g.insertNode(ops.OpTypeConstant, nil, shape, &ir.ConstantData{Value: t}), nil
}

// numConsumers returns the number of uses of each node.
func (g *Graph) numConsumers() []int {
	counts := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, input := range n.inputs {
			counts[input]++
		}
	}
	return counts
}

// Sinks returns the nodes that are not used by any other node, in insertion order.
func (g *Graph) Sinks() []Tensor {
	var sinks []Tensor
	for ii, count := range g.numConsumers() {
		if count == 0 {
			sinks = append(sinks, Tensor{graph: g, id: NodeId(ii)})
		}
	}
	return sinks
}
