// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/tensortrace/pkg/support/workerspool"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/optimizer"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/gomlx/tensortrace/pkg/core/trace"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Trace is the compiled form of a Graph, generated by Graph.GenTrace.
//
// It holds no reference to the graph's nodes: the graph can keep growing, and the trace is unaffected.
// It is safe to use concurrently.
type Trace struct {
	graph      *Graph
	compiled   *trace.Trace
	parameters []Tensor
	outputs    []Tensor
}

// GenTrace compiles the graph into a Trace that computes the given outputs.
// If no outputs are given, all nodes not used by any other node (Graph.Sinks) are outputs.
//
// The optimizer configuration is read from the TENSORTRACE_OPTIMIZER environment variable
// (see optimizer.FromEnv), or the defaults if it is not set.
//
// The graph is not changed, and can still be extended and compiled again afterward.
func (g *Graph) GenTrace(outputs ...Tensor) (*Trace, error) {
	opts, err := optimizer.FromEnv()
	if err != nil {
		return nil, errors.WithMessagef(err, "Graph(%q).GenTrace", g.name)
	}
	return g.GenTraceWithOptions(opts, outputs...)
}

// GenTraceWithOptions is like GenTrace, with explicit optimizer options.
func (g *Graph) GenTraceWithOptions(opts optimizer.Options, outputs ...Tensor) (*Trace, error) {
	if len(outputs) == 0 {
		outputs = g.Sinks()
	}
	for ii, output := range outputs {
		if !output.IsValid() {
			return nil, errors.Wrapf(ErrInvalidTensor, "Graph(%q).GenTrace: output #%d", g.name, ii)
		}
		if output.graph != g {
			return nil, errors.Wrapf(ErrCrossGraphReference, "Graph(%q).GenTrace: output #%d belongs to graph %q",
				g.name, ii, output.graph.name)
		}
	}

	fn := g.toFunction(outputs)
	optimized, err := optimizer.Optimize(fn, opts)
	if err != nil {
		return nil, &trace.GenerationError{Function: g.name, Err: err}
	}
	compiled, err := trace.Generate(optimized)
	if err != nil {
		return nil, err
	}
	g.numTraces.Add(1)
	klog.V(1).Infof("Graph(%q).GenTrace: %d nodes -> %d optimized nodes -> %d instructions, %d buffers, memory %s",
		g.name, fn.NumNodes(), optimized.NumNodes(), compiled.NumInstructions(), compiled.NumBuffers(),
		humanize.Bytes(uint64(compiled.Memory())))
	return &Trace{
		graph:      g,
		compiled:   compiled,
		parameters: g.Parameters(),
		outputs:    append([]Tensor(nil), outputs...),
	}, nil
}

// toFunction copies the graph into an ir.Function, keeping the same node ids.
func (g *Graph) toFunction(outputs []Tensor) *ir.Function {
	fn := ir.NewFunction(g.name)
	fn.GraphID = g.id
	for _, n := range g.nodes {
		inputs := make([]ir.NodeID, len(n.inputs))
		for ii, input := range n.inputs {
			inputs[ii] = ir.NodeID(input)
		}
		fn.AddNode(n.op, inputs, n.shape.Clone(), n.data)
	}
	fn.Outputs = make([]ir.NodeID, len(outputs))
	for ii, output := range outputs {
		fn.Outputs[ii] = ir.NodeID(output.id)
	}
	return fn
}

// Graph the trace was generated from.
func (t *Trace) Graph() *Graph { return t.graph }

// Outputs returns the tensors computed by the trace, in order.
func (t *Trace) Outputs() []Tensor { return append([]Tensor(nil), t.outputs...) }

// Parameters returns the input tensors of the graph at the time the trace was generated.
func (t *Trace) Parameters() []Tensor { return append([]Tensor(nil), t.parameters...) }

// Compiled returns the underlying instructions and buffers.
func (t *Trace) Compiled() *trace.Trace { return t.compiled }

// Export returns the description of the trace handed to external collaborators.
func (t *Trace) Export() *trace.Export { return t.compiled.Export() }

// String pretty-prints the trace.
func (t *Trace) String() string { return t.compiled.String() }

// feedToParams orders the values fed to the parameters.
func (t *Trace) feedToParams(feed map[Tensor]*tensors.Tensor) ([]*tensors.Tensor, error) {
	params := make([]*tensors.Tensor, len(t.parameters))
	position := make(map[Tensor]int, len(t.parameters))
	for ii, param := range t.parameters {
		position[param] = ii
	}
	for handle, value := range feed {
		idx, found := position[handle]
		if !found {
			return nil, errors.Wrapf(trace.ErrInvalidParameters, "trace of graph %q: %s is not one of its parameters",
				t.graph.name, handle)
		}
		params[idx] = value
	}
	return params, nil
}

func (t *Trace) outputsToMap(values []*tensors.Tensor) map[Tensor]*tensors.Tensor {
	results := make(map[Tensor]*tensors.Tensor, len(values))
	for ii, output := range t.outputs {
		results[output] = values[ii]
	}
	return results
}

// Run executes the trace with the values of the parameters given in feed, and returns the value of
// each output tensor.
//
// Only the parameters the outputs depend on need to be fed.
func (t *Trace) Run(feed map[Tensor]*tensors.Tensor) (map[Tensor]*tensors.Tensor, error) {
	params, err := t.feedToParams(feed)
	if err != nil {
		return nil, err
	}
	values, err := t.compiled.Run(params)
	if err != nil {
		return nil, err
	}
	return t.outputsToMap(values), nil
}

// RunParallel is like Run, but executes independent instructions concurrently with the workers of pool.
// A nil pool uses workerspool.New().
func (t *Trace) RunParallel(pool *workerspool.Pool, feed map[Tensor]*tensors.Tensor) (map[Tensor]*tensors.Tensor, error) {
	params, err := t.feedToParams(feed)
	if err != nil {
		return nil, err
	}
	values, err := t.compiled.RunParallel(pool, params)
	if err != nil {
		return nil, err
	}
	return t.outputsToMap(values), nil
}
