// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensortrace/pkg/support/workerspool"
	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/gomlx/tensortrace/pkg/core/ops"
	"github.com/gomlx/tensortrace/pkg/core/optimizer"
	"github.com/gomlx/tensortrace/pkg/core/shapes"
	"github.com/gomlx/tensortrace/pkg/core/tensors"
	"github.com/gomlx/tensortrace/pkg/core/trace"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expSqrtAdd builds c = sqrt(exp(a)) + a.
func expSqrtAdd(t *testing.T) (g *Graph, a, c Tensor) {
	g = New().SetName("expSqrtAdd")
	a = must.M1(g.Tensor(shapes.Make(dtypes.Float32, 3)))
	exp := must.M1(a.Exp())
	sqrt := must.M1(exp.Sqrt())
	c = must.M1(sqrt.Add(a))
	return
}

func TestGenTrace(t *testing.T) {
	g, a, c := expSqrtAdd(t)
	input := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2}, 3)
	want := make([]float64, 3)
	for ii, x := range []float64{0, 1, 2} {
		want[ii] = math.Sqrt(math.Exp(x)) + x
	}

	unfused := must.M1(g.GenTraceWithOptions(optimizer.NoOptimizations(), c))
	require.Equal(t, 3, unfused.Compiled().NumInstructions())
	fused := must.M1(g.GenTraceWithOptions(optimizer.DefaultOptions(), c))
	require.Equal(t, 1, fused.Compiled().NumInstructions())
	require.Equal(t, ops.OpTypeFused, fused.Compiled().Instruction(0).Op)
	require.Equal(t, 2, g.NumTraces())
	require.Equal(t, 4, g.NumNodes(), "generating traces must not change the graph")
	require.Equal(t, []Tensor{c}, fused.Outputs())
	require.Equal(t, []Tensor{a}, fused.Parameters())
	require.Equal(t, g, fused.Graph())

	results := must.M1(unfused.Run(map[Tensor]*tensors.Tensor{a: input}))
	require.InDeltaSlice(t, want, results[c].Float64s(), 1e-5)
	fusedResults := must.M1(fused.Run(map[Tensor]*tensors.Tensor{a: input}))
	require.True(t, results[c].Equal(fusedResults[c]))

	parallelResults := must.M1(fused.RunParallel(workerspool.New(), map[Tensor]*tensors.Tensor{a: input}))
	require.True(t, results[c].Equal(parallelResults[c]))
	defaultPoolResults := must.M1(fused.RunParallel(nil, map[Tensor]*tensors.Tensor{a: input}))
	require.True(t, results[c].Equal(defaultPoolResults[c]))
}

func TestGenTraceFromEnv(t *testing.T) {
	g, _, c := expSqrtAdd(t)
	t.Setenv(optimizer.TENSORTRACE_OPTIMIZER, "none")
	tr := must.M1(g.GenTrace(c))
	require.Equal(t, 3, tr.Compiled().NumInstructions())

	t.Setenv(optimizer.TENSORTRACE_OPTIMIZER, "nofusion,bogus")
	_, err := g.GenTrace(c)
	require.Error(t, err)
	require.Equal(t, 1, g.NumTraces())
}

func TestGenTraceDeterminism(t *testing.T) {
	g := New()
	x := must.M1(g.Tensor(shapes.Make(dtypes.Float64, 2, 2)))
	y := must.M1(g.Tensor(shapes.Make(dtypes.Float64, 2, 2)))
	s := must.M1(x.Add(y))
	d := must.M1(x.Sub(y))
	p := must.M1(s.Mul(d))
	r := must.M1(p.ReduceSum(0))

	tr1 := must.M1(g.GenTrace(r, s))
	tr2 := must.M1(g.GenTrace(r, s))
	require.Equal(t, tr1.String(), tr2.String())
	require.Equal(t, tr1.Compiled().Instructions(), tr2.Compiled().Instructions())
	require.Equal(t, must.M1(tr1.Compiled().Digest()), must.M1(tr2.Compiled().Digest()))
	require.Equal(t, g.ID().String(), tr1.Export().GraphID)
}

func TestTopologicalOrder(t *testing.T) {
	g := New()
	x := must.M1(g.Tensor(shapes.Make(dtypes.Float32, 3)))
	y := must.M1(g.Tensor(shapes.Make(dtypes.Float32, 3)))
	a := must.M1(x.Exp())
	b := must.M1(y.Neg())
	c := must.M1(a.Mul(b))
	d := must.M1(b.Sin())
	e := must.M1(c.Add(d))

	tr := must.M1(g.GenTraceWithOptions(optimizer.NoOptimizations(), e))
	var order []ir.NodeID
	for _, inst := range tr.Compiled().Instructions() {
		order = append(order, inst.Node)
	}
	want := []ir.NodeID{ir.NodeID(a.Id()), ir.NodeID(b.Id()), ir.NodeID(c.Id()), ir.NodeID(d.Id()), ir.NodeID(e.Id())}
	require.Equal(t, want, order)
}

func TestOptimizerPreservesOutputs(t *testing.T) {
	g := New()
	x := must.M1(g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3)))
	y := must.M1(g.Parameter("y", shapes.Make(dtypes.Float32, 1, 3)))
	two := must.M1(g.Scalar(dtypes.Float32, 2))
	three := must.M1(g.Scalar(dtypes.Float32, 3))
	k := must.M1(two.Mul(three))
	e1 := must.M1(x.Exp())
	e2 := must.M1(x.Exp())
	s := must.M1(e1.Add(e2))
	m := must.M1(s.Mul(k))
	r := must.M1(m.Sub(y))
	red := must.M1(r.ReduceMax(1))
	ten := must.M1(g.Scalar(dtypes.Float32, 10))
	l := must.M1(red.LessThan(ten))
	_ = must.M1(x.Cos()) // Not an output.

	feed := map[Tensor]*tensors.Tensor{
		x: tensors.FromFlatDataAndDimensions([]float32{-1, 0, 0.5, 1, -0.25, 0.1}, 2, 3),
		y: tensors.FromFlatDataAndDimensions([]float32{1, 3, 30}, 1, 3),
	}
	plain := must.M1(g.GenTraceWithOptions(optimizer.NoOptimizations(), r, l, m))
	optimized := must.M1(g.GenTraceWithOptions(optimizer.DefaultOptions(), r, l, m))
	require.Less(t, optimized.Compiled().NumInstructions(), plain.Compiled().NumInstructions())

	want := must.M1(plain.Run(feed))
	got := must.M1(optimized.Run(feed))
	require.Len(t, got, 3)
	for _, output := range []Tensor{r, l, m} {
		require.True(t, want[output].Equal(got[output]), "output %s: want %s, got %s", output, want[output], got[output])
		require.True(t, output.Shape().Equal(got[output].Shape()))
	}
	require.Equal(t, []float64{1, 0}, got[l].Float64s())
}

func TestGenTraceSinks(t *testing.T) {
	g := New()
	x := must.M1(g.Tensor(shapes.Make(dtypes.Float64, 2)))
	a := must.M1(x.Exp())
	b := must.M1(x.Neg())
	c := must.M1(a.Abs())
	require.Equal(t, []Tensor{b, c}, g.Sinks())

	tr := must.M1(g.GenTrace())
	require.Equal(t, []Tensor{b, c}, tr.Outputs())
	results := must.M1(tr.Run(map[Tensor]*tensors.Tensor{x: tensors.FromFlatDataAndDimensions([]float64{0, 1}, 2)}))
	require.Equal(t, []float64{0, -1}, results[b].Float64s())
	require.InDeltaSlice(t, []float64{1, math.E}, results[c].Float64s(), 1e-12)

	// Empty graphs generate empty traces.
	empty := must.M1(New().GenTrace())
	require.Equal(t, 0, empty.Compiled().NumInstructions())
	require.Empty(t, must.M1(empty.Run(nil)))
}

func TestGraphGrowsAfterGenTrace(t *testing.T) {
	g, a, c := expSqrtAdd(t)
	tr := must.M1(g.GenTrace(c))
	d := must.M1(c.Mul(c))
	b := must.M1(g.Tensor(shapes.Make(dtypes.Float32, 3)))
	require.Equal(t, 6, g.NumNodes())

	// The old trace is not affected by the new nodes and parameters.
	input := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2}, 3)
	results := must.M1(tr.Run(map[Tensor]*tensors.Tensor{a: input}))
	require.Len(t, results, 1)
	_, err := tr.Run(map[Tensor]*tensors.Tensor{a: input, b: input})
	require.ErrorIs(t, err, trace.ErrInvalidParameters)

	tr2 := must.M1(g.GenTrace(d))
	results2 := must.M1(tr2.Run(map[Tensor]*tensors.Tensor{a: input}))
	want := results[c].Float64s()
	for ii := range want {
		want[ii] *= want[ii]
	}
	assert.InDeltaSlice(t, want, results2[d].Float64s(), 1e-4)
}

func TestRunErrors(t *testing.T) {
	g, a, c := expSqrtAdd(t)
	tr := must.M1(g.GenTrace(c))

	_, err := tr.Run(nil)
	require.ErrorIs(t, err, trace.ErrInvalidParameters)
	_, err = tr.Run(map[Tensor]*tensors.Tensor{a: tensors.FromFlatDataAndDimensions([]float64{0, 1, 2}, 3)})
	require.ErrorIs(t, err, trace.ErrInvalidParameters)
	_, err = tr.Run(map[Tensor]*tensors.Tensor{c: tensors.FromFlatDataAndDimensions([]float32{0, 1, 2}, 3)})
	require.ErrorIs(t, err, trace.ErrInvalidParameters)
}

func TestGenTraceUnsupported(t *testing.T) {
	g := New()
	x := must.M1(g.Tensor(shapes.Make(dtypes.Float32, 2)))
	_, err := g.GenTraceWithOptions(optimizer.Options{Fusion: true, MaxFusedOps: 1}, x)
	require.ErrorIs(t, err, trace.ErrTraceGeneration)

	var zero Tensor
	_, err = g.GenTrace(zero)
	require.ErrorIs(t, err, ErrInvalidTensor)
}
