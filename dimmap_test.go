package dataformats_test

import (
	"testing"

	. "github.com/gomlx/dataformats"
	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/graph/graphtest"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

// mustCompile emits the kernel's fragment on x, failing the test on error.
func mustCompile(t *testing.T, kernel Kernel, x *graph.Node) *graph.Node {
	output, err := kernel.Compile(x)
	require.NoError(t, err)
	return output
}

func TestNewDimMap(t *testing.T) {
	m, err := NewDimMap(dtypes.Int32, NHWC, NCHW)
	require.NoError(t, err)
	require.Equal(t, "DimMap[Int32](NHWC->NCHW)", m.String())

	_, err = NewDimMap(dtypes.Float32, NHWC, NCHW)
	require.ErrorIs(t, err, ErrUnsupportedDType)

	_, err = NewDimMap(dtypes.Int32, "NHW", NCHW)
	require.ErrorIs(t, err, ErrInvalidFormat)

	// NewDimMap requires recognized layouts, even for valid symbol sets.
	_, err = NewDimMap(dtypes.Int32, "ABCD", "DCBA")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestNewDimMapForSymbols(t *testing.T) {
	_, err := NewDimMapForSymbols(dtypes.Int32, "ABCD", "DCBA")
	require.NoError(t, err)

	_, err = NewDimMapForSymbols(dtypes.Int32, "ABCD", "ABCE")
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewDimMapForSymbols(dtypes.Int32, "AABC", "ABCD")
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewDimMapForSymbols(dtypes.Float64, "ABCD", "DCBA")
	require.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestDimMap(t *testing.T) {
	m := must.M1(NewDimMap(dtypes.Int32, NHWC, NCHW))

	graphtest.RunTestGraphFn(t, "DimMap NHWC->NCHW", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int32{0, 1, 2, 3})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, m, x)}
		return
	}, []any{[]int32{0, 2, 3, 1}}, 0)

	// Negative indices wrap around: [-1, -2, -3, -4] is [3, 2, 1, 0] mod 4.
	graphtest.RunTestGraphFn(t, "DimMap wraparound", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int32{-1, -2, -3, -4})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, m, x)}
		return
	}, []any{[]int32{1, 3, 2, 0}}, 0)

	graphtest.RunTestGraphFn(t, "DimMap rank-2", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, [][]int32{{0, 1}, {2, 3}})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, m, x)}
		return
	}, []any{[][]int32{{0, 2}, {3, 1}}}, 0)

	graphtest.RunTestGraphFn(t, "DimMap scalar", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, int32(2))
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, m, x)}
		return
	}, []any{int32(3)}, 0)

	// Int64 inputs: the table arithmetic runs in Int32 and converts back at the end.
	m64 := must.M1(NewDimMap(dtypes.Int64, NHWC, NCHW))
	graphtest.RunTestGraphFn(t, "DimMap Int64", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int64{0, 1, 2, 3})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, m64, x)}
		return
	}, []any{[]int64{0, 2, 3, 1}}, 0)

	// Same layout on both sides: indices are only wrapped into range.
	identity := must.M1(NewDimMap(dtypes.Int32, NHWC, NHWC))
	graphtest.RunTestGraphFn(t, "DimMap identity", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int32{3, -1, 0, 2})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, identity, x)}
		return
	}, []any{[]int32{3, 3, 0, 2}}, 0)

	// Opaque symbol sets permute all the same.
	reversed := must.M1(NewDimMapForSymbols(dtypes.Int32, "ABCD", "DCBA"))
	graphtest.RunTestGraphFn(t, "DimMap custom symbols", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int32{0, 1, 2, 3})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, reversed, x)}
		return
	}, []any{[]int32{3, 2, 1, 0}}, 0)
}

func TestDimMapCompileErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	m := must.M1(NewDimMap(dtypes.Int32, NHWC, NCHW))

	g := graph.NewGraph(backend, "dimmap-dtype-mismatch")
	defer g.Finalize()
	x := graph.Parameter(g, "x", shapes.Make(dtypes.Int64, 4))
	_, err := m.Compile(x)
	require.ErrorIs(t, err, ErrInvalidShape)
	// Only the parameter node: the failed Compile emitted nothing.
	require.Len(t, g.Nodes(), 1)
}
