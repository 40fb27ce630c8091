package graph_test

import (
	"fmt"
	"testing"

	. "github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/graph/graphtest"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func addOneGraph(x *Node) *Node {
	return Add(x, ScalarOne(x.Graph(), x.DType()))
}

func sumGraph(a, b *Node) *Node {
	return Add(a, b)
}

func sumAllGraph(inputs []*Node) *Node {
	sum := inputs[0]
	for _, x := range inputs[1:] {
		sum = Add(sum, x)
	}
	return sum
}

func addAndConvertGraph(x *Node) []*Node {
	g := x.Graph()
	return []*Node{
		Add(x, ScalarOne(g, x.DType())),
		ConvertDType(x, dtypes.Float64),
	}
}

func TestExec(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	t.Run("VariousShapes", func(t *testing.T) {
		addOne := MustNewExec(backend, addOneGraph)
		fmt.Printf("\tExec name: %s\n", addOne.Name())
		for dim := 1; dim <= 5; dim++ {
			x := make([]float32, dim)
			outputs := addOne.MustExec(x)
			if len(outputs) != 1 {
				t.Fatalf("Failed to %q.MustExec(), returned %d elements, wanted exactly 1.", addOne.Name(), len(outputs))
			}
			want := make([]float32, dim)
			for ii := range want {
				want[ii] = 1
			}
			require.Equalf(t, want, outputs[0].Value(), "addOne(%v): wanted %v", x, want)
		}
	})

	t.Run("CacheReuse", func(t *testing.T) {
		addOne := MustNewExec(backend, addOneGraph)
		_, g1 := addOne.MustExecWithGraph([]float32{1, 2})
		_, g2 := addOne.MustExecWithGraph([]float32{3, 4})
		require.Same(t, g1, g2)

		// A new shape compiles a new graph.
		_, g3 := addOne.MustExecWithGraph([]float32{1, 2, 3})
		require.NotSame(t, g1, g3)

		// Tensors are accepted directly as arguments.
		got := addOne.MustExec(tensors.FromValue([]float32{1, 2}))[0]
		require.Equal(t, []float32{2, 3}, got.Value())
	})

	// Check that different dtypes will fail.
	t.Run("InvalidDTypes", func(t *testing.T) {
		sum := MustNewExec(backend, sumGraph)
		a := []float64{0, 0}
		b := []float32{1, 1}
		var results []*tensors.Tensor
		require.Panicsf(t, func() { results = sum.MustExec(a, b) },
			"sum(%v, %v) should have failed, got %v", a, b, results)
	})

	// Check that different shapes will fail.
	t.Run("InvalidShapes", func(t *testing.T) {
		sum := MustNewExec(backend, sumGraph)
		a := []float32{0, 0, 0}
		b := []float32{1, 1}
		results, err := sum.Exec(a, b)
		require.Errorf(t, err, "sum(%v, %v) should have failed, got %v", a, b, results)
	})

	// Check out-of-cache failure.
	t.Run("OutOfCache", func(t *testing.T) {
		addOne := MustNewExec(backend, addOneGraph).SetMaxCache(3)
		for dim := 1; dim <= 3; dim++ {
			_ = addOne.MustExec(make([]float32, dim))
		}

		// A 4th different shape no longer fits the cache.
		results, err := addOne.Exec(make([]float32, 4))
		require.Errorf(t, err, "addOne should have run out of cache, got %v", results)
		require.ErrorContainsf(t, err, "maximum cache",
			"addOne failed on something that was not the cache: %+v", err)
	})

	t.Run("WrongNumberOfArgs", func(t *testing.T) {
		addOne := MustNewExec(backend, addOneGraph)
		_, err := addOne.Exec([]float32{1}, []float32{2})
		require.ErrorContains(t, err, "arguments")
	})

	// Check invalid values fail on the conversion to tensors.
	t.Run("InvalidConversion", func(t *testing.T) {
		sum := MustNewExec(backend, sumGraph)
		a := [][]float32{{0}, {0}, {0}}
		b := [][]float32{{0}, {0}, {0, 1}} // Inconsistent shape for b, the conversion to a tensor should fail.
		results, err := sum.Exec(a, b)
		fmt.Printf("\t- Expected error: %v\n", err)
		require.Errorf(t, err, "sum(%v, %v) should have failed, got %v", a, b, results)
	})
}

func TestExecWithNoInputs(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	fourFn := MustNewExec(backend, func(g *Graph) *Node {
		return Scalar(g, dtypes.Int32, 4)
	})
	results := fourFn.MustExec()
	require.Equal(t, int32(4), tensors.ToScalar[int32](results[0]))

	// Graph functions taking a *Graph accept no arguments.
	_, err := fourFn.Exec(1)
	require.Error(t, err)
}

func TestExecWithSlices(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	sumAll := MustNewExecAny(backend, sumAllGraph)

	a := []float32{1, 2}
	b := []float32{10, 20}
	{
		got := sumAll.MustExec(a, b)[0]
		want := []float32{11, 22}
		require.Equalf(t, want, got.Value(), "sumAll(%v, %v): got %v, wanted %v", a, b, got, want)
	}

	// A function taking []*Node accepts a variable number of arguments.
	c := []float32{100, 200}
	{
		got := sumAll.MustExec(a, b, c)[0]
		want := []float32{111, 222}
		require.Equalf(t, want, got.Value(), "sumAll(%v, %v, %v): got %v, wanted %v", a, b, c, got, want)
	}
}

func TestExecMultipleOutputs(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	addAndConvert := MustNewExecAny(backend, addAndConvertGraph)
	x := []float32{1, 2}
	outputs := addAndConvert.MustExec(x)
	require.Len(t, outputs, 2)
	require.Equal(t, []float32{2, 3}, outputs[0].Value())
	require.Equal(t, []float64{1, 2}, outputs[1].Value())

	// Exec1 requires the graph to return exactly one output.
	_, err := addAndConvert.Exec1(x)
	require.ErrorContains(t, err, "Exec1")
}

func TestExec1(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	addOne := MustNewExec(backend, addOneGraph)
	got, err := addOne.Exec1([]int32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []int32{2, 3, 4}, got.Value())
}

func TestExecOnce(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	got, err := ExecOnce(backend, addOneGraph, []int32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []int32{2, 3, 4}, got.Value())

	results, err := ExecOnceN(backend, addAndConvertGraph, []float32{5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, []float32{6}, results[0].Value())
}

func TestExecFinalize(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	addOne := MustNewExec(backend, addOneGraph)
	_ = addOne.MustExec([]float32{1})
	require.NotPanics(t, addOne.Finalize)
}

func TestNewExecAnyErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	_, err := NewExecAny(backend, 7)
	require.ErrorContains(t, err, "must be a function")

	_, err = NewExecAny(backend, func() *Node { return nil })
	require.ErrorContains(t, err, "not enough input")

	_, err = NewExecAny(backend, func(x *Node) {})
	require.ErrorContains(t, err, "not enough input")

	_, err = NewExecAny(backend, func(x int) *Node { return nil })
	require.ErrorContains(t, err, "not of type *Node")

	_, err = NewExecAny(backend, func(x []*Node, y *Node) *Node { return nil })
	require.ErrorContains(t, err, "only input")

	_, err = NewExecAny(backend, func(g *Graph, x *Node) *Node { return nil })
	require.ErrorContains(t, err, "only input")

	_, err = NewExecAny(backend, func(x *Node) int { return 0 })
	require.ErrorContains(t, err, "not of type *Node")

	_, err = NewExecAny(backend, func(x *Node) ([]*Node, *Node) { return nil, nil })
	require.ErrorContains(t, err, "only output")
}
