package dataformats_test

import (
	"testing"

	. "github.com/gomlx/dataformats"
	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/graph/graphtest"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	want := []Registration{
		{Op: OpDimMap, DType: dtypes.Int32, Placement: PlacementDefault},
		{Op: OpDimMap, DType: dtypes.Int64, Placement: PlacementDefault},
		{Op: OpVecPermute, DType: dtypes.Int32, Placement: PlacementDefault},
		{Op: OpVecPermute, DType: dtypes.Int32, Placement: PlacementHost},
		{Op: OpVecPermute, DType: dtypes.Int64, Placement: PlacementDefault},
		{Op: OpVecPermute, DType: dtypes.Int64, Placement: PlacementHost},
	}
	require.Equal(t, want, r.Registrations())
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	factory, err := r.Lookup(OpVecPermute, dtypes.Int64, PlacementHost)
	require.NoError(t, err)
	require.NotNil(t, factory)

	// DimMap has no host registration.
	_, err = r.Lookup(OpDimMap, dtypes.Int32, PlacementHost)
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = r.Lookup("NoSuchOp", dtypes.Int32, PlacementDefault)
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = r.Lookup(OpDimMap, dtypes.Float32, PlacementDefault)
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	factory, err := r.Lookup(OpDimMap, dtypes.Int32, PlacementDefault)
	require.NoError(t, err)

	err = r.Register(OpDimMap, dtypes.Int32, PlacementDefault, factory)
	require.ErrorContains(t, err, "already registered")

	// A fresh key is fine.
	require.NoError(t, r.Register(OpDimMap, dtypes.Int32, PlacementHost, factory))
	require.Len(t, r.Registrations(), 7)
}

func TestRegistryNewKernel(t *testing.T) {
	r := NewRegistry()
	kernel, err := r.NewKernel(OpVecPermute, dtypes.Int32, PlacementHost, Attrs{SrcFormat: NHWC, DstFormat: NCHW})
	require.NoError(t, err)
	v, ok := kernel.(*VecPermute)
	require.True(t, ok)
	require.Equal(t, PlacementHost, v.Placement())

	// Attributes flow through to construction validation.
	_, err = r.NewKernel(OpVecPermute, dtypes.Int32, PlacementDefault, Attrs{SrcFormat: "ABCD", DstFormat: NCHW})
	require.ErrorIs(t, err, ErrInvalidFormat)

	// A kernel from the registry lowers the same as a directly constructed one.
	fromRegistry := must.M1(r.NewKernel(OpDimMap, dtypes.Int64, PlacementDefault, Attrs{SrcFormat: NHWC, DstFormat: NCHW}))
	graphtest.RunTestGraphFn(t, "registry DimMap", func(g *graph.Graph) (inputs, outputs []*graph.Node) {
		x := graph.Const(g, []int64{0, 1, 2, 3})
		inputs = []*graph.Node{x}
		outputs = []*graph.Node{mustCompile(t, fromRegistry, x)}
		return
	}, []any{[]int64{0, 2, 3, 1}}, 0)
}
