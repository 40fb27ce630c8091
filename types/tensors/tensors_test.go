package tensors

import (
	"testing"

	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestFromShape(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Int32, 4, 2))
	require.True(t, tensor.Ok())
	require.Equal(t, dtypes.Int32, tensor.DType())
	require.Equal(t, 8, tensor.Size())
	ConstFlatData(tensor, func(flat []int32) {
		require.Len(t, flat, 8)
		for _, v := range flat {
			require.Equal(t, int32(0), v)
		}
	})

	require.Panics(t, func() { FromShape(shapes.Invalid()) })
}

func TestFromValue(t *testing.T) {
	{
		tensor := FromValue(int64(7))
		require.True(t, tensor.IsScalar())
		require.Equal(t, dtypes.Int64, tensor.DType())
		require.Equal(t, int64(7), ToScalar[int64](tensor))
	}
	{
		tensor := FromValue([]int32{10, 20, 30, 40})
		require.NoError(t, tensor.CheckValid())
		require.Equal(t, shapes.Make(dtypes.Int32, 4), tensor.Shape())
		require.Equal(t, []int32{10, 20, 30, 40}, tensor.Value())
	}
	{
		tensor := FromValue([][]int32{{10, 11}, {20, 21}, {30, 31}, {40, 41}})
		require.Equal(t, shapes.Make(dtypes.Int32, 4, 2), tensor.Shape())
		require.Equal(t, []int32{10, 11, 20, 21, 30, 31, 40, 41}, CopyFlatData[int32](tensor))
		require.Equal(t, [][]int32{{10, 11}, {20, 21}, {30, 31}, {40, 41}}, tensor.Value())
	}

	// Irregular sub-slices must fail.
	require.Panics(t, func() { FromAnyValue([][]int32{{1, 2}, {3}}) })
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]int64{0, 1, 2, 3, 4, 5, 6, 7}, 4, 2)
	require.Equal(t, shapes.Make(dtypes.Int64, 4, 2), tensor.Shape())
	require.Equal(t, [][]int64{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, tensor.Value())
	require.Equal(t, []int{2, 1}, tensor.LayoutStrides())

	require.Panics(t, func() { FromFlatDataAndDimensions([]int64{0, 1, 2}, 4, 2) })
}

func TestEqualAndInDelta(t *testing.T) {
	a := FromValue([]int32{0, 2, 3, 1})
	b := FromValue([]int32{0, 2, 3, 1})
	c := FromValue([]int32{0, 2, 3, 2})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(FromValue([]int64{0, 2, 3, 1})))

	x := FromValue([]float32{1.0, 2.0})
	y := FromValue([]float32{1.0, 2.001})
	require.True(t, x.InDelta(y, 0.01))
	require.False(t, x.InDelta(y, 1e-6))
}

func TestClone(t *testing.T) {
	a := FromValue([]int32{1, 2, 3, 4})
	b := a.Clone()
	require.True(t, a.Equal(b))
	MutableFlatData(b, func(flat []int32) { flat[0] = 100 })
	require.False(t, a.Equal(b))
	require.Equal(t, []int32{1, 2, 3, 4}, CopyFlatData[int32](a))
}

func TestGoStr(t *testing.T) {
	tensor := FromValue([][]int32{{0, 1}, {2, 3}})
	require.Equal(t, "(Int32)[2 2]: [][]int32{{0, 1}, {2, 3}}", tensor.GoStr())
	scalar := FromScalar(int64(3))
	require.Equal(t, "int64(3)", scalar.GoStr())
}

func TestFinalize(t *testing.T) {
	tensor := FromValue([]int32{1, 2})
	tensor.FinalizeAll()
	require.False(t, tensor.Ok())
	require.Error(t, tensor.CheckValid())
	require.Panics(t, func() { tensor.AssertValid() })
}
