package simplego

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/dataformats/types/shapes"
)

func TestBuffersPool(t *testing.T) {
	goBackend := backend.(*Backend)
	buf := goBackend.getBuffer(dtypes.Int32, 3)
	buf.shape = shapes.Make(dtypes.Int32, 3)
	require.Len(t, buf.flat.([]int32), 3)
	require.True(t, buf.valid)

	// A returned buffer is recycled by the next request of the same dtype and size.
	goBackend.putBuffer(buf)
	require.False(t, buf.valid)
	recycled := goBackend.getBuffer(dtypes.Int32, 3)
	require.True(t, buf == recycled)
	require.True(t, recycled.valid)
	goBackend.putBuffer(recycled)
}

func TestBuffersDataInterface(t *testing.T) {
	shape := shapes.Make(dtypes.Float64, 2, 2)
	buffer, err := backend.BufferFromFlatData(0, []float64{1, 2, 3, 4}, shape)
	require.NoError(t, err)

	gotShape, err := backend.BufferShape(buffer)
	require.NoError(t, err)
	require.True(t, shape.Equal(gotShape))

	flat := make([]float64, 4)
	require.NoError(t, backend.BufferToFlatData(buffer, flat))
	require.Equal(t, []float64{1, 2, 3, 4}, flat)

	// The buffer holds its own copy of the data.
	flat[0] = 100
	flat2 := make([]float64, 4)
	require.NoError(t, backend.BufferToFlatData(buffer, flat2))
	require.Equal(t, []float64{1, 2, 3, 4}, flat2)

	require.NoError(t, backend.BufferFinalize(buffer))
	err = backend.BufferFinalize(buffer)
	require.ErrorContains(t, err, "already finalized")
	err = backend.BufferToFlatData(buffer, flat)
	require.ErrorContains(t, err, "finalized")
}

func TestBuffersFromFlatDataErrors(t *testing.T) {
	shape := shapes.Make(dtypes.Int32, 3)
	_, err := backend.BufferFromFlatData(1, []int32{1, 2, 3}, shape)
	require.ErrorContains(t, err, "only supports deviceNum 0")

	_, err = backend.BufferFromFlatData(0, []int64{1, 2, 3}, shape)
	require.ErrorContains(t, err, "does not match shape DType")

	_, err = backend.BufferFromFlatData(0, []int32{1, 2}, shape)
	require.ErrorContains(t, err, "requires 3")
}
