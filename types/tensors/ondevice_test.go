package tensors

import (
	"fmt"
	"os"
	"testing"

	"github.com/gomlx/dataformats/backends"
	_ "github.com/gomlx/dataformats/backends/simplego" // Use the interpreter backend.
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

var backend backends.Backend

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	backend = backends.New()
	code := m.Run()
	backend.Finalize()
	os.Exit(code)
}

func TestBufferUploadDownload(t *testing.T) {
	tensor := FromValue([][]int32{{1, 2}, {3, 4}})
	buffer := tensor.Buffer(backend)
	downloaded := FromBuffer(backend, buffer)
	require.True(t, tensor.Equal(downloaded))
	require.NoError(t, backend.BufferFinalize(buffer))

	// At most one deviceNum can be given.
	require.Panics(t, func() { tensor.Buffer(backend, 0, 1) })
}

func testDeviceRoundTripImpl[T dtypes.NumberNotComplex](t *testing.T, backend backends.Backend) {
	// Create a trivial f(x)=x+x program directly with the backend Builder.
	dtype := dtypes.FromGenericsType[T]()
	dims := []int{3, 2}
	builder := backend.Builder(fmt.Sprintf("%s_%s", t.Name(), dtype))
	x, err := builder.Parameter("x", shapes.Make(dtype, dims...))
	require.NoError(t, err)
	x2, err := builder.Add(x, x)
	require.NoError(t, err)
	exec, err := builder.Compile(x2)
	require.NoError(t, err)

	// Create local Tensor input and upload it.
	values := []T{0, 1, 2, 3, 4, 11}
	var tensor *Tensor
	require.NotPanics(t, func() { tensor = FromFlatDataAndDimensions(values, dims...) })
	var buffer backends.Buffer
	require.NotPanics(t, func() { buffer = tensor.Buffer(backend) })

	// The buffer holds its own copy: the local tensor keeps its values.
	ConstFlatData(tensor, func(flat []T) {
		require.Equal(t, []T{0, 1, 2, 3, 4, 11}, flat)
	})

	outputs, err := exec.Execute([]backends.Buffer{buffer}, nil)
	require.NoError(t, err)

	// Without donation the input buffer survives the execution.
	_, err = backend.BufferShape(buffer)
	require.NoError(t, err)

	outputTensor := FromBuffer(backend, outputs[0])
	fmt.Printf("\tf(x) = x+x, f(%s) = %s\n", tensor.GoStr(), outputTensor.GoStr())
	require.True(t, outputTensor.Shape().Equal(shapes.Make(dtype, dims...)))
	require.Equal(t, []T{0, 2, 4, 6, 8, 22}, CopyFlatData[T](outputTensor))

	require.NoError(t, backend.BufferFinalize(outputs[0]))
	require.NoError(t, backend.BufferFinalize(buffer))
}

func TestDeviceRoundTrip(t *testing.T) {
	testDeviceRoundTripImpl[int8](t, backend)
	testDeviceRoundTripImpl[int16](t, backend)
	testDeviceRoundTripImpl[int32](t, backend)
	testDeviceRoundTripImpl[int64](t, backend)

	testDeviceRoundTripImpl[uint8](t, backend)
	testDeviceRoundTripImpl[uint16](t, backend)
	testDeviceRoundTripImpl[uint32](t, backend)
	testDeviceRoundTripImpl[uint64](t, backend)

	testDeviceRoundTripImpl[float32](t, backend)
	testDeviceRoundTripImpl[float64](t, backend)
}
