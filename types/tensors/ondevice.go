package tensors

import (
	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// defaultDeviceNums is used whenever deviceNum is not provided.
var defaultDeviceNums = []backends.DeviceNum{0}

// FromBuffer creates a Tensor from a backend's buffer, transferring its contents to local storage.
// The buffer is still owned by the caller, and not finalized.
//
// It panics on errors reading the buffer.
func FromBuffer(backend backends.Backend, buffer backends.Buffer) (t *Tensor) {
	shape, err := backend.BufferShape(buffer)
	if err != nil {
		panic(errors.WithMessagef(err, "tensors.FromBuffer: cannot read buffer shape from backend %q", backend.Name()))
	}
	t = FromShape(shape)
	t.MutableFlatData(func(flat any) {
		err = backend.BufferToFlatData(buffer, flat)
	})
	if err != nil {
		panic(errors.WithMessagef(err, "tensors.FromBuffer: cannot transfer buffer from backend %q", backend.Name()))
	}
	return
}

// Buffer creates a backend buffer with a copy of the tensor contents, and returns it.
// The returned buffer is owned by the caller: remember to finalize it, or donate it to an execution.
//
// The deviceNum is optional, but only one can be given. The default value is 0.
//
// It panics on errors transferring to the backend.
func (t *Tensor) Buffer(backend backends.Backend, deviceNum ...backends.DeviceNum) backends.Buffer {
	t.AssertValid()
	if len(deviceNum) > 1 {
		exceptions.Panicf("Tensor.Buffer takes at most one deviceNum, %v given", deviceNum)
	}
	if len(deviceNum) == 0 {
		deviceNum = defaultDeviceNums
	}
	var buffer backends.Buffer
	var err error
	t.ConstFlatData(func(flat any) {
		buffer, err = backend.BufferFromFlatData(deviceNum[0], flat, t.shape)
	})
	if err != nil {
		panic(errors.WithMessagef(err, "Tensor(shape=%s).Buffer: cannot transfer to backend %q", t.shape, backend.Name()))
	}
	return buffer
}
