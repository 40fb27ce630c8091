package backends

import "github.com/gomlx/dataformats/types/shapes"

// Buffer represents actual data (a tensor) stored in the device that is going to execute the
// computation. It's used as input/output of computation execution.
// A Buffer is always associated to a DeviceNum, even if there is only one.
//
// It is opaque from the caller's perspective: it is passed back as input to the backend methods.
type Buffer any

// DataInterface is the Backend's subinterface that defines the API to transfer Buffer to/from the
// backend device.
type DataInterface interface {
	// BufferFinalize allows the client to inform backend that buffer is no longer needed and
	// associated resources can be freed immediately -- as opposed to waiting for a GC.
	//
	// A finalized buffer should never be used again. Preferably, the caller should set its
	// references to it to nil.
	BufferFinalize(buffer Buffer) error

	// BufferShape returns the shape for the buffer.
	BufferShape(buffer Buffer) (shapes.Shape, error)

	// BufferToFlatData transfers the flat values of buffer to the Go flat array.
	// The slice flat must have the exact number of elements required to store the Buffer shape.
	//
	// See also BufferFromFlatData, BufferShape, and shapes.Shape.Size.
	BufferToFlatData(buffer Buffer, flat any) error

	// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding
	// to the shape DType) to the deviceNum, and returns the corresponding Buffer.
	BufferFromFlatData(deviceNum DeviceNum, flat any, shape shapes.Shape) (Buffer, error)
}
