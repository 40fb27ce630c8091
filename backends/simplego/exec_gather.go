package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/dataformats/backends"
)

func init() {
	nodeExecutors[backends.OpTypeGather] = execGather
}

// execGather gathers slices of the operand along the axis, in the order given by the indices.
// Out-of-range indices are clamped to the axis borders.
func execGather(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	operand, indices := inputs[0], inputs[1]
	_ = inputsOwned // We don't reuse the inputs.
	axis := node.data.(*gatherNode).axis

	indicesFlat, err := gatherIndices(indices)
	if err != nil {
		return nil, err
	}

	output := backend.getBuffer(node.shape.DType, node.shape.Size())
	output.shape = node.shape
	switch node.shape.DType {
	case dtypes.Int8:
		execGatherGeneric[int8](operand, indicesFlat, axis, output)
	case dtypes.Int16:
		execGatherGeneric[int16](operand, indicesFlat, axis, output)
	case dtypes.Int32:
		execGatherGeneric[int32](operand, indicesFlat, axis, output)
	case dtypes.Int64:
		execGatherGeneric[int64](operand, indicesFlat, axis, output)
	case dtypes.Uint8:
		execGatherGeneric[uint8](operand, indicesFlat, axis, output)
	case dtypes.Uint16:
		execGatherGeneric[uint16](operand, indicesFlat, axis, output)
	case dtypes.Uint32:
		execGatherGeneric[uint32](operand, indicesFlat, axis, output)
	case dtypes.Uint64:
		execGatherGeneric[uint64](operand, indicesFlat, axis, output)
	case dtypes.Float32:
		execGatherGeneric[float32](operand, indicesFlat, axis, output)
	case dtypes.Float64:
		execGatherGeneric[float64](operand, indicesFlat, axis, output)
	case dtypes.Float16:
		execGatherGeneric[float16.Float16](operand, indicesFlat, axis, output)
	default:
		backend.putBuffer(output)
		return nil, errors.Errorf("unsupported data type %s for %s", node.shape.DType, node.opType)
	}
	return output, nil
}

// gatherIndices reads the indices buffer as a flat []int.
func gatherIndices(indices *Buffer) ([]int, error) {
	switch flat := indices.flat.(type) {
	case []int8:
		return indicesToInts(flat), nil
	case []int16:
		return indicesToInts(flat), nil
	case []int32:
		return indicesToInts(flat), nil
	case []int64:
		return indicesToInts(flat), nil
	case []uint8:
		return indicesToInts(flat), nil
	case []uint16:
		return indicesToInts(flat), nil
	case []uint32:
		return indicesToInts(flat), nil
	case []uint64:
		return indicesToInts(flat), nil
	}
	return nil, errors.Errorf("indices for Gather must have an integer data type, got %s", indices.shape.DType)
}

func indicesToInts[T PODIntegerConstraints](flat []T) []int {
	ints := make([]int, len(flat))
	for ii, value := range flat {
		ints[ii] = int(value)
	}
	return ints
}

// execGatherGeneric copies one contiguous block per index: the block is the product of the
// dimensions after the gather axis.
func execGatherGeneric[T SupportedTypesConstraints](operand *Buffer, indices []int, axis int, output *Buffer) {
	operandFlat := operand.flat.([]T)
	outputFlat := output.flat.([]T)
	dims := operand.shape.Dimensions
	axisDim := dims[axis]
	innerSize := 1
	for _, dim := range dims[axis+1:] {
		innerSize *= dim
	}
	outerSize := 1
	for _, dim := range dims[:axis] {
		outerSize *= dim
	}

	outputPos := 0
	for outerIdx := range outerSize {
		operandBase := outerIdx * axisDim * innerSize
		for _, idx := range indices {
			idx = min(max(idx, 0), axisDim-1)
			srcStart := operandBase + idx*innerSize
			copy(outputFlat[outputPos:outputPos+innerSize], operandFlat[srcStart:srcStart+innerSize])
			outputPos += innerSize
		}
	}
}
