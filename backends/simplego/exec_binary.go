package simplego

// This file implements the element-wise binary operations.
// The case where one of the operands is a scalar is handled specially: it becomes almost a
// unary operation with a constant value.

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
)

func init() {
	nodeExecutors[backends.OpTypeAdd] = execAdd
	nodeExecutors[backends.OpTypeRem] = execRem
}

// binaryOperandsAndOutput is a convenience function to get the inputs and output -- which may be
// the reuse of one of the inputs, if owned and of the right shape.
func binaryOperandsAndOutput(backend *Backend, inputs []*Buffer, inputsOwned []bool, outputShape shapes.Shape) (
	lhs, rhs, output *Buffer) {
	lhs, rhs = inputs[0], inputs[1]
	if inputsOwned[1] && rhs.shape.Equal(outputShape) {
		output = rhs
		inputs[1] = nil
	} else if inputsOwned[0] && lhs.shape.Equal(outputShape) {
		output = lhs
		inputs[0] = nil
	} else {
		output = backend.getBuffer(outputShape.DType, outputShape.Size())
		output.shape = outputShape
	}
	return
}

func execAdd(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	lhs, rhs, output := binaryOperandsAndOutput(backend, inputs, inputsOwned, node.shape)
	switch node.shape.DType {
	case dtypes.Int8:
		execAddGeneric[int8](lhs, rhs, output)
	case dtypes.Int16:
		execAddGeneric[int16](lhs, rhs, output)
	case dtypes.Int32:
		execAddGeneric[int32](lhs, rhs, output)
	case dtypes.Int64:
		execAddGeneric[int64](lhs, rhs, output)
	case dtypes.Uint8:
		execAddGeneric[uint8](lhs, rhs, output)
	case dtypes.Uint16:
		execAddGeneric[uint16](lhs, rhs, output)
	case dtypes.Uint32:
		execAddGeneric[uint32](lhs, rhs, output)
	case dtypes.Uint64:
		execAddGeneric[uint64](lhs, rhs, output)
	case dtypes.Float32:
		execAddGeneric[float32](lhs, rhs, output)
	case dtypes.Float64:
		execAddGeneric[float64](lhs, rhs, output)
	case dtypes.Float16:
		execBinaryFloat16(func(a, b float32) float32 { return a + b }, lhs, rhs, output)
	default:
		return nil, errors.Errorf("unsupported data type %s for %s", node.shape.DType, node.opType)
	}
	return output, nil
}

func execAddGeneric[T PODNumericConstraints](lhsBuf, rhsBuf, outputBuf *Buffer) {
	lhs, rhs, output := lhsBuf.flat.([]T), rhsBuf.flat.([]T), outputBuf.flat.([]T)
	if len(rhs) == 1 {
		c := rhs[0]
		for ii, a := range lhs {
			output[ii] = a + c
		}
		return
	}
	if len(lhs) == 1 {
		c := lhs[0]
		for ii, b := range rhs {
			output[ii] = c + b
		}
		return
	}
	for ii, a := range lhs {
		output[ii] = a + rhs[ii]
	}
}

func execRem(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	lhs, rhs, output := binaryOperandsAndOutput(backend, inputs, inputsOwned, node.shape)
	switch node.shape.DType {
	case dtypes.Int8:
		execRemGeneric[int8](lhs, rhs, output)
	case dtypes.Int16:
		execRemGeneric[int16](lhs, rhs, output)
	case dtypes.Int32:
		execRemGeneric[int32](lhs, rhs, output)
	case dtypes.Int64:
		execRemGeneric[int64](lhs, rhs, output)
	case dtypes.Uint8:
		execRemGeneric[uint8](lhs, rhs, output)
	case dtypes.Uint16:
		execRemGeneric[uint16](lhs, rhs, output)
	case dtypes.Uint32:
		execRemGeneric[uint32](lhs, rhs, output)
	case dtypes.Uint64:
		execRemGeneric[uint64](lhs, rhs, output)
	case dtypes.Float32:
		execRemFloatGeneric[float32](lhs, rhs, output)
	case dtypes.Float64:
		execRemFloatGeneric[float64](lhs, rhs, output)
	case dtypes.Float16:
		execBinaryFloat16(func(a, b float32) float32 {
			return float32(math.Mod(float64(a), float64(b)))
		}, lhs, rhs, output)
	default:
		return nil, errors.Errorf("unsupported data type %s for %s", node.shape.DType, node.opType)
	}
	return output, nil
}

// execRemGeneric implements the integer remainder, with the same semantics as Go's % operator:
// the result takes the sign of the dividend.
func execRemGeneric[T PODIntegerConstraints](lhsBuf, rhsBuf, outputBuf *Buffer) {
	lhs, rhs, output := lhsBuf.flat.([]T), rhsBuf.flat.([]T), outputBuf.flat.([]T)
	if len(rhs) == 1 {
		c := rhs[0]
		for ii, a := range lhs {
			output[ii] = a % c
		}
		return
	}
	if len(lhs) == 1 {
		c := lhs[0]
		for ii, b := range rhs {
			output[ii] = c % b
		}
		return
	}
	for ii, a := range lhs {
		output[ii] = a % rhs[ii]
	}
}

func execRemFloatGeneric[T PODFloatConstraints](lhsBuf, rhsBuf, outputBuf *Buffer) {
	lhs, rhs, output := lhsBuf.flat.([]T), rhsBuf.flat.([]T), outputBuf.flat.([]T)
	if len(rhs) == 1 {
		c := float64(rhs[0])
		for ii, a := range lhs {
			output[ii] = T(math.Mod(float64(a), c))
		}
		return
	}
	if len(lhs) == 1 {
		c := float64(lhs[0])
		for ii, b := range rhs {
			output[ii] = T(math.Mod(c, float64(b)))
		}
		return
	}
	for ii, a := range lhs {
		output[ii] = T(math.Mod(float64(a), float64(rhs[ii])))
	}
}

// execBinaryFloat16 executes the operation converting each element to float32 and back.
func execBinaryFloat16(opFn func(a, b float32) float32, lhsBuf, rhsBuf, outputBuf *Buffer) {
	lhs := lhsBuf.flat.([]float16.Float16)
	rhs := rhsBuf.flat.([]float16.Float16)
	output := outputBuf.flat.([]float16.Float16)
	if len(rhs) == 1 {
		c := rhs[0].Float32()
		for ii, a := range lhs {
			output[ii] = float16.Fromfloat32(opFn(a.Float32(), c))
		}
		return
	}
	if len(lhs) == 1 {
		c := lhs[0].Float32()
		for ii, b := range rhs {
			output[ii] = float16.Fromfloat32(opFn(c, b.Float32()))
		}
		return
	}
	for ii, a := range lhs {
		output[ii] = float16.Fromfloat32(opFn(a.Float32(), rhs[ii].Float32()))
	}
}
