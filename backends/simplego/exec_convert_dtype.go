package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/dataformats/backends"
)

func init() {
	nodeExecutors[backends.OpTypeConvertDType] = execConvertDType
}

// execConvertDType converts the operand to the node's dtype.
// The output buffer is always freshly taken from the pool, even for same-dtype conversions.
func execConvertDType(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	operand := inputs[0]
	_ = inputsOwned // We don't reuse the inputs.
	output := backend.getBuffer(node.shape.DType, operand.shape.Size())
	output.shape = node.shape

	var err error
	switch operand.shape.DType {
	case dtypes.Int8:
		err = convertFrom[int8](operand, output)
	case dtypes.Int16:
		err = convertFrom[int16](operand, output)
	case dtypes.Int32:
		err = convertFrom[int32](operand, output)
	case dtypes.Int64:
		err = convertFrom[int64](operand, output)
	case dtypes.Uint8:
		err = convertFrom[uint8](operand, output)
	case dtypes.Uint16:
		err = convertFrom[uint16](operand, output)
	case dtypes.Uint32:
		err = convertFrom[uint32](operand, output)
	case dtypes.Uint64:
		err = convertFrom[uint64](operand, output)
	case dtypes.Float32:
		err = convertFrom[float32](operand, output)
	case dtypes.Float64:
		err = convertFrom[float64](operand, output)
	case dtypes.Float16:
		err = convertFromFloat16(operand, output)
	default:
		err = errors.Errorf("unsupported conversion from data type %s", operand.shape.DType)
	}
	if err != nil {
		backend.putBuffer(output)
		return nil, err
	}
	return output, nil
}

// convertFrom dispatches the conversion on the output dtype, the input dtype already resolved
// to the Go type FromT.
func convertFrom[FromT PODNumericConstraints](operand, output *Buffer) error {
	switch output.shape.DType {
	case dtypes.Int8:
		execConvertDTypeGeneric[FromT, int8](operand, output)
	case dtypes.Int16:
		execConvertDTypeGeneric[FromT, int16](operand, output)
	case dtypes.Int32:
		execConvertDTypeGeneric[FromT, int32](operand, output)
	case dtypes.Int64:
		execConvertDTypeGeneric[FromT, int64](operand, output)
	case dtypes.Uint8:
		execConvertDTypeGeneric[FromT, uint8](operand, output)
	case dtypes.Uint16:
		execConvertDTypeGeneric[FromT, uint16](operand, output)
	case dtypes.Uint32:
		execConvertDTypeGeneric[FromT, uint32](operand, output)
	case dtypes.Uint64:
		execConvertDTypeGeneric[FromT, uint64](operand, output)
	case dtypes.Float32:
		execConvertDTypeGeneric[FromT, float32](operand, output)
	case dtypes.Float64:
		execConvertDTypeGeneric[FromT, float64](operand, output)
	case dtypes.Float16:
		execConvertDTypeToFloat16[FromT](operand, output)
	default:
		return errors.Errorf("unsupported conversion from data type %s to %s",
			operand.shape.DType, output.shape.DType)
	}
	return nil
}

func convertFromFloat16(operand, output *Buffer) error {
	switch output.shape.DType {
	case dtypes.Int8:
		execConvertDTypeFromFloat16[int8](operand, output)
	case dtypes.Int16:
		execConvertDTypeFromFloat16[int16](operand, output)
	case dtypes.Int32:
		execConvertDTypeFromFloat16[int32](operand, output)
	case dtypes.Int64:
		execConvertDTypeFromFloat16[int64](operand, output)
	case dtypes.Uint8:
		execConvertDTypeFromFloat16[uint8](operand, output)
	case dtypes.Uint16:
		execConvertDTypeFromFloat16[uint16](operand, output)
	case dtypes.Uint32:
		execConvertDTypeFromFloat16[uint32](operand, output)
	case dtypes.Uint64:
		execConvertDTypeFromFloat16[uint64](operand, output)
	case dtypes.Float32:
		execConvertDTypeFromFloat16[float32](operand, output)
	case dtypes.Float64:
		execConvertDTypeFromFloat16[float64](operand, output)
	case dtypes.Float16:
		copy(output.flat.([]float16.Float16), operand.flat.([]float16.Float16))
	default:
		return errors.Errorf("unsupported conversion from data type %s to %s",
			operand.shape.DType, output.shape.DType)
	}
	return nil
}

func execConvertDTypeGeneric[FromT PODNumericConstraints, ToT PODNumericConstraints](operand, output *Buffer) {
	operandFlat := operand.flat.([]FromT)
	outputFlat := output.flat.([]ToT)
	for idx, value := range operandFlat {
		outputFlat[idx] = ToT(value)
	}
}

func execConvertDTypeFromFloat16[ToT PODNumericConstraints](operand, output *Buffer) {
	operandFlat := operand.flat.([]float16.Float16)
	outputFlat := output.flat.([]ToT)
	for idx, value := range operandFlat {
		outputFlat[idx] = ToT(value.Float32())
	}
}

func execConvertDTypeToFloat16[FromT PODNumericConstraints](operand, output *Buffer) {
	operandFlat := operand.flat.([]FromT)
	outputFlat := output.flat.([]float16.Float16)
	for idx, value := range operandFlat {
		outputFlat[idx] = float16.Fromfloat32(float32(value))
	}
}
