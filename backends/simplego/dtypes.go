package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/dataformats/types"
	"github.com/gomlx/dataformats/types/xslices"
)

// supportedDTypes by the SimpleGo backend.
// Notably missing are the complex and 8-bit float types.
var supportedDTypes = types.SetWith(
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.Float32, dtypes.Float64,
)

// checkDType returns an error if the given dtype is not implemented by the backend.
func checkDType(opName string, dtype dtypes.DType) error {
	if !supportedDTypes.Has(dtype) {
		return errors.Errorf("%s: data type (DType) %s is not supported by backend %q -- supported dtypes: %v",
			opName, dtype, BackendName, xslices.SortedKeys(supportedDTypes))
	}
	return nil
}

// SupportedTypesConstraints enumerates the Go types supported by SimpleGo.
type SupportedTypesConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | float16.Float16
}

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 is not included because it is a specialized type, not natively supported by Go.
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// PODIntegerConstraints are used for generics for the Golang pod (plain-old-data) types.
type PODIntegerConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// PODFloatConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 is not included because it is a specialized type, not natively supported by Go.
type PODFloatConstraints interface {
	float32 | float64
}
