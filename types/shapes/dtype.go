package shapes

import (
	"reflect"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

var float64Type = reflect.TypeOf(float64(0))

// CastAsDType casts a numeric value to the Go type corresponding to the given DType.
// If value is a (multidimensional) slice, it converts every element to a newly allocated
// slice of the given DType.
//
// It panics if the value cannot be converted.
func CastAsDType(value any, dtype DType) any {
	typeOf := reflect.TypeOf(value)
	valueOf := reflect.ValueOf(value)
	if typeOf.Kind() != reflect.Slice && typeOf.Kind() != reflect.Array {
		return castScalarAsDType(valueOf, dtype)
	}
	newTypeOf := typeForSliceDType(typeOf, dtype)
	newValueOf := reflect.MakeSlice(newTypeOf, valueOf.Len(), valueOf.Len())
	for ii := 0; ii < valueOf.Len(); ii++ {
		elem := CastAsDType(valueOf.Index(ii).Interface(), dtype)
		newValueOf.Index(ii).Set(reflect.ValueOf(elem))
	}
	return newValueOf.Interface()
}

// castScalarAsDType converts one scalar element.
// Bool and Float16 have no direct numeric conversion in the reflect package, so they get
// their own arms.
func castScalarAsDType(valueOf reflect.Value, dtype DType) any {
	switch dtype {
	case Bool:
		return !valueOf.IsZero()
	case Float16:
		return float16.Fromfloat32(float32(valueOf.Convert(float64Type).Float()))
	default:
		return valueOf.Convert(dtype.GoType()).Interface()
	}
}

func typeForSliceDType(valueType reflect.Type, dtype DType) reflect.Type {
	if valueType.Kind() != reflect.Slice && valueType.Kind() != reflect.Array {
		return dtype.GoType()
	}
	subType := typeForSliceDType(valueType.Elem(), dtype)
	return reflect.SliceOf(subType)
}
