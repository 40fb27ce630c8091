package backends

// OpType is an enum of all operations that can be supported by a Backend.Builder.
//
// Notice: nothing precludes a specialized backend Builder to support other ops not included
// here. It requires some careful casting of interfaces by the caller and fallback to backends
// that don't support the specialized op.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	OpTypeAdd
	OpTypeConvertDType
	OpTypeGather
	OpTypeRem

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
