package backends

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// StandardOps lists the operations that a backends.Builder must support.
type StandardOps interface {

	// Add returns the element-wise sum of the two values.
	// Standard broadcasting rules apply: one of the sides may be a scalar.
	Add(lhs, rhs Op) (Op, error)

	// ConvertDType of x to dtype.
	ConvertDType(x Op, dtype dtypes.DType) (Op, error)

	// Gather slices from the operand along the given axis, at the positions given by indices.
	//
	// The indices must be of an integer dtype. The output shape replaces the operand's axis with
	// the indices' dimensions: operand.dims[:axis] + indices.dims + operand.dims[axis+1:].
	//
	// Out-of-bound (and negative) indices <i> are adjusted with max(min(<i>, axisDimension-1), 0),
	// meaning they are taken from the border of the axis.
	Gather(operand, indices Op, axis int) (Op, error)

	// Rem returns the remainder operation, also known as modulo (or Mod for short).
	// Standard broadcasting rules apply: one of the sides may be a scalar.
	Rem(lhs, rhs Op) (Op, error)
}
