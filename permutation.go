package dataformats

import (
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/pkg/errors"
)

// Permutation maps axis positions of a source Format to axis positions of a
// destination Format: table[i] = j means the axis at position i of the source sits
// at position j of the destination. It is a bijection on {0, ..., NumAxes-1}.
type Permutation [NumAxes]int32

// PermutationBetween derives the permutation from the src axis layout to the dst
// axis layout.
//
// Both formats must pass Format.Check and name the same symbol set, otherwise an
// error wrapping ErrInvalidFormat is returned.
func PermutationBetween(src, dst Format) (Permutation, error) {
	var table Permutation
	if err := src.Check(); err != nil {
		return table, err
	}
	if err := dst.Check(); err != nil {
		return table, err
	}
	for i := 0; i < NumAxes; i++ {
		j := dst.Index(src[i])
		if j < 0 {
			return table, errors.Wrapf(ErrInvalidFormat, "%q is not a permutation of %q", src, dst)
		}
		table[i] = int32(j)
	}
	return table, nil
}

// Inverse returns the permutation that undoes p: if p maps position i to position
// j, Inverse maps j back to i.
func (p Permutation) Inverse() (inv Permutation) {
	for i, j := range p {
		inv[j] = int32(i)
	}
	return
}

// IsIdentity reports whether p maps every axis position to itself.
func (p Permutation) IsIdentity() bool {
	for i, j := range p {
		if int32(i) != j {
			return false
		}
	}
	return true
}

// Tensor returns the permutation as a rank-1 Int32 tensor of length NumAxes, the
// form the kernels gather from.
func (p Permutation) Tensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(p[:], NumAxes)
}
