package dataformats

import (
	"fmt"

	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// VecPermute reorders per-axis values laid out in a source format into a
// destination format's axis order. Inputs are either a vector of length NumAxes
// (one value per axis) or a [NumAxes, 2] matrix (one pair per axis, e.g. a start
// and an end); the first axis is permuted, pairs move as units.
//
// Create it with NewVecPermute and emit the permutation with Compile. A kernel is
// immutable and can compile into any number of graphs. WithPlacement configures
// where the hosting compiler should schedule the fragment.
type VecPermute struct {
	dtype     dtypes.DType
	src, dst  Format
	placement Placement
	table     *tensors.Tensor
}

// NewVecPermute creates a VecPermute kernel reordering per-axis values from the
// src layout to the dst layout, for inputs of the given element dtype.
//
// dtype must be Int32 or Int64 (ErrUnsupportedDType otherwise), and both formats
// must be recognized axis layouts and permutations of each other (ErrInvalidFormat
// otherwise).
func NewVecPermute(dtype dtypes.DType, src, dst Format) (*VecPermute, error) {
	if err := checkKernelDType(dtype); err != nil {
		return nil, err
	}
	if err := src.checkRecognized(); err != nil {
		return nil, err
	}
	if err := dst.checkRecognized(); err != nil {
		return nil, err
	}
	perm, err := PermutationBetween(src, dst)
	if err != nil {
		return nil, err
	}
	return &VecPermute{
		dtype: dtype,
		src:   src,
		dst:   dst,
		table: perm.Inverse().Tensor(),
	}, nil
}

// WithPlacement sets the execution placement label of the fragments the kernel
// emits. The label tells the hosting compiler where to schedule them; it never
// changes output values. The default is PlacementDefault.
//
// It returns the VecPermute object, so configuration calls can be cascaded.
func (v *VecPermute) WithPlacement(placement Placement) *VecPermute {
	v.placement = placement
	return v
}

// Placement returns the configured execution placement label.
func (v *VecPermute) Placement() Placement {
	return v.placement
}

// Compile emits the permutation of x's first-axis slices into x's graph and
// returns the node with the result, shaped like x: output slice j is input slice
// table[j], where table maps destination positions to source positions.
//
// x must be shaped [NumAxes] or [NumAxes, 2] and have the kernel's dtype,
// otherwise an error wrapping ErrInvalidShape is returned before any node is
// emitted.
//
// Nothing is executed: the returned node is computed when the enclosing graph is
// compiled and run.
func (v *VecPermute) Compile(x *graph.Node) (*graph.Node, error) {
	shape := x.Shape()
	if shape.DType != v.dtype {
		return nil, errors.Wrapf(ErrInvalidShape, "%s expects inputs of dtype %s, got %s", v, v.dtype, shape)
	}
	if shape.Rank() != 1 && shape.Rank() != 2 {
		return nil, errors.Wrapf(ErrInvalidShape, "%s input must be a vector or a matrix, got %s", v, shape)
	}
	if shape.Dim(0) != NumAxes {
		return nil, errors.Wrapf(ErrInvalidShape, "%s input's first axis must have dimension %d, got %s", v, NumAxes, shape)
	}
	if shape.Rank() == 2 && shape.Dim(1) != 2 {
		return nil, errors.Wrapf(ErrInvalidShape, "%s rank-2 input's second axis must have dimension 2, got %s", v, shape)
	}
	return graph.Gather(x, graph.ConstCachedTensor(x.Graph(), v.table), 0), nil
}

// String implements fmt.Stringer.
func (v *VecPermute) String() string {
	return fmt.Sprintf("VecPermute[%s](%s->%s)", v.dtype, v.src, v.dst)
}
