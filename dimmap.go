package dataformats

import (
	"fmt"

	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// DimMap remaps a tensor of axis indices from a source format to a destination
// format: each element, an axis position in the source format, becomes the
// position of the same axis in the destination format.
//
// Create it with NewDimMap (or NewDimMapForSymbols) and emit the remapping with
// Compile. A kernel is immutable and can compile into any number of graphs.
type DimMap struct {
	dtype    dtypes.DType
	src, dst Format
	table    *tensors.Tensor
}

// checkKernelDType validates the element dtype the kernels operate on.
func checkKernelDType(dtype dtypes.DType) error {
	if dtype != dtypes.Int32 && dtype != dtypes.Int64 {
		return errors.Wrapf(ErrUnsupportedDType, "kernels take Int32 or Int64 elements, got %s", dtype)
	}
	return nil
}

// NewDimMap creates a DimMap kernel remapping axis indices from the src layout to
// the dst layout, for inputs of the given element dtype.
//
// dtype must be Int32 or Int64 (ErrUnsupportedDType otherwise). Both formats must
// be recognized axis layouts and permutations of each other (ErrInvalidFormat
// otherwise). NewDimMapForSymbols skips the recognized-layout requirement.
func NewDimMap(dtype dtypes.DType, src, dst Format) (*DimMap, error) {
	if err := checkKernelDType(dtype); err != nil {
		return nil, err
	}
	if err := src.checkRecognized(); err != nil {
		return nil, err
	}
	if err := dst.checkRecognized(); err != nil {
		return nil, err
	}
	return NewDimMapForSymbols(dtype, src, dst)
}

// NewDimMapForSymbols is like NewDimMap, but takes the formats as opaque symbol
// sets: any NumAxes distinct symbols are accepted, recognized layout or not.
func NewDimMapForSymbols(dtype dtypes.DType, src, dst Format) (*DimMap, error) {
	if err := checkKernelDType(dtype); err != nil {
		return nil, err
	}
	perm, err := PermutationBetween(src, dst)
	if err != nil {
		return nil, err
	}
	return &DimMap{
		dtype: dtype,
		src:   src,
		dst:   dst,
		table: perm.Tensor(),
	}, nil
}

// Compile emits the remapping of the axis indices in x into x's graph and returns
// the node with the result, shaped like x.
//
// x can have any shape, scalars included, but its dtype must be the kernel's dtype,
// otherwise an error wrapping ErrInvalidShape is returned before any node is
// emitted. Elements are first wrapped into [0, NumAxes), so negative axis indices
// (-1 for the last axis and so on) remap correctly; no value of x causes an error.
//
// Nothing is executed: the returned node is computed when the enclosing graph is
// compiled and run.
func (m *DimMap) Compile(x *graph.Node) (*graph.Node, error) {
	if x.DType() != m.dtype {
		return nil, errors.Wrapf(ErrInvalidShape, "%s expects inputs of dtype %s, got %s", m, m.dtype, x.Shape())
	}
	g := x.Graph()
	table := graph.ConstCachedTensor(g, m.table)
	numAxes := graph.Scalar(g, dtypes.Int32, NumAxes)
	indices := graph.Mod(graph.Add(graph.ConvertDType(x, dtypes.Int32), numAxes), numAxes)
	return graph.ConvertDType(graph.Gather(table, indices, 0), m.dtype), nil
}

// String implements fmt.Stringer.
func (m *DimMap) String() string {
	return fmt.Sprintf("DimMap[%s](%s->%s)", m.dtype, m.src, m.dst)
}
