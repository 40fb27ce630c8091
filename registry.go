package dataformats

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/dataformats/graph"
	"github.com/gomlx/dataformats/types/xslices"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// Operation names of the built-in kernels, as hosting compilers know them.
const (
	OpDimMap     = "DataFormatDimMap"
	OpVecPermute = "DataFormatVecPermute"
)

// Kernel is a constructed lowering: Compile emits the graph fragment for one
// invocation of the operation on x and returns the node with the result.
// Both *DimMap and *VecPermute implement it.
type Kernel interface {
	Compile(x *graph.Node) (*graph.Node, error)
}

// Attrs carries the construction-time attributes of a kernel.
type Attrs struct {
	SrcFormat, DstFormat Format
}

// Factory creates a Kernel for the given element dtype and attributes.
type Factory func(dtype dtypes.DType, attrs Attrs) (Kernel, error)

type registryKey struct {
	op        string
	dtype     dtypes.DType
	placement Placement
}

func (k registryKey) String() string {
	return fmt.Sprintf("%s[%s]@%s", k.op, k.dtype, k.placement)
}

// Registry maps (operation name, element dtype, placement) to kernel factories.
//
// There is no ambient registration: create a Registry with NewRegistry, which
// pre-populates the built-in kernels, add any extra factories with Register, and
// hand it to whoever instantiates kernels. A Registry is not safe for concurrent
// mutation; once populated, concurrent lookups are fine.
type Registry struct {
	factories map[registryKey]Factory
}

// NewRegistry returns a Registry pre-populated with the built-in kernels:
// DataFormatDimMap for Int32 and Int64 at the default placement, and
// DataFormatVecPermute for Int32 and Int64 at both the default and the host
// placements.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[registryKey]Factory)}
	for _, dtype := range []dtypes.DType{dtypes.Int32, dtypes.Int64} {
		must.M(r.Register(OpDimMap, dtype, PlacementDefault, dimMapFactory))
		must.M(r.Register(OpVecPermute, dtype, PlacementDefault, vecPermuteFactory(PlacementDefault)))
		must.M(r.Register(OpVecPermute, dtype, PlacementHost, vecPermuteFactory(PlacementHost)))
	}
	return r
}

func dimMapFactory(dtype dtypes.DType, attrs Attrs) (Kernel, error) {
	return NewDimMap(dtype, attrs.SrcFormat, attrs.DstFormat)
}

func vecPermuteFactory(placement Placement) Factory {
	return func(dtype dtypes.DType, attrs Attrs) (Kernel, error) {
		v, err := NewVecPermute(dtype, attrs.SrcFormat, attrs.DstFormat)
		if err != nil {
			return nil, err
		}
		return v.WithPlacement(placement), nil
	}
}

// Register adds a factory for the given key. Registering the same key twice is an
// error.
func (r *Registry) Register(op string, dtype dtypes.DType, placement Placement, factory Factory) error {
	key := registryKey{op: op, dtype: dtype, placement: placement}
	if _, found := r.factories[key]; found {
		return errors.Errorf("a kernel factory is already registered for %s", key)
	}
	r.factories[key] = factory
	return nil
}

// Lookup returns the factory registered for the key, or an error wrapping
// ErrNotRegistered if there is none.
func (r *Registry) Lookup(op string, dtype dtypes.DType, placement Placement) (Factory, error) {
	key := registryKey{op: op, dtype: dtype, placement: placement}
	factory, found := r.factories[key]
	if !found {
		return nil, errors.Wrapf(ErrNotRegistered, "no kernel factory registered for %s", key)
	}
	return factory, nil
}

// NewKernel looks up the factory for the key and invokes it with the given
// attributes.
func (r *Registry) NewKernel(op string, dtype dtypes.DType, placement Placement, attrs Attrs) (Kernel, error) {
	factory, err := r.Lookup(op, dtype, placement)
	if err != nil {
		return nil, err
	}
	return factory(dtype, attrs)
}

// Registration identifies one registered kernel: a registry key without its
// factory.
type Registration struct {
	Op        string
	DType     dtypes.DType
	Placement Placement
}

// Registrations lists the registered kernels, sorted by operation name, dtype and
// placement.
func (r *Registry) Registrations() []Registration {
	registrations := xslices.Map(xslices.Keys(r.factories), func(key registryKey) Registration {
		return Registration{Op: key.op, DType: key.dtype, Placement: key.placement}
	})
	slices.SortFunc(registrations, func(a, b Registration) int {
		if c := strings.Compare(a.Op, b.Op); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DType, b.DType); c != 0 {
			return c
		}
		return cmp.Compare(a.Placement, b.Placement)
	})
	return registrations
}
