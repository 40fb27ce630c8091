package graph

import (
	"fmt"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// mustNoError converts an error to a panic.
func mustNoError[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// newNode wraps the result of a backend op into a Node, registers it with the Graph and
// returns it.
func newNode(g *Graph, result backends.Op, inputNodes []*Node, inputs NodeInputs) (node *Node) {
	node = &Node{
		graph:      g,
		op:         result,
		shape:      mustNoError(g.builder.OpShape(result)),
		inputNodes: inputNodes,
		inputs:     inputs,
	}
	g.registerNode(node)
	return
}

// nodeInputsParameter holds the inputs used for the call to backends.Parameter.
type nodeInputsParameter struct {
	name   string
	shape  shapes.Shape
	handle ParameterHandle
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsParameter) Type() NodeType {
	return NodeTypeParameter
}

// String implements the interface NodeInputs.
func (ni *nodeInputsParameter) String() string {
	return fmt.Sprintf("%s(name=%q, shape=%s)", ni.Type(), ni.name, ni.shape)
}

// Parameter registers an input parameter for a computation Graph (e.g: a feature used as input).
//
// When created they get a handle (a plain index, in order of creation), which is also the
// order in which their values must be fed when executing the compiled Graph.
// If name is empty, a unique name is automatically given to the parameter.
func Parameter(g *Graph, name string, shape shapes.Shape) (node *Node) {
	g.AssertBuilding()
	handle := ParameterHandle(len(g.parameters))
	if name == "" {
		name = fmt.Sprintf("parameter_#%d", handle)
	}
	if _, ok := g.parameterNameToHandle[name]; ok {
		exceptions.Panicf("requested parameter with name %q for graph %q already exists", name, g.name)
	}
	nodeInputs := &nodeInputsParameter{
		name:   name,
		shape:  shape,
		handle: handle,
	}
	result, err := g.builder.Parameter(nodeInputs.name, nodeInputs.shape)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to create parameter %q", name))
	}
	node = newNode(g, result, nil, nodeInputs)
	g.parameters = append(g.parameters, node)
	g.parameterNameToHandle[name] = handle
	return
}

// MinConstValueSizeToKeep defines a size below which constant values (see Const, ConstTensor) are kept in the Node/Graph
// for printing/debugging purposes
//
// If set to 0, no value is kept.
var MinConstValueSizeToKeep = 32

// nodeInputsConstant holds the inputs used for the call to backends.Constant.
type nodeInputsConstant struct {
	shape  shapes.Shape
	tensor *tensors.Tensor // Only saved for values < MinConstValueSizeToKeep
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsConstant) Type() NodeType {
	return NodeTypeConstant
}

// String implements the interface NodeInputs.
func (ni *nodeInputsConstant) String() string {
	if ni.tensor == nil {
		return fmt.Sprintf("%s(%s)", ni.Type(), ni.shape)
	} else {
		return fmt.Sprintf("%s(%s: %v)", ni.Type(), ni.shape, ni.tensor.Value())
	}
}

// ConstTensor returns a newly created constant node for the tensor t.
//
// The value of t is copied into the graph. It's recommended that for very large tensors,
// even if constants, that they are passed as side inputs instead.
//
// See also ConstCachedTensor if you think you'll use the same tensor multiple times in the
// same graph.
func ConstTensor(g *Graph, t *tensors.Tensor) (node *Node) {
	g.AssertBuilding()
	nodeInputs := &nodeInputsConstant{
		shape: t.Shape(),
	}
	if t.Size() < MinConstValueSizeToKeep {
		nodeInputs.tensor = t.Clone()
	}
	var result backends.Op
	var err error
	t.ConstFlatData(func(flat any) {
		result, err = g.builder.Constant(flat, nodeInputs.shape.Dimensions...)
	})
	if err != nil {
		panic(errors.WithMessagef(err, "ConstTensor failed to create a constant in the backend"))
	}
	node = newNode(g, result, nil, nodeInputs)
	return
}

// ConstCachedTensor returns a constant node for the tensor t.
// If it's the first time the tensor is used in this graph, a new node is created.
// Otherwise, a previously created node is reused.
//
// The caching of the tensor has the side effect of keeping the tensor alive (and its memory
// resources) until the Graph itself is garbage collected. If this is a concern, use
// ConstTensor instead.
func ConstCachedTensor(g *Graph, t *tensors.Tensor) *Node {
	g.AssertBuilding()
	node, found := g.tensorConstants[t]
	if found {
		return node
	}
	node = ConstTensor(g, t)
	g.tensorConstants[t] = node
	return node
}

// Const creates constant nodes in the Graph. It can take a tensor as well as
// multidimensional slices (or scalars).
//
// It uses tensors.FromAnyValue to figure out the shape given a Go scalar/slice/array.
// If the value is unsupported, it panics.
//
// If you are creating very large constants that don't need to be materialized locally,
// consider instead passing them as a side parameter.
func Const(g *Graph, x any) *Node {
	if _, ok := x.(*Node); ok {
		exceptions.Panicf(
			"Const(g, x) can only take actual values, not another computation graph `*Node` -- " +
				"for that you don't need Const(), just use it directly.")
	}
	tensor := tensors.FromAnyValue(x)
	return ConstTensor(g, tensor)
}

// ConstAsDType creates a constant of the given DType. It adds the convenience
// of converting x (slice or scalar) to the appropriate type.
// E.g.:
//
//	Four := ConstAsDType(g, myDType, 4)
//	RowOfFours := ConstAsDType(g, myDType, []float64{4, 4, 4, 4})
func ConstAsDType(g *Graph, dtype dtypes.DType, x any) *Node {
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("invalid DType given for ConstAsDType")
	}
	return Const(g, shapes.CastAsDType(x, dtype))
}

// ConstAs creates a constant (slice or scalar) of the same DType and on the same Graph as
// the given base.
func ConstAs(base *Node, x any) *Node {
	return ConstAsDType(base.Graph(), base.DType(), x)
}

// Scalar returns a constant scalar with the given value.
//
// The value is first converted to float64 to serve as index to a cache of constants, and
// only later converted to the requested dtype. This may lose bits of precision to very
// large integers. If you are worried about any of these conversions, use Const instead.
func Scalar[N dtypes.NumberNotComplex](g *Graph, dtype dtypes.DType, value N) *Node {
	return g.getScalarConst(dtype, float64(value))
}

// ScalarZero returns a scalar constant 0 for the given DType.
func ScalarZero(g *Graph, dtype dtypes.DType) *Node {
	return Scalar(g, dtype, 0)
}

// ScalarOne returns a scalar constant 1 for the given DType.
func ScalarOne(g *Graph, dtype dtypes.DType) *Node {
	return Scalar(g, dtype, 1)
}

// validateBuildingGraphFromInputs checks that all inputs are of the same Graph and that
// the Graph is valid for building.
// It panics with a corresponding error message in case of issues.
// Otherwise, it returns the Graph common to all inputs.
func validateBuildingGraphFromInputs(inputs ...*Node) (g *Graph) {
	if len(inputs) == 0 {
		exceptions.Panicf("no input nodes provided, at least one is required")
	}

	// Checks that all inputs are of the same graph.
	for ii, n := range inputs {
		if err := exceptions.TryCatch[error](n.AssertValid); err != nil {
			panic(errors.WithMessagef(err, "invalid input[%d]", ii))
		}
		if g == nil {
			g = n.Graph()
			g.AssertBuilding()
		} else {
			if n.Graph() != g {
				exceptions.Panicf("combining nodes from different graphs not allowed: "+
					"input[0] graph is %q, input[%d] graph is %q", g.Name(), ii, n.Graph().Name())
			}
		}
	}
	return
}

// nodeInputsConvertDType holds the inputs used for the call to backends.ConvertDType.
type nodeInputsConvertDType struct {
	x     *Node
	dtype dtypes.DType
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsConvertDType) Type() NodeType {
	return NodeTypeConvertDType
}

// String implements the interface NodeInputs.
func (ni *nodeInputsConvertDType) String() string {
	return fmt.Sprintf("%s(x=[#%d], dtype=%s)", ni.Type(), ni.x.Id(), ni.dtype)
}

// ConvertDType converts x to the given dtype.
//
// If x is already of the given dtype, this is a no-op: x itself is returned.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	if x.DType() == dtype {
		return x
	}
	g := validateBuildingGraphFromInputs(x)
	result, err := g.builder.ConvertDType(x.op, dtype)
	if err != nil {
		panic(errors.WithMessagef(err, "ConvertDType operation failed"))
	}
	return newNode(g, result, []*Node{x}, &nodeInputsConvertDType{x: x, dtype: dtype})
}

// nodeInputsAdd holds the inputs used for the call to backends.Add.
type nodeInputsAdd struct {
	x *Node
	y *Node
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsAdd) Type() NodeType {
	return NodeTypeAdd
}

// String implements the interface NodeInputs.
func (ni *nodeInputsAdd) String() string {
	return fmt.Sprintf("%s(x=[#%d], y=[#%d])", ni.Type(), ni.x.Id(), ni.y.Id())
}

// Add returns the element-wise sum of x and y.
//
// Standard broadcasting rules apply: one of the sides may be a scalar, in which case it is
// broadcast to the shape of the other.
func Add(x, y *Node) *Node {
	g := validateBuildingGraphFromInputs(x, y)
	result, err := g.builder.Add(x.op, y.op)
	if err != nil {
		panic(errors.WithMessagef(err, "Add operation failed"))
	}
	return newNode(g, result, []*Node{x, y}, &nodeInputsAdd{x: x, y: y})
}

// nodeInputsRem holds the inputs used for the call to backends.Rem.
type nodeInputsRem struct {
	x *Node
	y *Node
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsRem) Type() NodeType {
	return NodeTypeRem
}

// String implements the interface NodeInputs.
func (ni *nodeInputsRem) String() string {
	return fmt.Sprintf("%s(x=[#%d], y=[#%d])", ni.Type(), ni.x.Id(), ni.y.Id())
}

// Rem returns the remainder of the division of x by y, element-wise.
//
// Standard broadcasting rules apply: one of the sides may be a scalar.
//
// See also Mod, an alias to Rem.
func Rem(x, y *Node) *Node {
	g := validateBuildingGraphFromInputs(x, y)
	result, err := g.builder.Rem(x.op, y.op)
	if err != nil {
		panic(errors.WithMessagef(err, "Rem operation failed"))
	}
	return newNode(g, result, []*Node{x, y}, &nodeInputsRem{x: x, y: y})
}

// Mod adds to the graph the module (remainder) operation on the two input nodes x and y.
// It's an alias to Rem.
// Standard broadcasting rules apply (see documentation).
func Mod(x, y *Node) *Node {
	return Rem(x, y)
}

// nodeInputsGather holds the inputs used for the call to backends.Gather.
type nodeInputsGather struct {
	operand *Node
	indices *Node
	axis    int
}

// Type implements the interface NodeInputs.
func (ni *nodeInputsGather) Type() NodeType {
	return NodeTypeGather
}

// String implements the interface NodeInputs.
func (ni *nodeInputsGather) String() string {
	return fmt.Sprintf("%s(operand=[#%d], indices=[#%d], axis=%d)",
		ni.Type(), ni.operand.Id(), ni.indices.Id(), ni.axis)
}

// Gather slices from the operand along the given axis, at the positions given by indices.
//
// The indices must be of an integer dtype. The output shape replaces the operand's axis
// with the indices' dimensions:
//
//	operand.dims[:axis] + indices.dims + operand.dims[axis+1:]
//
// Out-of-bound (and negative) indices are clamped to the borders of the axis.
func Gather(operand, indices *Node, axis int) *Node {
	g := validateBuildingGraphFromInputs(operand, indices)
	result, err := g.builder.Gather(operand.op, indices.op, axis)
	if err != nil {
		panic(errors.WithMessagef(err, "Gather operation failed"))
	}
	return newNode(g, result, []*Node{operand, indices},
		&nodeInputsGather{operand: operand, indices: indices, axis: axis})
}
