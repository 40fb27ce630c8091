package simplego

import (
	"reflect"
	"slices"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Builder keeps track of the computation graph being defined.
type Builder struct {
	name     string
	backend  *Backend
	compiled bool

	// nodes are only created when their inputs have already been created. So this is a natural
	// DAG (Directed Acyclic Graph) ordering of the graph. The executor relies on this invariance.
	nodes []*Node

	// inputs will have nodeParameter as data.
	inputs []*Node

	// outputs can be any type of node.
	outputs []*Node
}

// Compile-time check.
var _ backends.Builder = (*Builder)(nil)

// Name implements backends.Builder.
func (b *Builder) Name() string {
	return b.name
}

// Compile implements backends.Builder.
func (b *Builder) Compile(outputs ...backends.Op) (backends.Executable, error) {
	if len(outputs) == 0 {
		return nil, errors.Errorf("Compile: computation %q given no outputs to compile", b.name)
	}
	var err error
	b.outputs, err = b.checkOps("Compile", outputs...)
	if err != nil {
		return nil, err
	}
	nodeSet := types.SetWith(b.outputs...)
	if len(nodeSet) != len(b.outputs) {
		return nil, errors.Errorf("Compile: repeated outputs -- %d outputs, %d unique outputs", len(b.outputs), len(nodeSet))
	}
	b.compiled = true
	return newExecutable(b), nil
}

// Finalize immediately releases the resources associated with the Builder.
func (b *Builder) Finalize() {
	b.inputs = nil
	b.outputs = nil
	b.nodes = nil
}

// Node in the SimpleGo computation graph.
type Node struct {
	// builderIdx in Builder.nodes.
	builderIdx int
	inputs     []*Node

	// shape of the output.
	opType  backends.OpType
	shape   shapes.Shape
	builder *Builder

	// data for the specific node type.
	data any
}

// nodeParameter data.
type nodeParameter struct {
	name     string
	inputIdx int
}

// gatherNode data.
type gatherNode struct {
	axis int
}

// newNode adds a new node of the given opType and shape to the Builder graph.
// It's used by the other ops when creating new nodes.
func (b *Builder) newNode(opType backends.OpType, shape shapes.Shape, inputs ...*Node) *Node {
	n := &Node{
		builder:    b,
		opType:     opType,
		builderIdx: len(b.nodes),
		shape:      shape,
		inputs:     slices.Clone(inputs),
	}
	b.nodes = append(b.nodes, n)
	return n
}

// checkOps validates that the ops are from SimpleGo and from this builder.
// It also checks whether the Builder is not yet compiled.
func (b *Builder) checkOps(opName string, ops ...backends.Op) ([]*Node, error) {
	if b == nil {
		return nil, errors.Errorf("%s: Builder is nil (!?), cannot build a graph", opName)
	}
	if b.compiled {
		return nil, errors.Errorf("cannot add new op (%s) to Builder %q, it has already been compiled", opName, b.name)
	}
	nodes := make([]*Node, len(ops))
	var ok bool
	for idx, op := range ops {
		if op == nil {
			return nil, errors.Errorf("%s: input op #%d is nil!?", opName, idx)
		}
		nodes[idx], ok = op.(*Node)
		if !ok {
			return nil, errors.Errorf("%s: input op #%d was not created on backend %q", opName, idx, b.backend.Name())
		}
		if nodes[idx].builder != b {
			return nil, errors.Errorf("%s: input op #%d was created with a different builder (%q), cannot use it with builder %q",
				opName, idx, nodes[idx].builder.name, b.name)
		}
	}
	return nodes, nil
}

// OpShape returns the shape of a computation Op.
func (b *Builder) OpShape(op backends.Op) (shapes.Shape, error) {
	inputs, err := b.checkOps("OpShape", op)
	if err != nil {
		return shapes.Invalid(), err
	}
	return inputs[0].shape, nil
}

// Parameter creates an input parameter for the computation.
func (b *Builder) Parameter(name string, shape shapes.Shape) (backends.Op, error) {
	if _, err := b.checkOps("Parameter"); err != nil {
		return nil, err
	}
	if !shape.Ok() {
		return nil, errors.Errorf("Parameter(%q): invalid shape given", name)
	}
	if err := checkDType("Parameter", shape.DType); err != nil {
		return nil, err
	}
	node := b.newNode(backends.OpTypeParameter, shape.Clone())
	node.data = &nodeParameter{
		name:     name,
		inputIdx: len(b.inputs),
	}
	b.inputs = append(b.inputs, node)
	return node, nil
}

// checkFlat returns an error if flat is not a slice of one of the dtypes supported.
// It returns the dtype and the length of the flat slice.
func checkFlat(flat any) (dtypes.DType, int, error) {
	flatType := reflect.TypeOf(flat)
	if flatType.Kind() != reflect.Slice {
		return dtypes.InvalidDType, 0, errors.Errorf("flat data should be a slice, not %s", flatType.Kind())
	}
	dtype := dtypes.FromGoType(flatType.Elem())
	if dtype == dtypes.InvalidDType {
		return dtypes.InvalidDType, 0, errors.Errorf("flat is a slice of %s, not a valid data type", flatType.Elem())
	}
	if err := checkDType("Constant", dtype); err != nil {
		return dtypes.InvalidDType, 0, err
	}
	return dtype, reflect.ValueOf(flat).Len(), nil
}

// Constant creates a constant in the graph with the given flat values, and the shape defined by dims.
// The value is copied into a backend buffer attached to the node.
func (b *Builder) Constant(flat any, dims ...int) (backends.Op, error) {
	if _, err := b.checkOps("Constant"); err != nil {
		return nil, err
	}
	dtype, flatLen, err := checkFlat(flat)
	if err != nil {
		return nil, err
	}
	shape := shapes.Make(dtype, dims...)
	if shape.Size() != flatLen {
		return nil, errors.Errorf("Constant: flat data has %d elements, but dimensions %v require %d",
			flatLen, dims, shape.Size())
	}
	node := b.newNode(backends.OpTypeConstant, shape)
	buffer := b.backend.NewBuffer(shape)
	copyFlat(buffer.flat, flat)
	node.data = buffer
	return node, nil
}

// ConvertDType of x to dtype.
func (b *Builder) ConvertDType(x backends.Op, dtype dtypes.DType) (backends.Op, error) {
	inputs, err := b.checkOps("ConvertDType", x)
	if err != nil {
		return nil, err
	}
	if err := checkDType("ConvertDType", dtype); err != nil {
		return nil, err
	}
	// Same-dtype conversions still create a node, so the executor always has a fresh buffer to return.
	operand := inputs[0]
	shape := operand.shape.Clone()
	shape.DType = dtype
	return b.newNode(backends.OpTypeConvertDType, shape, operand), nil
}

// addBinaryOp adds a generic binary op after inferring its output shape.
// The operands must have the same dtype, and either the same dimensions or one of them must
// be a scalar, in which case it is implicitly broadcast.
func (b *Builder) addBinaryOp(opType backends.OpType, lhsOp, rhsOp backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps(opType.String(), lhsOp, rhsOp)
	if err != nil {
		return nil, err
	}
	lhs, rhs := inputs[0], inputs[1]
	if lhs.shape.DType != rhs.shape.DType {
		return nil, errors.Errorf("%s: dtypes of operands don't match: %s != %s", opType, lhs.shape, rhs.shape)
	}
	var shape shapes.Shape
	switch {
	case lhs.shape.IsScalar():
		shape = rhs.shape.Clone()
	case rhs.shape.IsScalar():
		shape = lhs.shape.Clone()
	case lhs.shape.EqualDimensions(rhs.shape):
		shape = lhs.shape.Clone()
	default:
		return nil, errors.Errorf("%s: incompatible operand shapes %s and %s -- they must match, or one must be a scalar",
			opType, lhs.shape, rhs.shape)
	}
	return b.newNode(opType, shape, lhs, rhs), nil
}

// Add returns the element-wise sum of the two values.
func (b *Builder) Add(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeAdd, lhs, rhs)
}

// Rem returns the element-wise remainder (modulo) of the two values.
func (b *Builder) Rem(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeRem, lhs, rhs)
}

// Gather slices from the operand along the given axis, at the positions given by indices.
func (b *Builder) Gather(operandOp, indicesOp backends.Op, axis int) (backends.Op, error) {
	inputs, err := b.checkOps("Gather", operandOp, indicesOp)
	if err != nil {
		return nil, err
	}
	operand, indices := inputs[0], inputs[1]
	if operand.shape.IsScalar() {
		return nil, errors.Errorf("Gather: operand must not be a scalar, got shape %s", operand.shape)
	}
	if !indices.shape.DType.IsInt() {
		return nil, errors.Errorf("Gather: indices must have an integer dtype, got shape %s", indices.shape)
	}
	if axis < 0 || axis >= operand.shape.Rank() {
		return nil, errors.Errorf("Gather: axis %d out-of-bounds for operand shape %s", axis, operand.shape)
	}
	dims := make([]int, 0, operand.shape.Rank()-1+indices.shape.Rank())
	dims = append(dims, operand.shape.Dimensions[:axis]...)
	dims = append(dims, indices.shape.Dimensions...)
	dims = append(dims, operand.shape.Dimensions[axis+1:]...)
	shape := shapes.Make(operand.shape.DType, dims...)
	node := b.newNode(backends.OpTypeGather, shape, operand, indices)
	node.data = &gatherNode{axis: axis}
	return node, nil
}
