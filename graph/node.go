package graph

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// NodeType identifies the operation performed by a Node.
//
// Since every node in this package maps one-to-one to a backend operation, it is an alias
// of backends.OpType.
type NodeType = backends.OpType

const (
	NodeTypeInvalid      = backends.OpTypeInvalid
	NodeTypeParameter    = backends.OpTypeParameter
	NodeTypeConstant     = backends.OpTypeConstant
	NodeTypeAdd          = backends.OpTypeAdd
	NodeTypeConvertDType = backends.OpTypeConvertDType
	NodeTypeGather       = backends.OpTypeGather
	NodeTypeRem          = backends.OpTypeRem
)

// Node represents the result of an operation in the computation graph, and can be used as
// input to further operations.
//
// Node.String allows for a pretty-printing of node. To see the full graph with all nodes,
// use Graph.String.
type Node struct {
	graph *Graph
	shape shapes.Shape
	id    NodeId // id within graph.
	op    backends.Op

	// inputNodes are the edges of the computation graph.
	// Notice that other static inputs to the node are registered in inputs.
	inputNodes []*Node

	// inputs hold the operation type and its static attributes.
	inputs NodeInputs

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// NodeInputs represents the inputs to a node. The common interface is to return the type of
// the node. For the input parameters themselves, the pointer needs to be cast to the
// corresponding type, named nodeInputs<operation_name>.
type NodeInputs interface {
	Type() NodeType

	// String prints a descriptive representation of the node, using its parameters.
	String() string
}

// Type identifies the operation performed by the node.
func (n *Node) Type() NodeType {
	if n == nil || n.inputs == nil {
		return NodeTypeInvalid
	}
	return n.inputs.Type()
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Shape of the Node's output.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Shape{}
	}
	return n.shape
}

// DType returns the DType of the node's shape.
func (n *Node) DType() dtypes.DType {
	return n.Shape().DType
}

// Rank returns the rank of the node's shape.
func (n *Node) Rank() int {
	return n.Shape().Rank()
}

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool {
	return n.Shape().IsScalar()
}

// Id is the unique id of this node within the Graph.
func (n *Node) Id() NodeId {
	return n.id
}

// GetParameterHandle returns the parameter id in the graph.
// It panics if node is not a parameter.
func (n *Node) GetParameterHandle() ParameterHandle {
	n.AssertValid()
	if n.Type() != NodeTypeParameter {
		exceptions.Panicf("node %s is not a Parameter node", n.Type())
	}
	return n.inputs.(*nodeInputsParameter).handle
}

// GetParameterName returns the parameter name.
// If node is not a parameter, it panics.
func (n *Node) GetParameterName() string {
	n.AssertValid()
	if n.Type() != NodeTypeParameter {
		exceptions.Panicf("trying to get GetParameterName of a non-parameter node %q", n.Type())
	}
	return n.inputs.(*nodeInputsParameter).name
}

// Inputs are the other nodes that are direct inputs to the node.
// This doesn't include static attributes of the operation that are not given by other
// Graph nodes.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// AssertValid panics if n is nil, or if its graph is invalid.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	if n.inputs == nil {
		exceptions.Panicf("Node in an invalid state")
	}
	n.graph.AssertValid()
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by Graph.SetTraced(true).
func (n *Node) Trace() error {
	return n.trace
}

// String implements the fmt.Stringer interface.
func (n *Node) String() (str string) {
	if n == nil {
		return "Node(nil)"
	}
	if n.graph == nil || !n.graph.IsValid() {
		return "Node(invalid graph)"
	}
	if n.Type() == NodeTypeInvalid {
		str = "Invalid(?)"
	} else {
		str = n.inputs.String()
	}
	return fmt.Sprintf("%s -> %s - mem: %s", str, n.shape, humanize.Bytes(uint64(n.shape.Memory())))
}

// ConstantValue returns the value assigned to a constant node, if it was kept.
// Only constants smaller than MinConstValueSizeToKeep hold on to their values.
// It returns nil if n.Type() != NodeTypeConstant.
func (n *Node) ConstantValue() *tensors.Tensor {
	if n.Type() != NodeTypeConstant {
		return nil
	}
	return n.inputs.(*nodeInputsConstant).tensor
}
