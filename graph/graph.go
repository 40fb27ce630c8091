// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is used to create and run computation graphs of data-format operations on
// different backends.
//
// The main elements in the package are:
//
//   - Exec is the driver that manages the lifecycle (Graph creation, compilation, caching,
//     and execution) across different input shapes. This is where most use cases start.
//
//   - Graph is the blueprint for a specific computation with specific input shapes.
//     It's usually created by an Exec object, built by an ExecGraphFn, and then cached and
//     executed by the Exec.
//
//   - Node represents a symbolic value in the computation. This can be an input parameter,
//     a constant, or the result of an operation ("op" for short, e.g.: Add, Gather).
//     Each node has a fixed shape known in "graph building time".
//
// You have to import the backend you are going to use. Typically, the pure Go interpreter:
//
//	import _ "github.com/gomlx/dataformats/backends/simplego"
//
// # Error Handling
//
// Graph (and its Node's) methods "throw" errors with panic(). This prevents having to
// manage error returning for every operation and makes the code much more readable. The
// panics carry meaningful error messages, with the full stack-trace, to ease tracking down
// issues. Exec converts them back to returned errors at the execution boundary.
//
// The usual "compile time / runtime" split becomes "compile time / graph building time /
// runtime": shapes are checked when the graph is built, before anything executes, so shape
// errors surface early, with stack traces pointing at the op that caused them.
package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/dataformats/types/xslices"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Graph with the operations and dependencies needed to run a computation.
type Graph struct {
	backend backends.Backend
	builder backends.Builder

	id   GraphId
	name string

	// nodes include all nodes known to Graph.
	nodes []*Node

	// parameters keeps track of parameter nodes and a mapping of name to handle.
	parameters            []*Node
	parameterNameToHandle map[string]ParameterHandle

	traced bool

	// scalars maintains a cache of scalar values already created in the current Graph
	// for re-use.
	scalars scalarCache

	// tensorConstants maintains a cache of tensors that have been converted to a constant
	// node in the graph, to avoid creating duplicate nodes.
	tensorConstants tensorConstCache

	// Compiled Graph.
	executable backends.Executable
}

// GraphId is globally unique.
var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// GraphId is a unique Graph id. It's a counter that starts with 0.
type GraphId int

// NodeId is a unique NodeId within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// ParameterHandle is a key to refer to the Graph's parameters: it is the index of the
// parameter, in order of creation.
type ParameterHandle int

// InvalidParameterHandle represents an invalid (or non-existent) parameter.
const InvalidParameterHandle = ParameterHandle(-1)

// scalarCache provides a cache of a scalar value -- the key always use a float64 -- to
// its pre-created *Node. It helps avoid creating duplicate nodes for common values.
//
// It keeps a cache for each dtype of the scalar.
type scalarCache map[dtypes.DType]map[float64]*Node

// tensorConstCache provides a cache of tensors used (converted to constants) in Graph, so
// they can be reused if needed.
//
// Notice this has the disadvantage of holding a reference to the tensor while the Graph is
// alive, so it won't be GC-ed until the graph is destroyed.
type tensorConstCache map[*tensors.Tensor]*Node

// NewGraph constructs an empty Graph.
//
// An empty Graph can be further configured (e.g., with Graph.WithName) until one starts
// building a computation with it.
//
// After building a computation, it can be compiled (see Graph.Compile), at which point the
// Graph becomes immutable and can only be executed.
//
// If it is finalized (see Graph.Finalize), resources are released immediately (instead of
// waiting for the GC), and the Graph can no longer be used.
func NewGraph(backend backends.Backend, name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()

	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		backend:               backend,
		id:                    graphCount,
		name:                  name,
		parameterNameToHandle: make(map[string]ParameterHandle),
		scalars:               make(scalarCache),
		tensorConstants:       make(tensorConstCache),
	}
	graphCount += 1
	return g
}

// WithName sets the name of the Graph.
//
// It can only be called before one starts building a computation with the Graph.
//
// It returns the graph passed, so configuring methods can be cascaded.
func (g *Graph) WithName(name string) *Graph {
	g.AssertConfiguring()
	g.name = name
	return g
}

// IsBuilding returns whether the Graph already started building a computation, in which
// case Graph parameters (like its name) can no longer be changed.
func (g *Graph) IsBuilding() bool {
	return g.IsValid() && !g.IsCompiled() && g.builder != nil
}

// build sets the Graph into "building" mode by creating the backend Builder object.
//
// This sets Graph.IsBuilding() to true, until the graph is compiled.
func (g *Graph) build() backends.Builder {
	if !g.IsValid() {
		exceptions.Panicf("Graph is nil or has been finalized already")
	}
	if g.IsCompiled() {
		exceptions.Panicf("Graph already compiled and can't be used for building")
	}
	if g.builder == nil {
		// Lazy construction of builder: this allows one to further configure the Graph
		// object before using it.
		g.builder = g.backend.Builder(g.name)
	}
	return g.builder
}

// Backend this Graph is using.
func (g *Graph) Backend() backends.Backend { return g.backend }

// Name of the computation this Graph defines, set during its construction.
func (g *Graph) Name() string { return g.name }

// GraphId is a globally unique id (even across different backends) of the graph.
func (g *Graph) GraphId() GraphId {
	return g.id
}

// Finalize frees the associated data with the compiled graph (if it is compiled) and all
// the nodes. The graph is left in an unusable state.
// It is safe to call it more than once. Calls on a finalized Graph are no-ops.
func (g *Graph) Finalize() {
	if g == nil {
		return
	}
	if g.builder != nil {
		g.builder = nil
	}
	if g.executable != nil {
		g.executable.Finalize()
		g.executable = nil
	}
	g.nodes = nil
	g.parameters = nil
	g.parameterNameToHandle = nil
	g.scalars = nil
	g.tensorConstants = nil
	g.name = ""
	g.backend = nil
}

// IsValid returns whether the Graph is in a valid state: it is valid if it is in a
// configuring, building, or compiled state.
func (g *Graph) IsValid() bool {
	return !(g == nil || g.backend == nil)
}

// CheckValid returns an error if the graph is nil or if it has already been finalized.
func (g *Graph) CheckValid() error {
	if g == nil {
		return errors.Errorf("the Graph is nil")
	}
	if g.backend == nil {
		return errors.Errorf("Graph %q has been finalized already", g.name)
	}
	return nil
}

// AssertValid panics if the graph is nil or if it has already been finalized.
func (g *Graph) AssertValid() {
	err := g.CheckValid()
	if err != nil {
		panic(err)
	}
}

// AssertConfiguring panics if the graph is not in a "configuring" phase: that is, if one
// already started building a computation with it, or if it has already been compiled
// (immutable). It also panics if it is not valid (e.g.: if it has been finalized).
func (g *Graph) AssertConfiguring() {
	g.AssertValid()
	if g.builder != nil {
		exceptions.Panicf("Graph %q building already started, it can not be further configured", g.name)
	}
	if g.executable != nil {
		exceptions.Panicf("Graph %q is already compiled, it can not be further configured", g.name)
	}
}

// IsCompiled returns whether the Graph has been compiled (immutable).
func (g *Graph) IsCompiled() bool {
	return g.IsValid() && g.executable != nil
}

// AssertBuilding panics if the graph is nil, has been finalized, or has already been
// compiled and is therefore immutable.
// If the Graph was in a configuring state (just after creation), this triggers it to enter
// into a "building" state.
func (g *Graph) AssertBuilding() {
	g.AssertValid()
	if g.IsCompiled() {
		exceptions.Panicf("Graph %q has already been compiled, one cannot further build computations with it",
			g.name)
	}
	_ = g.build()
}

// AssertCompiled panics if the graph is nil, if it has already been finalized, or if it is
// not yet compiled (still building).
func (g *Graph) AssertCompiled() {
	g.AssertValid()
	if !g.IsCompiled() {
		exceptions.Panicf("Graph %q not compiled yet, it can't be used for execution", g.name)
	}
}

// SetTraced defines whether each node creation is traced.
// If true, every node will save a stack-trace of where it was created, which is helpful
// for debugging. See Node.Trace().
//
// This is expensive, but can be handy for debugging.
func (g *Graph) SetTraced(traced bool) {
	g.AssertBuilding()
	g.traced = traced
}

// registerNode in the graph and returns a new unique id within the Graph.
// If Graph.traced is set, it also sets Node.trace to an error with a stack-trace.
func (g *Graph) registerNode(node *Node) (id NodeId) {
	g.AssertBuilding()
	if node.shape.DType == dtypes.InvalidDType {
		exceptions.Panicf("trying to add node with invalid shape: %s", node)
	}
	id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	node.id = id
	if g.traced {
		node.trace = errors.New("Stack-trace")
	}
	return
}

// NodeById returns the node for the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	g.AssertValid()
	if id == InvalidNodeId || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// LastNode returns the last node created.
// It returns nil if no node has been created for this graph yet.
func (g *Graph) LastNode() *Node {
	return xslices.Last(g.nodes)
}

// Nodes return a slice of all nodes.
// The slice is owned by Graph and shouldn't be changed.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Compile just-in-time (JIT) compiles the Graph into an executable computation.
//
// At least one output must be given, and the same node cannot be given as output more than
// once.
func (g *Graph) Compile(outputs ...*Node) {
	g.AssertValid()
	g.AssertBuilding()
	if len(outputs) == 0 {
		exceptions.Panicf("no outputs selected when Graph.Compile graph %q", g.name)
	}

	// Sanity check on the output nodes.
	for ii, node := range outputs {
		if node == nil {
			exceptions.Panicf("output node %d is nil when compiling graph %q", ii, g.name)
		}
		if node.Graph() != g {
			exceptions.Panicf("output node %d is part of a different graph (name=%q) than the one being "+
				"compiled (name=%q)", ii, node.graph.name, g.name)
		}
	}

	if klog.V(1).Enabled() {
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			klog.Infof("Graph.Compile time for graph %q: %s", g.Name(), elapsed)
		}()
	}

	outputOps := xslices.Map(outputs, func(node *Node) backends.Op { return node.op })
	var err error
	g.executable, err = g.builder.Compile(outputOps...)
	if err != nil {
		panic(errors.WithMessagef(err, "Graph failed to compile for the backend"))
	}
}

// Run the compiled Graph with the inputs given in order -- the same order as the
// parameters were created.
//
// The values for inputs can be:
//
//  1. A tensors.Tensor.
//  2. Any multi-dimensional slice (e.g.: [][]float32 for a 2D float32 value) that is
//     dynamically converted to a temporary tensor.
//
// This is a very "bare-bones" way of running the Graph. Typically, one would use the Exec
// object instead (which dynamically generates a new Graph for inputs of different shapes
// when needed).
func (g *Graph) Run(inputs ...any) (outputs []*tensors.Tensor) {
	g.AssertCompiled()
	numParams := g.NumParameters()
	if len(inputs) != numParams {
		exceptions.Panicf("graph %q takes %d parameters, but %d were given to Graph.Run()",
			g.name, numParams, len(inputs))
	}
	buffers := make([]backends.Buffer, numParams)
	donate := make([]bool, numParams)
	for ii, input := range inputs {
		buffers[ii], donate[ii] = anyToDeviceBuffer(g.backend, input)
	}
	return g.RunWithBuffers(buffers, donate)
}

// RunWithBuffers executes the graph using as inputs the on-device buffers.
//
// This is mostly internal; for the normal use cases, consider using the Exec object or
// Graph.Run.
//
// The donate slice indicates which buffers can be donated to the execution -- they are
// invalid after the execution finishes.
func (g *Graph) RunWithBuffers(inputs []backends.Buffer, donate []bool) (outputs []*tensors.Tensor) {
	g.AssertCompiled()
	numParams := g.NumParameters()
	if len(inputs) != numParams {
		exceptions.Panicf("graph %q takes %d parameters, but %d were given to RunWithBuffers()",
			g.name, numParams, len(inputs))
	}
	if len(donate) != numParams {
		exceptions.Panicf("graph %q takes %d donate values for the input parameters, "+
			"but %d were given to RunWithBuffers()", g.name, numParams, len(donate))
	}
	var start time.Time
	var results []backends.Buffer
	var err error
	if klog.V(1).Enabled() {
		start = time.Now()
		results, err = g.executable.Execute(inputs, donate)
		elapsed := time.Since(start)
		klog.V(1).Infof("Graph.RunWithBuffers: %s elapsed", elapsed)
	} else {
		results, err = g.executable.Execute(inputs, donate)
	}
	if err != nil {
		panic(errors.WithMessagef(err, "Graph failed to execute"))
	}
	outputs = xslices.Map(results, func(buf backends.Buffer) *tensors.Tensor {
		// The execution owns the result buffers: download the values and return the
		// buffers to the backend immediately.
		t := tensors.FromBuffer(g.backend, buf)
		if err := g.backend.BufferFinalize(buf); err != nil {
			panic(errors.WithMessagef(err, "Graph %q failed to release an output buffer", g.name))
		}
		return t
	})
	return
}

// anyToDeviceBuffer uploads a generic value to a backend buffer.
//
// Tensors in this package are host-only, so the upload always creates a fresh copy of the
// data, and the returned buffer can always be donated to the execution.
func anyToDeviceBuffer(backend backends.Backend, value any) (backends.Buffer, bool) {
	t, ok := value.(*tensors.Tensor)
	if !ok {
		t = tensors.FromAnyValue(value)
	}
	return t.Buffer(backend), true
}

// NumParameters returns the number of parameters created for this graph.
func (g *Graph) NumParameters() int {
	g.AssertValid()
	return len(g.parameters)
}

// GetParameterByHandle returns the ii-th parameter, in order of creation, registered for
// this graph.
func (g *Graph) GetParameterByHandle(handle ParameterHandle) *Node {
	g.AssertValid()
	return g.parameters[handle]
}

// GetParameterByName returns the parameter registered with the given name. Returns nil if
// the parameter with the given name hasn't been registered (see Parameter).
func (g *Graph) GetParameterByName(name string) (node *Node) {
	g.AssertValid()
	if name == "" {
		return
	}
	handle, ok := g.parameterNameToHandle[name]
	if !ok {
		return
	}
	return g.parameters[handle]
}

// String converts the Graph to a multiline string with a description of the full graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)!?"
	}
	if g.backend == nil {
		return "Invalid Graph (already finalized)"
	}
	var compiled string
	if g.executable != nil {
		compiled = " (*)"
	}
	parts := []string{
		fmt.Sprintf("Graph %q%s: %d nodes, %d parameters", g.name, compiled, len(g.nodes), g.NumParameters()),
	}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("\t#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}

// getScalarConst either creates a scalar constant or returns a previously created one from
// the cache. It shouldn't be called directly by users, rather Scalar and operations that
// take scalar values use it.
func (g *Graph) getScalarConst(dtype dtypes.DType, value float64) (output *Node) {
	dtypeMap, found := g.scalars[dtype]
	if !found {
		dtypeMap = make(map[float64]*Node)
		g.scalars[dtype] = dtypeMap
	}
	output, found = dtypeMap[value]
	if found {
		return
	}
	output = Const(g, shapes.CastAsDType(value, dtype))
	dtypeMap[value] = output
	return
}
