package graph

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sync"

	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/shapes"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// ExecGraphFn is a type parameter for accepted function types for the NewExec constructor.
type ExecGraphFn interface {
	func(*Graph) *Node |
		func(*Node) *Node |
		func(*Node, *Node) *Node |
		func(*Node, *Node, *Node) *Node |
		func([]*Node) *Node |

		// With a slice of nodes as output.
		func(*Graph) []*Node |
		func(*Node) []*Node |
		func(*Node, *Node) []*Node |
		func(*Node, *Node, *Node) []*Node |
		func([]*Node) []*Node
}

// ExecGraphFnOneOutput is the subset of ExecGraphFn of functions that return exactly one
// *Node. See ExecOnce.
type ExecGraphFnOneOutput interface {
	func(*Graph) *Node |
		func(*Node) *Node |
		func(*Node, *Node) *Node |
		func(*Node, *Node, *Node) *Node |
		func([]*Node) *Node
}

// Exec creates and executes computation graphs as needed based on the input shapes.
//
// It simplifies the process of executing a graph building function with concrete values.
// For example, assume you wrote:
//
//	func SumGraph(x, y *Node) *Node {
//		return Add(x, y)
//	}
//
// To actually use it with real values, one needs to build the graph for the specific
// shapes of x and y, compile it, upload the values to the backend, and then execute the
// compiled graph. JIT compilation makes things faster, but it imposes some bureaucracy.
//
// With Exec one can do:
//
//	var Sum = MustNewExec(backend, SumGraph)
//	fmt.Printf("Sum(1, 2) = %v\n", Sum.MustExec(1.0, 2.0)[0].Value())
//	fmt.Printf("Sum([1, 2], [3, 4]) = %v\n", Sum.MustExec([]float32{1, 2}, []float32{3, 4})[0].Value())
//
// Notice that the two calls to Sum.MustExec need different graphs (for the different
// shapes of the input), but they are cached, and if the same shapes are used again, the
// cached compiled graph is reused.
//
// MustExec outputs a slice with all the outputs, even when there is only one output.
//
// If there are no inputs, the graph function needs to take a *Graph as its only parameter
// instead. Example:
//
//	fourExec := MustNewExec(backend, func(g *Graph) *Node {
//		return Scalar(g, dtypes.Int32, 4)
//	})
//
// The need to build different graphs for different shapes can be expensive when the sizes
// of the inputs vary a lot. For safety, there is a maximum number of different
// instantiations of the graph. It can be changed or disabled with SetMaxCache.
//
// Exec is safe for concurrent use: the cache is protected, and the underlying backend
// executables can be run concurrently.
type Exec struct {
	backend backends.Backend

	graphFn                     any
	numInputs                   int
	inputAsSlice, outputAsSlice bool
	inputIsGraph                bool
	name                        string

	// maxCacheSize: if more than these different graph instantiations are
	// created, Exec starts failing in MustExec (and variants).
	maxCacheSize int

	// Protects cache structure.
	cacheMu sync.Mutex
	cache   []*execCacheEntry
}

// execCacheEntry: no hashing, just a simple list. This is faster for smaller tables.
type execCacheEntry struct {
	argsShapes []shapes.Shape
	graph      *Graph
	numOutputs int
}

// DefaultExecMaxCacheSize is the value used to initialize Exec.maxCacheSize.
// See Exec.SetMaxCache to change it.
const DefaultExecMaxCacheSize = 10

// NewExecAny constructs an Exec object that uses the given graphFn to build computation
// graphs. graphFn takes only *Node parameters as input and returns one or more *Node.
// Except if there are no inputs, in which case graphFn needs to take a *Graph as its only
// parameter.
//
// If any input or output parameter of graphFn is not a *Node (or *Graph if there are no
// inputs), or if there are no inputs or outputs, it returns an error.
//
// See also the generic NewExec, which checks for a valid graphFn in compile time.
func NewExecAny(backend backends.Backend, graphFn any) (*Exec, error) {
	graphFnT := reflect.TypeOf(graphFn)
	if graphFnT == nil || graphFnT.Kind() != reflect.Func {
		return nil, errors.Errorf("graphFn must be a function, got %T", graphFn)
	}
	funcName := runtime.FuncForPC(reflect.ValueOf(graphFn).Pointer()).Name()
	exec := &Exec{
		backend:      backend,
		name:         fmt.Sprintf("Exec:%s", funcName),
		graphFn:      graphFn,
		numInputs:    graphFnT.NumIn(),
		maxCacheSize: DefaultExecMaxCacheSize,
	}

	var node *Node
	nodeType := reflect.TypeOf(node)
	var tmpGraph *Graph
	graphType := reflect.TypeOf(tmpGraph)

	if graphFnT.NumIn() < 1 || graphFnT.NumOut() < 1 {
		// It requires at least one input and one output.
		return nil, errors.Errorf("not enough input (%d)/output (%d) parameters, both need to be > 0",
			graphFnT.NumIn(), graphFnT.NumOut())
	}
	for ii := 0; ii < graphFnT.NumIn(); ii++ {
		if graphFnT.In(ii).Kind() == reflect.Slice && graphFnT.In(ii).Elem() == nodeType {
			if graphFnT.NumIn() != 1 {
				return nil, errors.Errorf("[]*Node parameters are only accepted as input if they are "+
					"the only input, got function type %s instead", graphFnT)
			}
			exec.inputAsSlice = true
			break
		}
		if graphFnT.In(ii) == graphType {
			if graphFnT.NumIn() != 1 {
				return nil, errors.Errorf("*Graph parameter only accepted as input if they are "+
					"the only input, got function type %s instead", graphFnT)
			}
			exec.inputIsGraph = true
			exec.numInputs = 0
			break
		}
		if graphFnT.In(ii) != nodeType {
			return nil, errors.Errorf("input parameter %d is not of type *Node or []*Node", ii)
		}
	}
	for ii := 0; ii < graphFnT.NumOut(); ii++ {
		if graphFnT.Out(ii).Kind() == reflect.Slice && graphFnT.Out(ii).Elem() == nodeType {
			if graphFnT.NumOut() != 1 {
				return nil, errors.Errorf("[]*Node parameters are only accepted as output if they are "+
					"the only output, got function type %s instead", graphFnT)
			}
			exec.outputAsSlice = true
			break
		}
		if graphFnT.Out(ii) != nodeType {
			return nil, errors.Errorf("output parameter %d is not of type *Node", ii)
		}
	}
	return exec, nil
}

// NewExec constructs an Exec object that uses the given graphFn to build computation
// graphs.
//
// graphFn should take *Node as input and return a *Node -- except if there are no (Node)
// inputs, in which case it should take a single *Graph input.
//
// It's a wrapper for NewExecAny, but uses generics to type check that graphFn is valid.
func NewExec[F ExecGraphFn](backend backends.Backend, graphFn F) (*Exec, error) {
	return NewExecAny(backend, graphFn)
}

// SetName sets the name of Exec, used to provide the name to graphs created.
// This should be called before any invocations of MustExec (or its variants).
// It returns a reference to itself so calls can be cascaded.
func (e *Exec) SetName(name string) *Exec {
	e.name = name
	return e
}

// Name returns the Exec name, a string used as prefix for the name of the Graph's it
// constructs.
func (e *Exec) Name() string {
	return e.name
}

// SetMaxCache sets the maximum size of the cache.
// Set it to -1 to have unlimited cache size.
// It returns a reference to itself so calls can be cascaded.
func (e *Exec) SetMaxCache(maxCacheSize int) *Exec {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.maxCacheSize = maxCacheSize
	return e
}

// MustExec executes the computation with the given arguments.
//
// If the shapes of the arguments have never been seen before, it JIT-compiles a new
// computation graph for them, which can take a while, but the graph is cached, and later
// executions with the same shapes are very fast.
//
// The arguments are first all converted to tensors (with tensors.FromAnyValue), if they
// are not tensors already.
//
// It returns the outputs in a slice, even if there is only one output.
//
// It panics on errors (with full stack-traces). See Exec for a version that returns an
// error instead.
func (e *Exec) MustExec(args ...any) []*tensors.Tensor {
	results, _ := e.MustExecWithGraph(args...)
	return results
}

// Exec executes the computation with the given arguments.
//
// It works like MustExec, but returns an error instead of panicking.
func (e *Exec) Exec(args ...any) (results []*tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() {
		results = e.MustExec(args...)
	})
	if err != nil {
		results = nil
	}
	return
}

// MustExecWithGraph is similar to MustExec, but it also returns the computation graph
// used in the call.
//
// The underlying Exec creates different computation graphs when the input shapes change,
// so different calls may return different graphs.
//
// It panics on errors (with full stack-traces).
func (e *Exec) MustExecWithGraph(args ...any) (results []*tensors.Tensor, g *Graph) {
	if !e.inputAsSlice && len(args) != e.numInputs {
		exceptions.Panicf("# of arguments to call (%d) don't match # arguments to graph function (%d) for %q",
			len(args), e.numInputs, e.Name())
	}

	// Convert args to tensors.
	argsShapes := make([]shapes.Shape, 0, len(args))
	argsTensors := make([]*tensors.Tensor, 0, len(args))
	for ii := range args {
		t, ok := args[ii].(*tensors.Tensor)
		if !ok {
			t = tensors.FromAnyValue(args[ii])
		}
		argsTensors = append(argsTensors, t)
		argsShapes = append(argsShapes, t.Shape())
	}

	// Get or build the graph for the given shapes.
	entry := e.findCacheEntry(argsShapes)
	if entry == nil {
		exceptions.Panicf("maximum cache size of %d reached for %q: a new computation graph is created "+
			"and compiled for each different set of input shapes, consider using the same shapes or "+
			"changing the limit with Exec.SetMaxCache", e.maxCacheSize, e.Name())
	}
	g = entry.graph

	// Upload the arguments to the backend and execute.
	buffers := make([]backends.Buffer, len(argsTensors))
	donate := make([]bool, len(argsTensors))
	for ii, t := range argsTensors {
		buffers[ii], donate[ii] = anyToDeviceBuffer(e.backend, t)
	}
	results = g.RunWithBuffers(buffers, donate)
	return
}

// ExecWithGraph is similar to Exec, but it also returns the computation graph used in the
// call.
//
// It works like MustExecWithGraph, but returns an error instead of panicking.
func (e *Exec) ExecWithGraph(args ...any) (results []*tensors.Tensor, g *Graph, err error) {
	err = exceptions.TryCatch[error](func() {
		results, g = e.MustExecWithGraph(args...)
	})
	if err != nil {
		results = nil
		g = nil
	}
	return
}

// createAndCacheGraph creates and compiles the graph for arguments with the given shapes.
// It creates and stores a cache entry for it and returns it.
// It returns nil if the cache is full -- see Exec.SetMaxCache.
// Should be called with cacheMu locked.
func (e *Exec) createAndCacheGraph(argsShapes []shapes.Shape) (entry *execCacheEntry) {
	if e.maxCacheSize >= 0 && len(e.cache) >= e.maxCacheSize {
		return nil
	}
	g := NewGraph(e.backend, fmt.Sprintf("%s#%d", e.name, len(e.cache)))
	entry = &execCacheEntry{graph: g}
	var argsV []reflect.Value
	var args []*Node
	if e.inputAsSlice {
		args = make([]*Node, 0, len(argsShapes))
	} else if e.inputIsGraph {
		// Notice in this case len(argsShapes) == 0.
		argsV = []reflect.Value{reflect.ValueOf(g)}
	} else {
		argsV = make([]reflect.Value, 0, len(argsShapes))
	}
	for ii, shape := range argsShapes {
		arg := Parameter(g, fmt.Sprintf("arg#%d", ii), shape)
		if e.inputAsSlice {
			args = append(args, arg)
		} else {
			argsV = append(argsV, reflect.ValueOf(arg))
		}
	}
	graphFnV := reflect.ValueOf(e.graphFn)
	if e.inputAsSlice {
		// If input is a slice of *Node, take argsV to be one parameter, the value of the slice.
		argsV = []reflect.Value{reflect.ValueOf(args)}
	}

	// Enumerate outputs from the wrapped graphFn.
	outputsV := graphFnV.Call(argsV)
	var outputs []*Node
	if e.outputAsSlice {
		outputs = outputsV[0].Interface().([]*Node)
	} else {
		outputs = make([]*Node, 0, len(outputsV))
		for _, outV := range outputsV {
			outputs = append(outputs, outV.Interface().(*Node))
		}
	}

	g.Compile(outputs...)
	entry.argsShapes = slices.Clone(argsShapes)
	entry.numOutputs = len(outputs)
	e.cache = append(e.cache, entry)
	return entry
}

// findCacheEntry returns the cache entry for the given argument shapes, building and
// compiling a new graph if no entry exists yet.
// It returns nil if a new graph is needed but the cache is full.
func (e *Exec) findCacheEntry(argsShapes []shapes.Shape) *execCacheEntry {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

LoopCache:
	for _, entry := range e.cache {
		if len(argsShapes) != len(entry.argsShapes) {
			continue
		}
		for ii, shape := range argsShapes {
			if !shape.Equal(entry.argsShapes[ii]) {
				continue LoopCache
			}
		}
		return entry
	}

	// No graph in cache, create a new one.
	return e.createAndCacheGraph(argsShapes)
}

// Finalize clears the cache, finalizing the graphs. The Exec object shouldn't be used
// after that.
func (e *Exec) Finalize() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	for _, entry := range e.cache {
		entry.graph.Finalize()
		entry.graph = nil
	}
	e.cache = e.cache[:0]
}
