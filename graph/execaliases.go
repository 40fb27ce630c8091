package graph

import (
	"github.com/gomlx/dataformats/backends"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// Note: This file contains various aliases for NewExec and Exec.
// We separate them from the exec.go file to make it easier to separate the core logic
// (in exec.go) from ergonomics (execaliases.go, this file).

// MustNewExecAny constructs an Exec object that uses the given graphFn to build
// computation graphs.
//
// graphFn can take only *Node parameters as input and returns one or more *Node.
// Except if there are no inputs, in which case graphFn needs to take a *Graph as its only
// parameter.
//
// It panics if the inputs are invalid.
//
// See also the generic MustNewExec (or NewExec for returning an error), which checks for
// a valid graphFn in compile time.
func MustNewExecAny(backend backends.Backend, graphFn any) *Exec {
	return must.M1(NewExecAny(backend, graphFn))
}

// MustNewExec constructs an Exec object that uses the given graphFn to build computation
// graphs.
//
// graphFn should take *Node as input and return a *Node -- except if there are no (Node)
// inputs, in which case it should take a single *Graph input.
//
// It's a wrapper for MustNewExecAny, but uses generics to type check that graphFn is
// valid.
func MustNewExec[F ExecGraphFn](backend backends.Backend, graphFn F) *Exec {
	return MustNewExecAny(backend, graphFn)
}

// ExecOnce builds the graph and executes it with the given arguments and returns the one
// output.
//
// It's short for a call to MustNewExec, Exec.Exec and Exec.Finalize for functions that
// return only one output.
func ExecOnce[F ExecGraphFnOneOutput](backend backends.Backend, graphFn F, args ...any) (*tensors.Tensor, error) {
	e := MustNewExec(backend, graphFn)
	defer e.Finalize()
	results, err := e.Exec(args...)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ExecOnceN builds the graph and executes it with the given arguments and returns the
// various outputs.
//
// It's short for a call to MustNewExec, Exec.Exec and Exec.Finalize.
//
// See ExecOnce for a more convenient version if you have only one output.
func ExecOnceN[F ExecGraphFn](backend backends.Backend, graphFn F, args ...any) ([]*tensors.Tensor, error) {
	e := MustNewExec(backend, graphFn)
	defer e.Finalize()
	results, err := e.Exec(args...)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Exec1 executes the graph with the given arguments and returns one output.
//
// It returns an error if the graph doesn't return exactly one output.
//
// See Exec for more details.
func (e *Exec) Exec1(args ...any) (*tensors.Tensor, error) {
	results, err := e.Exec(args...)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, errors.Errorf("graph %q returned %d results, as opposed to exactly one as expected by Exec1",
			e.Name(), len(results))
	}
	return results[0], nil
}
