package dataformats

import "github.com/pkg/errors"

// Sentinel error kinds used by the package. Returned errors wrap one of these, so
// they can be matched with errors.Is, and carry a message naming the offending
// value plus a stack trace.
var (
	// ErrInvalidFormat indicates a malformed Format: wrong length, repeated
	// symbols, an unrecognized layout name, or a format that is not a permutation
	// of its counterpart. Reported at kernel construction time.
	ErrInvalidFormat = errors.New("invalid data format")

	// ErrInvalidShape indicates a kernel input whose shape or dtype is
	// incompatible with the kernel. Reported by Compile before any node is added
	// to the graph.
	ErrInvalidShape = errors.New("invalid input shape")

	// ErrUnsupportedDType indicates an element type outside the set the kernels
	// support (Int32 and Int64). Reported at kernel construction time.
	ErrUnsupportedDType = errors.New("unsupported dtype")

	// ErrNotRegistered indicates a Registry lookup for which nothing was
	// registered.
	ErrNotRegistered = errors.New("kernel not registered")
)
