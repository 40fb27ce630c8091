package dataformats

import (
	"slices"
	"strings"

	"github.com/gomlx/dataformats/types"
	"github.com/pkg/errors"
)

// Format names an axis layout: a string of NumAxes distinct symbols, one per axis,
// in the order the axes are laid out. The usual symbols are N (batch), C
// (channels), H (height) and W (width).
type Format string

// Recognized axis layouts.
const (
	NHWC Format = "NHWC"
	NCHW Format = "NCHW"
	HWNC Format = "HWNC"
	HWCN Format = "HWCN"
)

var knownFormats = []Format{NHWC, NCHW, HWNC, HWCN}

// KnownFormats returns the recognized axis layouts.
func KnownFormats() []Format {
	return slices.Clone(knownFormats)
}

// Check validates the format structurally: it must have exactly NumAxes symbols,
// all distinct. Failures wrap ErrInvalidFormat.
//
// Check accepts any symbol set. Use Known to check membership in the recognized
// layouts.
func (f Format) Check() error {
	if len(f) != NumAxes {
		return errors.Wrapf(ErrInvalidFormat, "format %q must have exactly %d symbols", f, NumAxes)
	}
	seen := types.MakeSet[byte](NumAxes)
	for i := 0; i < NumAxes; i++ {
		if seen.Has(f[i]) {
			return errors.Wrapf(ErrInvalidFormat, "format %q repeats the symbol %q", f, f[i])
		}
		seen.Insert(f[i])
	}
	return nil
}

// Known reports whether f is one of the recognized axis layouts.
func (f Format) Known() bool {
	return slices.Contains(knownFormats, f)
}

// Index returns the axis position of the given symbol in f, or -1 if f doesn't
// include the symbol.
func (f Format) Index(symbol byte) int {
	return strings.IndexByte(string(f), symbol)
}

// checkRecognized is the strict validation: Check plus membership in the
// recognized layouts.
func (f Format) checkRecognized() error {
	if err := f.Check(); err != nil {
		return err
	}
	if !f.Known() {
		return errors.Wrapf(ErrInvalidFormat, "format %q is not a recognized axis layout, use one of %v", f, knownFormats)
	}
	return nil
}
