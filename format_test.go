package dataformats_test

import (
	"testing"

	. "github.com/gomlx/dataformats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCheck(t *testing.T) {
	for _, f := range KnownFormats() {
		require.NoErrorf(t, f.Check(), "format %q must pass the structural check", f)
	}

	// Check is structural only: unrecognized layouts with distinct symbols pass.
	require.NoError(t, Format("ABCD").Check())

	require.ErrorIs(t, Format("NHW").Check(), ErrInvalidFormat)
	require.ErrorIs(t, Format("NHWCX").Check(), ErrInvalidFormat)
	require.ErrorIs(t, Format("").Check(), ErrInvalidFormat)

	err := Format("NHWN").Check()
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorContains(t, err, "repeats")
}

func TestFormatKnown(t *testing.T) {
	require.True(t, NHWC.Known())
	require.True(t, NCHW.Known())
	require.True(t, HWNC.Known())
	require.True(t, HWCN.Known())
	require.False(t, Format("ABCD").Known())
	require.False(t, Format("nhwc").Known())
	require.Len(t, KnownFormats(), 4)
}

func TestFormatIndex(t *testing.T) {
	require.Equal(t, 0, NHWC.Index('N'))
	require.Equal(t, 3, NHWC.Index('C'))
	require.Equal(t, 1, NCHW.Index('C'))
	require.Equal(t, -1, NHWC.Index('X'))
}
