package dataformats_test

import (
	"fmt"
	"testing"

	. "github.com/gomlx/dataformats"
	"github.com/gomlx/dataformats/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestPermutationBetween(t *testing.T) {
	perm, err := PermutationBetween(NHWC, NCHW)
	require.NoError(t, err)
	require.Equal(t, Permutation{0, 2, 3, 1}, perm)

	perm, err = PermutationBetween(NCHW, NHWC)
	require.NoError(t, err)
	require.Equal(t, Permutation{0, 3, 1, 2}, perm)

	// Same layout on both sides yields the identity.
	perm, err = PermutationBetween(HWCN, HWCN)
	require.NoError(t, err)
	require.True(t, perm.IsIdentity())

	// Arbitrary symbol sets work, as long as one is a permutation of the other.
	perm, err = PermutationBetween("ABCD", "DCBA")
	require.NoError(t, err)
	require.Equal(t, Permutation{3, 2, 1, 0}, perm)
}

func TestPermutationBetweenErrors(t *testing.T) {
	_, err := PermutationBetween("NHW", NCHW)
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = PermutationBetween(NHWC, "NCHWX")
	require.ErrorIs(t, err, ErrInvalidFormat)

	// Repeated symbols are rejected up front, on either side.
	_, err = PermutationBetween("NNHW", NCHW)
	require.ErrorIs(t, err, ErrInvalidFormat)
	_, err = PermutationBetween(NHWC, "NCCW")
	require.ErrorIs(t, err, ErrInvalidFormat)

	// Distinct symbols, but not the same symbol set.
	_, err = PermutationBetween("ABCD", "ABCE")
	require.ErrorIs(t, err, ErrInvalidFormat)
	require.ErrorContains(t, err, "not a permutation")
}

func TestPermutationComposeToIdentity(t *testing.T) {
	// Deriving src->dst and composing with dst->src must return every axis to its
	// original position, for every pair of recognized layouts.
	for _, src := range KnownFormats() {
		for _, dst := range KnownFormats() {
			t.Run(fmt.Sprintf("%s->%s", src, dst), func(t *testing.T) {
				forward, err := PermutationBetween(src, dst)
				require.NoError(t, err)
				backward, err := PermutationBetween(dst, src)
				require.NoError(t, err)
				var composed Permutation
				for i, j := range forward {
					composed[i] = backward[j]
				}
				require.Truef(t, composed.IsIdentity(), "%s->%s->%s composed to %v, wanted the identity",
					src, dst, src, composed)
				require.Equal(t, forward.Inverse(), backward)
			})
		}
	}
}

func TestPermutationInverse(t *testing.T) {
	perm := Permutation{0, 2, 3, 1}
	require.Equal(t, Permutation{0, 3, 1, 2}, perm.Inverse())
	require.Equal(t, perm, perm.Inverse().Inverse())
	require.True(t, Permutation{0, 1, 2, 3}.IsIdentity())
	require.False(t, perm.IsIdentity())
}

func TestPermutationTensor(t *testing.T) {
	perm := Permutation{0, 2, 3, 1}
	require.True(t, perm.Tensor().Equal(tensors.FromValue([]int32{0, 2, 3, 1})))
}
