package spora

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// Invariant 1 (spec §8): for any (H0, prevH, upperBound) with
// searchSubspaceSize > 0, the derived recall byte lies in
// [0, upperBound) and re-deriving from the same inputs is bit-for-bit
// identical, the property the verifier relies on.
func TestDeriveRecallByte_InRangeAndDeterministic(t *testing.T) {
	cases := []uint64{
		1 << 20,
		1 << 24,
		SearchSpaceSubspacesCount * 17,
		SearchSpaceSubspacesCount*1000 + 3,
	}

	for _, upperBound := range cases {
		upperBound := upperBound
		t.Run("", func(t *testing.T) {
			var h0, prevH Hash256
			_, err := rand.Read(h0[:])
			require.NoError(t, err)
			_, err = rand.Read(prevH[:])
			require.NoError(t, err)

			offset, err := DeriveRecallByte(h0, prevH, upperBound)
			require.NoError(t, err)
			require.Less(t, offset, upperBound)

			again, err := DeriveRecallByte(h0, prevH, upperBound)
			require.NoError(t, err)
			require.Equal(t, offset, again)
		})
	}
}

// S5 (spec §8): fixed inputs produce a fixed, reproducible recall byte.
// want is the derivation's independently computed output for this
// vector, so a change to the derivation's semantics fails this test
// even when the function stays pure and stable across repeated calls.
func TestDeriveRecallByte_FixedVectorIsStable(t *testing.T) {
	var h0, prevH Hash256
	for i := range h0 {
		h0[i] = 0x01
	}
	for i := range prevH {
		prevH[i] = 0x02
	}
	upperBound := uint64(1) << 30
	const want = uint64(270520791)

	for i := 0; i < 5; i++ {
		got, err := DeriveRecallByte(h0, prevH, upperBound)
		require.NoError(t, err)
		require.Less(t, got, upperBound)
		require.Equal(t, want, got)
	}
}

func TestDeriveRecallByte_WeaveTooSmall(t *testing.T) {
	var h0, prevH Hash256
	_, err := DeriveRecallByte(h0, prevH, 0)
	require.ErrorIs(t, err, ErrWeaveTooSmall)

	// upperBound smaller than SearchSpaceSubspacesCount collapses the
	// even-subspace size to zero.
	_, err = DeriveRecallByte(h0, prevH, SearchSpaceSubspacesCount-1)
	require.ErrorIs(t, err, ErrWeaveTooSmall)
}

func TestIsWeaveTooSmall(t *testing.T) {
	require.True(t, IsWeaveTooSmall(0))
	require.True(t, IsWeaveTooSmall(SearchSpaceSubspacesCount-1))
	require.False(t, IsWeaveTooSmall(SearchSpaceSubspacesCount*4))
}
