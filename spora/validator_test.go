package spora

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// Invariant 3 + invariant 4 (spec §8): the validator re-derives the same
// solution hash the miner found, and a genuine mine round-trips through
// validation as accepted.
func TestValidator_AcceptsGenuineSolution(t *testing.T) {
	engine := &fakeEngine{}
	chunk := []byte("chunk-data")
	poaModule := &fakePoA{chunk: chunk}
	v := NewValidator(engine, poaModule, newTestLogger())

	var nonce, prevH Hash256
	nonce[0] = 0x11
	prevH[0] = 0x22
	bds := []byte("bds-bytes")
	ts := int64(12345)
	upperBound := uint64(1) << 24

	h0, err := engine.FastHash(append(append([]byte{}, nonce[:]...), bds...))
	require.NoError(t, err)

	recallByte, err := DeriveRecallByte(h0, prevH, upperBound)
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), ValidateParams{
		BDS:        bds,
		Nonce:      nonce,
		Ts:         ts,
		Diff:       new(uint256.Int), // zero difficulty: any non-zero hash clears it
		PrevH:      prevH,
		UpperBound: upperBound,
		SPoA:       ProofOfAccess{Chunk: chunk, BlockOffset: recallByte},
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidator_RejectsWhenDifficultyNotMet(t *testing.T) {
	engine := &fakeEngine{}
	chunk := []byte("chunk-data")
	poaModule := &fakePoA{chunk: chunk}
	v := NewValidator(engine, poaModule, newTestLogger())

	var nonce, prevH Hash256
	bds := []byte("bds-bytes")
	upperBound := uint64(1) << 24

	h0, err := engine.FastHash(append(append([]byte{}, nonce[:]...), bds...))
	require.NoError(t, err)
	recallByte, err := DeriveRecallByte(h0, prevH, upperBound)
	require.NoError(t, err)

	maxDiff := new(uint256.Int).Not(new(uint256.Int)) // all-ones: unreachable difficulty
	ok, err := v.Validate(context.Background(), ValidateParams{
		BDS:        bds,
		Nonce:      nonce,
		Ts:         1,
		Diff:       maxDiff,
		PrevH:      prevH,
		UpperBound: upperBound,
		SPoA:       ProofOfAccess{Chunk: chunk, BlockOffset: recallByte},
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidator_RejectsMismatchedPoA(t *testing.T) {
	engine := &fakeEngine{}
	poaModule := &fakePoA{chunk: []byte("expected-chunk")}
	v := NewValidator(engine, poaModule, newTestLogger())

	var nonce, prevH Hash256
	bds := []byte("bds-bytes")
	upperBound := uint64(1) << 24

	h0, err := engine.FastHash(append(append([]byte{}, nonce[:]...), bds...))
	require.NoError(t, err)
	recallByte, err := DeriveRecallByte(h0, prevH, upperBound)
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), ValidateParams{
		BDS:        bds,
		Nonce:      nonce,
		Ts:         1,
		Diff:       new(uint256.Int),
		PrevH:      prevH,
		UpperBound: upperBound,
		SPoA:       ProofOfAccess{Chunk: []byte("wrong-chunk"), BlockOffset: recallByte},
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRetrievePoA_ReturnsStoredChunk(t *testing.T) {
	chunk := []byte("abc")
	poaModule := &fakePoA{chunk: chunk}
	var h0, prevH Hash256
	h0[0] = 1

	poa, err := RetrievePoA(context.Background(), poaModule, h0, prevH, uint64(1)<<20)
	require.NoError(t, err)
	require.Equal(t, chunk, poa.Chunk)
}

func TestRetrievePoA_SmallWeaveReturnsEmptyPoA(t *testing.T) {
	poaModule := &fakePoA{chunk: []byte("x")}
	var h0, prevH Hash256

	poa, err := RetrievePoA(context.Background(), poaModule, h0, prevH, 0)
	require.NoError(t, err)
	require.True(t, poa.Empty())
}
