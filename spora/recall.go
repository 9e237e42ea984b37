package spora

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// searchSpacePolicy maps an upper bound (in bytes) to the fraction of
// the weave that is eligible for search. The protocol searches the
// entire region behind the pinned upper bound; this is a seam kept as a
// named function, not an inline constant, because the reference network
// has changed this policy across forks without touching the rest of the
// derivation.
func searchSpacePolicy(upperBound uint64) uint64 {
	return upperBound
}

// DeriveRecallByte maps (H0, prevH, upperBound) to a byte offset in
// [0, upperBound), or reports ErrWeaveTooSmall when the weave does not
// support a recall subspace. The derivation is pure and must be
// byte-identical to the verifier's (spec §4.1).
func DeriveRecallByte(h0, prevH Hash256, upperBound uint64) (uint64, error) {
	if upperBound == 0 {
		return 0, ErrWeaveTooSmall
	}

	searchSpace := searchSpacePolicy(upperBound)
	searchSubspaceSize := searchSpace / SearchSpaceSubspacesCount
	if searchSubspaceSize == 0 {
		return 0, ErrWeaveTooSmall
	}

	subspaceNumber := modBigEndian(h0[:], SearchSpaceSubspacesCount)
	evenSubspaceSize := upperBound / SearchSpaceSubspacesCount
	subspaceStart := subspaceNumber * evenSubspaceSize

	subspaceSize := upperBound - subspaceStart
	if evenSubspaceSize < subspaceSize {
		subspaceSize = evenSubspaceSize
	}
	if subspaceSize == 0 {
		return 0, ErrWeaveTooSmall
	}

	seed := sha256.Sum256(append(append([]byte{}, prevH[:]...), beVarint(subspaceNumber)...))
	searchSubspaceStart := modBigEndian(seed[:], subspaceSize)

	h0Digest := sha256.Sum256(h0[:])
	searchSubspaceByte := modBigEndian(h0Digest[:], searchSubspaceSize)

	return subspaceStart + (searchSubspaceStart+searchSubspaceByte)%subspaceSize, nil
}

// modBigEndian interprets b as a big-endian unsigned integer ("be_uint")
// and reduces it modulo mod, matching the spec's "be_uint(x) mod m"
// operations exactly (the digest is wider than 64 bits, so the
// reduction must happen on the full-width integer, not on a
// pre-truncated uint64).
func modBigEndian(b []byte, mod uint64) uint64 {
	if mod == 0 {
		return 0
	}
	v := new(big.Int).SetBytes(b)
	m := new(big.Int).SetUint64(mod)
	v.Mod(v, m)
	return v.Uint64()
}

// sha256Hash is a small helper wrapping crypto/sha256 for callers that
// work in terms of Hash256 rather than raw byte slices.
func sha256Hash(b []byte) Hash256 {
	return sha256.Sum256(b)
}

// beVarint encodes n as a minimal big-endian byte sequence (no leading
// zero byte for nonzero n), mirroring the wire "be_varint" used as input
// to the subspace seed hash.
func beVarint(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}
