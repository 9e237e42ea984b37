// Package poa provides a reference spora.PoAModule implementation. Real
// proof-of-access validation (merkle data-path and tx-path verification
// against a block index) is an out-of-scope external collaborator per
// spec.md §1; this package retrieves chunks from a spora.ChunkStore and
// performs the minimal structural checks a reference implementation
// needs to exercise the validator end to end.
package poa

import (
	"context"

	"github.com/weavemesh/spora-miner/spora"
)

// Module retrieves proofs of access from a chunk store and performs a
// structural (not cryptographic merkle-path) validation: the claimed
// chunk must be retrievable at the recall byte's offset and must be
// nonempty. A full node additionally walks the merkle data-path and
// tx-path against the block index; that walk is the out-of-scope part.
type Module struct {
	store spora.ChunkStore
}

// New builds a PoA module over the given chunk store.
func New(store spora.ChunkStore) *Module {
	return &Module{store: store}
}

// GetPoAFromV2Index implements spora.PoAModule.
func (m *Module) GetPoAFromV2Index(ctx context.Context, byteOffset uint64) (spora.ProofOfAccess, error) {
	chunk, err := m.store.Get(ctx, byteOffset)
	if err != nil {
		return spora.ProofOfAccess{}, err
	}
	return spora.ProofOfAccess{
		Chunk:       chunk,
		BlockOffset: byteOffset,
	}, nil
}

// Validate implements spora.PoAModule. blockIndex is accepted for
// interface compatibility with the real merkle-path walk; this
// reference implementation only checks structural consistency (the
// claimed chunk is nonempty and is exactly the chunk this byte offset
// maps to).
func (m *Module) Validate(ctx context.Context, byteOffset uint64, blockIndex []spora.Hash256, p spora.ProofOfAccess) bool {
	if p.Empty() {
		return false
	}
	if p.BlockOffset != byteOffset {
		return false
	}
	chunk, err := m.store.Get(ctx, byteOffset)
	if err != nil {
		return false
	}
	if len(chunk) != len(p.Chunk) {
		return false
	}
	for i := range chunk {
		if chunk[i] != p.Chunk[i] {
			return false
		}
	}
	return true
}
