package spora

import (
	"context"

	"github.com/holiman/uint256"
)

// RandomXEngine is the external RandomX primitive (spec §6). It must be
// initialised in "fast mode" before mining starts; Mode reports whether
// that initialisation succeeded.
type RandomXEngine interface {
	// Mode reports ErrRandomXNotReady if only light-mode state is
	// available.
	Mode() error

	// FastHash computes RandomX_fast(preimage) -> 32-byte hash.
	FastHash(preimage []byte) (Hash256, error)

	// BulkHash drives `iterations` RandomX iterations starting from the
	// two seed nonces, deriving (H0, nonce) pairs internally and
	// dispatching each to Dispatch.Route. It returns once the batch is
	// exhausted or ctx is cancelled.
	BulkHash(ctx context.Context, req BulkHashRequest) error
}

// BulkHashRequest carries everything the bulk-hash primitive needs to
// run one batch and dispatch its output (spec §6, bulk_hash_fast).
type BulkHashRequest struct {
	SeedNonce1, SeedNonce2 Hash256
	BDS                    []byte
	PrevH                  Hash256
	UpperBound             uint64
	Iterations             int
	Dispatch               Dispatcher
	Ref                    WorkRef
}

// Dispatcher routes a derived (encoded byte, H0, nonce) tuple to an I/O
// worker, keeping the RandomX bulk-hash primitive ignorant of worker
// internals (spec §9, "Bulk-hash callback passing worker lists").
type Dispatcher interface {
	Route(recallByteHint uint64, tuple RecallTuple)
}

// RecallTuple is one (H0, nonce) pair and its derived recall byte,
// ready to be handed to an I/O worker.
type RecallTuple struct {
	H0     Hash256
	Nonce  Hash256
	Offset uint64
}

// WorkRef is the (timestamp, difficulty, session) reference every
// dispatched tuple carries, so downstream workers can drop stale work
// without consulting shared state.
type WorkRef struct {
	Timestamp int64
	Diff      *uint256.Int
	Session   SessionToken
}

// ChunkStore is the external chunk store (spec §6). Chunks are
// fixed-size (ChunkSize); a miss returns ErrChunkNotFound.
type ChunkStore interface {
	Get(ctx context.Context, byteOffset uint64) ([]byte, error)
}

// TxReplayPool picks the transaction set for a candidate block (spec
// §6, "Tx replay pool").
type TxReplayPool interface {
	Pick(ctx context.Context, params PickParams) ([]Hash256, error)
}

// PickParams is the input to TxReplayPool.Pick.
type PickParams struct {
	Anchors        []Hash256
	RecentTxIDs    mapsetLike
	Height         uint64
	Diff           *uint256.Int
	Timestamp      int64
	WalletSnapshot WalletMap
	Pending        []Hash256
}

// mapsetLike avoids importing the concrete golang-set type into the
// collaborator contract; txpool.RecentSet satisfies it.
type mapsetLike interface {
	Contains(items ...interface{}) bool
}

// WalletMap is a snapshot of address -> balance used while
// applying transactions and the mining reward.
type WalletMap map[[32]byte]*uint256.Int

// WalletStore is the external wallet-list store (spec §6).
type WalletStore interface {
	Get(ctx context.Context, root Hash256, addresses [][32]byte) (WalletMap, error)
	ApplyTxs(wallets WalletMap, txIDs []Hash256) (WalletMap, error)
	ApplyMiningReward(wallets WalletMap, rewardAddress [32]byte, reward *uint256.Int) (WalletMap, error)
	Root(wallets WalletMap) (Hash256, error)
}

// RetargetModule computes difficulty retargets (spec §6, "Retarget
// module").
type RetargetModule interface {
	MaybeRetarget(height uint64, diff *uint256.Int, ts int64, lastRetarget int64) *uint256.Int
	IsRetargetHeight(height uint64) bool
	NextCumulativeDiff(cdiff, diff *uint256.Int, height uint64) *uint256.Int
}

// PoAModule retrieves and validates proofs of access (spec §6, "PoA
// module").
type PoAModule interface {
	GetPoAFromV2Index(ctx context.Context, byteOffset uint64) (ProofOfAccess, error)
	Validate(ctx context.Context, byteOffset uint64, blockIndex []Hash256, poa ProofOfAccess) bool
}

// BDSBuilder is the external block-data-segment serializer (spec §1,
// "Out of scope ... block data segment serialization"). CandidateRefresher
// calls it to turn a CandidateBlock into wire bytes.
type BDSBuilder interface {
	Base(c *CandidateBlock) ([]byte, error)
	Finalize(base []byte, c *CandidateBlock) ([]byte, error)
}
