// Package spora implements the SPoRA (Succinct Proof of Random Access)
// mining core: the session state machine, candidate-block refresh,
// recall-byte derivation, the stage-one/stage-two/small-weave hashing
// topology, and solution validation.
//
// Everything this package treats as an external collaborator (chunk
// storage, the tx-replay pool, the wallet store, difficulty retargeting,
// PoA retrieval, the RandomX engine itself) is expressed as an
// interface in interfaces.go; concrete implementations live in sibling
// packages (randomx, chunkstore, txpool, wallet, retarget, poa).
package spora

import (
	"time"

	"github.com/holiman/uint256"
)

// Protocol constants. These are wire-compatibility constants and must
// match the reference network; they are not tunables.
const (
	// TimestampFieldSizeLimit is the big-endian width, in bytes, of the
	// block timestamp as it appears in the solution-hash preimage.
	TimestampFieldSizeLimit = 8

	// SearchSpaceSubspacesCount is S, the number of equal partitions of
	// the eligible search space.
	SearchSpaceSubspacesCount = 1024

	// SearchSpaceUpperBoundDepth is how many blocks back the recall
	// search-space upper bound is pinned to, so a miner cannot be
	// raced by data that only just entered the weave.
	SearchSpaceUpperBoundDepth = 50

	// StoreBlocksBehindCurrent bounds how many trailing blocks of chunk
	// data a node is expected to retain for mining.
	StoreBlocksBehindCurrent = 50

	// MiningTimestampRefreshInterval is the cadence at which the
	// candidate block's timestamp (and therefore BDS tail) is refreshed
	// while a round is in flight.
	MiningTimestampRefreshInterval = 10 * time.Second

	// RetargetBlocks is the height interval between difficulty
	// retargets.
	RetargetBlocks = 10

	// RandomxDiffAdjustment is the fixed scaling factor applied by the
	// retarget module when computing a linear difficulty target for the
	// RandomX/SPoRA era, passed through verbatim to that collaborator.
	RandomxDiffAdjustment = 1

	// candidateHistoryWindow is the rolling window (seconds) for which
	// candidate history entries are retained (spec §3, "Candidate
	// history").
	candidateHistoryWindow = 20 * time.Second

	// staleWorkWindow bounds how far behind the current session
	// timestamp an in-flight I/O or stage-two message may be before it
	// is dropped as stale (spec §5, "Timeouts").
	staleWorkWindow = 19 * time.Second
)

// Hash256 is a fixed-size 32-byte hash, used for H0, prevH, and solution
// hashes throughout this package.
type Hash256 [32]byte

// Bytes returns a copy of the hash as a byte slice.
func (h Hash256) Bytes() []byte {
	b := make([]byte, 32)
	copy(b, h[:])
	return b
}

// AsUint256 interprets the hash as a big-endian unsigned 256-bit integer,
// the representation the linear-difficulty test operates on.
func (h Hash256) AsUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// SessionToken fences in-flight work from a previous mining round. Every
// worker message carries the token of the round that scheduled it;
// workers drop any message whose token does not match the session's
// current token (spec §3, "Session Token").
type SessionToken uint64

// Session pairs a session token with its timestamp. Workers do not read
// this type; they take the live token and timestamp from the shared
// WorkState (state.go) when deciding whether a message still belongs to
// the live round.
type Session struct {
	Token     SessionToken
	Timestamp int64 // unix seconds, published alongside the token for late I/O replies
}

// CandidateBlock is the mutable-during-a-round block under construction.
// Every field is a function of (current_block, included_txs, timestamp);
// changing the timestamp or the tx set requires a full recompute (spec
// §3, "Candidate Block").
type CandidateBlock struct {
	Height            uint64
	PreviousBlockHash Hash256
	HashListMerkle    Hash256
	RewardAddress     [32]byte
	Tags              [][]byte
	TxIDs             []Hash256
	TxRoot            Hash256
	BlockSize         uint64
	WeaveSize         uint64
	WalletListRoot    Hash256
	Timestamp         int64
	LastRetarget      int64
	Diff              *uint256.Int
	CumulativeDiff    *uint256.Int
	RewardPool        *uint256.Int
}

// Clone returns a deep-enough copy of the candidate for a refresh that
// must not mutate the previous round's snapshot in place.
func (c *CandidateBlock) Clone() *CandidateBlock {
	cp := *c
	cp.Tags = append([][]byte(nil), c.Tags...)
	cp.TxIDs = append([]Hash256(nil), c.TxIDs...)
	if c.Diff != nil {
		cp.Diff = new(uint256.Int).Set(c.Diff)
	}
	if c.CumulativeDiff != nil {
		cp.CumulativeDiff = new(uint256.Int).Set(c.CumulativeDiff)
	}
	if c.RewardPool != nil {
		cp.RewardPool = new(uint256.Int).Set(c.RewardPool)
	}
	return &cp
}

// BlockDataSegment is the canonical byte sequence derived from a
// candidate block, in two phases: a Base that depends only on
// transaction-dependent fields, and a Final form that also folds in the
// timestamp-dependent fields. Finalization must stay cheap; the base
// step is the expensive one (spec §3, "Block Data Segment").
type BlockDataSegment struct {
	Base  []byte
	Final []byte
}

// Chunk is a fixed-size slice of the weave, addressed by byte offset.
const ChunkSize = 256 * 1024 // 256 KiB

// Solution is reported by a stage-two or small-weave worker to the
// session controller when a hash clears the difficulty threshold.
type Solution struct {
	Session SessionToken
	Nonce   Hash256
	H0      Hash256
	Ts      int64
	Hash    Hash256
}

// WorkComplete is delivered to the parent on a successful round (spec
// §6, "Interface exposed").
type WorkComplete struct {
	CurrentBlockHash Hash256
	FinalBlock       *CandidateBlock
	MinedTxIDs       []Hash256
	BDS              BlockDataSegment
	PoA              ProofOfAccess
}

// ProofOfAccess is the (chunk, metadata) structure proving a miner holds
// the recall byte's chunk. An empty PoA (no chunk) is valid exactly when
// the weave is too small to have a recall subspace.
type ProofOfAccess struct {
	Chunk       []byte
	DataPath    []byte
	TXPath      []byte
	BlockOffset uint64
}

// Empty reports whether this is the empty PoA used for the small-weave
// path.
func (p ProofOfAccess) Empty() bool {
	return len(p.Chunk) == 0
}
