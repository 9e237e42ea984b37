// Package bds provides a reference spora.BDSBuilder implementation: a
// flat concatenation of a candidate block's fields into base and final
// byte sequences. The real block-data-segment wire format (field
// ordering, length-prefixing, signature placement) is an out-of-scope
// external collaborator per spec.md §1; this package exists so
// CandidateRefresher has a concrete serializer to exercise the
// base/finalize split end to end.
package bds

import (
	"encoding/binary"

	"github.com/weavemesh/spora-miner/spora"
)

// Builder implements spora.BDSBuilder.
type Builder struct{}

// New returns a ready-to-use builder.
func New() *Builder { return &Builder{} }

// Base serializes the timestamp-independent fields of c (height,
// previous block hash, tx root, block size, weave size, tx IDs, tags):
// the transaction-dependent half of the split (spec §3, "Block Data
// Segment"). HashListMerkle and RewardAddress are not serialized.
func (b *Builder) Base(c *spora.CandidateBlock) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendUint64(buf, c.Height)
	buf = append(buf, c.PreviousBlockHash[:]...)
	buf = append(buf, c.TxRoot[:]...)
	buf = appendUint64(buf, c.BlockSize)
	buf = appendUint64(buf, c.WeaveSize)
	buf = appendUint64(buf, uint64(len(c.TxIDs)))
	for _, id := range c.TxIDs {
		buf = append(buf, id[:]...)
	}
	for _, tag := range c.Tags {
		buf = appendUint64(buf, uint64(len(tag)))
		buf = append(buf, tag...)
	}
	return buf, nil
}

// Finalize appends the timestamp-dependent tail to base: ts, diff,
// cumulative diff, last retarget, reward pool, and the wallet-list root
// (spec §3, "Finalization must stay cheap").
func (b *Builder) Finalize(base []byte, c *spora.CandidateBlock) ([]byte, error) {
	buf := make([]byte, 0, len(base)+128)
	buf = append(buf, base...)
	buf = appendInt64(buf, c.Timestamp)
	buf = appendInt64(buf, c.LastRetarget)
	buf = append(buf, c.WalletListRoot[:]...)
	if c.Diff != nil {
		d := c.Diff.Bytes32()
		buf = append(buf, d[:]...)
	}
	if c.CumulativeDiff != nil {
		cd := c.CumulativeDiff.Bytes32()
		buf = append(buf, cd[:]...)
	}
	if c.RewardPool != nil {
		rp := c.RewardPool.Bytes32()
		buf = append(buf, rp[:]...)
	}
	return buf, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}
