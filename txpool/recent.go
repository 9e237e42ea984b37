package txpool

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/bloomfilter/v2"

	"github.com/weavemesh/spora-miner/spora"
)

// RecentSet is a probabilistic pre-check over recently-seen tx IDs,
// consulted by Pool.Pick before it does the exact, expensive membership
// test against the tx-replay pool's own set (spec §6, "recent_tx_map").
// A bloom filter is the right shape here: false positives just cost one
// wasted exact lookup and false negatives are impossible. Entries are
// never removed and nothing in this package rebuilds or clears the set;
// it only grows.
type RecentSet struct {
	filter *bloomfilter.Filter
}

// NewRecentSet builds a filter sized for expectedItems entries with 7
// bits/item and 4 hash functions, a false-positive rate of roughly 3.6%
// once expectedItems entries have been added.
func NewRecentSet(expectedItems uint64) (*RecentSet, error) {
	if expectedItems == 0 {
		expectedItems = 1
	}
	f, err := bloomfilter.New(expectedItems*7, 4)
	if err != nil {
		return nil, fmt.Errorf("txpool: build recent-tx bloom filter: %w", err)
	}
	return &RecentSet{filter: f}, nil
}

// Add records a tx ID as recently seen.
func (r *RecentSet) Add(id spora.Hash256) {
	r.filter.Add(bloomfilter.Hash64(idKey(id)))
}

// Contains implements the mapsetLike contract CandidateRefresher's
// PickParams expects: it reports whether any of the given tx IDs may
// have been seen recently. A true result is only a hint; callers must
// still check the exact set before treating the tx as a duplicate.
func (r *RecentSet) Contains(items ...interface{}) bool {
	for _, item := range items {
		id, ok := item.(spora.Hash256)
		if !ok {
			continue
		}
		if r.filter.Contains(bloomfilter.Hash64(idKey(id))) {
			return true
		}
	}
	return false
}

func idKey(id spora.Hash256) uint64 {
	return binary.BigEndian.Uint64(id[:8])
}
