// Package txpool provides a reference spora.TxReplayPool implementation:
// an in-memory pending-set plus a bloom-filter pre-check over recently
// mined tx IDs. The real replay pool (anchor validation, fee-market
// ordering, wallet-balance replay against the live chain) is an
// out-of-scope external collaborator per spec.md §1; this package exists
// to exercise CandidateRefresher.FullRefresh end to end, following the
// teacher's commitTransactions/Pending idiom in miner/worker.go.
package txpool

import (
	"context"
	"sort"
	"sync"

	"github.com/weavemesh/spora-miner/spora"
)

// Pool is a simple FIFO-ordered pending set. It does not replay balances
// or validate anchors; it only tracks which tx IDs are currently pending
// and which have already been mined, the minimum a reference
// implementation needs to pick a deterministic, non-overlapping tx set.
type Pool struct {
	mu      sync.Mutex
	pending map[spora.Hash256]int64 // tx id -> arrival order
	mined   map[spora.Hash256]struct{}
	seq     int64

	recent *RecentSet
}

// NewPool builds an empty pool. expectedRecent sizes the bloom-filter
// pre-check (see NewRecentSet).
func NewPool(expectedRecent uint64) (*Pool, error) {
	recent, err := NewRecentSet(expectedRecent)
	if err != nil {
		return nil, err
	}
	return &Pool{
		pending: make(map[spora.Hash256]int64),
		mined:   make(map[spora.Hash256]struct{}),
		recent:  recent,
	}, nil
}

// Submit adds a tx ID to the pending set, the way a real pool would
// after validating a transaction received from the network.
func (p *Pool) Submit(id spora.Hash256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[id]; ok {
		return
	}
	p.seq++
	p.pending[id] = p.seq
}

// MarkMined removes tx IDs from the pending set and records them as
// mined, so a later Pick never re-includes them (spec §6, "Tx replay
// pool", keeping valid_txs disjoint from previously mined txs).
func (p *Pool) MarkMined(ids []spora.Hash256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.pending, id)
		p.mined[id] = struct{}{}
		p.recent.Add(id)
	}
}

// Pick implements spora.TxReplayPool. It returns every pending tx not
// already mined and not in params.RecentTxIDs, ordered by arrival so the
// candidate block's tx set is deterministic across a partial refresh
// that does not change the pending set. The recent-tx bloom filter is
// consulted first; the exact mined-set lookup runs only for IDs it may
// contain.
func (p *Pool) Pick(ctx context.Context, params spora.PickParams) ([]spora.Hash256, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	type ordered struct {
		id  spora.Hash256
		seq int64
	}
	var candidates []ordered
	for id, seq := range p.pending {
		if params.RecentTxIDs != nil && params.RecentTxIDs.Contains(id) {
			continue
		}
		// MarkMined adds every mined ID to the filter, so a negative
		// answer rules out the exact lookup.
		if p.recent.Contains(id) {
			if _, mined := p.mined[id]; mined {
				continue
			}
		}
		candidates = append(candidates, ordered{id: id, seq: seq})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].seq < candidates[j].seq })

	ids := make([]spora.Hash256, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}
