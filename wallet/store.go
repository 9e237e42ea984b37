// Package wallet provides a reference spora.WalletStore implementation:
// an in-memory address -> balance map with a deterministic merkle root.
// The real wallet-list store (persisted, chain-replayed, shared with the
// rest of the node) is an out-of-scope external collaborator per
// spec.md §1.
package wallet

import (
	"context"
	"crypto/sha256"
	"sort"

	"github.com/holiman/uint256"

	"github.com/weavemesh/spora-miner/spora"
)

// Store is an in-memory wallet-list backing store keyed by wallet root.
// Each root maps to the balance snapshot it was computed from, so Get
// can serve the exact snapshot a candidate round started from even
// after later rounds have published other roots.
type Store struct {
	snapshots map[spora.Hash256]spora.WalletMap
}

// NewStore returns an empty store seeded with the genesis root ->
// genesis snapshot.
func NewStore(genesisRoot spora.Hash256, genesis spora.WalletMap) *Store {
	s := &Store{snapshots: make(map[spora.Hash256]spora.WalletMap)}
	s.snapshots[genesisRoot] = cloneMap(genesis)
	return s
}

// Get implements spora.WalletStore. addresses is accepted for interface
// compatibility with a sparse-snapshot store; this reference
// implementation always holds the full snapshot in memory and ignores
// it.
func (s *Store) Get(ctx context.Context, root spora.Hash256, addresses [][32]byte) (spora.WalletMap, error) {
	snap, ok := s.snapshots[root]
	if !ok {
		return spora.WalletMap{}, nil
	}
	return cloneMap(snap), nil
}

// ApplyTxs implements spora.WalletStore. Each tx ID debits one unit from
// its own address-derived sender (skipped when that balance is zero);
// the unit is not credited to any other wallet. This is enough to
// exercise the wallet-root recompute path without needing real
// transaction bodies (those live in the out-of-scope tx-replay pool).
func (s *Store) ApplyTxs(wallets spora.WalletMap, txIDs []spora.Hash256) (spora.WalletMap, error) {
	next := cloneMap(wallets)
	for _, id := range txIDs {
		addr := addrFromID(id)
		bal, ok := next[addr]
		if !ok {
			bal = new(uint256.Int)
		}
		if bal.IsZero() {
			continue
		}
		spent := new(uint256.Int).SetUint64(1)
		if bal.Lt(spent) {
			continue
		}
		next[addr] = new(uint256.Int).Sub(bal, spent)
	}
	return next, nil
}

// ApplyMiningReward implements spora.WalletStore.
func (s *Store) ApplyMiningReward(wallets spora.WalletMap, rewardAddress [32]byte, reward *uint256.Int) (spora.WalletMap, error) {
	next := cloneMap(wallets)
	bal, ok := next[rewardAddress]
	if !ok {
		bal = new(uint256.Int)
	}
	next[rewardAddress] = new(uint256.Int).Add(bal, reward)
	return next, nil
}

// Root implements spora.WalletStore: a sorted-address merkle-style fold
// so the root is stable regardless of map iteration order, and stores
// the snapshot under that root for later Get calls.
func (s *Store) Root(wallets spora.WalletMap) (spora.Hash256, error) {
	addrs := make([][32]byte, 0, len(wallets))
	for addr := range wallets {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})

	h := sha256.New()
	for _, addr := range addrs {
		h.Write(addr[:])
		bal := wallets[addr]
		if bal != nil {
			balBytes := bal.Bytes32()
			h.Write(balBytes[:])
		}
	}
	var root spora.Hash256
	copy(root[:], h.Sum(nil))

	s.snapshots[root] = cloneMap(wallets)
	return root, nil
}

func addrFromID(id spora.Hash256) [32]byte {
	var addr [32]byte
	copy(addr[:], id[:])
	return addr
}

func cloneMap(m spora.WalletMap) spora.WalletMap {
	out := make(spora.WalletMap, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = new(uint256.Int).Set(v)
	}
	return out
}
