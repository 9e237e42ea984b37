package spora

import (
	"context"
	"testing"

	mapset "github.com/deckarep/golang-set"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestCandidateRefresher_FullRefreshBuildsChildBlock(t *testing.T) {
	deps := RefresherDeps{Txs: fakeTxPool{}, Wallets: fakeWalletStore{}, Retarget: fakeRetarget{}, BDS: fakeBDS{}}
	r := NewCandidateRefresher(deps, newTestLogger(), [32]byte{0x01})

	parent := &CandidateBlock{Height: 0, Diff: new(uint256.Int).SetUint64(1)}

	c, bds, err := r.FullRefresh(context.Background(), parent, nil, nil, mapset.NewSet(), Hash256{})
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Height)
	require.NotEmpty(t, bds.Base)
	require.NotEmpty(t, bds.Final)
	require.Equal(t, uint64(1), c.Diff.Uint64())
	require.Equal(t, uint64(1), c.CumulativeDiff.Uint64())
}

// Invariant 5 (spec §8): timestamps recorded in the candidate history
// are strictly increasing within a round.
func TestCandidateRefresher_PartialRefreshTimestampsStrictlyIncrease(t *testing.T) {
	deps := RefresherDeps{Txs: fakeTxPool{}, Wallets: fakeWalletStore{}, Retarget: fakeRetarget{}, BDS: fakeBDS{}}
	r := NewCandidateRefresher(deps, newTestLogger(), [32]byte{0x01})

	parent := &CandidateBlock{Height: 0, Diff: new(uint256.Int).SetUint64(1)}
	c, _, err := r.FullRefresh(context.Background(), parent, nil, nil, mapset.NewSet(), Hash256{})
	require.NoError(t, err)

	prevTs := c.Timestamp
	for i := 0; i < 3; i++ {
		next, _, err := r.PartialRefresh(context.Background(), c, parent)
		require.NoError(t, err)
		require.Greater(t, next.Timestamp, prevTs)
		prevTs = next.Timestamp
		c = next
	}
}

// spec §4.6, "Partial refresh": every timestamp-only refresh recomputes
// the miner reward and reapplies it to a wallet snapshot, not just the
// difficulty-derived fields.
func TestCandidateRefresher_PartialRefreshRecomputesRewardAndWalletRoot(t *testing.T) {
	deps := RefresherDeps{Txs: fakeTxPool{}, Wallets: fakeWalletStore{}, Retarget: fakeRetarget{}, BDS: fakeBDS{}}
	r := NewCandidateRefresher(deps, newTestLogger(), [32]byte{0x01})

	parent := &CandidateBlock{Height: 0, Diff: new(uint256.Int).SetUint64(1)}
	c, _, err := r.FullRefresh(context.Background(), parent, nil, nil, mapset.NewSet(), Hash256{})
	require.NoError(t, err)
	require.NotNil(t, c.RewardPool)
	require.NotEqual(t, Hash256{}, c.WalletListRoot)

	firstRoot := c.WalletListRoot
	firstReward := new(uint256.Int).Set(c.RewardPool)

	c.TxIDs = append(c.TxIDs, Hash256{0x42})
	next, bds, err := r.PartialRefresh(context.Background(), c, parent)
	require.NoError(t, err)
	require.NotEmpty(t, bds.Final)
	require.NotNil(t, next.RewardPool)
	require.False(t, next.RewardPool.Eq(firstReward))
	require.NotEqual(t, firstRoot, next.WalletListRoot)
}

func TestCandidateRefresher_FullRefreshSetsLastRetargetAtRetargetHeight(t *testing.T) {
	deps := RefresherDeps{Txs: fakeTxPool{}, Wallets: fakeWalletStore{}, Retarget: fakeRetarget{}, BDS: fakeBDS{}}
	r := NewCandidateRefresher(deps, newTestLogger(), [32]byte{})

	parent := &CandidateBlock{Height: RetargetBlocks - 1, Diff: new(uint256.Int).SetUint64(1)}
	c, _, err := r.FullRefresh(context.Background(), parent, nil, nil, mapset.NewSet(), Hash256{})
	require.NoError(t, err)
	require.Equal(t, uint64(RetargetBlocks), c.Height)
	require.Equal(t, c.Timestamp, c.LastRetarget)
}
