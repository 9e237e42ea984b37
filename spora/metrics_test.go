package spora

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAccumulate(t *testing.T) {
	m := NewMetrics(time.Now())
	m.AddSporas(3)
	m.AddSporas(2)
	m.AddKibs(7)
	m.AddRecallBytesComputed(11)

	snap := m.Snapshot()
	require.Equal(t, uint64(5), snap.Sporas)
	require.Equal(t, uint64(7), snap.Kibs)
	require.Equal(t, uint64(11), snap.RecallBytesComputed)
	require.GreaterOrEqual(t, snap.Elapsed, time.Duration(0))
}

// Best-hash register updates are monotonic in "closer to solution"
// order (spec §3, "Best-hash register").
func TestBestHash_MonotonicUpdate(t *testing.T) {
	b := &BestHash{}
	_, ok := b.Get()
	require.False(t, ok)

	var low, high Hash256
	low[31] = 1
	high[31] = 2

	require.True(t, b.Update(low))
	got, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, low, got)

	require.True(t, b.Update(high))
	got, _ = b.Get()
	require.Equal(t, high, got)

	// A hash no closer than the recorded best does not replace it.
	require.False(t, b.Update(low))
	got, _ = b.Get()
	require.Equal(t, high, got)
}
