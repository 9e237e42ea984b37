package spora

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// Invariant 2 (spec §8): for any accepted solution,
// be_uint_256(solution_hash) > diff.
func TestMeetsDifficulty(t *testing.T) {
	var low, high Hash256
	low[31] = 1
	high[0] = 0xFF

	diff := new(uint256.Int).SetUint64(5)
	require.False(t, MeetsDifficulty(low, diff))
	require.True(t, MeetsDifficulty(high, diff))

	// A hash exactly equal to diff does not clear it; the test is
	// strictly greater-than.
	eq := Hash256{}
	eq[31] = 5
	require.False(t, MeetsDifficulty(eq, diff))
}

func TestCloser(t *testing.T) {
	var a, b Hash256
	a[31] = 10
	b[31] = 5
	require.True(t, Closer(a, b))
	require.False(t, Closer(b, a))
	require.False(t, Closer(a, a))
}
