package spora

import "github.com/holiman/uint256"

// MeetsDifficulty reports whether a solution hash clears the linear
// difficulty target: be_uint_256(hash) > diff (spec §6, "Difficulty
// semantics"). Only the linear form is implemented; the pre-activation
// "leading zero bits" form is not supported at current heights, per
// spec.md's explicit instruction to implement the linear form only.
func MeetsDifficulty(hash Hash256, diff *uint256.Int) bool {
	return hash.AsUint256().Gt(diff)
}

// Closer reports whether candidate is numerically closer to clearing
// diff than current is, i.e. candidate's integer value is larger
// (spec §3, "Best-hash register ... updated monotonically in 'closer to
// solution' order").
func Closer(candidate, current Hash256) bool {
	return candidate.AsUint256().Gt(current.AsUint256())
}
