// Package retarget provides a reference spora.RetargetModule
// implementation: a linear difficulty retarget over a fixed block
// interval, following the RandomX-era SPoRA sizing spec.md names
// (spora.RetargetBlocks, spora.RandomxDiffAdjustment) but leaving actual
// retargeting arithmetic as an external collaborator per spec.md §1.
// The shape (CalcDifficulty-style entry point, target window lookback)
// follows the teacher's consensus/bsrr.CalcDifficulty.
package retarget

import (
	"github.com/holiman/uint256"

	"github.com/weavemesh/spora-miner/spora"
)

// targetBlockTime is the desired average seconds between blocks; the
// retarget factor scales difficulty to push the observed interval
// toward it.
const targetBlockTime = 120

// Module is a stateless linear difficulty retarget.
type Module struct{}

// New returns a ready-to-use retarget module.
func New() *Module { return &Module{} }

// IsRetargetHeight implements spora.RetargetModule.
func (m *Module) IsRetargetHeight(height uint64) bool {
	return height%spora.RetargetBlocks == 0
}

// MaybeRetarget implements spora.RetargetModule. Off a retarget height
// it returns diff unchanged; on a retarget height it scales diff by the
// ratio of the target interval to the observed interval, clamped to
// [diff/4, diff*4] the way most linear-difficulty chains bound a single
// retarget step to avoid oscillation.
func (m *Module) MaybeRetarget(height uint64, diff *uint256.Int, ts int64, lastRetarget int64) *uint256.Int {
	if !m.IsRetargetHeight(height) || lastRetarget == 0 {
		return new(uint256.Int).Set(diff)
	}

	observed := ts - lastRetarget
	if observed <= 0 {
		observed = 1
	}
	wantedTotal := int64(spora.RetargetBlocks) * targetBlockTime * int64(spora.RandomxDiffAdjustment)

	next := new(uint256.Int).Mul(diff, uint256.NewInt(uint64(wantedTotal)))
	next.Div(next, uint256.NewInt(uint64(observed*int64(spora.RandomxDiffAdjustment))))

	min := new(uint256.Int).Div(diff, uint256.NewInt(4))
	max := new(uint256.Int).Mul(diff, uint256.NewInt(4))
	if next.Lt(min) {
		return min
	}
	if next.Gt(max) {
		return max
	}
	return next
}

// NextCumulativeDiff implements spora.RetargetModule: cumulative
// difficulty is simply the running sum of per-block difficulty, the
// chain-weight measure used to pick the heaviest tip.
func (m *Module) NextCumulativeDiff(cdiff, diff *uint256.Int, height uint64) *uint256.Int {
	base := new(uint256.Int)
	if cdiff != nil {
		base.Set(cdiff)
	}
	return base.Add(base, diff)
}
