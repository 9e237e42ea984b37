package spora

import (
	"sync/atomic"

	"github.com/holiman/uint256"
)

// WorkState is the immutable, atomically-swapped snapshot every worker
// reads to get the round's current timestamp, difficulty, BDS, and
// session fencing — the generalisation of the teacher's "session map as
// process-wide table" idiom (spec §9) from just (session, ts) to the
// full set of fields a refresh changes. Workers never lock to read it;
// the controller is the single writer, swapping in a new *WorkState on
// every full or partial refresh (spec §4.6, "broadcast ... to every
// worker").
type WorkState struct {
	Timestamp  int64
	Diff       *uint256.Int
	BDS        []byte // finalized BDS bytes
	PrevH      Hash256
	UpperBound uint64
	Session    SessionToken
	Stage2     []*Stage2Worker
	IO         []*IOWorker
}

// stateHolder wraps atomic.Pointer[WorkState] so every worker type can
// embed the same tiny accessor instead of repeating the load/store
// boilerplate.
type stateHolder struct {
	p atomic.Pointer[WorkState]
}

func (h *stateHolder) Load() *WorkState   { return h.p.Load() }
func (h *stateHolder) Store(s *WorkState) { h.p.Store(s) }

// isLive reports whether a message stamped with (session, ts) still
// belongs to the round described by state: the session tokens must
// match and ts must be within staleWorkWindow of the state's published
// timestamp (spec §5, "Timeouts"; spec §4.2/§4.4, the "ts + 19 >=
// session_timestamp" checks).
func isLive(state *WorkState, session SessionToken, ts int64) bool {
	if state == nil || state.Session != session {
		return false
	}
	return ts+int64(staleWorkWindow.Seconds()) >= state.Timestamp
}
