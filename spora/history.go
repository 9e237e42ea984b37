package spora

import (
	"sync"
	"time"
)

// historyEntry pairs a candidate with the BDS it was mined against.
type historyEntry struct {
	candidate *CandidateBlock
	bds       BlockDataSegment
}

// candidateHistory is the bounded `timestamp -> (candidate, BDS)`
// mapping retaining candidates for the last candidateHistoryWindow
// (spec §3, "Candidate history"). It plays the same role the teacher's
// unconfirmedBlocks ring plays for mined blocks in miner/unconfirmed.go
// — a small, self-pruning set the controller consults for late
// arrivals — but keyed by timestamp and pruned by wall-clock age rather
// than by chain depth, since solutions here arrive within seconds, not
// blocks.
type candidateHistory struct {
	mu      sync.RWMutex
	entries map[int64]historyEntry
}

func newCandidateHistory() *candidateHistory {
	return &candidateHistory{entries: make(map[int64]historyEntry)}
}

// Put records a candidate for later lookup by its timestamp.
func (h *candidateHistory) Put(ts int64, candidate *CandidateBlock, bds BlockDataSegment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[ts] = historyEntry{candidate: candidate, bds: bds}
}

// Get looks up the candidate recorded for ts, returning ok=false if it
// has been evicted or was never recorded (spec §4.7, "look up
// (candidate, BDS) in history; if absent, drop").
func (h *candidateHistory) Get(ts int64) (*CandidateBlock, BlockDataSegment, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[ts]
	return e.candidate, e.bds, ok
}

// Evict drops every entry at or older than now - candidateHistoryWindow (spec
// §3, "Entries older than current_timestamp - 20 s are evicted on each
// refresh").
func (h *candidateHistory) Evict(now time.Time) {
	cutoff := now.Add(-candidateHistoryWindow).Unix()
	h.mu.Lock()
	defer h.mu.Unlock()
	for ts := range h.entries {
		if ts <= cutoff {
			delete(h.entries, ts)
		}
	}
}

// Len reports the number of retained entries, used by tests asserting
// the window invariant.
func (h *candidateHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
