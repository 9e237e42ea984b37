package spora

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is the process-wide counter set updated by workers (spec §3,
// "Mining metrics"). All counters are plain atomics, owned by no single
// worker, shared read/write by the pool the way the teacher's
// worker.newTxs / worker.running counters are shared between the
// newWorkLoop and mainLoop goroutines in miner/worker.go.
type Metrics struct {
	sporas              uint64
	kibs                uint64
	recallBytesComputed uint64
	startedAt           int64 // unix nanos
}

// NewMetrics returns a metrics set stamped with the current time.
func NewMetrics(startedAt time.Time) *Metrics {
	return &Metrics{startedAt: startedAt.UnixNano()}
}

// AddSporas increments the hash-attempt counter.
func (m *Metrics) AddSporas(n uint64) { atomic.AddUint64(&m.sporas, n) }

// AddKibs increments the fetched-chunk counter, in KiB.
func (m *Metrics) AddKibs(n uint64) { atomic.AddUint64(&m.kibs, n) }

// AddRecallBytesComputed increments the recall-byte derivation counter.
func (m *Metrics) AddRecallBytesComputed(n uint64) {
	atomic.AddUint64(&m.recallBytesComputed, n)
}

// Snapshot is a point-in-time read of all counters, used for the
// performance log emitted on session stop (spec §4.7).
type Snapshot struct {
	Sporas              uint64
	Kibs                uint64
	RecallBytesComputed uint64
	Elapsed             time.Duration
}

// Snapshot reads all counters without synchronizing with in-flight
// writers beyond what atomic load guarantees.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Sporas:              atomic.LoadUint64(&m.sporas),
		Kibs:                atomic.LoadUint64(&m.kibs),
		RecallBytesComputed: atomic.LoadUint64(&m.recallBytesComputed),
		Elapsed:             time.Since(time.Unix(0, atomic.LoadInt64(&m.startedAt))),
	}
}

// BestHash is the single 32-byte register surfacing the round's best
// near-miss (spec §3, "Best-hash register"). Updates are monotonic in
// "closer to solution" order, applied as a compare-and-swap guarded by a
// mutex (a single uint256 compare is cheap enough that a lock is
// simpler than a lock-free CAS loop over 32 bytes).
type BestHash struct {
	mu  sync.Mutex
	val Hash256
	set bool
}

// Update replaces the register if candidate is closer to a solution
// than the current value, or if nothing has been recorded yet. It
// reports whether the register changed.
func (b *BestHash) Update(candidate Hash256) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.set || Closer(candidate, b.val) {
		b.val = candidate
		b.set = true
		return true
	}
	return false
}

// Get returns the current best hash and whether one has been recorded.
func (b *BestHash) Get() (Hash256, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.val, b.set
}
