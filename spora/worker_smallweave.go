package spora

import (
	"context"
	"crypto/rand"

	"go.uber.org/zap"
)

// SmallWeaveWorker is the degenerate single-threaded path activated when
// the weave is too small to support a recall subspace
// (searchSubspaceSize == 0). It hashes (H0, prevH, ts, ∅) directly,
// without a recall byte or chunk fetch, and runs without an idle tick
// since there is no I/O to wait on (spec §4.5).
type SmallWeaveWorker struct {
	engine   RandomXEngine
	metrics  *Metrics
	best     *BestHash
	solution chan<- Solution
	log      *zap.SugaredLogger
	state    *stateHolder
}

// NewSmallWeaveWorker constructs the small-weave fallback worker.
func NewSmallWeaveWorker(engine RandomXEngine, metrics *Metrics, best *BestHash, solutionCh chan<- Solution, log *zap.SugaredLogger, state *stateHolder) *SmallWeaveWorker {
	return &SmallWeaveWorker{
		engine:   engine,
		metrics:  metrics,
		best:     best,
		solution: solutionCh,
		log:      log,
		state:    state,
	}
}

// Run loops generating a random nonce, computing H0 = RandomX_fast(nonce
// || BDS), and testing solution_hash = RandomX_fast(H0 || prevH ||
// be64(ts) || ∅) against the active difficulty, until ctx is cancelled.
func (w *SmallWeaveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		state := w.state.Load()
		if state == nil {
			continue
		}

		var nonce Hash256
		if _, err := rand.Read(nonce[:]); err != nil {
			w.log.Warnw("small-weave nonce generation failed", "err", err)
			continue
		}

		preimage := make([]byte, 0, 32+len(state.BDS))
		preimage = append(preimage, nonce[:]...)
		preimage = append(preimage, state.BDS...)
		h0, err := w.engine.FastHash(preimage)
		if err != nil {
			w.log.Debugw("small-weave H0 hash failed", "err", err)
			continue
		}

		hash, err := hashSolution(w.engine, h0, state.PrevH, state.Timestamp, nil)
		if err != nil {
			w.log.Debugw("small-weave solution hash failed", "err", err)
			continue
		}
		w.metrics.AddSporas(1)

		if MeetsDifficulty(hash, state.Diff) {
			select {
			case w.solution <- Solution{Session: state.Session, Nonce: nonce, H0: h0, Ts: state.Timestamp, Hash: hash}:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		w.best.Update(hash)
	}
}
