package spora

import (
	"context"
	"math/rand"

	"go.uber.org/zap"
)

// Stage1Worker drives a tight loop over the external RandomX bulk-hash
// primitive, which internally consumes two seed nonces, performs the
// RandomX iterations, derives a recall byte per (H0, nonce) pair, and
// dispatches each tuple to a pseudo-randomly shuffled I/O worker (spec
// §4.3). The worker carries no per-iteration state visible to the
// controller; between batches it only checks whether ctx has been
// cancelled and reloads the round's shared WorkState for the next batch.
type Stage1Worker struct {
	id         int
	engine     RandomXEngine
	iterations int
	metrics    *Metrics
	log        *zap.SugaredLogger
	state      *stateHolder
	rng        *rand.Rand
}

// NewStage1Worker constructs a stage-one worker. iterations is the
// batch size handed to RandomXEngine.BulkHash on each loop pass.
func NewStage1Worker(id int, engine RandomXEngine, iterations int, metrics *Metrics, log *zap.SugaredLogger, state *stateHolder) *Stage1Worker {
	return &Stage1Worker{
		id:         id,
		engine:     engine,
		iterations: iterations,
		metrics:    metrics,
		log:        log,
		state:      state,
		rng:        rand.New(rand.NewSource(int64(id) + 1)),
	}
}

// Run loops calling BulkHash against the current WorkState until ctx is
// cancelled. If no stage-two workers are available for the round, the
// batch is skipped rather than dispatching into a void (spec §4.3, "If
// no stage-two workers are available, the batch is skipped").
func (w *Stage1Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		state := w.state.Load()
		if state == nil || len(state.Stage2) == 0 || len(state.IO) == 0 {
			continue
		}

		var seed1, seed2 Hash256
		w.rng.Read(seed1[:])
		w.rng.Read(seed2[:])

		dispatcher := &shuffledDispatcher{
			io:      state.IO,
			stage2:  state.Stage2,
			ts:      state.Timestamp,
			session: state.Session,
			rng:     w.rng,
		}

		err := w.engine.BulkHash(ctx, BulkHashRequest{
			SeedNonce1: seed1,
			SeedNonce2: seed2,
			BDS:        state.BDS,
			PrevH:      state.PrevH,
			UpperBound: state.UpperBound,
			Iterations: w.iterations,
			Dispatch:   dispatcher,
		})
		if err != nil {
			w.log.Debugw("bulk hash batch failed", "err", err)
			continue
		}
		w.metrics.AddRecallBytesComputed(uint64(w.iterations))
	}
}

// shuffledDispatcher routes a derived recall tuple to a pseudo-randomly
// chosen I/O worker and a chosen stage-two worker, keeping the RandomX
// primitive ignorant of worker internals (spec §9, "Bulk-hash callback
// passing worker lists ... reimplement as an interface taking a dispatch
// object").
type shuffledDispatcher struct {
	io      []*IOWorker
	stage2  []*Stage2Worker
	ts      int64
	session SessionToken
	rng     *rand.Rand
}

func (d *shuffledDispatcher) Route(recallByteHint uint64, tuple RecallTuple) {
	io := d.io[d.rng.Intn(len(d.io))]
	s2 := d.stage2[int(recallByteHint)%len(d.stage2)]
	io.Submit(ioRequest{
		offset:  tuple.Offset,
		h0:      tuple.H0,
		nonce:   tuple.Nonce,
		stage2:  s2,
		ts:      d.ts,
		session: d.session,
	})
}
