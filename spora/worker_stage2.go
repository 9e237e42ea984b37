package spora

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// stage2Msg is what an I/O worker hands a stage-two worker once it has
// fetched the recall byte's chunk (spec §4.4).
type stage2Msg struct {
	chunk   []byte
	h0      Hash256
	nonce   Hash256
	ts      int64
	session SessionToken
}

// Stage2Worker computes the solution hash for a fetched chunk, tests it
// against the active difficulty, and either reports a solution to the
// controller or updates the shared best-hash register (spec §4.4).
type Stage2Worker struct {
	id       int
	engine   RandomXEngine
	metrics  *Metrics
	best     *BestHash
	solution chan<- Solution
	log      *zap.SugaredLogger
	state    *stateHolder

	msgCh chan stage2Msg
	count uint64
}

// NewStage2Worker constructs a stage-two worker. solutionCh is the
// controller's inbox for claimed solutions (spec §4.7).
func NewStage2Worker(id int, engine RandomXEngine, metrics *Metrics, best *BestHash, solutionCh chan<- Solution, log *zap.SugaredLogger, state *stateHolder) *Stage2Worker {
	return &Stage2Worker{
		id:       id,
		engine:   engine,
		metrics:  metrics,
		best:     best,
		solution: solutionCh,
		log:      log,
		state:    state,
		msgCh:    make(chan stage2Msg, 256),
	}
}

// Submit enqueues a fetched chunk for hashing.
func (w *Stage2Worker) Submit(msg stage2Msg) bool {
	select {
	case w.msgCh <- msg:
		return true
	default:
		return false
	}
}

// Run drains the worker's inbox, idle-ticking every 200ms the way the
// I/O worker does, until ctx is cancelled (spec §5, "stage-two workers
// idle-tick at 200 ms to drain messages").
func (w *Stage2Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case msg := <-w.msgCh:
			w.handle(msg)
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Stage2Worker) handle(msg stage2Msg) {
	state := w.state.Load()
	if !isLive(state, msg.session, msg.ts) {
		return
	}

	hash, err := hashSolution(w.engine, msg.h0, state.PrevH, msg.ts, msg.chunk)
	if err != nil {
		w.log.Debugw("stage-two hash failed", "err", err)
		return
	}

	atomic.AddUint64(&w.count, 1)
	w.metrics.AddSporas(1)

	if MeetsDifficulty(hash, state.Diff) {
		select {
		case w.solution <- Solution{Session: msg.session, Nonce: msg.nonce, H0: msg.h0, Ts: msg.ts, Hash: hash}:
		default:
			// Controller inbox momentarily full (e.g. it is already
			// validating an earlier solution for this session); the
			// send would otherwise block a stage-two worker forever.
			// A second valid nonce arriving this close together is
			// vanishingly unlikely for real difficulties, and losing it
			// only costs a missed improvement within the same round.
		}
		return
	}
	w.best.Update(hash)
}

// hashSolution computes RandomX_fast(H0 || prevH || be64(ts) || chunk),
// the wire format fixed by spec §6. For the small-weave path chunk is
// empty.
func hashSolution(engine RandomXEngine, h0, prevH Hash256, ts int64, chunk []byte) (Hash256, error) {
	preimage := make([]byte, 0, 32+32+TimestampFieldSizeLimit+len(chunk))
	preimage = append(preimage, h0[:]...)
	preimage = append(preimage, prevH[:]...)
	var tsBuf [TimestampFieldSizeLimit]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts))
	preimage = append(preimage, tsBuf[:]...)
	preimage = append(preimage, chunk...)
	return engine.FastHash(preimage)
}
