package spora

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ioRequest is what a stage-one worker hands an I/O worker once it has
// derived a recall byte for a nonce (spec §4.2).
type ioRequest struct {
	offset  uint64
	h0      Hash256
	nonce   Hash256
	stage2  *Stage2Worker
	ts      int64
	session SessionToken
}

// IOWorker owns a handle to the chunk store and answers recall-byte
// lookups forwarded by stage-one workers (spec §4.2).
type IOWorker struct {
	id      int
	store   ChunkStore
	metrics *Metrics
	log     *zap.SugaredLogger
	state   *stateHolder

	reqCh chan ioRequest
}

// NewIOWorker constructs an I/O worker bound to store. state is shared
// with the session controller so the worker can check a request's
// timestamp against the round's published session timestamp without a
// second message channel (spec §4.2, "ts + 19 >= session_timestamp").
func NewIOWorker(id int, store ChunkStore, metrics *Metrics, log *zap.SugaredLogger, state *stateHolder) *IOWorker {
	return &IOWorker{
		id:      id,
		store:   store,
		metrics: metrics,
		log:     log,
		state:   state,
		reqCh:   make(chan ioRequest, 256),
	}
}

// Submit enqueues a recall-byte lookup. It reports whether the worker's
// queue accepted it; a full queue means this worker is saturated.
// shuffledDispatcher ignores the result, so a rejected request is
// dropped.
func (w *IOWorker) Submit(req ioRequest) bool {
	select {
	case w.reqCh <- req:
		return true
	default:
		return false
	}
}

// Run drives the worker's receive loop until ctx is cancelled, at which
// point the chunk-store handle is released by the caller that owns it
// (spec §4.2, "On shutdown signal, close file handles").
func (w *IOWorker) Run(ctx context.Context) error {
	// A 200ms idle tick keeps the loop from ever blocking indefinitely
	// on the request channel, so a session invalidation or shutdown is
	// noticed promptly even under a quiet chunk-store queue (spec §4.2,
	// "200 ms idle tick used to periodically drain stale state").
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case req := <-w.reqCh:
			w.handle(ctx, req)
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *IOWorker) handle(ctx context.Context, req ioRequest) {
	if !isLive(w.state.Load(), req.session, req.ts) {
		return
	}
	chunk, err := w.store.Get(ctx, req.offset)
	if err != nil {
		// Chunk miss: drop the nonce, count only as lost effort, no
		// counter increment (spec §7, "Chunk miss").
		return
	}
	w.metrics.AddKibs(uint64(len(chunk) / 1024))
	req.stage2.Submit(stage2Msg{
		chunk:   chunk,
		h0:      req.h0,
		nonce:   req.nonce,
		ts:      req.ts,
		session: req.session,
	})
}
