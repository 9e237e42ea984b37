// Package randomx provides a reference RandomXEngine implementation
// standing in for the real RandomX primitive, which spec.md names as an
// out-of-scope external collaborator. It follows the hashing idiom of
// the pack's tos-pool toshash package (blake3 as the underlying
// primitive, a fixed scratchpad size, explicit mode gating) so the
// spora package has a concrete, testable engine without depending on
// cgo RandomX bindings.
package randomx

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/weavemesh/spora-miner/spora"
)

// Mode is the RandomX dataset initialization state.
type Mode int

const (
	// ModeUninitialized means no dataset has been built at all.
	ModeUninitialized Mode = iota
	// ModeLight means only the light-mode cache is ready; fast hashing
	// is not available yet.
	ModeLight
	// ModeFast means the full dataset is built and fast hashing is
	// available.
	ModeFast
)

// Engine is a blake3-backed stand-in for the RandomX VM. It is safe for
// concurrent use: FastHash and BulkHash may be called from many worker
// goroutines while InitFast transitions the mode exactly once.
type Engine struct {
	mu   sync.RWMutex
	mode Mode
}

// NewEngine returns an engine that starts in light mode, matching a
// freshly started node that has not yet built the full RandomX dataset
// (spec §6, "If only light mode state is available, mining refuses to
// start").
func NewEngine() *Engine {
	return &Engine{mode: ModeLight}
}

// InitFast transitions the engine to fast mode. A real node does this
// once, expensively, on a background goroutine after loading the
// current epoch's seed; here it is a cheap, synchronous flag flip since
// there is no real dataset to build.
func (e *Engine) InitFast() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = ModeFast
}

// Mode implements spora.RandomXEngine.
func (e *Engine) Mode() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.mode != ModeFast {
		return spora.ErrRandomXNotReady
	}
	return nil
}

// FastHash implements spora.RandomXEngine.
func (e *Engine) FastHash(preimage []byte) (spora.Hash256, error) {
	if err := e.Mode(); err != nil {
		return spora.Hash256{}, err
	}
	var out spora.Hash256
	h := blake3.Sum256(preimage)
	copy(out[:], h[:])
	return out, nil
}

// BulkHash implements spora.RandomXEngine. It derives req.Iterations
// (nonce, H0) pairs from the two seed nonces, computes each recall byte,
// and dispatches the tuple through req.Dispatch — the behavior spec §4.3
// asks of the external bulk-hash primitive.
func (e *Engine) BulkHash(ctx context.Context, req spora.BulkHashRequest) error {
	if err := e.Mode(); err != nil {
		return err
	}

	for i := 0; i < req.Iterations; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		nonce := deriveNonce(req.SeedNonce1, req.SeedNonce2, i)
		preimage := make([]byte, 0, 32+len(req.BDS))
		preimage = append(preimage, nonce[:]...)
		preimage = append(preimage, req.BDS...)
		h0, err := e.FastHash(preimage)
		if err != nil {
			return err
		}

		offset, err := spora.DeriveRecallByte(h0, req.PrevH, req.UpperBound)
		if err != nil {
			// Weave too small: the bulk-hash topology should not have
			// been started for this round at all (spec §4.5 routes it
			// to the small-weave path instead), so there is nothing
			// useful to dispatch.
			continue
		}

		req.Dispatch.Route(offset, spora.RecallTuple{H0: h0, Nonce: nonce, Offset: offset})
	}
	return nil
}

// deriveNonce expands the batch's two seed nonces and an iteration
// counter into a fresh per-iteration nonce via blake3, the same
// domain-separation idiom toshash.BuildHeader uses for its nonce field.
func deriveNonce(seed1, seed2 spora.Hash256, i int) spora.Hash256 {
	var buf [72]byte
	copy(buf[0:32], seed1[:])
	copy(buf[32:64], seed2[:])
	binary.BigEndian.PutUint64(buf[64:72], uint64(i))
	var out spora.Hash256
	h := blake3.Sum256(buf[:])
	copy(out[:], h[:])
	return out
}
