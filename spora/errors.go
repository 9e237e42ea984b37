package spora

import "errors"

// Sentinel errors. Per-hash errors are never retried; the mining process
// itself is the retry (spec §7).
var (
	// ErrWeaveTooSmall is returned by the recall-byte deriver when the
	// search subspace size is zero; the small-weave path is used
	// instead and the PoA for that round is the empty PoA.
	ErrWeaveTooSmall = errors.New("spora: weave too small for recall subspace")

	// ErrChunkNotFound is returned by a ChunkStore when the requested
	// byte offset has no chunk on disk or in the secondary index.
	ErrChunkNotFound = errors.New("spora: chunk not found")

	// ErrPoANotFound is returned when no PoA can be retrieved for a
	// claimed solution's recall byte.
	ErrPoANotFound = errors.New("spora: proof of access not found")

	// ErrRandomXNotReady is returned by Engine.Mode when only light-mode
	// state is available; mining must refuse to start and retry.
	ErrRandomXNotReady = errors.New("spora: randomx fast-mode state not ready")

	// ErrStaleSession marks a solution whose session token no longer
	// matches the live round; logged and dropped, never propagated.
	ErrStaleSession = errors.New("spora: stale session token")

	// ErrSessionNotFound marks a claimed solution whose timestamp is no
	// longer present in the candidate history; logged and dropped.
	ErrSessionNotFound = errors.New("spora: candidate history miss for solution timestamp")
)
