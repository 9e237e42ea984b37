package spora

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	mapset "github.com/deckarep/golang-set"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ControllerConfig sizes the worker pools a Controller starts for a
// round (spec §5, "Worker topology").
type ControllerConfig struct {
	Stage1Workers    int
	Stage2Workers    int
	IOWorkers        int
	HashIterations   int // batch size per Stage1Worker.BulkHash call
	RefreshInterval  time.Duration
	UpperBoundBlocks uint64 // not read by Controller; a round's upper bound comes from RoundInput.UpperBound
}

// DefaultControllerConfig sizes pools off the host's core count, the way
// spec §5 describes: one core reserved for the controller/I/O dispatch,
// the rest split between stage-one and stage-two workers.
func DefaultControllerConfig(cores int) ControllerConfig {
	if cores < 2 {
		cores = 2
	}
	usable := cores - 1
	s1 := usable * 2 / 3
	if s1 < 1 {
		s1 = 1
	}
	s2 := usable - s1
	if s2 < 1 {
		s2 = 1
	}
	return ControllerConfig{
		Stage1Workers:   s1,
		Stage2Workers:   s2,
		IOWorkers:       s2,
		HashIterations:  256,
		RefreshInterval: MiningTimestampRefreshInterval,
	}
}

// ControllerDeps bundles every external collaborator the controller
// needs beyond the CandidateRefresher's own dependencies.
type ControllerDeps struct {
	Engine     RandomXEngine
	ChunkStore ChunkStore
	PoA        PoAModule
	Refresher  RefresherDeps
}

// RoundInput is the per-round input describing the parent block and the
// search space the round mines against.
type RoundInput struct {
	Parent        *CandidateBlock
	UpperBound    uint64
	Pending       []Hash256
	Anchors       []Hash256
	RecentTxIDs   mapset.Set
	WalletRoot    Hash256
	BlockIndex    []Hash256
	RewardAddress [32]byte
}

// Controller owns a round's workers and candidate state and runs the
// session state machine of spec §4.7: Init -> Running on start, Running
// -> Running on timestamp refresh, Running -> Validating on a claimed
// solution, and Running/Validating -> Stopped on context cancellation.
type Controller struct {
	cfg  ControllerConfig
	deps ControllerDeps
	log  *zap.SugaredLogger

	refresher *CandidateRefresher
	validator *Validator

	metrics *Metrics
	best    *BestHash
	history *candidateHistory
	state   stateHolder

	seenSolutions *lru.ARCCache
	tokenSeq      uint64
}

// NewController builds a controller ready to run rounds. cfg and deps
// are held for the lifetime of the controller; a fresh Controller is
// typically constructed once per mining process, with RunRound called
// repeatedly (once per candidate block).
func NewController(cfg ControllerConfig, deps ControllerDeps, log *zap.SugaredLogger) (*Controller, error) {
	seen, err := lru.NewARC(4096)
	if err != nil {
		return nil, fmt.Errorf("controller: build solution dedup cache: %w", err)
	}
	return &Controller{
		cfg:           cfg,
		deps:          deps,
		log:           log,
		validator:     NewValidator(deps.Engine, deps.PoA, log),
		metrics:       NewMetrics(time.Now()),
		best:          &BestHash{},
		history:       newCandidateHistory(),
		seenSolutions: seen,
	}, nil
}

// Metrics exposes the controller's counters for external reporting.
func (c *Controller) Metrics() *Metrics { return c.metrics }

// BestHash exposes the round's best-near-miss register.
func (c *Controller) BestHash() *BestHash { return c.best }

func (c *Controller) nextSessionToken() SessionToken {
	c.tokenSeq++
	return SessionToken(c.tokenSeq)
}

// RunRound runs one mining round to completion: it blocks until either a
// valid solution is found and validated (returning a *WorkComplete) or
// ctx is cancelled (spec §4.7, "Running -> Stopped on Stop"). Cancelling
// ctx is this package's Stop message: it invalidates the session token's
// effect immediately, since every worker reads the session through the
// same cancelled context and the shared WorkState simply stops being
// refreshed.
func (c *Controller) RunRound(ctx context.Context, in RoundInput) (*WorkComplete, error) {
	if err := c.waitRandomXReady(ctx); err != nil {
		return nil, err
	}

	c.refresher = NewCandidateRefresher(c.deps.Refresher, c.log, in.RewardAddress)
	session := c.nextSessionToken()

	candidate, bds, err := c.refresher.FullRefresh(ctx, in.Parent, in.Pending, in.Anchors, in.RecentTxIDs, in.WalletRoot)
	if err != nil {
		return nil, fmt.Errorf("session: initial full refresh: %w", err)
	}
	c.history.Put(candidate.Timestamp, candidate, bds)

	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	small := IsWeaveTooSmall(in.UpperBound)
	solutionCh := make(chan Solution, 16)

	c.state.Store(&WorkState{
		Timestamp:  candidate.Timestamp,
		Diff:       candidate.Diff,
		BDS:        bds.Final,
		PrevH:      candidate.PreviousBlockHash,
		UpperBound: in.UpperBound,
		Session:    session,
	})

	group, groupCtx := errgroup.WithContext(roundCtx)
	c.startWorkers(group, groupCtx, small, session, solutionCh)

	refreshTimer := time.NewTimer(c.refreshDelay())
	defer refreshTimer.Stop()

	result, err := c.controlLoop(ctx, roundCtx, cancel, refreshTimer, solutionCh, session, candidate, in)

	_ = group.Wait() // workers observe roundCtx cancellation from controlLoop's return path
	c.logPerformance()
	return result, err
}

func (c *Controller) controlLoop(ctx, roundCtx context.Context, cancel context.CancelFunc, refreshTimer *time.Timer, solutionCh chan Solution, session SessionToken, candidate *CandidateBlock, in RoundInput) (*WorkComplete, error) {
	for {
		select {
		case <-ctx.Done():
			cancel()
			return nil, ctx.Err()

		case sol := <-solutionCh:
			if sol.Session != session {
				c.log.Debugw("dropping solution", "err", ErrStaleSession, "got_session", sol.Session, "want_session", session)
				continue
			}
			if c.isDuplicateSolution(sol) {
				continue
			}
			complete, valid, err := c.handleSolution(roundCtx, sol, in)
			if err != nil {
				c.log.Errorw("solution handling failed", "err", err)
				continue
			}
			if !valid {
				continue
			}
			cancel()
			return complete, nil

		case <-refreshTimer.C:
			next, bds, err := c.refresher.PartialRefresh(roundCtx, candidate, in.Parent)
			if err != nil {
				c.log.Errorw("partial refresh failed", "err", err)
				refreshTimer.Reset(c.refreshDelay())
				continue
			}
			candidate = next
			c.history.Put(candidate.Timestamp, candidate, bds)
			c.history.Evict(time.Now())

			c.state.Store(&WorkState{
				Timestamp:  candidate.Timestamp,
				Diff:       candidate.Diff,
				BDS:        bds.Final,
				PrevH:      candidate.PreviousBlockHash,
				UpperBound: in.UpperBound,
				Session:    session,
				Stage2:     c.state.Load().Stage2,
				IO:         c.state.Load().IO,
			})

			delay := c.refreshDelay()
			if delay <= 0 {
				c.log.Warnw("BDS finalization slower than refresh interval, refreshing immediately")
				delay = time.Nanosecond
			}
			refreshTimer.Reset(delay)
		}
	}
}

func (c *Controller) refreshDelay() time.Duration {
	last := time.Duration(0)
	if c.refresher != nil {
		last = c.refresher.lastFinalize
	}
	return c.cfg.RefreshInterval - last
}

func (c *Controller) handleSolution(ctx context.Context, sol Solution, in RoundInput) (*WorkComplete, bool, error) {
	candidate, bds, ok := c.history.Get(sol.Ts)
	if !ok {
		c.log.Warnw("dropping solution", "err", ErrSessionNotFound, "ts", sol.Ts)
		return nil, false, nil
	}

	poa, err := RetrievePoA(ctx, c.deps.PoA, sol.H0, candidate.PreviousBlockHash, in.UpperBound)
	if err != nil {
		c.log.Warnw("PoA not found for claimed solution, discarding", "ts", sol.Ts, "nonce", sol.Nonce)
		return nil, false, nil
	}

	valid, err := c.validator.Validate(ctx, ValidateParams{
		BDS:        bds.Final,
		Nonce:      sol.Nonce,
		Ts:         sol.Ts,
		Height:     candidate.Height,
		Diff:       candidate.Diff,
		PrevH:      candidate.PreviousBlockHash,
		UpperBound: in.UpperBound,
		SPoA:       poa,
		BlockIndex: in.BlockIndex,
	})
	if err != nil {
		return nil, false, err
	}
	if !valid {
		return nil, false, nil
	}

	finalBlock := candidate.Clone()
	blockHash := sha256Hash(append(append(append([]byte{}, bds.Final...), sol.Hash[:]...), sol.Nonce[:]...))

	return &WorkComplete{
		CurrentBlockHash: blockHash,
		FinalBlock:       finalBlock,
		MinedTxIDs:       finalBlock.TxIDs,
		BDS:              bds,
		PoA:              poa,
	}, true, nil
}

func (c *Controller) isDuplicateSolution(sol Solution) bool {
	key := fmt.Sprintf("%d:%x", sol.Session, sol.Nonce)
	if c.seenSolutions.Contains(key) {
		return true
	}
	c.seenSolutions.Add(key, struct{}{})
	return false
}

func (c *Controller) startWorkers(group *errgroup.Group, ctx context.Context, small bool, session SessionToken, solutionCh chan Solution) {
	if small {
		w := NewSmallWeaveWorker(c.deps.Engine, c.metrics, c.best, solutionCh, c.log, &c.state)
		group.Go(func() error { return w.Run(ctx) })
		return
	}

	ioWorkers := make([]*IOWorker, c.cfg.IOWorkers)
	for i := range ioWorkers {
		ioWorkers[i] = NewIOWorker(i, c.deps.ChunkStore, c.metrics, c.log, &c.state)
	}
	stage2 := make([]*Stage2Worker, c.cfg.Stage2Workers)
	for i := range stage2 {
		stage2[i] = NewStage2Worker(i, c.deps.Engine, c.metrics, c.best, solutionCh, c.log, &c.state)
	}

	state := c.state.Load()
	state.IO = ioWorkers
	state.Stage2 = stage2
	c.state.Store(state)

	for _, w := range ioWorkers {
		w := w
		group.Go(func() error { return w.Run(ctx) })
	}
	for _, w := range stage2 {
		w := w
		group.Go(func() error { return w.Run(ctx) })
	}
	for i := 0; i < c.cfg.Stage1Workers; i++ {
		w := NewStage1Worker(i, c.deps.Engine, c.cfg.HashIterations, c.metrics, c.log, &c.state)
		group.Go(func() error { return w.Run(ctx) })
	}
}

// waitRandomXReady blocks until the RandomX engine reports fast-mode
// state, retrying every 10s (spec §6, "If only light mode state is
// available, mining refuses to start and retries every 10 s").
func (c *Controller) waitRandomXReady(ctx context.Context) error {
	for {
		if err := c.deps.Engine.Mode(); err == nil {
			return nil
		}
		c.log.Warnw("randomx fast-mode state not ready, retrying", "retry_in", 10*time.Second)
		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) logPerformance() {
	snap := c.metrics.Snapshot()
	c.log.Infow("mining round ended",
		"sporas", snap.Sporas, "kibs", snap.Kibs,
		"recall_bytes_computed", snap.RecallBytesComputed, "elapsed", snap.Elapsed)
}

// IsWeaveTooSmall reports whether the weave's upper bound supports a
// nonzero recall subspace at all; when it does not, the small-weave
// path is used instead of the stage-one/stage-two/I/O topology (spec
// §4.1, §4.5).
func IsWeaveTooSmall(upperBound uint64) bool {
	if upperBound == 0 {
		return true
	}
	return searchSpacePolicy(upperBound)/SearchSpaceSubspacesCount == 0
}
