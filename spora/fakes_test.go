package spora

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// newTestLogger returns a development logger; tests care about behavior,
// not log output, but every collaborator in this package expects one.
func newTestLogger() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

// fakeEngine stands in for the out-of-scope RandomX primitive with
// sha256, matching the reference randomx package's "pick a real
// ecosystem hash, keep the wire shape" approach, but kept local to this
// package's tests so they do not depend on a sibling package's internals.
type fakeEngine struct {
	modeErr error
}

func (e *fakeEngine) Mode() error { return e.modeErr }

func (e *fakeEngine) FastHash(preimage []byte) (Hash256, error) {
	return sha256.Sum256(preimage), nil
}

func (e *fakeEngine) BulkHash(ctx context.Context, req BulkHashRequest) error {
	for i := 0; i < req.Iterations; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nonce := deriveFakeNonce(req.SeedNonce1, req.SeedNonce2, i)
		h0, err := e.FastHash(append(append([]byte{}, nonce[:]...), req.BDS...))
		if err != nil {
			return err
		}
		offset, err := DeriveRecallByte(h0, req.PrevH, req.UpperBound)
		if err != nil {
			continue
		}
		req.Dispatch.Route(offset, RecallTuple{H0: h0, Nonce: nonce, Offset: offset})
	}
	return nil
}

func deriveFakeNonce(seed1, seed2 Hash256, i int) Hash256 {
	var buf [72]byte
	copy(buf[:32], seed1[:])
	copy(buf[32:64], seed2[:])
	binary.BigEndian.PutUint64(buf[64:], uint64(i))
	return sha256.Sum256(buf[:])
}

// fakeChunkStore always answers with the same fixed chunk, regardless of
// offset, so tests can assert on a known chunk value end to end.
type fakeChunkStore struct {
	chunk []byte
}

func (s *fakeChunkStore) Get(ctx context.Context, byteOffset uint64) ([]byte, error) {
	return s.chunk, nil
}

// fakePoA answers both PoA calls against the same fixed chunk, doing a
// structural check the way the reference poa package does.
type fakePoA struct {
	chunk []byte
}

func (p *fakePoA) GetPoAFromV2Index(ctx context.Context, byteOffset uint64) (ProofOfAccess, error) {
	return ProofOfAccess{Chunk: p.chunk, BlockOffset: byteOffset}, nil
}

func (p *fakePoA) Validate(ctx context.Context, byteOffset uint64, blockIndex []Hash256, poa ProofOfAccess) bool {
	return poa.BlockOffset == byteOffset && bytes.Equal(poa.Chunk, p.chunk)
}

// fakeTxPool never admits a transaction; tests that need non-empty tx
// sets build their own input.
type fakeTxPool struct{}

func (fakeTxPool) Pick(ctx context.Context, params PickParams) ([]Hash256, error) {
	return nil, nil
}

// fakeWalletStore tracks balances in a plain map and derives its root by
// folding sorted addresses through sha256, the same shape as the
// reference wallet store's Root, so tests can observe a reward actually
// moving the wallet-list root rather than asserting against a fixed
// stand-in value.
type fakeWalletStore struct{}

func (fakeWalletStore) Get(ctx context.Context, root Hash256, addresses [][32]byte) (WalletMap, error) {
	return WalletMap{}, nil
}

func (fakeWalletStore) ApplyTxs(wallets WalletMap, txIDs []Hash256) (WalletMap, error) {
	return wallets, nil
}

func (fakeWalletStore) ApplyMiningReward(wallets WalletMap, rewardAddress [32]byte, reward *uint256.Int) (WalletMap, error) {
	next := make(WalletMap, len(wallets)+1)
	for addr, bal := range wallets {
		next[addr] = bal
	}
	next[rewardAddress] = new(uint256.Int).Set(reward)
	return next, nil
}

func (fakeWalletStore) Root(wallets WalletMap) (Hash256, error) {
	addrs := make([][32]byte, 0, len(wallets))
	for addr := range wallets {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	var buf []byte
	for _, addr := range addrs {
		buf = append(buf, addr[:]...)
		bal := wallets[addr].Bytes32()
		buf = append(buf, bal[:]...)
	}
	return sha256.Sum256(buf), nil
}

// fakeRetarget passes the parent's difficulty straight through, the way
// a flat-difficulty testnet would.
type fakeRetarget struct{}

func (fakeRetarget) MaybeRetarget(height uint64, diff *uint256.Int, ts int64, lastRetarget int64) *uint256.Int {
	if diff == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(diff)
}

func (fakeRetarget) IsRetargetHeight(height uint64) bool {
	return height%RetargetBlocks == 0
}

func (fakeRetarget) NextCumulativeDiff(cdiff, diff *uint256.Int, height uint64) *uint256.Int {
	base := new(uint256.Int)
	if cdiff != nil {
		base.Set(cdiff)
	}
	if diff != nil {
		base.Add(base, diff)
	}
	return base
}

// fakeBDS serializes just enough of a candidate to be a deterministic,
// distinguishable byte sequence across height/timestamp.
type fakeBDS struct{}

func (fakeBDS) Base(c *CandidateBlock) ([]byte, error) {
	return []byte(fmt.Sprintf("base-%d-%d", c.Height, len(c.TxIDs))), nil
}

func (fakeBDS) Finalize(base []byte, c *CandidateBlock) ([]byte, error) {
	return append(append([]byte{}, base...), []byte(fmt.Sprintf("-final-%d", c.Timestamp))...), nil
}

// buildTestDeps assembles a full ControllerDeps out of the fakes above,
// all agreeing on the same fixed chunk so a mined solution's PoA lookup
// and its chunk-store fetch are provably consistent.
func buildTestDeps(chunk []byte) ControllerDeps {
	return ControllerDeps{
		Engine:     &fakeEngine{},
		ChunkStore: &fakeChunkStore{chunk: chunk},
		PoA:        &fakePoA{chunk: chunk},
		Refresher: RefresherDeps{
			Txs:      fakeTxPool{},
			Wallets:  fakeWalletStore{},
			Retarget: fakeRetarget{},
			BDS:      fakeBDS{},
		},
	}
}
