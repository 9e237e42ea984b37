package spora

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Validator re-derives and checks any claimed solution (spec §4.9).
type Validator struct {
	engine RandomXEngine
	poa    PoAModule
	log    *zap.SugaredLogger
}

// NewValidator constructs a validator bound to the RandomX engine and
// PoA module collaborators.
func NewValidator(engine RandomXEngine, poa PoAModule, log *zap.SugaredLogger) *Validator {
	return &Validator{engine: engine, poa: poa, log: log}
}

// ValidateParams is the input to Validate (spec §4.9).
type ValidateParams struct {
	BDS        []byte
	Nonce      Hash256
	Ts         int64
	Height     uint64
	Diff       *uint256.Int
	PrevH      Hash256
	UpperBound uint64
	SPoA       ProofOfAccess
	BlockIndex []Hash256
}

// Validate re-derives H0 and the solution hash from (BDS, nonce, ts),
// checks the difficulty, re-derives the recall byte, and delegates PoA
// acceptance to the external PoA validator.
func (v *Validator) Validate(ctx context.Context, p ValidateParams) (bool, error) {
	h0, err := v.engine.FastHash(append(append([]byte{}, p.Nonce[:]...), p.BDS...))
	if err != nil {
		return false, fmt.Errorf("validator: H0 hash: %w", err)
	}

	hash, err := hashSolution(v.engine, h0, p.PrevH, p.Ts, p.SPoA.Chunk)
	if err != nil {
		return false, fmt.Errorf("validator: solution hash: %w", err)
	}

	if !MeetsDifficulty(hash, p.Diff) {
		v.log.Errorw("invalid solution: difficulty not met",
			"prev_hash", p.PrevH, "bds_len", len(p.BDS), "ts", p.Ts,
			"hash", hash, "nonce", p.Nonce, "height", p.Height, "upper_bound", p.UpperBound)
		return false, nil
	}

	recallByte, err := DeriveRecallByte(h0, p.PrevH, p.UpperBound)
	if err != nil {
		// Weave too small: accept iff the claimed PoA is empty.
		return p.SPoA.Empty(), nil
	}

	ok := v.poa.Validate(ctx, recallByte, p.BlockIndex, p.SPoA)
	if !ok {
		v.log.Errorw("invalid solution: PoA rejected",
			"prev_hash", p.PrevH, "ts", p.Ts, "hash", hash, "nonce", p.Nonce,
			"height", p.Height, "upper_bound", p.UpperBound, "recall_byte", recallByte)
	}
	return ok, nil
}

// RetrievePoA re-derives the recall byte for (H0, prevH) and fetches the
// corresponding PoA from the external store (spec §4.8). A weave that
// is too small to have a recall subspace always has a valid empty PoA.
func RetrievePoA(ctx context.Context, poa PoAModule, h0, prevH Hash256, upperBound uint64) (ProofOfAccess, error) {
	recallByte, err := DeriveRecallByte(h0, prevH, upperBound)
	if err != nil {
		return ProofOfAccess{}, nil
	}
	p, err := poa.GetPoAFromV2Index(ctx, recallByte)
	if err != nil {
		return ProofOfAccess{}, ErrPoANotFound
	}
	return p, nil
}
