package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// ProofLen is the size of a commitment fraud proof:
// [claimedRoot(32)] [correctRoot(32)] [dataHash(32)] [commitment(32)]
const ProofLen = 4 * common.HashLength

var ErrNilTransition = errors.New("verifier: nil transition function")

// TransitionFunc recomputes the post-state root a batch should have produced.
type TransitionFunc func(ctx context.Context, batch rollup.BatchData) (common.Hash, error)

// KeccakTransition derives the post-state root as keccak256(prevRoot || dataHash).
// It stands in for re-execution on rollups whose state is tracked off-chain.
func KeccakTransition(_ context.Context, batch rollup.BatchData) (common.Hash, error) {
	return crypto.Keccak256Hash(batch.PrevStateRoot.Bytes(), batch.DataHash.Bytes()), nil
}

// Commitment verifies self-contained fraud proofs. A proof is verified when
// it is bound to the disputed batch and the recomputed root differs from the
// batch's claimed root.
type Commitment struct {
	transition TransitionFunc
}

var _ rollup.ProofVerifier = &Commitment{}

func NewCommitment(transition TransitionFunc) (*Commitment, error) {
	if transition == nil {
		return nil, ErrNilTransition
	}
	return &Commitment{transition: transition}, nil
}

// BuildProof assembles a commitment fraud proof.
func BuildProof(claimedRoot, correctRoot, dataHash common.Hash) []byte {
	commitment := crypto.Keccak256(claimedRoot.Bytes(), correctRoot.Bytes(), dataHash.Bytes())

	proof := make([]byte, 0, ProofLen)
	proof = append(proof, claimedRoot.Bytes()...)
	proof = append(proof, correctRoot.Bytes()...)
	proof = append(proof, dataHash.Bytes()...)
	proof = append(proof, commitment...)
	return proof
}

func (v *Commitment) Verify(ctx context.Context, proof []byte, batch rollup.BatchData) (rollup.Verdict, error) {
	if len(proof) != ProofLen {
		return rollup.Unverified, nil
	}

	claimedRoot := common.BytesToHash(proof[0:32])
	correctRoot := common.BytesToHash(proof[32:64])
	dataHash := common.BytesToHash(proof[64:96])
	recomputed := crypto.Keccak256(proof[0:32], proof[32:64], proof[64:96])
	if !bytes.Equal(recomputed, proof[96:128]) {
		return rollup.Unverified, nil
	}

	// the proof must be about this batch
	if claimedRoot != batch.StateRoot || dataHash != batch.DataHash {
		return rollup.Unverified, nil
	}
	if correctRoot == claimedRoot {
		return rollup.Unverified, nil
	}

	expected, err := v.transition(ctx, batch)
	if err != nil {
		return "", fmt.Errorf("failed to recompute state root for batch %d/%d: %w", batch.RollupID, batch.BatchID, err)
	}
	if expected != correctRoot {
		return rollup.Unverified, nil
	}
	return rollup.Verified, nil
}
