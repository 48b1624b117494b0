package verifier

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lightlink-network/ll-rollup-api/rollup"
)

const DefaultCacheSize = 4096

// Oracle serves verdicts posted by an off-chain prover. Proofs without a
// posted verdict are pending.
type Oracle struct {
	verdicts *lru.Cache[common.Hash, rollup.Verdict]
}

var _ rollup.ProofVerifier = &Oracle{}

func NewOracle(size int) (*Oracle, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[common.Hash, rollup.Verdict](size)
	if err != nil {
		return nil, err
	}
	return &Oracle{verdicts: cache}, nil
}

// ProofHash is the key a verdict is posted under.
func ProofHash(proof []byte) common.Hash {
	return crypto.Keccak256Hash(proof)
}

// Record stores the verdict for the proof with the given hash.
func (o *Oracle) Record(proofHash common.Hash, verdict rollup.Verdict) error {
	if verdict != rollup.Verified && verdict != rollup.Unverified {
		return fmt.Errorf("verifier: cannot record verdict %q", verdict)
	}
	o.verdicts.Add(proofHash, verdict)
	return nil
}

func (o *Oracle) Verify(_ context.Context, proof []byte, _ rollup.BatchData) (rollup.Verdict, error) {
	if verdict, ok := o.verdicts.Get(ProofHash(proof)); ok {
		return verdict, nil
	}
	return rollup.Pending, nil
}
