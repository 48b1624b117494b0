package rollup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

func batchSequence(rollupID uint64) string {
	return "batches/" + strconv.FormatUint(rollupID, 10)
}

// SubmitBatch appends a batch to the rollup's chain and opens its challenge
// window. The previous root is always taken from the rollup head, so the
// chain cannot skip or fork.
func (e *Engine) SubmitBatch(ctx context.Context, caller common.Address, rollupID uint64, stateRoot common.Hash, txCount uint64, dataHash common.Hash) (uint64, error) {
	var batchID uint64
	err := e.update(ctx, "submit_batch", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		r, err := tx.Rollup(ctx, rollupID)
		if err != nil {
			return nil, err
		}
		if r.Operator != caller {
			return nil, ErrNotOperator
		}
		if !r.Active {
			return nil, ErrRollupInactive
		}
		if txCount > r.Config.MaxTxPerBlock {
			return nil, ErrBatchTooLarge
		}

		batchID, err = tx.NextID(ctx, batchSequence(rollupID))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate batch id: %w", err)
		}
		if batchID != r.LastBatchID+1 {
			return nil, fmt.Errorf("batch sequence out of step for rollup %d: got %d, head %d", rollupID, batchID, r.LastBatchID)
		}

		b := &Batch{
			RollupID:          rollupID,
			BatchID:           batchID,
			StateRoot:         stateRoot,
			PrevStateRoot:     r.StateRoot,
			TxCount:           txCount,
			DataHash:          dataHash,
			SubmittedAt:       height,
			ChallengeDeadline: height + ChallengePeriod,
		}
		b.Commitment = BatchCommitment(rollupID, batchID, b.PrevStateRoot, stateRoot, dataHash, txCount)
		if err := tx.SaveBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}

		r.StateRoot = stateRoot
		r.LastBatchID = batchID
		r.TotalTransactions += txCount
		if err := tx.SaveRollup(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save rollup: %w", err)
		}

		e.logger.Info("batch submitted", "rollupID", rollupID, "batchID", batchID, "stateRoot", stateRoot.Hex(), "txCount", txCount, "challengeDeadline", b.ChallengeDeadline)
		return []Event{{Type: EventBatchSubmitted, RollupID: rollupID, BatchID: batchID, Account: caller, Height: height}}, nil
	})
	if err != nil {
		return 0, err
	}
	return batchID, nil
}

// FinalizeBatch finalizes a batch whose challenge window has elapsed. Any
// caller may finalize. A batch with a pending challenge stays open until the
// challenge resolves in the operator's favour.
func (e *Engine) FinalizeBatch(ctx context.Context, rollupID, batchID uint64) error {
	return e.update(ctx, "finalize_batch", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		b, err := tx.Batch(ctx, rollupID, batchID)
		if err != nil {
			return nil, err
		}
		if b.Finalized {
			return nil, ErrAlreadyFinalized
		}
		if b.Fraudulent {
			return nil, ErrBatchFraudulent
		}
		if height <= b.ChallengeDeadline {
			return nil, ErrChallengeWindowOpen
		}
		if b.OpenChallenges > 0 {
			return nil, ErrUnresolvedChallenge
		}

		b.Finalized = true
		b.FinalizedAt = height
		if err := tx.SaveBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}

		r, err := tx.Rollup(ctx, rollupID)
		if err != nil {
			return nil, err
		}
		if batchID == r.LastFinalizedBatchID+1 {
			r.LastFinalizedBatchID = batchID
			if err := tx.SaveRollup(ctx, r); err != nil {
				return nil, fmt.Errorf("failed to save rollup: %w", err)
			}
		}

		e.logger.Info("batch finalized", "rollupID", rollupID, "batchID", batchID, "height", height)
		return []Event{{Type: EventBatchFinalized, RollupID: rollupID, BatchID: batchID, Height: height}}, nil
	})
}

func (e *Engine) GetBatch(ctx context.Context, rollupID, batchID uint64) (*Batch, error) {
	var b *Batch
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.Batch(ctx, rollupID, batchID)
		return err
	})
	return b, err
}

func (e *Engine) ListBatches(ctx context.Context, rollupID uint64, page, pageSize int64) (*Page[Batch], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var result *Page[Batch]
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Rollup(ctx, rollupID); err != nil {
			return err
		}
		var err error
		result, err = tx.ListBatches(ctx, rollupID, page, pageSize)
		return err
	})
	return result, err
}

// DueBatches lists batches that would finalize if FinalizeBatch were called now.
func (e *Engine) DueBatches(ctx context.Context) ([]*Batch, error) {
	height, err := e.Height(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*Batch
	err = e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		batches, err = tx.DueBatches(ctx, height)
		return err
	})
	return batches, err
}
