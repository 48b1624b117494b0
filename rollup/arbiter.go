package rollup

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/types"
)

const sequenceChallenges = "challenges"

// ChallengeBatch disputes an unfinalized batch inside its challenge window
// and escrows the challenger's bond. It returns the challenge id.
func (e *Engine) ChallengeBatch(ctx context.Context, caller common.Address, rollupID, batchID uint64, proof []byte) (uint64, error) {
	if len(proof) == 0 || len(proof) > MaxFraudProofLen {
		return 0, ErrInvalidFraudProof
	}

	var id uint64
	err := e.update(ctx, "challenge_batch", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
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
		if height >= b.ChallengeDeadline {
			return nil, ErrChallengeWindowClosed
		}

		r, err := tx.Rollup(ctx, rollupID)
		if err != nil {
			return nil, err
		}

		id, err = tx.NextID(ctx, sequenceChallenges)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate challenge id: %w", err)
		}

		c := &Challenge{
			ID:                 id,
			RollupID:           rollupID,
			BatchID:            batchID,
			Challenger:         caller,
			Operator:           r.Operator,
			FraudProof:         common.CopyBytes(proof),
			Bond:               ChallengeBond,
			Status:             types.ChallengePending,
			CreatedAt:          height,
			ResolutionDeadline: height + ResolutionPeriod,
		}
		if err := tx.SaveChallenge(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to save challenge: %w", err)
		}

		b.OpenChallenges++
		if err := tx.SaveBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}

		if err := e.escrow.TransferIn(ctx, caller, ChallengeBond); err != nil {
			return nil, err
		}

		e.logger.Info("batch challenged", "challengeID", id, "rollupID", rollupID, "batchID", batchID, "challenger", caller.Hex(), "resolutionDeadline", c.ResolutionDeadline)
		return []Event{{Type: EventChallengeOpened, RollupID: rollupID, BatchID: batchID, ChallengeID: id, Account: caller, Amount: ChallengeBond, Height: height}}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ResolveChallenge settles a pending challenge. A verified fraud proof slashes
// the operator: the rollup is deactivated, its bond goes to the challenger and
// the batch can never finalize. An unverified proof, or no verdict by the
// resolution deadline, forfeits the challenge bond to the operator.
func (e *Engine) ResolveChallenge(ctx context.Context, challengeID uint64) (types.ChallengeStatus, error) {
	var status types.ChallengeStatus
	err := e.update(ctx, "resolve_challenge", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		c, err := tx.Challenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		if c.Status.IsTerminal() {
			return nil, ErrAlreadyResolved
		}

		b, err := tx.Batch(ctx, c.RollupID, c.BatchID)
		if err != nil {
			return nil, err
		}

		verdict, err := e.verifier.Verify(ctx, c.FraudProof, b.Data())
		if err != nil {
			return nil, fmt.Errorf("failed to verify fraud proof: %w", err)
		}

		winner := c.Operator
		switch verdict {
		case Verified:
			status = types.ChallengeUpheld
			winner = c.Challenger
		case Unverified:
			status = types.ChallengeRejected
		case Pending:
			// no verdict by the deadline counts as unverified
			if height < c.ResolutionDeadline {
				return nil, ErrVerdictPending
			}
			status = types.ChallengeExpired
		default:
			return nil, fmt.Errorf("unknown verdict %q for challenge %d", verdict, challengeID)
		}

		c.Status = status
		c.Winner = &winner
		c.ResolvedAt = height
		if err := tx.SaveChallenge(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to save challenge: %w", err)
		}

		if b.OpenChallenges > 0 {
			b.OpenChallenges--
		}

		events := []Event{{Type: EventChallengeResolved, RollupID: c.RollupID, BatchID: c.BatchID, ChallengeID: c.ID, Account: winner, Status: string(status), Height: height}}

		payout := c.Bond
		if status == types.ChallengeUpheld {
			b.Fraudulent = true

			r, err := tx.Rollup(ctx, c.RollupID)
			if err != nil {
				return nil, err
			}
			if deactivate(r, height) {
				events = append(events, Event{Type: EventRollupSlashed, RollupID: r.ID, BatchID: c.BatchID, ChallengeID: c.ID, Account: r.Operator, Amount: r.Bond, Height: height})
				e.logger.Warn("rollup slashed", "rollupID", r.ID, "operator", r.Operator.Hex(), "challengeID", c.ID)
			}
			// a rollup slashed by an earlier challenge has no bond left to forfeit
			payout += r.Bond
			r.Bond = 0
			if err := tx.SaveRollup(ctx, r); err != nil {
				return nil, fmt.Errorf("failed to save rollup: %w", err)
			}
		}
		if err := tx.SaveBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}

		if err := e.escrow.TransferOut(ctx, winner, payout); err != nil {
			return nil, fmt.Errorf("failed to pay out challenge %d: %w", c.ID, err)
		}
		events[0].Amount = payout

		e.logger.Info("challenge resolved", "challengeID", c.ID, "status", status, "winner", winner.Hex(), "payout", payout)
		return events, nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

func (e *Engine) GetChallenge(ctx context.Context, challengeID uint64) (*Challenge, error) {
	var c *Challenge
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		c, err = tx.Challenge(ctx, challengeID)
		return err
	})
	return c, err
}

func (e *Engine) PendingChallenges(ctx context.Context) ([]*Challenge, error) {
	var challenges []*Challenge
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		challenges, err = tx.PendingChallenges(ctx)
		return err
	})
	return challenges, err
}
