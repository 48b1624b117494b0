package rollup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// withdrawal ids are scoped per rollup so requests of different users can
// never collide
func withdrawalSequence(rollupID uint64) string {
	return "withdrawals/" + strconv.FormatUint(rollupID, 10)
}

// Deposit moves amount from the caller into escrow and credits it to the
// caller's balance on the rollup.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, rollupID, amount uint64) error {
	if amount == 0 || amount > MaxAmount {
		return ErrInvalidAmount
	}

	return e.update(ctx, "deposit", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		r, err := tx.Rollup(ctx, rollupID)
		if err != nil {
			return nil, err
		}
		if !r.Active {
			return nil, ErrRollupInactive
		}

		d, err := tx.Deposit(ctx, rollupID, caller)
		if err != nil {
			return nil, fmt.Errorf("failed to get deposit: %w", err)
		}
		d.Balance += amount
		d.Nonce++
		d.LastActivity = height
		if err := tx.SaveDeposit(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save deposit: %w", err)
		}

		r.TVL += amount
		if err := tx.SaveRollup(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save rollup: %w", err)
		}

		if err := e.escrow.TransferIn(ctx, caller, amount); err != nil {
			return nil, err
		}

		e.logger.Info("deposit", "rollupID", rollupID, "user", caller.Hex(), "amount", amount, "balance", d.Balance)
		return []Event{{Type: EventDeposited, RollupID: rollupID, Account: caller, Amount: amount, Height: height}}, nil
	})
}

// InitiateWithdrawal locks amount of the caller's balance until the finality
// period has elapsed. The inclusion proof is stored for auditing only. It
// returns the request id.
func (e *Engine) InitiateWithdrawal(ctx context.Context, caller common.Address, rollupID, amount uint64, inclusionProof []byte) (uint64, error) {
	if amount == 0 || amount > MaxAmount {
		return 0, ErrInvalidAmount
	}

	var requestID uint64
	err := e.update(ctx, "initiate_withdrawal", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		if _, err := tx.Rollup(ctx, rollupID); err != nil {
			return nil, err
		}

		d, err := tx.Deposit(ctx, rollupID, caller)
		if err != nil {
			return nil, fmt.Errorf("failed to get deposit: %w", err)
		}
		if d.Balance < amount {
			return nil, ErrInsufficientBalance
		}

		requestID, err = tx.NextID(ctx, withdrawalSequence(rollupID))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate withdrawal id: %w", err)
		}

		d.Balance -= amount
		d.PendingWithdrawals += amount
		d.Nonce++
		d.LastActivity = height
		if err := tx.SaveDeposit(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save deposit: %w", err)
		}

		w := &WithdrawalRequest{
			RollupID:        rollupID,
			RequestID:       requestID,
			User:            caller,
			Amount:          amount,
			InclusionProof:  common.CopyBytes(inclusionProof),
			Hash:            WithdrawalHash(rollupID, requestID, caller, amount, d.Nonce),
			RequestedAt:     height,
			ExecutionHeight: height + FinalityPeriod,
		}
		if err := tx.SaveWithdrawal(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to save withdrawal: %w", err)
		}

		e.logger.Info("withdrawal initiated", "rollupID", rollupID, "requestID", requestID, "user", caller.Hex(), "amount", amount, "executionHeight", w.ExecutionHeight)
		return []Event{{Type: EventWithdrawalInitiated, RollupID: rollupID, RequestID: requestID, Account: caller, Amount: amount, Height: height}}, nil
	})
	if err != nil {
		return 0, err
	}
	return requestID, nil
}

// ExecuteWithdrawal pays out a withdrawal once its execution height is
// reached. Only the requester may execute, and only once.
func (e *Engine) ExecuteWithdrawal(ctx context.Context, caller common.Address, rollupID, requestID uint64) error {
	return e.update(ctx, "execute_withdrawal", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		w, err := tx.Withdrawal(ctx, rollupID, requestID)
		if err != nil {
			return nil, err
		}
		if w.User != caller {
			return nil, ErrNotOwner
		}
		if w.Executed {
			return nil, ErrAlreadyExecuted
		}
		if height < w.ExecutionHeight {
			return nil, ErrTooEarly
		}

		w.Executed = true
		w.ExecutedAt = height
		if err := tx.SaveWithdrawal(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to save withdrawal: %w", err)
		}

		d, err := tx.Deposit(ctx, rollupID, caller)
		if err != nil {
			return nil, fmt.Errorf("failed to get deposit: %w", err)
		}
		if d.PendingWithdrawals < w.Amount {
			return nil, fmt.Errorf("pending withdrawals of %s on rollup %d below request %d", caller.Hex(), rollupID, requestID)
		}
		d.PendingWithdrawals -= w.Amount
		d.LastActivity = height
		if err := tx.SaveDeposit(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save deposit: %w", err)
		}

		r, err := tx.Rollup(ctx, rollupID)
		if err != nil {
			return nil, err
		}
		r.TVL -= min(r.TVL, w.Amount)
		if err := tx.SaveRollup(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save rollup: %w", err)
		}

		if err := e.escrow.TransferOut(ctx, caller, w.Amount); err != nil {
			return nil, fmt.Errorf("failed to pay out withdrawal %d: %w", requestID, err)
		}

		e.logger.Info("withdrawal executed", "rollupID", rollupID, "requestID", requestID, "user", caller.Hex(), "amount", w.Amount)
		return []Event{{Type: EventWithdrawalExecuted, RollupID: rollupID, RequestID: requestID, Account: caller, Amount: w.Amount, Height: height}}, nil
	})
}

// GetBalance returns the user's record on the rollup, zero-valued if the
// user never deposited.
func (e *Engine) GetBalance(ctx context.Context, rollupID uint64, user common.Address) (*UserDeposit, error) {
	var d *UserDeposit
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		d, err = tx.Deposit(ctx, rollupID, user)
		return err
	})
	return d, err
}

func (e *Engine) GetWithdrawal(ctx context.Context, rollupID, requestID uint64) (*WithdrawalRequest, error) {
	var w *WithdrawalRequest
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		w, err = tx.Withdrawal(ctx, rollupID, requestID)
		return err
	})
	return w, err
}

// CalculateTVL aggregates the value locked by the rollup's users: every
// balance plus every withdrawal not yet paid out.
func (e *Engine) CalculateTVL(ctx context.Context, rollupID uint64) (uint64, error) {
	var tvl uint64
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Rollup(ctx, rollupID); err != nil {
			return err
		}
		var err error
		tvl, err = tx.SumDeposits(ctx, rollupID)
		return err
	})
	return tvl, err
}
