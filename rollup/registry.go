package rollup

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/types"
)

const sequenceRollups = "rollups"

type RegisterParams struct {
	Name             string
	BlockTime        uint64
	MaxTxPerBlock    uint64
	DataAvailability types.DataAvailability
	ExecutionType    types.ExecutionType
	Operator         common.Address
	GenesisRoot      common.Hash
}

func (p RegisterParams) validate() error {
	switch {
	case p.Name == "":
		return ErrInvalidConfig
	case p.BlockTime < MinBlockTime:
		return ErrInvalidConfig
	case p.MaxTxPerBlock == 0 || p.MaxTxPerBlock > MaxTxPerBlock:
		return ErrInvalidConfig
	case !p.DataAvailability.IsValid() || !p.ExecutionType.IsValid():
		return ErrInvalidConfig
	case p.Operator == (common.Address{}):
		return ErrInvalidConfig
	}
	return nil
}

// Register creates a rollup, escrows the operator bond and mints the
// operator credential. It returns the new rollup id.
func (e *Engine) Register(ctx context.Context, p RegisterParams) (uint64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}

	var id uint64
	err := e.update(ctx, "register", func(ctx context.Context, tx Tx, height uint64) ([]Event, error) {
		var err error
		id, err = tx.NextID(ctx, sequenceRollups)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate rollup id: %w", err)
		}

		r := &Rollup{
			ID:        id,
			Name:      p.Name,
			Operator:  p.Operator,
			Bond:      OperatorBond,
			StateRoot: p.GenesisRoot,
			Active:    true,
			CreatedAt: height,
			Config: Config{
				BlockTime:        p.BlockTime,
				MaxTxPerBlock:    p.MaxTxPerBlock,
				DataAvailability: p.DataAvailability,
				ExecutionType:    p.ExecutionType,
			},
		}
		if err := tx.SaveRollup(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save rollup: %w", err)
		}

		if err := e.escrow.TransferIn(ctx, p.Operator, OperatorBond); err != nil {
			return nil, err
		}
		if err := e.issuer.Mint(ctx, id, p.Operator); err != nil {
			// escrows outside the store's transaction need the bond handed back
			if rerr := e.escrow.TransferOut(ctx, p.Operator, OperatorBond); rerr != nil {
				e.logger.Error("failed to refund operator bond", "operator", p.Operator.Hex(), "error", rerr)
			}
			return nil, fmt.Errorf("failed to mint operator credential: %w", err)
		}

		e.logger.Info("rollup registered", "rollupID", id, "name", p.Name, "operator", p.Operator.Hex(), "height", height)
		return []Event{{Type: EventRollupRegistered, RollupID: id, Account: p.Operator, Amount: OperatorBond, Height: height}}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) GetRollup(ctx context.Context, rollupID uint64) (*Rollup, error) {
	var r *Rollup
	err := e.view(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		r, err = tx.Rollup(ctx, rollupID)
		return err
	})
	return r, err
}

func (e *Engine) IsOperator(ctx context.Context, rollupID uint64, account common.Address) (bool, error) {
	r, err := e.GetRollup(ctx, rollupID)
	if err != nil {
		return false, err
	}
	return r.Operator == account, nil
}

func (e *Engine) IsActive(ctx context.Context, rollupID uint64) (bool, error) {
	r, err := e.GetRollup(ctx, rollupID)
	if err != nil {
		return false, err
	}
	return r.Active, nil
}

// deactivate slashes a rollup. It is only reached from an upheld challenge
// and is irreversible.
func deactivate(r *Rollup, height uint64) bool {
	if !r.Active {
		return false
	}
	r.Active = false
	r.SlashedAt = height
	return true
}
