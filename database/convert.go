package database

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightlink-network/ll-rollup-api/database/models"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

func encodeBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hexutil.Encode(b)
}

func decodeBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex bytes: %w", err)
	}
	return b, nil
}

func toRollupModel(r *rollup.Rollup) models.Rollup {
	return models.Rollup{
		RollupID:             r.ID,
		Name:                 r.Name,
		Operator:             r.Operator.Hex(),
		Bond:                 r.Bond,
		StateRoot:            r.StateRoot.Hex(),
		LastBatchID:          r.LastBatchID,
		LastFinalizedBatchID: r.LastFinalizedBatchID,
		TotalTransactions:    r.TotalTransactions,
		TVL:                  r.TVL,
		Active:               r.Active,
		CreatedAt:            r.CreatedAt,
		SlashedAt:            r.SlashedAt,
		BlockTime:            r.Config.BlockTime,
		MaxTxPerBlock:        r.Config.MaxTxPerBlock,
		DataAvailability:     string(r.Config.DataAvailability),
		ExecutionType:        string(r.Config.ExecutionType),
	}
}

func fromRollupModel(m models.Rollup) *rollup.Rollup {
	return &rollup.Rollup{
		ID:                   m.RollupID,
		Name:                 m.Name,
		Operator:             common.HexToAddress(m.Operator),
		Bond:                 m.Bond,
		StateRoot:            common.HexToHash(m.StateRoot),
		LastBatchID:          m.LastBatchID,
		LastFinalizedBatchID: m.LastFinalizedBatchID,
		TotalTransactions:    m.TotalTransactions,
		TVL:                  m.TVL,
		Active:               m.Active,
		CreatedAt:            m.CreatedAt,
		SlashedAt:            m.SlashedAt,
		Config: rollup.Config{
			BlockTime:        m.BlockTime,
			MaxTxPerBlock:    m.MaxTxPerBlock,
			DataAvailability: types.DataAvailability(m.DataAvailability),
			ExecutionType:    types.ExecutionType(m.ExecutionType),
		},
	}
}

func toBatchModel(b *rollup.Batch) models.Batch {
	return models.Batch{
		RollupID:          b.RollupID,
		BatchID:           b.BatchID,
		StateRoot:         b.StateRoot.Hex(),
		PrevStateRoot:     b.PrevStateRoot.Hex(),
		TxCount:           b.TxCount,
		DataHash:          b.DataHash.Hex(),
		Commitment:        b.Commitment.Hex(),
		SubmittedAt:       b.SubmittedAt,
		ChallengeDeadline: b.ChallengeDeadline,
		OpenChallenges:    b.OpenChallenges,
		Finalized:         b.Finalized,
		FinalizedAt:       b.FinalizedAt,
		Fraudulent:        b.Fraudulent,
	}
}

func fromBatchModel(m models.Batch) *rollup.Batch {
	return &rollup.Batch{
		RollupID:          m.RollupID,
		BatchID:           m.BatchID,
		StateRoot:         common.HexToHash(m.StateRoot),
		PrevStateRoot:     common.HexToHash(m.PrevStateRoot),
		TxCount:           m.TxCount,
		DataHash:          common.HexToHash(m.DataHash),
		Commitment:        common.HexToHash(m.Commitment),
		SubmittedAt:       m.SubmittedAt,
		ChallengeDeadline: m.ChallengeDeadline,
		OpenChallenges:    m.OpenChallenges,
		Finalized:         m.Finalized,
		FinalizedAt:       m.FinalizedAt,
		Fraudulent:        m.Fraudulent,
	}
}

func toChallengeModel(c *rollup.Challenge) models.Challenge {
	m := models.Challenge{
		ChallengeID:        c.ID,
		RollupID:           c.RollupID,
		BatchID:            c.BatchID,
		Challenger:         c.Challenger.Hex(),
		Operator:           c.Operator.Hex(),
		FraudProof:         encodeBytes(c.FraudProof),
		Bond:               c.Bond,
		Status:             string(c.Status),
		CreatedAt:          c.CreatedAt,
		ResolutionDeadline: c.ResolutionDeadline,
		ResolvedAt:         c.ResolvedAt,
	}
	if c.Winner != nil {
		m.Winner = c.Winner.Hex()
	}
	return m
}

func fromChallengeModel(m models.Challenge) (*rollup.Challenge, error) {
	proof, err := decodeBytes(m.FraudProof)
	if err != nil {
		return nil, err
	}
	c := &rollup.Challenge{
		ID:                 m.ChallengeID,
		RollupID:           m.RollupID,
		BatchID:            m.BatchID,
		Challenger:         common.HexToAddress(m.Challenger),
		Operator:           common.HexToAddress(m.Operator),
		FraudProof:         proof,
		Bond:               m.Bond,
		Status:             types.ChallengeStatus(m.Status),
		CreatedAt:          m.CreatedAt,
		ResolutionDeadline: m.ResolutionDeadline,
		ResolvedAt:         m.ResolvedAt,
	}
	if m.Winner != "" {
		winner := common.HexToAddress(m.Winner)
		c.Winner = &winner
	}
	return c, nil
}

func toDepositModel(d *rollup.UserDeposit) models.UserDeposit {
	return models.UserDeposit{
		RollupID:           d.RollupID,
		User:               d.User.Hex(),
		Balance:            d.Balance,
		PendingWithdrawals: d.PendingWithdrawals,
		LastActivity:       d.LastActivity,
		Nonce:              d.Nonce,
	}
}

func fromDepositModel(m models.UserDeposit) *rollup.UserDeposit {
	return &rollup.UserDeposit{
		RollupID:           m.RollupID,
		User:               common.HexToAddress(m.User),
		Balance:            m.Balance,
		PendingWithdrawals: m.PendingWithdrawals,
		LastActivity:       m.LastActivity,
		Nonce:              m.Nonce,
	}
}

func toWithdrawalModel(w *rollup.WithdrawalRequest) models.Withdrawal {
	return models.Withdrawal{
		RollupID:        w.RollupID,
		RequestID:       w.RequestID,
		User:            w.User.Hex(),
		Amount:          w.Amount,
		InclusionProof:  encodeBytes(w.InclusionProof),
		WithdrawalHash:  w.Hash.Hex(),
		RequestedAt:     w.RequestedAt,
		ExecutionHeight: w.ExecutionHeight,
		Executed:        w.Executed,
		ExecutedAt:      w.ExecutedAt,
	}
}

func fromWithdrawalModel(m models.Withdrawal) (*rollup.WithdrawalRequest, error) {
	proof, err := decodeBytes(m.InclusionProof)
	if err != nil {
		return nil, err
	}
	return &rollup.WithdrawalRequest{
		RollupID:        m.RollupID,
		RequestID:       m.RequestID,
		User:            common.HexToAddress(m.User),
		Amount:          m.Amount,
		InclusionProof:  proof,
		Hash:            common.HexToHash(m.WithdrawalHash),
		RequestedAt:     m.RequestedAt,
		ExecutionHeight: m.ExecutionHeight,
		Executed:        m.Executed,
		ExecutedAt:      m.ExecutedAt,
	}, nil
}
