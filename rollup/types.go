package rollup

import (
	"encoding/binary"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-rollup-api/types"
)

const (
	OperatorBond     uint64 = 100
	ChallengeBond           = OperatorBond / 2
	ChallengePeriod  uint64 = 2016 // ~2 weeks of heights
	ResolutionPeriod uint64 = 144  // ~1 day
	FinalityPeriod   uint64 = 4032 // ~4 weeks

	MinBlockTime     uint64 = 6
	MaxTxPerBlock    uint64 = 1000
	MaxFraudProofLen        = 256

	// MaxAmount bounds a single deposit, withdrawal or funding so amounts
	// fit the int64 counters of the persistent escrow.
	MaxAmount uint64 = math.MaxInt64
)

// Config is fixed at registration.
type Config struct {
	BlockTime        uint64                 `json:"block_time"`
	MaxTxPerBlock    uint64                 `json:"max_tx_per_block"`
	DataAvailability types.DataAvailability `json:"data_availability"`
	ExecutionType    types.ExecutionType    `json:"execution_type"`
}

type Rollup struct {
	ID                   uint64         `json:"id"`
	Name                 string         `json:"name"`
	Operator             common.Address `json:"operator"`
	Bond                 uint64         `json:"bond"`
	StateRoot            common.Hash    `json:"state_root"`
	LastBatchID          uint64         `json:"last_batch_id"`
	LastFinalizedBatchID uint64         `json:"last_finalized_batch_id"`
	TotalTransactions    uint64         `json:"total_transactions"`
	TVL                  uint64         `json:"tvl"`
	Active               bool           `json:"active"`
	CreatedAt            uint64         `json:"created_at"`
	SlashedAt            uint64         `json:"slashed_at,omitempty"`
	Config               Config         `json:"config"`
}

type Batch struct {
	RollupID          uint64      `json:"rollup_id"`
	BatchID           uint64      `json:"batch_id"`
	StateRoot         common.Hash `json:"state_root"`
	PrevStateRoot     common.Hash `json:"prev_state_root"`
	TxCount           uint64      `json:"tx_count"`
	DataHash          common.Hash `json:"data_hash"`
	Commitment        common.Hash `json:"commitment"`
	SubmittedAt       uint64      `json:"submitted_at"`
	ChallengeDeadline uint64      `json:"challenge_deadline"`
	OpenChallenges    uint64      `json:"open_challenges"`
	Finalized         bool        `json:"finalized"`
	FinalizedAt       uint64      `json:"finalized_at,omitempty"`
	Fraudulent        bool        `json:"fraudulent"`
}

// BatchCommitment binds a batch to its position in the rollup's chain.
func BatchCommitment(rollupID, batchID uint64, prevRoot, stateRoot, dataHash common.Hash, txCount uint64) common.Hash {
	var buf [8]byte
	data := make([]byte, 0, 8*3+32*3)
	binary.BigEndian.PutUint64(buf[:], rollupID)
	data = append(data, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], batchID)
	data = append(data, buf[:]...)
	data = append(data, prevRoot.Bytes()...)
	data = append(data, stateRoot.Bytes()...)
	data = append(data, dataHash.Bytes()...)
	binary.BigEndian.PutUint64(buf[:], txCount)
	data = append(data, buf[:]...)
	return crypto.Keccak256Hash(data)
}

// VerifyCommitment reports whether the stored fields still match the
// commitment computed at submission.
func (b *Batch) VerifyCommitment() bool {
	return b.Commitment == BatchCommitment(b.RollupID, b.BatchID, b.PrevStateRoot, b.StateRoot, b.DataHash, b.TxCount)
}

// State derives the batch's lifecycle position at the given height.
func (b *Batch) State(height uint64) types.BatchState {
	switch {
	case b.Finalized:
		return types.BatchFinalized
	case b.Fraudulent:
		return types.BatchFraudulent
	case b.OpenChallenges > 0:
		return types.BatchDisputed
	case height > b.ChallengeDeadline:
		return types.BatchExpired
	default:
		return types.BatchOpen
	}
}

// Data is what the verifier checks a fraud proof against.
func (b *Batch) Data() BatchData {
	return BatchData{
		RollupID:      b.RollupID,
		BatchID:       b.BatchID,
		PrevStateRoot: b.PrevStateRoot,
		StateRoot:     b.StateRoot,
		DataHash:      b.DataHash,
		TxCount:       b.TxCount,
	}
}

// BatchData is the committed content of a batch.
type BatchData struct {
	RollupID      uint64
	BatchID       uint64
	PrevStateRoot common.Hash
	StateRoot     common.Hash
	DataHash      common.Hash
	TxCount       uint64
}

type Challenge struct {
	ID                 uint64                `json:"id"`
	RollupID           uint64                `json:"rollup_id"`
	BatchID            uint64                `json:"batch_id"`
	Challenger         common.Address        `json:"challenger"`
	Operator           common.Address        `json:"operator"`
	FraudProof         hexutil.Bytes         `json:"fraud_proof"`
	Bond               uint64                `json:"bond"`
	Status             types.ChallengeStatus `json:"status"`
	CreatedAt          uint64                `json:"created_at"`
	ResolutionDeadline uint64                `json:"resolution_deadline"`
	Winner             *common.Address       `json:"winner,omitempty"`
	ResolvedAt         uint64                `json:"resolved_at,omitempty"`
}

// UserDeposit is zero-valued until the user's first deposit.
type UserDeposit struct {
	RollupID           uint64         `json:"rollup_id"`
	User               common.Address `json:"user"`
	Balance            uint64         `json:"balance"`
	PendingWithdrawals uint64         `json:"pending_withdrawals"`
	LastActivity       uint64         `json:"last_activity"`
	Nonce              uint64         `json:"nonce"`
}

type WithdrawalRequest struct {
	RollupID        uint64         `json:"rollup_id"`
	RequestID       uint64         `json:"request_id"`
	User            common.Address `json:"user"`
	Amount          uint64         `json:"amount"`
	InclusionProof  hexutil.Bytes  `json:"inclusion_proof"`
	Hash            common.Hash    `json:"withdrawal_hash"`
	RequestedAt     uint64         `json:"requested_at"`
	ExecutionHeight uint64         `json:"execution_height"`
	Executed        bool           `json:"executed"`
	ExecutedAt      uint64         `json:"executed_at,omitempty"`
}

// WithdrawalHash identifies a withdrawal request outside of this service.
func WithdrawalHash(rollupID, requestID uint64, user common.Address, amount, nonce uint64) common.Hash {
	var buf [8]byte
	data := make([]byte, 0, 8*4+common.AddressLength)
	binary.BigEndian.PutUint64(buf[:], rollupID)
	data = append(data, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], requestID)
	data = append(data, buf[:]...)
	data = append(data, user.Bytes()...)
	binary.BigEndian.PutUint64(buf[:], amount)
	data = append(data, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], nonce)
	data = append(data, buf[:]...)
	return crypto.Keccak256Hash(data)
}

func (w *WithdrawalRequest) Status(height uint64) types.WithdrawalStatus {
	switch {
	case w.Executed:
		return types.WithdrawalExecuted
	case height >= w.ExecutionHeight:
		return types.WithdrawalReady
	default:
		return types.WithdrawalRequested
	}
}

// Page is one page of a listing, shaped like the API's paginated responses.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"page_size"`
}
