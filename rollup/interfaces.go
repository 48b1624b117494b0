package rollup

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store runs fn as a single transaction. Writes made through tx become
// visible only if fn returns nil.
type Store interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the persisted tables inside one transaction. Getters
// return the Err*NotFound values of this package for missing records.
type Tx interface {
	// NextID returns the next value of a named gap-free sequence, starting at 1.
	NextID(ctx context.Context, sequence string) (uint64, error)

	Rollup(ctx context.Context, id uint64) (*Rollup, error)
	SaveRollup(ctx context.Context, r *Rollup) error

	Batch(ctx context.Context, rollupID, batchID uint64) (*Batch, error)
	SaveBatch(ctx context.Context, b *Batch) error
	ListBatches(ctx context.Context, rollupID uint64, page, pageSize int64) (*Page[Batch], error)
	// DueBatches returns unfinalized, non-fraudulent batches without open
	// challenges whose challenge deadline is below height.
	DueBatches(ctx context.Context, height uint64) ([]*Batch, error)

	Challenge(ctx context.Context, id uint64) (*Challenge, error)
	SaveChallenge(ctx context.Context, c *Challenge) error
	PendingChallenges(ctx context.Context) ([]*Challenge, error)

	// Deposit never fails with not found, absent records are zero-valued.
	Deposit(ctx context.Context, rollupID uint64, user common.Address) (*UserDeposit, error)
	SaveDeposit(ctx context.Context, d *UserDeposit) error
	// SumDeposits totals balance plus pending withdrawals over every user of the rollup.
	SumDeposits(ctx context.Context, rollupID uint64) (uint64, error)

	Withdrawal(ctx context.Context, rollupID, requestID uint64) (*WithdrawalRequest, error)
	SaveWithdrawal(ctx context.Context, w *WithdrawalRequest) error
}

// BondEscrow custodies bonded collateral and user funds.
type BondEscrow interface {
	// TransferIn moves amount from account into custody. It fails with
	// ErrInsufficientFunds without moving anything when account is short.
	TransferIn(ctx context.Context, account common.Address, amount uint64) error
	// TransferOut pays amount from custody to account.
	TransferOut(ctx context.Context, account common.Address, amount uint64) error
}

type Verdict string

const (
	Verified   Verdict = "verified"
	Unverified Verdict = "unverified"
	Pending    Verdict = "pending"
)

// ProofVerifier checks a fraud proof against the committed data of the
// disputed batch.
type ProofVerifier interface {
	Verify(ctx context.Context, proof []byte, batch BatchData) (Verdict, error)
}

// CredentialIssuer mints the operator credential of a rollup. Mint must be
// idempotent per rollupID.
type CredentialIssuer interface {
	Mint(ctx context.Context, rollupID uint64, operator common.Address) error
}

// HeightSource reports the current settlement height.
type HeightSource interface {
	Height(ctx context.Context) (uint64, error)
}

// Publisher receives lifecycle events after their transaction committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
