package types

// BatchState represents the lifecycle position of a submitted state batch
type BatchState string

const (
	// BatchOpen - Batch is submitted and its challenge window has not elapsed
	BatchOpen BatchState = "OPEN"

	// BatchDisputed - Batch has at least one pending challenge against it
	BatchDisputed BatchState = "DISPUTED"

	// BatchFraudulent - A challenge against the batch was upheld, it can never be finalized
	BatchFraudulent BatchState = "FRAUDULENT"

	// BatchExpired - Challenge window elapsed without a standing challenge, ready to finalize
	BatchExpired BatchState = "EXPIRED"

	// BatchFinalized - Batch has been finalized
	BatchFinalized BatchState = "FINALIZED"
)

// ChallengeStatus represents the state of a fraud challenge
type ChallengeStatus string

const (
	// ChallengePending - Challenge is open and waiting for a verdict or its deadline
	ChallengePending ChallengeStatus = "PENDING"

	// ChallengeUpheld - Fraud proof verified, the operator was slashed
	ChallengeUpheld ChallengeStatus = "UPHELD"

	// ChallengeRejected - Fraud proof failed verification
	ChallengeRejected ChallengeStatus = "REJECTED"

	// ChallengeExpired - Resolution deadline passed without a verdict
	ChallengeExpired ChallengeStatus = "EXPIRED"
)

// IsTerminal reports whether the challenge can no longer change status.
func (s ChallengeStatus) IsTerminal() bool {
	return s == ChallengeUpheld || s == ChallengeRejected || s == ChallengeExpired
}

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	// WithdrawalRequested - Withdrawal is waiting for the finality period
	WithdrawalRequested WithdrawalStatus = "REQUESTED"

	// WithdrawalReady - Finality period elapsed, the owner may execute
	WithdrawalReady WithdrawalStatus = "READY"

	// WithdrawalExecuted - Withdrawal has been paid out
	WithdrawalExecuted WithdrawalStatus = "EXECUTED"
)

// DataAvailability is where a rollup publishes its batch data
type DataAvailability string

const (
	DataAvailabilityOnchain  DataAvailability = "onchain"
	DataAvailabilityIPFS     DataAvailability = "ipfs"
	DataAvailabilityCelestia DataAvailability = "celestia"
)

func (d DataAvailability) IsValid() bool {
	switch d {
	case DataAvailabilityOnchain, DataAvailabilityIPFS, DataAvailabilityCelestia:
		return true
	}
	return false
}

// ExecutionType is the proof system a rollup settles with
type ExecutionType string

const (
	ExecutionOptimistic ExecutionType = "optimistic"
	ExecutionZK         ExecutionType = "zk"
)

func (e ExecutionType) IsValid() bool {
	return e == ExecutionOptimistic || e == ExecutionZK
}
