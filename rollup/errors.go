package rollup

import "errors"

// Kind classifies why an operation was rejected. Every rejection leaves
// state untouched, the kind tells the caller what to do next.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindAuthorization     Kind = "authorization"
	KindTiming            Kind = "timing"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindStateConflict     Kind = "state_conflict"
	KindNotFound          Kind = "not_found"
)

// Error is a typed rejection returned by Engine operations.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of a rejection, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrInvalidConfig     = newError(KindValidation, "rollup: invalid config")
	ErrBatchTooLarge     = newError(KindValidation, "rollup: batch exceeds max tx per block")
	ErrInvalidAmount     = newError(KindValidation, "rollup: amount must be between 1 and 2^63-1")
	ErrInvalidFraudProof = newError(KindValidation, "rollup: fraud proof must be 1-256 bytes")

	ErrNotOperator = newError(KindAuthorization, "rollup: caller is not the rollup operator")
	ErrNotOwner    = newError(KindAuthorization, "rollup: caller does not own the withdrawal")

	ErrChallengeWindowOpen   = newError(KindTiming, "rollup: challenge window still open")
	ErrChallengeWindowClosed = newError(KindTiming, "rollup: challenge window closed")
	ErrVerdictPending        = newError(KindTiming, "rollup: no verdict before resolution deadline")
	ErrTooEarly              = newError(KindTiming, "rollup: withdrawal finality period not elapsed")

	ErrInsufficientFunds   = newError(KindInsufficientFunds, "rollup: insufficient funds")
	ErrInsufficientBalance = newError(KindInsufficientFunds, "rollup: insufficient balance")

	ErrRollupInactive      = newError(KindStateConflict, "rollup: rollup is inactive")
	ErrAlreadyFinalized    = newError(KindStateConflict, "rollup: batch already finalized")
	ErrUnresolvedChallenge = newError(KindStateConflict, "rollup: batch has a pending challenge")
	ErrBatchFraudulent     = newError(KindStateConflict, "rollup: batch was proven fraudulent")
	ErrAlreadyResolved     = newError(KindStateConflict, "rollup: challenge already resolved")
	ErrAlreadyExecuted     = newError(KindStateConflict, "rollup: withdrawal already executed")

	ErrRollupNotFound     = newError(KindNotFound, "rollup: rollup not found")
	ErrBatchNotFound      = newError(KindNotFound, "rollup: batch not found")
	ErrChallengeNotFound  = newError(KindNotFound, "rollup: challenge not found")
	ErrWithdrawalNotFound = newError(KindNotFound, "rollup: withdrawal not found")
)
