package rollup

import "github.com/ethereum/go-ethereum/common"

type EventType string

const (
	EventRollupRegistered    EventType = "rollup_registered"
	EventRollupSlashed       EventType = "rollup_slashed"
	EventBatchSubmitted      EventType = "batch_submitted"
	EventBatchFinalized      EventType = "batch_finalized"
	EventChallengeOpened     EventType = "challenge_opened"
	EventChallengeResolved   EventType = "challenge_resolved"
	EventDeposited           EventType = "deposited"
	EventWithdrawalInitiated EventType = "withdrawal_initiated"
	EventWithdrawalExecuted  EventType = "withdrawal_executed"
)

// Event describes a committed state transition. Fields that do not apply
// to the event type are left zero.
type Event struct {
	Type        EventType      `json:"type"`
	RollupID    uint64         `json:"rollup_id"`
	BatchID     uint64         `json:"batch_id,omitempty"`
	ChallengeID uint64         `json:"challenge_id,omitempty"`
	RequestID   uint64         `json:"request_id,omitempty"`
	Account     common.Address `json:"account"`
	Amount      uint64         `json:"amount,omitempty"`
	Status      string         `json:"status,omitempty"`
	Height      uint64         `json:"height"`
}
