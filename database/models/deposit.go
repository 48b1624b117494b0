package models

// UserDeposit is keyed by (rollup_id, user).
type UserDeposit struct {
	RollupID           uint64 `json:"rollup_id" bson:"rollup_id"`
	User               string `json:"user" bson:"user"`
	Balance            uint64 `json:"balance" bson:"balance"`
	PendingWithdrawals uint64 `json:"pending_withdrawals" bson:"pending_withdrawals"`
	LastActivity       uint64 `json:"last_activity" bson:"last_activity"`
	Nonce              uint64 `json:"nonce" bson:"nonce"`
}
