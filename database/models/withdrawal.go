package models

type Withdrawal struct {
	RollupID        uint64 `json:"rollup_id" bson:"rollup_id"`
	RequestID       uint64 `json:"request_id" bson:"request_id"`
	User            string `json:"user" bson:"user"`
	Amount          uint64 `json:"amount" bson:"amount"`
	InclusionProof  string `json:"inclusion_proof,omitempty" bson:"inclusion_proof,omitempty"`
	WithdrawalHash  string `json:"withdrawal_hash" bson:"withdrawal_hash"`
	RequestedAt     uint64 `json:"requested_at" bson:"requested_at"`
	ExecutionHeight uint64 `json:"execution_height" bson:"execution_height"`
	Executed        bool   `json:"executed" bson:"executed"`
	ExecutedAt      uint64 `json:"executed_at,omitempty" bson:"executed_at,omitempty"`
}
