package models

type Batch struct {
	RollupID          uint64 `json:"rollup_id" bson:"rollup_id"`
	BatchID           uint64 `json:"batch_id" bson:"batch_id"`
	StateRoot         string `json:"state_root" bson:"state_root"`
	PrevStateRoot     string `json:"prev_state_root" bson:"prev_state_root"`
	TxCount           uint64 `json:"tx_count" bson:"tx_count"`
	DataHash          string `json:"data_hash" bson:"data_hash"`
	Commitment        string `json:"commitment" bson:"commitment"`
	SubmittedAt       uint64 `json:"submitted_at" bson:"submitted_at"`
	ChallengeDeadline uint64 `json:"challenge_deadline" bson:"challenge_deadline"`
	OpenChallenges    uint64 `json:"open_challenges" bson:"open_challenges"`
	Finalized         bool   `json:"finalized" bson:"finalized"`
	FinalizedAt       uint64 `json:"finalized_at,omitempty" bson:"finalized_at,omitempty"`
	Fraudulent        bool   `json:"fraudulent" bson:"fraudulent"`
}
