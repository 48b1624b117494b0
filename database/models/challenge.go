package models

type Challenge struct {
	ChallengeID        uint64 `json:"challenge_id" bson:"challenge_id"`
	RollupID           uint64 `json:"rollup_id" bson:"rollup_id"`
	BatchID            uint64 `json:"batch_id" bson:"batch_id"`
	Challenger         string `json:"challenger" bson:"challenger"`
	Operator           string `json:"operator" bson:"operator"`
	FraudProof         string `json:"fraud_proof" bson:"fraud_proof"`
	Bond               uint64 `json:"bond" bson:"bond"`
	Status             string `json:"status" bson:"status"`
	CreatedAt          uint64 `json:"created_at" bson:"created_at"`
	ResolutionDeadline uint64 `json:"resolution_deadline" bson:"resolution_deadline"`
	Winner             string `json:"winner,omitempty" bson:"winner,omitempty"`
	ResolvedAt         uint64 `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}
