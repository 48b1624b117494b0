package models

type EscrowAccount struct {
	Account string `json:"account" bson:"account"`
	Balance uint64 `json:"balance" bson:"balance"`
}

type OperatorCredential struct {
	RollupID uint64 `json:"rollup_id" bson:"rollup_id"`
	Operator string `json:"operator" bson:"operator"`
}
