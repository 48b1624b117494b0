package models

// Rollup is a registered rollup chain. Hashes and addresses are stored as
// 0x-prefixed hex strings.
type Rollup struct {
	RollupID             uint64 `json:"rollup_id" bson:"rollup_id"`
	Name                 string `json:"name" bson:"name"`
	Operator             string `json:"operator" bson:"operator"`
	Bond                 uint64 `json:"bond" bson:"bond"`
	StateRoot            string `json:"state_root" bson:"state_root"`
	LastBatchID          uint64 `json:"last_batch_id" bson:"last_batch_id"`
	LastFinalizedBatchID uint64 `json:"last_finalized_batch_id" bson:"last_finalized_batch_id"`
	TotalTransactions    uint64 `json:"total_transactions" bson:"total_transactions"`
	TVL                  uint64 `json:"tvl" bson:"tvl"`
	Active               bool   `json:"active" bson:"active"`
	CreatedAt            uint64 `json:"created_at" bson:"created_at"`
	SlashedAt            uint64 `json:"slashed_at,omitempty" bson:"slashed_at,omitempty"`
	BlockTime            uint64 `json:"block_time" bson:"block_time"`
	MaxTxPerBlock        uint64 `json:"max_tx_per_block" bson:"max_tx_per_block"`
	DataAvailability     string `json:"data_availability" bson:"data_availability"`
	ExecutionType        string `json:"execution_type" bson:"execution_type"`
}
