package models

// KeeperCheckpoint records the last height a keeper sweep completed at.
// It lets operators see how far behind the keeper is after a restart.
type KeeperCheckpoint struct {
	Keeper string `json:"keeper" bson:"keeper"`
	Height uint64 `json:"height" bson:"height"`
}
