package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lightlink-network/ll-rollup-api/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const clockGenesisID = "clock_genesis"

// ClockGenesis stores candidate as the wall-clock genesis unless one is
// already stored, and returns the stored value. The first writer wins.
func (db *Database) ClockGenesis(ctx context.Context, candidate time.Time) (time.Time, error) {
	var counter models.Counter
	err := db.collection(collCounters).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: clockGenesisID}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "value", Value: candidate.UnixMilli()}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load clock genesis: %w", err)
	}
	return time.UnixMilli(int64(counter.Value)), nil
}
