package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightlink-network/ll-rollup-api/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpdateCheckpoint stores the height of the keeper's last completed sweep.
func (db *Database) UpdateCheckpoint(ctx context.Context, keeper string, height uint64) error {
	filter := bson.D{{Key: "keeper", Value: keeper}}
	update := bson.D{{
		Key: "$set",
		Value: bson.D{{
			Key: "height", Value: height,
		}},
	}}

	_, err := db.collection(collCheckpoints).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update keeper checkpoint: %w", err)
	}

	return nil
}

func (db *Database) GetCheckpoint(ctx context.Context, keeper string) (uint64, error) {
	var result models.KeeperCheckpoint
	err := db.collection(collCheckpoints).FindOne(ctx, bson.D{{Key: "keeper", Value: keeper}}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get keeper checkpoint: %w", err)
	}

	db.logger.Debug("keeper checkpoint", "keeper", keeper, "height", result.Height)

	return result.Height, nil
}
