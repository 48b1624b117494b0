package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collRollups     = "rollups"
	collBatches     = "batches"
	collChallenges  = "challenges"
	collDeposits    = "user_deposits"
	collWithdrawals = "withdrawals"
	collCounters    = "counters"
	collEscrow      = "escrow_accounts"
	collCredentials = "operator_credentials"
	collCheckpoints = "keeper_checkpoints"
)

// Database is the MongoDB backed rollup store. Transactions require the
// server to run as a replica set.
type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
}

type DatabaseOpts struct {
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

const (
	defaultTimeout = 10 * time.Second
)

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnecting(10).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		client:       client,
		databaseName: opts.DatabaseName,
		logger:       opts.Logger.With("component", "database"),
	}, nil
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.databaseName).Collection(name)
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collRollups: {
			{
				Keys:    bson.D{{Key: "rollup_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collBatches: {
			{
				Keys:    bson.D{{Key: "rollup_id", Value: 1}, {Key: "batch_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "finalized", Value: 1}, {Key: "challenge_deadline", Value: 1}}},
		},
		collChallenges: {
			{
				Keys:    bson.D{{Key: "challenge_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "rollup_id", Value: 1}, {Key: "batch_id", Value: 1}}},
		},
		collDeposits: {
			{
				Keys:    bson.D{{Key: "rollup_id", Value: 1}, {Key: "user", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collWithdrawals: {
			{
				Keys:    bson.D{{Key: "rollup_id", Value: 1}, {Key: "request_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "withdrawal_hash", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		collEscrow: {
			{
				Keys:    bson.D{{Key: "account", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collCredentials: {
			{
				Keys:    bson.D{{Key: "rollup_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collCheckpoints: {
			{
				Keys:    bson.D{{Key: "keeper", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for name, models := range indexes {
		if _, err := db.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	// the counters collection must exist before the first transaction uses it
	_, err := db.collection(collCounters).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: "init"}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "value", Value: 0}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create counters collection: %w", err)
	}

	return nil
}
