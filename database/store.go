package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/database/models"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ rollup.Store = &Database{}

// RunTx runs fn inside a MongoDB session transaction. The context handed to
// fn carries the session, so the escrow collections written through it
// commit or abort together with the rollup tables.
func (db *Database) RunTx(ctx context.Context, fn func(ctx context.Context, tx rollup.Tx) error) error {
	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, &mongoTx{db: db})
	})
	return err
}

type mongoTx struct {
	db *Database
}

func (tx *mongoTx) NextID(ctx context.Context, sequence string) (uint64, error) {
	var counter models.Counter
	err := tx.db.collection(collCounters).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: sequence}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", sequence, err)
	}
	return counter.Value, nil
}

// findOne decodes the single document matching filter, translating a miss
// into notFound.
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.D, out interface{}, notFound error) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("failed to find in %s: %w", coll.Name(), err)
	}
	return nil
}

func replaceOne(ctx context.Context, coll *mongo.Collection, filter bson.D, doc interface{}) error {
	_, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save to %s: %w", coll.Name(), err)
	}
	return nil
}

func (tx *mongoTx) Rollup(ctx context.Context, id uint64) (*rollup.Rollup, error) {
	var m models.Rollup
	if err := findOne(ctx, tx.db.collection(collRollups), bson.D{{Key: "rollup_id", Value: id}}, &m, rollup.ErrRollupNotFound); err != nil {
		return nil, err
	}
	return fromRollupModel(m), nil
}

func (tx *mongoTx) SaveRollup(ctx context.Context, r *rollup.Rollup) error {
	return replaceOne(ctx, tx.db.collection(collRollups), bson.D{{Key: "rollup_id", Value: r.ID}}, toRollupModel(r))
}

func batchFilter(rollupID, batchID uint64) bson.D {
	return bson.D{{Key: "rollup_id", Value: rollupID}, {Key: "batch_id", Value: batchID}}
}

func (tx *mongoTx) Batch(ctx context.Context, rollupID, batchID uint64) (*rollup.Batch, error) {
	var m models.Batch
	if err := findOne(ctx, tx.db.collection(collBatches), batchFilter(rollupID, batchID), &m, rollup.ErrBatchNotFound); err != nil {
		return nil, err
	}
	return fromBatchModel(m), nil
}

func (tx *mongoTx) SaveBatch(ctx context.Context, b *rollup.Batch) error {
	return replaceOne(ctx, tx.db.collection(collBatches), batchFilter(b.RollupID, b.BatchID), toBatchModel(b))
}

func (tx *mongoTx) ListBatches(ctx context.Context, rollupID uint64, page, pageSize int64) (*rollup.Page[rollup.Batch], error) {
	collection := tx.db.collection(collBatches)
	filter := bson.D{{Key: "rollup_id", Value: rollupID}}

	totalCount, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "batch_id", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer cursor.Close(ctx)

	var ms []models.Batch
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}

	items := make([]rollup.Batch, len(ms))
	for i, m := range ms {
		items[i] = *fromBatchModel(m)
	}

	return &rollup.Page[rollup.Batch]{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (tx *mongoTx) DueBatches(ctx context.Context, height uint64) ([]*rollup.Batch, error) {
	filter := bson.D{
		{Key: "finalized", Value: false},
		{Key: "fraudulent", Value: false},
		{Key: "open_challenges", Value: 0},
		{Key: "challenge_deadline", Value: bson.D{{Key: "$lt", Value: height}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "rollup_id", Value: 1}, {Key: "batch_id", Value: 1}})

	cursor, err := tx.db.collection(collBatches).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get due batches: %w", err)
	}
	defer cursor.Close(ctx)

	var ms []models.Batch
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}

	due := make([]*rollup.Batch, len(ms))
	for i, m := range ms {
		due[i] = fromBatchModel(m)
	}
	return due, nil
}

func (tx *mongoTx) Challenge(ctx context.Context, id uint64) (*rollup.Challenge, error) {
	var m models.Challenge
	if err := findOne(ctx, tx.db.collection(collChallenges), bson.D{{Key: "challenge_id", Value: id}}, &m, rollup.ErrChallengeNotFound); err != nil {
		return nil, err
	}
	return fromChallengeModel(m)
}

func (tx *mongoTx) SaveChallenge(ctx context.Context, c *rollup.Challenge) error {
	return replaceOne(ctx, tx.db.collection(collChallenges), bson.D{{Key: "challenge_id", Value: c.ID}}, toChallengeModel(c))
}

func (tx *mongoTx) PendingChallenges(ctx context.Context) ([]*rollup.Challenge, error) {
	filter := bson.D{{Key: "status", Value: string(types.ChallengePending)}}
	opts := options.Find().SetSort(bson.D{{Key: "challenge_id", Value: 1}})

	cursor, err := tx.db.collection(collChallenges).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending challenges: %w", err)
	}
	defer cursor.Close(ctx)

	var ms []models.Challenge
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("failed to decode challenges: %w", err)
	}

	pending := make([]*rollup.Challenge, 0, len(ms))
	for _, m := range ms {
		c, err := fromChallengeModel(m)
		if err != nil {
			return nil, err
		}
		pending = append(pending, c)
	}
	return pending, nil
}

func depositFilter(rollupID uint64, user common.Address) bson.D {
	return bson.D{{Key: "rollup_id", Value: rollupID}, {Key: "user", Value: user.Hex()}}
}

func (tx *mongoTx) Deposit(ctx context.Context, rollupID uint64, user common.Address) (*rollup.UserDeposit, error) {
	var m models.UserDeposit
	err := tx.db.collection(collDeposits).FindOne(ctx, depositFilter(rollupID, user)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &rollup.UserDeposit{RollupID: rollupID, User: user}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return fromDepositModel(m), nil
}

func (tx *mongoTx) SaveDeposit(ctx context.Context, d *rollup.UserDeposit) error {
	return replaceOne(ctx, tx.db.collection(collDeposits), depositFilter(d.RollupID, d.User), toDepositModel(d))
}

func (tx *mongoTx) SumDeposits(ctx context.Context, rollupID uint64) (uint64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "rollup_id", Value: rollupID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$add", Value: bson.A{"$balance", "$pending_withdrawals"}},
			}}}},
		}}},
	}

	cursor, err := tx.db.collection(collDeposits).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to execute tvl aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total uint64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode tvl: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func withdrawalFilter(rollupID, requestID uint64) bson.D {
	return bson.D{{Key: "rollup_id", Value: rollupID}, {Key: "request_id", Value: requestID}}
}

func (tx *mongoTx) Withdrawal(ctx context.Context, rollupID, requestID uint64) (*rollup.WithdrawalRequest, error) {
	var m models.Withdrawal
	if err := findOne(ctx, tx.db.collection(collWithdrawals), withdrawalFilter(rollupID, requestID), &m, rollup.ErrWithdrawalNotFound); err != nil {
		return nil, err
	}
	return fromWithdrawalModel(m)
}

func (tx *mongoTx) SaveWithdrawal(ctx context.Context, w *rollup.WithdrawalRequest) error {
	return replaceOne(ctx, tx.db.collection(collWithdrawals), withdrawalFilter(w.RollupID, w.RequestID), toWithdrawalModel(w))
}
