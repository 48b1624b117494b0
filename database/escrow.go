package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/database/models"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// custodyAccount is the escrow_accounts row holding escrowed value.
const custodyAccount = "custody"

// Escrow keeps account balances and the custody pot in escrow_accounts.
// Called with the context of a Database transaction it joins that
// transaction.
type Escrow struct {
	db *Database
}

var _ rollup.BondEscrow = &Escrow{}

func (db *Database) Escrow() *Escrow {
	return &Escrow{db: db}
}

func (e *Escrow) credit(ctx context.Context, account string, amount uint64) error {
	if amount > rollup.MaxAmount {
		return rollup.ErrInvalidAmount
	}
	_, err := e.db.collection(collEscrow).UpdateOne(ctx,
		bson.D{{Key: "account", Value: account}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "balance", Value: int64(amount)}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", account, err)
	}
	return nil
}

// debit reports false without writing when the account holds less than amount.
func (e *Escrow) debit(ctx context.Context, account string, amount uint64) (bool, error) {
	if amount > rollup.MaxAmount {
		return false, rollup.ErrInvalidAmount
	}
	result, err := e.db.collection(collEscrow).UpdateOne(ctx,
		bson.D{
			{Key: "account", Value: account},
			{Key: "balance", Value: bson.D{{Key: "$gte", Value: int64(amount)}}},
		},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "balance", Value: -int64(amount)}}}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to debit %s: %w", account, err)
	}
	return result.MatchedCount == 1, nil
}

// Fund credits an account with value from outside the system.
func (e *Escrow) Fund(ctx context.Context, account common.Address, amount uint64) error {
	return e.credit(ctx, account.Hex(), amount)
}

func (e *Escrow) BalanceOf(ctx context.Context, account common.Address) (uint64, error) {
	return e.balance(ctx, account.Hex())
}

func (e *Escrow) Custody(ctx context.Context) (uint64, error) {
	return e.balance(ctx, custodyAccount)
}

func (e *Escrow) balance(ctx context.Context, account string) (uint64, error) {
	var m models.EscrowAccount
	err := e.db.collection(collEscrow).FindOne(ctx, bson.D{{Key: "account", Value: account}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get escrow balance: %w", err)
	}
	return m.Balance, nil
}

func (e *Escrow) TransferIn(ctx context.Context, account common.Address, amount uint64) error {
	ok, err := e.debit(ctx, account.Hex(), amount)
	if err != nil {
		return err
	}
	if !ok {
		return rollup.ErrInsufficientFunds
	}
	return e.credit(ctx, custodyAccount, amount)
}

func (e *Escrow) TransferOut(ctx context.Context, account common.Address, amount uint64) error {
	ok, err := e.debit(ctx, custodyAccount, amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("escrow: custody cannot cover %d", amount)
	}
	return e.credit(ctx, account.Hex(), amount)
}

// Credentials records operator credentials in operator_credentials.
type Credentials struct {
	db *Database
}

var _ rollup.CredentialIssuer = &Credentials{}

func (db *Database) Credentials() *Credentials {
	return &Credentials{db: db}
}

// Mint upserts the credential so it never fails a surrounding transaction
// with a duplicate key error.
func (c *Credentials) Mint(ctx context.Context, rollupID uint64, operator common.Address) error {
	var m models.OperatorCredential
	err := c.db.collection(collCredentials).FindOneAndUpdate(ctx,
		bson.D{{Key: "rollup_id", Value: rollupID}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "operator", Value: operator.Hex()}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return fmt.Errorf("failed to mint credential: %w", err)
	}
	if owner := common.HexToAddress(m.Operator); owner != operator {
		return fmt.Errorf("credential for rollup %d already held by %s", rollupID, owner.Hex())
	}
	return nil
}
