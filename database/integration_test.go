package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
	"github.com/lightlink-network/ll-rollup-api/verifier"
	"github.com/stretchr/testify/require"
)

// testDatabase connects to the replica set named by MONGODB_TEST_URI and
// drops its scratch database when the test ends.
func testDatabase(t *testing.T) *Database {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	db, err := NewDatabase(DatabaseOpts{
		URI:          uri,
		DatabaseName: fmt.Sprintf("ll_rollup_test_%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	require.NoError(t, db.CreateIndexes(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		require.NoError(t, db.client.Database(db.databaseName).Drop(ctx))
		require.NoError(t, db.Close(ctx))
	})
	return db
}

type fixedHeight uint64

func (h fixedHeight) Height(context.Context) (uint64, error) { return uint64(h), nil }

func TestIntegrationEscrowJoinsTransaction(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	esc := db.Escrow()

	require.NoError(t, esc.Fund(ctx, alice, 100))

	abort := errors.New("abort")
	err := db.RunTx(ctx, func(ctx context.Context, tx rollup.Tx) error {
		if err := esc.TransferIn(ctx, alice, 60); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	balance, err := esc.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)
	custody, err := esc.Custody(ctx)
	require.NoError(t, err)
	require.Zero(t, custody)

	require.ErrorIs(t, esc.TransferIn(ctx, alice, 101), rollup.ErrInsufficientFunds)
	require.NoError(t, esc.TransferIn(ctx, alice, 60))
	require.NoError(t, esc.TransferOut(ctx, bob, 25))

	balance, err = esc.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(40), balance)
	balance, err = esc.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(25), balance)
	custody, err = esc.Custody(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(35), custody)
}

func TestIntegrationCounters(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	tx := &mongoTx{db: db}

	for want := uint64(1); want <= 3; want++ {
		id, err := tx.NextID(ctx, "batches/1")
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
	id, err := tx.NextID(ctx, "batches/2")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	first := time.UnixMilli(1_700_000_000_000)
	genesis, err := db.ClockGenesis(ctx, first)
	require.NoError(t, err)
	require.True(t, genesis.Equal(first))
	genesis, err = db.ClockGenesis(ctx, first.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, genesis.Equal(first))
}

func TestIntegrationEngine(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	esc := db.Escrow()

	oracle, err := verifier.NewOracle(16)
	require.NoError(t, err)
	engine, err := rollup.NewEngine(rollup.EngineOpts{
		Store:    db,
		Escrow:   esc,
		Verifier: oracle,
		Issuer:   db.Credentials(),
		Heights:  fixedHeight(100),
	})
	require.NoError(t, err)

	require.NoError(t, esc.Fund(ctx, alice, rollup.OperatorBond))
	id, err := engine.Register(ctx, rollup.RegisterParams{
		Name:             "lightlink",
		BlockTime:        12,
		MaxTxPerBlock:    100,
		DataAvailability: types.DataAvailabilityCelestia,
		ExecutionType:    types.ExecutionOptimistic,
		Operator:         alice,
		GenesisRoot:      crypto.Keccak256Hash([]byte("genesis")),
	})
	require.NoError(t, err)

	batchID, err := engine.SubmitBatch(ctx, alice, id, crypto.Keccak256Hash([]byte("root")), 10, crypto.Keccak256Hash([]byte("data")))
	require.NoError(t, err)
	require.Equal(t, uint64(1), batchID)

	// a failed deposit leaves neither the ledger nor the escrow touched
	require.NoError(t, esc.Fund(ctx, bob, 500))
	require.ErrorIs(t, engine.Deposit(ctx, bob, id, 501), rollup.ErrInsufficientFunds)
	require.NoError(t, engine.Deposit(ctx, bob, id, 300))

	tvl, err := engine.CalculateTVL(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(300), tvl)

	r, err := engine.GetRollup(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(300), r.TVL)

	balance, err := esc.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(200), balance)
	custody, err := esc.Custody(ctx)
	require.NoError(t, err)
	require.Equal(t, rollup.OperatorBond+300, custody)
}
