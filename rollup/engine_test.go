package rollup_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-rollup-api/escrow"
	"github.com/lightlink-network/ll-rollup-api/memstore"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
	"github.com/lightlink-network/ll-rollup-api/verifier"
	"github.com/stretchr/testify/require"
)

var (
	operator   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	challenger = common.HexToAddress("0x2222222222222222222222222222222222222222")
	user       = common.HexToAddress("0x3333333333333333333333333333333333333333")
	stranger   = common.HexToAddress("0x4444444444444444444444444444444444444444")

	genesisRoot = crypto.Keccak256Hash([]byte("genesis"))
)

type testHeights struct {
	mu sync.Mutex
	h  uint64
}

func (t *testHeights) Height(context.Context) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.h, nil
}

func (t *testHeights) set(h uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.h = h
}

type recorder struct {
	mu     sync.Mutex
	events []rollup.Event
}

func (r *recorder) Publish(_ context.Context, ev rollup.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []rollup.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rollup.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	engine  *rollup.Engine
	store   *memstore.Store
	ledger  *escrow.Ledger
	creds   *escrow.Credentials
	oracle  *verifier.Oracle
	heights *testHeights
	events  *recorder
}

// newHarness builds an engine at height 100. A nil verifier selects an oracle
// whose verdicts the test posts explicitly.
func newHarness(t *testing.T, v rollup.ProofVerifier) *harness {
	t.Helper()

	oracle, err := verifier.NewOracle(16)
	require.NoError(t, err)
	if v == nil {
		v = oracle
	}

	h := &harness{
		t:       t,
		ctx:     context.Background(),
		store:   memstore.New(),
		ledger:  escrow.NewLedger(),
		creds:   escrow.NewCredentials(),
		oracle:  oracle,
		heights: &testHeights{h: 100},
		events:  &recorder{},
	}
	h.engine, err = rollup.NewEngine(rollup.EngineOpts{
		Store:     h.store,
		Escrow:    h.ledger,
		Verifier:  v,
		Issuer:    h.creds,
		Heights:   h.heights,
		Publisher: h.events,
	})
	require.NoError(t, err)
	return h
}

func defaultParams() rollup.RegisterParams {
	return rollup.RegisterParams{
		Name:             "lightlink-testnet",
		BlockTime:        12,
		MaxTxPerBlock:    1000,
		DataAvailability: types.DataAvailabilityCelestia,
		ExecutionType:    types.ExecutionOptimistic,
		Operator:         operator,
		GenesisRoot:      genesisRoot,
	}
}

// register funds the operator and registers a rollup with default params.
func (h *harness) register() uint64 {
	h.t.Helper()
	h.ledger.Fund(operator, rollup.OperatorBond)
	id, err := h.engine.Register(h.ctx, defaultParams())
	require.NoError(h.t, err)
	return id
}

func (h *harness) submit(rollupID uint64, label string, txCount uint64) uint64 {
	h.t.Helper()
	id, err := h.engine.SubmitBatch(h.ctx, operator, rollupID, root(label), txCount, dataHash(label))
	require.NoError(h.t, err)
	return id
}

func (h *harness) challenge(rollupID, batchID uint64, proof []byte) uint64 {
	h.t.Helper()
	h.ledger.Fund(challenger, rollup.ChallengeBond)
	id, err := h.engine.ChallengeBatch(h.ctx, challenger, rollupID, batchID, proof)
	require.NoError(h.t, err)
	return id
}

func (h *harness) batch(rollupID, batchID uint64) *rollup.Batch {
	h.t.Helper()
	b, err := h.engine.GetBatch(h.ctx, rollupID, batchID)
	require.NoError(h.t, err)
	return b
}

func (h *harness) getRollup(rollupID uint64) *rollup.Rollup {
	h.t.Helper()
	r, err := h.engine.GetRollup(h.ctx, rollupID)
	require.NoError(h.t, err)
	return r
}

func root(label string) common.Hash {
	return crypto.Keccak256Hash([]byte("root:" + label))
}

func dataHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte("data:" + label))
}

func requireKind(t *testing.T, err error, target error, kind rollup.Kind) {
	t.Helper()
	require.ErrorIs(t, err, target)
	require.Equal(t, kind, rollup.KindOf(err))
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	_, err := rollup.NewEngine(rollup.EngineOpts{})
	require.Error(t, err)

	_, err = rollup.NewEngine(rollup.EngineOpts{
		Store:  memstore.New(),
		Escrow: escrow.NewLedger(),
		Issuer: escrow.NewCredentials(),
	})
	require.Error(t, err)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, rollup.KindTiming, rollup.KindOf(rollup.ErrTooEarly))
	require.Equal(t, rollup.Kind(""), rollup.KindOf(context.Canceled))
}

// Escrowed value must always equal bonds, pending challenge bonds and the
// value users have locked in the rollups.
func TestEscrowConservation(t *testing.T) {
	h := newHarness(t, nil)
	first := h.register()
	second := h.register()

	h.ledger.Fund(user, 5_000)
	require.NoError(t, h.engine.Deposit(h.ctx, user, first, 1_000))
	require.NoError(t, h.engine.Deposit(h.ctx, user, second, 700))
	_, err := h.engine.InitiateWithdrawal(h.ctx, user, first, 300, nil)
	require.NoError(t, err)

	batchID := h.submit(first, "b1", 10)
	challengeID := h.challenge(first, batchID, []byte("proof"))

	expected := 2*rollup.OperatorBond + rollup.ChallengeBond + 1_000 + 700
	require.Equal(t, expected, h.ledger.Custody())

	require.NoError(t, h.oracle.Record(verifier.ProofHash([]byte("proof")), rollup.Unverified))
	_, err = h.engine.ResolveChallenge(h.ctx, challengeID)
	require.NoError(t, err)
	require.Equal(t, expected-rollup.ChallengeBond, h.ledger.Custody())

	h.heights.set(100 + rollup.FinalityPeriod)
	require.NoError(t, h.engine.ExecuteWithdrawal(h.ctx, user, first, 1))
	require.Equal(t, expected-rollup.ChallengeBond-300, h.ledger.Custody())
}
