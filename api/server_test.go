package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-rollup-api/escrow"
	"github.com/lightlink-network/ll-rollup-api/memstore"
	"github.com/lightlink-network/ll-rollup-api/metrics"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	operatorKey   = mustKey("1111111111111111111111111111111111111111111111111111111111111111")
	challengerKey = mustKey("2222222222222222222222222222222222222222222222222222222222222222")
	userKey       = mustKey("3333333333333333333333333333333333333333333333333333333333333333")
	strangerKey   = mustKey("4444444444444444444444444444444444444444444444444444444444444444")

	operator   = crypto.PubkeyToAddress(operatorKey.PublicKey)
	challenger = crypto.PubkeyToAddress(challengerKey.PublicKey)
	user       = crypto.PubkeyToAddress(userKey.PublicKey)
	stranger   = crypto.PubkeyToAddress(strangerKey.PublicKey)
)

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

type heights struct {
	mu sync.Mutex
	h  uint64
}

func (s *heights) Height(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h, nil
}

func (s *heights) set(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

type testServer struct {
	t       *testing.T
	server  *Server
	ledger  *escrow.Ledger
	heights *heights
	clock   time.Time
}

func newTestServer(t *testing.T, opts ...func(*ServerOpts)) *testServer {
	t.Helper()

	oracle, err := verifier.NewOracle(16)
	require.NoError(t, err)

	ts := &testServer{
		t:       t,
		ledger:  escrow.NewLedger(),
		heights: &heights{h: 100},
		clock:   time.Unix(1_700_000_000, 0),
	}
	engine, err := rollup.NewEngine(rollup.EngineOpts{
		Store:    memstore.New(),
		Escrow:   ts.ledger,
		Verifier: oracle,
		Issuer:   escrow.NewCredentials(),
		Heights:  ts.heights,
	})
	require.NoError(t, err)

	serverOpts := ServerOpts{
		Engine:  engine,
		Oracle:  oracle,
		Metrics: metrics.NewRecorder(),
		Funder: FunderFunc(func(_ context.Context, account common.Address, amount uint64) error {
			return ts.ledger.Fund(account, amount)
		}),
	}
	for _, opt := range opts {
		opt(&serverOpts)
	}
	ts.server, err = NewServer(serverOpts)
	require.NoError(t, err)
	ts.server.now = func() time.Time { return ts.clock }
	return ts
}

func (ts *testServer) request(method, path string, body interface{}) *http.Request {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	return httptest.NewRequest(method, path, &buf)
}

// serve runs req and decodes the JSON response into out when non-nil.
func (ts *testServer) serve(req *http.Request, out interface{}) int {
	ts.t.Helper()

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)

	assert.Equal(ts.t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(ts.t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

// do sends an unsigned request.
func (ts *testServer) do(method, path string, body interface{}, out interface{}) int {
	ts.t.Helper()
	return ts.serve(ts.request(method, path, body), out)
}

// doAs sends a request signed by key. The clock advances a second per
// request so identical calls get distinct signatures.
func (ts *testServer) doAs(key *ecdsa.PrivateKey, method, path string, body interface{}, out interface{}) int {
	ts.t.Helper()

	ts.clock = ts.clock.Add(time.Second)
	req := ts.request(method, path, body)
	require.NoError(ts.t, SignRequest(req, key, ts.clock))
	return ts.serve(req, out)
}

func (ts *testServer) register() uint64 {
	ts.t.Helper()
	require.NoError(ts.t, ts.ledger.Fund(operator, rollup.OperatorBond))

	var resp struct {
		RollupID uint64 `json:"rollup_id"`
	}
	code := ts.doAs(operatorKey, "POST", "/v1/rollups", map[string]interface{}{
		"name":              "lightlink",
		"block_time":        12,
		"max_tx_per_block":  1000,
		"data_availability": "celestia",
		"execution_type":    "optimistic",
		"operator":          operator,
		"genesis_root":      crypto.Keccak256Hash([]byte("genesis")),
	}, &resp)
	require.Equal(ts.t, http.StatusCreated, code)
	return resp.RollupID
}

type errorResponse struct {
	Error string      `json:"error"`
	Kind  rollup.Kind `json:"kind"`
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(ServerOpts{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	var resp map[string]interface{}
	require.Equal(t, http.StatusOK, ts.do("GET", "/v1/health", nil, &resp))
	require.Equal(t, "online", resp["health_status"])
	require.Equal(t, float64(100), resp["height"])
	require.NotContains(t, resp, "chain_id")

	ts = newTestServer(t, func(o *ServerOpts) { o.ChainID = big.NewInt(1891) })
	require.Equal(t, http.StatusOK, ts.do("GET", "/v1/health", nil, &resp))
	require.Equal(t, float64(1891), resp["chain_id"])
}

func TestRegisterAndGetRollup(t *testing.T) {
	ts := newTestServer(t)
	id := ts.register()
	require.Equal(t, uint64(1), id)

	var r rollup.Rollup
	require.Equal(t, http.StatusOK, ts.do("GET", "/v1/rollups/1", nil, &r))
	require.Equal(t, "lightlink", r.Name)
	require.Equal(t, operator, r.Operator)
	require.True(t, r.Active)

	var e errorResponse
	require.Equal(t, http.StatusNotFound, ts.do("GET", "/v1/rollups/2", nil, &e))
	require.Equal(t, rollup.KindNotFound, e.Kind)

	require.Equal(t, http.StatusBadRequest, ts.do("GET", "/v1/rollups/abc", nil, &e))
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t)

	var e errorResponse
	code := ts.doAs(operatorKey, "POST", "/v1/rollups", map[string]interface{}{
		"name":              "broke",
		"block_time":        12,
		"max_tx_per_block":  10,
		"data_availability": "onchain",
		"execution_type":    "zk",
	}, &e)
	require.Equal(t, http.StatusPaymentRequired, code)
	require.Equal(t, rollup.KindInsufficientFunds, e.Kind)

	require.NoError(t, ts.ledger.Fund(operator, rollup.OperatorBond))
	code = ts.doAs(operatorKey, "POST", "/v1/rollups", map[string]interface{}{
		"name":              "slow",
		"block_time":        1,
		"max_tx_per_block":  10,
		"data_availability": "onchain",
		"execution_type":    "zk",
	}, &e)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, rollup.KindValidation, e.Kind)

	// a signer cannot register a rollup on behalf of another operator
	require.NoError(t, ts.ledger.Fund(stranger, rollup.OperatorBond))
	code = ts.doAs(strangerKey, "POST", "/v1/rollups", map[string]interface{}{
		"name":              "hijack",
		"block_time":        12,
		"max_tx_per_block":  10,
		"data_availability": "onchain",
		"execution_type":    "zk",
		"operator":          operator,
	}, &e)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, rollup.KindAuthorization, e.Kind)
	require.Equal(t, rollup.OperatorBond, ts.ledger.BalanceOf(stranger))
	require.Equal(t, rollup.OperatorBond, ts.ledger.BalanceOf(operator))
}

func TestBatchLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.register()
	batchesPath := fmt.Sprintf("/v1/rollups/%d/batches", id)

	var e errorResponse
	code := ts.doAs(challengerKey, "POST", batchesPath, map[string]interface{}{
		"state_root": crypto.Keccak256Hash([]byte("root")),
		"tx_count":   10,
		"data_hash":  crypto.Keccak256Hash([]byte("data")),
	}, &e)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, rollup.KindAuthorization, e.Kind)

	var submitted struct {
		BatchID uint64 `json:"batch_id"`
	}
	code = ts.doAs(operatorKey, "POST", batchesPath, map[string]interface{}{
		"state_root": crypto.Keccak256Hash([]byte("root")),
		"tx_count":   10,
		"data_hash":  crypto.Keccak256Hash([]byte("data")),
	}, &submitted)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, uint64(1), submitted.BatchID)

	var page struct {
		Items []struct {
			BatchID uint64 `json:"batch_id"`
			State   string `json:"state"`
		} `json:"items"`
		TotalCount int64 `json:"total_count"`
	}
	require.Equal(t, http.StatusOK, ts.do("GET", batchesPath+"?page=1&pageSize=5", nil, &page))
	require.Equal(t, int64(1), page.TotalCount)
	require.Len(t, page.Items, 1)
	require.Equal(t, "OPEN", page.Items[0].State)

	// challenge with a proof the oracle later rejects
	require.NoError(t, ts.ledger.Fund(challenger, rollup.ChallengeBond))
	var opened struct {
		ChallengeID uint64 `json:"challenge_id"`
	}
	code = ts.doAs(challengerKey, "POST", batchesPath+"/1/challenges", map[string]interface{}{
		"fraud_proof": "0xdeadbeef",
	}, &opened)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, uint64(1), opened.ChallengeID)

	var pending []rollup.Challenge
	require.Equal(t, http.StatusOK, ts.do("GET", "/v1/challenges", nil, &pending))
	require.Len(t, pending, 1)

	require.Equal(t, http.StatusConflict, ts.do("POST", batchesPath+"/1/finalize", nil, &e))
	require.Equal(t, rollup.KindTiming, e.Kind)

	require.Equal(t, http.StatusConflict, ts.do("POST", "/v1/challenges/1/resolve", nil, &e))
	require.Equal(t, rollup.KindTiming, e.Kind)

	require.Equal(t, http.StatusBadRequest, ts.doAs(strangerKey, "POST", "/v1/verdicts", map[string]interface{}{
		"verdict": "unverified",
	}, &e))
	require.Equal(t, http.StatusOK, ts.doAs(strangerKey, "POST", "/v1/verdicts", map[string]interface{}{
		"fraud_proof": "0xdeadbeef",
		"verdict":     "unverified",
	}, nil))

	var resolved struct {
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, ts.do("POST", "/v1/challenges/1/resolve", nil, &resolved))
	require.Equal(t, "REJECTED", resolved.Status)

	var c rollup.Challenge
	require.Equal(t, http.StatusOK, ts.do("GET", "/v1/challenges/1", nil, &c))
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, []byte(c.FraudProof))
	require.Equal(t, operator, *c.Winner)

	ts.heights.set(100 + rollup.ChallengePeriod + 1)
	require.Equal(t, http.StatusOK, ts.do("POST", batchesPath+"/1/finalize", nil, nil))

	var b struct {
		Finalized bool   `json:"finalized"`
		State     string `json:"state"`
	}
	require.Equal(t, http.StatusOK, ts.do("GET", batchesPath+"/1", nil, &b))
	require.True(t, b.Finalized)
	require.Equal(t, "FINALIZED", b.State)
}

func TestDepositAndWithdrawal(t *testing.T) {
	ts := newTestServer(t)
	id := ts.register()
	base := fmt.Sprintf("/v1/rollups/%d", id)

	require.Equal(t, http.StatusOK, ts.do("POST", "/v1/accounts/"+user.Hex()+"/fund", map[string]interface{}{"amount": 1000}, nil))

	var d rollup.UserDeposit
	require.Equal(t, http.StatusOK, ts.doAs(userKey, "POST", base+"/deposits", map[string]interface{}{"amount": 1000}, &d))
	require.Equal(t, uint64(1000), d.Balance)

	var created struct {
		RequestID uint64 `json:"request_id"`
	}
	require.Equal(t, http.StatusCreated, ts.doAs(userKey, "POST", base+"/withdrawals", map[string]interface{}{
		"amount":          400,
		"inclusion_proof": "0x01",
	}, &created))
	require.Equal(t, uint64(1), created.RequestID)

	var w struct {
		Amount uint64 `json:"amount"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, ts.do("GET", base+"/withdrawals/1", nil, &w))
	require.Equal(t, uint64(400), w.Amount)
	require.Equal(t, "REQUESTED", w.Status)

	var e errorResponse
	require.Equal(t, http.StatusConflict, ts.doAs(userKey, "POST", base+"/withdrawals/1/execute", nil, &e))
	require.Equal(t, rollup.KindTiming, e.Kind)

	ts.heights.set(100 + rollup.FinalityPeriod)
	require.Equal(t, http.StatusForbidden, ts.doAs(operatorKey, "POST", base+"/withdrawals/1/execute", nil, &e))
	require.Equal(t, http.StatusOK, ts.doAs(userKey, "POST", base+"/withdrawals/1/execute", nil, nil))
	require.Equal(t, uint64(400), ts.ledger.BalanceOf(user))

	require.Equal(t, http.StatusOK, ts.do("GET", base+"/balances/"+user.Hex(), nil, &d))
	require.Equal(t, uint64(600), d.Balance)
	require.Zero(t, d.PendingWithdrawals)

	var tvl struct {
		TVL uint64 `json:"tvl"`
	}
	require.Equal(t, http.StatusOK, ts.do("GET", base+"/tvl", nil, &tvl))
	require.Equal(t, uint64(600), tvl.TVL)

	require.Equal(t, http.StatusBadRequest, ts.do("GET", base+"/balances/not-an-address", nil, &e))
}

func TestFundRejectsOversizedAmount(t *testing.T) {
	ts := newTestServer(t)
	path := "/v1/accounts/" + user.Hex() + "/fund"

	var e errorResponse
	require.Equal(t, http.StatusBadRequest, ts.do("POST", path, map[string]interface{}{"amount": rollup.MaxAmount + 1}, &e))
	require.Equal(t, rollup.KindValidation, e.Kind)
	require.Equal(t, http.StatusBadRequest, ts.do("POST", path, map[string]interface{}{"amount": 0}, &e))
	require.Zero(t, ts.ledger.BalanceOf(user))

	require.Equal(t, http.StatusOK, ts.do("POST", path, map[string]interface{}{"amount": rollup.MaxAmount}, nil))
	require.Equal(t, rollup.MaxAmount, ts.ledger.BalanceOf(user))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do("GET", "/v1/health", nil, nil)

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `ll_rollup_request_count{code="200",route="/v1/health"} 1`)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(rollup.ErrBatchTooLarge))
	require.Equal(t, http.StatusForbidden, statusFor(rollup.ErrNotOwner))
	require.Equal(t, http.StatusConflict, statusFor(rollup.ErrTooEarly))
	require.Equal(t, http.StatusConflict, statusFor(rollup.ErrAlreadyExecuted))
	require.Equal(t, http.StatusPaymentRequired, statusFor(rollup.ErrInsufficientBalance))
	require.Equal(t, http.StatusNotFound, statusFor(rollup.ErrChallengeNotFound))
	require.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}
