package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lightlink-network/ll-rollup-api/metrics"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/verifier"
)

// Funder credits escrow accounts with value from outside the system.
type Funder interface {
	Fund(ctx context.Context, account common.Address, amount uint64) error
}

// FunderFunc adapts a function to Funder.
type FunderFunc func(ctx context.Context, account common.Address, amount uint64) error

func (f FunderFunc) Fund(ctx context.Context, account common.Address, amount uint64) error {
	return f(ctx, account, amount)
}

// API server
type Server struct {
	r       chi.Router
	log     *slog.Logger
	engine  *rollup.Engine
	oracle  *verifier.Oracle
	funder  Funder
	metrics *metrics.Recorder
	provers map[common.Address]struct{}
	seen    *lru.Cache[common.Hash, struct{}]
	now     func() time.Time
	opts    ServerOpts
}

type ServerOpts struct {
	Engine  *rollup.Engine
	Oracle  *verifier.Oracle  // optional, enables POST /v1/verdicts
	Provers []common.Address  // optional, signers allowed to post verdicts
	Funder  Funder            // optional, enables POST /v1/accounts/{address}/fund
	Metrics *metrics.Recorder // optional, enables /metrics
	ChainID *big.Int          // optional, reported by /v1/health
	Logger  *slog.Logger
	Port    string
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	seen, err := lru.New[common.Hash, struct{}](seenSignatures)
	if err != nil {
		return nil, fmt.Errorf("api: failed to create signature cache: %w", err)
	}

	s := &Server{
		log:     opts.Logger.With("component", "api"),
		engine:  opts.Engine,
		oracle:  opts.Oracle,
		funder:  opts.Funder,
		metrics: opts.Metrics,
		provers: make(map[common.Address]struct{}, len(opts.Provers)),
		seen:    seen,
		now:     time.Now,
		opts:    opts,
	}
	for _, p := range opts.Provers {
		s.provers[p] = struct{}{}
	}
	s.routes()

	return s, nil
}

// StartServer serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down api server")
	return srv.Shutdown(shutdownCtx)
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns an error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	body := map[string]interface{}{"error": err.Error()}
	if kind := rollup.KindOf(err); kind != "" {
		body["kind"] = kind
	}

	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(body)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// statusFor maps a rejection kind to its HTTP status.
func statusFor(err error) int {
	switch rollup.KindOf(err) {
	case rollup.KindValidation:
		return http.StatusBadRequest
	case rollup.KindAuthorization:
		return http.StatusForbidden
	case rollup.KindTiming, rollup.KindStateConflict:
		return http.StatusConflict
	case rollup.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case rollup.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status of its kind. Infrastructure errors are
// logged and hidden from the caller.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		ERROR(w, status, errors.New("internal server error"))
		return
	}
	ERROR(w, status, err)
}
