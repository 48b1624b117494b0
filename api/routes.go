package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Sets up chi router, middlewares and defines all api endpoints
func (s *Server) routes() {
	s.r = chi.NewRouter()

	// Basic CORS
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", HeaderSignature, HeaderTimestamp},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// Injects a request ID into the context of each request
	s.r.Use(middleware.RequestID)
	// Sets a http.Request's RemoteAddr to either X-Real-IP or X-Forwarded-For
	s.r.Use(middleware.RealIP)
	// Logs the start and end of each request with the elapsed processing time
	s.r.Use(middleware.Logger)
	// Gracefully absorb panics and prints the stack trace
	s.r.Use(middleware.Recoverer)
	// Sets HTTP response headers as content type JSON
	s.r.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.r.Use(s.instrument)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	s.r.Use(middleware.Timeout(60 * time.Second))

	if s.metrics != nil {
		s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.r.Route("/v1", func(r chi.Router) {

		// health
		r.Get("/health", s.handleHealth)

		// rollups
		r.With(s.authenticate).Post("/rollups", s.handleRollupRegister)
		r.Route("/rollups/{rollupID}", func(r chi.Router) {
			r.Get("/", s.handleRollupGet)
			r.Get("/tvl", s.handleRollupTVL)
			r.Get("/balances/{user}", s.handleBalanceGet)

			// batches
			r.With(s.authenticate).Post("/batches", s.handleBatchSubmit)
			r.Get("/batches", s.handleBatchesGet)
			r.Get("/batches/{batchID}", s.handleBatchGet)
			r.Post("/batches/{batchID}/finalize", s.handleBatchFinalize)
			r.With(s.authenticate).Post("/batches/{batchID}/challenges", s.handleBatchChallenge)

			// ledger
			r.With(s.authenticate).Post("/deposits", s.handleDeposit)
			r.With(s.authenticate).Post("/withdrawals", s.handleWithdrawalInitiate)
			r.Get("/withdrawals/{requestID}", s.handleWithdrawalGet)
			r.With(s.authenticate).Post("/withdrawals/{requestID}/execute", s.handleWithdrawalExecute)
		})

		// challenges
		r.Get("/challenges", s.handleChallengesPending)
		r.Get("/challenges/{challengeID}", s.handleChallengeGet)
		r.Post("/challenges/{challengeID}/resolve", s.handleChallengeResolve)

		if s.oracle != nil {
			r.With(s.authenticate, s.requireProver).Post("/verdicts", s.handleVerdictPost)
		}
		if s.funder != nil {
			r.Post("/accounts/{address}/fund", s.handleAccountFund)
		}
	})
}

// instrument records request count and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordRequest(route, status, time.Since(start))
	})
}
