package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Engine runs the rollup lifecycle: registration, the batch pipeline, the
// fraud challenge arbiter and the deposit/withdrawal ledger. Every mutating
// operation is serialized and executed as one store transaction.
type Engine struct {
	mu        sync.Mutex
	store     Store
	escrow    BondEscrow
	verifier  ProofVerifier
	issuer    CredentialIssuer
	heights   HeightSource
	publisher Publisher
	logger    *slog.Logger
}

type EngineOpts struct {
	Store     Store
	Escrow    BondEscrow
	Verifier  ProofVerifier
	Issuer    CredentialIssuer
	Heights   HeightSource
	Publisher Publisher // optional
	Logger    *slog.Logger
}

func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Escrow == nil {
		return nil, errors.New("engine: escrow is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("engine: proof verifier is required")
	}
	if opts.Issuer == nil {
		return nil, errors.New("engine: credential issuer is required")
	}
	if opts.Heights == nil {
		return nil, errors.New("engine: height source is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		store:     opts.Store,
		escrow:    opts.Escrow,
		verifier:  opts.Verifier,
		issuer:    opts.Issuer,
		heights:   opts.Heights,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}, nil
}

// Height returns the current settlement height.
func (e *Engine) Height(ctx context.Context) (uint64, error) {
	height, err := e.heights.Height(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current height: %w", err)
	}
	return height, nil
}

// update runs fn under the writer lock in a store transaction pinned to the
// current height. Events returned by fn are published once it committed.
func (e *Engine) update(ctx context.Context, op string, fn func(ctx context.Context, tx Tx, height uint64) ([]Event, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	height, err := e.Height(ctx)
	if err != nil {
		return err
	}

	var events []Event
	err = e.store.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		events, err = fn(ctx, tx, height)
		return err
	})
	if err != nil {
		if kind := KindOf(err); kind != "" {
			e.logger.Debug("operation rejected", "op", op, "kind", kind, "reason", err, "height", height)
		} else {
			e.logger.Error("operation failed", "op", op, "error", err, "height", height)
		}
		return err
	}

	e.publish(ctx, events)
	return nil
}

func (e *Engine) view(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return e.store.RunTx(ctx, fn)
}

func (e *Engine) publish(ctx context.Context, events []Event) {
	if e.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.logger.Warn("failed to publish event", "type", ev.Type, "rollupID", ev.RollupID, "error", err)
		}
	}
}
