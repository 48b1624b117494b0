// Package keeper drives the time-dependent transitions of the engine: it
// finalizes batches whose challenge window has passed and resolves
// challenges once a verdict is available or the resolution deadline is
// reached.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

const (
	Finalizer = "finalizer"
	Resolver  = "resolver"
)

type Engine interface {
	Height(ctx context.Context) (uint64, error)
	DueBatches(ctx context.Context) ([]*rollup.Batch, error)
	FinalizeBatch(ctx context.Context, rollupID, batchID uint64) error
	PendingChallenges(ctx context.Context) ([]*rollup.Challenge, error)
	ResolveChallenge(ctx context.Context, challengeID uint64) (types.ChallengeStatus, error)
}

// Checkpoints persists the height of each keeper's last sweep.
type Checkpoints interface {
	UpdateCheckpoint(ctx context.Context, keeper string, height uint64) error
	GetCheckpoint(ctx context.Context, keeper string) (uint64, error)
}

type Metrics interface {
	RecordKeeperAction(keeper, result string)
	RecordKeeperHeight(keeper string, height uint64)
}

type Keeper struct {
	engine      Engine
	checkpoints Checkpoints
	metrics     Metrics
	interval    time.Duration
	logger      *slog.Logger
}

type KeeperOpts struct {
	Engine      Engine
	Checkpoints Checkpoints // optional
	Metrics     Metrics     // optional
	Interval    time.Duration
	Logger      *slog.Logger
}

func NewKeeper(opts KeeperOpts) (*Keeper, error) {
	if opts.Engine == nil {
		return nil, errors.New("keeper: engine is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Keeper{
		engine:      opts.Engine,
		checkpoints: opts.Checkpoints,
		metrics:     opts.Metrics,
		interval:    opts.Interval,
		logger:      opts.Logger.With("component", "keeper"),
	}, nil
}

// Run sweeps until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	errChan := make(chan error, 2)

	go func() {
		errChan <- k.loop(ctx, Finalizer, k.FinalizeDue)
	}()

	go func() {
		errChan <- k.loop(ctx, Resolver, k.ResolvePending)
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (k *Keeper) loop(ctx context.Context, name string, sweep func(ctx context.Context) (int, error)) error {
	if k.checkpoints != nil {
		last, err := k.checkpoints.GetCheckpoint(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to get %s checkpoint: %w", name, err)
		}
		k.logger.Info("starting keeper", "keeper", name, "lastHeight", last, "interval", k.interval)
	} else {
		k.logger.Info("starting keeper", "keeper", name, "interval", k.interval)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("shutting down keeper", "keeper", name)
			return nil
		case <-timer.C:
			if _, err := sweep(ctx); err != nil && ctx.Err() == nil {
				// transient store or node failures are retried next tick
				k.logger.Error("keeper sweep failed", "keeper", name, "error", err)
			}
			timer.Reset(k.interval)
		}
	}
}

// FinalizeDue finalizes every batch whose challenge window has passed and
// returns how many it finalized.
func (k *Keeper) FinalizeDue(ctx context.Context) (int, error) {
	height, err := k.engine.Height(ctx)
	if err != nil {
		return 0, err
	}

	due, err := k.engine.DueBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get due batches: %w", err)
	}

	finalized := 0
	for _, b := range due {
		err := k.engine.FinalizeBatch(ctx, b.RollupID, b.BatchID)
		switch {
		case err == nil:
			finalized++
			k.record(Finalizer, "finalized")
			k.logger.Info("finalized batch", "rollupID", b.RollupID, "batchID", b.BatchID)
		case rollup.KindOf(err) != "":
			// a challenge or another caller got there first
			k.record(Finalizer, "skipped")
			k.logger.Debug("skipped batch", "rollupID", b.RollupID, "batchID", b.BatchID, "reason", err)
		default:
			k.record(Finalizer, "failed")
			return finalized, fmt.Errorf("failed to finalize batch %d/%d: %w", b.RollupID, b.BatchID, err)
		}
	}

	k.checkpoint(ctx, Finalizer, height)
	return finalized, nil
}

// ResolvePending settles every pending challenge that has a verdict or has
// reached its resolution deadline and returns how many it resolved.
func (k *Keeper) ResolvePending(ctx context.Context) (int, error) {
	height, err := k.engine.Height(ctx)
	if err != nil {
		return 0, err
	}

	pending, err := k.engine.PendingChallenges(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending challenges: %w", err)
	}

	resolved := 0
	for _, c := range pending {
		status, err := k.engine.ResolveChallenge(ctx, c.ID)
		switch {
		case err == nil:
			resolved++
			k.record(Resolver, string(status))
			k.logger.Info("resolved challenge", "challengeID", c.ID, "rollupID", c.RollupID, "batchID", c.BatchID, "status", status)
		case errors.Is(err, rollup.ErrVerdictPending):
			k.record(Resolver, "pending")
		case rollup.KindOf(err) != "":
			k.record(Resolver, "skipped")
			k.logger.Debug("skipped challenge", "challengeID", c.ID, "reason", err)
		default:
			k.record(Resolver, "failed")
			return resolved, fmt.Errorf("failed to resolve challenge %d: %w", c.ID, err)
		}
	}

	k.checkpoint(ctx, Resolver, height)
	return resolved, nil
}

func (k *Keeper) record(keeper, result string) {
	if k.metrics != nil {
		k.metrics.RecordKeeperAction(keeper, result)
	}
}

func (k *Keeper) checkpoint(ctx context.Context, keeper string, height uint64) {
	if k.metrics != nil {
		k.metrics.RecordKeeperHeight(keeper, height)
	}
	if k.checkpoints == nil {
		return
	}
	if err := k.checkpoints.UpdateCheckpoint(ctx, keeper, height); err != nil {
		k.logger.Warn("failed to update keeper checkpoint", "keeper", keeper, "error", err)
	}
}
