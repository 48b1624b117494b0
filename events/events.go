// Package events fans committed lifecycle events out to sinks.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// Log writes every event to a structured logger.
type Log struct {
	logger *slog.Logger
}

var _ rollup.Publisher = &Log{}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "events")}
}

func (l *Log) Publish(_ context.Context, ev rollup.Event) error {
	l.logger.Info("event",
		"type", ev.Type,
		"rollupID", ev.RollupID,
		"batchID", ev.BatchID,
		"challengeID", ev.ChallengeID,
		"requestID", ev.RequestID,
		"account", ev.Account.Hex(),
		"amount", ev.Amount,
		"status", ev.Status,
		"height", ev.Height)
	return nil
}

// Multi publishes to every sink and joins their errors. A failing sink does
// not stop the others.
type Multi []rollup.Publisher

var _ rollup.Publisher = Multi{}

func (m Multi) Publish(ctx context.Context, ev rollup.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
