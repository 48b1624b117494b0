package ethereum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// Clock derives heights from wall time for deployments without an L1 node:
// one height per blockTime since genesis. Heights never decrease, even if
// the wall clock is stepped back.
type Clock struct {
	genesis   time.Time
	blockTime time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last uint64
}

var _ rollup.HeightSource = &Clock{}

func NewClock(genesis time.Time, blockTime time.Duration) *Clock {
	if blockTime <= 0 {
		blockTime = 12 * time.Second
	}
	return &Clock{genesis: genesis, blockTime: blockTime, now: time.Now}
}

func (c *Clock) Height(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.now().Sub(c.genesis)
	if elapsed > 0 {
		if h := uint64(elapsed / c.blockTime); h > c.last {
			c.last = h
		}
	}
	return c.last, nil
}

// GenesisStore keeps the clock genesis across restarts. ClockGenesis stores
// candidate unless a genesis is already stored, and returns the stored one.
type GenesisStore interface {
	ClockGenesis(ctx context.Context, candidate time.Time) (time.Time, error)
}

// LoadGenesis returns the genesis a Clock must start from. A configured
// genesis wins over the current time, and a stored genesis wins over both;
// a configured genesis that contradicts the stored one is an error because
// persisted deadlines would move. A nil store keeps nothing.
func LoadGenesis(ctx context.Context, store GenesisStore, configured, now time.Time) (time.Time, error) {
	candidate := now
	if !configured.IsZero() {
		candidate = configured
	}
	candidate = candidate.Truncate(time.Millisecond)
	if store == nil {
		return candidate, nil
	}

	stored, err := store.ClockGenesis(ctx, candidate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load clock genesis: %w", err)
	}
	if !configured.IsZero() && !stored.Equal(candidate) {
		return time.Time{}, fmt.Errorf("configured clock genesis %s differs from stored genesis %s",
			candidate.UTC().Format(time.RFC3339), stored.UTC().Format(time.RFC3339))
	}
	return stored, nil
}
