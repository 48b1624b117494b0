// Package memstore keeps the rollup tables in process memory. Transactions
// stage their writes and apply them only when the callback succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

type batchKey struct {
	rollupID uint64
	id       uint64
}

type depositKey struct {
	rollupID uint64
	user     common.Address
}

type Store struct {
	mu          sync.Mutex
	sequences   map[string]uint64
	rollups     map[uint64]rollup.Rollup
	batches     map[batchKey]rollup.Batch
	challenges  map[uint64]rollup.Challenge
	deposits    map[depositKey]rollup.UserDeposit
	withdrawals map[batchKey]rollup.WithdrawalRequest
}

var _ rollup.Store = &Store{}

func New() *Store {
	return &Store{
		sequences:   make(map[string]uint64),
		rollups:     make(map[uint64]rollup.Rollup),
		batches:     make(map[batchKey]rollup.Batch),
		challenges:  make(map[uint64]rollup.Challenge),
		deposits:    make(map[depositKey]rollup.UserDeposit),
		withdrawals: make(map[batchKey]rollup.WithdrawalRequest),
	}
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx rollup.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		sequences:   overlay(s.sequences),
		rollups:     overlay(s.rollups),
		batches:     overlay(s.batches),
		challenges:  overlay(s.challenges),
		deposits:    overlay(s.deposits),
		withdrawals: overlay(s.withdrawals),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.sequences.commit()
	tx.rollups.commit()
	tx.batches.commit()
	tx.challenges.commit()
	tx.deposits.commit()
	tx.withdrawals.commit()
	return nil
}

// table reads through staged writes to the committed map.
type table[K comparable, V any] struct {
	base  map[K]V
	dirty map[K]V
}

func overlay[K comparable, V any](base map[K]V) *table[K, V] {
	return &table[K, V]{base: base, dirty: make(map[K]V)}
}

func (t *table[K, V]) get(k K) (V, bool) {
	if v, ok := t.dirty[k]; ok {
		return v, true
	}
	v, ok := t.base[k]
	return v, ok
}

func (t *table[K, V]) put(k K, v V) {
	t.dirty[k] = v
}

func (t *table[K, V]) each(fn func(V)) {
	for k, v := range t.base {
		if _, ok := t.dirty[k]; !ok {
			fn(v)
		}
	}
	for _, v := range t.dirty {
		fn(v)
	}
}

func (t *table[K, V]) commit() {
	for k, v := range t.dirty {
		t.base[k] = v
	}
}

type memTx struct {
	sequences   *table[string, uint64]
	rollups     *table[uint64, rollup.Rollup]
	batches     *table[batchKey, rollup.Batch]
	challenges  *table[uint64, rollup.Challenge]
	deposits    *table[depositKey, rollup.UserDeposit]
	withdrawals *table[batchKey, rollup.WithdrawalRequest]
}

func (tx *memTx) NextID(_ context.Context, sequence string) (uint64, error) {
	n, _ := tx.sequences.get(sequence)
	n++
	tx.sequences.put(sequence, n)
	return n, nil
}

func (tx *memTx) Rollup(_ context.Context, id uint64) (*rollup.Rollup, error) {
	r, ok := tx.rollups.get(id)
	if !ok {
		return nil, rollup.ErrRollupNotFound
	}
	return &r, nil
}

func (tx *memTx) SaveRollup(_ context.Context, r *rollup.Rollup) error {
	tx.rollups.put(r.ID, *r)
	return nil
}

func (tx *memTx) Batch(_ context.Context, rollupID, batchID uint64) (*rollup.Batch, error) {
	b, ok := tx.batches.get(batchKey{rollupID, batchID})
	if !ok {
		return nil, rollup.ErrBatchNotFound
	}
	return &b, nil
}

func (tx *memTx) SaveBatch(_ context.Context, b *rollup.Batch) error {
	tx.batches.put(batchKey{b.RollupID, b.BatchID}, *b)
	return nil
}

func (tx *memTx) ListBatches(_ context.Context, rollupID uint64, page, pageSize int64) (*rollup.Page[rollup.Batch], error) {
	var all []rollup.Batch
	tx.batches.each(func(b rollup.Batch) {
		if b.RollupID == rollupID {
			all = append(all, b)
		}
	})
	// newest first
	sort.Slice(all, func(i, j int) bool { return all[i].BatchID > all[j].BatchID })

	items := []rollup.Batch{}
	start := (page - 1) * pageSize
	if start < int64(len(all)) {
		end := min(start+pageSize, int64(len(all)))
		items = all[start:end]
	}

	return &rollup.Page[rollup.Batch]{
		Items:      items,
		TotalCount: int64(len(all)),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (tx *memTx) DueBatches(_ context.Context, height uint64) ([]*rollup.Batch, error) {
	var due []*rollup.Batch
	tx.batches.each(func(b rollup.Batch) {
		if b.State(height) == types.BatchExpired {
			due = append(due, &b)
		}
	})
	sort.Slice(due, func(i, j int) bool {
		if due[i].RollupID != due[j].RollupID {
			return due[i].RollupID < due[j].RollupID
		}
		return due[i].BatchID < due[j].BatchID
	})
	return due, nil
}

func (tx *memTx) Challenge(_ context.Context, id uint64) (*rollup.Challenge, error) {
	c, ok := tx.challenges.get(id)
	if !ok {
		return nil, rollup.ErrChallengeNotFound
	}
	return &c, nil
}

func (tx *memTx) SaveChallenge(_ context.Context, c *rollup.Challenge) error {
	tx.challenges.put(c.ID, *c)
	return nil
}

func (tx *memTx) PendingChallenges(_ context.Context) ([]*rollup.Challenge, error) {
	var pending []*rollup.Challenge
	tx.challenges.each(func(c rollup.Challenge) {
		if c.Status == types.ChallengePending {
			pending = append(pending, &c)
		}
	})
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (tx *memTx) Deposit(_ context.Context, rollupID uint64, user common.Address) (*rollup.UserDeposit, error) {
	d, ok := tx.deposits.get(depositKey{rollupID, user})
	if !ok {
		d = rollup.UserDeposit{RollupID: rollupID, User: user}
	}
	return &d, nil
}

func (tx *memTx) SaveDeposit(_ context.Context, d *rollup.UserDeposit) error {
	tx.deposits.put(depositKey{d.RollupID, d.User}, *d)
	return nil
}

func (tx *memTx) SumDeposits(_ context.Context, rollupID uint64) (uint64, error) {
	var sum uint64
	tx.deposits.each(func(d rollup.UserDeposit) {
		if d.RollupID == rollupID {
			sum += d.Balance + d.PendingWithdrawals
		}
	})
	return sum, nil
}

func (tx *memTx) Withdrawal(_ context.Context, rollupID, requestID uint64) (*rollup.WithdrawalRequest, error) {
	w, ok := tx.withdrawals.get(batchKey{rollupID, requestID})
	if !ok {
		return nil, rollup.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (tx *memTx) SaveWithdrawal(_ context.Context, w *rollup.WithdrawalRequest) error {
	tx.withdrawals.put(batchKey{w.RollupID, w.RequestID}, *w)
	return nil
}
