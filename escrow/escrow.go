// Package escrow provides in-process implementations of the value ledger
// and the operator credential registry the rollup engine depends on.
package escrow

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// Ledger holds free account balances and the amount in custody.
type Ledger struct {
	mu       sync.Mutex
	accounts map[common.Address]uint64
	custody  uint64
}

var _ rollup.BondEscrow = &Ledger{}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[common.Address]uint64)}
}

// Fund credits an account with value from outside the system.
func (l *Ledger) Fund(account common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.accounts[account]
	if balance+amount < balance {
		return fmt.Errorf("escrow: funding %d overflows balance of %s", amount, account.Hex())
	}
	l.accounts[account] = balance + amount
	return nil
}

func (l *Ledger) BalanceOf(account common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[account]
}

// Custody is the total value currently held in escrow.
func (l *Ledger) Custody() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.custody
}

func (l *Ledger) TransferIn(_ context.Context, account common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.accounts[account] < amount {
		return rollup.ErrInsufficientFunds
	}
	if l.custody+amount < l.custody {
		return fmt.Errorf("escrow: custody cannot hold another %d", amount)
	}
	l.accounts[account] -= amount
	l.custody += amount
	return nil
}

func (l *Ledger) TransferOut(_ context.Context, account common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.custody < amount {
		return fmt.Errorf("escrow: custody %d cannot cover %d", l.custody, amount)
	}
	if balance := l.accounts[account]; balance+amount < balance {
		return fmt.Errorf("escrow: payout %d overflows balance of %s", amount, account.Hex())
	}
	l.custody -= amount
	l.accounts[account] += amount
	return nil
}

// Credentials records the non-transferable operator credential of each rollup.
type Credentials struct {
	mu     sync.Mutex
	owners map[uint64]common.Address
}

var _ rollup.CredentialIssuer = &Credentials{}

func NewCredentials() *Credentials {
	return &Credentials{owners: make(map[uint64]common.Address)}
}

func (c *Credentials) Mint(_ context.Context, rollupID uint64, operator common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if owner, ok := c.owners[rollupID]; ok {
		if owner != operator {
			return fmt.Errorf("credential for rollup %d already held by %s", rollupID, owner.Hex())
		}
		return nil
	}
	c.owners[rollupID] = operator
	return nil
}

func (c *Credentials) OwnerOf(rollupID uint64) (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[rollupID]
	return owner, ok
}
