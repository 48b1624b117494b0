package escrow

import (
	"context"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/stretchr/testify/require"
)

func TestLedgerTransfers(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb2")

	require.NoError(t, l.Fund(alice, 100))
	require.ErrorIs(t, l.TransferIn(ctx, alice, 101), rollup.ErrInsufficientFunds)
	require.Equal(t, uint64(100), l.BalanceOf(alice))

	require.NoError(t, l.TransferIn(ctx, alice, 60))
	require.Equal(t, uint64(40), l.BalanceOf(alice))
	require.Equal(t, uint64(60), l.Custody())

	require.Error(t, l.TransferOut(ctx, bob, 61))
	require.NoError(t, l.TransferOut(ctx, bob, 60))
	require.Equal(t, uint64(60), l.BalanceOf(bob))
	require.Zero(t, l.Custody())
}

func TestLedgerRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb2")

	require.NoError(t, l.Fund(alice, math.MaxUint64-10))
	require.Error(t, l.Fund(alice, 11))
	require.Equal(t, uint64(math.MaxUint64-10), l.BalanceOf(alice))
	require.NoError(t, l.Fund(alice, 10))
	require.Equal(t, uint64(math.MaxUint64), l.BalanceOf(alice))

	// a payout that would wrap the recipient leaves custody untouched
	require.NoError(t, l.Fund(bob, 5))
	require.NoError(t, l.TransferIn(ctx, bob, 5))
	require.Error(t, l.TransferOut(ctx, alice, 5))
	require.Equal(t, uint64(5), l.Custody())
	require.Equal(t, uint64(math.MaxUint64), l.BalanceOf(alice))
}

func TestCredentialsMint(t *testing.T) {
	ctx := context.Background()
	c := NewCredentials()
	op := common.HexToAddress("0x01")

	require.NoError(t, c.Mint(ctx, 1, op))
	require.NoError(t, c.Mint(ctx, 1, op))
	require.Error(t, c.Mint(ctx, 1, common.HexToAddress("0x02")))

	owner, ok := c.OwnerOf(1)
	require.True(t, ok)
	require.Equal(t, op, owner)

	_, ok = c.OwnerOf(2)
	require.False(t, ok)
}
