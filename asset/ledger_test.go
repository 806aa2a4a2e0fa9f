package asset

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	addrC = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestMintAndBalances(t *testing.T) {
	require := require.New(t)

	l := NewLedger("credit")
	require.NoError(l.Mint(addrA, big.NewInt(1000)))
	require.NoError(l.Mint(addrA, big.NewInt(500)))
	require.NoError(l.Mint(addrB, big.NewInt(0)))

	require.Equal(big.NewInt(1500), l.BalanceOf(addrA))
	require.Equal(big.NewInt(0), l.BalanceOf(addrB))
	require.Equal(big.NewInt(0), l.BalanceOf(addrC), "unknown address reads as zero")
	require.Equal(big.NewInt(1500), l.TotalSupply())
	require.Equal(1, l.Holders())

	require.Error(l.Mint(addrA, big.NewInt(-1)), "negative mint must fail")
	require.Error(l.Mint(addrA, nil), "nil mint must fail")
}

func TestTransfer(t *testing.T) {
	cases := map[string]struct {
		amount  *big.Int
		ok      bool
		balance int64 // addrA after
	}{
		"full balance":  {big.NewInt(100), true, 0},
		"partial":       {big.NewInt(40), true, 60},
		"zero is a nop": {big.NewInt(0), true, 100},
		"insufficient":  {big.NewInt(101), false, 100},
		"negative":      {big.NewInt(-5), false, 100},
		"nil":           {nil, false, 100},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			l := NewLedger("credit")
			require.NoError(t, l.Mint(addrA, big.NewInt(100)))

			ok := l.Transfer(addrA, addrB, tc.amount)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, big.NewInt(tc.balance), l.BalanceOf(addrA))

			// Nothing is created or destroyed by a transfer.
			total := new(big.Int).Add(l.BalanceOf(addrA), l.BalanceOf(addrB))
			assert.Equal(t, big.NewInt(100), total)
		})
	}
}

func TestTransferFromUnknownAddress(t *testing.T) {
	l := NewLedger("value")
	assert.False(t, l.Transfer(addrA, addrB, big.NewInt(1)))
}

func TestSelfTransfer(t *testing.T) {
	l := NewLedger("credit")
	require.NoError(t, l.Mint(addrA, big.NewInt(10)))

	assert.True(t, l.Transfer(addrA, addrA, big.NewInt(10)))
	assert.Equal(t, big.NewInt(10), l.BalanceOf(addrA))

	assert.False(t, l.Transfer(addrA, addrA, big.NewInt(11)), "self transfer still checks the balance")
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	l := NewLedger("credit")
	require.NoError(t, l.Mint(addrA, big.NewInt(7)))

	b := l.BalanceOf(addrA)
	b.SetInt64(1000000)
	assert.Equal(t, big.NewInt(7), l.BalanceOf(addrA), "mutating a returned balance must not leak in")
}

func TestAccountView(t *testing.T) {
	require := require.New(t)

	l := NewLedger("value")
	require.NoError(l.Mint(addrA, big.NewInt(50)))

	vault := l.Account(addrB)
	require.Equal(addrB, vault.Owner())

	// Collect pulls the attached amount in.
	require.True(vault.Collect(addrA, big.NewInt(30)))
	require.Equal(big.NewInt(30), l.BalanceOf(addrB))

	// Outbound transfers draw from the owner.
	require.True(vault.TransferValue(addrC, big.NewInt(10)))
	require.True(vault.TransferCredits(addrC, big.NewInt(5)))
	require.Equal(big.NewInt(15), l.BalanceOf(addrB))
	require.Equal(big.NewInt(15), l.BalanceOf(addrC))

	require.False(vault.TransferValue(addrC, big.NewInt(16)), "overdraw must fail")
}

// Concurrent transfers between two accounts must conserve the supply.
func TestConcurrentTransfers(t *testing.T) {
	l := NewLedger("value")
	require.NoError(t, l.Mint(addrA, big.NewInt(1000)))
	require.NoError(t, l.Mint(addrB, big.NewInt(1000)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Transfer(addrA, addrB, big.NewInt(1))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Transfer(addrB, addrA, big.NewInt(1))
			}
		}()
	}
	wg.Wait()

	total := new(big.Int).Add(l.BalanceOf(addrA), l.BalanceOf(addrB))
	assert.Equal(t, big.NewInt(2000), total)
	assert.Equal(t, big.NewInt(2000), l.TotalSupply())
}
