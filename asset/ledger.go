// Package asset implements a minimal in-memory fungible ledger.
//
// A campaign engine never touches balances directly; it talks to collaborator
// interfaces for credit delivery and value custody. This package provides the
// concrete in-process implementation of both: one Ledger instance serves as
// the credit token, another as the native value bank. It is deliberately not
// a token-standard implementation, there are no allowances and no approval
// flow, just balances that transfers move around.
package asset

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger tracks balances of one fungible asset. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	name     string
	balances map[common.Address]*big.Int
	supply   *big.Int
}

// NewLedger creates an empty ledger. The name only appears in errors and
// logs.
func NewLedger(name string) *Ledger {
	return &Ledger{
		name:     name,
		balances: make(map[common.Address]*big.Int),
		supply:   new(big.Int),
	}
}

// Name returns the asset name.
func (l *Ledger) Name() string {
	return l.name
}

// Mint creates amount new units on the given balance.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("asset %s: mint amount must be non-negative", l.name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(to, amount)
	l.supply.Add(l.supply, amount)
	return nil
}

// Transfer moves amount from one balance to another. Returns false, leaving
// both balances untouched, when the amount is absent or negative or the
// source balance is insufficient. A zero amount always succeeds.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	if amount.Sign() == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[from]
	if !ok || balance.Cmp(amount) < 0 {
		return false
	}
	if from == to {
		return true
	}

	balance.Sub(balance, amount)
	l.credit(to, amount)
	return true
}

// credit adds to a balance. Callers hold the lock.
func (l *Ledger) credit(to common.Address, amount *big.Int) {
	if balance, ok := l.balances[to]; ok {
		balance.Add(balance, amount)
		return
	}
	l.balances[to] = new(big.Int).Set(amount)
}

// BalanceOf returns a copy of the given balance, zero for unknown addresses.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if balance, ok := l.balances[addr]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// TotalSupply returns a copy of the minted total.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(big.Int).Set(l.supply)
}

// Holders returns the number of addresses with a non-zero balance.
func (l *Ledger) Holders() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, balance := range l.balances {
		if balance.Sign() > 0 {
			n++
		}
	}
	return n
}

// Account binds a ledger to one owner address, giving the campaign engine a
// collaborator view: outbound transfers draw from the owner's balance, and
// Collect pulls an attached amount in from a counterparty.
type Account struct {
	ledger *Ledger
	owner  common.Address
}

// Account returns the collaborator view of the given owner.
func (l *Ledger) Account(owner common.Address) *Account {
	return &Account{ledger: l, owner: owner}
}

// Owner returns the bound address.
func (a *Account) Owner() common.Address {
	return a.owner
}

// TransferCredits delivers amount from the owner's balance to the recipient.
func (a *Account) TransferCredits(to common.Address, amount *big.Int) bool {
	return a.ledger.Transfer(a.owner, to, amount)
}

// TransferValue pays amount out of the owner's balance to the recipient.
func (a *Account) TransferValue(to common.Address, amount *big.Int) bool {
	return a.ledger.Transfer(a.owner, to, amount)
}

// Collect pulls an attached amount from the counterparty into the owner's
// balance.
func (a *Account) Collect(from common.Address, amount *big.Int) bool {
	return a.ledger.Transfer(from, a.owner, amount)
}
