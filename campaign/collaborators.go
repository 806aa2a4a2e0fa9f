package campaign

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TalentifyApp/go-talentify-sale/audit"
)

// CreditSource delivers sale credits to contributors. A false return
// means the transfer was refused and no credits moved.
type CreditSource interface {
	TransferCredits(to common.Address, amount *big.Int) bool
}

// ValueVault moves the raised value. Collect pulls a contribution into
// the sale's custody, TransferValue pays value out of it. A false
// return means no value moved.
type ValueVault interface {
	Collect(from common.Address, amount *big.Int) bool
	TransferValue(to common.Address, amount *big.Int) bool
}

// AuthGate decides whether a caller may invoke owner operations.
type AuthGate interface {
	IsAuthorized(caller common.Address) bool
}

// PauseGate reports whether the campaign currently accepts
// contributions.
type PauseGate interface {
	IsActive() bool
}

// Auditor persists audit records. Append returns the sequence number
// assigned to the record.
type Auditor interface {
	Append(r audit.Record) (uint64, error)
}

// OwnerGate authorizes exactly one address.
type OwnerGate struct {
	Owner common.Address
}

func (g OwnerGate) IsAuthorized(caller common.Address) bool {
	return caller == g.Owner
}

// AlwaysActive is a pause gate that never pauses.
type AlwaysActive struct{}

func (AlwaysActive) IsActive() bool {
	return true
}

// Switch is a pause gate toggled at runtime.
type Switch struct {
	paused atomic.Bool
}

func (s *Switch) Pause() {
	s.paused.Store(true)
}

func (s *Switch) Resume() {
	s.paused.Store(false)
}

func (s *Switch) IsActive() bool {
	return !s.paused.Load()
}

// nopAuditor drops records. Used when no journal is configured.
type nopAuditor struct{}

func (nopAuditor) Append(audit.Record) (uint64, error) {
	return 0, nil
}
