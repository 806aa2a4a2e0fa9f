package campaign

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementState tracks how the private stage window was resolved.
type SettlementState uint8

const (
	// SettlementOpen means the private stage has not been settled yet.
	SettlementOpen SettlementState = iota
	// SettlementPaidOut means the soft cap was met and the held value
	// was forwarded to the beneficiary.
	SettlementPaidOut
	// SettlementRefunding means the soft cap was missed and refunds are
	// still in progress.
	SettlementRefunding
	// SettlementRefunded means every contributor has been refunded.
	SettlementRefunded
)

// ErrUnknownSettlementState is returned when a settlement state is out
// of range.
var ErrUnknownSettlementState = errors.New("unknown settlement state")

func (s SettlementState) Valid() bool {
	return s <= SettlementRefunded
}

func (s SettlementState) String() string {
	switch s {
	case SettlementOpen:
		return "open"
	case SettlementPaidOut:
		return "paid-out"
	case SettlementRefunding:
		return "refunding"
	case SettlementRefunded:
		return "refunded"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s SettlementState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrUnknownSettlementState
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SettlementState) UnmarshalText(text []byte) error {
	for c := SettlementOpen; c.Valid(); c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return ErrUnknownSettlementState
}

// SettlementResult describes the effect of one settlement call.
type SettlementResult struct {
	// State is the settlement state after the call.
	State SettlementState
	// Paid is the value forwarded to the beneficiary on the payout
	// path, nil otherwise.
	Paid *big.Int
	// Refunded counts the refund transfers completed by this call.
	Refunded int
	// Pending counts the contributors still awaiting refund after this
	// call, failed ones included.
	Pending int
	// Failed lists the contributors whose refund transfer failed during
	// this call. They stay pending and are retried on the next call.
	Failed []common.Address
}
