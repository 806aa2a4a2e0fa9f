// Package audit defines the durable event trail of a sale campaign.
//
// Every state change of the campaign (accepted contribution, value
// transfer, refund, stage or rate change, reserve allocation, finish)
// produces exactly one Record, appended to a Journal in the order the
// changes occur. Records are serialized with the canonical CSER
// encoding, so equal records always produce equal bytes and therefore
// a stable ID.
package audit

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/TalentifyApp/go-talentify-sale/sale"
	"github.com/TalentifyApp/go-talentify-sale/utils/cser"
)

// Kind discriminates what a Record witnesses.
type Kind uint8

const (
	KindContribution Kind = iota
	KindValueTransfer
	KindValueRefund
	KindStageChange
	KindRateChange
	KindReserveAllocation
	KindSaleFinished
)

// ErrUnknownKind is returned when a record kind is out of range.
var ErrUnknownKind = errors.New("unknown audit record kind")

func (k Kind) Valid() bool {
	return k <= KindSaleFinished
}

func (k Kind) String() string {
	switch k {
	case KindContribution:
		return "contribution"
	case KindValueTransfer:
		return "value-transfer"
	case KindValueRefund:
		return "value-refund"
	case KindStageChange:
		return "stage-change"
	case KindRateChange:
		return "rate-change"
	case KindReserveAllocation:
		return "reserve-allocation"
	case KindSaleFinished:
		return "sale-finished"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, ErrUnknownKind
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindContribution; c.Valid(); c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return ErrUnknownKind
}

// Record is a single entry of the audit trail.
//
// Value is denominated in value base units, Credits in credit base
// units. Fields that do not apply to a given kind are zero (e.g. a
// rate change carries no addresses, a refund carries no credits).
// Value and Credits must not be nil; use a zero big.Int instead.
type Record struct {
	Seq     uint64         `json:"seq"`
	Time    uint64         `json:"time"` // unix nanoseconds
	Kind    Kind           `json:"kind"`
	Stage   sale.Stage     `json:"stage"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *big.Int       `json:"value"`
	Credits *big.Int       `json:"credits"`
	Rate    uint64         `json:"rate"`
}

// Timestamp converts the record's time field back to wall-clock time.
func (r Record) Timestamp() time.Time {
	return time.Unix(0, int64(r.Time))
}

// MarshalCSER serializes the record into the canonical format.
//
// Structure:
// 1. Seq, Time (uint64)
// 2. Kind, Stage (uint8)
// 3. From, To (20 fixed bytes each)
// 4. Value, Credits (non-negative big integers)
// 5. Rate (uint64)
func (r *Record) MarshalCSER(w *cser.Writer) error {
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if !r.Stage.Valid() {
		return sale.ErrUnknownStage
	}
	w.U64(r.Seq)
	w.U64(r.Time)
	w.U8(uint8(r.Kind))
	w.U8(uint8(r.Stage))
	w.FixedBytes(r.From.Bytes())
	w.FixedBytes(r.To.Bytes())
	w.BigInt(r.Value)
	w.BigInt(r.Credits)
	w.U64(r.Rate)
	return nil
}

// UnmarshalCSER deserializes the record from the canonical format.
func (r *Record) UnmarshalCSER(reader *cser.Reader) error {
	r.Seq = reader.U64()
	r.Time = reader.U64()
	r.Kind = Kind(reader.U8())
	r.Stage = sale.Stage(reader.U8())
	reader.FixedBytes(r.From[:])
	reader.FixedBytes(r.To[:])
	r.Value = reader.BigInt()
	r.Credits = reader.BigInt()
	r.Rate = reader.U64()
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if !r.Stage.Valid() {
		return sale.ErrUnknownStage
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(r.MarshalCSER)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, r.UnmarshalCSER)
}

// ID returns the hash of the record's canonical serialization.
func (r *Record) ID() common.Hash {
	b, err := r.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(b)
}
