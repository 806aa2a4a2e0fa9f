package sale

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
)

const (
	// CreditUnit is the number of base credit units in one whole credit.
	// Credits use the same 18-decimal scaling as the native value unit, so
	// credit amounts and value amounts multiply cleanly through a whole-unit
	// rate.
	CreditUnit = params.Ether

	// DefaultRefundBatchLimit caps how many refund transfers a single
	// settlement invocation attempts. The refund loop is resumable, so a
	// large contributor set is worked through across repeated owner calls
	// instead of one unbounded iteration.
	DefaultRefundBatchLimit uint32 = 500
)

// ErrInvalidCapConfiguration is returned by Validate when the configured
// caps, rates, reserves or windows are mutually inconsistent. Construction of
// a campaign fails on it.
var ErrInvalidCapConfiguration = errors.New("invalid cap configuration")

// FakeGenesisTime is the fixed deployment instant of fake campaigns.
// Keeping it constant makes fake windows and the clocks of development runs
// reproducible.
var FakeGenesisTime = time.Unix(1608600000, 0)

// CapsRules fixes every ceiling and threshold of a deployment.
//
// The hard cap is denominated in value base units. All other amounts are
// credit base units: the stage ceilings bound credits sold per stage, and the
// soft cap is the credits-sold threshold the private stage must reach for its
// settlement to pay out rather than refund.
type CapsRules struct {
	// HardCap is the absolute maximum value the campaign will ever accept,
	// checked before any stage ceiling.
	HardCap *big.Int

	// SoftCap is the minimum credits sold during PrivatePreICO for that
	// stage to settle as a payout.
	SoftCap *big.Int

	// PrivateSaleCap is the ceiling on credits sold during PrivatePreICO.
	PrivateSaleCap *big.Int

	// PreSaleCap is the ceiling on credits sold during PreICO.
	PreSaleCap *big.Int

	// TotalSaleCap is the overall-for-sale ceiling. It bounds credits sold
	// across the whole campaign and is the ceiling the ICO stage is checked
	// against.
	TotalSaleCap *big.Int
}

// RateRules is the fixed per-stage rate table, in whole credits delivered per
// whole value unit. Entering a stage reprices to that stage's rate; the owner
// may still adjust the live rate afterwards.
type RateRules struct {
	PrivatePreICO uint64
	PreICO        uint64
	ICO           uint64
}

// ForStage returns the configured rate of the given stage.
func (r RateRules) ForStage(s Stage) uint64 {
	switch s {
	case PrivatePreICO:
		return r.PrivatePreICO
	case PreICO:
		return r.PreICO
	default:
		return r.ICO
	}
}

// WindowRules carries the settlement dates.
type WindowRules struct {
	// PrivatePreICOEnd gates finalization of the private stage: settling
	// before it requires the explicit owner override.
	PrivatePreICOEnd time.Time

	// ICOStart is informational. No automatic transition into ICO exists;
	// entering it is always an explicit owner action.
	ICOStart time.Time
}

// ReserveRules fixes the one-time credit deliveries performed at
// construction, in credit base units.
type ReserveRules struct {
	// Bounty is delivered to the bounty-reserve address.
	Bounty *big.Int

	// Ecosystem is delivered to the ecosystem-reserve address.
	Ecosystem *big.Int
}

// RefundRules budgets the settlement refund loop.
type RefundRules struct {
	// BatchLimit is the maximum number of refund transfers attempted per
	// settlement invocation. Zero means unbounded.
	BatchLimit uint32
}

// Rules describes the complete configuration of a campaign deployment.
// Fixed at construction, read-only thereafter.
//
// Note: Rules contains *big.Int fields, so use Copy() rather than assignment
// when an independent instance is needed.
type Rules struct {
	Name string

	Caps     CapsRules
	Rates    RateRules
	Windows  WindowRules
	Reserves ReserveRules
	Refunds  RefundRules
}

// MainSaleRules returns the reference deployment configuration:
//   - hard cap of 60000 value units
//   - private ceiling and soft cap of 10000 credits
//   - rates 10000 / 7500 / 5000 credits per value unit
//
// The remaining ceilings scale off the hard cap: the overall-for-sale
// ceiling equals the credits the hard cap can buy at the cheapest rate.
func MainSaleRules() Rules {
	return Rules{
		Name: "main",
		Caps: CapsRules{
			HardCap:        units(60000),
			SoftCap:        units(10000),
			PrivateSaleCap: units(10000),
			PreSaleCap:     units(50000000),
			TotalSaleCap:   units(300000000), // 60000 value units * rate 5000
		},
		Rates: RateRules{
			PrivatePreICO: 10000,
			PreICO:        7500,
			ICO:           5000,
		},
		Windows: WindowRules{
			PrivatePreICOEnd: time.Date(2018, time.June, 30, 0, 0, 0, 0, time.UTC),
			ICOStart:         time.Date(2018, time.August, 1, 0, 0, 0, 0, time.UTC),
		},
		Reserves: ReserveRules{
			Bounty:    units(2000000),
			Ecosystem: units(18000000),
		},
		Refunds: RefundRules{
			BatchLimit: DefaultRefundBatchLimit,
		},
	}
}

// FakeSaleRules returns a configuration for local development and tests:
// tiny caps, short windows anchored at FakeGenesisTime, and a small refund
// batch so batching paths are exercised.
func FakeSaleRules() Rules {
	return Rules{
		Name: "fake",
		Caps: CapsRules{
			HardCap:        units(1000),
			SoftCap:        units(100),
			PrivateSaleCap: units(100),
			PreSaleCap:     units(1000),
			TotalSaleCap:   units(50000), // 1000 value units * rate 50
		},
		Rates: RateRules{
			PrivatePreICO: 100,
			PreICO:        75,
			ICO:           50,
		},
		Windows: WindowRules{
			PrivatePreICOEnd: FakeGenesisTime.Add(10 * time.Minute),
			ICOStart:         FakeGenesisTime.Add(1 * time.Hour),
		},
		Reserves: ReserveRules{
			Bounty:    units(100),
			Ecosystem: units(900),
		},
		Refunds: RefundRules{
			BatchLimit: 10,
		},
	}
}

// units converts a whole-unit count into base units (18 decimals).
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(CreditUnit))
}

// Validate checks the internal consistency of the rules. Every violation is
// reported as ErrInvalidCapConfiguration with the offending relation named.
//
// The checks, in order:
//  1. every cap amount is present and positive, reserves are present and
//     non-negative
//  2. every stage rate is positive
//  3. soft cap does not exceed the private ceiling (an unreachable soft cap
//     would make the private stage unconditionally refund)
//  4. private + pre ceilings fit under the overall-for-sale ceiling
//  5. the soft cap is reachable within the hard cap at the private rate
//  6. the private end date does not come after the ICO start date
func (r Rules) Validate() error {
	caps := map[string]*big.Int{
		"hard cap":         r.Caps.HardCap,
		"soft cap":         r.Caps.SoftCap,
		"private sale cap": r.Caps.PrivateSaleCap,
		"pre sale cap":     r.Caps.PreSaleCap,
		"total sale cap":   r.Caps.TotalSaleCap,
	}
	for name, amount := range caps {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidCapConfiguration, name)
		}
	}

	reserves := map[string]*big.Int{
		"bounty reserve":    r.Reserves.Bounty,
		"ecosystem reserve": r.Reserves.Ecosystem,
	}
	for name, amount := range reserves {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidCapConfiguration, name)
		}
	}

	rates := map[string]uint64{
		"private-pre-ico": r.Rates.PrivatePreICO,
		"pre-ico":         r.Rates.PreICO,
		"ico":             r.Rates.ICO,
	}
	for name, rate := range rates {
		if rate == 0 {
			return fmt.Errorf("%w: %s rate is zero", ErrInvalidCapConfiguration, name)
		}
	}

	if r.Caps.SoftCap.Cmp(r.Caps.PrivateSaleCap) > 0 {
		return fmt.Errorf("%w: soft cap exceeds the private sale ceiling", ErrInvalidCapConfiguration)
	}

	stagesSum := new(big.Int).Add(r.Caps.PrivateSaleCap, r.Caps.PreSaleCap)
	if stagesSum.Cmp(r.Caps.TotalSaleCap) > 0 {
		return fmt.Errorf("%w: stage ceilings exceed the total sale ceiling", ErrInvalidCapConfiguration)
	}

	// Credits obtainable before the hard cap binds, at the private rate.
	reachable := new(big.Int).Mul(r.Caps.HardCap, new(big.Int).SetUint64(r.Rates.PrivatePreICO))
	if r.Caps.SoftCap.Cmp(reachable) > 0 {
		return fmt.Errorf("%w: soft cap is not reachable within the hard cap", ErrInvalidCapConfiguration)
	}

	if !r.Windows.PrivatePreICOEnd.IsZero() && !r.Windows.ICOStart.IsZero() &&
		r.Windows.PrivatePreICOEnd.After(r.Windows.ICOStart) {
		return fmt.Errorf("%w: private pre-ICO ends after the ICO start", ErrInvalidCapConfiguration)
	}

	return nil
}

// Copy creates a deep copy of Rules.
// Necessary because Rules contains *big.Int fields that would be shared by a
// shallow copy.
func (r Rules) Copy() Rules {
	cp := r
	cp.Caps.HardCap = bigCopy(r.Caps.HardCap)
	cp.Caps.SoftCap = bigCopy(r.Caps.SoftCap)
	cp.Caps.PrivateSaleCap = bigCopy(r.Caps.PrivateSaleCap)
	cp.Caps.PreSaleCap = bigCopy(r.Caps.PreSaleCap)
	cp.Caps.TotalSaleCap = bigCopy(r.Caps.TotalSaleCap)
	cp.Reserves.Bounty = bigCopy(r.Reserves.Bounty)
	cp.Reserves.Ecosystem = bigCopy(r.Reserves.Ecosystem)
	return cp
}

func bigCopy(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// String returns a JSON representation of Rules for logging and the
// dumpconfig command.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
