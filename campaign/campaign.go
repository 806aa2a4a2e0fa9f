// Package campaign implements the fund-custody state machine of a
// staged credit sale.
//
// A Campaign accepts contributions of a native value unit in exchange
// for a proportional amount of sale credits, enforces per-stage and
// campaign-wide caps, and resolves the private stage to either a
// payout to the beneficiary or a refund of every contributor,
// depending on whether the soft cap was met.
//
// Key concepts:
//   - The value family of amounts (contributions, hard cap, refunds)
//     and the credit family (stage ceilings, soft cap, delivered
//     credits) are kept in separate counters; the active rate converts
//     between them at contribution time only.
//   - Credit delivery, value custody, authorization and pausing are
//     external collaborators. The campaign orchestrates them but holds
//     no balances itself, only the bookkeeping.
//   - Every state change appends one audit record per effect, in the
//     order the effects occur.
//
// All mutating operations are serialized behind one lock, so a cap
// validation and its counter update are indivisible.
package campaign

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/sirupsen/logrus"

	"github.com/TalentifyApp/go-talentify-sale/audit"
	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// Config assembles the fixed configuration and the collaborators of a
// campaign. Rules, addresses and collaborators are set once at
// construction and never change.
type Config struct {
	Rules sale.Rules

	// Address identifies the sale itself in audit records and is the
	// source of credit allocations.
	Address common.Address
	// Owner is the only identity allowed to invoke owner operations
	// under the default auth gate.
	Owner common.Address
	// Beneficiary receives the held value on payout and finish.
	Beneficiary common.Address
	// Bounty and Ecosystem receive their one-time credit reserves at
	// construction and never again.
	Bounty    common.Address
	Ecosystem common.Address

	// Credits delivers sale credits, Vault moves the raised value.
	// Both are required.
	Credits CreditSource
	Vault   ValueVault

	// Optional collaborators. Nil selects the defaults: owner-only
	// authorization, a never-pausing gate, a dropping auditor, the
	// standard logger and wall-clock time.
	Auth  AuthGate
	Pause PauseGate
	Audit Auditor
	Log   *logrus.Entry
	Now   func() time.Time
}

// Campaign is the sale state machine. Construct it with New; the zero
// value is not usable.
type Campaign struct {
	mu sync.RWMutex

	rules       sale.Rules
	address     common.Address
	beneficiary common.Address

	credits CreditSource
	vault   ValueVault
	auth    AuthGate
	pause   PauseGate
	auditor Auditor
	log     *logrus.Entry
	now     func() time.Time

	stage      sale.Stage
	rates      *rateTable
	policy     capPolicy
	counters   *counters
	ledger     *ledger
	held       *big.Int
	settlement SettlementState
	finished   bool
}

// Receipt confirms an accepted contribution.
type Receipt struct {
	Contributor common.Address `json:"contributor"`
	Stage       sale.Stage     `json:"stage"`
	Value       *big.Int       `json:"value"`
	Credits     *big.Int       `json:"credits"`
	Rate        uint64         `json:"rate"`
	Time        time.Time      `json:"time"`
}

// New builds a campaign in the private stage and delivers the
// configured bounty and ecosystem credit reserves.
func New(cfg Config) (*Campaign, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if cfg.Credits == nil {
		return nil, errors.New("campaign requires a credit source")
	}
	if cfg.Vault == nil {
		return nil, errors.New("campaign requires a value vault")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("campaign requires an owner address")
	}
	if cfg.Beneficiary == (common.Address{}) {
		return nil, errors.New("campaign requires a beneficiary address")
	}

	rules := cfg.Rules.Copy()
	c := &Campaign{
		rules:       rules,
		address:     cfg.Address,
		beneficiary: cfg.Beneficiary,
		credits:     cfg.Credits,
		vault:       cfg.Vault,
		auth:        cfg.Auth,
		pause:       cfg.Pause,
		auditor:     cfg.Audit,
		log:         cfg.Log,
		now:         cfg.Now,
		stage:       sale.PrivatePreICO,
		rates:       newRateTable(rules.Rates, sale.PrivatePreICO),
		policy:      capPolicy{caps: rules.Caps},
		counters:    newCounters(),
		ledger:      newLedger(),
		held:        new(big.Int),
		settlement:  SettlementOpen,
	}
	if c.auth == nil {
		c.auth = OwnerGate{Owner: cfg.Owner}
	}
	if c.pause == nil {
		c.pause = AlwaysActive{}
	}
	if c.auditor == nil {
		c.auditor = nopAuditor{}
	}
	if c.log == nil {
		c.log = logrus.WithField("module", "campaign")
	}
	if c.now == nil {
		c.now = time.Now
	}

	if err := c.allocateReserves(cfg); err != nil {
		return nil, err
	}
	metricStage().Set(int64(c.stage))

	c.log.WithFields(logrus.Fields{
		"rules": rules.Name,
		"rate":  c.rates.Current(),
	}).Info("Sale campaign created")
	return c, nil
}

// allocateReserves performs the one-time bounty and ecosystem credit
// allocations.
func (c *Campaign) allocateReserves(cfg Config) error {
	allocs := []struct {
		name   string
		to     common.Address
		amount *big.Int
	}{
		{"bounty", cfg.Bounty, c.rules.Reserves.Bounty},
		{"ecosystem", cfg.Ecosystem, c.rules.Reserves.Ecosystem},
	}
	for _, alloc := range allocs {
		if alloc.amount.Sign() == 0 {
			continue
		}
		if alloc.to == (common.Address{}) {
			return fmt.Errorf("%s reserve has no address", alloc.name)
		}
		if !c.credits.TransferCredits(alloc.to, alloc.amount) {
			return fmt.Errorf("%s reserve allocation: %w", alloc.name, ErrCreditTransferFailed)
		}
		c.record(audit.KindReserveAllocation, c.address, alloc.to, nil, alloc.amount, 0)
	}
	return nil
}

// Contribute accepts value from a contributor and delivers the
// equivalent credits at the active rate. On any rejection the campaign
// state is unchanged and no value is kept.
func (c *Campaign) Contribute(from common.Address, value *big.Int) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed() {
		return nil, c.reject(ErrSaleClosed)
	}
	if !c.pause.IsActive() {
		return nil, c.reject(ErrCampaignPaused)
	}
	if value == nil || value.Sign() <= 0 {
		return nil, c.reject(ErrInvalidContribution)
	}

	rate := c.rates.Current()
	credits := new(big.Int).Mul(value, new(big.Int).SetUint64(rate))
	if credits.Cmp(math.MaxBig256) > 0 {
		return nil, c.reject(ErrArithmeticOverflow)
	}
	if err := c.policy.Validate(c.stage, value, credits, c.counters); err != nil {
		return nil, c.reject(err)
	}

	if !c.vault.Collect(from, value) {
		return nil, c.reject(ErrValueTransferFailed)
	}
	if !c.credits.TransferCredits(from, credits) {
		// The value was already collected; hand it back so the failed
		// contribution leaves no trace.
		if !c.vault.TransferValue(from, value) {
			c.log.WithField("contributor", from).Error("Failed to return value after credit transfer failure")
		}
		return nil, c.reject(ErrCreditTransferFailed)
	}

	c.ledger.Record(c.stage, from, value)
	c.counters.Apply(c.stage, value, credits)
	c.held.Add(c.held, value)
	c.record(audit.KindContribution, from, c.address, value, credits, rate)

	metricContributions().Add(1)
	metricRaisedUnits().Set(wholeUnits(c.counters.valueRaised))
	metricCreditsUnits().Set(wholeUnits(c.counters.creditsSold))

	c.log.WithFields(logrus.Fields{
		"contributor": from,
		"stage":       c.stage,
		"value":       value,
		"credits":     credits,
	}).Debug("Contribution accepted")

	return &Receipt{
		Contributor: from,
		Stage:       c.stage,
		Value:       new(big.Int).Set(value),
		Credits:     credits,
		Rate:        rate,
		Time:        c.now(),
	}, nil
}

// SetRate replaces the active conversion rate. Contributions recorded
// before the change are not repriced.
func (c *Campaign) SetRate(caller common.Address, rate uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.auth.IsAuthorized(caller) {
		return ErrUnauthorized
	}
	if err := c.rates.Set(rate); err != nil {
		return err
	}
	c.record(audit.KindRateChange, caller, c.address, nil, nil, rate)
	c.log.WithField("rate", rate).Info("Conversion rate changed")
	return nil
}

// SetStage moves the campaign to an externally settable stage and
// reprices to that stage's configured rate. Only the private stage and
// the ICO stage can be set directly, and never backward. The pre-ICO
// stage is reachable only through settlement.
func (c *Campaign) SetStage(caller common.Address, target sale.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.auth.IsAuthorized(caller) {
		return ErrUnauthorized
	}
	if c.finished {
		return ErrSaleClosed
	}
	if c.refunding() {
		return ErrInvalidTransition
	}
	if target != sale.PrivatePreICO && target != sale.ICO {
		return ErrInvalidTransition
	}
	if target < c.stage {
		return ErrInvalidTransition
	}

	c.stage = target
	rate := c.rates.Reprice(target)
	c.record(audit.KindStageChange, caller, c.address, nil, nil, rate)
	c.record(audit.KindRateChange, caller, c.address, nil, nil, rate)
	metricStage().Set(int64(c.stage))

	c.log.WithFields(logrus.Fields{
		"stage": c.stage,
		"rate":  rate,
	}).Info("Stage changed")
	return nil
}

// AdvanceToPreICO settles the private stage and, when the soft cap was
// met, moves the campaign to the pre-ICO stage. Before the configured
// private stage end it requires the force override.
func (c *Campaign) AdvanceToPreICO(caller common.Address, force bool) (*SettlementResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalize(caller, force)
}

// FinalizePrivatePreICO settles the private stage window: when the
// credits sold during it reach the soft cap, the held value is
// forwarded to the beneficiary and the stage advances to pre-ICO;
// otherwise every contributor is refunded their cumulative amount.
// While a refund is incomplete the call can be repeated to retry
// failed transfers and continue past the batch limit.
func (c *Campaign) FinalizePrivatePreICO(caller common.Address) (*SettlementResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalize(caller, false)
}

func (c *Campaign) finalize(caller common.Address, force bool) (*SettlementResult, error) {
	if !c.auth.IsAuthorized(caller) {
		return nil, ErrUnauthorized
	}
	if c.finished {
		return nil, ErrSaleClosed
	}
	if c.stage != sale.PrivatePreICO || c.settlement == SettlementPaidOut || c.settlement == SettlementRefunded {
		return nil, ErrInvalidTransition
	}
	if c.settlement == SettlementOpen {
		if !force && c.now().Before(c.rules.Windows.PrivatePreICOEnd) {
			return nil, ErrTooEarly
		}
		sold := c.counters.StageCredits(sale.PrivatePreICO)
		if sold.Cmp(c.rules.Caps.SoftCap) >= 0 {
			return c.payout()
		}
		// Flip to refunding before iterating, so no contribution can
		// slip in mid-refund.
		c.settlement = SettlementRefunding
		c.log.WithFields(logrus.Fields{
			"sold":    sold,
			"softCap": c.rules.Caps.SoftCap,
		}).Warn("Soft cap missed, refunding contributors")
	}
	return c.refund()
}

// payout forwards the whole held balance to the beneficiary and
// advances to the pre-ICO stage.
func (c *Campaign) payout() (*SettlementResult, error) {
	paid := new(big.Int).Set(c.held)
	if paid.Sign() > 0 && !c.vault.TransferValue(c.beneficiary, paid) {
		return nil, ErrValueTransferFailed
	}
	c.held.SetInt64(0)
	c.settlement = SettlementPaidOut
	c.record(audit.KindValueTransfer, c.address, c.beneficiary, paid, nil, 0)

	c.stage = sale.PreICO
	rate := c.rates.Reprice(sale.PreICO)
	c.record(audit.KindStageChange, c.address, c.address, nil, nil, rate)
	c.record(audit.KindRateChange, c.address, c.address, nil, nil, rate)
	metricStage().Set(int64(c.stage))

	c.log.WithFields(logrus.Fields{
		"paid":        paid,
		"beneficiary": c.beneficiary,
		"rate":        rate,
	}).Info("Private stage paid out")
	return &SettlementResult{State: SettlementPaidOut, Paid: paid}, nil
}

// refund pays back pending contributors in first-seen order, at most
// the configured batch of them per call. A failed transfer is reported
// and retried on the next call, it does not abort the batch.
func (c *Campaign) refund() (*SettlementResult, error) {
	res := &SettlementResult{State: SettlementRefunding}

	limit := c.rules.Refunds.BatchLimit
	attempts := uint32(0)
	for _, addr := range c.ledger.Pending() {
		if limit > 0 && attempts >= limit {
			break
		}
		attempts++

		amount := c.ledger.TotalOf(addr)
		if !c.vault.TransferValue(addr, amount) {
			res.Failed = append(res.Failed, addr)
			metricRefundFails().Add(1)
			c.log.WithFields(logrus.Fields{
				"contributor": addr,
				"amount":      amount,
			}).Warn("Refund transfer failed")
			continue
		}
		c.ledger.MarkRefunded(addr)
		c.held.Sub(c.held, amount)
		c.record(audit.KindValueRefund, c.address, addr, amount, nil, 0)
		res.Refunded++
		metricRefunds().Add(1)
	}

	res.Pending = len(c.ledger.Pending())
	if res.Pending == 0 {
		c.settlement = SettlementRefunded
		res.State = SettlementRefunded
		c.log.Info("All contributors refunded")
	}
	if len(res.Failed) > 0 {
		return res, &PartialRefundError{Failed: res.Failed}
	}
	return res, nil
}

// Finish is the terminal action of the campaign: once the hard cap has
// been raised it forwards the held balance to the beneficiary and
// closes the sale for good.
func (c *Campaign) Finish(caller common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.auth.IsAuthorized(caller) {
		return ErrUnauthorized
	}
	if c.finished {
		return ErrSaleClosed
	}
	if c.refunding() {
		return ErrInvalidTransition
	}
	if c.counters.valueRaised.Cmp(c.rules.Caps.HardCap) < 0 {
		return ErrGoalNotMet
	}

	paid := new(big.Int).Set(c.held)
	if paid.Sign() > 0 && !c.vault.TransferValue(c.beneficiary, paid) {
		return ErrValueTransferFailed
	}
	c.held.SetInt64(0)
	c.finished = true
	c.record(audit.KindValueTransfer, c.address, c.beneficiary, paid, nil, 0)
	c.record(audit.KindSaleFinished, c.address, c.beneficiary, c.counters.valueRaised, c.counters.creditsSold, c.rates.Current())

	c.log.WithFields(logrus.Fields{
		"raised":  c.counters.valueRaised,
		"credits": c.counters.creditsSold,
		"paid":    paid,
	}).Info("Sale finished")
	return nil
}

// Stage returns the active stage.
func (c *Campaign) Stage() sale.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stage
}

// CurrentRate returns the active conversion rate.
func (c *Campaign) CurrentRate() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates.Current()
}

// Rules returns a copy of the campaign's configured rules.
func (c *Campaign) Rules() sale.Rules {
	return c.rules.Copy()
}

// Status returns a point-in-time snapshot of the campaign state.
func (c *Campaign) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		Stage:          c.stage,
		Rate:           c.rates.Current(),
		Paused:         !c.pause.IsActive(),
		Finished:       c.finished,
		Settlement:     c.settlement,
		HeldValue:      new(big.Int).Set(c.held),
		ValueRaised:    c.counters.ValueRaised(),
		CreditsSold:    c.counters.CreditsSold(),
		PrivateCredits: c.counters.StageCredits(sale.PrivatePreICO),
		PreICOCredits:  c.counters.StageCredits(sale.PreICO),
		ICOCredits:     c.counters.StageCredits(sale.ICO),
		Contributions:  c.ledger.Count(),
		Contributors:   c.ledger.Distinct(),
		Refunded:       c.ledger.Refunded(),
		SoftCapMet:     c.counters.stageCredits[sale.PrivatePreICO].Cmp(c.rules.Caps.SoftCap) >= 0,
		HardCapMet:     c.counters.valueRaised.Cmp(c.rules.Caps.HardCap) >= 0,
	}
}

// Status is a point-in-time snapshot of campaign state.
type Status struct {
	Stage          sale.Stage      `json:"stage"`
	Rate           uint64          `json:"rate"`
	Paused         bool            `json:"paused"`
	Finished       bool            `json:"finished"`
	Settlement     SettlementState `json:"settlement"`
	HeldValue      *big.Int        `json:"heldValue"`
	ValueRaised    *big.Int        `json:"valueRaised"`
	CreditsSold    *big.Int        `json:"creditsSold"`
	PrivateCredits *big.Int        `json:"privateCredits"`
	PreICOCredits  *big.Int        `json:"preIcoCredits"`
	ICOCredits     *big.Int        `json:"icoCredits"`
	Contributions  uint64          `json:"contributions"`
	Contributors   int             `json:"contributors"`
	Refunded       int             `json:"refunded"`
	SoftCapMet     bool            `json:"softCapMet"`
	HardCapMet     bool            `json:"hardCapMet"`
}

// closed reports whether contributions are no longer accepted.
func (c *Campaign) closed() bool {
	return c.finished || c.refunding()
}

// refunding reports whether the private stage resolved to the refund
// path. The stage is frozen from that point on.
func (c *Campaign) refunding() bool {
	return c.settlement == SettlementRefunding || c.settlement == SettlementRefunded
}

// reject counts a rejected contribution and passes the error through.
func (c *Campaign) reject(err error) error {
	metricRejections().AddWithLabel(1, map[string]string{"reason": Reason(err)})
	return err
}

// record appends one audit record; failures are logged, they do not
// undo the state change the record witnesses.
func (c *Campaign) record(kind audit.Kind, from, to common.Address, value, credits *big.Int, rate uint64) {
	r := audit.Record{
		Time:    uint64(c.now().UnixNano()),
		Kind:    kind,
		Stage:   c.stage,
		From:    from,
		To:      to,
		Value:   bigOrZero(value),
		Credits: bigOrZero(credits),
		Rate:    rate,
	}
	if _, err := c.auditor.Append(r); err != nil {
		c.log.WithError(err).WithField("kind", kind).Error("Failed to append audit record")
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
