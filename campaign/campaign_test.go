package campaign

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TalentifyApp/go-talentify-sale/asset"
	"github.com/TalentifyApp/go-talentify-sale/audit"
	"github.com/TalentifyApp/go-talentify-sale/sale"
)

var (
	testOwner       = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testBeneficiary = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testBounty      = common.HexToAddress("0x1000000000000000000000000000000000000003")
	testEcosystem   = common.HexToAddress("0x1000000000000000000000000000000000000004")
	testSaleAddr    = common.HexToAddress("0x1000000000000000000000000000000000000005")
	testStranger    = common.HexToAddress("0x1000000000000000000000000000000000000009")

	addrA = common.HexToAddress("0x2000000000000000000000000000000000000001")
	addrB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	addrC = common.HexToAddress("0x2000000000000000000000000000000000000003")
	// addrD is deliberately left without any value balance.
	addrD = common.HexToAddress("0x2000000000000000000000000000000000000004")
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// failingVault wraps a vault and refuses transfers to marked addresses.
type failingVault struct {
	ValueVault
	failTo map[common.Address]bool
}

func (v *failingVault) TransferValue(to common.Address, amount *big.Int) bool {
	if v.failTo[to] {
		return false
	}
	return v.ValueVault.TransferValue(to, amount)
}

// testEnv wires a campaign to in-memory asset ledgers and an in-memory
// audit journal. The campaign clock is e.now, movable by the test.
type testEnv struct {
	t        *testing.T
	rules    sale.Rules
	credits  *asset.Ledger
	value    *asset.Ledger
	vault    *failingVault
	pause    *Switch
	journal  *audit.Journal
	now      time.Time
	campaign *Campaign
}

const contributorFunds = 100000 // value units minted per contributor

func newTestEnv(t *testing.T, rules sale.Rules) *testEnv {
	supply := new(big.Int).Set(rules.Caps.TotalSaleCap)
	supply.Add(supply, rules.Reserves.Bounty)
	supply.Add(supply, rules.Reserves.Ecosystem)
	return newTestEnvWithSupply(t, rules, supply)
}

func newTestEnvWithSupply(t *testing.T, rules sale.Rules, creditSupply *big.Int) *testEnv {
	e := &testEnv{
		t:     t,
		rules: rules,
		now:   rules.Windows.PrivatePreICOEnd.Add(-time.Hour),
	}
	e.credits = asset.NewLedger("credits")
	e.value = asset.NewLedger("value")
	e.pause = &Switch{}

	require.NoError(t, e.credits.Mint(testSaleAddr, creditSupply))
	for _, addr := range []common.Address{addrA, addrB, addrC} {
		require.NoError(t, e.value.Mint(addr, units(contributorFunds)))
	}

	e.vault = &failingVault{
		ValueVault: e.value.Account(testSaleAddr),
		failTo:     make(map[common.Address]bool),
	}

	journal, err := audit.NewJournal(memorydb.New())
	require.NoError(t, err)
	e.journal = journal

	c, err := New(Config{
		Rules:       rules,
		Address:     testSaleAddr,
		Owner:       testOwner,
		Beneficiary: testBeneficiary,
		Bounty:      testBounty,
		Ecosystem:   testEcosystem,
		Credits:     e.credits.Account(testSaleAddr),
		Vault:       e.vault,
		Pause:       e.pause,
		Audit:       journal,
		Now:         func() time.Time { return e.now },
	})
	require.NoError(t, err)
	e.campaign = c
	return e
}

// afterPrivateEnd moves the campaign clock past the private stage end.
func (e *testEnv) afterPrivateEnd() {
	e.now = e.rules.Windows.PrivatePreICOEnd.Add(time.Hour)
}

func (e *testEnv) records() []audit.Record {
	rs, err := e.journal.Range(0, 0)
	require.NoError(e.t, err)
	return rs
}

func (e *testEnv) kinds() []audit.Kind {
	var out []audit.Kind
	for _, r := range e.records() {
		out = append(out, r.Kind)
	}
	return out
}

func TestNewDeliversReserves(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	assert.Equal(t, e.rules.Reserves.Bounty, e.credits.BalanceOf(testBounty))
	assert.Equal(t, e.rules.Reserves.Ecosystem, e.credits.BalanceOf(testEcosystem))
	assert.Equal(t, e.rules.Caps.TotalSaleCap, e.credits.BalanceOf(testSaleAddr))

	assert.Equal(t, []audit.Kind{audit.KindReserveAllocation, audit.KindReserveAllocation}, e.kinds())
	assert.Equal(t, sale.PrivatePreICO, e.campaign.Stage())
	assert.Equal(t, e.rules.Rates.PrivatePreICO, e.campaign.CurrentRate())
}

func TestNewRejectsBrokenConfig(t *testing.T) {
	credits := asset.NewLedger("credits")
	value := asset.NewLedger("value")
	require.NoError(t, credits.Mint(testSaleAddr, units(400000000)))

	base := Config{
		Rules:       sale.MainSaleRules(),
		Address:     testSaleAddr,
		Owner:       testOwner,
		Beneficiary: testBeneficiary,
		Bounty:      testBounty,
		Ecosystem:   testEcosystem,
		Credits:     credits.Account(testSaleAddr),
		Vault:       value.Account(testSaleAddr),
	}

	for name, mutate := range map[string]func(*Config){
		"no credits":     func(c *Config) { c.Credits = nil },
		"no vault":       func(c *Config) { c.Vault = nil },
		"no owner":       func(c *Config) { c.Owner = common.Address{} },
		"no beneficiary": func(c *Config) { c.Beneficiary = common.Address{} },
		"no bounty addr": func(c *Config) { c.Bounty = common.Address{} },
		"bad rules":      func(c *Config) { c.Rules.Caps.HardCap = nil },
	} {
		cfg := base
		mutate(&cfg)
		_, err := New(cfg)
		assert.Error(t, err, name)
	}
}

func TestNewFailsWhenReserveUnfunded(t *testing.T) {
	credits := asset.NewLedger("credits")
	value := asset.NewLedger("value")
	// Less than the bounty reserve alone.
	require.NoError(t, credits.Mint(testSaleAddr, units(1)))

	_, err := New(Config{
		Rules:       sale.MainSaleRules(),
		Address:     testSaleAddr,
		Owner:       testOwner,
		Beneficiary: testBeneficiary,
		Bounty:      testBounty,
		Ecosystem:   testEcosystem,
		Credits:     credits.Account(testSaleAddr),
		Vault:       value.Account(testSaleAddr),
	})
	require.ErrorIs(t, err, ErrCreditTransferFailed)
}

func TestContributeDeliversCredits(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	half := big.NewInt(5e17) // 0.5 units
	receipt, err := e.campaign.Contribute(addrA, half)
	require.NoError(t, err)

	assert.Equal(t, addrA, receipt.Contributor)
	assert.Equal(t, sale.PrivatePreICO, receipt.Stage)
	assert.Equal(t, units(5000), receipt.Credits)
	assert.Equal(t, uint64(10000), receipt.Rate)

	assert.Equal(t, units(5000), e.credits.BalanceOf(addrA))
	assert.Equal(t, half, e.value.BalanceOf(testSaleAddr))
	wantLeft := new(big.Int).Sub(units(contributorFunds), half)
	assert.Equal(t, wantLeft, e.value.BalanceOf(addrA))

	status := e.campaign.Status()
	assert.Equal(t, half, status.ValueRaised)
	assert.Equal(t, half, status.HeldValue)
	assert.Equal(t, units(5000), status.PrivateCredits)
	assert.Equal(t, uint64(1), status.Contributions)
	assert.Equal(t, 1, status.Contributors)

	last := e.records()[len(e.records())-1]
	assert.Equal(t, audit.KindContribution, last.Kind)
	assert.Equal(t, addrA, last.From)
	assert.Equal(t, half, last.Value)
	assert.Equal(t, units(5000), last.Credits)
}

// Mirrors the reference deployment numbers: rate 10000, private ceiling
// 10000 credits, two half-unit contributions fill the stage exactly and
// the next one bounces off the stage cap.
func TestContributeStageCeiling(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())
	half := big.NewInt(5e17)

	_, err := e.campaign.Contribute(addrA, half)
	require.NoError(t, err)
	_, err = e.campaign.Contribute(addrA, half)
	require.NoError(t, err)

	status := e.campaign.Status()
	assert.Equal(t, units(1), status.ValueRaised)
	assert.Equal(t, units(10000), status.PrivateCredits)
	assert.True(t, status.SoftCapMet)

	before := e.campaign.Status()
	dust := big.NewInt(1e14) // 0.0001 units
	_, err = e.campaign.Contribute(addrA, dust)
	require.ErrorIs(t, err, ErrStageCapExceeded)

	after := e.campaign.Status()
	assert.Equal(t, before.ValueRaised, after.ValueRaised)
	assert.Equal(t, before.PrivateCredits, after.PrivateCredits)
	assert.Equal(t, units(10000), e.credits.BalanceOf(addrA))
}

// When a contribution would break both ceilings, the hard cap wins.
func TestContributeHardCapCheckedFirst(t *testing.T) {
	rules := sale.MainSaleRules()
	rules.Caps.HardCap = units(1)
	rules.Caps.SoftCap = units(50)
	rules.Caps.PrivateSaleCap = units(50)
	rules.Rates.PrivatePreICO = 100
	e := newTestEnv(t, rules)

	// 2 value units exceed the 1 unit hard cap, and 200 credits exceed
	// the 50 credit stage ceiling.
	_, err := e.campaign.Contribute(addrA, units(2))
	require.ErrorIs(t, err, ErrHardCapExceeded)
}

func TestContributeRejectsWhenPaused(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	e.pause.Pause()
	_, err := e.campaign.Contribute(addrA, units(1))
	require.ErrorIs(t, err, ErrCampaignPaused)
	assert.Equal(t, 0, e.campaign.Status().Contributors)

	e.pause.Resume()
	_, err = e.campaign.Contribute(addrA, big.NewInt(5e17))
	require.NoError(t, err)
}

func TestContributeRejectsBadValue(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	for name, value := range map[string]*big.Int{
		"nil":      nil,
		"zero":     new(big.Int),
		"negative": big.NewInt(-5),
	} {
		_, err := e.campaign.Contribute(addrA, value)
		assert.ErrorIs(t, err, ErrInvalidContribution, name)
	}
	assert.Equal(t, 0, e.campaign.Status().Contributors)
}

func TestContributeOverflow(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	// value * 10000 does not fit 256 bits.
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	_, err := e.campaign.Contribute(addrA, huge)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	status := e.campaign.Status()
	assert.Zero(t, status.ValueRaised.Sign())
	assert.Zero(t, status.CreditsSold.Sign())
}

func TestContributeCollectFailure(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	// addrD holds no value, so the vault cannot collect from it.
	_, err := e.campaign.Contribute(addrD, units(1))
	require.ErrorIs(t, err, ErrValueTransferFailed)
	assert.Equal(t, 0, e.campaign.Status().Contributors)
	assert.Zero(t, e.value.BalanceOf(testSaleAddr).Sign())
}

func TestContributeCreditFailureRollsBack(t *testing.T) {
	rules := sale.MainSaleRules()
	// Enough credits for the reserves but one short of a 0.5 unit buy.
	supply := new(big.Int).Add(rules.Reserves.Bounty, rules.Reserves.Ecosystem)
	supply.Add(supply, units(4999))
	e := newTestEnvWithSupply(t, rules, supply)

	_, err := e.campaign.Contribute(addrA, big.NewInt(5e17))
	require.ErrorIs(t, err, ErrCreditTransferFailed)

	// The collected value was handed back, nothing else moved.
	assert.Equal(t, units(contributorFunds), e.value.BalanceOf(addrA))
	assert.Zero(t, e.value.BalanceOf(testSaleAddr).Sign())
	assert.Zero(t, e.credits.BalanceOf(addrA).Sign())

	status := e.campaign.Status()
	assert.Zero(t, status.ValueRaised.Sign())
	assert.Equal(t, uint64(0), status.Contributions)
	// Only the two reserve allocations are on record.
	assert.Len(t, e.records(), 2)
}

// Interleaved contributions must land exactly like sequential ones.
func TestContributeConcurrent(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	const workers = 10
	const perWorker = 10
	small := big.NewInt(1e16) // 0.01 units, 100 total = 1 unit

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := e.campaign.Contribute(addrA, small)
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	status := e.campaign.Status()
	assert.Equal(t, units(1), status.ValueRaised)
	assert.Equal(t, units(10000), status.CreditsSold)
	assert.Equal(t, uint64(workers*perWorker), status.Contributions)
	assert.Equal(t, 1, status.Contributors)
}

func TestSetRate(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	require.ErrorIs(t, e.campaign.SetRate(testStranger, 4000), ErrUnauthorized)
	require.ErrorIs(t, e.campaign.SetRate(testOwner, 0), ErrInvalidRate)

	require.NoError(t, e.campaign.SetRate(testOwner, 4000))
	assert.Equal(t, uint64(4000), e.campaign.CurrentRate())

	receipt, err := e.campaign.Contribute(addrA, units(1))
	require.NoError(t, err)
	assert.Equal(t, units(4000), receipt.Credits)

	last := e.records()[2]
	assert.Equal(t, audit.KindRateChange, last.Kind)
	assert.Equal(t, uint64(4000), last.Rate)
}

func TestSetStage(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	require.ErrorIs(t, e.campaign.SetStage(testStranger, sale.ICO), ErrUnauthorized)
	require.ErrorIs(t, e.campaign.SetStage(testOwner, sale.PreICO), ErrInvalidTransition)

	require.NoError(t, e.campaign.SetStage(testOwner, sale.ICO))
	assert.Equal(t, sale.ICO, e.campaign.Stage())
	assert.Equal(t, e.rules.Rates.ICO, e.campaign.CurrentRate())

	// No way back.
	require.ErrorIs(t, e.campaign.SetStage(testOwner, sale.PrivatePreICO), ErrInvalidTransition)

	kinds := e.kinds()
	assert.Equal(t, audit.KindStageChange, kinds[2])
	assert.Equal(t, audit.KindRateChange, kinds[3])
}

func TestSetStageRepricesContributions(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	receipt, err := e.campaign.Contribute(addrA, big.NewInt(5e17))
	require.NoError(t, err)
	assert.Equal(t, units(5000), receipt.Credits)

	require.NoError(t, e.campaign.SetStage(testOwner, sale.ICO))

	receipt, err = e.campaign.Contribute(addrB, units(1))
	require.NoError(t, err)
	assert.Equal(t, sale.ICO, receipt.Stage)
	assert.Equal(t, units(5000), receipt.Credits) // 1 unit at the 5000 rate

	status := e.campaign.Status()
	assert.Equal(t, units(5000), status.PrivateCredits)
	assert.Equal(t, units(5000), status.ICOCredits)
	assert.Equal(t, units(10000), status.CreditsSold)
	assert.Equal(t, uint64(2), status.Contributions)
	// Only the private stage keeps refund bookkeeping.
	assert.Equal(t, 1, status.Contributors)
}

func TestStatusSnapshotIsDetached(t *testing.T) {
	e := newTestEnv(t, sale.MainSaleRules())

	_, err := e.campaign.Contribute(addrA, units(1))
	require.NoError(t, err)

	status := e.campaign.Status()
	status.ValueRaised.SetInt64(0)
	assert.Equal(t, units(1), e.campaign.Status().ValueRaised)
}
