// Package genesis defines the construction-time state of a campaign
// deployment: the parties, the campaign account, the initial credit supply,
// and the rules everything else derives from.
//
// Key concepts:
//   - Rules: the immutable sale configuration (caps, rates, windows)
//   - Parties: owner, beneficiary and the two reserve addresses
//   - SaleAddress: the campaign account holding the for-sale credits and
//     custodying contributed value until settlement
//
// A genesis is either assembled from launcher configuration or generated
// deterministically for development runs (FakeGenesis).
package genesis

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// ErrInvalidGenesis is returned by Validate for any inconsistency that is not
// already a rules violation.
var ErrInvalidGenesis = errors.New("invalid genesis")

// Genesis is the complete deployment definition of one campaign.
type Genesis struct {
	// Rules is the sale configuration, validated as part of the genesis.
	Rules sale.Rules

	// Owner is the only party authorized for rate, stage and settlement
	// operations.
	Owner common.Address

	// Beneficiary receives the held value balance on payout.
	Beneficiary common.Address

	// BountyReserve and EcosystemReserve receive their one-time reserve
	// credits at construction.
	BountyReserve    common.Address
	EcosystemReserve common.Address

	// SaleAddress is the campaign account. For-sale credits are minted to
	// it, and contributed value is custodied under it until settlement.
	SaleAddress common.Address

	// TotalSupply is the amount of credits minted to the campaign account
	// at deployment, in credit base units. It must cover the for-sale
	// ceiling plus both reserves.
	TotalSupply *big.Int
}

// Validate checks the genesis for consistency. Rules violations surface as
// sale.ErrInvalidCapConfiguration, everything else as ErrInvalidGenesis.
func (g Genesis) Validate() error {
	if err := g.Rules.Validate(); err != nil {
		return err
	}

	parties := []struct {
		name string
		addr common.Address
	}{
		{"owner", g.Owner},
		{"beneficiary", g.Beneficiary},
		{"bounty reserve", g.BountyReserve},
		{"ecosystem reserve", g.EcosystemReserve},
		{"sale address", g.SaleAddress},
	}
	for _, p := range parties {
		if p.addr == (common.Address{}) {
			return fmt.Errorf("%w: %s address is zero", ErrInvalidGenesis, p.name)
		}
	}
	if g.SaleAddress == g.BountyReserve || g.SaleAddress == g.EcosystemReserve {
		return fmt.Errorf("%w: reserve address equals the sale address", ErrInvalidGenesis)
	}

	if g.TotalSupply == nil || g.TotalSupply.Sign() <= 0 {
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidGenesis)
	}
	need := new(big.Int).Add(g.Rules.Caps.TotalSaleCap, g.Rules.Reserves.Bounty)
	need.Add(need, g.Rules.Reserves.Ecosystem)
	if g.TotalSupply.Cmp(need) < 0 {
		return fmt.Errorf("%w: total supply %v does not cover sale ceiling plus reserves %v",
			ErrInvalidGenesis, g.TotalSupply, need)
	}

	return nil
}

// FakeKey generates a deterministic private key for development deployments.
// The same n always yields the same key.
func FakeKey(n int) *ecdsa.PrivateKey {
	reader := rand.New(rand.NewSource(int64(n)))

	key, err := ecdsa.GenerateKey(crypto.S256(), reader)
	if err != nil {
		panic(err)
	}

	return key
}

// FakeAddress returns the address of FakeKey(n).
func FakeAddress(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}

// Deterministic party indices of fake deployments. Contributor accounts used
// by development runs and tests start above these.
const (
	FakeOwnerIdx = iota
	FakeBeneficiaryIdx
	FakeBountyIdx
	FakeEcosystemIdx
	FakeSaleIdx
	FakeContributorsBaseIdx
)

// FakeGenesis builds a deterministic development deployment over
// sale.FakeSaleRules. The supply exactly covers the for-sale ceiling plus
// both reserves.
func FakeGenesis() Genesis {
	rules := sale.FakeSaleRules()

	supply := new(big.Int).Add(rules.Caps.TotalSaleCap, rules.Reserves.Bounty)
	supply.Add(supply, rules.Reserves.Ecosystem)

	return Genesis{
		Rules:            rules,
		Owner:            FakeAddress(FakeOwnerIdx),
		Beneficiary:      FakeAddress(FakeBeneficiaryIdx),
		BountyReserve:    FakeAddress(FakeBountyIdx),
		EcosystemReserve: FakeAddress(FakeEcosystemIdx),
		SaleAddress:      FakeAddress(FakeSaleIdx),
		TotalSupply:      supply,
	}
}

// FakeContributor returns the n-th deterministic contributor address of fake
// deployments.
func FakeContributor(n int) common.Address {
	return FakeAddress(FakeContributorsBaseIdx + n)
}
