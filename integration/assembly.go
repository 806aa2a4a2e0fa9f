// Package integration assembles a runnable sale: the campaign engine wired
// to its asset ledgers, the audit journal over a key-value store, and the
// deployment presets the launcher selects between.
package integration

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/pkg/errors"

	"github.com/TalentifyApp/go-talentify-sale/asset"
	"github.com/TalentifyApp/go-talentify-sale/audit"
	"github.com/TalentifyApp/go-talentify-sale/campaign"
	"github.com/TalentifyApp/go-talentify-sale/logger"
	"github.com/TalentifyApp/go-talentify-sale/sale/genesis"
)

// Sale is a fully wired campaign deployment.
//
// The credit ledger plays the sale token: the genesis supply is minted to
// the sale address and every delivery draws from it. The value ledger plays
// the native-unit bank: contributions move balances into the sale address
// and settlement moves them out again. Both ledgers are plain in-process
// state; durability concerns stop at the audit journal.
type Sale struct {
	Campaign *campaign.Campaign
	Journal  *audit.Journal
	Credits  *asset.Ledger
	Value    *asset.Ledger
	Pause    *campaign.Switch
	Genesis  genesis.Genesis
}

// Assemble builds a Sale from the genesis, persisting audit records in db.
//
// The full credit supply is minted to the sale address first; the campaign
// constructor then carves the bounty and ecosystem reserves out of it, so a
// supply that does not cover the ceiling plus reserves fails construction.
func Assemble(db kvdb.Store, g genesis.Genesis) (*Sale, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate genesis")
	}

	journal, err := audit.NewJournal(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit journal")
	}

	credits := asset.NewLedger("credits")
	value := asset.NewLedger("value")
	if err := credits.Mint(g.SaleAddress, g.TotalSupply); err != nil {
		return nil, errors.Wrap(err, "failed to mint credit supply")
	}

	pause := new(campaign.Switch)
	c, err := campaign.New(campaign.Config{
		Rules:       g.Rules,
		Address:     g.SaleAddress,
		Owner:       g.Owner,
		Beneficiary: g.Beneficiary,
		Bounty:      g.BountyReserve,
		Ecosystem:   g.EcosystemReserve,
		Credits:     credits.Account(g.SaleAddress),
		Vault:       value.Account(g.SaleAddress),
		Auth:        campaign.OwnerGate{Owner: g.Owner},
		Pause:       pause,
		Audit:       journal,
		Log:         logger.New("campaign"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct campaign")
	}

	return &Sale{
		Campaign: c,
		Journal:  journal,
		Credits:  credits,
		Value:    value,
		Pause:    pause,
		Genesis:  g,
	}, nil
}

// FakeSale assembles a deterministic development deployment over an
// in-memory store and funds the first contributors of the fake keyspace
// with the given value balance each.
func FakeSale(contributors int, funds *big.Int) (*Sale, error) {
	s, err := Assemble(memorydb.New(), genesis.FakeGenesis())
	if err != nil {
		return nil, err
	}

	for i := 0; i < contributors; i++ {
		if err := s.Value.Mint(genesis.FakeContributor(i), funds); err != nil {
			return nil, errors.Wrap(err, "failed to fund fake contributor")
		}
	}
	return s, nil
}
