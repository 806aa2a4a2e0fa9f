package integration

import (
	"fmt"
	"math/big"

	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// Preset is a named deployment profile the launcher selects between.
// A preset carries the sale rules plus the development conveniences
// wired around them; it never carries party addresses, those come from
// the operator's configuration (or, for fake deployments, from the
// deterministic keyspace).
type Preset struct {
	// Name identifies the preset in flags, logs and config dumps.
	Name string

	// Rules is the sale configuration this profile deploys.
	Rules sale.Rules

	// Fake marks deterministic development deployments: genesis parties
	// come from the fake keyspace, the journal lives in memory, and
	// FakeContributors accounts are pre-funded with FakeFunds each.
	Fake             bool
	FakeContributors int
	FakeFunds        *big.Int
}

// MainPreset returns the reference deployment profile. Party addresses
// and the credit supply must be supplied by the operator.
func MainPreset() Preset {
	return Preset{
		Name:  "main",
		Rules: sale.MainSaleRules(),
	}
}

// FakePreset returns the development profile: tiny caps, short windows,
// and ten pre-funded contributor accounts so a fresh checkout can
// exercise the whole lifecycle without any operator setup.
func FakePreset() Preset {
	return Preset{
		Name:             "fake",
		Rules:            sale.FakeSaleRules(),
		Fake:             true,
		FakeContributors: 10,
		FakeFunds:        new(big.Int).Mul(big.NewInt(100), big.NewInt(sale.CreditUnit)),
	}
}

// GetPresetByName resolves a preset from its flag value. Names are
// case-sensitive; the error lists the valid options.
func GetPresetByName(name string) (Preset, error) {
	switch name {
	case "main":
		return MainPreset(), nil
	case "fake":
		return FakePreset(), nil
	default:
		return Preset{}, fmt.Errorf("unknown preset %q, valid presets are: main, fake", name)
	}
}
