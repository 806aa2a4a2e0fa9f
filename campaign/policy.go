package campaign

import (
	"math/big"

	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// capPolicy validates prospective contributions against the campaign
// hard cap and the active stage's sale ceiling.
type capPolicy struct {
	caps sale.CapsRules
}

// Validate checks, in order, that value does not push the total raised
// over the hard cap and that credits do not push the stage's sold
// amount over its ceiling. The hard cap binds first when both would be
// exceeded. The counters read and the subsequent update must not be
// interleaved with another contribution; the campaign's lock
// guarantees that.
func (p capPolicy) Validate(s sale.Stage, value, credits *big.Int, c *counters) error {
	raised := new(big.Int).Add(c.valueRaised, value)
	if raised.Cmp(p.caps.HardCap) > 0 {
		return ErrHardCapExceeded
	}

	var sold, ceiling *big.Int
	switch s {
	case sale.PrivatePreICO:
		sold = new(big.Int).Add(c.stageCredits[s], credits)
		ceiling = p.caps.PrivateSaleCap
	case sale.PreICO:
		sold = new(big.Int).Add(c.stageCredits[s], credits)
		ceiling = p.caps.PreSaleCap
	default:
		// The ICO stage is bounded by the overall sale ceiling.
		sold = new(big.Int).Add(c.creditsSold, credits)
		ceiling = p.caps.TotalSaleCap
	}
	if sold.Cmp(ceiling) > 0 {
		return ErrStageCapExceeded
	}
	return nil
}
