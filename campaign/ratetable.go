package campaign

import (
	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// rateTable holds the active conversion rate (credits per value unit)
// and the configured per-stage defaults used when the stage changes.
type rateTable struct {
	byStage sale.RateRules
	current uint64
}

func newRateTable(rules sale.RateRules, initial sale.Stage) *rateTable {
	return &rateTable{
		byStage: rules,
		current: rules.ForStage(initial),
	}
}

// Current returns the active rate.
func (t *rateTable) Current() uint64 {
	return t.current
}

// Set replaces the active rate. Subsequent contributions price at the
// new rate; already recorded ones are not repriced.
func (t *rateTable) Set(rate uint64) error {
	if rate == 0 {
		return ErrInvalidRate
	}
	t.current = rate
	return nil
}

// Reprice resets the active rate to the configured rate of stage s.
func (t *rateTable) Reprice(s sale.Stage) uint64 {
	t.current = t.byStage.ForStage(s)
	return t.current
}
