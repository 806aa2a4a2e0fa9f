package campaign

import (
	"math/big"

	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// counters track cumulative sale progress in both denominations: value
// raised (checked against the hard cap) and credits sold (checked
// against per-stage ceilings). Not safe for concurrent use; the
// campaign serializes access.
type counters struct {
	valueRaised  *big.Int
	creditsSold  *big.Int
	stageValue   map[sale.Stage]*big.Int
	stageCredits map[sale.Stage]*big.Int
}

func newCounters() *counters {
	c := &counters{
		valueRaised:  new(big.Int),
		creditsSold:  new(big.Int),
		stageValue:   make(map[sale.Stage]*big.Int),
		stageCredits: make(map[sale.Stage]*big.Int),
	}
	for s := sale.PrivatePreICO; s.Valid(); s++ {
		c.stageValue[s] = new(big.Int)
		c.stageCredits[s] = new(big.Int)
	}
	return c
}

// Apply adds an accepted contribution to the totals of stage s.
func (c *counters) Apply(s sale.Stage, value, credits *big.Int) {
	c.valueRaised.Add(c.valueRaised, value)
	c.creditsSold.Add(c.creditsSold, credits)
	c.stageValue[s].Add(c.stageValue[s], value)
	c.stageCredits[s].Add(c.stageCredits[s], credits)
}

// ValueRaised returns the total value collected across all stages.
func (c *counters) ValueRaised() *big.Int {
	return new(big.Int).Set(c.valueRaised)
}

// CreditsSold returns the total credits delivered across all stages.
func (c *counters) CreditsSold() *big.Int {
	return new(big.Int).Set(c.creditsSold)
}

// StageValue returns the value collected during stage s.
func (c *counters) StageValue(s sale.Stage) *big.Int {
	return new(big.Int).Set(c.stageValue[s])
}

// StageCredits returns the credits sold during stage s.
func (c *counters) StageCredits(s sale.Stage) *big.Int {
	return new(big.Int).Set(c.stageCredits[s])
}
