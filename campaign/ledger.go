package campaign

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TalentifyApp/go-talentify-sale/sale"
)

// ledger is the refund bookkeeping of the private stage. It keeps the
// cumulative contributed value per distinct contributor, in first-seen
// order, so a settlement refund pays every contributor exactly once no
// matter how many times they contributed. Later stages are not
// refundable, so their contributions only bump the event count.
type ledger struct {
	order    []common.Address
	total    map[common.Address]*big.Int
	refunded map[common.Address]bool
	count    uint64
}

func newLedger() *ledger {
	return &ledger{
		total:    make(map[common.Address]*big.Int),
		refunded: make(map[common.Address]bool),
	}
}

// Record adds an accepted contribution. Every contribution counts
// toward the campaign total, but only private stage entries join the
// refund bookkeeping.
func (l *ledger) Record(s sale.Stage, from common.Address, value *big.Int) {
	l.count++
	if s != sale.PrivatePreICO {
		return
	}
	cum, ok := l.total[from]
	if !ok {
		cum = new(big.Int)
		l.total[from] = cum
		l.order = append(l.order, from)
	}
	cum.Add(cum, value)
}

// Contributors returns the distinct contributors in first-seen order.
func (l *ledger) Contributors() []common.Address {
	out := make([]common.Address, len(l.order))
	copy(out, l.order)
	return out
}

// TotalOf returns the cumulative value contributed by addr.
func (l *ledger) TotalOf(addr common.Address) *big.Int {
	cum, ok := l.total[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cum)
}

func (l *ledger) MarkRefunded(addr common.Address) {
	l.refunded[addr] = true
}

func (l *ledger) IsRefunded(addr common.Address) bool {
	return l.refunded[addr]
}

// Pending returns the contributors not yet refunded, in first-seen
// order.
func (l *ledger) Pending() []common.Address {
	var out []common.Address
	for _, addr := range l.order {
		if !l.refunded[addr] {
			out = append(out, addr)
		}
	}
	return out
}

// Count returns the number of recorded contribution events.
func (l *ledger) Count() uint64 {
	return l.count
}

// Distinct returns the number of distinct contributors.
func (l *ledger) Distinct() int {
	return len(l.order)
}

// Refunded returns the number of contributors already refunded.
func (l *ledger) Refunded() int {
	return len(l.refunded)
}
