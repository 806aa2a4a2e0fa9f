package campaign

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"

	"github.com/TalentifyApp/go-talentify-sale/metrics"
)

var (
	metricContributions = metrics.LazyLoadCounter("sale_contributions_total")
	metricRejections    = metrics.LazyLoadCounterVec("sale_contribution_rejections_total", []string{"reason"})
	metricRefunds       = metrics.LazyLoadCounter("sale_refunds_total")
	metricRefundFails   = metrics.LazyLoadCounter("sale_refund_failures_total")
	metricStage         = metrics.LazyLoadGauge("sale_stage")
	metricRaisedUnits   = metrics.LazyLoadGauge("sale_value_raised_units")
	metricCreditsUnits  = metrics.LazyLoadGauge("sale_credits_sold_units")
)

// wholeUnits scales a base-unit amount down to whole units so it fits
// a gauge.
func wholeUnits(v *big.Int) int64 {
	return new(big.Int).Div(v, big.NewInt(params.Ether)).Int64()
}
