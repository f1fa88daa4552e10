// Package pairstats derives currency-pair rates, window statistics, chart
// series and summary cards from a USD-quoted historical dataset.
//
// Every function is pure: the dataset is read, never modified, and the
// selection (base, target, window) is passed explicitly on each call.
package pairstats

import (
	"math"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// PairRate converts two USD-quoted rates into the base/target rate,
// i.e. how many units of target one unit of base buys.
//
//	base == USD   -> targetRate
//	target == USD -> 1 / baseRate
//	otherwise     -> targetRate / baseRate (cross via USD)
func PairRate(base, target models.Currency, baseRate, targetRate float64) float64 {
	if base == models.USD {
		return targetRate
	}
	if target == models.USD {
		return 1 / baseRate
	}
	return targetRate / baseRate
}

// RecordRate returns the base/target rate for a single record.
//
// A currency that is absent from the record, or quoted as 0, counts as 1.
// That is right for USD but also silently treats a data gap as USD parity;
// the behaviour is kept so that figures match the published dashboard.
func RecordRate(rec models.HistoricalRecord, base, target models.Currency) float64 {
	return PairRate(base, target, usdRate(rec, base), usdRate(rec, target))
}

func usdRate(rec models.HistoricalRecord, c models.Currency) float64 {
	v, ok := rec.Rate(c)
	if !ok || v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}
