package pairstats

import (
	"github.com/seenimoa/fxwatch/pkg/models"
)

// PrepareSeries builds chart data for the pair over the window: the record
// dates, the unfiltered pair rates and five constant lines at the mean and
// at mean ±1σ and ±2σ.
//
// Values are not filtered for non-finite rates, unlike ComputeStats, so a
// bad record still occupies its slot on the date axis.
func PrepareSeries(ds *models.Dataset, base, target models.Currency, windowSize int) models.ChartSeries {
	stats := ComputeStats(ds, base, target, windowSize)
	recs := Window(ds, windowSize)

	labels := make([]string, len(recs))
	values := make([]float64, len(recs))
	for i, rec := range recs {
		labels[i] = rec.Date
		values[i] = RecordRate(rec, base, target)
	}

	n := len(values)
	return models.ChartSeries{
		Pair:       models.CurrencyPair{Base: base, Target: target}.Name(),
		Labels:     labels,
		Values:     values,
		Mean:       fill(n, stats.Mean),
		UpperBand1: fill(n, stats.Mean+stats.StdDev),
		LowerBand1: fill(n, stats.Mean-stats.StdDev),
		UpperBand2: fill(n, stats.Mean+2*stats.StdDev),
		LowerBand2: fill(n, stats.Mean-2*stats.StdDev),
	}
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
