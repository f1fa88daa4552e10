package pairstats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// Window returns the most recent size records of ds, or all of them when
// fewer exist. A non-positive size selects the whole history.
func Window(ds *models.Dataset, size int) []models.HistoricalRecord {
	if ds == nil {
		return nil
	}
	recs := ds.Historical
	if size > 0 && size < len(recs) {
		return recs[len(recs)-size:]
	}
	return recs
}

// PairValues returns the base/target rate of every record in the window,
// unfiltered and in date order.
func PairValues(ds *models.Dataset, base, target models.Currency, windowSize int) []float64 {
	recs := Window(ds, windowSize)
	vals := make([]float64, len(recs))
	for i, rec := range recs {
		vals[i] = RecordRate(rec, base, target)
	}
	return vals
}

// ComputeStats computes current, previous, mean, population standard
// deviation, min and max of the base/target rate over the window.
// Non-finite rates are dropped first; an empty result yields all zeros.
func ComputeStats(ds *models.Dataset, base, target models.Currency, windowSize int) models.StatsResult {
	return Summarize(finite(PairValues(ds, base, target, windowSize)))
}

// Summarize computes a StatsResult over already-filtered values.
func Summarize(data []float64) models.StatsResult {
	n := len(data)
	if n == 0 {
		return models.StatsResult{}
	}

	current := data[n-1]
	previous := current
	if n > 1 {
		previous = data[n-2]
	}

	mean, sd := PopMeanStdDev(data)
	lo, hi := minMax(data)

	return models.StatsResult{
		Current:  current,
		Previous: previous,
		Mean:     finiteOrZero(mean),
		StdDev:   finiteOrZero(sd),
		Min:      lo,
		Max:      hi,
	}
}

// PopMeanStdDev returns the mean and population standard deviation.
func PopMeanStdDev(data []float64) (float64, float64) {
	return scaled(data, stat.PopMeanStdDev)
}

// SampleMeanStdDev returns the mean and sample (N-1) standard deviation.
// It needs at least two points.
func SampleMeanStdDev(data []float64) (float64, float64) {
	return scaled(data, stat.MeanStdDev)
}

// scaleAbove is the magnitude past which sums of rates may overflow.
const scaleAbove = 1e150

// scaled runs fn on data divided by a power of two near its largest
// magnitude, then scales the results back. The scaled-back deviation can
// still be ±Inf.
func scaled(data []float64, fn func(x, weights []float64) (float64, float64)) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < scaleAbove || math.IsInf(peak, 0) || math.IsNaN(peak) {
		return fn(data, nil)
	}

	_, exp := math.Frexp(peak)
	norm := make([]float64, len(data))
	for i, v := range data {
		norm[i] = math.Ldexp(v, -exp)
	}
	mean, sd := fn(norm, nil)
	return math.Ldexp(mean, exp), math.Ldexp(sd, exp)
}

// --- helper functions ---

func finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func minMax(data []float64) (float64, float64) {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
