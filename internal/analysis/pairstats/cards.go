package pairstats

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// Thresholds are the σ distances at which a pair is flagged.
type Thresholds struct {
	Alert   float64
	Warning float64
}

// DefaultThresholds returns 2σ for alerts and 1.5σ for warnings.
func DefaultThresholds() Thresholds {
	return Thresholds{Alert: 2.0, Warning: 1.5}
}

// Classify maps an absolute deviation to a level.
func (t Thresholds) Classify(absDeviation float64) models.DeviationLevel {
	switch {
	case absDeviation >= t.Alert:
		return models.LevelAlert
	case absDeviation >= t.Warning:
		return models.LevelWarning
	default:
		return models.LevelNormal
	}
}

// Deviation returns |current-mean| / stdDev, or 0 when stdDev is 0.
func Deviation(s models.StatsResult) float64 {
	if s.StdDev == 0 {
		return 0
	}
	return math.Abs((s.Current - s.Mean) / s.StdDev)
}

// ChangePercent returns the move from previous to current in percent,
// rounded to two places. A zero previous yields 0.
func ChangePercent(s models.StatsResult) float64 {
	if s.Previous == 0 {
		return 0
	}
	pct := (s.Current - s.Previous) / s.Previous * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return decimal.NewFromFloat(pct).Round(2).InexactFloat64()
}

// Card summarizes one pair over the window.
func Card(ds *models.Dataset, base, target models.Currency, windowSize int, th Thresholds) models.PairCard {
	stats := ComputeStats(ds, base, target, windowSize)
	dev := Deviation(stats)
	return models.PairCard{
		Pair:          models.CurrencyPair{Base: base, Target: target}.Name(),
		Base:          base,
		Target:        target,
		Current:       stats.Current,
		ChangePercent: ChangePercent(stats),
		Deviation:     dev,
		Level:         th.Classify(dev),
		Stats:         stats,
	}
}

// Cards returns a card for every tracked currency other than base.
func Cards(ds *models.Dataset, base models.Currency, windowSize int, th Thresholds) []models.PairCard {
	targets := models.TargetsFor(base)
	cards := make([]models.PairCard, len(targets))
	for i, target := range targets {
		cards[i] = Card(ds, base, target, windowSize, th)
	}
	return cards
}
