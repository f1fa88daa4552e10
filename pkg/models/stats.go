package models

import (
	"encoding/json"
	"math"
)

// StatsResult holds window statistics for one currency pair.
type StatsResult struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// ChartSeries is the aligned label/value data plus constant mean and
// deviation bands for a chart. All slices have the same length.
type ChartSeries struct {
	Pair       string    `json:"pair"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
	Mean       []float64 `json:"mean"`
	UpperBand1 []float64 `json:"upperBand1"`
	LowerBand1 []float64 `json:"lowerBand1"`
	UpperBand2 []float64 `json:"upperBand2"`
	LowerBand2 []float64 `json:"lowerBand2"`
}

// MarshalJSON encodes non-finite values and band points as null, which
// encoding/json otherwise rejects.
func (s ChartSeries) MarshalJSON() ([]byte, error) {
	type alias ChartSeries
	return json.Marshal(struct {
		alias
		Values     []*float64 `json:"values"`
		Mean       []*float64 `json:"mean"`
		UpperBand1 []*float64 `json:"upperBand1"`
		LowerBand1 []*float64 `json:"lowerBand1"`
		UpperBand2 []*float64 `json:"upperBand2"`
		LowerBand2 []*float64 `json:"lowerBand2"`
	}{
		alias:      alias(s),
		Values:     finiteOrNil(s.Values),
		Mean:       finiteOrNil(s.Mean),
		UpperBand1: finiteOrNil(s.UpperBand1),
		LowerBand1: finiteOrNil(s.LowerBand1),
		UpperBand2: finiteOrNil(s.UpperBand2),
		LowerBand2: finiteOrNil(s.LowerBand2),
	})
}

func finiteOrNil(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		if !math.IsNaN(vals[i]) && !math.IsInf(vals[i], 0) {
			v := vals[i]
			out[i] = &v
		}
	}
	return out
}

// DeviationLevel classifies how far a rate sits from its window mean.
type DeviationLevel string

const (
	LevelNormal  DeviationLevel = "normal"
	LevelWarning DeviationLevel = "warning"
	LevelAlert   DeviationLevel = "alert"
)

// PairCard is the summary tile for one pair.
type PairCard struct {
	Pair          string         `json:"pair"`
	Base          Currency       `json:"base"`
	Target        Currency       `json:"target"`
	Current       float64        `json:"current"`
	ChangePercent float64        `json:"change_percent"`
	Deviation     float64        `json:"deviation"` // |current-mean|/stdDev, in σ
	Level         DeviationLevel `json:"level"`
	Stats         StatsResult    `json:"stats"`
}

// Alert is one currency flagged by the deviation check.
type Alert struct {
	Level        DeviationLevel `json:"level"`
	Currency     Currency       `json:"currency"`
	Current      float64        `json:"current"`
	Mean         float64        `json:"mean"`
	StdDev       float64        `json:"stdev"`
	Deviation    float64        `json:"deviation"`
	AbsDeviation float64        `json:"abs_deviation"`
}
