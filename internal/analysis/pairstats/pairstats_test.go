package pairstats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/fxwatch/pkg/models"
)

const eps = 1e-9

func rec(date string, rates map[string]float64) models.HistoricalRecord {
	return models.HistoricalRecord{Date: date, Rates: rates}
}

func dataset(recs ...models.HistoricalRecord) *models.Dataset {
	return &models.Dataset{
		Metadata:   models.DatasetMetadata{LastUpdated: "2024-01-02T00:00:00"},
		Historical: recs,
	}
}

// makeDataset generates n days with every tracked currency drifting linearly.
func makeDataset(n int) *models.Dataset {
	recs := make([]models.HistoricalRecord, n)
	for i := 0; i < n; i++ {
		d := float64(i) * 0.01
		recs[i] = rec("2024-01-"+twoDigits(i+1), map[string]float64{
			"CNY": 7.1 + d,
			"SGD": 1.34 + d/10,
			"JPY": 145 + d*10,
			"AUD": 1.5 + d/5,
		})
	}
	return dataset(recs...)
}

func twoDigits(i int) string {
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// ── PairRate / RecordRate ──

func TestPairRate(t *testing.T) {
	tests := []struct {
		name         string
		base, target models.Currency
		bRate, tRate float64
		want         float64
	}{
		{"usd base", models.USD, models.CNY, 1, 7.2, 7.2},
		{"usd target", models.SGD, models.USD, 1.35, 1, 1 / 1.35},
		{"cross", models.SGD, models.CNY, 1.35, 7.2, 7.2 / 1.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PairRate(tt.base, tt.target, tt.bRate, tt.tRate), eps)
		})
	}
}

func TestRecordRateCrossExample(t *testing.T) {
	r := rec("2024-01-01", map[string]float64{"SGD": 1.35, "CNY": 7.2})
	assert.InDelta(t, 5.3333, RecordRate(r, models.SGD, models.CNY), 1e-4)
}

func TestRecordRateReciprocal(t *testing.T) {
	r := rec("2024-01-01", map[string]float64{"SGD": 1.35, "CNY": 7.2, "JPY": 148.2})
	pairs := [][2]models.Currency{
		{models.SGD, models.CNY},
		{models.JPY, models.SGD},
		{models.CNY, models.JPY},
	}
	for _, p := range pairs {
		fwd := RecordRate(r, p[0], p[1])
		rev := RecordRate(r, p[1], p[0])
		assert.InDelta(t, fwd, 1/rev, eps, "%s/%s", p[0], p[1])
	}
}

// A missing currency is priced as if it were USD. This pins the current
// behaviour rather than endorsing it.
func TestRecordRateMissingCurrencyDefaultsToOne(t *testing.T) {
	r := rec("2024-01-01", map[string]float64{"CNY": 7.2})

	assert.InDelta(t, 7.2, RecordRate(r, models.SGD, models.CNY), eps)
	assert.InDelta(t, 1.0, RecordRate(r, models.SGD, models.USD), eps)
	assert.InDelta(t, 1.0, RecordRate(r, models.USD, models.AUD), eps)

	zero := rec("2024-01-02", map[string]float64{"CNY": 7.2, "SGD": 0})
	assert.InDelta(t, 7.2, RecordRate(zero, models.SGD, models.CNY), eps)
}

// ── Window ──

func TestWindow(t *testing.T) {
	ds := makeDataset(10)

	assert.Len(t, Window(ds, 3), 3)
	assert.Equal(t, "2024-01-10", Window(ds, 3)[2].Date)
	assert.Equal(t, "2024-01-08", Window(ds, 3)[0].Date)
	assert.Len(t, Window(ds, 365), 10)
	assert.Len(t, Window(ds, 0), 10)
	assert.Nil(t, Window(nil, 5))
}

// ── ComputeStats ──

func TestComputeStatsTwoDayExample(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"CNY": 7.1}),
		rec("2024-01-02", map[string]float64{"CNY": 7.2}),
	)

	s := ComputeStats(ds, models.USD, models.CNY, 365)

	assert.InDelta(t, 7.2, s.Current, eps)
	assert.InDelta(t, 7.1, s.Previous, eps)
	assert.InDelta(t, 7.15, s.Mean, eps)
	assert.InDelta(t, 0.05, s.StdDev, eps)
	assert.InDelta(t, 7.1, s.Min, eps)
	assert.InDelta(t, 7.2, s.Max, eps)
}

func TestComputeStatsUSDBaseCurrentIsLastRate(t *testing.T) {
	ds := makeDataset(20)
	last := ds.Last()
	for _, c := range models.QuotedCurrencies {
		want, ok := last.Rate(c)
		require.True(t, ok)
		s := ComputeStats(ds, models.USD, c, 7)
		assert.Equal(t, want, s.Current, c.String())
	}
}

func TestComputeStatsConstantSeries(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"JPY": 150}),
		rec("2024-01-02", map[string]float64{"JPY": 150}),
		rec("2024-01-03", map[string]float64{"JPY": 150}),
	)
	s := ComputeStats(ds, models.USD, models.JPY, 30)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 150.0, s.Mean)
}

func TestComputeStatsSinglePoint(t *testing.T) {
	ds := makeDataset(5)
	s := ComputeStats(ds, models.SGD, models.CNY, 1)
	assert.Equal(t, s.Current, s.Previous)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, s.Current, s.Min)
	assert.Equal(t, s.Current, s.Max)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, models.StatsResult{}, ComputeStats(dataset(), models.USD, models.CNY, 365))
	assert.Equal(t, models.StatsResult{}, ComputeStats(nil, models.SGD, models.CNY, 365))
}

func TestComputeStatsWindowLimitsData(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"CNY": 100}),
		rec("2024-01-02", map[string]float64{"CNY": 7.1}),
		rec("2024-01-03", map[string]float64{"CNY": 7.3}),
	)
	s := ComputeStats(ds, models.USD, models.CNY, 2)
	assert.InDelta(t, 7.2, s.Mean, eps)
	assert.InDelta(t, 7.1, s.Min, eps)
}

func TestComputeStatsPopulationStdDev(t *testing.T) {
	ds := dataset(
		rec("d1", map[string]float64{"AUD": 2}),
		rec("d2", map[string]float64{"AUD": 4}),
		rec("d3", map[string]float64{"AUD": 4}),
		rec("d4", map[string]float64{"AUD": 4}),
		rec("d5", map[string]float64{"AUD": 5}),
		rec("d6", map[string]float64{"AUD": 5}),
		rec("d7", map[string]float64{"AUD": 7}),
		rec("d8", map[string]float64{"AUD": 9}),
	)
	s := ComputeStats(ds, models.USD, models.AUD, 365)
	assert.InDelta(t, 5.0, s.Mean, eps)
	assert.InDelta(t, 2.0, s.StdDev, eps)
}

func TestComputeStatsDropsNonFinite(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"SGD": 1.35, "CNY": 7.2}),
		rec("2024-01-02", map[string]float64{"SGD": 1e-320, "CNY": 7.2}),
		rec("2024-01-03", map[string]float64{"SGD": 1.36, "CNY": 7.25}),
	)
	s := ComputeStats(ds, models.SGD, models.CNY, 365)

	assert.False(t, math.IsInf(s.Max, 0))
	assert.InDelta(t, 7.25/1.36, s.Current, eps)
	assert.InDelta(t, 7.2/1.35, s.Previous, eps)
}

// Rates near the float64 limit must not overflow the mean.
func TestComputeStatsHugeRatesStayFinite(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"SGD": 1e-308}),
		rec("2024-01-02", map[string]float64{"SGD": 1e-308}),
	)
	s := ComputeStats(ds, models.SGD, models.USD, 365)

	assert.InEpsilon(t, 1e308, s.Current, 1e-12)
	assert.InEpsilon(t, 1e308, s.Mean, 1e-12)
	assert.Zero(t, s.StdDev)
	assert.InEpsilon(t, 1e308, s.Max, 1e-12)
}

func TestComputeStatsHugeSpread(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"AUD": 1.0e308}),
		rec("2024-01-02", map[string]float64{"AUD": 1.7e308}),
	)
	s := ComputeStats(ds, models.USD, models.AUD, 365)

	assert.InEpsilon(t, 1.35e308, s.Mean, 1e-12)
	assert.InEpsilon(t, 0.35e308, s.StdDev, 1e-12)
}

func TestMeanStdDevMatchesPlainFormula(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	mean, sd := PopMeanStdDev(data)
	assert.InDelta(t, 5.0, mean, eps)
	assert.InDelta(t, 2.0, sd, eps)

	mean, sd = SampleMeanStdDev(data)
	assert.InDelta(t, 5.0, mean, eps)
	assert.InDelta(t, math.Sqrt(32.0/7), sd, eps)

	mean, sd = PopMeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, sd)
}

// ── PrepareSeries ──

func TestPrepareSeries(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"CNY": 7.1}),
		rec("2024-01-02", map[string]float64{"CNY": 7.2}),
	)
	s := PrepareSeries(ds, models.USD, models.CNY, 365)

	assert.Equal(t, "USD/CNY", s.Pair)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, s.Labels)
	assert.Equal(t, []float64{7.1, 7.2}, s.Values)

	for i := range s.Values {
		assert.InDelta(t, 7.15, s.Mean[i], eps)
		assert.InDelta(t, 7.20, s.UpperBand1[i], eps)
		assert.InDelta(t, 7.10, s.LowerBand1[i], eps)
		assert.InDelta(t, 7.25, s.UpperBand2[i], eps)
		assert.InDelta(t, 7.05, s.LowerBand2[i], eps)
	}
}

func TestPrepareSeriesAlignedLengths(t *testing.T) {
	ds := makeDataset(30)
	s := PrepareSeries(ds, models.AUD, models.JPY, 14)

	n := len(s.Values)
	assert.Equal(t, 14, n)
	for _, l := range [][]float64{s.Mean, s.UpperBand1, s.LowerBand1, s.UpperBand2, s.LowerBand2} {
		assert.Len(t, l, n)
	}
	assert.Len(t, s.Labels, n)
}

// Series keeps non-finite values in place while stats drop them.
func TestPrepareSeriesKeepsNonFinite(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"SGD": 1.35, "CNY": 7.2}),
		rec("2024-01-02", map[string]float64{"SGD": 1e-320, "CNY": 7.2}),
		rec("2024-01-03", map[string]float64{"SGD": 1.36, "CNY": 7.25}),
	)
	s := PrepareSeries(ds, models.SGD, models.CNY, 365)
	require.Len(t, s.Values, 3)
	assert.True(t, math.IsInf(s.Values[1], 1))

	stats := ComputeStats(ds, models.SGD, models.CNY, 365)
	assert.InDelta(t, (7.2/1.35+7.25/1.36)/2, s.Mean[0], eps)
	assert.InDelta(t, stats.Mean, s.Mean[1], eps)
}

// Bands past the float64 range stay in place as ±Inf for the encoder to null out.
func TestPrepareSeriesBandsOverflow(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"AUD": 1.0e308}),
		rec("2024-01-02", map[string]float64{"AUD": 1.7e308}),
	)
	s := PrepareSeries(ds, models.USD, models.AUD, 365)

	require.Len(t, s.UpperBand2, 2)
	assert.InEpsilon(t, 1.35e308, s.Mean[0], 1e-12)
	assert.True(t, math.IsInf(s.UpperBand2[0], 1))
	assert.False(t, math.IsInf(s.LowerBand2[0], 0))
}

func TestPrepareSeriesEmpty(t *testing.T) {
	s := PrepareSeries(dataset(), models.USD, models.CNY, 365)
	assert.Empty(t, s.Labels)
	assert.Empty(t, s.Values)
	assert.Empty(t, s.Mean)
}

// ── Cards ──

func TestChangePercent(t *testing.T) {
	assert.Equal(t, 1.41, ChangePercent(models.StatsResult{Current: 7.2, Previous: 7.1}))
	assert.Equal(t, -1.39, ChangePercent(models.StatsResult{Current: 7.1, Previous: 7.2}))
	assert.Equal(t, 0.0, ChangePercent(models.StatsResult{}))
}

func TestDeviationAndClassify(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 0.0, Deviation(models.StatsResult{Current: 5, Mean: 5}))
	assert.InDelta(t, 2.5, Deviation(models.StatsResult{Current: 4, Mean: 9, StdDev: 2}), eps)

	assert.Equal(t, models.LevelAlert, th.Classify(2.0))
	assert.Equal(t, models.LevelWarning, th.Classify(1.5))
	assert.Equal(t, models.LevelWarning, th.Classify(1.99))
	assert.Equal(t, models.LevelNormal, th.Classify(1.49))
}

func TestCards(t *testing.T) {
	ds := makeDataset(30)
	cards := Cards(ds, models.USD, 365, DefaultThresholds())

	require.Len(t, cards, 4)
	want := []string{"USD/CNY", "USD/SGD", "USD/JPY", "USD/AUD"}
	for i, c := range cards {
		assert.Equal(t, want[i], c.Pair)
		assert.Equal(t, models.USD, c.Base)
		assert.Equal(t, c.Stats.Current, c.Current)
	}

	// A linear uptrend puts the last point ~1.67σ above the mean.
	assert.Equal(t, models.LevelWarning, cards[0].Level)
}

func TestCardsHugeRates(t *testing.T) {
	ds := dataset(
		rec("2024-01-01", map[string]float64{"SGD": 1e-308, "CNY": 7.1}),
		rec("2024-01-02", map[string]float64{"SGD": 1e-308, "CNY": 7.2}),
	)
	for _, c := range Cards(ds, models.SGD, 365, DefaultThresholds()) {
		for _, v := range []float64{c.Current, c.ChangePercent, c.Deviation, c.Stats.Mean, c.Stats.StdDev} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s has non-finite field: %+v", c.Pair, c)
		}
	}
}

func TestCardsExcludeBase(t *testing.T) {
	cards := Cards(makeDataset(3), models.SGD, 365, DefaultThresholds())
	for _, c := range cards {
		assert.NotEqual(t, models.SGD, c.Target)
	}
	assert.Len(t, cards, 4)
}
