// Package alerts flags USD-quoted currencies whose latest rate has drifted
// from the trailing mean by more than a configured number of standard
// deviations, and formats the result as a chat-style message.
package alerts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/fxwatch/internal/analysis/pairstats"
	"github.com/seenimoa/fxwatch/pkg/models"
)

// DefaultDays is the lookback used when Config.Days is not set.
const DefaultDays = 365

// Config controls a Checker.
type Config struct {
	Thresholds pairstats.Thresholds
	Days       int
	Currencies []models.Currency
}

// DefaultConfig checks every quoted currency over a year at 2σ / 1.5σ.
func DefaultConfig() Config {
	return Config{
		Thresholds: pairstats.DefaultThresholds(),
		Days:       DefaultDays,
		Currencies: models.QuotedCurrencies,
	}
}

// Checker evaluates a dataset against the configured thresholds.
type Checker struct {
	cfg Config
}

// NewChecker creates a checker, filling unset fields from DefaultConfig.
func NewChecker(cfg Config) *Checker {
	def := DefaultConfig()
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	if cfg.Thresholds.Alert <= 0 {
		cfg.Thresholds.Alert = def.Thresholds.Alert
	}
	if cfg.Thresholds.Warning <= 0 {
		cfg.Thresholds.Warning = def.Thresholds.Warning
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = def.Currencies
	}
	return &Checker{cfg: cfg}
}

// Measure computes the deviation of currency's latest USD rate over the
// last days records. Only records that actually carry the currency are
// used. It returns false when fewer than two points exist or the sample
// standard deviation is zero.
func Measure(ds *models.Dataset, currency models.Currency, days int) (models.Alert, bool) {
	var rates []float64
	for _, rec := range pairstats.Window(ds, days) {
		if v, ok := rec.Rate(currency); ok {
			rates = append(rates, v)
		}
	}
	if len(rates) < 2 {
		return models.Alert{}, false
	}

	current := rates[len(rates)-1]
	m, sd := pairstats.SampleMeanStdDev(rates)
	if sd == 0 || math.IsInf(sd, 0) || math.IsNaN(sd) {
		return models.Alert{}, false
	}

	dev := (current - m) / sd
	return models.Alert{
		Currency:     currency,
		Current:      current,
		Mean:         m,
		StdDev:       sd,
		Deviation:    dev,
		AbsDeviation: math.Abs(dev),
	}, true
}

// Check returns an alert for every currency at or beyond the warning
// threshold, in configured currency order.
func (c *Checker) Check(ds *models.Dataset) []models.Alert {
	var out []models.Alert
	for _, cur := range c.cfg.Currencies {
		a, ok := Measure(ds, cur, c.cfg.Days)
		if !ok {
			continue
		}
		a.Level = c.cfg.Thresholds.Classify(a.AbsDeviation)
		if a.Level == models.LevelNormal {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FormatMessage renders alerts as a Markdown-ish chat message stamped with
// now. It returns "" when there is nothing to report.
func FormatMessage(alerts []models.Alert, now time.Time) string {
	if len(alerts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("⚠️ *汇率偏离预警*\n\n")
	for _, a := range alerts {
		marker := "🟡"
		if a.Level == models.LevelAlert {
			marker = "🔴"
		}
		fmt.Fprintf(&b, "%s *USD/%s*\n", marker, a.Currency)
		fmt.Fprintf(&b, "当前: %s\n", fixed(a.Current, 4))
		fmt.Fprintf(&b, "均值: %s\n", fixed(a.Mean, 4))
		fmt.Fprintf(&b, "偏离: %sσ\n\n", fixed(a.Deviation, 2))
	}
	fmt.Fprintf(&b, "_检查时间: %s_", now.Format("2006-01-02 15:04:05"))
	return b.String()
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
