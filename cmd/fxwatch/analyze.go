package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/seenimoa/fxwatch/internal/alerts"
	"github.com/seenimoa/fxwatch/internal/analysis/pairstats"
	"github.com/seenimoa/fxwatch/pkg/models"
)

// --- Stats Command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show window statistics for a currency pair",
	Long: `Show current, previous, mean, standard deviation, min and max of a
currency pair over the last N records.

Examples:
  fxwatch stats
  fxwatch stats --base USD --target JPY --window 90`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, window, err := pairFlags(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}

		st := pairstats.ComputeStats(ds, pair.Base, pair.Target, window)
		if asJSON(cmd) {
			return printJSON(os.Stdout, st)
		}
		renderStats(os.Stdout, pair, window, st)
		return nil
	},
}

// --- Series Command ---

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print the chart series with mean and ±1σ/±2σ bands",
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, window, err := pairFlags(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}

		s := pairstats.PrepareSeries(ds, pair.Base, pair.Target, window)
		if asJSON(cmd) {
			return printJSON(os.Stdout, s)
		}
		renderSeries(os.Stdout, s)
		return nil
	},
}

// --- Cards Command ---

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Show summary cards for every pair quoted against a base",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := currencyFlag(cmd, "base", cfg.Dashboard.Base)
		if err != nil {
			return err
		}
		window, err := windowFlag(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}

		th := pairstats.Thresholds{Alert: cfg.Alerts.AlertSigma, Warning: cfg.Alerts.WarningSigma}
		cards := pairstats.Cards(ds, base, window, th)
		if asJSON(cmd) {
			return printJSON(os.Stdout, cards)
		}
		renderCards(os.Stdout, cards)
		return nil
	},
}

// --- Alerts Command ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Check USD rates for deviations beyond the alert thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		found := checkAlerts(cmd, ds)
		if asJSON(cmd) {
			return printJSON(os.Stdout, found)
		}
		renderAlerts(os.Stdout, found, time.Now())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, seriesCmd} {
		c.Flags().String("base", "", "base currency (default from config)")
		c.Flags().String("target", "", "target currency (default from config)")
	}
	cardsCmd.Flags().String("base", "", "base currency (default from config)")
	for _, c := range []*cobra.Command{statsCmd, seriesCmd, cardsCmd} {
		c.Flags().Int("window", 0, "number of most recent records (default from config)")
	}
	alertsCmd.Flags().Int("days", 0, "lookback in records (default from config)")
	for _, c := range []*cobra.Command{statsCmd, seriesCmd, cardsCmd, alertsCmd} {
		c.Flags().Bool("json", false, "print JSON instead of a table")
	}
}

// checkAlerts runs the deviation check with the configured thresholds and
// the --days override, if any.
func checkAlerts(cmd *cobra.Command, ds *models.Dataset) []models.Alert {
	days := cfg.Alerts.Days
	if d, _ := cmd.Flags().GetInt("days"); d > 0 {
		days = d
	}
	checker := alerts.NewChecker(alerts.Config{
		Thresholds: pairstats.Thresholds{Alert: cfg.Alerts.AlertSigma, Warning: cfg.Alerts.WarningSigma},
		Days:       days,
	})
	return checker.Check(ds)
}

// --- flag helpers ---

func pairFlags(cmd *cobra.Command) (models.CurrencyPair, int, error) {
	var pair models.CurrencyPair
	base, err := currencyFlag(cmd, "base", cfg.Dashboard.Base)
	if err != nil {
		return pair, 0, err
	}
	target, err := currencyFlag(cmd, "target", cfg.Dashboard.Target)
	if err != nil {
		return pair, 0, err
	}
	pair = models.CurrencyPair{Base: base, Target: target}
	if err := pair.Validate(); err != nil {
		return pair, 0, err
	}
	window, err := windowFlag(cmd)
	return pair, window, err
}

func currencyFlag(cmd *cobra.Command, name, def string) (models.Currency, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		v = def
	}
	c, err := models.ParseCurrency(v)
	if err != nil {
		return "", fmt.Errorf("--%s: %w", name, err)
	}
	return c, nil
}

func windowFlag(cmd *cobra.Command) (int, error) {
	w, _ := cmd.Flags().GetInt("window")
	if !cmd.Flags().Changed("window") {
		return cfg.Dashboard.Window, nil
	}
	if w <= 0 {
		return 0, fmt.Errorf("--window must be positive, got %d", w)
	}
	return w, nil
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// --- rendering ---

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func levelColor(level models.DeviationLevel) *color.Color {
	switch level {
	case models.LevelAlert:
		return color.New(color.FgRed, color.Bold)
	case models.LevelWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func renderStats(w io.Writer, pair models.CurrencyPair, window int, st models.StatsResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s → %s\t(last %d records)\n", pair.Name(), pair.Base.Label(), pair.Target.Label(), window)
	fmt.Fprintf(tw, "  Current\t%s\n", fixed(st.Current, 4))
	fmt.Fprintf(tw, "  Previous\t%s\n", fixed(st.Previous, 4))
	fmt.Fprintf(tw, "  Mean\t%s\n", fixed(st.Mean, 4))
	fmt.Fprintf(tw, "  Std Dev\t%s\n", fixed(st.StdDev, 4))
	fmt.Fprintf(tw, "  Min\t%s\n", fixed(st.Min, 4))
	fmt.Fprintf(tw, "  Max\t%s\n", fixed(st.Max, 4))
	fmt.Fprintf(tw, "  Change\t%s%%\n", fixed(pairstats.ChangePercent(st), 2))
	tw.Flush()
}

func renderSeries(w io.Writer, s models.ChartSeries) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Date\t%s\t-2σ\t-1σ\tMean\t+1σ\t+2σ\t\n", s.Pair)
	for i, label := range s.Labels {
		value := "-"
		if v := s.Values[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			value = fixed(v, 4)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", label, value,
			fixed(s.LowerBand2[i], 4), fixed(s.LowerBand1[i], 4), fixed(s.Mean[i], 4),
			fixed(s.UpperBand1[i], 4), fixed(s.UpperBand2[i], 4))
	}
	tw.Flush()
}

func renderCards(w io.Writer, cards []models.PairCard) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Pair\tCurrent\tChange\tMean\tDeviation\tLevel")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\t%sσ\t%s\n",
			c.Pair, fixed(c.Current, 4), fixed(c.ChangePercent, 2), fixed(c.Stats.Mean, 4),
			fixed(c.Deviation, 2), levelColor(c.Level).Sprint(string(c.Level)))
	}
	tw.Flush()
}

func renderAlerts(w io.Writer, found []models.Alert, now time.Time) {
	if len(found) == 0 {
		fmt.Fprintln(w, levelColor(models.LevelNormal).Sprint("No deviations beyond the warning threshold."))
		return
	}
	for _, a := range found {
		fmt.Fprintf(w, "%s USD/%s current %s mean %s σ %s deviation %sσ\n",
			levelColor(a.Level).Sprintf("%-7s", string(a.Level)), a.Currency,
			fixed(a.Current, 4), fixed(a.Mean, 4), fixed(a.StdDev, 4), fixed(a.Deviation, 2))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, alerts.FormatMessage(found, now))
}
