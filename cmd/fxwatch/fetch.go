package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/fxwatch/internal/datasource"
	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// --- Fetch Command (historical backfill) ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Backfill daily history and write a fresh dataset file",
	Long: `Fetch one record per calendar day for the last N days from the daily
currency API and write them as a new dataset. Days missing any tracked
currency are skipped.

Examples:
  fxwatch fetch
  fxwatch fetch --days 365 --out data/historical.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Fetch.HistoryDays
		}
		out := outPath(cmd)

		src := datasource.NewCurrencyAPI(cfg.Fetch.CurrencyAPIURL, models.QuotedCurrencies)
		src.Client = fetchClient()

		now := time.Now()
		from, to := utils.LookbackRange(now, days)
		logger.WithFields(logrus.Fields{
			"from": utils.FormatDate(from),
			"to":   utils.FormatDate(to),
			"days": days + 1,
		}).Info("backfilling history")

		res, err := datasource.Backfill(cmd.Context(), src, from, to, datasource.BackfillOptions{
			Concurrency:       cfg.Fetch.Concurrency,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			Progress: func(done, total int) {
				if done%50 == 0 || done == total {
					logger.Infof("progress %d/%d", done, total)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		logFailures(res)
		if len(res.Records) == 0 {
			return errors.New("backfill returned no complete days; dataset not written")
		}

		ds := datasource.BuildDataset(res.Records, models.QuotedCurrencies, from, to, nil, now)
		if err := datasource.Save(out, ds); err != nil {
			return err
		}
		fmt.Printf("Wrote %d records (%d failed) to %s\n", res.Succeeded, res.Failed, out)
		return nil
	},
}

// --- Update Command (append today's rates) ---

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch today's rates and upsert them into the dataset file",
	Long: `Fetch the latest rates and write them as today's record: the newest
record is replaced when it has the same date, otherwise a record is
appended. A missing dataset file starts a new one. When the preferred
source fails the other one is tried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outPath(cmd)

		preferred, _ := cmd.Flags().GetString("source")
		if preferred == "" {
			preferred = cfg.Fetch.LatestSource
		}
		rec, used, err := latestSources().LatestWithFallback(cmd.Context(), preferred)
		if err != nil {
			return err
		}
		if used != preferred {
			logger.WithField("source", used).Warnf("%s failed, used fallback", preferred)
		}

		var existing *models.Dataset
		loaded, err := datasource.NewFileLoader(out).Load(cmd.Context())
		switch {
		case err == nil:
			existing = loaded
		case errors.Is(err, os.ErrNotExist):
			logger.WithField("path", out).Warn("no dataset yet, starting a new one")
		default:
			return err
		}

		ds, replaced := datasource.Upsert(existing, *rec, models.QuotedCurrencies, time.Now())
		if err := datasource.Save(out, ds); err != nil {
			return err
		}

		action := "appended"
		if replaced {
			action = "replaced"
		}
		fmt.Printf("%s %s record from %s (%d records total)\n", action, rec.Date, used, ds.Len())

		if check, _ := cmd.Flags().GetBool("check"); check {
			renderAlerts(os.Stdout, checkAlerts(cmd, ds), time.Now())
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("days", 0, "days of history to fetch (default from config)")
	for _, c := range []*cobra.Command{fetchCmd, updateCmd} {
		c.Flags().String("out", "", "dataset file to write (default: dataset.path)")
	}
	updateCmd.Flags().String("source", "", "preferred latest-rate source: exchangerate-api or currency-api (default from config)")
	updateCmd.Flags().Bool("check", false, "run the deviation check after updating")
	updateCmd.Flags().Int("days", 0, "alert lookback in records when --check is set (default from config)")
}

func outPath(cmd *cobra.Command) string {
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return out
	}
	return cfg.Dataset.Path
}

func fetchClient() *http.Client {
	return &http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSec) * time.Second}
}

// latestSources registers both latest-rate APIs, ExchangeRate-API first.
func latestSources() *datasource.Registry {
	reg := datasource.NewRegistry()

	era := datasource.NewExchangeRateAPI(cfg.Fetch.ExchangeRateAPIURL, cfg.Fetch.ExchangeRateAPIKey, models.QuotedCurrencies)
	era.Client = fetchClient()
	_ = reg.Register(era)

	ca := datasource.NewCurrencyAPI(cfg.Fetch.CurrencyAPIURL, models.QuotedCurrencies)
	ca.Client = fetchClient()
	_ = reg.Register(ca)

	return reg
}

func logFailures(res *datasource.BackfillResult) {
	if res.Failed == 0 {
		return
	}
	dates := make([]string, 0, len(res.Failures))
	for d := range res.Failures {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		logger.WithField("date", d).WithError(res.Failures[d]).Debug("day skipped")
	}
	logger.WithField("failed", res.Failed).Warn("some days could not be fetched")
}
