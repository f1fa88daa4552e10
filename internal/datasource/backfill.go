package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// BackfillOptions tunes a Backfill run.
type BackfillOptions struct {
	// Concurrency caps in-flight requests (default 4).
	Concurrency int
	// RequestsPerSecond paces requests; 0 disables pacing.
	RequestsPerSecond float64
	// Progress, when set, is called after every day with the number of
	// days done and the total.
	Progress func(done, total int)
}

// BackfillResult is the outcome of a Backfill run.
type BackfillResult struct {
	Records   []models.HistoricalRecord
	Succeeded int
	Failed    int
	// Failures maps each failed date to its error.
	Failures map[string]error
}

// Backfill fetches every calendar day from..to (inclusive) from src.
// Failed days are counted and skipped; records come back oldest first.
// Only context cancellation aborts the run.
func Backfill(ctx context.Context, src DailySource, from, to time.Time, opts BackfillOptions) (*BackfillResult, error) {
	dates := utils.DateRange(from, to)
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	res := &BackfillResult{Failures: make(map[string]error)}
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, date := range dates {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}

			rec, err := src.FetchDate(gctx, date)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Failures[date] = err
			} else {
				res.Succeeded++
				res.Records = append(res.Records, *rec)
			}
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(dates))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	sort.Slice(res.Records, func(i, j int) bool {
		return res.Records[i].Date < res.Records[j].Date
	})
	return res, nil
}
