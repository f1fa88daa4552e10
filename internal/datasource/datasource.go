// Package datasource loads the historical rate dataset, fetches daily rates
// from public currency APIs and writes updated dataset files.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// Loader produces a complete dataset snapshot.
type Loader interface {
	// Source describes where the dataset comes from (path or URL).
	Source() string

	// Load reads and decodes the dataset.
	Load(ctx context.Context) (*models.Dataset, error)
}

// RateSource fetches the latest USD-quoted rates.
type RateSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// Latest returns today's record for the tracked currencies.
	Latest(ctx context.Context) (*models.HistoricalRecord, error)
}

// DailySource can also fetch the rates published for a past date.
type DailySource interface {
	RateSource

	// FetchDate returns the record for date (YYYY-MM-DD).
	FetchDate(ctx context.Context, date string) (*models.HistoricalRecord, error)
}

// --- Sentinel errors ---

// ErrEmptyDataset is returned when a dataset has no historical section.
var ErrEmptyDataset = errors.New("dataset has no historical records")

// ErrNotLoaded is returned when no dataset snapshot is available yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// ErrIncompleteRates is returned when a daily file lacks a tracked currency.
var ErrIncompleteRates = errors.New("incomplete rates")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "fxwatch/1.0 (+https://github.com/seenimoa/fxwatch)"

// HTTPClient is the default client for sources that are not given one.
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}

// doGet performs a GET request and returns the body for a 2xx/3xx response.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	if client == nil {
		client = HTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, nil
}
