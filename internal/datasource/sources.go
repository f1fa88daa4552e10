package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// DefaultCurrencyAPIURL is the jsDelivr-hosted daily currency file. The
// single %s is replaced by a YYYY-MM-DD tag or "latest".
const DefaultCurrencyAPIURL = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@%s/v1/currencies/usd.json"

// DefaultExchangeRateAPIURL is the keyless ExchangeRate-API endpoint.
const DefaultExchangeRateAPIURL = "https://open.exchangerate-api.com/v6/latest"

// exchangeRateAPIKeyedURL is used instead when an API key is configured.
const exchangeRateAPIKeyedURL = "https://v6.exchangerate-api.com/v6/%s/latest/USD"

// ============================================================
// Currency API (daily files, any past date)
// ============================================================

// CurrencyAPI reads USD-based daily rate files published per date tag.
type CurrencyAPI struct {
	URLTemplate string
	Currencies  []models.Currency
	Client      *http.Client
	Now         func() time.Time
}

// NewCurrencyAPI creates a source tracking currencies. An empty template
// selects DefaultCurrencyAPIURL.
func NewCurrencyAPI(urlTemplate string, currencies []models.Currency) *CurrencyAPI {
	if urlTemplate == "" {
		urlTemplate = DefaultCurrencyAPIURL
	}
	if len(currencies) == 0 {
		currencies = models.QuotedCurrencies
	}
	return &CurrencyAPI{
		URLTemplate: urlTemplate,
		Currencies:  currencies,
		Client:      HTTPClient,
		Now:         time.Now,
	}
}

// Name returns the source name.
func (c *CurrencyAPI) Name() string { return "currency-api" }

type currencyAPIResponse struct {
	Date string             `json:"date"`
	USD  map[string]float64 `json:"usd"`
}

func (c *CurrencyAPI) fetch(ctx context.Context, tag string) (*currencyAPIResponse, error) {
	body, err := doGet(ctx, c.Client, fmt.Sprintf(c.URLTemplate, tag))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp currencyAPIResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode %s rates: %w", tag, err)
	}
	if resp.USD == nil {
		return nil, fmt.Errorf("%s: response has no usd section", tag)
	}
	return &resp, nil
}

// FetchDate returns the rates published for date. A file missing any
// tracked currency yields ErrIncompleteRates.
func (c *CurrencyAPI) FetchDate(ctx context.Context, date string) (*models.HistoricalRecord, error) {
	resp, err := c.fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	rates := pickRates(resp.USD, c.Currencies)
	if len(rates) != len(c.Currencies) {
		return nil, fmt.Errorf("%s: %w (%d of %d currencies)", date, ErrIncompleteRates, len(rates), len(c.Currencies))
	}
	return &models.HistoricalRecord{Date: date, Rates: rates}, nil
}

// Latest returns the most recent file with whichever tracked currencies it
// carries.
func (c *CurrencyAPI) Latest(ctx context.Context) (*models.HistoricalRecord, error) {
	resp, err := c.fetch(ctx, "latest")
	if err != nil {
		return nil, err
	}
	date := resp.Date
	if date == "" {
		date = utils.FormatDate(c.Now())
	}
	return &models.HistoricalRecord{
		Date:  date,
		Base:  string(models.USD),
		Rates: pickRates(resp.USD, c.Currencies),
	}, nil
}

// ============================================================
// ExchangeRate-API (latest only)
// ============================================================

// ExchangeRateAPI reads the latest USD rates from ExchangeRate-API.
type ExchangeRateAPI struct {
	URL        string
	Currencies []models.Currency
	Client     *http.Client
	Now        func() time.Time
}

// NewExchangeRateAPI creates the source. With a non-empty apiKey the keyed
// endpoint is used, otherwise url (or DefaultExchangeRateAPIURL).
func NewExchangeRateAPI(url, apiKey string, currencies []models.Currency) *ExchangeRateAPI {
	switch {
	case apiKey != "":
		url = fmt.Sprintf(exchangeRateAPIKeyedURL, apiKey)
	case url == "":
		url = DefaultExchangeRateAPIURL
	}
	if len(currencies) == 0 {
		currencies = models.QuotedCurrencies
	}
	return &ExchangeRateAPI{
		URL:        url,
		Currencies: currencies,
		Client:     HTTPClient,
		Now:        time.Now,
	}
}

// Name returns the source name.
func (e *ExchangeRateAPI) Name() string { return "exchangerate-api" }

type exchangeRateAPIResponse struct {
	Result          string             `json:"result"`
	Base            string             `json:"base"`
	BaseCode        string             `json:"base_code"`
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Latest returns today's record. The open and keyed endpoints name their
// fields differently; both are accepted.
func (e *ExchangeRateAPI) Latest(ctx context.Context) (*models.HistoricalRecord, error) {
	body, err := doGet(ctx, e.Client, e.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp exchangeRateAPIResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode latest rates: %w", err)
	}
	if resp.Result != "" && resp.Result != "success" {
		return nil, fmt.Errorf("exchangerate-api returned result %q", resp.Result)
	}

	rates := resp.Rates
	if rates == nil {
		rates = resp.ConversionRates
	}
	base := resp.Base
	if base == "" {
		base = resp.BaseCode
	}
	if base == "" {
		base = string(models.USD)
	}

	return &models.HistoricalRecord{
		Date:  utils.FormatDate(e.Now()),
		Base:  base,
		Rates: pickRates(rates, e.Currencies),
	}, nil
}

// pickRates keeps the tracked currencies from a code→rate map, matching
// codes case-insensitively and returning upper-case keys.
func pickRates(all map[string]float64, currencies []models.Currency) map[string]float64 {
	out := make(map[string]float64, len(currencies))
	for code, v := range all {
		up := strings.ToUpper(code)
		for _, c := range currencies {
			if string(c) == up {
				out[up] = v
				break
			}
		}
	}
	return out
}
