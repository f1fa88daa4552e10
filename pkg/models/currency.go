package models

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code from the tracked set.
type Currency string

const (
	USD Currency = "USD"
	CNY Currency = "CNY"
	SGD Currency = "SGD"
	JPY Currency = "JPY"
	AUD Currency = "AUD"
)

// Currencies is the fixed, ordered set of tracked currencies.
var Currencies = []Currency{USD, CNY, SGD, JPY, AUD}

// QuotedCurrencies are the currencies carried in dataset records (USD is implicit).
var QuotedCurrencies = []Currency{CNY, SGD, JPY, AUD}

var currencyLabels = map[Currency]string{
	USD: "USD (美元)",
	CNY: "CNY (人民币)",
	SGD: "SGD (新加坡元)",
	JPY: "JPY (日元)",
	AUD: "AUD (澳元)",
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}

// Valid reports whether c is in the tracked set.
func (c Currency) Valid() bool {
	_, ok := currencyLabels[c]
	return ok
}

// Label returns the display label, falling back to the bare code.
func (c Currency) Label() string {
	if l, ok := currencyLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Currency) String() string { return string(c) }

// CurrencyPair is a base/target selection, e.g. SGD/CNY.
type CurrencyPair struct {
	Base   Currency `json:"base"`
	Target Currency `json:"target"`
}

// Name returns "BASE/TARGET".
func (p CurrencyPair) Name() string {
	return string(p.Base) + "/" + string(p.Target)
}

// Validate checks both codes and that they differ.
func (p CurrencyPair) Validate() error {
	if !p.Base.Valid() {
		return fmt.Errorf("unsupported base currency %q", p.Base)
	}
	if !p.Target.Valid() {
		return fmt.Errorf("unsupported target currency %q", p.Target)
	}
	if p.Base == p.Target {
		return fmt.Errorf("base and target currency must differ (%s)", p.Base)
	}
	return nil
}

// TargetsFor returns every tracked currency except base, in set order.
func TargetsFor(base Currency) []Currency {
	out := make([]Currency, 0, len(Currencies)-1)
	for _, c := range Currencies {
		if c != base {
			out = append(out, c)
		}
	}
	return out
}

// CurrencyInfo is the listing entry served to clients.
type CurrencyInfo struct {
	Code  Currency `json:"code"`
	Label string   `json:"label"`
}

// CurrencyList returns the tracked set with labels.
func CurrencyList() []CurrencyInfo {
	out := make([]CurrencyInfo, len(Currencies))
	for i, c := range Currencies {
		out[i] = CurrencyInfo{Code: c, Label: c.Label()}
	}
	return out
}
