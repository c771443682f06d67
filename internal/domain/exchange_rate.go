package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout calendar date format used by providers and cache keys.
const DateLayout = "2006-01-02"

// ExchangeRate rates of several currencies against a base on one calendar day.
// It is immutable: the rates map is copied on the way in and on the way out.
type ExchangeRate struct {
	base  string
	date  time.Time
	rates map[string]decimal.Decimal
}

// NewExchangeRate builds an ExchangeRate. The date is truncated to a UTC calendar day.
func NewExchangeRate(base string, date time.Time, rates map[string]decimal.Decimal) ExchangeRate {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, value := range rates {
		copied[code] = value
	}

	return ExchangeRate{
		base:  base,
		date:  DateOf(date),
		rates: copied,
	}
}

// Base returns the base currency code.
func (r ExchangeRate) Base() string {
	return r.base
}

// Date returns the calendar day of the rates (midnight UTC).
func (r ExchangeRate) Date() time.Time {
	return r.date
}

// Rates returns a copy of the code to rate mapping. Never nil.
func (r ExchangeRate) Rates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.rates))
	for code, value := range r.rates {
		out[code] = value
	}
	return out
}

// Rate returns the rate for a single currency code.
func (r ExchangeRate) Rate(code string) (decimal.Decimal, bool) {
	v, ok := r.rates[code]
	return v, ok
}

// Len returns the number of quoted currencies.
func (r ExchangeRate) Len() int {
	return len(r.rates)
}

type exchangeRateJSON struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// MarshalJSON encodes the rate with a yyyy-MM-dd date.
func (r ExchangeRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(exchangeRateJSON{
		Base:  r.base,
		Date:  r.date.Format(DateLayout),
		Rates: r.Rates(),
	})
}

// DateOf truncates t to its calendar day in UTC, keeping the wall-clock date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a yyyy-MM-dd date independent of locale.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDate formats a calendar date as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}
