package rates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/fxgate/internal/domain"
)

// latestResponse GET latest?base= payload.
type latestResponse struct {
	Base  *string                     `json:"base"`
	Date  *string                     `json:"date"`
	Rates map[string]*decimal.Decimal `json:"rates"`
}

// convertResponse GET latest?from=&to=&amount= payload. Only rates is required;
// amount, when present, is the factor the quoted rates were scaled by.
type convertResponse struct {
	Amount *decimal.Decimal             `json:"amount"`
	Rates  map[string]*decimal.Decimal `json:"rates"`
}

// historicalResponse GET start..end?base= payload.
type historicalResponse struct {
	Base      *string                                `json:"base"`
	StartDate *string                                `json:"start_date"`
	EndDate   *string                                `json:"end_date"`
	Rates     map[string]map[string]*decimal.Decimal `json:"rates"`
}

func decodeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrDecode, fmt.Sprintf(format, args...))
}

func unmarshal(payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return decodeError("empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	return nil
}

// DecodeLatest parses the latest-rate shape {base, date, rates}.
func DecodeLatest(payload []byte) (domain.ExchangeRate, error) {
	var resp latestResponse
	if err := unmarshal(payload, &resp); err != nil {
		return domain.ExchangeRate{}, err
	}

	if resp.Base == nil || *resp.Base == "" {
		return domain.ExchangeRate{}, decodeError("missing base")
	}
	if resp.Date == nil {
		return domain.ExchangeRate{}, decodeError("missing date")
	}
	date, err := domain.ParseDate(*resp.Date)
	if err != nil {
		return domain.ExchangeRate{}, decodeError("invalid date %q", *resp.Date)
	}
	if resp.Rates == nil {
		return domain.ExchangeRate{}, decodeError("missing rates")
	}

	rates, err := decodeRates(resp.Rates)
	if err != nil {
		return domain.ExchangeRate{}, err
	}

	return domain.NewExchangeRate(*resp.Base, date, rates), nil
}

// Quote conversion as the provider priced it: Value is what Amount units of the
// source currency are worth in the target currency.
type Quote struct {
	Value  decimal.Decimal
	Amount decimal.Decimal
}

// For scales the quote to amount. A repeat of the quoted amount returns Value as is.
func (q Quote) For(amount decimal.Decimal) decimal.Decimal {
	switch {
	case amount.Equal(q.Amount):
		return q.Value
	case q.Amount.Equal(decimal.NewFromInt(1)):
		return q.Value.Mul(amount)
	default:
		return q.Value.Mul(amount).Div(q.Amount)
	}
}

// DecodeConvertedRate extracts the quote for target from a conversion payload.
// A payload without an amount is a quote for one unit.
func DecodeConvertedRate(payload []byte, target string) (Quote, error) {
	var resp convertResponse
	if err := unmarshal(payload, &resp); err != nil {
		return Quote{}, err
	}
	if len(resp.Rates) == 0 {
		return Quote{}, decodeError("missing rates")
	}

	rates, err := decodeRates(resp.Rates)
	if err != nil {
		return Quote{}, err
	}

	value, ok := rates[target]
	if !ok {
		if len(rates) != 1 {
			return Quote{}, decodeError("rate for %s not found among %d rates", target, len(rates))
		}
		for _, v := range rates {
			value = v
		}
	}

	q := Quote{Value: value, Amount: decimal.NewFromInt(1)}
	if resp.Amount != nil {
		if !resp.Amount.IsPositive() {
			return Quote{}, decodeError("invalid amount %s", resp.Amount.String())
		}
		q.Amount = *resp.Amount
	}

	return q, nil
}

// DecodeHistorical parses the historical-range shape into one ExchangeRate per
// date, sorted ascending. An empty rates object is a decode error.
func DecodeHistorical(payload []byte) ([]domain.ExchangeRate, error) {
	var resp historicalResponse
	if err := unmarshal(payload, &resp); err != nil {
		return nil, err
	}

	if resp.Base == nil || *resp.Base == "" {
		return nil, decodeError("missing base")
	}
	for field, value := range map[string]*string{"start_date": resp.StartDate, "end_date": resp.EndDate} {
		if value == nil {
			return nil, decodeError("missing %s", field)
		}
		if _, err := domain.ParseDate(*value); err != nil {
			return nil, decodeError("invalid %s %q", field, *value)
		}
	}
	if len(resp.Rates) == 0 {
		return nil, decodeError("no rates in historical range")
	}

	out := make([]domain.ExchangeRate, 0, len(resp.Rates))
	for dateStr, raw := range resp.Rates {
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			return nil, decodeError("invalid rate date %q", dateStr)
		}
		if raw == nil {
			return nil, decodeError("missing rates for %s", dateStr)
		}
		rates, err := decodeRates(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.NewExchangeRate(*resp.Base, date, rates))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date().Before(out[j].Date())
	})

	return out, nil
}

func decodeRates(raw map[string]*decimal.Decimal) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(raw))
	for code, value := range raw {
		if code == "" {
			return nil, decodeError("empty currency code")
		}
		if value == nil {
			return nil, decodeError("null rate for %s", code)
		}
		if value.IsNegative() {
			return nil, decodeError("negative rate %s for %s", value.String(), code)
		}
		rates[code] = *value
	}
	return rates, nil
}
