package money

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyNotLocked is returned when a conversion references a currency missing from the locked set.
	ErrCurrencyNotLocked = errors.New("money: currency not in locked rate set")
	// ErrInvalidRate signals a non-positive or malformed exchange rate.
	ErrInvalidRate = errors.New("money: invalid exchange rate")
	// ErrQuoteCurrencyRequired is returned when locking rates without a quote currency.
	ErrQuoteCurrencyRequired = errors.New("money: quote currency required")
)

// RateSource tags where a locked rate set came from.
type RateSource string

const (
	// RateSourceSystemDefault marks rates rebased from the configured default table.
	RateSourceSystemDefault RateSource = "system_default"
	// RateSourceManual marks rates entered by the caller for this calculation.
	RateSourceManual RateSource = "manual"
)

// RateTable maps a currency code to its value in a shared base currency.
type RateTable map[string]decimal.Decimal

// ParseRateTable parses "USD:1,EUR:1.08,MVR:0.0648" into a RateTable.
func ParseRateTable(csv string) (RateTable, error) {
	table := RateTable{}
	if strings.TrimSpace(csv) == "" {
		return table, nil
	}
	for _, part := range strings.Split(csv, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		code, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRate, trimmed)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRate, trimmed, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: %q must be positive", ErrInvalidRate, trimmed)
		}
		table[NormalizeCurrency(code)] = rate
	}
	return table, nil
}

// LockedRates is the immutable exchange-rate snapshot used for one calculation. Every rate expresses how many
// quote-currency units one unit of the keyed currency is worth; the quote currency is always 1.
type LockedRates struct {
	currency string
	rates    map[string]decimal.Decimal
	lockedAt time.Time
	source   RateSource
}

// LockRates fixes the rate set for a calculation. Manual rates are used when any are supplied, otherwise the
// default table is rebased onto the quote currency. Currencies the defaults cannot rebase are left out and
// will fail conversion later.
func LockRates(quoteCurrency string, manual map[string]decimal.Decimal, defaults RateTable, now time.Time) (LockedRates, error) {
	quote := NormalizeCurrency(quoteCurrency)
	if quote == "" {
		return LockedRates{}, ErrQuoteCurrencyRequired
	}
	locked := LockedRates{
		currency: quote,
		rates:    map[string]decimal.Decimal{quote: decimal.NewFromInt(1)},
		lockedAt: now.UTC(),
	}

	if len(manual) > 0 {
		locked.source = RateSourceManual
		for code, rate := range manual {
			code = NormalizeCurrency(code)
			if code == "" || code == quote {
				continue
			}
			if !rate.IsPositive() {
				return LockedRates{}, fmt.Errorf("%w: %s rate must be positive", ErrInvalidRate, code)
			}
			locked.rates[code] = rate
		}
		return locked, nil
	}

	locked.source = RateSourceSystemDefault
	quoteInBase, ok := defaults[quote]
	if !ok || !quoteInBase.IsPositive() {
		return locked, nil
	}
	for code, inBase := range defaults {
		code = NormalizeCurrency(code)
		if code == quote || !inBase.IsPositive() {
			continue
		}
		locked.rates[code] = inBase.Div(quoteInBase)
	}
	return locked, nil
}

// Currency returns the quote currency.
func (l LockedRates) Currency() string { return l.currency }

// LockedAt returns the lock timestamp.
func (l LockedRates) LockedAt() time.Time { return l.lockedAt }

// Source returns where the rates came from.
func (l LockedRates) Source() RateSource { return l.source }

// Rate returns the locked rate for currency.
func (l LockedRates) Rate(currency string) (decimal.Decimal, bool) {
	rate, ok := l.rates[NormalizeCurrency(currency)]
	return rate, ok
}

// Rates returns a copy of the locked map.
func (l LockedRates) Rates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.rates))
	for code, rate := range l.rates {
		out[code] = rate
	}
	return out
}

// Convert expresses amount (denominated in currency) in the quote currency at full precision.
func (l LockedRates) Convert(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	code := NormalizeCurrency(currency)
	if code == "" {
		code = l.currency
	}
	rate, ok := l.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s", ErrCurrencyNotLocked, code, l.currency)
	}
	return amount.Mul(rate), nil
}

// ConvertMoney is Convert for a Money value.
func (l LockedRates) ConvertMoney(m Money) (decimal.Decimal, error) {
	return l.Convert(m.Amount, m.Currency)
}

// LockedRatesView is the serialisable form of a locked rate set.
type LockedRatesView struct {
	Currency string            `json:"currency"`
	Rates    map[string]string `json:"rates"`
	LockedAt time.Time         `json:"lockedAt"`
	Source   RateSource        `json:"source"`
}

// View renders the locked set for results and audit records.
func (l LockedRates) View() LockedRatesView {
	rates := make(map[string]string, len(l.rates))
	for code, rate := range l.rates {
		rates[code] = rate.String()
	}
	return LockedRatesView{Currency: l.currency, Rates: rates, LockedAt: l.lockedAt, Source: l.source}
}
