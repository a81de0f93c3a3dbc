package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every final amount is rounded to.
const Scale int32 = 2

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.New(1, -Scale)
)

// Money is an amount expressed in a specific currency. Reference data prices are stored as Money and
// converted into the quote currency exactly once, through a LockedRates set.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New constructs a Money value with a normalised currency code.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// MustParse builds Money from a decimal string and panics on malformed input. Useful for fixtures and tests.
func MustParse(amount, currency string) Money {
	return New(decimal.RequireFromString(amount), currency)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// NormalizeCurrency upper-cases and trims an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Round applies the global rounding rule: two decimal places, half away from zero.
// Round(Round(x)) == Round(x) for every x.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// WithinTolerance reports whether a and b differ by at most one minor unit (0.01).
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// Tolerance returns the verification tolerance applied to totals.
func Tolerance() decimal.Decimal { return tolerance }
