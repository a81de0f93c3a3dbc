package money

import (
	"github.com/shopspring/decimal"
)

// Percentage is a percent value, so 10 means ten percent.
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage wraps a percent value.
func NewPercentage(v decimal.Decimal) Percentage {
	return Percentage{value: v}
}

// MustPercentage parses a percent value and panics on malformed input.
func MustPercentage(v string) Percentage {
	return Percentage{value: decimal.RequireFromString(v)}
}

// PercentOf returns part as a percentage of whole. A zero whole yields zero.
func PercentOf(part, whole decimal.Decimal) Percentage {
	if whole.IsZero() {
		return Percentage{}
	}
	return Percentage{value: part.Div(whole).Mul(hundred)}
}

// Of applies the percentage to base at full precision.
func (p Percentage) Of(base decimal.Decimal) decimal.Decimal {
	return base.Mul(p.value).Div(hundred)
}

// Decimal exposes the raw percent value.
func (p Percentage) Decimal() decimal.Decimal { return p.value }

// IsZero reports whether the percentage is zero.
func (p Percentage) IsZero() bool { return p.value.IsZero() }

// IsNegative reports whether the percentage is below zero.
func (p Percentage) IsNegative() bool { return p.value.IsNegative() }

// Rounded returns the percentage rounded with the global rule.
func (p Percentage) Rounded() Percentage { return Percentage{value: Round(p.value)} }

// String renders the percent value.
func (p Percentage) String() string { return p.value.String() }

// MarshalJSON encodes the percent value like a decimal.
func (p Percentage) MarshalJSON() ([]byte, error) { return p.value.MarshalJSON() }

// UnmarshalJSON decodes a percent value from a JSON number or string.
func (p *Percentage) UnmarshalJSON(data []byte) error { return p.value.UnmarshalJSON(data) }
