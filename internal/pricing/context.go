package pricing

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// DefaultPassThroughExemptAge is the child age at or below which pass-through taxes are not charged.
const DefaultPassThroughExemptAge = 1

// ContextOptions are the inputs fixed once per calculation.
type ContextOptions struct {
	Currency             string
	ManualRates          map[string]decimal.Decimal
	DefaultRates         money.RateTable
	BookingDate          *civil.Date
	Port                 refdata.Port
	PassThroughExemptAge *int
	Clock                func() time.Time
}

// CalculationContext is the immutable per-call configuration every stage reads from.
type CalculationContext struct {
	rates       money.LockedRates
	bookingDate civil.Date
	port        refdata.Port
	exemptAge   int
	clock       func() time.Time
}

// NewCalculationContext locks the exchange rates and fixes the booking date.
func NewCalculationContext(opts ContextOptions) (*CalculationContext, error) {
	if opts.Port == nil {
		return nil, newError(CodeReferenceDataMissing, "reference data port is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	rates, err := money.LockRates(opts.Currency, opts.ManualRates, opts.DefaultRates, now)
	if err != nil {
		switch {
		case errors.Is(err, money.ErrQuoteCurrencyRequired), errors.Is(err, money.ErrInvalidRate):
			return nil, newError(CodeInvalidInput, "cannot lock exchange rates").withCause(err)
		default:
			return nil, newError(CodeCurrencyConversion, "cannot lock exchange rates").withCause(err)
		}
	}

	booking := civil.DateOf(now.UTC())
	if opts.BookingDate != nil {
		booking = *opts.BookingDate
	}
	exempt := DefaultPassThroughExemptAge
	if opts.PassThroughExemptAge != nil {
		exempt = *opts.PassThroughExemptAge
	}
	return &CalculationContext{
		rates:       rates,
		bookingDate: booking,
		port:        opts.Port,
		exemptAge:   exempt,
		clock:       clock,
	}, nil
}

func (c *CalculationContext) Currency() string { return c.rates.Currency() }
func (c *CalculationContext) Rates() money.LockedRates { return c.rates }
func (c *CalculationContext) LockedAt() time.Time { return c.rates.LockedAt() }
func (c *CalculationContext) RateSource() money.RateSource { return c.rates.Source() }
func (c *CalculationContext) BookingDate() civil.Date { return c.bookingDate }
func (c *CalculationContext) Port() refdata.Port { return c.port }
func (c *CalculationContext) PassThroughExemptAge() int { return c.exemptAge }

// convert expresses amount in the quote currency using the locked rates only.
func (c *CalculationContext) convert(amount decimal.Decimal, currency string) (decimal.Decimal, *CalculationError) {
	out, err := c.rates.Convert(amount, currency)
	if err != nil {
		return decimal.Zero, newError(CodeCurrencyConversion, "no locked rate for %s", money.NormalizeCurrency(currency)).withCause(err)
	}
	return out, nil
}

func (c *CalculationContext) convertMoney(m money.Money) (decimal.Decimal, *CalculationError) {
	return c.convert(m.Amount, m.Currency)
}
