package pricing

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// DefaultValidityDays is how long a quote stays valid when the request sets no date.
const DefaultValidityDays = 14

// CalculatorConfig wires a Calculator.
type CalculatorConfig struct {
	Port                 refdata.Port
	DefaultRates         money.RateTable
	PassThroughExemptAge *int
	ValidityDays         int
	Now                  func() time.Time
	NewID                func() string
}

// Calculator prices whole quotes against one reference data port. It holds no per-call state and is safe
// for concurrent use.
type Calculator struct {
	port         refdata.Port
	defaultRates money.RateTable
	exemptAge    *int
	validityDays int
	now          func() time.Time
	newID        func() string
}

// NewCalculator applies defaults for the clock, id generator and validity period.
func NewCalculator(cfg CalculatorConfig) *Calculator {
	c := &Calculator{
		port:         cfg.Port,
		defaultRates: cfg.DefaultRates,
		exemptAge:    cfg.PassThroughExemptAge,
		validityDays: cfg.ValidityDays,
		now:          cfg.Now,
		newID:        cfg.NewID,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.validityDays <= 0 {
		c.validityDays = DefaultValidityDays
	}
	return c
}

// Calculate prices the request. It never panics across this boundary: every fatal condition comes back as a
// failed Result whose value is a zero-filled result with a single blocking warning.
func (c *Calculator) Calculate(req QuoteRequest) Result[QuoteCalculationResult] {
	id := c.newID()
	b := audit.NewBuilder(c.now)

	ctx, cerr := c.newContext(req)
	if cerr != nil {
		return c.fail(id, req, nil, b, cerr)
	}
	rates := ctx.Rates()
	b.Record(audit.Entry{
		Type:        audit.StepRatesLocked,
		Description: fmt.Sprintf("exchange rates locked for %s", ctx.Currency()),
		Inputs:      map[string]any{"manual": len(req.ManualRates) > 0},
		Outputs:     map[string]any{"rates": rates.View().Rates, "source": string(ctx.RateSource())},
	})

	result, cerr := c.calculate(ctx, req, b)
	if cerr != nil {
		return c.fail(id, req, ctx, b, cerr)
	}
	result.CalculationID = id
	result.Warnings = b.Warnings()
	result.Audit = b.Steps()
	return Ok(result)
}

func (c *Calculator) newContext(req QuoteRequest) (*CalculationContext, *CalculationError) {
	if len(req.Legs) == 0 {
		return nil, newError(CodeInvalidInput, "a quote needs at least one leg")
	}
	if req.QuoteMarkup != nil && req.QuoteMarkup.Amount.IsNegative() {
		return nil, newError(CodeInvalidInput, "quote markup override must not be negative")
	}
	ctx, err := NewCalculationContext(ContextOptions{
		Currency:             req.Currency,
		ManualRates:          req.ManualRates,
		DefaultRates:         c.defaultRates,
		BookingDate:          req.BookingDate,
		Port:                 c.port,
		PassThroughExemptAge: c.exemptAge,
		Clock:                c.now,
	})
	if err != nil {
		if ce, ok := err.(*CalculationError); ok {
			return nil, ce
		}
		return nil, newError(CodeInvalidInput, "cannot build calculation context").withCause(err)
	}
	return ctx, nil
}

func (c *Calculator) calculate(ctx *CalculationContext, req QuoteRequest, b *audit.Builder) (QuoteCalculationResult, *CalculationError) {
	override := req.QuoteMarkup != nil

	legs := make([]pricedLeg, 0, len(req.Legs))
	for i, leg := range req.Legs {
		lb := b.ForLeg(i)
		priced, err := calculateLeg(ctx, i, leg, override, lb)
		b.Merge(lb)
		if err != nil {
			return QuoteCalculationResult{}, err.forLeg(i)
		}
		legs = append(legs, priced)
	}

	transfers, err := priceInterResortTransfers(ctx, legs, req.Transfers, override, b)
	if err != nil {
		return QuoteCalculationResult{}, err
	}

	result := QuoteCalculationResult{
		Success:       true,
		Currency:      ctx.Currency(),
		ExchangeRates: ctx.Rates().View(),
		BookingDate:   ctx.BookingDate(),
		ValidUntil:    c.validUntil(ctx, req),
		Client:        req.Client,
		Legs:          make([]LegCalculationResult, 0, len(legs)),
		Transfers:     transfers,
	}
	for _, leg := range legs {
		result.Legs = append(result.Legs, leg.result)
	}

	totals := aggregate(result.Legs, transfers)
	if override {
		totals.QuoteMarkup = money.Round(req.QuoteMarkup.Amount)
		result.QuoteMarkup = &QuoteMarkupResult{Amount: totals.QuoteMarkup, Reason: req.QuoteMarkup.Reason}
		quoteMarkup := totals.QuoteMarkup
		b.Record(audit.Entry{
			Type:        audit.StepQuoteMarkup,
			Description: "quote-level markup override applied",
			Inputs:      map[string]any{"reason": req.QuoteMarkup.Reason},
			Amount:      &quoteMarkup,
		})
	}
	totals.Combined = newBreakdown(
		totals.Legs.Cost.Add(totals.Transfers.Cost),
		totals.Legs.Markup.Add(totals.Transfers.Markup).Add(totals.QuoteMarkup),
	)
	totals.MarginPercentage = money.PercentOf(totals.Combined.Markup, totals.Combined.Sell).Rounded()
	result.Totals = totals
	result.TaxBreakdown = taxBreakdown(result.Legs)

	sell := totals.Combined.Sell
	b.Record(audit.Entry{
		Type:        audit.StepQuoteTotals,
		Description: "quote totals aggregated",
		Inputs:      map[string]any{"legs": len(result.Legs), "transfers": len(transfers)},
		Outputs: map[string]any{
			"cost":             totals.Combined.Cost.String(),
			"markup":           totals.Combined.Markup.String(),
			"marginPercentage": totals.MarginPercentage.String(),
			"totalTaxes":       totals.TotalTaxes.String(),
		},
		Amount: &sell,
	})

	if err := verify(result, b); err != nil {
		return QuoteCalculationResult{}, err
	}
	return result, nil
}

func (c *Calculator) validUntil(ctx *CalculationContext, req QuoteRequest) *civil.Date {
	if req.ValidUntil != nil {
		v := *req.ValidUntil
		return &v
	}
	v := ctx.BookingDate().AddDays(c.validityDays)
	return &v
}

// aggregate sums the already rounded leg and transfer breakdowns.
func aggregate(legs []LegCalculationResult, transfers []InterResortTransferResult) QuoteTotals {
	zero := newBreakdown(decimal.Zero, decimal.Zero)
	totals := QuoteTotals{Legs: zero, Transfers: zero, QuoteMarkup: decimal.Zero, TotalTaxes: decimal.Zero}
	for _, leg := range legs {
		totals.Legs = totals.Legs.add(leg.Totals)
		totals.TotalTaxes = totals.TotalTaxes.Add(leg.TaxTotal)
	}
	for _, t := range transfers {
		totals.Transfers = totals.Transfers.add(t.Pricing)
	}
	return totals
}

// taxBreakdown totals taxes by kind in order of first appearance.
func taxBreakdown(legs []LegCalculationResult) []TaxKindTotal {
	out := make([]TaxKindTotal, 0)
	index := make(map[refdata.TaxKind]int)
	for _, leg := range legs {
		for _, tax := range leg.Taxes {
			i, ok := index[tax.Kind]
			if !ok {
				i = len(out)
				index[tax.Kind] = i
				out = append(out, TaxKindTotal{Kind: tax.Kind, Amount: decimal.Zero})
			}
			out[i].Amount = out[i].Amount.Add(tax.Amount)
		}
	}
	return out
}

// verify reconciles every leg and the quote total, then rejects a negative sell.
func verify(result QuoteCalculationResult, b *audit.Builder) *CalculationError {
	check := func(label string, p Breakdown) *CalculationError {
		if !money.WithinTolerance(p.Cost.Add(p.Markup), p.Sell) {
			return newError(CodeTotalsVerification, "%s: cost %s + markup %s != sell %s", label, p.Cost, p.Markup, p.Sell)
		}
		return nil
	}
	for _, leg := range result.Legs {
		if err := check(fmt.Sprintf("leg %d", leg.Index), leg.Totals); err != nil {
			return err.forLeg(leg.Index)
		}
	}
	for _, t := range result.Transfers {
		if err := check(fmt.Sprintf("transfer %d->%d", t.FromLeg, t.ToLeg), t.Pricing); err != nil {
			return err
		}
	}
	combined := result.Totals.Combined
	if err := check("quote", combined); err != nil {
		return err
	}
	if combined.Sell.IsNegative() {
		return newError(CodeNegativeFinalAmount, "quote sell amount %s is negative", combined.Sell.StringFixed(2))
	}
	b.Record(audit.Entry{
		Type:        audit.StepVerification,
		Description: "totals reconciled",
		Outputs:     map[string]any{"tolerance": money.Tolerance().String()},
	})
	return nil
}

// fail builds the zero-filled failure result. ctx is nil when the failure happened before rates were locked.
func (c *Calculator) fail(id string, req QuoteRequest, ctx *CalculationContext, b *audit.Builder, err *CalculationError) Result[QuoteCalculationResult] {
	if err.Resolution == "" {
		err.Resolution = err.Code.Resolution()
	}
	warning := audit.Warning{
		Code:       string(err.Code),
		Message:    err.Error(),
		Severity:   audit.SeverityBlocking,
		LegIndex:   err.LegIndex,
		Resolution: err.Resolution,
	}
	b.Warn(warning)

	zero := newBreakdown(decimal.Zero, decimal.Zero)
	result := QuoteCalculationResult{
		Success:       false,
		CalculationID: id,
		Currency:      money.NormalizeCurrency(req.Currency),
		Client:        req.Client,
		Legs:          []LegCalculationResult{},
		Transfers:     []InterResortTransferResult{},
		Totals: QuoteTotals{
			Legs:        zero,
			Transfers:   zero,
			QuoteMarkup: decimal.Zero,
			Combined:    zero,
			TotalTaxes:  decimal.Zero,
		},
		TaxBreakdown: []TaxKindTotal{},
		Warnings:     []audit.Warning{warning},
		Audit:        b.Steps(),
	}
	if ctx != nil {
		result.ExchangeRates = ctx.Rates().View()
		result.BookingDate = ctx.BookingDate()
	}
	return Fail(result, err)
}
