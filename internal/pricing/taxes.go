package pricing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// taxBases are the explicit amounts a percentage tax may be computed from.
type taxBases struct {
	subtotal      decimal.Decimal
	accommodation decimal.Decimal
}

// applyTaxes evaluates the resort's taxes in ascending calculation order. The cumulative base starts at the
// post-discount subtotal and grows by every tax flagged as contributing to it, so only later taxes see it.
func applyTaxes(ctx *CalculationContext, resort refdata.Resort, leg LegRequest, guests GuestCounts, nights int, bases taxBases, b *audit.Builder) ([]TaxResult, decimal.Decimal, *CalculationError) {
	configs := slices.Clone(ctx.Port().TaxConfigs(resort.ID, leg.CheckIn))
	slices.SortStableFunc(configs, func(a, c refdata.TaxConfig) int { return cmp.Compare(a.CalculationOrder, c.CalculationOrder) })

	cumulative := bases.subtotal
	total := decimal.Zero
	results := make([]TaxResult, 0, len(configs))
	for _, tax := range configs {
		if err := validateTax(tax); err != nil {
			return nil, decimal.Zero, err
		}
		result := TaxResult{
			TaxConfigID:      tax.ID,
			Name:             tax.Name,
			Kind:             tax.Kind,
			Method:           tax.Method,
			CalculationOrder: tax.CalculationOrder,
			Rate:             tax.Rate,
		}

		switch tax.Method {
		case refdata.TaxFixedPerPersonPerNight:
			currency := tax.Currency
			if currency == "" {
				currency = resort.Currency
			}
			rate, err := ctx.convert(tax.Rate, currency)
			if err != nil {
				return nil, decimal.Zero, err
			}
			exempt := ctx.PassThroughExemptAge()
			if tax.ChildExemptAge != nil {
				exempt = *tax.ChildExemptAge
			}
			result.EligibleGuests = guests.PassThroughEligible(exempt)
			result.Nights = nights
			result.Base = rate
			result.Amount = rate.Mul(decimal.NewFromInt(int64(result.EligibleGuests * nights)))
		case refdata.TaxPercentage:
			result.AppliesTo = tax.AppliesTo
			switch tax.AppliesTo {
			case refdata.TaxBaseSubtotal:
				result.Base = bases.subtotal
			case refdata.TaxBaseCumulative:
				result.Base = cumulative
			case refdata.TaxBaseAccommodation:
				result.Base = bases.accommodation
			case refdata.TaxBaseUnknown:
			}
			result.Amount = money.NewPercentage(tax.Rate).Of(result.Base)
		case refdata.TaxMethodUnknown:
		}

		if tax.ContributesToCumulative {
			cumulative = cumulative.Add(result.Amount)
		}
		total = total.Add(result.Amount)
		results = append(results, result)

		amount := result.Amount
		b.Record(audit.Entry{
			Type:        audit.StepTaxApplied,
			Description: fmt.Sprintf("%s applied", tax.Name),
			Inputs: map[string]any{
				"taxConfigId":      string(tax.ID),
				"kind":             tax.Kind.String(),
				"method":           tax.Method.String(),
				"appliesTo":        tax.AppliesTo.String(),
				"calculationOrder": tax.CalculationOrder,
				"rate":             tax.Rate.String(),
				"base":             result.Base.String(),
				"eligibleGuests":   result.EligibleGuests,
				"nights":           result.Nights,
			},
			Outputs: map[string]any{"cumulativeBase": cumulative.String()},
			Amount:  &amount,
		})
	}
	return results, total, nil
}

func validateTax(tax refdata.TaxConfig) *CalculationError {
	var problems []string
	if !tax.Kind.Valid() {
		problems = append(problems, "unknown tax kind")
	}
	if !tax.Method.Valid() {
		problems = append(problems, "unknown calculation method")
	}
	if tax.Method == refdata.TaxPercentage && !tax.AppliesTo.Valid() {
		problems = append(problems, "percentage tax without a base")
	}
	if tax.Rate.IsNegative() {
		problems = append(problems, "negative rate")
	}
	if len(problems) == 0 {
		return nil
	}
	return newError(CodeInvalidTaxConfig, "tax %s is misconfigured", tax.ID).withDetails(problems...)
}
