package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// pricedLeg keeps what later quote stages need from a finished leg.
type pricedLeg struct {
	result LegCalculationResult
	resort refdata.Resort
	guests GuestCounts
}

// calculateLeg runs the fixed leg pipeline: resolve, nightly rates, extra persons, components, subtotal,
// discounts, taxes, markup and totals. Amounts stay at full precision until the final rounding pass.
func calculateLeg(ctx *CalculationContext, index int, leg LegRequest, override bool, b *audit.Builder) (pricedLeg, *CalculationError) {
	resort, room, err := resolveLeg(ctx, leg)
	if err != nil {
		return pricedLeg{}, err
	}
	nights := leg.CheckOut.DaysSince(leg.CheckIn)
	guests, err := resolveGuests(ctx.Port().AgeBands(resort.ID), leg.Adults, leg.ChildAges)
	if err != nil {
		return pricedLeg{}, err
	}
	b.Record(audit.Entry{
		Type:        audit.StepEntityResolved,
		Description: fmt.Sprintf("%s / %s for %d night(s)", resort.Name, room.Name, nights),
		Inputs: map[string]any{
			"resortId":   string(resort.ID),
			"roomTypeId": string(room.ID),
			"checkIn":    leg.CheckIn.String(),
			"checkOut":   leg.CheckOut.String(),
			"adults":     leg.Adults,
			"childAges":  slices.Clone(leg.ChildAges),
		},
		Outputs: map[string]any{"nights": nights, "children": guests.ChildCount()},
	})

	result := LegCalculationResult{
		Index:        index,
		ResortID:     resort.ID,
		ResortName:   resort.Name,
		RoomTypeID:   room.ID,
		RoomTypeName: room.Name,
		CheckIn:      leg.CheckIn,
		CheckOut:     leg.CheckOut,
		Nights:       nights,
		Adults:       guests.Adults,
		Children:     guests.Children,
	}

	nightly, roomCost, err := lookupNightlyRates(ctx, resort.ID, room.ID, leg.CheckIn, leg.CheckOut, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.NightlyRates, result.RoomCost = nightly, roomCost

	extras, err := chargeExtraPersons(ctx, room, guests, nights, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.ExtraPersonCharges, result.ExtraPersonTotal = extras.rows, extras.total

	components, festive, err := priceLegComponents(ctx, leg, resort, room, guests, nights, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.Components, result.FestiveSupplements = components, festive

	lines := preTaxLines(result)
	result.PreTaxSubtotal = decimal.Zero
	for _, line := range lines {
		result.PreTaxSubtotal = result.PreTaxSubtotal.Add(line.GrossCost)
	}
	subtotal := result.PreTaxSubtotal
	b.Record(audit.Entry{
		Type:        audit.StepSubtotal,
		Description: "pre-tax subtotal",
		Inputs: map[string]any{
			"roomCost":         roomCost.String(),
			"extraPersonTotal": extras.total.String(),
			"lines":            len(lines),
		},
		Amount: &subtotal,
	})

	discounts, err := applyDiscounts(ctx, resort, leg, nightly, lines, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.Discounts, result.DiscountTotal = discounts.applied, discounts.total
	result.PostDiscountSubtotal = result.PreTaxSubtotal.Sub(discounts.total)
	accommodation := decimal.Zero
	for i := range lines {
		lines[i].Discount = discounts.perLine[i]
		if lines[i].Category.IsAccommodation() {
			accommodation = accommodation.Add(lines[i].netCost())
		}
	}

	taxes, taxTotal, err := applyTaxes(ctx, resort, leg, guests, nights, taxBases{subtotal: result.PostDiscountSubtotal, accommodation: accommodation}, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.Taxes, result.TaxTotal = taxes, taxTotal
	for _, tax := range taxes {
		lines = append(lines, LineItem{
			Category:    tax.Kind.Category(),
			Description: tax.Name,
			ReferenceID: string(tax.TaxConfigID),
			Quantity:    1,
			GrossCost:   tax.Amount,
			Discount:    decimal.Zero,
		})
	}

	markup, err := applyLegMarkup(ctx, resort, lines, override, b)
	if err != nil {
		return pricedLeg{}, err
	}
	result.Markup = markup.breakdown
	cost, markupTotal := decimal.Zero, decimal.Zero
	for i := range lines {
		lines[i].MarkupExcluded = markup.excluded[i]
		lines[i].Pricing = newBreakdown(lines[i].netCost(), markup.perLine[i])
		cost = cost.Add(lines[i].Pricing.Cost)
		markupTotal = markupTotal.Add(lines[i].Pricing.Markup)
	}
	result.LineItems = lines
	result.Totals = newBreakdown(cost, markupTotal)

	roundLeg(&result)
	sell := result.Totals.Sell
	b.Record(audit.Entry{
		Type:        audit.StepLegTotals,
		Description: fmt.Sprintf("leg %d totals", index),
		Inputs: map[string]any{
			"postDiscountSubtotal": result.PostDiscountSubtotal.String(),
			"taxTotal":             result.TaxTotal.String(),
		},
		Outputs: map[string]any{
			"cost":   result.Totals.Cost.String(),
			"markup": result.Totals.Markup.String(),
		},
		Amount: &sell,
	})
	return pricedLeg{result: result, resort: resort, guests: guests}, nil
}

// resolveLeg checks the request shape and looks up the resort and room type.
func resolveLeg(ctx *CalculationContext, leg LegRequest) (refdata.Resort, refdata.RoomType, *CalculationError) {
	var problems []string
	if !leg.CheckIn.IsValid() || !leg.CheckOut.IsValid() {
		problems = append(problems, "check-in and check-out must be valid dates")
	} else if !leg.CheckIn.Before(leg.CheckOut) {
		problems = append(problems, "check-out must be after check-in")
	}
	if leg.Adults < 1 {
		problems = append(problems, "at least one adult is required")
	}
	for _, age := range leg.ChildAges {
		if age < 0 {
			problems = append(problems, fmt.Sprintf("child age %d is negative", age))
		}
	}
	for _, activity := range leg.Activities {
		if activity.Quantity < 0 {
			problems = append(problems, fmt.Sprintf("activity %s has a negative quantity", activity.ActivityID))
		}
	}
	if len(problems) > 0 {
		return refdata.Resort{}, refdata.RoomType{}, newError(CodeInvalidInput, "leg is invalid").withDetails(problems...)
	}

	port := ctx.Port()
	resort, ok := port.Resort(leg.ResortID)
	if !ok {
		return refdata.Resort{}, refdata.RoomType{}, newError(CodeReferenceDataMissing, "unknown resort %q", leg.ResortID)
	}
	room, ok := port.RoomType(leg.RoomTypeID)
	if !ok || room.ResortID != resort.ID {
		return refdata.Resort{}, refdata.RoomType{}, newError(CodeReferenceDataMissing, "unknown room type %q for resort %q", leg.RoomTypeID, leg.ResortID)
	}
	return resort, room, nil
}

// preTaxLines turns the priced room, extra persons and components into line items.
func preTaxLines(r LegCalculationResult) []LineItem {
	lines := []LineItem{{
		Category:    refdata.CategoryRoom,
		Description: r.RoomTypeName,
		ReferenceID: string(r.RoomTypeID),
		Quantity:    r.Nights,
		GrossCost:   r.RoomCost,
		Discount:    decimal.Zero,
	}}
	for _, extra := range r.ExtraPersonCharges {
		if extra.Amount.IsZero() {
			continue
		}
		description := fmt.Sprintf("extra %s", extra.GuestType)
		if extra.Age != nil {
			description = fmt.Sprintf("extra child aged %d (%s)", *extra.Age, extra.AgeBandName)
		}
		lines = append(lines, LineItem{
			Category:    refdata.CategoryExtraPerson,
			Description: description,
			ReferenceID: string(extra.ChargeID),
			Quantity:    extra.Count,
			GrossCost:   extra.Amount,
			Discount:    decimal.Zero,
		})
	}
	for _, group := range [][]ComponentResult{r.Components, r.FestiveSupplements} {
		for _, c := range group {
			lines = append(lines, LineItem{
				Category:    c.Category,
				Description: c.Name,
				ReferenceID: c.ComponentID,
				Quantity:    c.Quantity,
				GrossCost:   c.Amount,
				Discount:    decimal.Zero,
			})
		}
	}
	return lines
}

// roundLeg is the single rounding pass over every monetary field of a leg. Rates, percentages and exchange
// rates keep their precision.
func roundLeg(r *LegCalculationResult) {
	for i := range r.NightlyRates {
		r.NightlyRates[i].Amount = money.Round(r.NightlyRates[i].Amount)
	}
	r.RoomCost = money.Round(r.RoomCost)
	for i := range r.ExtraPersonCharges {
		e := &r.ExtraPersonCharges[i]
		e.UnitAmount, e.Amount = money.Round(e.UnitAmount), money.Round(e.Amount)
	}
	r.ExtraPersonTotal = money.Round(r.ExtraPersonTotal)
	roundComponents(r.Components)
	roundComponents(r.FestiveSupplements)
	r.PreTaxSubtotal = money.Round(r.PreTaxSubtotal)
	for i := range r.Discounts {
		d := &r.Discounts[i]
		d.BaseAmount, d.Amount = money.Round(d.BaseAmount), money.Round(d.Amount)
	}
	r.DiscountTotal = money.Round(r.DiscountTotal)
	r.PostDiscountSubtotal = money.Round(r.PostDiscountSubtotal)
	for i := range r.Taxes {
		t := &r.Taxes[i]
		t.Base, t.Amount = money.Round(t.Base), money.Round(t.Amount)
	}
	r.TaxTotal = money.Round(r.TaxTotal)
	m := &r.Markup
	m.MarkupBase, m.ExcludedCost, m.Amount = money.Round(m.MarkupBase), money.Round(m.ExcludedCost), money.Round(m.Amount)
	if m.FixedAmount != nil {
		fixed := money.Round(*m.FixedAmount)
		m.FixedAmount = &fixed
	}
	for i := range r.LineItems {
		l := &r.LineItems[i]
		l.GrossCost, l.Discount = money.Round(l.GrossCost), money.Round(l.Discount)
		l.Pricing = l.Pricing.rounded()
	}
	r.Totals = r.Totals.rounded()
}

func roundComponents(components []ComponentResult) {
	for i := range components {
		c := &components[i]
		for j := range c.Rows {
			c.Rows[j].UnitAmount, c.Rows[j].Amount = money.Round(c.Rows[j].UnitAmount), money.Round(c.Rows[j].Amount)
		}
		c.Amount = money.Round(c.Amount)
	}
}
