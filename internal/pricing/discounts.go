package pricing

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

var hundred = decimal.NewFromInt(100)

// discountOutcome is the result of the discount stage. perLine is parallel to the lines that were passed in.
type discountOutcome struct {
	applied []AppliedDiscount
	total   decimal.Decimal
	perLine []decimal.Decimal
}

// stayFacts is what eligibility is judged against.
type stayFacts struct {
	checkIn civil.Date
	nights  int
	lead    int
	seasons []refdata.SeasonID
}

// applyDiscounts collects automatic and code discounts, filters them for eligibility, resolves stacking and
// applies each survivor against the original cost of its base. The lines are not modified.
func applyDiscounts(ctx *CalculationContext, resort refdata.Resort, leg LegRequest, nightly []NightlyRate, lines []LineItem, b *audit.Builder) (discountOutcome, *CalculationError) {
	out := discountOutcome{total: decimal.Zero, perLine: make([]decimal.Decimal, len(lines))}
	for i := range out.perLine {
		out.perLine[i] = decimal.Zero
	}

	facts := stayFacts{
		checkIn: leg.CheckIn,
		nights:  len(nightly),
		lead:    leg.CheckIn.DaysSince(ctx.BookingDate()),
	}
	for _, night := range nightly {
		facts.seasons = append(facts.seasons, night.SeasonID)
	}

	var eligible []refdata.Discount
	for _, d := range discountCandidates(ctx.Port(), resort, leg, b) {
		reason := ineligibility(d, facts)
		b.Record(audit.Entry{
			Type:        audit.StepDiscountEvaluated,
			Description: fmt.Sprintf("discount %s evaluated", d.Name),
			Inputs: map[string]any{
				"discountId": string(d.ID),
				"nights":     facts.nights,
				"leadDays":   facts.lead,
				"stackable":  d.Stackable,
			},
			Outputs: map[string]any{"eligible": reason == "", "reason": reason},
		})
		if reason != "" {
			b.Warn(audit.Warning{
				Code:    WarnDiscountNotEligible,
				Message: fmt.Sprintf("discount %s not applied: %s", d.Name, reason),
			})
			continue
		}
		eligible = append(eligible, d)
	}

	for _, d := range resolveStacking(eligible, b) {
		gross := make([]decimal.Decimal, len(lines))
		left := make([]decimal.Decimal, len(lines))
		headroom := decimal.Zero
		for i, line := range lines {
			gross[i], left[i] = decimal.Zero, decimal.Zero
			if d.Base.Includes(line.Category) {
				gross[i] = line.GrossCost
				left[i] = decimal.Max(line.GrossCost.Sub(out.perLine[i]), decimal.Zero)
				headroom = headroom.Add(left[i])
			}
		}
		applied, err := applyDiscount(ctx, resort, d, lines, headroom, b)
		if err != nil {
			return discountOutcome{}, err
		}
		// Shares follow the original costs unless that would push a line below zero.
		shares := allocateByWeight(applied.Amount, gross)
		for i := range shares {
			if shares[i].GreaterThan(left[i]) {
				shares = allocateByWeight(applied.Amount, left)
				break
			}
		}
		for i, share := range shares {
			out.perLine[i] = out.perLine[i].Add(share)
		}
		out.applied = append(out.applied, applied)
		out.total = out.total.Add(applied.Amount)
	}
	return out, nil
}

// discountCandidates returns the automatic discounts followed by the requested codes, without duplicates.
func discountCandidates(port refdata.Port, resort refdata.Resort, leg LegRequest, b *audit.Builder) []refdata.Discount {
	seen := make(map[refdata.DiscountID]struct{})
	var out []refdata.Discount
	add := func(d refdata.Discount) {
		if _, dup := seen[d.ID]; dup {
			return
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	for _, d := range port.DiscountsForStay(resort.ID, leg.CheckIn) {
		add(d)
	}
	for _, code := range leg.DiscountCodes {
		d, ok := port.DiscountByCode(resort.ID, code)
		if !ok {
			b.Warn(audit.Warning{
				Code:    WarnDiscountCodeNotFound,
				Message: fmt.Sprintf("discount code %q is not valid for %s", code, resort.Name),
			})
			continue
		}
		add(d)
	}
	return out
}

// ineligibility returns why d cannot apply to the stay, or "" when it can.
func ineligibility(d refdata.Discount, stay stayFacts) string {
	switch {
	case !d.Type.Valid() || !d.Base.Valid() || d.Value.IsNegative():
		return "discount is misconfigured"
	case d.Type == refdata.DiscountPercentage && d.Value.GreaterThan(hundred):
		return "percentage exceeds 100"
	case !d.ValidOn(stay.checkIn):
		return fmt.Sprintf("check-in %s is outside the validity window", stay.checkIn)
	case d.MinNights > 0 && stay.nights < d.MinNights:
		return fmt.Sprintf("requires at least %d nights", d.MinNights)
	case d.MaxNights > 0 && stay.nights > d.MaxNights:
		return fmt.Sprintf("allows at most %d nights", d.MaxNights)
	case stay.lead < d.MinBookingDays:
		return fmt.Sprintf("requires booking %d days ahead, booked %d", d.MinBookingDays, stay.lead)
	}
	for _, season := range stay.seasons {
		if d.BlackedOut(season) {
			return fmt.Sprintf("season %s is blacked out", season)
		}
	}
	return ""
}

// resolveStacking picks the discounts that may apply together. With any non-stackable candidate the highest
// percentage wins (fixed amounts rank as zero, earlier wins ties) and only stackables that cross-reference the
// winner in both directions join it. Otherwise stackables are accepted greedily in order while mutually
// compatible with everything accepted so far.
func resolveStacking(eligible []refdata.Discount, b *audit.Builder) []refdata.Discount {
	winner := -1
	for i, d := range eligible {
		if d.Stackable {
			continue
		}
		if winner < 0 || stackRank(d).GreaterThan(stackRank(eligible[winner])) {
			winner = i
		}
	}

	var accepted []refdata.Discount
	if winner >= 0 {
		w := eligible[winner]
		accepted = append(accepted, w)
		for i, d := range eligible {
			switch {
			case i == winner:
			case !d.Stackable:
				dropStacked(b, fmt.Sprintf("discount %s lost to non-stackable %s", d.Name, w.Name))
			case d.CompatibleWithID(w.ID) && w.CompatibleWithID(d.ID):
				accepted = append(accepted, d)
			default:
				dropStacked(b, fmt.Sprintf("discount %s cannot combine with %s", d.Name, w.Name))
			}
		}
		return accepted
	}

	for _, d := range eligible {
		conflict := ""
		for _, a := range accepted {
			if !stackCompatible(d, a) {
				conflict = a.Name
				break
			}
		}
		if conflict != "" {
			dropStacked(b, fmt.Sprintf("discount %s cannot combine with %s", d.Name, conflict))
			continue
		}
		accepted = append(accepted, d)
	}
	return accepted
}

func stackRank(d refdata.Discount) decimal.Decimal {
	if d.Type == refdata.DiscountPercentage {
		return d.Value
	}
	return decimal.Zero
}

// stackCompatible treats an empty compatibility list as compatible with any stackable discount.
func stackCompatible(a, c refdata.Discount) bool {
	return (len(a.CompatibleWith) == 0 || a.CompatibleWithID(c.ID)) &&
		(len(c.CompatibleWith) == 0 || c.CompatibleWithID(a.ID))
}

func dropStacked(b *audit.Builder, message string) {
	b.Warn(audit.Warning{Code: WarnDiscountStackingConflict, Message: message})
}

// applyDiscount computes one discount against the original gross of its base. The amount is capped at that
// base and at headroom, the part of the base earlier discounts have not already taken.
func applyDiscount(ctx *CalculationContext, resort refdata.Resort, d refdata.Discount, lines []LineItem, headroom decimal.Decimal, b *audit.Builder) (AppliedDiscount, *CalculationError) {
	base := decimal.Zero
	for _, line := range lines {
		if d.Base.Includes(line.Category) {
			base = base.Add(line.GrossCost)
		}
	}

	var amount decimal.Decimal
	switch d.Type {
	case refdata.DiscountPercentage:
		amount = money.NewPercentage(d.Value).Of(base)
	case refdata.DiscountFixedAmount:
		currency := d.Currency
		if currency == "" {
			currency = resort.Currency
		}
		converted, err := ctx.convert(d.Value, currency)
		if err != nil {
			return AppliedDiscount{}, err
		}
		amount = converted
	case refdata.DiscountTypeUnknown:
		amount = decimal.Zero
	}

	applied := AppliedDiscount{
		DiscountID: d.ID,
		Name:       d.Name,
		Code:       d.Code,
		Type:       d.Type,
		Value:      d.Value,
		Base:       d.Base,
		BaseAmount: base,
		Amount:     amount,
	}
	limit := decimal.Min(base, headroom)
	if amount.GreaterThan(limit) {
		applied.Amount = limit
		applied.Capped = true
		message := fmt.Sprintf("discount %s capped at its base of %s", d.Name, money.Round(base).StringFixed(2))
		if limit.LessThan(base) {
			message = fmt.Sprintf("discount %s capped at the %s of its base left after earlier discounts", d.Name, money.Round(limit).StringFixed(2))
		}
		b.Warn(audit.Warning{Code: WarnDiscountCapped, Message: message})
	}
	b.Record(audit.Entry{
		Type:        audit.StepDiscountApplied,
		Description: fmt.Sprintf("discount %s applied", d.Name),
		Inputs: map[string]any{
			"discountId": string(d.ID),
			"type":       d.Type.String(),
			"value":      d.Value.String(),
			"base":       d.Base.String(),
			"baseAmount": base.String(),
			"headroom":   headroom.String(),
		},
		Outputs: map[string]any{"capped": applied.Capped},
		Amount:  &applied.Amount,
	})
	return applied, nil
}
