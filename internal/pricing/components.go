package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// componentSpec is the common shape of every priced add-on.
type componentSpec struct {
	category refdata.LineItemCategory
	id       string
	name     string
	mode     refdata.PricingMode
	rates    refdata.ComponentRates
	quantity int
	nights   int
}

// priceComponent prices one add-on for the party. It reports false when the pricing mode is not supported,
// in which case no line item is produced.
func priceComponent(ctx *CalculationContext, spec componentSpec, guests GuestCounts, b *audit.Builder) (ComponentResult, bool, *CalculationError) {
	if spec.quantity < 1 {
		spec.quantity = 1
	}
	stepType := audit.StepComponentPriced
	if spec.category == refdata.CategoryFestiveSupplement {
		stepType = audit.StepFestiveSupplement
	}
	result := ComponentResult{
		Category:    spec.category,
		ComponentID: spec.id,
		Name:        spec.name,
		Mode:        spec.mode,
		Quantity:    spec.quantity,
		Amount:      decimal.Zero,
	}
	qty := decimal.NewFromInt(int64(spec.quantity))

	switch spec.mode {
	case refdata.PerPersonPerNight, refdata.PerPerson:
		units := spec.quantity
		if spec.mode == refdata.PerPersonPerNight {
			units *= spec.nights
		}
		adultRate, err := ctx.convert(spec.rates.Adult, spec.rates.Currency)
		if err != nil {
			return ComponentResult{}, false, err
		}
		if guests.Adults > 0 {
			result.addRow(ComponentRow{
				Group:         GroupAdults,
				Guests:        guests.Adults,
				Units:         units,
				UnitAmount:    adultRate,
				Amount:        adultRate.Mul(decimal.NewFromInt(int64(guests.Adults * units))),
				Complimentary: adultRate.IsZero(),
			})
		}
		for _, band := range guests.Bands {
			row := ComponentRow{Group: GroupChild, AgeBandID: band.Band.ID, Guests: band.Count(), Units: units, UnitAmount: decimal.Zero, Amount: decimal.Zero}
			if raw, ok := spec.rates.ChildRate(band.Band.ID); ok && !raw.IsZero() {
				rate, err := ctx.convert(raw, spec.rates.Currency)
				if err != nil {
					return ComponentResult{}, false, err
				}
				row.UnitAmount = rate
				row.Amount = rate.Mul(decimal.NewFromInt(int64(band.Count() * units)))
			} else {
				row.Complimentary = true
			}
			result.addRow(row)
		}
	case refdata.PerRoomPerNight, refdata.PerStay, refdata.PerBooking, refdata.PerTrip:
		flat, err := ctx.convert(spec.rates.Flat, spec.rates.Currency)
		if err != nil {
			return ComponentResult{}, false, err
		}
		units := spec.quantity
		amount := flat.Mul(qty)
		if spec.mode == refdata.PerRoomPerNight {
			units *= spec.nights
			amount = amount.Mul(decimal.NewFromInt(int64(spec.nights)))
		}
		result.addRow(ComponentRow{Group: GroupFlat, Guests: guests.Total(), Units: units, UnitAmount: flat, Amount: amount, Complimentary: flat.IsZero()})
	case refdata.PricingModeUnknown:
		b.Record(audit.Entry{
			Type:        stepType,
			Description: fmt.Sprintf("%s %s skipped: unsupported pricing mode", spec.category, spec.name),
			Inputs:      map[string]any{"componentId": spec.id, "mode": spec.mode.String()},
		})
		return ComponentResult{}, false, nil
	default:
		return ComponentResult{}, false, nil
	}

	complimentary := make([]string, 0)
	for _, row := range result.Rows {
		if row.Complimentary && row.AgeBandID != "" {
			complimentary = append(complimentary, string(row.AgeBandID))
		}
	}
	amount := result.Amount
	b.Record(audit.Entry{
		Type:        stepType,
		Description: fmt.Sprintf("%s %s priced", spec.category, spec.name),
		Inputs: map[string]any{
			"componentId":        spec.id,
			"mode":               spec.mode.String(),
			"quantity":           spec.quantity,
			"nights":             spec.nights,
			"adults":             guests.Adults,
			"children":           guests.ChildCount(),
			"complimentaryBands": complimentary,
		},
		Outputs: map[string]any{"rows": len(result.Rows)},
		Amount:  &amount,
	})
	return result, true, nil
}

func (c *ComponentResult) addRow(row ComponentRow) {
	c.Rows = append(c.Rows, row)
	c.Amount = c.Amount.Add(row.Amount)
}

// priceLegComponents prices the meal plan, arrival transfer, activities and festive supplements of a leg.
func priceLegComponents(ctx *CalculationContext, leg LegRequest, resort refdata.Resort, room refdata.RoomType, guests GuestCounts, nights int, b *audit.Builder) ([]ComponentResult, []ComponentResult, *CalculationError) {
	port := ctx.Port()
	var components []ComponentResult

	price := func(spec componentSpec) *CalculationError {
		result, ok, err := priceComponent(ctx, spec, guests, b)
		if err != nil {
			return err
		}
		if ok {
			components = append(components, result)
		}
		return nil
	}

	if leg.MealPlanID != "" {
		plan, ok := port.MealPlan(leg.MealPlanID)
		if !ok || plan.ResortID != resort.ID {
			b.Warn(audit.Warning{
				Code:    WarnComponentNotFound,
				Message: fmt.Sprintf("meal plan %s is not offered by %s", leg.MealPlanID, resort.Name),
			})
		} else if err := price(componentSpec{
			category: refdata.CategoryMealPlan,
			id:       string(plan.ID),
			name:     plan.Name,
			mode:     plan.Mode,
			rates:    plan.Rates,
			nights:   nights,
		}); err != nil {
			return nil, nil, err
		}
	}

	transferPriced := false
	if leg.TransferTypeID != "" {
		transfer, ok := port.TransferType(leg.TransferTypeID)
		if !ok || (transfer.ResortID != "" && transfer.ResortID != resort.ID) {
			b.Warn(audit.Warning{
				Code:    WarnComponentNotFound,
				Message: fmt.Sprintf("transfer type %s is not available for %s", leg.TransferTypeID, resort.Name),
			})
		} else {
			if err := price(componentSpec{
				category: refdata.CategoryTransfer,
				id:       string(transfer.ID),
				name:     transfer.Name,
				mode:     transfer.Mode,
				rates:    transfer.Rates,
				nights:   nights,
			}); err != nil {
				return nil, nil, err
			}
			transferPriced = true
		}
	}
	if resort.RequiresTransfer && !transferPriced {
		b.Warn(audit.Warning{
			Code:       WarnMissingRequiredTransfer,
			Message:    fmt.Sprintf("%s requires a transfer but none was priced", resort.Name),
			Resolution: "Add the resort's arrival transfer to the leg.",
		})
	}

	for _, selection := range leg.Activities {
		activity, ok := port.Activity(selection.ActivityID)
		if !ok || activity.ResortID != resort.ID {
			b.Warn(audit.Warning{
				Code:    WarnComponentNotFound,
				Message: fmt.Sprintf("activity %s is not offered by %s", selection.ActivityID, resort.Name),
			})
			continue
		}
		if err := price(componentSpec{
			category: refdata.CategoryActivity,
			id:       string(activity.ID),
			name:     activity.Name,
			mode:     activity.Mode,
			rates:    activity.Rates,
			quantity: selection.Quantity,
			nights:   nights,
		}); err != nil {
			return nil, nil, err
		}
	}

	var festive []ComponentResult
	for _, supplement := range port.FestiveSupplements(resort.ID, leg.CheckIn, leg.CheckOut) {
		if !supplement.AppliesTo(room.ID) {
			continue
		}
		result, ok, err := priceComponent(ctx, componentSpec{
			category: refdata.CategoryFestiveSupplement,
			id:       string(supplement.ID),
			name:     supplement.Name,
			mode:     supplement.Mode,
			rates:    supplement.Rates,
			nights:   1,
		}, guests, b)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			festive = append(festive, result)
		}
	}
	return components, festive, nil
}
