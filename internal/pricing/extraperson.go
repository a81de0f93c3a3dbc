package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// extraPersonOutcome is the result of the extra-person stage.
type extraPersonOutcome struct {
	rows  []ExtraPersonResult
	total decimal.Decimal
}

// chargeExtraPersons validates occupancy and charges every guest above the room's base occupancy. Adults use
// the base allowance first; children then take what is left in age-band order.
func chargeExtraPersons(ctx *CalculationContext, room refdata.RoomType, guests GuestCounts, nights int, b *audit.Builder) (extraPersonOutcome, *CalculationError) {
	if err := validateOccupancy(room, guests); err != nil {
		return extraPersonOutcome{}, err
	}
	b.Record(audit.Entry{
		Type:        audit.StepOccupancyValidated,
		Description: "occupancy within room limits",
		Inputs: map[string]any{
			"adults":        guests.Adults,
			"children":      guests.ChildCount(),
			"baseOccupancy": room.BaseOccupancy,
			"maxOccupancy":  room.MaxOccupancy,
		},
	})

	charges := ctx.Port().ExtraPersonCharges(room.ResortID, room.ID)
	remaining := room.BaseOccupancy
	out := extraPersonOutcome{total: decimal.Zero}

	extraAdults := guests.Adults - remaining
	if extraAdults < 0 {
		extraAdults = 0
	}
	remaining -= guests.Adults - extraAdults
	if extraAdults > 0 {
		row, err := priceExtraGroup(ctx, findCharge(charges, room.ID, refdata.GuestAdult, ""), refdata.GuestAdult, extraAdults, nights)
		if err != nil {
			return extraPersonOutcome{}, err
		}
		out.add(row)
		recordExtra(b, fmt.Sprintf("%d extra adult(s)", extraAdults), row)
	}

	for _, band := range guests.Bands {
		inBase := min(remaining, band.Count())
		remaining -= inBase
		extra := band.Ages[inBase:]
		if len(extra) == 0 {
			continue
		}
		charge := findCharge(charges, room.ID, refdata.GuestChild, band.Band.ID)
		var bandTotal decimal.Decimal
		for _, age := range extra {
			row, err := priceExtraGroup(ctx, charge, refdata.GuestChild, 1, nights)
			if err != nil {
				return extraPersonOutcome{}, err
			}
			childAge := age
			row.Age = &childAge
			row.AgeBandID = band.Band.ID
			row.AgeBandName = band.Band.Name
			out.add(row)
			bandTotal = bandTotal.Add(row.Amount)
		}
		b.Record(audit.Entry{
			Type:        audit.StepExtraPersonCharge,
			Description: fmt.Sprintf("%d extra child(ren) in band %s", len(extra), band.Band.Name),
			Inputs:      map[string]any{"ageBandId": string(band.Band.ID), "extraChildren": len(extra), "chargeConfigured": charge != nil},
			Amount:      &bandTotal,
		})
	}
	return out, nil
}

func (o *extraPersonOutcome) add(row ExtraPersonResult) {
	o.rows = append(o.rows, row)
	o.total = o.total.Add(row.Amount)
}

// findCharge prefers a room-specific charge over a resort-wide one. For children a band-specific charge is
// preferred over one without a band.
func findCharge(charges []refdata.ExtraPersonCharge, room refdata.RoomTypeID, guest refdata.GuestType, band refdata.AgeBandID) *refdata.ExtraPersonCharge {
	var best *refdata.ExtraPersonCharge
	bestScore := -1
	for i := range charges {
		c := &charges[i]
		if c.GuestType != guest {
			continue
		}
		if c.RoomTypeID != "" && c.RoomTypeID != room {
			continue
		}
		if guest == refdata.GuestChild && c.AgeBandID != "" && c.AgeBandID != band {
			continue
		}
		score := 0
		if c.RoomTypeID == room {
			score += 2
		}
		if band != "" && c.AgeBandID == band {
			score++
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// priceExtraGroup charges count guests under charge. Only per-person modes apply to extra persons; any other
// mode, or a missing charge, yields a zero row.
func priceExtraGroup(ctx *CalculationContext, charge *refdata.ExtraPersonCharge, guest refdata.GuestType, count, nights int) (ExtraPersonResult, *CalculationError) {
	row := ExtraPersonResult{GuestType: guest, Count: count, UnitAmount: decimal.Zero, Amount: decimal.Zero}
	if charge == nil {
		return row, nil
	}
	row.ChargeID = charge.ID
	row.Mode = charge.Mode
	unit, err := ctx.convertMoney(charge.Price)
	if err != nil {
		return ExtraPersonResult{}, err
	}
	row.UnitAmount = unit

	switch charge.Mode {
	case refdata.PerPersonPerNight:
		row.Nights = nights
		row.Amount = unit.Mul(decimal.NewFromInt(int64(count * nights)))
	case refdata.PerPerson, refdata.PerStay:
		row.Nights = nights
		row.Amount = unit.Mul(decimal.NewFromInt(int64(count)))
	case refdata.PerRoomPerNight, refdata.PerBooking, refdata.PerTrip, refdata.PricingModeUnknown:
		row.Amount = decimal.Zero
	}
	return row, nil
}

func recordExtra(b *audit.Builder, description string, row ExtraPersonResult) {
	amount := row.Amount
	b.Record(audit.Entry{
		Type:        audit.StepExtraPersonCharge,
		Description: description,
		Inputs: map[string]any{
			"guestType": row.GuestType.String(),
			"count":     row.Count,
			"mode":      row.Mode.String(),
			"unit":      row.UnitAmount.String(),
			"nights":    row.Nights,
		},
		Amount: &amount,
	})
}
