package pricing

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// lookupNightlyRates resolves one season and one rate for every night in [checkIn, checkOut).
func lookupNightlyRates(ctx *CalculationContext, resort refdata.ResortID, room refdata.RoomTypeID, checkIn, checkOut civil.Date, b *audit.Builder) ([]NightlyRate, decimal.Decimal, *CalculationError) {
	port := ctx.Port()
	nights := checkOut.DaysSince(checkIn)
	out := make([]NightlyRate, 0, nights)
	total := decimal.Zero

	for date := checkIn; date.Before(checkOut); date = date.AddDays(1) {
		season, ok := port.SeasonForDate(resort, date)
		if !ok {
			return nil, decimal.Zero, newError(CodeSeasonNotFound, "no season covers %s at resort %s", date, resort)
		}
		rate, ok := port.RateFor(resort, room, season.ID, date)
		if !ok {
			return nil, decimal.Zero, newError(CodeRateNotFound, "no rate for room type %s in season %s on %s", room, season.ID, date)
		}
		amount, err := ctx.convertMoney(rate.Price)
		if err != nil {
			return nil, decimal.Zero, err
		}
		fx, _ := ctx.Rates().Rate(rate.Price.Currency)

		night := NightlyRate{
			Date:         date,
			SeasonID:     season.ID,
			SeasonName:   season.Name,
			RateID:       rate.ID,
			Original:     rate.Price,
			ExchangeRate: fx,
			Amount:       amount,
		}
		out = append(out, night)
		total = total.Add(amount)

		b.Record(audit.Entry{
			Type:        audit.StepNightlyRate,
			Description: "nightly rate resolved for " + date.String(),
			Inputs: map[string]any{
				"date":     date.String(),
				"seasonId": string(season.ID),
				"rateId":   string(rate.ID),
				"price":    rate.Price.Amount.String(),
				"currency": rate.Price.Currency,
			},
			Outputs: map[string]any{"exchangeRate": fx.String()},
			Amount:  &amount,
		})
	}
	return out, total, nil
}
