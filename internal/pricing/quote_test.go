package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

func TestSingleLegPercentageMarkup(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	result := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 2)))

	require.True(t, result.Success)
	require.Equal(t, "calc-test", result.CalculationID)
	require.Len(t, result.Legs, 1)
	leg := result.Legs[0]
	require.Equal(t, 4, leg.Nights)
	require.Len(t, leg.NightlyRates, 4)
	requireAmount(t, "800", leg.RoomCost)
	requireAmount(t, "80", leg.Markup.Amount)
	require.Equal(t, MarkupFromResortPercentage, leg.Markup.Source)
	requireAmount(t, "800", leg.Totals.Cost)
	requireAmount(t, "80", leg.Totals.Markup)
	requireAmount(t, "880", leg.Totals.Sell)

	requireAmount(t, "800", result.Totals.Combined.Cost)
	requireAmount(t, "80", result.Totals.Combined.Markup)
	requireAmount(t, "880", result.Totals.Combined.Sell)
	requireAmount(t, "9.09", result.Totals.MarginPercentage.Decimal())
	requireAmount(t, "0", result.Totals.TotalTaxes)
	require.Empty(t, result.Warnings)
}

func TestQuoteLevelMarkupOverride(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())
	req := quote(stay("2026-11-10", "2026-11-14", 2))
	req.QuoteMarkup = &QuoteMarkupOverride{Amount: dec("150"), Reason: "agent negotiated"}

	result := mustCalculate(t, calc, req)

	leg := result.Legs[0]
	require.Equal(t, MarkupFromQuoteOverride, leg.Markup.Source)
	requireAmount(t, "0", leg.Totals.Markup)
	requireAmount(t, "800", leg.Totals.Sell)
	for _, line := range leg.LineItems {
		requireAmount(t, "0", line.Pricing.Markup, line.Description)
		require.True(t, line.Pricing.Cost.Equal(line.Pricing.Sell))
	}
	require.NotNil(t, result.QuoteMarkup)
	requireAmount(t, "150", result.QuoteMarkup.Amount)
	require.Equal(t, "agent negotiated", result.QuoteMarkup.Reason)
	requireAmount(t, "150", result.Totals.QuoteMarkup)
	requireAmount(t, "800", result.Totals.Combined.Cost)
	requireAmount(t, "950", result.Totals.Combined.Sell)
}

func TestOccupancyViolationFailsWithoutPartialResult(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	result, err := mustFail(t, calc, quote(stay("2026-11-10", "2026-11-14", 5)), CodeInvalidOccupancy)

	require.Contains(t, err.Details, "adults 5 exceeds maximum 4")
	require.True(t, errors.Is(err, ErrInvalidOccupancy))
	require.NotNil(t, err.LegIndex)
	require.Equal(t, 0, *err.LegIndex)

	require.False(t, result.Success)
	require.Empty(t, result.Legs)
	require.Empty(t, result.Transfers)
	requireAmount(t, "0", result.Totals.Combined.Sell)
	requireAmount(t, "0", result.Totals.Combined.Cost)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, audit.SeverityBlocking, result.Warnings[0].Severity)
	require.Equal(t, string(CodeInvalidOccupancy), result.Warnings[0].Code)
	require.NotEmpty(t, result.Warnings[0].Resolution)
	fatal := result.Audit[len(result.Audit)-1]
	require.Equal(t, audit.StepFatal, fatal.Type)
	require.NotNil(t, fatal.LegIndex)
	require.Equal(t, 0, *fatal.LegIndex)
}

func TestAuditInputsDetachedFromRequest(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())
	leg := stay("2026-11-10", "2026-11-14", 2, 5)
	result := mustCalculate(t, calc, quote(leg))

	leg.ChildAges[0] = 11
	var resolved *audit.Step
	for i := range result.Audit {
		if result.Audit[i].Type == audit.StepEntityResolved {
			resolved = &result.Audit[i]
			break
		}
	}
	require.NotNil(t, resolved)
	require.Equal(t, []int{5}, resolved.Inputs["childAges"])
}

func TestSeasonGapIsFatal(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	_, err := mustFail(t, calc, quote(stay("2026-11-29", "2026-12-02", 2)), CodeSeasonNotFound)
	require.Contains(t, err.Message, "2026-12-01")
}

func TestRateMissingForSeasonIsFatal(t *testing.T) {
	records := lagoonRecords()
	records.Seasons = append(records.Seasons, refdata.Season{ID: "dec", ResortID: "lagoon", Name: "December", Start: day("2026-12-01"), End: day("2026-12-31")})
	calc := newTestCalculator(t, records)

	mustFail(t, calc, quote(stay("2026-11-29", "2026-12-02", 2)), CodeRateNotFound)
}

func TestEveryNightResolvesOneRate(t *testing.T) {
	records := lagoonRecords()
	records.Seasons = append(records.Seasons, refdata.Season{ID: "dec", ResortID: "lagoon", Name: "December", Start: day("2026-12-01"), End: day("2026-12-31")})
	records.Rates = append(records.Rates, refdata.Rate{ID: "deluxe-dec", ResortID: "lagoon", RoomTypeID: "deluxe", SeasonID: "dec", Price: money.MustParse("350", "USD")})
	calc := newTestCalculator(t, records)

	result := mustCalculate(t, calc, quote(stay("2026-11-29", "2026-12-02", 2)))

	leg := result.Legs[0]
	require.Len(t, leg.NightlyRates, 3)
	require.Equal(t, refdata.SeasonID("nov"), leg.NightlyRates[0].SeasonID)
	require.Equal(t, refdata.SeasonID("nov"), leg.NightlyRates[1].SeasonID)
	require.Equal(t, refdata.SeasonID("dec"), leg.NightlyRates[2].SeasonID)
	requireAmount(t, "750", leg.RoomCost)
}

func TestManualRatesConvertForeignPrices(t *testing.T) {
	records := lagoonRecords()
	records.Rates[0].Price = money.MustParse("180", "EUR")
	calc := newTestCalculator(t, records)

	req := quote(stay("2026-11-10", "2026-11-14", 2))
	req.ManualRates = map[string]decimal.Decimal{"EUR": dec("1.1")}
	result := mustCalculate(t, calc, req)

	require.Equal(t, money.RateSourceManual, result.ExchangeRates.Source)
	require.Equal(t, "1.1", result.ExchangeRates.Rates["EUR"])
	requireAmount(t, "198", result.Legs[0].NightlyRates[0].Amount)
	requireAmount(t, "792", result.Legs[0].RoomCost)
}

func TestDefaultRatesAreRebasedOntoQuoteCurrency(t *testing.T) {
	records := lagoonRecords()
	records.Rates[0].Price = money.MustParse("100", "EUR")
	calc := newTestCalculator(t, records, func(cfg *CalculatorConfig) {
		cfg.DefaultRates = money.RateTable{"USD": dec("1"), "EUR": dec("1.25")}
	})

	result := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-12", 2)))

	require.Equal(t, money.RateSourceSystemDefault, result.ExchangeRates.Source)
	requireAmount(t, "250", result.Legs[0].RoomCost)
}

func TestUnlockedCurrencyIsFatal(t *testing.T) {
	records := lagoonRecords()
	records.Rates[0].Price = money.MustParse("180", "EUR")
	calc := newTestCalculator(t, records)

	mustFail(t, calc, quote(stay("2026-11-10", "2026-11-14", 2)), CodeCurrencyConversion)
}

func TestInvalidRequestsAreRejected(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	backwards := stay("2026-11-14", "2026-11-10", 2)
	_, err := mustFail(t, calc, quote(backwards), CodeInvalidInput)
	require.Contains(t, err.Details, "check-out must be after check-in")

	mustFail(t, calc, quote(), CodeInvalidInput)

	noAdults := stay("2026-11-10", "2026-11-14", 0, 5)
	mustFail(t, calc, quote(noAdults), CodeInvalidInput)

	noCurrency := quote(stay("2026-11-10", "2026-11-14", 2))
	noCurrency.Currency = ""
	mustFail(t, calc, noCurrency, CodeInvalidInput)
}

func TestUnknownReferenceDataIsFatal(t *testing.T) {
	records := lagoonRecords()
	records.Resorts = append(records.Resorts, refdata.Resort{ID: "reef", Name: "Reef Lodge", Currency: "USD"})
	calc := newTestCalculator(t, records)

	unknownResort := stay("2026-11-10", "2026-11-14", 2)
	unknownResort.ResortID = "nowhere"
	mustFail(t, calc, quote(unknownResort), CodeReferenceDataMissing)

	wrongResort := stay("2026-11-10", "2026-11-14", 2)
	wrongResort.ResortID = "reef"
	mustFail(t, calc, quote(wrongResort), CodeReferenceDataMissing)
}

func TestChildOutsideAgeBandsIsFatal(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	_, err := mustFail(t, calc, quote(stay("2026-11-10", "2026-11-14", 2, 15)), CodeInvalidOccupancy)
	require.Contains(t, err.Details, "no age band covers child age 15")
}

func TestValidUntilDefaultsFromBookingDate(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords(), func(cfg *CalculatorConfig) { cfg.ValidityDays = 7 })

	result := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 2)))
	require.Equal(t, day("2026-10-01"), result.BookingDate)
	require.NotNil(t, result.ValidUntil)
	require.Equal(t, day("2026-10-08"), *result.ValidUntil)

	req := quote(stay("2026-11-10", "2026-11-14", 2))
	until := day("2026-10-20")
	booked := day("2026-09-15")
	req.ValidUntil, req.BookingDate = &until, &booked
	result = mustCalculate(t, calc, req)
	require.Equal(t, booked, result.BookingDate)
	require.Equal(t, until, *result.ValidUntil)
}

func TestAuditTrailIsNumberedAcrossLegs(t *testing.T) {
	records := lagoonRecords()
	records.Resorts = append(records.Resorts, refdata.Resort{ID: "reef", Name: "Reef Lodge", Currency: "USD"})
	records.RoomTypes = append(records.RoomTypes, refdata.RoomType{ID: "reef-room", ResortID: "reef", Name: "Reef Room", BaseOccupancy: 2, MaxAdults: 2, MaxChildren: 0, MaxOccupancy: 2})
	records.Seasons = append(records.Seasons, refdata.Season{ID: "reef-nov", ResortID: "reef", Name: "November", Start: day("2026-11-01"), End: day("2026-11-30")})
	records.Rates = append(records.Rates, refdata.Rate{ID: "reef-room-nov", ResortID: "reef", RoomTypeID: "reef-room", SeasonID: "reef-nov", Price: money.MustParse("100", "USD")})
	calc := newTestCalculator(t, records)

	second := stay("2026-11-14", "2026-11-16", 2)
	second.ResortID, second.RoomTypeID = "reef", "reef-room"
	result := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 2), second))

	require.NotEmpty(t, result.Audit)
	require.Equal(t, audit.StepRatesLocked, result.Audit[0].Type)
	seenLegs := map[int]bool{}
	for i, step := range result.Audit {
		require.Equal(t, i+1, step.Number)
		if step.LegIndex != nil {
			seenLegs[*step.LegIndex] = true
		}
	}
	require.Equal(t, map[int]bool{0: true, 1: true}, seenLegs)
	require.Equal(t, audit.StepVerification, result.Audit[len(result.Audit)-1].Type)

	// Second leg has no markup config.
	require.Equal(t, MarkupNotConfigured, result.Legs[1].Markup.Source)
	requireAmount(t, "200", result.Legs[1].Totals.Sell)
	requireAmount(t, "1000", result.Totals.Combined.Cost)
	requireAmount(t, "80", result.Totals.Combined.Markup)
}

func TestNegativeSellIsFatal(t *testing.T) {
	records := lagoonRecords()
	records.Discounts = []refdata.Discount{
		{ID: "sixty-a", ResortID: "lagoon", Name: "Sixty A", Code: "SIXTYA", Type: refdata.DiscountPercentage, Value: dec("60"), Base: refdata.DiscountBaseAllPreTax, Stackable: true},
		{ID: "sixty-b", ResortID: "lagoon", Name: "Sixty B", Code: "SIXTYB", Type: refdata.DiscountPercentage, Value: dec("60"), Base: refdata.DiscountBaseAllPreTax, Stackable: true},
	}
	calc := newTestCalculator(t, records)

	leg := stay("2026-11-10", "2026-11-14", 2)
	leg.DiscountCodes = []string{"SIXTYA", "SIXTYB"}
	mustFail(t, calc, quote(leg), CodeNegativeFinalAmount)
}

func TestResultUnwrap(t *testing.T) {
	calc := newTestCalculator(t, lagoonRecords())

	value, err := calc.Calculate(quote(stay("2026-11-10", "2026-11-14", 2))).Unwrap()
	require.NoError(t, err)
	require.True(t, value.Success)

	_, err = calc.Calculate(quote(stay("2026-11-10", "2026-11-14", 5))).Unwrap()
	require.ErrorIs(t, err, ErrInvalidOccupancy)
	require.NotErrorIs(t, err, ErrSeasonNotFound)
}

func TestFixtureItinerary(t *testing.T) {
	snap, err := refdata.LoadSnapshotFile("../refdata/testdata/resorts.json")
	require.NoError(t, err)
	calc := NewCalculator(CalculatorConfig{Port: snap, Now: func() time.Time { return testNow }})

	booked := day("2026-08-01")
	req := QuoteRequest{
		Client:      ClientInfo{Name: "Kai Tanaka", Email: "kai@example.com", AgentReference: "AG-1042"},
		Currency:    "USD",
		BookingDate: &booked,
		ManualRates: map[string]decimal.Decimal{"EUR": dec("1.1")},
		Legs: []LegRequest{
			{
				ResortID:       "azure-atoll",
				RoomTypeID:     "azure-beach-villa",
				CheckIn:        day("2026-11-10"),
				CheckOut:       day("2026-11-14"),
				Adults:         2,
				MealPlanID:     "azure-half-board",
				TransferTypeID: "azure-seaplane",
			},
			{
				ResortID:   "coral-cove",
				RoomTypeID: "coral-garden-room",
				CheckIn:    day("2026-11-14"),
				CheckOut:   day("2026-11-17"),
				Adults:     2,
			},
		},
		Transfers: []InterResortTransferRequest{{TransferTypeID: "inter-speedboat"}},
	}

	result := mustCalculate(t, calc, req)
	require.Empty(t, result.Warnings)

	azure := result.Legs[0]
	requireAmount(t, "1600", azure.RoomCost)
	requireAmount(t, "3580", azure.PreTaxSubtotal)
	require.Len(t, azure.Discounts, 1)
	require.Equal(t, refdata.DiscountID("azure-early-bird"), azure.Discounts[0].DiscountID)
	requireAmount(t, "240", azure.DiscountTotal)
	requireAmount(t, "3340", azure.PostDiscountSubtotal)
	requireAmount(t, "334", taxByID(t, azure, "azure-service").Amount)
	gst := taxByID(t, azure, "azure-gst")
	requireAmount(t, "3674", gst.Base)
	requireAmount(t, "624.58", gst.Amount)
	requireAmount(t, "48", taxByID(t, azure, "azure-green-tax").Amount)
	requireAmount(t, "1006.58", azure.TaxTotal)
	requireAmount(t, "400.8", azure.Totals.Markup)
	requireAmount(t, "4346.58", azure.Totals.Cost)

	coral := result.Legs[1]
	requireAmount(t, "594", coral.RoomCost)
	requireAmount(t, "29.7", coral.TaxTotal)
	require.Equal(t, MarkupFromResortFixed, coral.Markup.Source)
	requireAmount(t, "220", coral.Totals.Markup)

	require.Len(t, result.Transfers, 1)
	hop := result.Transfers[0]
	require.Equal(t, 0, hop.FromLeg)
	require.Equal(t, 1, hop.ToLeg)
	require.Equal(t, refdata.MarkupConfigID("coral-markup"), hop.MarkupConfigID)
	requireAmount(t, "300", hop.Pricing.Cost)
	requireAmount(t, "0", hop.Pricing.Markup)

	requireAmount(t, "5270.28", result.Totals.Combined.Cost)
	requireAmount(t, "620.8", result.Totals.Combined.Markup)
	requireAmount(t, "5891.08", result.Totals.Combined.Sell)
	requireAmount(t, "10.54", result.Totals.MarginPercentage.Decimal())
	requireAmount(t, "1036.28", result.Totals.TotalTaxes)
	require.Len(t, result.TaxBreakdown, 4)
	require.Equal(t, refdata.TaxServiceCharge, result.TaxBreakdown[0].Kind)
}
