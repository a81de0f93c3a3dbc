package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

func withExtraCharges(records refdata.Records) refdata.Records {
	records.ExtraPersonCharges = []refdata.ExtraPersonCharge{
		{ID: "extra-adult", ResortID: "lagoon", GuestType: refdata.GuestAdult, Mode: refdata.PerPersonPerNight, Price: money.MustParse("50", "USD")},
		{ID: "extra-child", ResortID: "lagoon", GuestType: refdata.GuestChild, AgeBandID: "child", Mode: refdata.PerPersonPerNight, Price: money.MustParse("20", "USD")},
	}
	return records
}

func TestExtraAdultsAndChildrenAboveBaseOccupancy(t *testing.T) {
	calc := newTestCalculator(t, withExtraCharges(lagoonRecords()))

	leg := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 3, 5))).Legs[0]

	require.Len(t, leg.ExtraPersonCharges, 2)
	adults := leg.ExtraPersonCharges[0]
	require.Equal(t, refdata.GuestAdult, adults.GuestType)
	require.Equal(t, 1, adults.Count)
	requireAmount(t, "200", adults.Amount)
	child := leg.ExtraPersonCharges[1]
	require.Equal(t, refdata.GuestChild, child.GuestType)
	require.NotNil(t, child.Age)
	require.Equal(t, 5, *child.Age)
	require.Equal(t, "Child", child.AgeBandName)
	requireAmount(t, "80", child.Amount)
	requireAmount(t, "280", leg.ExtraPersonTotal)
	requireAmount(t, "1080", leg.PreTaxSubtotal)
}

func TestChildrenFillBaseOccupancyInBandOrder(t *testing.T) {
	calc := newTestCalculator(t, withExtraCharges(lagoonRecords()))

	// The infant takes the free base place because its band comes first, so the five-year-old pays.
	leg := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 1, 5, 0))).Legs[0]

	require.Len(t, leg.ExtraPersonCharges, 1)
	require.Equal(t, 5, *leg.ExtraPersonCharges[0].Age)
	require.Equal(t, refdata.ExtraPersonChargeID("extra-child"), leg.ExtraPersonCharges[0].ChargeID)
	requireAmount(t, "80", leg.ExtraPersonTotal)
	require.Len(t, leg.Children, 2)
	require.Equal(t, refdata.AgeBandID("child"), leg.Children[0].AgeBandID)
	require.Equal(t, refdata.AgeBandID("infant"), leg.Children[1].AgeBandID)
}

func TestRoomSpecificExtraChargeWins(t *testing.T) {
	records := withExtraCharges(lagoonRecords())
	records.ExtraPersonCharges = append(records.ExtraPersonCharges, refdata.ExtraPersonCharge{
		ID:         "deluxe-extra-adult",
		ResortID:   "lagoon",
		RoomTypeID: "deluxe",
		GuestType:  refdata.GuestAdult,
		Mode:       refdata.PerPerson,
		Price:      money.MustParse("75", "USD"),
	})
	calc := newTestCalculator(t, records)

	leg := mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 3))).Legs[0]

	require.Equal(t, refdata.ExtraPersonChargeID("deluxe-extra-adult"), leg.ExtraPersonCharges[0].ChargeID)
	requireAmount(t, "75", leg.ExtraPersonTotal)
}

func lagoonComponents(records refdata.Records) refdata.Records {
	records.MealPlans = []refdata.MealPlan{{
		ID:       "half-board",
		ResortID: "lagoon",
		Name:     "Half Board",
		Mode:     refdata.PerPersonPerNight,
		Rates: refdata.ComponentRates{
			Currency: "USD",
			Adult:    dec("30"),
			Children: map[refdata.AgeBandID]decimal.Decimal{"child": dec("15")},
		},
	}}
	records.Activities = []refdata.Activity{{
		ID:       "dive",
		ResortID: "lagoon",
		Name:     "Discovery Dive",
		Mode:     refdata.PerBooking,
		Rates:    refdata.ComponentRates{Currency: "USD", Flat: dec("100")},
	}}
	records.TransferTypes = []refdata.TransferType{{
		ID:       "speedboat",
		ResortID: "lagoon",
		Name:     "Speedboat",
		Mode:     refdata.PerRoomPerNight,
		Rates:    refdata.ComponentRates{Currency: "USD", Flat: dec("10")},
	}}
	records.FestiveSupplements = []refdata.FestiveSupplement{{
		ID:       "gala",
		ResortID: "lagoon",
		Name:     "Harvest Gala",
		Date:     day("2026-11-12"),
		Mode:     refdata.PerPerson,
		Rates: refdata.ComponentRates{
			Currency: "USD",
			Adult:    dec("90"),
			Children: map[refdata.AgeBandID]decimal.Decimal{"child": dec("45"), "infant": dec("0")},
		},
	}}
	return records
}

func TestComponentsPricedPerGuestGroup(t *testing.T) {
	records := lagoonComponents(lagoonRecords())
	records.Resorts[0].RequiresTransfer = true
	calc := newTestCalculator(t, records)

	req := stay("2026-11-10", "2026-11-14", 2, 0, 5)
	req.MealPlanID = "half-board"
	req.Activities = []ActivityRequest{{ActivityID: "dive", Quantity: 2}}
	result := mustCalculate(t, calc, quote(req))
	leg := result.Legs[0]

	require.Len(t, leg.Components, 2)
	meal := leg.Components[0]
	require.Equal(t, refdata.CategoryMealPlan, meal.Category)
	require.Len(t, meal.Rows, 3)
	require.Equal(t, GroupAdults, meal.Rows[0].Group)
	requireAmount(t, "240", meal.Rows[0].Amount)
	require.Equal(t, refdata.AgeBandID("infant"), meal.Rows[1].AgeBandID)
	require.True(t, meal.Rows[1].Complimentary)
	requireAmount(t, "0", meal.Rows[1].Amount)
	requireAmount(t, "60", meal.Rows[2].Amount)
	requireAmount(t, "300", meal.Amount)

	dive := leg.Components[1]
	require.Equal(t, refdata.CategoryActivity, dive.Category)
	require.Equal(t, 2, dive.Quantity)
	require.Len(t, dive.Rows, 1)
	require.Equal(t, GroupFlat, dive.Rows[0].Group)
	requireAmount(t, "200", dive.Amount)

	require.Len(t, leg.FestiveSupplements, 1)
	requireAmount(t, "225", leg.FestiveSupplements[0].Amount)

	requireAmount(t, "1525", leg.PreTaxSubtotal)
	require.Equal(t, []string{WarnMissingRequiredTransfer}, warningCodes(result.Warnings))
}

func TestFlatTransferIgnoresGuestCounts(t *testing.T) {
	records := lagoonComponents(lagoonRecords())
	records.Resorts[0].RequiresTransfer = true
	calc := newTestCalculator(t, records)

	for _, adults := range []int{1, 3} {
		req := stay("2026-11-10", "2026-11-14", adults)
		req.TransferTypeID = "speedboat"
		result := mustCalculate(t, calc, quote(req))
		transfer := result.Legs[0].Components[0]
		require.Equal(t, refdata.CategoryTransfer, transfer.Category)
		requireAmount(t, "40", transfer.Amount)
		require.Empty(t, result.Warnings)
	}
}

func TestFestiveSupplementOutsideStayNotCharged(t *testing.T) {
	records := lagoonComponents(lagoonRecords())
	calc := newTestCalculator(t, records)

	// Check-out day is not a night of the stay.
	leg := mustCalculate(t, calc, quote(stay("2026-11-09", "2026-11-12", 2))).Legs[0]
	require.Empty(t, leg.FestiveSupplements)

	records.FestiveSupplements[0].RoomTypeIDs = []refdata.RoomTypeID{"suite"}
	calc = newTestCalculator(t, records)
	leg = mustCalculate(t, calc, quote(stay("2026-11-10", "2026-11-14", 2))).Legs[0]
	require.Empty(t, leg.FestiveSupplements)
}

func TestUnknownComponentsWarn(t *testing.T) {
	calc := newTestCalculator(t, lagoonComponents(lagoonRecords()))

	req := stay("2026-11-10", "2026-11-14", 2)
	req.MealPlanID = "all-inclusive"
	req.Activities = []ActivityRequest{{ActivityID: "skydive"}}
	result := mustCalculate(t, calc, quote(req))

	require.Empty(t, result.Legs[0].Components)
	require.Equal(t, []string{WarnComponentNotFound, WarnComponentNotFound}, warningCodes(result.Warnings))
}
