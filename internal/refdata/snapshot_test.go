package refdata

import (
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/money"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func loadFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := LoadSnapshotFile("testdata/resorts.json")
	require.NoError(t, err)
	return snap
}

func TestFixtureLoads(t *testing.T) {
	snap := loadFixture(t)

	resort, ok := snap.Resort("azure-atoll")
	require.True(t, ok)
	require.True(t, resort.RequiresTransfer)
	require.Equal(t, "USD", resort.Currency)

	_, ok = snap.Resort("missing")
	require.False(t, ok)
}

func TestAgeBandsOrderedByMinAge(t *testing.T) {
	snap := loadFixture(t)
	bands := snap.AgeBands("azure-atoll")
	require.Len(t, bands, 3)
	require.Equal(t, AgeBandID("azure-infant"), bands[0].ID)
	require.Equal(t, AgeBandID("azure-child"), bands[1].ID)
	require.Equal(t, AgeBandID("azure-teen"), bands[2].ID)

	bands[0].Name = "mutated"
	require.Equal(t, "Infant", snap.AgeBands("azure-atoll")[0].Name)
}

func TestSeasonAndRateLookup(t *testing.T) {
	snap := loadFixture(t)

	season, ok := snap.SeasonForDate("azure-atoll", date("2026-12-19"))
	require.True(t, ok)
	require.Equal(t, SeasonID("azure-green"), season.ID)

	season, ok = snap.SeasonForDate("azure-atoll", date("2026-12-20"))
	require.True(t, ok)
	require.Equal(t, SeasonID("azure-peak"), season.ID)

	_, ok = snap.SeasonForDate("azure-atoll", date("2027-05-01"))
	require.False(t, ok)

	rate, ok := snap.RateFor("azure-atoll", "azure-beach-villa", "azure-peak", date("2026-12-25"))
	require.True(t, ok)
	require.True(t, rate.Price.Amount.Equal(money.MustParse("650", "USD").Amount))
}

func TestRateWindowNarrowsSeason(t *testing.T) {
	from := date("2026-11-10")
	records := minimalRecords()
	records.Rates = []Rate{
		{ID: "late", ResortID: "r", RoomTypeID: "room", SeasonID: "s", ValidFrom: &from, Price: money.MustParse("150", "USD")},
	}
	snap, err := NewSnapshot(records)
	require.NoError(t, err)

	_, ok := snap.RateFor("r", "room", "s", date("2026-11-09"))
	require.False(t, ok)
	_, ok = snap.RateFor("r", "room", "s", date("2026-11-10"))
	require.True(t, ok)
}

func TestStayScopedLookups(t *testing.T) {
	snap := loadFixture(t)

	festive := snap.FestiveSupplements("azure-atoll", date("2026-12-28"), date("2027-01-02"))
	require.Len(t, festive, 1)
	require.Empty(t, snap.FestiveSupplements("azure-atoll", date("2026-12-28"), date("2026-12-31")), "check-out date is exclusive")

	auto := snap.DiscountsForStay("azure-atoll", date("2027-02-01"))
	require.Len(t, auto, 1)
	require.Equal(t, DiscountID("azure-early-bird"), auto[0].ID)

	byCode, ok := snap.DiscountByCode("azure-atoll", " honey10 ")
	require.True(t, ok)
	require.Equal(t, DiscountID("azure-honeymoon"), byCode.ID)
	_, ok = snap.DiscountByCode("coral-cove", "HONEY10")
	require.False(t, ok)

	taxes := snap.TaxConfigs("azure-atoll", date("2027-02-01"))
	require.Len(t, taxes, 3)
	for i := 1; i < len(taxes); i++ {
		require.LessOrEqual(t, taxes[i-1].CalculationOrder, taxes[i].CalculationOrder)
	}

	charges := snap.ExtraPersonCharges("azure-atoll", "azure-water-villa")
	require.Len(t, charges, 3)
}

func TestTaxEffectiveWindow(t *testing.T) {
	from := date("2027-01-01")
	records := minimalRecords()
	records.TaxConfigs = []TaxConfig{
		{ID: "new-tax", ResortID: "r", Kind: TaxTourism, Method: TaxPercentage, AppliesTo: TaxBaseSubtotal, EffectiveFrom: &from},
	}
	snap, err := NewSnapshot(records)
	require.NoError(t, err)
	require.Empty(t, snap.TaxConfigs("r", date("2026-12-31")))
	require.Len(t, snap.TaxConfigs("r", date("2027-01-01")), 1)
}

func TestNewSnapshotReportsEveryProblem(t *testing.T) {
	records := minimalRecords()
	records.Seasons = append(records.Seasons, Season{ID: "s2", ResortID: "r", Start: date("2026-11-15"), End: date("2026-12-15")})
	records.AgeBands = []AgeBand{
		{ID: "a", ResortID: "r", MinAge: 0, MaxAge: 5},
		{ID: "b", ResortID: "r", MinAge: 5, MaxAge: 10},
	}
	records.Rates = append(records.Rates, Rate{ID: "orphan", ResortID: "r", RoomTypeID: "nope", SeasonID: "s", Price: money.MustParse("1", "USD")})

	_, err := NewSnapshot(records)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidSnapshot))
	msg := err.Error()
	require.True(t, strings.Contains(msg, `season "s2" overlaps "s"`), msg)
	require.True(t, strings.Contains(msg, `age band "b" overlaps "a"`), msg)
	require.True(t, strings.Contains(msg, `unknown room type "nope"`), msg)
}

func TestNewSnapshotChecksRecordFields(t *testing.T) {
	records := minimalRecords()
	records.RoomTypes[0].MaxOccupancy = 1
	records.AgeBands = []AgeBand{{ID: "odd", ResortID: "r", MinAge: 9, MaxAge: 4}}
	records.Seasons = append(records.Seasons, Season{ID: "backwards", ResortID: "r", Start: date("2027-02-01"), End: date("2027-01-01")})
	records.Rates[0].Price = money.MustParse("-5", "")
	records.MealPlans = []MealPlan{{ID: "board", ResortID: "r", Name: "Board"}}

	_, err := NewSnapshot(records)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidSnapshot))
	msg := err.Error()
	for _, want := range []string{
		`room type "room": maxOccupancy must not be below BaseOccupancy`,
		`age band "odd": maxAge must not be below MinAge`,
		`season "backwards": end must be a valid date on or after start`,
		`rate "rate": price.amount must be at least 0`,
		`rate "rate": missing price.currency`,
		`meal plan "board": invalid mode`,
		`meal plan "board": missing rates.currency`,
	} {
		require.Contains(t, msg, want)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader(`{"resorts": [], "hotels": []}`))
	require.Error(t, err)
}

func TestEnumTextRoundTrip(t *testing.T) {
	var mode PricingMode
	require.NoError(t, mode.UnmarshalText([]byte("PER_ROOM_PER_NIGHT")))
	require.Equal(t, PerRoomPerNight, mode)
	require.True(t, mode.IsFlat())

	require.Error(t, mode.UnmarshalText([]byte("per_fortnight")))

	_, err := PricingModeUnknown.MarshalText()
	require.Error(t, err)
}

func TestMarkupExclusions(t *testing.T) {
	cfg := MarkupConfig{ExcludedCategories: []LineItemCategory{CategoryTransfer}}
	require.True(t, cfg.Excludes(CategoryPassThroughTax))
	require.True(t, cfg.Excludes(CategoryServiceCharge))
	require.True(t, cfg.Excludes(CategoryTransfer))
	require.False(t, cfg.Excludes(CategoryRoom))

	cfg.MarkupOnTaxes = true
	require.True(t, cfg.Excludes(CategoryPassThroughTax))
	require.False(t, cfg.Excludes(CategoryGoodsServicesTax))
}

func TestDiscountBaseMembership(t *testing.T) {
	require.True(t, DiscountBaseRoomOnly.Includes(CategoryRoom))
	require.True(t, DiscountBaseRoomOnly.Includes(CategoryExtraPerson))
	require.False(t, DiscountBaseRoomOnly.Includes(CategoryMealPlan))
	require.True(t, DiscountBaseAllPreTax.Includes(CategoryActivity))
	require.False(t, DiscountBaseAllPreTax.Includes(CategoryServiceCharge))
}

func minimalRecords() Records {
	return Records{
		Resorts:   []Resort{{ID: "r", Name: "R", Currency: "USD"}},
		RoomTypes: []RoomType{{ID: "room", ResortID: "r", BaseOccupancy: 2, MaxAdults: 2, MaxChildren: 1, MaxOccupancy: 3}},
		Seasons:   []Season{{ID: "s", ResortID: "r", Start: date("2026-11-01"), End: date("2026-11-30")}},
		Rates:     []Rate{{ID: "rate", ResortID: "r", RoomTypeID: "room", SeasonID: "s", Price: money.MustParse("100", "USD")}},
	}
}
