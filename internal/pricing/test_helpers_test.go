package pricing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

var testNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// lagoonRecords is a single USD resort: one room type at 200 a night through November 2026 and a 10% markup.
func lagoonRecords() refdata.Records {
	return refdata.Records{
		Resorts: []refdata.Resort{{ID: "lagoon", Name: "Lagoon Resort", Currency: "USD"}},
		RoomTypes: []refdata.RoomType{{
			ID:            "deluxe",
			ResortID:      "lagoon",
			Name:          "Deluxe Room",
			BaseOccupancy: 2,
			MaxAdults:     4,
			MaxChildren:   2,
			MaxOccupancy:  4,
		}},
		AgeBands: []refdata.AgeBand{
			{ID: "infant", ResortID: "lagoon", Name: "Infant", MinAge: 0, MaxAge: 1},
			{ID: "child", ResortID: "lagoon", Name: "Child", MinAge: 2, MaxAge: 11},
		},
		Seasons: []refdata.Season{{ID: "nov", ResortID: "lagoon", Name: "November", Start: day("2026-11-01"), End: day("2026-11-30")}},
		Rates: []refdata.Rate{{
			ID:         "deluxe-nov",
			ResortID:   "lagoon",
			RoomTypeID: "deluxe",
			SeasonID:   "nov",
			Price:      money.MustParse("200", "USD"),
		}},
		MarkupConfigs: []refdata.MarkupConfig{{ID: "lagoon-markup", ResortID: "lagoon", Type: refdata.MarkupPercentage, Value: dec("10")}},
	}
}

func newTestCalculator(t *testing.T, records refdata.Records, opts ...func(*CalculatorConfig)) *Calculator {
	t.Helper()
	snap, err := refdata.NewSnapshot(records)
	require.NoError(t, err)
	cfg := CalculatorConfig{
		Port:  snap,
		Now:   func() time.Time { return testNow },
		NewID: func() string { return "calc-test" },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewCalculator(cfg)
}

func stay(checkIn, checkOut string, adults int, childAges ...int) LegRequest {
	return LegRequest{
		ResortID:   "lagoon",
		RoomTypeID: "deluxe",
		CheckIn:    day(checkIn),
		CheckOut:   day(checkOut),
		Adults:     adults,
		ChildAges:  childAges,
	}
}

func quote(legs ...LegRequest) QuoteRequest {
	return QuoteRequest{
		Client:   ClientInfo{Name: "Ana Souza", Email: "ana@example.com"},
		Currency: "USD",
		Legs:     legs,
	}
}

func mustCalculate(t *testing.T, calc *Calculator, req QuoteRequest) QuoteCalculationResult {
	t.Helper()
	res := calc.Calculate(req)
	require.Truef(t, res.IsOk(), "calculation failed: %v", res.Err())
	return res.Value()
}

func mustFail(t *testing.T, calc *Calculator, req QuoteRequest, code ErrorCode) (QuoteCalculationResult, *CalculationError) {
	t.Helper()
	res := calc.Calculate(req)
	require.False(t, res.IsOk())
	require.Equal(t, code, res.Err().Code)
	return res.Value(), res.Err()
}

func warningCodes(warnings []audit.Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func taxByID(t *testing.T, leg LegCalculationResult, id refdata.TaxConfigID) TaxResult {
	t.Helper()
	for _, tax := range leg.Taxes {
		if tax.TaxConfigID == id {
			return tax
		}
	}
	t.Fatalf("tax %s not applied", id)
	return TaxResult{}
}
