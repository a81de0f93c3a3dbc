package money

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundIsIdempotent(t *testing.T) {
	for _, raw := range []string{"0", "1.005", "2.675", "-3.14159", "9.0909090909", "880", "0.004999"} {
		v := decimal.RequireFromString(raw)
		once := Round(v)
		require.True(t, once.Equal(Round(once)), "round twice differs for %s", raw)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	require.Equal(t, "1.01", Round(decimal.RequireFromString("1.005")).StringFixed(2))
	require.Equal(t, "-1.01", Round(decimal.RequireFromString("-1.005")).StringFixed(2))
}

func TestPercentageOfAndPercentOf(t *testing.T) {
	ten := MustPercentage("10")
	require.True(t, ten.Of(decimal.NewFromInt(800)).Equal(decimal.NewFromInt(80)))

	margin := PercentOf(decimal.NewFromInt(80), decimal.NewFromInt(880))
	require.Equal(t, "9.09", margin.Rounded().Decimal().StringFixed(2))
	require.True(t, PercentOf(decimal.NewFromInt(5), decimal.Zero).IsZero())
}

func TestWithinTolerance(t *testing.T) {
	require.True(t, WithinTolerance(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.01")))
	require.False(t, WithinTolerance(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.02")))
}

func TestLockRatesManual(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	locked, err := LockRates("usd", map[string]decimal.Decimal{
		"eur": decimal.RequireFromString("1.10"),
		"USD": decimal.RequireFromString("3"),
	}, RateTable{"MVR": decimal.RequireFromString("0.065")}, now)
	require.NoError(t, err)
	require.Equal(t, RateSourceManual, locked.Source())
	require.Equal(t, "USD", locked.Currency())
	require.Equal(t, now, locked.LockedAt())

	usd, ok := locked.Rate("USD")
	require.True(t, ok)
	require.True(t, usd.Equal(decimal.NewFromInt(1)))

	converted, err := locked.Convert(decimal.NewFromInt(100), "EUR")
	require.NoError(t, err)
	require.True(t, converted.Equal(decimal.NewFromInt(110)))

	_, err = locked.Convert(decimal.NewFromInt(100), "MVR")
	require.True(t, errors.Is(err, ErrCurrencyNotLocked))
}

func TestLockRatesRebasesDefaults(t *testing.T) {
	defaults, err := ParseRateTable("USD:1, EUR:1.25, MVR:0.0625")
	require.NoError(t, err)

	locked, err := LockRates("EUR", nil, defaults, time.Now())
	require.NoError(t, err)
	require.Equal(t, RateSourceSystemDefault, locked.Source())

	usd, ok := locked.Rate("USD")
	require.True(t, ok)
	require.Equal(t, "0.8", usd.String())

	converted, err := locked.ConvertMoney(MustParse("1000", "MVR"))
	require.NoError(t, err)
	require.Equal(t, "50", converted.String())
}

func TestLockRatesRejectsBadInput(t *testing.T) {
	_, err := LockRates("", nil, nil, time.Now())
	require.ErrorIs(t, err, ErrQuoteCurrencyRequired)

	_, err = LockRates("USD", map[string]decimal.Decimal{"EUR": decimal.Zero}, nil, time.Now())
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRateTable("USD=1")
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestLockRatesWithoutDefaultsOnlyQuoteCurrency(t *testing.T) {
	locked, err := LockRates("USD", nil, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, locked.Rates(), 1)
	view := locked.View()
	require.Equal(t, "1", view.Rates["USD"])
}
