package pricing

import (
	"fmt"
	"strings"
)

// ErrorCode is the closed set of fatal calculation failures.
type ErrorCode string

const (
	CodeSeasonNotFound       ErrorCode = "SEASON_NOT_FOUND"
	CodeRateNotFound         ErrorCode = "RATE_NOT_FOUND"
	CodeCurrencyConversion   ErrorCode = "CURRENCY_CONVERSION_FAILED"
	CodeInvalidTaxConfig     ErrorCode = "INVALID_TAX_CONFIGURATION"
	CodeInvalidMarkupConfig  ErrorCode = "INVALID_MARKUP_CONFIGURATION"
	CodeTotalsVerification   ErrorCode = "TOTALS_VERIFICATION_FAILED"
	CodeNegativeFinalAmount  ErrorCode = "NEGATIVE_FINAL_AMOUNT"
	CodeInvalidOccupancy     ErrorCode = "INVALID_OCCUPANCY"
	CodeReferenceDataMissing ErrorCode = "REFERENCE_DATA_MISSING"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
)

// Warning codes for conditions that never abort a calculation.
const (
	WarnDiscountNotEligible      = "DISCOUNT_NOT_ELIGIBLE"
	WarnDiscountCapped           = "DISCOUNT_CAPPED"
	WarnDiscountCodeNotFound     = "DISCOUNT_CODE_NOT_FOUND"
	WarnDiscountStackingConflict = "DISCOUNT_STACKING_CONFLICT"
	WarnMissingRequiredTransfer  = "MISSING_REQUIRED_TRANSFER"
	WarnComponentNotFound        = "COMPONENT_NOT_FOUND"
	WarnTransferIgnored          = "TRANSFER_IGNORED"
)

var resolutions = map[ErrorCode]string{
	CodeSeasonNotFound:       "Add a season covering every night of the stay or adjust the travel dates.",
	CodeRateNotFound:         "Load a rate for the room type in the affected season or choose another room type.",
	CodeCurrencyConversion:   "Supply a manual exchange rate for the missing currency or extend the default rate table.",
	CodeInvalidTaxConfig:     "Correct the resort's tax configuration (method, base and a non-negative rate).",
	CodeInvalidMarkupConfig:  "Correct the resort's markup configuration; percentages must not be negative.",
	CodeTotalsVerification:   "Totals failed reconciliation; report the calculation id to engineering.",
	CodeNegativeFinalAmount:  "Review discounts and overrides; the quote cannot be sold below zero.",
	CodeInvalidOccupancy:     "Reduce the party size or choose a room type that accommodates it.",
	CodeReferenceDataMissing: "Check the resort and room type identifiers against the current reference data.",
	CodeInvalidInput:         "Correct the request fields listed in the message.",
}

// Resolution returns the default operator hint for the code.
func (c ErrorCode) Resolution() string { return resolutions[c] }

// CalculationError is a fatal engine failure. Sentinels below match any error carrying the same code:
//
//	errors.Is(err, pricing.ErrSeasonNotFound)
type CalculationError struct {
	Code       ErrorCode
	Message    string
	Resolution string
	LegIndex   *int
	Details    []string
	Err        error
}

var (
	ErrSeasonNotFound       = &CalculationError{Code: CodeSeasonNotFound}
	ErrRateNotFound         = &CalculationError{Code: CodeRateNotFound}
	ErrCurrencyConversion   = &CalculationError{Code: CodeCurrencyConversion}
	ErrInvalidTaxConfig     = &CalculationError{Code: CodeInvalidTaxConfig}
	ErrInvalidMarkupConfig  = &CalculationError{Code: CodeInvalidMarkupConfig}
	ErrTotalsVerification   = &CalculationError{Code: CodeTotalsVerification}
	ErrNegativeFinalAmount  = &CalculationError{Code: CodeNegativeFinalAmount}
	ErrInvalidOccupancy     = &CalculationError{Code: CodeInvalidOccupancy}
	ErrReferenceDataMissing = &CalculationError{Code: CodeReferenceDataMissing}
	ErrInvalidInput         = &CalculationError{Code: CodeInvalidInput}
)

func (e *CalculationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.LegIndex != nil {
		fmt.Fprintf(&b, " (leg %d)", *e.LegIndex)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CalculationError) Unwrap() error { return e.Err }

// Is matches another CalculationError by code.
func (e *CalculationError) Is(target error) bool {
	t, ok := target.(*CalculationError)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, format string, args ...any) *CalculationError {
	return &CalculationError{Code: code, Message: fmt.Sprintf(format, args...), Resolution: code.Resolution()}
}

func (e *CalculationError) withCause(err error) *CalculationError {
	e.Err = err
	return e
}

func (e *CalculationError) withDetails(details ...string) *CalculationError {
	e.Details = append(e.Details, details...)
	return e
}

func (e *CalculationError) forLeg(index int) *CalculationError {
	if e.LegIndex == nil {
		idx := index
		e.LegIndex = &idx
	}
	return e
}
