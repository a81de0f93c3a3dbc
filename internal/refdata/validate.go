package refdata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/money"
)

// recordRules checks the field rules of single records. Rules that span records (duplicates, overlaps,
// references) stay in NewSnapshot.
var recordRules = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// enum accepts the known members of the closed enums in enums.go.
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && e.Valid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(Season)
		if !s.Start.IsValid() || !s.End.IsValid() || s.End.Before(s.Start) {
			sl.ReportError(s.End, "end", "End", "daterange", "start")
		}
	}, Season{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		m := sl.Current().Interface().(money.Money)
		if m.Amount.IsNegative() {
			sl.ReportError(m.Amount, "amount", "Amount", "gte", "0")
		}
		if m.Currency == "" {
			sl.ReportError(m.Currency, "currency", "Currency", "required", "")
		}
	}, money.Money{})
	return v
}

// record runs the field rules for one record and files each violation under kind and ref.
func (v *problemSet) record(kind, ref string, rec any) {
	err := recordRules.Struct(rec)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.addf("%s %q: %v", kind, ref, err)
		return
	}
	for _, fe := range verrs {
		v.addf("%s %q: %s", kind, ref, describeViolation(fe))
	}
}

func describeViolation(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return "missing " + field
	case "enum":
		return "invalid " + field
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, fe.Param())
	case "daterange":
		return fmt.Sprintf("%s must be a valid date on or after %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}
