// Package refdata holds the read-only reference data the pricing engine consumes: resorts, room types,
// seasons, rates, add-on components, taxes, discounts and markup configuration.
package refdata

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/money"
)

type (
	ResortID            string
	RoomTypeID          string
	AgeBandID           string
	SeasonID            string
	RateID              string
	ExtraPersonChargeID string
	MealPlanID          string
	TransferTypeID      string
	ActivityID          string
	FestiveSupplementID string
	TaxConfigID         string
	DiscountID          string
	MarkupConfigID      string
)

// Resort is a property that can host a quote leg.
type Resort struct {
	ID               ResortID `json:"id" validate:"required"`
	Name             string   `json:"name"`
	Currency         string   `json:"currency"`
	RequiresTransfer bool     `json:"requiresTransfer"`
}

// RoomType carries the occupancy limits of a room category.
type RoomType struct {
	ID            RoomTypeID `json:"id"`
	ResortID      ResortID   `json:"resortId"`
	Name          string     `json:"name"`
	BaseOccupancy int        `json:"baseOccupancy" validate:"min=1"`
	MaxAdults     int        `json:"maxAdults" validate:"min=1"`
	MaxChildren   int        `json:"maxChildren" validate:"min=0"`
	MaxOccupancy  int        `json:"maxOccupancy" validate:"gtefield=BaseOccupancy"`
}

// AgeBand is an inclusive child age range defined per resort.
type AgeBand struct {
	ID       AgeBandID `json:"id"`
	ResortID ResortID  `json:"resortId"`
	Name     string    `json:"name"`
	MinAge   int       `json:"minAge" validate:"min=0"`
	MaxAge   int       `json:"maxAge" validate:"gtefield=MinAge"`
}

// Contains reports whether age falls inside the band.
func (b AgeBand) Contains(age int) bool { return age >= b.MinAge && age <= b.MaxAge }

// Season is an inclusive date range of a resort's calendar.
type Season struct {
	ID       SeasonID   `json:"id"`
	ResortID ResortID   `json:"resortId"`
	Name     string     `json:"name"`
	Start    civil.Date `json:"start"`
	End      civil.Date `json:"end"`
}

// Covers reports whether date lies inside the season.
func (s Season) Covers(date civil.Date) bool { return within(date, &s.Start, &s.End) }

// Rate is the nightly room price for a room type within a season. A nil ValidFrom or ValidTo leaves that side
// of the window bounded only by the season.
type Rate struct {
	ID         RateID      `json:"id"`
	ResortID   ResortID    `json:"resortId"`
	RoomTypeID RoomTypeID  `json:"roomTypeId"`
	SeasonID   SeasonID    `json:"seasonId"`
	ValidFrom  *civil.Date `json:"validFrom,omitempty"`
	ValidTo    *civil.Date `json:"validTo,omitempty"`
	Price      money.Money `json:"price"`
}

// Covers reports whether the rate's own window contains date.
func (r Rate) Covers(date civil.Date) bool { return within(date, r.ValidFrom, r.ValidTo) }

// ExtraPersonCharge prices a guest beyond base occupancy. An empty RoomTypeID applies to every room type of
// the resort; an empty AgeBandID on a child charge applies to every band.
type ExtraPersonCharge struct {
	ID         ExtraPersonChargeID `json:"id"`
	ResortID   ResortID            `json:"resortId"`
	RoomTypeID RoomTypeID          `json:"roomTypeId,omitempty"`
	GuestType  GuestType           `json:"guestType" validate:"enum"`
	AgeBandID  AgeBandID           `json:"ageBandId,omitempty"`
	Mode       PricingMode         `json:"mode" validate:"enum"`
	Price      money.Money         `json:"price"`
}

// ComponentRates is the price table of an add-on. Adult is charged per adult, Children per age band and Flat
// for the flat pricing modes. A band missing from Children is free.
type ComponentRates struct {
	Currency string                        `json:"currency" validate:"required"`
	Adult    decimal.Decimal               `json:"adult" validate:"gte=0"`
	Children map[AgeBandID]decimal.Decimal `json:"children,omitempty" validate:"dive,gte=0"`
	Flat     decimal.Decimal               `json:"flat" validate:"gte=0"`
}

// ChildRate returns the rate for band and whether one is defined.
func (r ComponentRates) ChildRate(band AgeBandID) (decimal.Decimal, bool) {
	rate, ok := r.Children[band]
	return rate, ok
}

// MealPlan is a board basis add-on.
type MealPlan struct {
	ID       MealPlanID     `json:"id"`
	ResortID ResortID       `json:"resortId"`
	Name     string         `json:"name"`
	Mode     PricingMode    `json:"mode" validate:"enum"`
	Rates    ComponentRates `json:"rates"`
}

// TransferType is an arrival transfer or an inter-resort hop. Inter-resort transfers may leave ResortID empty.
type TransferType struct {
	ID       TransferTypeID `json:"id"`
	ResortID ResortID       `json:"resortId,omitempty"`
	Name     string         `json:"name"`
	Mode     PricingMode    `json:"mode" validate:"enum"`
	Rates    ComponentRates `json:"rates"`
}

// Activity is an optional excursion.
type Activity struct {
	ID       ActivityID     `json:"id"`
	ResortID ResortID       `json:"resortId"`
	Name     string         `json:"name"`
	Mode     PricingMode    `json:"mode" validate:"enum"`
	Rates    ComponentRates `json:"rates"`
}

// FestiveSupplement is a mandatory charge for a calendar date such as a gala dinner. An empty RoomTypeIDs list
// applies to every room type.
type FestiveSupplement struct {
	ID          FestiveSupplementID `json:"id"`
	ResortID    ResortID            `json:"resortId"`
	Name        string              `json:"name"`
	Date        civil.Date          `json:"date"`
	RoomTypeIDs []RoomTypeID        `json:"roomTypeIds,omitempty"`
	Mode        PricingMode         `json:"mode" validate:"enum"`
	Rates       ComponentRates      `json:"rates"`
}

// AppliesTo reports whether the supplement is charged for room.
func (f FestiveSupplement) AppliesTo(room RoomTypeID) bool {
	if len(f.RoomTypeIDs) == 0 {
		return true
	}
	for _, id := range f.RoomTypeIDs {
		if id == room {
			return true
		}
	}
	return false
}

// TaxConfig describes one tax or charge levied by a resort. Rate is an amount in Currency for fixed taxes and
// a percentage for percentage taxes. ChildExemptAge, when set, overrides the calculation-wide exemption age.
type TaxConfig struct {
	ID                      TaxConfigID     `json:"id"`
	ResortID                ResortID        `json:"resortId"`
	Name                    string          `json:"name"`
	Kind                    TaxKind         `json:"kind"`
	Method                  TaxMethod       `json:"method"`
	Rate                    decimal.Decimal `json:"rate"`
	Currency                string          `json:"currency,omitempty"`
	AppliesTo               TaxBase         `json:"appliesTo"`
	ContributesToCumulative bool            `json:"contributesToCumulative"`
	CalculationOrder        int             `json:"calculationOrder"`
	ChildExemptAge          *int            `json:"childExemptAge,omitempty"`
	EffectiveFrom           *civil.Date     `json:"effectiveFrom,omitempty"`
	EffectiveTo             *civil.Date     `json:"effectiveTo,omitempty"`
}

// EffectiveOn reports whether the configuration is in force on date.
func (t TaxConfig) EffectiveOn(date civil.Date) bool { return within(date, t.EffectiveFrom, t.EffectiveTo) }

// Discount is an automatic offer or a promo code. Value is a percentage for percentage discounts and an
// amount in Currency for fixed ones. Zero MinNights, MaxNights and MinBookingDays mean no bound.
type Discount struct {
	ID                DiscountID      `json:"id"`
	ResortID          ResortID        `json:"resortId"`
	Name              string          `json:"name"`
	Code              string          `json:"code,omitempty"`
	Type              DiscountType    `json:"type"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency,omitempty"`
	Base              DiscountBase    `json:"base"`
	ValidFrom         *civil.Date     `json:"validFrom,omitempty"`
	ValidTo           *civil.Date     `json:"validTo,omitempty"`
	MinNights         int             `json:"minNights"`
	MaxNights         int             `json:"maxNights"`
	MinBookingDays    int             `json:"minBookingDays"`
	BlackoutSeasonIDs []SeasonID      `json:"blackoutSeasonIds,omitempty"`
	Stackable         bool            `json:"stackable"`
	CompatibleWith    []DiscountID    `json:"compatibleWith,omitempty"`
	Automatic         bool            `json:"automatic"`
}

// ValidOn reports whether date lies inside the discount's validity window.
func (d Discount) ValidOn(date civil.Date) bool { return within(date, d.ValidFrom, d.ValidTo) }

// CompatibleWithID reports whether other appears in the compatibility list.
func (d Discount) CompatibleWithID(other DiscountID) bool {
	for _, id := range d.CompatibleWith {
		if id == other {
			return true
		}
	}
	return false
}

// BlackedOut reports whether season is a blackout season for the discount.
func (d Discount) BlackedOut(season SeasonID) bool {
	for _, id := range d.BlackoutSeasonIDs {
		if id == season {
			return true
		}
	}
	return false
}

// MarkupConfig is a resort's markup policy. Value is a percentage or a fixed amount in Currency.
type MarkupConfig struct {
	ID                 MarkupConfigID     `json:"id"`
	ResortID           ResortID           `json:"resortId"`
	Type               MarkupType         `json:"type"`
	Value              decimal.Decimal    `json:"value"`
	Currency           string             `json:"currency,omitempty"`
	MarkupOnTaxes      bool               `json:"markupOnTaxes"`
	ExcludedCategories []LineItemCategory `json:"excludedCategories,omitempty"`
}

// Excludes reports whether the category is excluded from markup by configuration. Pass-through taxes are
// always excluded and other taxes are excluded unless MarkupOnTaxes is set.
func (m MarkupConfig) Excludes(c LineItemCategory) bool {
	if c == CategoryPassThroughTax {
		return true
	}
	if c.IsTax() && !m.MarkupOnTaxes {
		return true
	}
	for _, excluded := range m.ExcludedCategories {
		if excluded == c {
			return true
		}
	}
	return false
}

// within reports whether date lies in [from, to]; a nil bound is open.
func within(date civil.Date, from, to *civil.Date) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}
