package refdata

import (
	"fmt"
	"strings"
)

// The enums below are closed sets. The zero value of each is invalid.

// PricingMode describes how a charge scales with nights and guests.
type PricingMode uint8

const (
	PricingModeUnknown PricingMode = iota
	PerPersonPerNight
	PerPerson
	PerRoomPerNight
	PerStay
	PerBooking
	PerTrip
)

var pricingModeNames = [...]string{"", "per_person_per_night", "per_person", "per_room_per_night", "per_stay", "per_booking", "per_trip"}

// IsFlat reports whether the mode ignores guest counts.
func (m PricingMode) IsFlat() bool {
	switch m {
	case PerRoomPerNight, PerStay, PerBooking, PerTrip:
		return true
	case PricingModeUnknown, PerPersonPerNight, PerPerson:
		return false
	}
	return false
}

func (m PricingMode) String() string { return enumName(pricingModeNames[:], int(m)) }
func (m PricingMode) Valid() bool { return m != PricingModeUnknown && int(m) < len(pricingModeNames) }
func (m PricingMode) MarshalText() ([]byte, error) { return marshalEnum("pricing mode", m.Valid(), m.String()) }
func (m *PricingMode) UnmarshalText(b []byte) error {
	return unmarshalEnum("pricing mode", pricingModeNames[:], b, func(i int) { *m = PricingMode(i) })
}

// GuestType distinguishes adult from child extra-person charges.
type GuestType uint8

const (
	GuestTypeUnknown GuestType = iota
	GuestAdult
	GuestChild
)

var guestTypeNames = [...]string{"", "adult", "child"}

func (g GuestType) String() string { return enumName(guestTypeNames[:], int(g)) }
func (g GuestType) Valid() bool { return g != GuestTypeUnknown && int(g) < len(guestTypeNames) }
func (g GuestType) MarshalText() ([]byte, error) { return marshalEnum("guest type", g.Valid(), g.String()) }
func (g *GuestType) UnmarshalText(b []byte) error {
	return unmarshalEnum("guest type", guestTypeNames[:], b, func(i int) { *g = GuestType(i) })
}

// LineItemCategory is the kind of a priced line. Each category has exactly one calculation path.
type LineItemCategory uint8

const (
	CategoryUnknown LineItemCategory = iota
	CategoryRoom
	CategoryExtraPerson
	CategoryMealPlan
	CategoryTransfer
	CategoryActivity
	CategoryFestiveSupplement
	CategoryPassThroughTax
	CategoryServiceCharge
	CategoryGoodsServicesTax
	CategoryTourismTax
)

var categoryNames = [...]string{"", "room", "extra_person", "meal_plan", "transfer", "activity", "festive_supplement", "pass_through_tax", "service_charge", "goods_services_tax", "tourism_tax"}

// IsTax reports whether the category is one of the tax kinds.
func (c LineItemCategory) IsTax() bool {
	switch c {
	case CategoryPassThroughTax, CategoryServiceCharge, CategoryGoodsServicesTax, CategoryTourismTax:
		return true
	case CategoryUnknown, CategoryRoom, CategoryExtraPerson, CategoryMealPlan, CategoryTransfer, CategoryActivity, CategoryFestiveSupplement:
		return false
	}
	return false
}

// IsAccommodation reports whether the category belongs to the room-only discount and tax base.
func (c LineItemCategory) IsAccommodation() bool {
	return c == CategoryRoom || c == CategoryExtraPerson
}

func (c LineItemCategory) String() string { return enumName(categoryNames[:], int(c)) }
func (c LineItemCategory) Valid() bool { return c != CategoryUnknown && int(c) < len(categoryNames) }
func (c LineItemCategory) MarshalText() ([]byte, error) { return marshalEnum("line item category", c.Valid(), c.String()) }
func (c *LineItemCategory) UnmarshalText(b []byte) error {
	return unmarshalEnum("line item category", categoryNames[:], b, func(i int) { *c = LineItemCategory(i) })
}

// TaxKind identifies which of the four tax categories a configuration produces.
type TaxKind uint8

const (
	TaxKindUnknown TaxKind = iota
	TaxPassThrough
	TaxServiceCharge
	TaxGoodsServices
	TaxTourism
)

var taxKindNames = [...]string{"", "pass_through_tax", "service_charge", "goods_services_tax", "tourism_tax"}

// Category maps the tax kind onto its line-item category.
func (k TaxKind) Category() LineItemCategory {
	switch k {
	case TaxPassThrough:
		return CategoryPassThroughTax
	case TaxServiceCharge:
		return CategoryServiceCharge
	case TaxGoodsServices:
		return CategoryGoodsServicesTax
	case TaxTourism:
		return CategoryTourismTax
	case TaxKindUnknown:
		return CategoryUnknown
	}
	return CategoryUnknown
}

func (k TaxKind) String() string { return enumName(taxKindNames[:], int(k)) }
func (k TaxKind) Valid() bool { return k != TaxKindUnknown && int(k) < len(taxKindNames) }
func (k TaxKind) MarshalText() ([]byte, error) { return marshalEnum("tax kind", k.Valid(), k.String()) }
func (k *TaxKind) UnmarshalText(b []byte) error {
	return unmarshalEnum("tax kind", taxKindNames[:], b, func(i int) { *k = TaxKind(i) })
}

// TaxMethod is how a tax amount is computed.
type TaxMethod uint8

const (
	TaxMethodUnknown TaxMethod = iota
	TaxFixedPerPersonPerNight
	TaxPercentage
)

var taxMethodNames = [...]string{"", "fixed_per_person_per_night", "percentage"}

func (m TaxMethod) String() string { return enumName(taxMethodNames[:], int(m)) }
func (m TaxMethod) Valid() bool { return m != TaxMethodUnknown && int(m) < len(taxMethodNames) }
func (m TaxMethod) MarshalText() ([]byte, error) { return marshalEnum("tax method", m.Valid(), m.String()) }
func (m *TaxMethod) UnmarshalText(b []byte) error {
	return unmarshalEnum("tax method", taxMethodNames[:], b, func(i int) { *m = TaxMethod(i) })
}

// TaxBase selects the explicit base a percentage tax is applied to.
type TaxBase uint8

const (
	TaxBaseUnknown TaxBase = iota
	TaxBaseSubtotal
	TaxBaseCumulative
	TaxBaseAccommodation
)

var taxBaseNames = [...]string{"", "subtotal", "cumulative", "accommodation"}

func (b TaxBase) String() string { return enumName(taxBaseNames[:], int(b)) }
func (b TaxBase) Valid() bool { return b != TaxBaseUnknown && int(b) < len(taxBaseNames) }
func (b TaxBase) MarshalText() ([]byte, error) { return marshalEnum("tax base", b.Valid(), b.String()) }
func (b *TaxBase) UnmarshalText(data []byte) error {
	return unmarshalEnum("tax base", taxBaseNames[:], data, func(i int) { *b = TaxBase(i) })
}

// DiscountType is how a discount amount is derived.
type DiscountType uint8

const (
	DiscountTypeUnknown DiscountType = iota
	DiscountPercentage
	DiscountFixedAmount
)

var discountTypeNames = [...]string{"", "percentage", "fixed_amount"}

func (t DiscountType) String() string { return enumName(discountTypeNames[:], int(t)) }
func (t DiscountType) Valid() bool { return t != DiscountTypeUnknown && int(t) < len(discountTypeNames) }
func (t DiscountType) MarshalText() ([]byte, error) { return marshalEnum("discount type", t.Valid(), t.String()) }
func (t *DiscountType) UnmarshalText(b []byte) error {
	return unmarshalEnum("discount type", discountTypeNames[:], b, func(i int) { *t = DiscountType(i) })
}

// DiscountBase is the fixed set of line items a discount is computed against.
type DiscountBase uint8

const (
	DiscountBaseUnknown DiscountBase = iota
	DiscountBaseRoomOnly
	DiscountBaseAllPreTax
)

var discountBaseNames = [...]string{"", "room_only", "all_pre_tax"}

// Includes reports whether a line of the given category belongs to this base. Taxes never do.
func (b DiscountBase) Includes(c LineItemCategory) bool {
	if c.IsTax() {
		return false
	}
	switch b {
	case DiscountBaseRoomOnly:
		return c.IsAccommodation()
	case DiscountBaseAllPreTax:
		return c.Valid()
	case DiscountBaseUnknown:
		return false
	}
	return false
}

func (b DiscountBase) String() string { return enumName(discountBaseNames[:], int(b)) }
func (b DiscountBase) Valid() bool { return b != DiscountBaseUnknown && int(b) < len(discountBaseNames) }
func (b DiscountBase) MarshalText() ([]byte, error) { return marshalEnum("discount base", b.Valid(), b.String()) }
func (b *DiscountBase) UnmarshalText(data []byte) error {
	return unmarshalEnum("discount base", discountBaseNames[:], data, func(i int) { *b = DiscountBase(i) })
}

// MarkupType distinguishes percentage from fixed resort markups.
type MarkupType uint8

const (
	MarkupTypeUnknown MarkupType = iota
	MarkupPercentage
	MarkupFixed
)

var markupTypeNames = [...]string{"", "percentage", "fixed"}

func (t MarkupType) String() string { return enumName(markupTypeNames[:], int(t)) }
func (t MarkupType) Valid() bool { return t != MarkupTypeUnknown && int(t) < len(markupTypeNames) }
func (t MarkupType) MarshalText() ([]byte, error) { return marshalEnum("markup type", t.Valid(), t.String()) }
func (t *MarkupType) UnmarshalText(b []byte) error {
	return unmarshalEnum("markup type", markupTypeNames[:], b, func(i int) { *t = MarkupType(i) })
}

func enumName(names []string, i int) string {
	if i <= 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

func marshalEnum(kind string, valid bool, name string) ([]byte, error) {
	if !valid {
		return nil, fmt.Errorf("refdata: invalid %s", kind)
	}
	return []byte(name), nil
}

func unmarshalEnum(kind string, names []string, b []byte, set func(int)) error {
	value := strings.ToLower(strings.TrimSpace(string(b)))
	for i := 1; i < len(names); i++ {
		if names[i] == value {
			set(i)
			return nil
		}
	}
	return fmt.Errorf("refdata: unknown %s %q", kind, value)
}
