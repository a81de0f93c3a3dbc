package pricing

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// QuoteRequest is the full input of one calculation.
type QuoteRequest struct {
	Client      ClientInfo
	Currency    string
	ValidUntil  *civil.Date
	Legs        []LegRequest
	Transfers   []InterResortTransferRequest
	QuoteMarkup *QuoteMarkupOverride
	ManualRates map[string]decimal.Decimal
	BookingDate *civil.Date
}

// ClientInfo identifies who the quote is for. The engine copies it through untouched.
type ClientInfo struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	AgentReference string `json:"agentReference,omitempty"`
}

// LegRequest specifies one resort stay.
type LegRequest struct {
	ResortID       refdata.ResortID
	RoomTypeID     refdata.RoomTypeID
	CheckIn        civil.Date
	CheckOut       civil.Date
	Adults         int
	ChildAges      []int
	MealPlanID     refdata.MealPlanID
	TransferTypeID refdata.TransferTypeID
	Activities     []ActivityRequest
	DiscountCodes  []string
}

// ActivityRequest selects an activity; a zero Quantity means one.
type ActivityRequest struct {
	ActivityID refdata.ActivityID
	Quantity   int
}

// InterResortTransferRequest prices the hop from leg i to leg i+1, where i is its position in the request.
type InterResortTransferRequest struct {
	TransferTypeID refdata.TransferTypeID
}

// QuoteMarkupOverride replaces every resort markup with one fixed amount in the quote currency.
type QuoteMarkupOverride struct {
	Amount decimal.Decimal
	Reason string
}

// Breakdown carries cost, markup and sell. Sell is always Cost + Markup.
type Breakdown struct {
	Cost   decimal.Decimal `json:"cost"`
	Markup decimal.Decimal `json:"markup"`
	Sell   decimal.Decimal `json:"sell"`
}

func newBreakdown(cost, markup decimal.Decimal) Breakdown {
	return Breakdown{Cost: cost, Markup: markup, Sell: cost.Add(markup)}
}

func (b Breakdown) add(other Breakdown) Breakdown {
	return Breakdown{Cost: b.Cost.Add(other.Cost), Markup: b.Markup.Add(other.Markup), Sell: b.Sell.Add(other.Sell)}
}

// rounded rounds cost and markup and recomposes sell from the rounded parts.
func (b Breakdown) rounded() Breakdown {
	return newBreakdown(money.Round(b.Cost), money.Round(b.Markup))
}

// LineItem is one priced line of a leg. Cost in Pricing is GrossCost less the allocated Discount.
type LineItem struct {
	Category       refdata.LineItemCategory `json:"category"`
	Description    string                   `json:"description"`
	ReferenceID    string                   `json:"referenceId,omitempty"`
	Quantity       int                      `json:"quantity"`
	GrossCost      decimal.Decimal          `json:"grossCost"`
	Discount       decimal.Decimal          `json:"discount"`
	MarkupExcluded bool                     `json:"markupExcluded"`
	Pricing        Breakdown                `json:"pricing"`
}

func (l LineItem) netCost() decimal.Decimal { return l.GrossCost.Sub(l.Discount) }

// NightlyRate is the resolved price of one night.
type NightlyRate struct {
	Date         civil.Date       `json:"date"`
	SeasonID     refdata.SeasonID `json:"seasonId"`
	SeasonName   string           `json:"seasonName"`
	RateID       refdata.RateID   `json:"rateId"`
	Original     money.Money      `json:"original"`
	ExchangeRate decimal.Decimal  `json:"exchangeRate"`
	Amount       decimal.Decimal  `json:"amount"`
}

// ResolvedChild is a child guest mapped onto an age band.
type ResolvedChild struct {
	Age         int               `json:"age"`
	AgeBandID   refdata.AgeBandID `json:"ageBandId"`
	AgeBandName string            `json:"ageBandName"`
}

// ExtraPersonResult is one extra-person charge row: the adult group, or a single extra child.
type ExtraPersonResult struct {
	ChargeID    refdata.ExtraPersonChargeID `json:"chargeId,omitempty"`
	GuestType   refdata.GuestType           `json:"guestType"`
	AgeBandID   refdata.AgeBandID           `json:"ageBandId,omitempty"`
	AgeBandName string                      `json:"ageBandName,omitempty"`
	Age         *int                        `json:"age,omitempty"`
	Count       int                         `json:"count"`
	Mode        refdata.PricingMode         `json:"mode,omitempty"`
	Nights      int                         `json:"nights"`
	UnitAmount  decimal.Decimal             `json:"unitAmount"`
	Amount      decimal.Decimal             `json:"amount"`
}

// GuestGroup labels which guests a component row priced.
type GuestGroup string

const (
	GroupAdults GuestGroup = "adults"
	GroupChild  GuestGroup = "child_band"
	GroupFlat   GuestGroup = "flat"
)

// ComponentRow is one guest-group calculation inside a component.
type ComponentRow struct {
	Group         GuestGroup        `json:"group"`
	AgeBandID     refdata.AgeBandID `json:"ageBandId,omitempty"`
	Guests        int               `json:"guests"`
	Units         int               `json:"units"`
	UnitAmount    decimal.Decimal   `json:"unitAmount"`
	Amount        decimal.Decimal   `json:"amount"`
	Complimentary bool              `json:"complimentary,omitempty"`
}

// ComponentResult is a priced meal plan, transfer, activity or festive supplement.
type ComponentResult struct {
	Category    refdata.LineItemCategory `json:"category"`
	ComponentID string                   `json:"componentId"`
	Name        string                   `json:"name"`
	Mode        refdata.PricingMode      `json:"mode"`
	Quantity    int                      `json:"quantity"`
	Rows        []ComponentRow           `json:"rows"`
	Amount      decimal.Decimal          `json:"amount"`
}

// AppliedDiscount is a discount that made it through eligibility and stacking.
type AppliedDiscount struct {
	DiscountID refdata.DiscountID   `json:"discountId"`
	Name       string               `json:"name"`
	Code       string               `json:"code,omitempty"`
	Type       refdata.DiscountType `json:"type"`
	Value      decimal.Decimal      `json:"value"`
	Base       refdata.DiscountBase `json:"base"`
	BaseAmount decimal.Decimal      `json:"baseAmount"`
	Amount     decimal.Decimal      `json:"amount"`
	Capped     bool                 `json:"capped"`
}

// TaxResult records one evaluated tax with its explicit base.
type TaxResult struct {
	TaxConfigID      refdata.TaxConfigID `json:"taxConfigId"`
	Name             string              `json:"name"`
	Kind             refdata.TaxKind     `json:"kind"`
	Method           refdata.TaxMethod   `json:"method"`
	AppliesTo        refdata.TaxBase     `json:"appliesTo,omitempty"`
	CalculationOrder int                 `json:"calculationOrder"`
	Rate             decimal.Decimal     `json:"rate"`
	Base             decimal.Decimal     `json:"base"`
	EligibleGuests   int                 `json:"eligibleGuests,omitempty"`
	Nights           int                 `json:"nights,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
}

// MarkupSource tells where a leg's markup came from.
type MarkupSource string

const (
	MarkupFromResortPercentage MarkupSource = "resort_percentage"
	MarkupFromResortFixed      MarkupSource = "resort_fixed"
	MarkupFromQuoteOverride    MarkupSource = "quote_override"
	MarkupNotConfigured        MarkupSource = "none"
)

// MarkupBreakdown summarises markup for a leg.
type MarkupBreakdown struct {
	Source       MarkupSource           `json:"source"`
	ConfigID     refdata.MarkupConfigID `json:"configId,omitempty"`
	Percentage   *money.Percentage      `json:"percentage,omitempty"`
	FixedAmount  *decimal.Decimal       `json:"fixedAmount,omitempty"`
	MarkupBase   decimal.Decimal        `json:"markupBase"`
	ExcludedCost decimal.Decimal        `json:"excludedCost"`
	Amount       decimal.Decimal        `json:"amount"`
}

// LegCalculationResult is the priced outcome of one leg.
type LegCalculationResult struct {
	Index                int                 `json:"index"`
	ResortID             refdata.ResortID    `json:"resortId"`
	ResortName           string              `json:"resortName"`
	RoomTypeID           refdata.RoomTypeID  `json:"roomTypeId"`
	RoomTypeName         string              `json:"roomTypeName"`
	CheckIn              civil.Date          `json:"checkIn"`
	CheckOut             civil.Date          `json:"checkOut"`
	Nights               int                 `json:"nights"`
	Adults               int                 `json:"adults"`
	Children             []ResolvedChild     `json:"children"`
	NightlyRates         []NightlyRate       `json:"nightlyRates"`
	RoomCost             decimal.Decimal     `json:"roomCost"`
	ExtraPersonCharges   []ExtraPersonResult `json:"extraPersonCharges"`
	ExtraPersonTotal     decimal.Decimal     `json:"extraPersonTotal"`
	Components           []ComponentResult   `json:"components"`
	FestiveSupplements   []ComponentResult   `json:"festiveSupplements"`
	PreTaxSubtotal       decimal.Decimal     `json:"preTaxSubtotal"`
	Discounts            []AppliedDiscount   `json:"discounts"`
	DiscountTotal        decimal.Decimal     `json:"discountTotal"`
	PostDiscountSubtotal decimal.Decimal     `json:"postDiscountSubtotal"`
	Taxes                []TaxResult         `json:"taxes"`
	TaxTotal             decimal.Decimal     `json:"taxTotal"`
	Markup               MarkupBreakdown     `json:"markup"`
	LineItems            []LineItem          `json:"lineItems"`
	Totals               Breakdown           `json:"totals"`
}

// InterResortTransferResult is a priced hop between two consecutive legs.
type InterResortTransferResult struct {
	FromLeg          int                    `json:"fromLeg"`
	ToLeg            int                    `json:"toLeg"`
	TransferTypeID   refdata.TransferTypeID `json:"transferTypeId"`
	Name             string                 `json:"name"`
	Component        ComponentResult        `json:"component"`
	MarkupConfigID   refdata.MarkupConfigID `json:"markupConfigId,omitempty"`
	MarkupType       refdata.MarkupType     `json:"markupType,omitempty"`
	MarkupPercentage *money.Percentage      `json:"markupPercentage,omitempty"`
	Pricing          Breakdown              `json:"pricing"`
}

// QuoteMarkupResult records an applied quote-level override.
type QuoteMarkupResult struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// QuoteTotals splits the quote into legs, transfers and the quote-level markup.
type QuoteTotals struct {
	Legs             Breakdown        `json:"legs"`
	Transfers        Breakdown        `json:"transfers"`
	QuoteMarkup      decimal.Decimal  `json:"quoteMarkup"`
	Combined         Breakdown        `json:"combined"`
	MarginPercentage money.Percentage `json:"marginPercentage"`
	TotalTaxes       decimal.Decimal  `json:"totalTaxes"`
}

// TaxKindTotal is the quote-wide amount of one tax kind.
type TaxKindTotal struct {
	Kind   refdata.TaxKind `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// QuoteCalculationResult is the caller-facing outcome. On failure every amount is zero, Legs and Transfers
// are empty and Warnings holds exactly one blocking warning.
type QuoteCalculationResult struct {
	Success       bool                        `json:"success"`
	CalculationID string                      `json:"calculationId"`
	Currency      string                      `json:"currency"`
	ExchangeRates money.LockedRatesView       `json:"exchangeRates"`
	BookingDate   civil.Date                  `json:"bookingDate"`
	ValidUntil    *civil.Date                 `json:"validUntil,omitempty"`
	Client        ClientInfo                  `json:"client"`
	Legs          []LegCalculationResult      `json:"legs"`
	Transfers     []InterResortTransferResult `json:"transfers"`
	QuoteMarkup   *QuoteMarkupResult          `json:"quoteMarkup,omitempty"`
	Totals        QuoteTotals                 `json:"totals"`
	TaxBreakdown  []TaxKindTotal              `json:"taxBreakdown"`
	Warnings      []audit.Warning             `json:"warnings"`
	Audit         []audit.Step                `json:"audit"`
}
