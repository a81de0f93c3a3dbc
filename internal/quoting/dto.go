package quoting

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/pricing"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// CalculateQuoteRequest is the JSON body of POST /api/v1/quotes/calculate.
type CalculateQuoteRequest struct {
	Client      ClientPayload              `json:"client"`
	Currency    string                     `json:"currency" validate:"required,len=3,alpha"`
	ValidUntil  string                     `json:"validUntil,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BookingDate string                     `json:"bookingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Legs        []LegPayload               `json:"legs" validate:"required,min=1,max=12,dive"`
	Transfers   []TransferPayload          `json:"transfers,omitempty" validate:"omitempty,dive"`
	QuoteMarkup *QuoteMarkupPayload        `json:"quoteMarkup,omitempty"`
	ManualRates map[string]decimal.Decimal `json:"manualRates,omitempty" validate:"omitempty,dive,keys,len=3,alpha,endkeys,gt=0"`
}

// ClientPayload identifies the traveller the quote is for.
type ClientPayload struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"required,email"`
	AgentReference string `json:"agentReference,omitempty" validate:"omitempty,max=100"`
}

// LegPayload is one resort stay.
type LegPayload struct {
	ResortID       string            `json:"resortId" validate:"required"`
	RoomTypeID     string            `json:"roomTypeId" validate:"required"`
	CheckIn        string            `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut       string            `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Adults         int               `json:"adults" validate:"min=1"`
	ChildAges      []int             `json:"childAges,omitempty" validate:"omitempty,dive,min=0"`
	MealPlanID     string            `json:"mealPlanId,omitempty"`
	TransferTypeID string            `json:"transferTypeId,omitempty"`
	Activities     []ActivityPayload `json:"activities,omitempty" validate:"omitempty,dive"`
	DiscountCodes  []string          `json:"discountCodes,omitempty" validate:"omitempty,dive,required,max=64"`
}

// ActivityPayload selects an activity. Quantity defaults to one.
type ActivityPayload struct {
	ActivityID string `json:"activityId" validate:"required"`
	Quantity   int    `json:"quantity,omitempty" validate:"min=0"`
}

// TransferPayload prices the hop after the leg at the same position.
type TransferPayload struct {
	TransferTypeID string `json:"transferTypeId" validate:"required"`
}

// QuoteMarkupPayload replaces resort markups with one amount.
type QuoteMarkupPayload struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// LockRatesRequest is the JSON body of POST /api/v1/quotes/rates/lock.
type LockRatesRequest struct {
	Currency    string                     `json:"currency" validate:"required,len=3,alpha"`
	ManualRates map[string]decimal.Decimal `json:"manualRates,omitempty" validate:"omitempty,dive,keys,len=3,alpha,endkeys,gt=0"`
}

func (r CalculateQuoteRequest) toDomain() (pricing.QuoteRequest, error) {
	out := pricing.QuoteRequest{
		Client: pricing.ClientInfo{
			Name:           strings.TrimSpace(r.Client.Name),
			Email:          strings.TrimSpace(r.Client.Email),
			AgentReference: strings.TrimSpace(r.Client.AgentReference),
		},
		Currency:    r.Currency,
		ManualRates: r.ManualRates,
		Legs:        make([]pricing.LegRequest, 0, len(r.Legs)),
	}
	var err error
	if out.ValidUntil, err = optionalDate("validUntil", r.ValidUntil); err != nil {
		return pricing.QuoteRequest{}, err
	}
	if out.BookingDate, err = optionalDate("bookingDate", r.BookingDate); err != nil {
		return pricing.QuoteRequest{}, err
	}
	for i, leg := range r.Legs {
		converted, err := leg.toDomain()
		if err != nil {
			return pricing.QuoteRequest{}, fmt.Errorf("legs[%d]: %w", i, err)
		}
		out.Legs = append(out.Legs, converted)
	}
	for _, t := range r.Transfers {
		out.Transfers = append(out.Transfers, pricing.InterResortTransferRequest{TransferTypeID: refdata.TransferTypeID(t.TransferTypeID)})
	}
	if r.QuoteMarkup != nil {
		out.QuoteMarkup = &pricing.QuoteMarkupOverride{Amount: r.QuoteMarkup.Amount, Reason: strings.TrimSpace(r.QuoteMarkup.Reason)}
	}
	return out, nil
}

func (l LegPayload) toDomain() (pricing.LegRequest, error) {
	checkIn, err := civil.ParseDate(l.CheckIn)
	if err != nil {
		return pricing.LegRequest{}, fmt.Errorf("checkIn: %w", err)
	}
	checkOut, err := civil.ParseDate(l.CheckOut)
	if err != nil {
		return pricing.LegRequest{}, fmt.Errorf("checkOut: %w", err)
	}
	out := pricing.LegRequest{
		ResortID:       refdata.ResortID(l.ResortID),
		RoomTypeID:     refdata.RoomTypeID(l.RoomTypeID),
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Adults:         l.Adults,
		ChildAges:      l.ChildAges,
		MealPlanID:     refdata.MealPlanID(l.MealPlanID),
		TransferTypeID: refdata.TransferTypeID(l.TransferTypeID),
		DiscountCodes:  l.DiscountCodes,
	}
	for _, a := range l.Activities {
		out.Activities = append(out.Activities, pricing.ActivityRequest{ActivityID: refdata.ActivityID(a.ActivityID), Quantity: a.Quantity})
	}
	return out, nil
}

func optionalDate(field, value string) (*civil.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}
