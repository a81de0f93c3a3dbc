package refdata

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
)

// ErrInvalidSnapshot is returned when reference records fail validation.
var ErrInvalidSnapshot = errors.New("refdata: invalid snapshot")

// Records is the flat, serialisable form of a reference data set. Loaders produce it and the Redis cache stores it.
type Records struct {
	Resorts            []Resort            `json:"resorts"`
	RoomTypes          []RoomType          `json:"roomTypes"`
	AgeBands           []AgeBand           `json:"ageBands"`
	Seasons            []Season            `json:"seasons"`
	Rates              []Rate              `json:"rates"`
	ExtraPersonCharges []ExtraPersonCharge `json:"extraPersonCharges"`
	MealPlans          []MealPlan          `json:"mealPlans"`
	TransferTypes      []TransferType      `json:"transferTypes"`
	Activities         []Activity          `json:"activities"`
	FestiveSupplements []FestiveSupplement `json:"festiveSupplements"`
	TaxConfigs         []TaxConfig         `json:"taxConfigs"`
	Discounts          []Discount          `json:"discounts"`
	MarkupConfigs      []MarkupConfig      `json:"markupConfigs"`
}

type rateKey struct {
	resort ResortID
	room   RoomTypeID
	season SeasonID
}

type codeKey struct {
	resort ResortID
	code   string
}

// Snapshot is an immutable, indexed Port over a validated record set. It is safe for concurrent use.
type Snapshot struct {
	records       Records
	resorts       map[ResortID]Resort
	roomTypes     map[RoomTypeID]RoomType
	ageBands      map[ResortID][]AgeBand
	seasons       map[ResortID][]Season
	rates         map[rateKey][]Rate
	extraCharges  map[ResortID][]ExtraPersonCharge
	mealPlans     map[MealPlanID]MealPlan
	transferTypes map[TransferTypeID]TransferType
	activities    map[ActivityID]Activity
	festive       map[ResortID][]FestiveSupplement
	taxes         map[ResortID][]TaxConfig
	automatic     map[ResortID][]Discount
	codes         map[codeKey]Discount
	markups       map[ResortID]MarkupConfig
}

var _ Port = (*Snapshot)(nil)

// NewSnapshot validates records and builds the lookup indexes. Every problem found is reported in one error.
func NewSnapshot(r Records) (*Snapshot, error) {
	v := &problemSet{}
	s := &Snapshot{
		records:       r,
		resorts:       make(map[ResortID]Resort, len(r.Resorts)),
		roomTypes:     make(map[RoomTypeID]RoomType, len(r.RoomTypes)),
		ageBands:      map[ResortID][]AgeBand{},
		seasons:       map[ResortID][]Season{},
		rates:         map[rateKey][]Rate{},
		extraCharges:  map[ResortID][]ExtraPersonCharge{},
		mealPlans:     make(map[MealPlanID]MealPlan, len(r.MealPlans)),
		transferTypes: make(map[TransferTypeID]TransferType, len(r.TransferTypes)),
		activities:    make(map[ActivityID]Activity, len(r.Activities)),
		festive:       map[ResortID][]FestiveSupplement{},
		taxes:         map[ResortID][]TaxConfig{},
		automatic:     map[ResortID][]Discount{},
		codes:         map[codeKey]Discount{},
		markups:       map[ResortID]MarkupConfig{},
	}

	for _, resort := range r.Resorts {
		v.record("resort", string(resort.ID), resort)
		if resort.ID == "" {
			continue
		}
		if _, dup := s.resorts[resort.ID]; dup {
			v.addf("duplicate resort %q", resort.ID)
			continue
		}
		s.resorts[resort.ID] = resort
	}

	for _, room := range r.RoomTypes {
		if _, dup := s.roomTypes[room.ID]; dup {
			v.addf("duplicate room type %q", room.ID)
			continue
		}
		v.resortExists(s, room.ResortID, "room type", string(room.ID))
		v.record("room type", string(room.ID), room)
		s.roomTypes[room.ID] = room
	}

	for _, band := range r.AgeBands {
		v.resortExists(s, band.ResortID, "age band", string(band.ID))
		v.record("age band", string(band.ID), band)
		for _, other := range s.ageBands[band.ResortID] {
			if band.MinAge <= other.MaxAge && other.MinAge <= band.MaxAge {
				v.addf("age band %q overlaps %q", band.ID, other.ID)
			}
		}
		s.ageBands[band.ResortID] = append(s.ageBands[band.ResortID], band)
	}
	for resort := range s.ageBands {
		slices.SortStableFunc(s.ageBands[resort], func(a, b AgeBand) int { return a.MinAge - b.MinAge })
	}

	seasonIDs := map[SeasonID]Season{}
	for _, season := range r.Seasons {
		v.resortExists(s, season.ResortID, "season", string(season.ID))
		if _, dup := seasonIDs[season.ID]; dup {
			v.addf("duplicate season %q", season.ID)
			continue
		}
		v.record("season", string(season.ID), season)
		for _, other := range s.seasons[season.ResortID] {
			if !season.End.Before(other.Start) && !other.End.Before(season.Start) {
				v.addf("season %q overlaps %q", season.ID, other.ID)
			}
		}
		seasonIDs[season.ID] = season
		s.seasons[season.ResortID] = append(s.seasons[season.ResortID], season)
	}

	for _, rate := range r.Rates {
		room, ok := s.roomTypes[rate.RoomTypeID]
		if !ok || room.ResortID != rate.ResortID {
			v.addf("rate %q: unknown room type %q for resort %q", rate.ID, rate.RoomTypeID, rate.ResortID)
		}
		if season, ok := seasonIDs[rate.SeasonID]; !ok || season.ResortID != rate.ResortID {
			v.addf("rate %q: unknown season %q for resort %q", rate.ID, rate.SeasonID, rate.ResortID)
		}
		v.record("rate", string(rate.ID), rate)
		key := rateKey{resort: rate.ResortID, room: rate.RoomTypeID, season: rate.SeasonID}
		s.rates[key] = append(s.rates[key], rate)
	}

	for _, charge := range r.ExtraPersonCharges {
		v.resortExists(s, charge.ResortID, "extra person charge", string(charge.ID))
		v.record("extra person charge", string(charge.ID), charge)
		s.extraCharges[charge.ResortID] = append(s.extraCharges[charge.ResortID], charge)
	}

	for _, plan := range r.MealPlans {
		v.record("meal plan", string(plan.ID), plan)
		s.mealPlans[plan.ID] = plan
	}
	for _, transfer := range r.TransferTypes {
		v.record("transfer type", string(transfer.ID), transfer)
		s.transferTypes[transfer.ID] = transfer
	}
	for _, activity := range r.Activities {
		v.record("activity", string(activity.ID), activity)
		s.activities[activity.ID] = activity
	}
	for _, supplement := range r.FestiveSupplements {
		v.resortExists(s, supplement.ResortID, "festive supplement", string(supplement.ID))
		v.record("festive supplement", string(supplement.ID), supplement)
		s.festive[supplement.ResortID] = append(s.festive[supplement.ResortID], supplement)
	}

	// Tax, discount and markup configurations are indexed as-is; their semantic checks belong to the engine,
	// which reports them as calculation errors against the quote that hits them.
	for _, tax := range r.TaxConfigs {
		v.resortExists(s, tax.ResortID, "tax config", string(tax.ID))
		s.taxes[tax.ResortID] = append(s.taxes[tax.ResortID], tax)
	}
	for resort := range s.taxes {
		slices.SortStableFunc(s.taxes[resort], func(a, b TaxConfig) int { return a.CalculationOrder - b.CalculationOrder })
	}

	for _, discount := range r.Discounts {
		v.resortExists(s, discount.ResortID, "discount", string(discount.ID))
		if discount.Automatic {
			s.automatic[discount.ResortID] = append(s.automatic[discount.ResortID], discount)
		}
		if code := normalizeCode(discount.Code); code != "" {
			key := codeKey{resort: discount.ResortID, code: code}
			if _, dup := s.codes[key]; dup {
				v.addf("duplicate discount code %q for resort %q", code, discount.ResortID)
			}
			s.codes[key] = discount
		}
	}

	for _, markup := range r.MarkupConfigs {
		v.resortExists(s, markup.ResortID, "markup config", string(markup.ID))
		if _, dup := s.markups[markup.ResortID]; dup {
			v.addf("resort %q has more than one markup config", markup.ResortID)
		}
		s.markups[markup.ResortID] = markup
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Records returns the record set the snapshot was built from.
func (s *Snapshot) Records() Records { return s.records }

func (s *Snapshot) Resort(id ResortID) (Resort, bool) {
	r, ok := s.resorts[id]
	return r, ok
}

func (s *Snapshot) RoomType(id RoomTypeID) (RoomType, bool) {
	r, ok := s.roomTypes[id]
	return r, ok
}

func (s *Snapshot) AgeBands(resort ResortID) []AgeBand {
	return slices.Clone(s.ageBands[resort])
}

func (s *Snapshot) SeasonForDate(resort ResortID, date civil.Date) (Season, bool) {
	for _, season := range s.seasons[resort] {
		if season.Covers(date) {
			return season, true
		}
	}
	return Season{}, false
}

func (s *Snapshot) RateFor(resort ResortID, room RoomTypeID, season SeasonID, date civil.Date) (Rate, bool) {
	for _, rate := range s.rates[rateKey{resort: resort, room: room, season: season}] {
		if rate.Covers(date) {
			return rate, true
		}
	}
	return Rate{}, false
}

func (s *Snapshot) ExtraPersonCharges(resort ResortID, room RoomTypeID) []ExtraPersonCharge {
	var out []ExtraPersonCharge
	for _, charge := range s.extraCharges[resort] {
		if charge.RoomTypeID == "" || charge.RoomTypeID == room {
			out = append(out, charge)
		}
	}
	return out
}

func (s *Snapshot) MealPlan(id MealPlanID) (MealPlan, bool) {
	m, ok := s.mealPlans[id]
	return m, ok
}

func (s *Snapshot) TransferType(id TransferTypeID) (TransferType, bool) {
	t, ok := s.transferTypes[id]
	return t, ok
}

func (s *Snapshot) Activity(id ActivityID) (Activity, bool) {
	a, ok := s.activities[id]
	return a, ok
}

func (s *Snapshot) TaxConfigs(resort ResortID, date civil.Date) []TaxConfig {
	var out []TaxConfig
	for _, tax := range s.taxes[resort] {
		if tax.EffectiveOn(date) {
			out = append(out, tax)
		}
	}
	return out
}

func (s *Snapshot) FestiveSupplements(resort ResortID, checkIn, checkOut civil.Date) []FestiveSupplement {
	var out []FestiveSupplement
	for _, supplement := range s.festive[resort] {
		if !supplement.Date.Before(checkIn) && supplement.Date.Before(checkOut) {
			out = append(out, supplement)
		}
	}
	return out
}

func (s *Snapshot) DiscountsForStay(resort ResortID, checkIn civil.Date) []Discount {
	var out []Discount
	for _, discount := range s.automatic[resort] {
		if discount.ValidOn(checkIn) {
			out = append(out, discount)
		}
	}
	return out
}

func (s *Snapshot) DiscountByCode(resort ResortID, code string) (Discount, bool) {
	d, ok := s.codes[codeKey{resort: resort, code: normalizeCode(code)}]
	return d, ok
}

func (s *Snapshot) MarkupConfig(resort ResortID) (MarkupConfig, bool) {
	m, ok := s.markups[resort]
	return m, ok
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// problemSet collects every validation problem so NewSnapshot can report them together.
type problemSet struct {
	problems []error
}

func (v *problemSet) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *problemSet) resortExists(s *Snapshot, id ResortID, kind, ref string) {
	if _, ok := s.resorts[id]; !ok {
		v.addf("%s %q: unknown resort %q", kind, ref, id)
	}
}

func (v *problemSet) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSnapshot, errors.Join(v.problems...))
}
