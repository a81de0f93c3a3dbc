package pricing

import (
	"fmt"

	"github.com/noah-isme/resort-quote/internal/refdata"
)

// BandGuests groups the children that fall into one age band, in request order.
type BandGuests struct {
	Band refdata.AgeBand
	Ages []int
}

// Count returns the number of children in the band.
func (b BandGuests) Count() int { return len(b.Ages) }

// GuestCounts is the resolved party of a leg.
type GuestCounts struct {
	Adults   int
	Bands    []BandGuests
	Children []ResolvedChild
}

// Total returns adults plus children.
func (g GuestCounts) Total() int { return g.Adults + len(g.Children) }

// ChildCount returns the number of children.
func (g GuestCounts) ChildCount() int { return len(g.Children) }

// PassThroughEligible counts adults plus children strictly older than exemptAge.
func (g GuestCounts) PassThroughEligible(exemptAge int) int {
	eligible := g.Adults
	for _, child := range g.Children {
		if child.Age > exemptAge {
			eligible++
		}
	}
	return eligible
}

// resolveGuests assigns every child age to the first band containing it. bands must be ordered by MinAge;
// the returned Bands keep that order and omit empty bands.
func resolveGuests(bands []refdata.AgeBand, adults int, childAges []int) (GuestCounts, *CalculationError) {
	counts := GuestCounts{Adults: adults}
	grouped := make([][]int, len(bands))
	var unmatched []string
	for _, age := range childAges {
		idx := -1
		for i, band := range bands {
			if band.Contains(age) {
				idx = i
				break
			}
		}
		if idx < 0 {
			unmatched = append(unmatched, fmt.Sprintf("no age band covers child age %d", age))
			continue
		}
		grouped[idx] = append(grouped[idx], age)
		counts.Children = append(counts.Children, ResolvedChild{Age: age, AgeBandID: bands[idx].ID, AgeBandName: bands[idx].Name})
	}
	if len(unmatched) > 0 {
		return GuestCounts{}, newError(CodeInvalidOccupancy, "child ages outside configured age bands").withDetails(unmatched...)
	}
	for i, ages := range grouped {
		if len(ages) > 0 {
			counts.Bands = append(counts.Bands, BandGuests{Band: bands[i], Ages: ages})
		}
	}
	return counts, nil
}

// validateOccupancy checks the party against the room's maxima and reports every violation at once.
func validateOccupancy(room refdata.RoomType, guests GuestCounts) *CalculationError {
	var violations []string
	if guests.Adults > room.MaxAdults {
		violations = append(violations, fmt.Sprintf("adults %d exceeds maximum %d", guests.Adults, room.MaxAdults))
	}
	if guests.ChildCount() > room.MaxChildren {
		violations = append(violations, fmt.Sprintf("children %d exceeds maximum %d", guests.ChildCount(), room.MaxChildren))
	}
	if guests.Total() > room.MaxOccupancy {
		violations = append(violations, fmt.Sprintf("total guests %d exceeds maximum %d", guests.Total(), room.MaxOccupancy))
	}
	if len(violations) == 0 {
		return nil
	}
	return newError(CodeInvalidOccupancy, "room type %s cannot accommodate the party", room.ID).withDetails(violations...)
}
