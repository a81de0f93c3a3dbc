package refdata

import "cloud.google.com/go/civil"

// Port is the synchronous read interface the pricing engine resolves reference data through. Implementations
// must be safe for concurrent reads and must not change while a calculation is running.
type Port interface {
	Resort(id ResortID) (Resort, bool)
	RoomType(id RoomTypeID) (RoomType, bool)
	// AgeBands returns the resort's bands ordered by MinAge.
	AgeBands(resort ResortID) []AgeBand
	SeasonForDate(resort ResortID, date civil.Date) (Season, bool)
	RateFor(resort ResortID, room RoomTypeID, season SeasonID, date civil.Date) (Rate, bool)
	ExtraPersonCharges(resort ResortID, room RoomTypeID) []ExtraPersonCharge
	MealPlan(id MealPlanID) (MealPlan, bool)
	TransferType(id TransferTypeID) (TransferType, bool)
	Activity(id ActivityID) (Activity, bool)
	// TaxConfigs returns the configurations in force on date, ordered by CalculationOrder.
	TaxConfigs(resort ResortID, date civil.Date) []TaxConfig
	// FestiveSupplements returns the supplements dated inside [checkIn, checkOut).
	FestiveSupplements(resort ResortID, checkIn, checkOut civil.Date) []FestiveSupplement
	// DiscountsForStay returns the automatic discounts of the resort whose window contains checkIn.
	DiscountsForStay(resort ResortID, checkIn civil.Date) []Discount
	DiscountByCode(resort ResortID, code string) (Discount, bool)
	MarkupConfig(resort ResortID) (MarkupConfig, bool)
}
