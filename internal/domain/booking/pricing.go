package booking

import (
	"fmt"
	"math"

	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	// Calculate returns the quote for the given parameters.
	Calculate(params PricingParams) (Quote, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	Rate             listing.BaseRate
	Window           Window
	StartDate        string
	EndDate          string
	Nights           int
	TotalHours       float64
	Guests           int
	MultiplyByGuests bool
}

// Quote is the computed price for a booking request.
type Quote struct {
	Unit        listing.Unit
	UnitCents   int64
	Units       int
	GuestFactor int
	TotalCents  int64
}

// StandardPricingStrategy prices a booking as rate × duration units × guest factor.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// Calculate computes the total in minor units.
//
// Duration units depend on the rate's unit:
//   - day: explicit nights when positive, else the calendar day difference (min 1)
//   - hour: explicit total hours when positive, else the resolved window (rounded up, min 1)
//   - month: days rounded up to 30-day months (min 1)
//
// The guest factor is the guest count when multiplying by guests, else 1.
func (s *StandardPricingStrategy) Calculate(params PricingParams) (Quote, error) {
	if params.Rate.Cents <= 0 {
		return Quote{}, fmt.Errorf("rate must be positive")
	}

	var units int
	switch params.Rate.Unit {
	case listing.UnitDay:
		units = params.Nights
		if units <= 0 {
			units = DayDiff(params.StartDate, params.EndDate)
		}
	case listing.UnitHour:
		hours := params.TotalHours
		if hours <= 0 {
			hours = params.Window.Hours()
		}
		units = int(math.Ceil(hours))
	case listing.UnitMonth:
		units = int(math.Ceil(float64(DayDiff(params.StartDate, params.EndDate)) / 30))
	default:
		return Quote{}, fmt.Errorf("unknown rate unit: %s", params.Rate.Unit)
	}
	if units < 1 {
		units = 1
	}

	guestFactor := 1
	if params.MultiplyByGuests && params.Guests > 1 {
		guestFactor = params.Guests
	}

	return Quote{
		Unit:        params.Rate.Unit,
		UnitCents:   params.Rate.Cents,
		Units:       units,
		GuestFactor: guestFactor,
		TotalCents:  params.Rate.Cents * int64(units) * int64(guestFactor),
	}, nil
}
