package listing

import "github.com/flexidesk/service-booking/internal/platform/apperror"

// Unit is the time unit a rate is quoted in.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitHour  Unit = "hour"
	UnitMonth Unit = "month"
)

// PriceCandidate names one rate column and its unit.
type PriceCandidate struct {
	Name  string
	Unit  Unit
	Value func(Rates) int64
}

// PriceCandidates is the ordered preference list used to pick a listing's base rate.
// Order matters: the first positive rate wins.
var PriceCandidates = []PriceCandidate{
	{Name: "seat_day", Unit: UnitDay, Value: func(r Rates) int64 { return r.SeatDay }},
	{Name: "room_day", Unit: UnitDay, Value: func(r Rates) int64 { return r.RoomDay }},
	{Name: "whole_day", Unit: UnitDay, Value: func(r Rates) int64 { return r.WholeDay }},
	{Name: "seat_hour", Unit: UnitHour, Value: func(r Rates) int64 { return r.SeatHour }},
	{Name: "room_hour", Unit: UnitHour, Value: func(r Rates) int64 { return r.RoomHour }},
	{Name: "whole_month", Unit: UnitMonth, Value: func(r Rates) int64 { return r.WholeMonth }},
}

// BaseRate is the rate a booking is priced from.
type BaseRate struct {
	Name  string
	Unit  Unit
	Cents int64
}

// BaseRate returns the first positive rate in PriceCandidates order.
func (l *Listing) BaseRate() (BaseRate, error) {
	for _, c := range PriceCandidates {
		if v := c.Value(l.Rates); v > 0 {
			return BaseRate{Name: c.Name, Unit: c.Unit, Cents: v}, nil
		}
	}
	return BaseRate{}, apperror.NewValidationError("listing has no valid price")
}
