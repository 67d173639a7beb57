// Package analytics computes read-only revenue, occupancy and demand reports
// from bookings and listings that were already loaded by the caller.
package analytics

import (
	"math"
	"time"

	"github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// DefaultDays is the report window when no preset is given.
const DefaultDays = 30

// DaysFromQuery maps the range (7d, 30d, 90d) and datePreset (last7, last30, last90)
// query values to a day count. range wins over datePreset.
func DaysFromQuery(rangeParam, datePreset string) int {
	switch rangeParam {
	case "7d":
		return 7
	case "30d":
		return 30
	case "90d":
		return 90
	}
	switch datePreset {
	case "last7":
		return 7
	case "last90":
		return 90
	}
	return DefaultDays
}

// Range is a trailing report window. Start is local midnight Days-1 days before End.
type Range struct {
	Days  int
	Start time.Time
	End   time.Time
	Loc   *time.Location
}

// ResolveRange returns the trailing window of days ending at now.
func ResolveRange(days int, now time.Time, loc *time.Location) Range {
	if days < 1 {
		days = DefaultDays
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	return Range{Days: days, Start: start, End: local, Loc: loc}
}

// ThroughEndOfDay extends End to the last millisecond of its day.
func (r Range) ThroughEndOfDay() Range {
	e := r.End
	r.End = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(999*time.Millisecond), r.Loc)
	return r
}

// Contains reports whether t is inside [Start, End].
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Hours is the length of the range in hours, at least 1.
func (r Range) Hours() float64 {
	return math.Max(1, r.End.Sub(r.Start).Hours())
}

// Window returns the range as a booking window for clipping.
func (r Range) Window() booking.Window {
	return booking.Window{Start: r.Start, End: r.End}
}

// DayStarts lists the local midnight of every day in the range.
func (r Range) DayStarts() []time.Time {
	out := make([]time.Time, 0, r.Days)
	for i := 0; i < r.Days; i++ {
		out = append(out, r.Start.AddDate(0, 0, i))
	}
	return out
}

// DayKey returns the local calendar date of t.
func (r Range) DayKey(t time.Time) string {
	return t.In(r.Loc).Format(booking.DateLayout)
}

// Filters narrows reports by listing attributes. Empty and "all" match everything.
type Filters struct {
	Brand  string
	Branch string
	Type   string
	Status string
}

// Match reports whether a listing passes every filter.
func (f Filters) Match(l *listing.Listing) bool {
	return matches(f.Brand, l.Brand) &&
		matches(f.Branch, l.City) &&
		matches(f.Type, l.Category) &&
		matches(f.Status, string(l.Status))
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return isAll(f.Brand) && isAll(f.Branch) && isAll(f.Type) && isAll(f.Status)
}

func matches(want, got string) bool {
	return isAll(want) || want == got
}

func isAll(v string) bool {
	return v == "" || v == "all"
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return 0
	}
	v := num / den
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

var shortWeekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayShort(t time.Time) string { return shortWeekdays[t.Weekday()] }

func hourLabel(h int) string {
	return time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
