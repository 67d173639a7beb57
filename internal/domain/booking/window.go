package booking

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

var (
	// DayStart and DayEnd are used when a window has no explicit times.
	DayStart = Clock{Hour: 0, Minute: 0}
	DayEnd   = Clock{Hour: 23, Minute: 59}
)

// ParseClock parses "HH:MM". ok is false when s is not in that shape.
func ParseClock(s string) (c Clock, ok bool, err error) {
	if !clockPattern.MatchString(s) {
		return Clock{}, false, nil
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return Clock{}, true, fmt.Errorf("time out of range: %s", s)
	}
	return Clock{Hour: h, Minute: m}, true, nil
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// Window is a half-open [Start, End) interval of absolute time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two windows share any instant. Touching windows do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Hours returns the window length in hours.
func (w Window) Hours() float64 { return w.Duration().Hours() }

// Clip returns the part of w inside bounds and whether anything remains.
func (w Window) Clip(bounds Window) (Window, bool) {
	start, end := w.Start, w.End
	if bounds.Start.After(start) {
		start = bounds.Start
	}
	if bounds.End.Before(end) {
		end = bounds.End
	}
	if !end.After(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// ResolveWindow combines dates with optional times. A missing or non-HH:MM start
// time means the start of the day, a missing end time means 23:59.
// The resolved window must have positive length.
func ResolveWindow(startDate, endDate, startTime, endTime string, loc *time.Location) (Window, error) {
	return ResolveWindowWithDefaults(startDate, endDate, startTime, endTime, DayStart, DayEnd, loc)
}

// ResolveWindowWithDefaults is ResolveWindow with caller-chosen fallback times.
func ResolveWindowWithDefaults(startDate, endDate, startTime, endTime string, defStart, defEnd Clock, loc *time.Location) (Window, error) {
	start, err := combine(startDate, startTime, defStart, loc)
	if err != nil {
		return Window{}, err
	}
	end, err := combine(endDate, endTime, defEnd, loc)
	if err != nil {
		return Window{}, err
	}
	if !end.After(start) {
		return Window{}, fmt.Errorf("window end %s is not after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

func combine(date, clock string, fallback Clock, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, ok, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		c = fallback
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc), nil
}

// DayDiff returns the number of calendar days from startDate to endDate, minimum 1.
func DayDiff(startDate, endDate string) int {
	s, err1 := ParseDate(startDate, time.UTC)
	e, err2 := ParseDate(endDate, time.UTC)
	if err1 != nil || err2 != nil {
		return 1
	}
	days := int(e.Sub(s).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// ExpandNights lists every calendar day in [startDate, endDate).
func ExpandNights(startDate, endDate string) []string {
	s, err1 := ParseDate(startDate, time.UTC)
	e, err2 := ParseDate(endDate, time.UTC)
	if err1 != nil || err2 != nil {
		return nil
	}
	var days []string
	for d := s; d.Before(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}

// BlockedDates merges the nights of every booking into a sorted, de-duplicated list.
func BlockedDates(bookings []*Booking) []string {
	seen := make(map[string]struct{})
	for _, b := range bookings {
		for _, d := range ExpandNights(b.StartDate(), b.EndDate()) {
			seen[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
