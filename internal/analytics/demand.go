package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// RevenueUplift is the growth factor applied to trailing revenue for the projection.
const RevenueUplift = 1.08

// peakWindow is the afternoon slot reported as the over-capacity window.
const peakWindow = "3:00 PM - 6:00 PM"

// OccupancyPoint is one day of the booking-count index, 0 to 100 relative to the busiest day.
type OccupancyPoint struct {
	Label     string `json:"label"`
	Occupancy int    `json:"occupancy"`
	Forecast  int    `json:"forecast"`
}

// CategoryCount is the number of bookings for one listing category.
type CategoryCount struct {
	Type     string `json:"type"`
	Bookings int    `json:"bookings"`
}

// OverviewReport is the admin dashboard header.
type OverviewReport struct {
	AvgOccupancy    int              `json:"avg_occupancy"`
	TotalBookings   int              `json:"total_bookings"`
	TotalRevenue    int64            `json:"total_revenue"`
	ActiveUsers     int              `json:"active_users"`
	OccupancySeries []OccupancyPoint `json:"occupancy_series"`
	BookingsByType  []CategoryCount  `json:"bookings_by_type"`
}

// DemandBucket counts bookings created in one part of the day.
type DemandBucket struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// RiskPeriod flags a demand window that needs attention.
type RiskPeriod struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Kind        string `json:"kind"`
	Bucket      string `json:"bucket"`
}

// ForecastReport is the naive demand projection.
type ForecastReport struct {
	NextPeakDay        string           `json:"next_peak_day"`
	NextPeakHour       string           `json:"next_peak_hour"`
	ProjectedOccupancy int              `json:"projected_occupancy"`
	ProjectedRevenue   int64            `json:"projected_revenue"`
	DemandCycles       []DemandBucket   `json:"demand_cycles"`
	HighRiskPeriods    []RiskPeriod     `json:"high_risk_periods"`
	OccupancySeries    []OccupancyPoint `json:"occupancy_series"`
}

type dayCount struct {
	day   time.Time
	count int
}

// dailyCounts buckets the occupying bookings created in r by local day.
// It returns the per-day series, the busiest day's count (at least 1) and the kept bookings.
func dailyCounts(bookings []*booking.Booking, r Range) ([]dayCount, int, []*booking.Booking) {
	byKey := make(map[string]int)
	var kept []*booking.Booking
	for _, b := range bookings {
		if !isOccupying(b.Status()) || !r.Contains(b.CreatedAt()) {
			continue
		}
		byKey[r.DayKey(b.CreatedAt())]++
		kept = append(kept, b)
	}

	days := make([]dayCount, 0, r.Days)
	maxCount := 0
	for _, d := range r.DayStarts() {
		c := byKey[r.DayKey(d)]
		if c > maxCount {
			maxCount = c
		}
		days = append(days, dayCount{day: d, count: c})
	}
	if maxCount == 0 {
		maxCount = 1
	}
	return days, maxCount, kept
}

func occupancySeries(days []dayCount, maxCount int) []OccupancyPoint {
	out := make([]OccupancyPoint, 0, len(days))
	for _, d := range days {
		occ := percent(float64(d.count), float64(maxCount))
		out = append(out, OccupancyPoint{Label: weekdayShort(d.day), Occupancy: occ, Forecast: occ})
	}
	return out
}

func percent(num, den float64) int {
	return int(math.Round(clamp01(ratio(num, den)) * 100))
}

// Overview summarizes bookings, revenue and active guests over r.
func Overview(bookings []*booking.Booking, listings map[uuid.UUID]*listing.Listing, r Range) OverviewReport {
	days, maxCount, kept := dailyCounts(bookings, r)
	series := occupancySeries(days, maxCount)

	var (
		revenue int64
		guests  = make(map[uuid.UUID]struct{})
		byType  = make(map[string]int)
		order   []string
	)
	for _, b := range kept {
		revenue += b.GrossCents()
		if b.GuestID() != uuid.Nil {
			guests[b.GuestID()] = struct{}{}
		}
		category := "Workspace"
		if l := listings[b.ListingID()]; l != nil {
			category = orDefault(l.Category, category)
		}
		if _, ok := byType[category]; !ok {
			order = append(order, category)
		}
		byType[category]++
	}

	var occSum float64
	for _, p := range series {
		occSum += float64(p.Occupancy)
	}

	byTypeRows := make([]CategoryCount, 0, len(order))
	for _, t := range order {
		byTypeRows = append(byTypeRows, CategoryCount{Type: t, Bookings: byType[t]})
	}

	return OverviewReport{
		AvgOccupancy:    int(math.Round(ratio(occSum, float64(len(series))))),
		TotalBookings:   len(kept),
		TotalRevenue:    revenue,
		ActiveUsers:     len(guests),
		OccupancySeries: series,
		BookingsByType:  byTypeRows,
	}
}

// Forecast projects near-term demand from the trailing range.
func Forecast(bookings []*booking.Booking, r Range) ForecastReport {
	days, maxCount, kept := dailyCounts(bookings, r)

	recent := days[max(0, len(days)-5):]
	projected := 0
	if len(recent) > 0 {
		var sum int
		for _, d := range recent {
			sum += d.count
		}
		projected = percent(float64(sum)/float64(len(recent)), float64(maxCount))
	}

	var revenue int64
	cycles := []DemandBucket{{Label: "Morning"}, {Label: "Afternoon"}, {Label: "Evening"}}
	for _, b := range kept {
		revenue += b.GrossCents()
		switch h := b.CreatedAt().In(r.Loc).Hour(); {
		case h >= 6 && h < 12:
			cycles[0].Value++
		case h >= 12 && h < 18:
			cycles[1].Value++
		default:
			cycles[2].Value++
		}
	}
	projectedRevenue := int64(0)
	if revenue > 0 {
		projectedRevenue = int64(math.Round(float64(revenue) * RevenueUplift))
	}

	nextPeakDay := peakWeekday(days)

	risks := []RiskPeriod{}
	if busiest, ok := maxBucket(cycles); ok {
		desc := "Busiest demand window based on recent data"
		if nextPeakDay != "" {
			desc = nextPeakDay + ", " + peakWindow
		}
		risks = append(risks, RiskPeriod{
			Label:       "Over-capacity risk",
			Description: desc,
			Level:       "High",
			Kind:        "over",
			Bucket:      busiest.Label,
		})
	}
	if quietest, ok := minPositiveBucket(cycles); ok {
		risks = append(risks, RiskPeriod{
			Label:       "Under-utilization risk",
			Description: "Lowest demand window based on recent data",
			Level:       "Medium",
			Kind:        "under",
			Bucket:      quietest.Label,
		})
	}

	nextPeakHour := ""
	if nextPeakDay != "" {
		nextPeakHour = peakWindow
	}

	return ForecastReport{
		NextPeakDay:        nextPeakDay,
		NextPeakHour:       nextPeakHour,
		ProjectedOccupancy: projected,
		ProjectedRevenue:   projectedRevenue,
		DemandCycles:       cycles,
		HighRiskPeriods:    risks,
		OccupancySeries:    occupancySeries(days, maxCount),
	}
}

// peakWeekday returns the weekday with the highest average count. Ties go to the
// earlier weekday, Sunday first.
func peakWeekday(days []dayCount) string {
	var sums, counts [7]int
	for _, d := range days {
		wd := d.day.Weekday()
		sums[wd] += d.count
		counts[wd]++
	}
	best, bestAvg := -1, -1.0
	for wd := 0; wd < 7; wd++ {
		if counts[wd] == 0 {
			continue
		}
		avg := float64(sums[wd]) / float64(counts[wd])
		if avg > bestAvg {
			best, bestAvg = wd, avg
		}
	}
	if best < 0 {
		return ""
	}
	return time.Weekday(best).String()
}

func maxBucket(buckets []DemandBucket) (DemandBucket, bool) {
	sorted := append([]DemandBucket(nil), buckets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	if len(sorted) == 0 || sorted[0].Value <= 0 {
		return DemandBucket{}, false
	}
	return sorted[0], true
}

func minPositiveBucket(buckets []DemandBucket) (DemandBucket, bool) {
	var (
		best  DemandBucket
		found bool
	)
	for _, b := range buckets {
		if b.Value <= 0 {
			continue
		}
		if !found || b.Value < best.Value {
			best, found = b, true
		}
	}
	return best, found
}
