package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// OwnerStatuses are the statuses counted as host earnings.
var OwnerStatuses = []booking.BookingStatus{
	booking.StatusPaid, booking.StatusConfirmed, booking.StatusCheckedIn, booking.StatusCompleted,
}

// OwnerListingStats is one row of the host's listing performance table.
type OwnerListingStats struct {
	ListingID     uuid.UUID `json:"listing_id"`
	Title         string    `json:"title"`
	City          string    `json:"city"`
	Bookings      int       `json:"bookings"`
	Revenue       int64     `json:"revenue"`
	OccupancyRate float64   `json:"occupancy_rate"`
}

// OwnerSummary is the host analytics header.
type OwnerSummary struct {
	TotalEarnings    int64               `json:"total_earnings"`
	OccupancyRate    float64             `json:"occupancy_rate"`
	AvgDailyEarnings float64             `json:"avg_daily_earnings"`
	PeakHours        []string            `json:"peak_hours"`
	ListingStats     []OwnerListingStats `json:"listing_stats"`
}

// OwnerAnalytics summarizes a host's listings. allTime holds every earning booking
// of those listings; only the ones created in r feed the trailing figures.
// Occupancy rates are percentages of round-the-clock availability.
func OwnerAnalytics(listings []*listing.Listing, allTime []*booking.Booking, r Range) OwnerSummary {
	out := OwnerSummary{PeakHours: []string{}, ListingStats: []OwnerListingStats{}}
	if len(listings) == 0 {
		return out
	}

	owned := make(map[uuid.UUID]*listing.Listing, len(listings))
	for _, l := range listings {
		owned[l.ID] = l
	}

	var (
		recentRevenue int64
		recentHours   float64
		hourCounts    [24]int
	)
	stats := make(map[uuid.UUID]*OwnerListingStats)
	hoursByListing := make(map[uuid.UUID]float64)

	for _, b := range allTime {
		l, ok := owned[b.ListingID()]
		if !ok || !isOwnerEarning(b.Status()) {
			continue
		}
		gross := ownerGross(b)
		out.TotalEarnings += gross
		if !r.Contains(b.CreatedAt()) {
			continue
		}
		hours := b.TotalHours()
		if hours <= 0 {
			hours = b.Window().Hours()
		}
		recentRevenue += gross
		recentHours += hours
		hourCounts[b.CreatedAt().In(r.Loc).Hour()]++

		s, ok := stats[l.ID]
		if !ok {
			s = &OwnerListingStats{ListingID: l.ID, Title: orDefault(l.DisplayName(), "Untitled listing"), City: l.City}
			stats[l.ID] = s
		}
		s.Bookings++
		s.Revenue += gross
		hoursByListing[l.ID] += hours
	}

	capacityHours := float64(r.Days * 24)
	out.AvgDailyEarnings = ratio(float64(recentRevenue), float64(r.Days))
	out.OccupancyRate = clamp01(ratio(recentHours, capacityHours*float64(len(listings)))) * 100

	for id, s := range stats {
		s.OccupancyRate = clamp01(ratio(hoursByListing[id], capacityHours)) * 100
		out.ListingStats = append(out.ListingStats, *s)
	}
	sort.Slice(out.ListingStats, func(i, j int) bool {
		a, b := out.ListingStats[i], out.ListingStats[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ListingID.String() < b.ListingID.String()
	})

	hours := make([]int, 0, 24)
	for h, c := range hourCounts {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool { return hourCounts[hours[i]] > hourCounts[hours[j]] })
	for _, h := range hours[:min(3, len(hours))] {
		out.PeakHours = append(out.PeakHours, hourLabel(h))
	}
	return out
}

// ownerGross prefers the breakdown total the guest saw at checkout.
func ownerGross(b *booking.Booking) int64 {
	if p := b.Pricing(); p != nil && p.Total > 0 {
		return p.Total
	}
	return b.AmountCents()
}

func isOwnerEarning(s booking.BookingStatus) bool {
	for _, o := range OwnerStatuses {
		if s == o {
			return true
		}
	}
	return false
}
