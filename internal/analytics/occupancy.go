package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// UnderutilizedThreshold is the occupancy below which a listing is flagged.
const UnderutilizedThreshold = 0.4

// Business-hours defaults used when a booking has no explicit times.
var (
	DefaultCheckIn  = booking.Clock{Hour: 9}
	DefaultCheckOut = booking.Clock{Hour: 18}
)

// HourRate is the average share of the range booked from a given start hour.
type HourRate struct {
	Hour string  `json:"hour"`
	Rate float64 `json:"rate"`
}

// BranchOccupancy is the mean listing occupancy of a city.
type BranchOccupancy struct {
	Branch    string  `json:"branch"`
	Occupancy float64 `json:"occ"`
}

// ListingOccupancy is one row of the occupancy table.
type ListingOccupancy struct {
	ListingID     uuid.UUID `json:"listing_id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Branch        string    `json:"branch"`
	Type          string    `json:"type"`
	Capacity      int       `json:"capacity"`
	Bookings      int       `json:"bookings"`
	BookedHours   float64   `json:"booked_hours"`
	Occupancy     float64   `json:"avg_occ"`
	Underutilized bool      `json:"underutilized"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OccupancySummary holds the headline numbers.
type OccupancySummary struct {
	AvgOccupancy       float64 `json:"avg_occupancy"`
	PeakHour           string  `json:"peak_hour"`
	UnderutilizedCount int     `json:"underutilized_count"`
}

// OccupancyReport is the admin occupancy dashboard.
type OccupancyReport struct {
	Summary       OccupancySummary   `json:"summary"`
	ByHour        []HourRate         `json:"by_hour"`
	ByBranch      []BranchOccupancy  `json:"by_branch"`
	Rows          []ListingOccupancy `json:"rows"`
	BrandOptions  []string           `json:"brand_options"`
	BranchOptions []string           `json:"branch_options"`
	TypeOptions   []string           `json:"type_options"`
	StatusOptions []string           `json:"status_options"`
}

func emptyOccupancy() OccupancyReport {
	return OccupancyReport{
		ByHour:        []HourRate{},
		ByBranch:      []BranchOccupancy{},
		Rows:          []ListingOccupancy{},
		BrandOptions:  []string{},
		BranchOptions: []string{},
		TypeOptions:   []string{},
		StatusOptions: []string{},
	}
}

type hourAcc struct {
	total float64
	count int
}

// Occupancy computes booked-hour utilization per listing over r.
// Only listings matching f are reported; bookings must be in an occupying status
// and created inside r. Every ratio is clamped to [0, 1].
func Occupancy(listings []*listing.Listing, bookings []*booking.Booking, r Range, f Filters) OccupancyReport {
	var selected []*listing.Listing
	for _, l := range listings {
		if f.Match(l) {
			selected = append(selected, l)
		}
	}
	if len(selected) == 0 {
		return emptyOccupancy()
	}

	rangeHours := r.Hours()
	bounds := r.Window()

	rows := make([]ListingOccupancy, 0, len(selected))
	index := make(map[uuid.UUID]int, len(selected))
	brands, branches, types, statuses := newSet(), newSet(), newSet(), newSet()
	for _, l := range selected {
		index[l.ID] = len(rows)
		rows = append(rows, ListingOccupancy{
			ListingID: l.ID,
			Name:      l.DisplayName(),
			Brand:     l.Brand,
			Branch:    l.City,
			Type:      l.Category,
			Capacity:  l.Capacity(),
			Status:    orDefault(string(l.Status), string(listing.StatusActive)),
			UpdatedAt: l.UpdatedAt,
		})
		brands.add(l.Brand)
		branches.add(l.City)
		types.add(l.Category)
		statuses.add(string(l.Status))
	}

	var perHour [24]hourAcc
	for _, b := range bookings {
		i, ok := index[b.ListingID()]
		if !ok || !isOccupying(b.Status()) || !r.Contains(b.CreatedAt()) {
			continue
		}
		w, err := booking.ResolveWindowWithDefaults(b.StartDate(), b.EndDate(), b.CheckInTime(), b.CheckOutTime(),
			DefaultCheckIn, DefaultCheckOut, r.Loc)
		if err != nil {
			continue
		}
		clipped, ok := w.Clip(bounds)
		if !ok {
			continue
		}
		hours := clipped.Hours()
		rows[i].BookedHours += hours
		rows[i].Bookings++

		h := clipped.Start.In(r.Loc).Hour()
		perHour[h].total += hours / rangeHours
		perHour[h].count++
	}

	var (
		occSum        float64
		underutilized int
	)
	type branchAcc struct {
		sum   float64
		count int
	}
	perBranch := make(map[string]*branchAcc)
	var branchOrder []string
	for i := range rows {
		row := &rows[i]
		row.Occupancy = clamp01(ratio(row.BookedHours, rangeHours*float64(row.Capacity)))
		row.Underutilized = row.Occupancy < UnderutilizedThreshold
		occSum += row.Occupancy
		if row.Underutilized {
			underutilized++
		}
		if row.Branch == "" {
			continue
		}
		acc, ok := perBranch[row.Branch]
		if !ok {
			acc = &branchAcc{}
			perBranch[row.Branch] = acc
			branchOrder = append(branchOrder, row.Branch)
		}
		acc.sum += row.Occupancy
		acc.count++
	}

	byHour := make([]HourRate, 24)
	peakHour, peakRate := "", 0.0
	for h, acc := range perHour {
		rate := 0.0
		if acc.count > 0 {
			rate = clamp01(acc.total / float64(acc.count))
		}
		byHour[h] = HourRate{Hour: hourLabel(h), Rate: rate}
		if rate > peakRate {
			peakRate, peakHour = rate, byHour[h].Hour
		}
	}

	byBranch := make([]BranchOccupancy, 0, len(branchOrder))
	for _, name := range branchOrder {
		acc := perBranch[name]
		byBranch = append(byBranch, BranchOccupancy{
			Branch:    name,
			Occupancy: clamp01(ratio(acc.sum, float64(acc.count))),
		})
	}

	return OccupancyReport{
		Summary: OccupancySummary{
			AvgOccupancy:       clamp01(ratio(occSum, float64(len(rows)))),
			PeakHour:           peakHour,
			UnderutilizedCount: underutilized,
		},
		ByHour:        byHour,
		ByBranch:      byBranch,
		Rows:          rows,
		BrandOptions:  brands.sorted(),
		BranchOptions: branches.sorted(),
		TypeOptions:   types.sorted(),
		StatusOptions: statuses.sorted(),
	}
}

func isOccupying(s booking.BookingStatus) bool {
	for _, o := range booking.OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

type stringSet map[string]struct{}

func newSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
