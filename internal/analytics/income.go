package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/domain/listing"
)

// IncomePoint is one day of the income series.
type IncomePoint struct {
	Date     string `json:"date"`
	Gross    int64  `json:"gross"`
	Fees     int64  `json:"fees"`
	Refunds  int64  `json:"refunds"`
	Net      int64  `json:"net"`
	Bookings int    `json:"bookings"`
}

// BranchRevenue is gross revenue for one city.
type BranchRevenue struct {
	Branch  string `json:"branch"`
	Revenue int64  `json:"revenue"`
}

// ProductRevenue is gross revenue for one listing category.
type ProductRevenue struct {
	Name    string `json:"name"`
	Revenue int64  `json:"revenue"`
}

// IncomeSummary aggregates the whole range.
type IncomeSummary struct {
	TotalGross      int64   `json:"total_gross"`
	TotalNet        int64   `json:"total_net"`
	Refunds         int64   `json:"refunds"`
	Fees            int64   `json:"fees"`
	AvgBookingValue float64 `json:"avg_booking_value"`
	Bookings        int     `json:"bookings"`
	TakeRate        float64 `json:"take_rate"`
	Conversion      float64 `json:"conversion"`
	MRR             float64 `json:"mrr"`
}

// IncomeRow is one paid booking in the transaction list.
type IncomeRow struct {
	ID     uuid.UUID `json:"id"`
	Date   time.Time `json:"date"`
	Branch string    `json:"branch"`
	Brand  string    `json:"brand"`
	Type   string    `json:"type"`
	Method string    `json:"method"`
	Status string    `json:"status"`
	Gross  int64     `json:"gross"`
	Fee    int64     `json:"fee"`
	Refund int64     `json:"refund"`
	Net    int64     `json:"net"`
}

// IncomeReport is the admin income dashboard.
type IncomeReport struct {
	Series    []IncomePoint    `json:"series"`
	ByBranch  []BranchRevenue  `json:"by_branch"`
	ByProduct []ProductRevenue `json:"by_product"`
	Summary   IncomeSummary    `json:"summary"`
	Rows      []IncomeRow      `json:"rows"`
}

// Income aggregates bookings created inside r whose payment was received, including
// those that have since been confirmed, checked in, checked out or completed.
// Refunds are reported as zero; refund amounts are not yet sourced from the gateway.
func Income(bookings []*booking.Booking, listings map[uuid.UUID]*listing.Listing, r Range, f Filters) IncomeReport {
	perDay := make(map[string]*IncomePoint)
	branches := make(map[string]int64)
	products := make(map[string]int64)
	var (
		sum  IncomeSummary
		rows []IncomeRow
	)

	for _, b := range bookings {
		if !b.Status().IsPaid() || !r.Contains(b.CreatedAt()) {
			continue
		}
		l := listings[b.ListingID()]
		if l == nil {
			if !f.IsZero() {
				continue
			}
			l = &listing.Listing{}
		} else if !f.Match(l) {
			continue
		}

		gross := b.GrossCents()
		fee := b.FeeCents()
		var refund int64
		net := gross - fee - refund
		city := orDefault(l.City, "Unknown")
		category := orDefault(l.Category, "Workspace")

		sum.TotalGross += gross
		sum.Fees += fee
		sum.Refunds += refund
		sum.TotalNet += net
		sum.Bookings++

		key := r.DayKey(b.CreatedAt())
		p, ok := perDay[key]
		if !ok {
			p = &IncomePoint{Date: key}
			perDay[key] = p
		}
		p.Gross += gross
		p.Fees += fee
		p.Refunds += refund
		p.Net += net
		p.Bookings++

		branches[city] += gross
		products[category] += gross

		rows = append(rows, IncomeRow{
			ID:     b.ID(),
			Date:   b.CreatedAt(),
			Branch: city,
			Brand:  orDefault(l.Brand, "Unknown"),
			Type:   category,
			Method: orDefault(b.Provider(), booking.DefaultProvider),
			Status: b.Status().String(),
			Gross:  gross,
			Fee:    fee,
			Refund: refund,
			Net:    net,
		})
	}

	series := make([]IncomePoint, 0, r.Days)
	for _, day := range r.DayStarts() {
		key := r.DayKey(day)
		if p, ok := perDay[key]; ok {
			series = append(series, *p)
			continue
		}
		series = append(series, IncomePoint{Date: key})
	}

	byBranch := make([]BranchRevenue, 0, len(branches))
	for k, v := range branches {
		byBranch = append(byBranch, BranchRevenue{Branch: k, Revenue: v})
	}
	sort.Slice(byBranch, func(i, j int) bool {
		if byBranch[i].Revenue != byBranch[j].Revenue {
			return byBranch[i].Revenue > byBranch[j].Revenue
		}
		return byBranch[i].Branch < byBranch[j].Branch
	})

	byProduct := make([]ProductRevenue, 0, len(products))
	for k, v := range products {
		byProduct = append(byProduct, ProductRevenue{Name: k, Revenue: v})
	}
	sort.Slice(byProduct, func(i, j int) bool {
		if byProduct[i].Revenue != byProduct[j].Revenue {
			return byProduct[i].Revenue > byProduct[j].Revenue
		}
		return byProduct[i].Name < byProduct[j].Name
	})

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	if rows == nil {
		rows = []IncomeRow{}
	}

	sum.AvgBookingValue = ratio(float64(sum.TotalGross), float64(sum.Bookings))
	sum.TakeRate = ratio(float64(sum.Fees), float64(sum.TotalGross))
	sum.MRR = ratio(float64(sum.TotalNet), float64(r.Days)/30)

	return IncomeReport{
		Series:    series,
		ByBranch:  byBranch,
		ByProduct: byProduct,
		Summary:   sum,
		Rows:      rows,
	}
}
