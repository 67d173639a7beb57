package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flexidesk/service-booking/internal/analytics"
	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	redisrepo "github.com/flexidesk/service-booking/internal/repository/redis"
)

// ReportQuery is the common selector of the analytics endpoints.
type ReportQuery struct {
	Range      string
	DatePreset string
	Filters    analytics.Filters
}

func (q ReportQuery) days() int { return analytics.DaysFromQuery(q.Range, q.DatePreset) }

// AnalyticsService loads report inputs and caches computed reports.
type AnalyticsService struct {
	bookings bookingDomain.BookingRepository
	listings listingDomain.Repository
	cache    *redisrepo.Cache
	ttl      time.Duration
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. cache may be nil.
func NewAnalyticsService(
	bookings bookingDomain.BookingRepository,
	listings listingDomain.Repository,
	cache *redisrepo.Cache,
	ttl time.Duration,
	loc *time.Location,
	logger *zap.Logger,
) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{
		bookings: bookings,
		listings: listings,
		cache:    cache,
		ttl:      ttl,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Income returns the income report for paid bookings.
func (s *AnalyticsService) Income(ctx context.Context, q ReportQuery) (*analytics.IncomeReport, error) {
	r := analytics.ResolveRange(q.days(), s.now(), s.loc)
	return cached(ctx, s, "income", r, q.Filters, func(ctx context.Context) (*analytics.IncomeReport, error) {
		bookings, listings, err := s.load(ctx, r, paidStatuses(), q.Filters)
		if err != nil {
			return nil, err
		}
		rep := analytics.Income(bookings, byID(listings), r, q.Filters)
		return &rep, nil
	})
}

// Occupancy returns the listing utilization report. The range runs to the end of today.
func (s *AnalyticsService) Occupancy(ctx context.Context, q ReportQuery) (*analytics.OccupancyReport, error) {
	r := analytics.ResolveRange(q.days(), s.now(), s.loc).ThroughEndOfDay()
	return cached(ctx, s, "occupancy", r, q.Filters, func(ctx context.Context) (*analytics.OccupancyReport, error) {
		bookings, listings, err := s.load(ctx, r, bookingDomain.OccupyingStatuses, q.Filters)
		if err != nil {
			return nil, err
		}
		rep := analytics.Occupancy(listings, bookings, r, q.Filters)
		return &rep, nil
	})
}

// Overview returns the dashboard header report.
func (s *AnalyticsService) Overview(ctx context.Context, q ReportQuery) (*analytics.OverviewReport, error) {
	r := analytics.ResolveRange(q.days(), s.now(), s.loc)
	return cached(ctx, s, "overview", r, analytics.Filters{}, func(ctx context.Context) (*analytics.OverviewReport, error) {
		bookings, listings, err := s.load(ctx, r, bookingDomain.OccupyingStatuses, analytics.Filters{})
		if err != nil {
			return nil, err
		}
		rep := analytics.Overview(bookings, byID(listings), r)
		return &rep, nil
	})
}

// Forecast returns the naive demand projection.
func (s *AnalyticsService) Forecast(ctx context.Context, q ReportQuery) (*analytics.ForecastReport, error) {
	r := analytics.ResolveRange(q.days(), s.now(), s.loc)
	return cached(ctx, s, "forecast", r, analytics.Filters{}, func(ctx context.Context) (*analytics.ForecastReport, error) {
		bookings, err := s.bookings.FindForReport(ctx, bookingDomain.ReportQuery{
			CreatedFrom: r.Start,
			CreatedTo:   r.End,
			Statuses:    bookingDomain.OccupyingStatuses,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load bookings: %w", err)
		}
		rep := analytics.Forecast(bookings, r)
		return &rep, nil
	})
}

// OwnerSummary returns earnings and utilization for the host's listings.
func (s *AnalyticsService) OwnerSummary(ctx context.Context, actor auth.Actor) (*analytics.OwnerSummary, error) {
	ownerID := actor.ID
	listings, err := s.listings.Find(ctx, listingDomain.Filter{OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	r := analytics.ResolveRange(analytics.DefaultDays, s.now(), s.loc).ThroughEndOfDay()
	if len(listings) == 0 {
		rep := analytics.OwnerAnalytics(nil, nil, r)
		return &rep, nil
	}

	ids := make([]uuid.UUID, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	bookings, err := s.bookings.FindForReport(ctx, bookingDomain.ReportQuery{
		Statuses:   analytics.OwnerStatuses,
		ListingIDs: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	rep := analytics.OwnerAnalytics(listings, bookings, r)
	return &rep, nil
}

// load fetches bookings and listings for a report concurrently.
func (s *AnalyticsService) load(
	ctx context.Context,
	r analytics.Range,
	statuses []bookingDomain.BookingStatus,
	f analytics.Filters,
) ([]*bookingDomain.Booking, []*listingDomain.Listing, error) {
	var (
		bookings []*bookingDomain.Booking
		listings []*listingDomain.Listing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = s.bookings.FindForReport(gctx, bookingDomain.ReportQuery{
			CreatedFrom: r.Start,
			CreatedTo:   r.End,
			Statuses:    statuses,
		})
		if err != nil {
			return fmt.Errorf("failed to load bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		listings, err = s.listings.Find(gctx, listingFilter(f))
		if err != nil {
			return fmt.Errorf("failed to load listings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bookings, listings, nil
}

// cached runs load through the report cache when one is configured.
func cached[T any](
	ctx context.Context,
	s *AnalyticsService,
	kind string,
	r analytics.Range,
	f analytics.Filters,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache == nil || s.ttl <= 0 {
		return load(ctx)
	}
	key := redisrepo.KeyReport(kind, strconv.Itoa(r.Days), r.DayKey(r.End), f.Brand, f.Branch, f.Type, f.Status)
	return redisrepo.Report(ctx, s.cache, key, s.ttl, load)
}

func listingFilter(f analytics.Filters) listingDomain.Filter {
	clean := func(v string) string {
		if v == "all" {
			return ""
		}
		return v
	}
	return listingDomain.Filter{
		Brand:    clean(f.Brand),
		City:     clean(f.Branch),
		Category: clean(f.Type),
		Status:   listingDomain.Status(clean(f.Status)),
	}
}

func byID(listings []*listingDomain.Listing) map[uuid.UUID]*listingDomain.Listing {
	m := make(map[uuid.UUID]*listingDomain.Listing, len(listings))
	for _, l := range listings {
		m[l.ID] = l
	}
	return m
}

func paidStatuses() []bookingDomain.BookingStatus {
	var out []bookingDomain.BookingStatus
	for _, st := range bookingDomain.AllStatuses() {
		if st.IsPaid() {
			out = append(out, st)
		}
	}
	return out
}
