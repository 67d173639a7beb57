package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID           uuid.UUID                                 `gorm:"type:uuid;primaryKey"`
	ListingID    uuid.UUID                                 `gorm:"type:uuid;not null;index"`
	GuestID      uuid.UUID                                 `gorm:"type:uuid;not null;index"`
	HostID       uuid.UUID                                 `gorm:"type:uuid;index"`
	StartDate    string                                    `gorm:"type:varchar(10);not null;index"`
	EndDate      string                                    `gorm:"type:varchar(10);not null;index"`
	CheckInTime  string                                    `gorm:"type:varchar(5)"`
	CheckOutTime string                                    `gorm:"type:varchar(5)"`
	WindowStart  time.Time                                 `gorm:"not null"`
	WindowEnd    time.Time                                 `gorm:"not null"`
	Nights       int                                       `gorm:"not null;default:0"`
	TotalHours   float64                                   `gorm:"not null;default:0"`
	Guests       int                                       `gorm:"not null;default:1"`
	AmountCents  int64                                     `gorm:"not null"`
	Currency     string                                    `gorm:"not null;size:3;default:'PHP'"`
	Pricing      datatypes.JSON                            `gorm:"type:jsonb"`
	Status       string                                    `gorm:"not null;size:30;index"`
	Provider     string                                    `gorm:"not null;size:30;default:'paymongo'"`
	Payment      datatypes.JSONType[bookingDomain.Payment] `gorm:"type:jsonb"`
	CheckoutID   string                                    `gorm:"size:100;index"`
	PaymentID    string                                    `gorm:"size:100;index"`
	EntryToken   string                                    `gorm:"size:200"`
	EntryTokenAt *time.Time                                `gorm:""`
	AdminNotes   string                                    `gorm:"size:2000"`
	CancelReason string                                    `gorm:"size:500"`
	PaidAt       *time.Time                                `gorm:""`
	CheckedInAt  *time.Time                                `gorm:""`
	CheckedOutAt *time.Time                                `gorm:""`
	CompletedAt  *time.Time                                `gorm:""`
	CancelledAt  *time.Time                                `gorm:""`
	RefundedAt   *time.Time                                `gorm:""`
	Version      int64                                     `gorm:"not null;default:1"`
	CreatedAt    time.Time                                 `gorm:"not null;index"`
	UpdatedAt    time.Time                                 `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "id = ?", id, id.String())
}

// FindByPaymentID retrieves the booking paid with a gateway payment.
func (r *GormBookingRepository) FindByPaymentID(ctx context.Context, paymentID string) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "payment_id = ?", paymentID, paymentID)
}

// FindByCheckoutID retrieves the booking correlated with a gateway checkout.
func (r *GormBookingRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "checkout_id = ?", checkoutID, checkoutID)
}

func (r *GormBookingRepository) findOne(ctx context.Context, where string, arg any, label string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where(where, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Booking", label)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return toDomainBooking(&model)
}

// FindActiveInRange returns non-cancelled bookings whose dates intersect [startDate, endDate].
func (r *GormBookingRepository) FindActiveInRange(ctx context.Context, listingID uuid.UUID, startDate, endDate string, exclude *uuid.UUID) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("listing_id = ? AND status <> ?", listingID, string(bookingDomain.StatusCancelled)).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var models []BookingModel
	if err := q.Order("window_start ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings in range: %w", err)
	}
	return toDomainBookingsLenient(models), nil
}

// FindActiveEndingOnOrAfter returns non-cancelled bookings whose end date is >= date.
func (r *GormBookingRepository) FindActiveEndingOnOrAfter(ctx context.Context, listingID uuid.UUID, date string) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("listing_id = ? AND status <> ? AND end_date >= ?", listingID, string(bookingDomain.StatusCancelled), date).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find upcoming bookings: %w", err)
	}
	return toDomainBookingsLenient(models), nil
}

var sortColumns = map[string]string{
	bookingDomain.SortCreatedAt: "created_at",
	bookingDomain.SortStartDate: "window_start",
	bookingDomain.SortAmount:    "amount_cents",
}

func orderClause(sort string) string {
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = strings.TrimPrefix(sort, "-")
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "created_at DESC"
	}
	return col + " " + dir
}

// List retrieves bookings matching the filter with pagination.
func (r *GormBookingRepository) List(ctx context.Context, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&BookingModel{})
	if f.GuestID != nil {
		q = q.Where("guest_id = ?", *f.GuestID)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	if len(f.ListingIDs) > 0 {
		q = q.Where("listing_id IN ?", f.ListingIDs)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.DateFrom != "" {
		q = q.Where("end_date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("start_date <= ?", f.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var models []BookingModel
	if err := q.Order(orderClause(f.Sort)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, 0, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, bk)
	}
	return bookings, total, nil
}

// FindForReport retrieves all bookings matching the report query.
func (r *GormBookingRepository) FindForReport(ctx context.Context, rq bookingDomain.ReportQuery) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx)
	if !rq.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", rq.CreatedFrom)
	}
	if !rq.CreatedTo.IsZero() {
		q = q.Where("created_at <= ?", rq.CreatedTo)
	}
	if len(rq.Statuses) > 0 {
		statuses := make([]string, len(rq.Statuses))
		for i, s := range rq.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if len(rq.ListingIDs) > 0 {
		q = q.Where("listing_id IN ?", rq.ListingIDs)
	}

	var models []BookingModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load report bookings: %w", err)
	}
	return toDomainBookingsLenient(models), nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if translated := translateDBErr(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion has already been called on the aggregate.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]any{
			"status":         model.Status,
			"pricing":        model.Pricing,
			"payment":        model.Payment,
			"checkout_id":    model.CheckoutID,
			"payment_id":     model.PaymentID,
			"entry_token":    model.EntryToken,
			"entry_token_at": model.EntryTokenAt,
			"admin_notes":    model.AdminNotes,
			"cancel_reason":  model.CancelReason,
			"paid_at":        model.PaidAt,
			"checked_in_at":  model.CheckedInAt,
			"checked_out_at": model.CheckedOutAt,
			"completed_at":   model.CompletedAt,
			"cancelled_at":   model.CancelledAt,
			"refunded_at":    model.RefundedAt,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		if translated := translateDBErr(result.Error); translated != result.Error {
			return translated
		}
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	s := bk.Snapshot()

	var pricing datatypes.JSON
	if s.Pricing != nil {
		raw, err := json.Marshal(s.Pricing)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pricing: %w", err)
		}
		pricing = raw
	}

	return &BookingModel{
		ID:           s.ID,
		ListingID:    s.ListingID,
		GuestID:      s.GuestID,
		HostID:       s.HostID,
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		CheckInTime:  s.CheckInTime,
		CheckOutTime: s.CheckOutTime,
		WindowStart:  s.WindowStart.UTC(),
		WindowEnd:    s.WindowEnd.UTC(),
		Nights:       s.Nights,
		TotalHours:   s.TotalHours,
		Guests:       s.Guests,
		AmountCents:  s.AmountCents,
		Currency:     s.Currency,
		Pricing:      pricing,
		Status:       string(s.Status),
		Provider:     s.Provider,
		Payment:      datatypes.NewJSONType(s.Payment),
		CheckoutID:   s.Payment.CheckoutID,
		PaymentID:    s.Payment.PaymentID,
		EntryToken:   s.EntryToken,
		EntryTokenAt: s.EntryTokenAt,
		AdminNotes:   s.AdminNotes,
		CancelReason: s.CancelReason,
		PaidAt:       s.PaidAt,
		CheckedInAt:  s.CheckedInAt,
		CheckedOutAt: s.CheckedOutAt,
		CompletedAt:  s.CompletedAt,
		CancelledAt:  s.CancelledAt,
		RefundedAt:   s.RefundedAt,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var pricing *bookingDomain.PricingBreakdown
	if len(m.Pricing) > 0 && string(m.Pricing) != "null" {
		var p bookingDomain.PricingBreakdown
		if err := json.Unmarshal(m.Pricing, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pricing: %w", err)
		}
		pricing = &p
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:           m.ID,
		ListingID:    m.ListingID,
		GuestID:      m.GuestID,
		HostID:       m.HostID,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		CheckInTime:  m.CheckInTime,
		CheckOutTime: m.CheckOutTime,
		WindowStart:  m.WindowStart,
		WindowEnd:    m.WindowEnd,
		Nights:       m.Nights,
		TotalHours:   m.TotalHours,
		Guests:       m.Guests,
		AmountCents:  m.AmountCents,
		Currency:     m.Currency,
		Pricing:      pricing,
		Status:       status,
		Provider:     m.Provider,
		Payment:      m.Payment.Data(),
		EntryToken:   m.EntryToken,
		EntryTokenAt: m.EntryTokenAt,
		AdminNotes:   m.AdminNotes,
		CancelReason: m.CancelReason,
		PaidAt:       m.PaidAt,
		CheckedInAt:  m.CheckedInAt,
		CheckedOutAt: m.CheckedOutAt,
		CompletedAt:  m.CompletedAt,
		CancelledAt:  m.CancelledAt,
		RefundedAt:   m.RefundedAt,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}), nil
}

// toDomainBookingsLenient converts rows for read-side scans, skipping rows that
// no longer decode rather than failing the whole query.
func toDomainBookingsLenient(models []BookingModel) []*bookingDomain.Booking {
	out := make([]*bookingDomain.Booking, 0, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			continue
		}
		out = append(out, bk)
	}
	return out
}
