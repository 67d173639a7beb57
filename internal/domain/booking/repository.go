package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrWindowTaken is wrapped by Save when storage rejects a window that overlaps
// another non-cancelled booking of the same listing.
var ErrWindowTaken = errors.New("booking window overlaps an existing booking")

// ListFilter narrows administrative and owner booking listings.
type ListFilter struct {
	GuestID    *uuid.UUID
	HostID     *uuid.UUID
	ListingIDs []uuid.UUID
	Status     *BookingStatus
	DateFrom   string
	DateTo     string
	Sort       string
	Page       int
	Limit      int
}

// Sort keys accepted by ListFilter.Sort. A leading "-" sorts descending.
const (
	SortCreatedAt = "createdAt"
	SortStartDate = "startDate"
	SortAmount    = "amount"
)

// ReportQuery selects bookings for analytics. Zero times leave that bound open.
type ReportQuery struct {
	CreatedFrom time.Time
	CreatedTo   time.Time
	Statuses    []BookingStatus
	ListingIDs  []uuid.UUID
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByPaymentID retrieves the booking paid with a gateway payment.
	FindByPaymentID(ctx context.Context, paymentID string) (*Booking, error)

	// FindByCheckoutID retrieves the booking correlated with a gateway checkout.
	FindByCheckoutID(ctx context.Context, checkoutID string) (*Booking, error)

	// FindActiveInRange returns non-cancelled bookings of a listing whose date span
	// intersects [startDate, endDate] inclusively, optionally excluding one booking.
	FindActiveInRange(ctx context.Context, listingID uuid.UUID, startDate, endDate string, exclude *uuid.UUID) ([]*Booking, error)

	// FindActiveEndingOnOrAfter returns non-cancelled bookings of a listing whose end date is >= date.
	FindActiveEndingOnOrAfter(ctx context.Context, listingID uuid.UUID, date string) ([]*Booking, error)

	// List retrieves bookings matching the filter with pagination.
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// FindForReport retrieves all bookings matching the report query.
	FindForReport(ctx context.Context, q ReportQuery) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
