//go:build integration

package main_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/credential"
	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/repository"
)

// TestCheckoutPaid_MarksBookingPaid verifies that a CheckoutPaidEvent published to
// payment.events is picked up and the booking transitions to "paid".
func TestCheckoutPaid_MarksBookingPaid(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	listing := seedListing(t, stack.Listings)
	guest := auth.Actor{ID: uuid.New(), Role: auth.RoleGuest}
	created, err := stack.Service.CreateBooking(context.Background(), guest, application.CreateBookingRequest{
		ListingID:    listing.ID,
		StartDate:    "2030-06-01",
		EndDate:      "2030-06-01",
		CheckInTime:  "09:00",
		CheckOutTime: "12:00",
	})
	require.NoError(t, err)
	bookingID := created.Booking.ID

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := events.CheckoutPaidEvent{
		BookingID:  bookingID,
		CheckoutID: "cs_" + bookingID.String(),
		PaymentID:  "pay_integration",
		OccurredAt: time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, events.TopicPaymentEvents,
		"service-payment", events.PaymentCheckoutPaid, bookingID.String(), evt)

	// Assert: booking transitions to "paid" with an entry token.
	model := waitForBookingStatus(t, infra.DB, bookingID, string(bookingDomain.StatusPaid), 15*time.Second)
	assert.Equal(t, "pay_integration", model.PaymentID)
	assert.NotEmpty(t, model.EntryToken)
	assert.NotNil(t, model.PaidAt)

	// Assert: BookingPaid on booking.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicBookingEvents, events.BookingPaid, 15*time.Second)

	var paid events.BookingStatusChangedEvent
	require.NoError(t, ce.ParseData(&paid))
	assert.Equal(t, bookingID, paid.BookingID)
	assert.Equal(t, string(bookingDomain.StatusPaid), paid.To)
}

// TestExclusionConstraint_RejectsOverlap verifies that the database refuses two live
// bookings of one listing sharing an instant, even when the application check is bypassed.
func TestExclusionConstraint_RejectsOverlap(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	repo := repository.NewGormBookingRepository(db)
	ctx := context.Background()
	listingID := uuid.New()

	newBooking := func(in, out string) *bookingDomain.Booking {
		bk, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
			ListingID:    listingID,
			GuestID:      uuid.New(),
			HostID:       uuid.New(),
			StartDate:    "2030-06-01",
			EndDate:      "2030-06-01",
			CheckInTime:  in,
			CheckOutTime: out,
			AmountCents:  10000,
		})
		require.NoError(t, err)
		return bk
	}

	require.NoError(t, repo.Save(ctx, newBooking("09:00", "12:00")))

	err := repo.Save(ctx, newBooking("11:00", "13:00"))
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
	assert.ErrorIs(t, err, bookingDomain.ErrWindowTaken)

	require.NoError(t, repo.Save(ctx, newBooking("12:00", "14:00")), "half-open windows may touch")

	cancelled := newBooking("15:00", "16:00")
	_, err = cancelled.Cancel("", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cancelled))
	require.NoError(t, repo.Save(ctx, newBooking("15:00", "16:00")), "cancelled bookings do not block")
}

// staleReads hides existing bookings from the first availability lookup, standing in
// for a writer that commits between the check and the insert.
type staleReads struct {
	bookingDomain.BookingRepository
	calls atomic.Int32
}

func (s *staleReads) FindActiveInRange(ctx context.Context, listingID uuid.UUID, startDate, endDate string, exclude *uuid.UUID) ([]*bookingDomain.Booking, error) {
	if s.calls.Add(1) == 1 {
		return nil, nil
	}
	return s.BookingRepository.FindActiveInRange(ctx, listingID, startDate, endDate, exclude)
}

// TestCreateBooking_ExclusionConflictNamesWinner verifies that a booking rejected by the
// exclusion constraint still reports the booking that holds the window.
func TestCreateBooking_ExclusionConflictNamesWinner(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	bookings := repository.NewGormBookingRepository(db)
	listings := repository.NewGormListingRepository(db)
	listing := seedListing(t, listings)

	winner, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
		ListingID:    listing.ID,
		GuestID:      uuid.New(),
		HostID:       listing.OwnerID,
		StartDate:    "2030-07-01",
		EndDate:      "2030-07-01",
		CheckInTime:  "09:00",
		CheckOutTime: "12:00",
		AmountCents:  150000,
	})
	require.NoError(t, err)
	require.NoError(t, bookings.Save(ctx, winner))

	svc := application.NewBookingService(application.BookingDeps{
		Bookings:     bookings,
		Listings:     listings,
		Availability: application.NewAvailabilityChecker(&staleReads{BookingRepository: bookings}, time.UTC),
		Pricing:      bookingDomain.NewStandardPricingStrategy(),
		Gateway:      stubGateway{},
		Signer:       credential.NewHMACSigner("integration-secret"),
	}, application.BookingConfig{AppURL: "https://app.test"})

	_, err = svc.CreateBooking(ctx, auth.Actor{ID: uuid.New(), Role: auth.RoleGuest}, application.CreateBookingRequest{
		ListingID:    listing.ID,
		StartDate:    "2030-07-01",
		EndDate:      "2030-07-01",
		CheckInTime:  "11:00",
		CheckOutTime: "13:00",
	})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, winner.ID().String(), appErr.Details["conflictBookingId"])
}
