package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/notification"
	"github.com/flexidesk/service-booking/internal/payment"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

const (
	eventSource = "service-booking"
	lockWait    = 5 * time.Second
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ListingID        uuid.UUID                       `json:"listing_id"`
	StartDate        string                          `json:"start_date" binding:"required"`
	EndDate          string                          `json:"end_date" binding:"required"`
	CheckInTime      string                          `json:"check_in_time"`
	CheckOutTime     string                          `json:"check_out_time"`
	Guests           int                             `json:"guests"`
	Nights           int                             `json:"nights"`
	TotalHours       float64                         `json:"total_hours"`
	MultiplyByGuests bool                            `json:"multiply_by_guests"`
	Pricing          *bookingDomain.PricingBreakdown `json:"pricing"`
	ReturnURL        string                          `json:"return_url"`
}

// CheckAvailabilityRequest asks whether a window is free.
type CheckAvailabilityRequest struct {
	ListingID        uuid.UUID  `json:"listing_id"`
	StartDate        string     `json:"start_date" binding:"required"`
	EndDate          string     `json:"end_date" binding:"required"`
	CheckInTime      string     `json:"check_in_time"`
	CheckOutTime     string     `json:"check_out_time"`
	ExcludeBookingID *uuid.UUID `json:"exclude_booking_id"`
}

// AvailabilityDTO is the answer to a CheckAvailabilityRequest.
type AvailabilityDTO struct {
	Available         bool       `json:"available"`
	ConflictBookingID *uuid.UUID `json:"conflict_booking_id,omitempty"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID           uuid.UUID                       `json:"id"`
	ListingID    uuid.UUID                       `json:"listing_id"`
	GuestID      uuid.UUID                       `json:"guest_id"`
	HostID       uuid.UUID                       `json:"host_id"`
	StartDate    string                          `json:"start_date"`
	EndDate      string                          `json:"end_date"`
	CheckInTime  string                          `json:"check_in_time,omitempty"`
	CheckOutTime string                          `json:"check_out_time,omitempty"`
	StartsAt     time.Time                       `json:"starts_at"`
	EndsAt       time.Time                       `json:"ends_at"`
	Nights       int                             `json:"nights,omitempty"`
	TotalHours   float64                         `json:"total_hours,omitempty"`
	Guests       int                             `json:"guests"`
	AmountCents  int64                           `json:"amount_cents"`
	Currency     string                          `json:"currency"`
	Pricing      *bookingDomain.PricingBreakdown `json:"pricing,omitempty"`
	Status       string                          `json:"status"`
	Provider     string                          `json:"provider"`
	CheckoutURL  string                          `json:"checkout_url,omitempty"`
	PaymentID    string                          `json:"payment_id,omitempty"`
	EntryToken   string                          `json:"entry_token,omitempty"`
	AdminNotes   string                          `json:"admin_notes,omitempty"`
	CancelReason string                          `json:"cancel_reason,omitempty"`
	PaidAt       *time.Time                      `json:"paid_at,omitempty"`
	CheckedInAt  *time.Time                      `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time                      `json:"checked_out_at,omitempty"`
	CompletedAt  *time.Time                      `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                      `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time                      `json:"refunded_at,omitempty"`
	Version      int64                           `json:"version"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// CreateBookingResult is returned by CreateBooking.
type CreateBookingResult struct {
	Booking     BookingDTO `json:"booking"`
	CheckoutURL string     `json:"checkout_url"`
}

// PaginatedResult is one page of a listing query.
type PaginatedResult[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// TokenSigner issues and verifies entry tokens.
type TokenSigner interface {
	bookingDomain.EntryTokenSigner
	Verify(token string) (bookingID, listingID uuid.UUID, ok bool)
}

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// BookingConfig holds the tunables of BookingService.
type BookingConfig struct {
	AppURL         string
	Location       *time.Location
	PaymentTimeout time.Duration
}

// BookingDeps are the collaborators of BookingService.
type BookingDeps struct {
	Bookings     bookingDomain.BookingRepository
	Listings     listingDomain.Repository
	Availability *AvailabilityChecker
	Pricing      bookingDomain.PricingStrategy
	Gateway      payment.Gateway
	Signer       TokenSigner
	Notifier     notification.Notifier
	Publisher    EventPublisher
	Locker       ListingLocker
	Logger       *zap.Logger
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo         bookingDomain.BookingRepository
	listings     listingDomain.Repository
	availability *AvailabilityChecker
	pricing      bookingDomain.PricingStrategy
	gateway      payment.Gateway
	signer       TokenSigner
	notifier     notification.Notifier
	publisher    EventPublisher
	locker       ListingLocker
	logger       *zap.Logger
	cfg          BookingConfig
	now          func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingDeps, cfg BookingConfig) *BookingService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 15 * time.Second
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &BookingService{
		repo:         deps.Bookings,
		listings:     deps.Listings,
		availability: deps.Availability,
		pricing:      deps.Pricing,
		gateway:      deps.Gateway,
		signer:       deps.Signer,
		notifier:     deps.Notifier,
		publisher:    deps.Publisher,
		locker:       deps.Locker,
		logger:       deps.Logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateBooking validates the request, reserves the window and opens a gateway checkout.
// When the gateway call fails the booking is kept in pending_payment and an
// upstream error carrying its ID is returned.
func (s *BookingService) CreateBooking(ctx context.Context, actor auth.Actor, req CreateBookingRequest) (*CreateBookingResult, error) {
	if req.ListingID == uuid.Nil {
		return nil, apperror.NewValidationError("listing_id is required")
	}
	if req.Guests < 0 {
		return nil, apperror.NewValidationError("guests must be at least 1")
	}
	if req.Guests == 0 {
		req.Guests = 1
	}

	listing, err := s.listings.FindByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, apperror.NewInvalidStateMessage("listing is not available for booking")
	}

	window, err := bookingDomain.ResolveWindow(req.StartDate, req.EndDate, req.CheckInTime, req.CheckOutTime, s.cfg.Location)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}

	rate, err := listing.BaseRate()
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.Calculate(bookingDomain.PricingParams{
		Rate:             rate,
		Window:           window,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Nights:           req.Nights,
		TotalHours:       req.TotalHours,
		Guests:           req.Guests,
		MultiplyByGuests: listing.MultiplyByGuests || req.MultiplyByGuests,
	})
	if err != nil {
		return nil, apperror.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}

	bk, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
		ListingID:    listing.ID,
		GuestID:      actor.ID,
		HostID:       listing.OwnerID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		CheckInTime:  req.CheckInTime,
		CheckOutTime: req.CheckOutTime,
		Nights:       req.Nights,
		TotalHours:   req.TotalHours,
		Guests:       req.Guests,
		AmountCents:  quote.TotalCents,
		Currency:     listing.CurrencyOrDefault(),
		Pricing:      req.Pricing,
		Location:     s.cfg.Location,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, bk); err != nil {
		return nil, err
	}
	s.publishBookingRequested(ctx, bk)

	checkout, err := s.openCheckout(ctx, bk, listing, quote, req.ReturnURL)
	if err != nil {
		s.logger.Error("checkout creation failed, booking left pending",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		return nil, apperror.NewUpstreamError("payment gateway is unavailable", err).
			WithDetail("bookingId", bk.ID().String())
	}

	if err := bk.AttachCheckout(checkout.ID, checkout.URL); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to store checkout: %w", err)
	}

	return &CreateBookingResult{Booking: toBookingDTO(bk), CheckoutURL: checkout.URL}, nil
}

// reserve runs the availability check and insert under the listing lock.
func (s *BookingService) reserve(ctx context.Context, bk *bookingDomain.Booking) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	release, err := s.locker.LockListing(lockCtx, bk.ListingID())
	cancel()
	if err != nil {
		if lockCtx.Err() == nil && !errors.Is(err, ErrLockTimeout) {
			return fmt.Errorf("failed to lock listing: %w", err)
		}
		return apperror.NewConflictError("another booking for this listing is in progress, please retry")
	}
	defer release()

	conflict, err := s.availability.CheckOverlap(ctx, OverlapQuery{
		ListingID:    bk.ListingID(),
		StartDate:    bk.StartDate(),
		EndDate:      bk.EndDate(),
		CheckInTime:  bk.CheckInTime(),
		CheckOutTime: bk.CheckOutTime(),
	})
	if err != nil {
		return err
	}
	if conflict != nil {
		return overlapConflict(conflict)
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		if errors.Is(err, bookingDomain.ErrWindowTaken) {
			return s.windowTaken(ctx, bk, err)
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// windowTaken resolves which booking won the race when storage rejected the insert.
// A writer outside the listing lock can commit between the check and the insert.
func (s *BookingService) windowTaken(ctx context.Context, bk *bookingDomain.Booking, saveErr error) error {
	conflict, err := s.availability.CheckOverlap(ctx, OverlapQuery{
		ListingID:    bk.ListingID(),
		StartDate:    bk.StartDate(),
		EndDate:      bk.EndDate(),
		CheckInTime:  bk.CheckInTime(),
		CheckOutTime: bk.CheckOutTime(),
	})
	if err != nil || conflict == nil {
		s.logger.Warn("overlapping booking not found after storage rejected window",
			zap.String("listing_id", bk.ListingID().String()),
			zap.NamedError("save_error", saveErr),
			zap.Error(err),
		)
		return saveErr
	}
	return overlapConflict(conflict)
}

func overlapConflict(conflict *bookingDomain.Booking) error {
	return apperror.NewConflictError("selected dates and times are no longer available for this listing").
		WithDetail("conflictBookingId", conflict.ID().String())
}

func (s *BookingService) openCheckout(
	ctx context.Context,
	bk *bookingDomain.Booking,
	listing *listingDomain.Listing,
	quote bookingDomain.Quote,
	returnURL string,
) (*payment.Checkout, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	base := strings.TrimSuffix(s.cfg.AppURL, "/")
	if returnURL == "" {
		returnURL = base + "/bookings/" + bk.ID().String()
	}
	name := listing.DisplayName()
	unitCents, qty := bk.AmountCents(), 1
	if int64(quote.Units*quote.GuestFactor)*quote.UnitCents == bk.AmountCents() {
		unitCents, qty = quote.UnitCents, quote.Units*quote.GuestFactor
	}

	return s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		IdempotencyKey: bk.ID().String(),
		AmountCents:    bk.AmountCents(),
		Currency:       bk.Currency(),
		Description:    fmt.Sprintf("%s, %s to %s", name, bk.StartDate(), bk.EndDate()),
		LineItemName:   fmt.Sprintf("%s (%s)", name, quote.Unit),
		UnitCents:      unitCents,
		Quantity:       qty,
		SuccessURL:     appendQuery(returnURL, "status=success"),
		CancelURL:      appendQuery(returnURL, "status=cancelled"),
		Metadata: map[string]string{
			"booking_id": bk.ID().String(),
			"listing_id": bk.ListingID().String(),
			"guest_id":   bk.GuestID().String(),
		},
	})
}

func appendQuery(u, q string) string {
	if strings.Contains(u, "?") {
		return u + "&" + q
	}
	return u + "?" + q
}

// CheckAvailability reports whether the requested window is free.
func (s *BookingService) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*AvailabilityDTO, error) {
	if req.ListingID == uuid.Nil {
		return nil, apperror.NewValidationError("listing_id is required")
	}
	conflict, err := s.availability.CheckOverlap(ctx, OverlapQuery{
		ListingID:    req.ListingID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		CheckInTime:  req.CheckInTime,
		CheckOutTime: req.CheckOutTime,
		Exclude:      req.ExcludeBookingID,
	})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		id := conflict.ID()
		return &AvailabilityDTO{Available: false, ConflictBookingID: &id}, nil
	}
	return &AvailabilityDTO{Available: true}, nil
}

// GetBlockedDates returns the sorted nights that are no longer bookable for a listing.
func (s *BookingService) GetBlockedDates(ctx context.Context, listingID uuid.UUID) ([]string, error) {
	return s.availability.BlockedDates(ctx, listingID, s.now())
}

// ConfirmPayment marks a booking paid and issues its entry token. Confirming an
// already paid booking succeeds without changing the token.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, actor auth.Actor, paymentID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && bk.GuestID() != actor.ID {
		return nil, apperror.NewForbiddenError("booking does not belong to this user")
	}
	return s.confirm(ctx, bk, actor, paymentID)
}

// ConfirmCheckout confirms the booking correlated with a gateway checkout.
func (s *BookingService) ConfirmCheckout(ctx context.Context, bookingID uuid.UUID, checkoutID, paymentID string) (*BookingDTO, error) {
	var (
		bk  *bookingDomain.Booking
		err error
	)
	if bookingID != uuid.Nil {
		bk, err = s.repo.FindByID(ctx, bookingID)
	} else {
		bk, err = s.repo.FindByCheckoutID(ctx, checkoutID)
	}
	if err != nil {
		return nil, err
	}
	if checkoutID != "" && bk.Payment().CheckoutID != "" && bk.Payment().CheckoutID != checkoutID {
		return nil, apperror.NewValidationError("checkout does not match booking")
	}
	return s.confirm(ctx, bk, auth.SystemActor, paymentID)
}

func (s *BookingService) confirm(ctx context.Context, bk *bookingDomain.Booking, actor auth.Actor, paymentID string) (*BookingDTO, error) {
	from := bk.Status()
	changed, err := bk.MarkPaid(paymentID, s.signer)
	if err != nil {
		return nil, err
	}
	if changed {
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return nil, err
		}
	}

	if !from.IsPaid() {
		s.publishStatusChanged(ctx, events.BookingPaid, bk, actor, from, "")
		s.sendConfirmation(ctx, bk)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// sendConfirmation is best-effort; failures are logged only.
func (s *BookingService) sendConfirmation(ctx context.Context, bk *bookingDomain.Booking) {
	if s.notifier == nil {
		return
	}
	name := "Workspace"
	if l, err := s.listings.FindByID(ctx, bk.ListingID()); err == nil {
		name = l.DisplayName()
	}
	err := s.notifier.SendBookingConfirmation(ctx, notification.Confirmation{
		BookingID:   bk.ID(),
		GuestID:     bk.GuestID(),
		ListingID:   bk.ListingID(),
		ListingName: name,
		StartDate:   bk.StartDate(),
		EndDate:     bk.EndDate(),
		AmountCents: bk.AmountCents(),
		Currency:    bk.Currency(),
		EntryToken:  bk.EntryToken(),
	})
	if err != nil {
		s.logger.Warn("booking confirmation not sent",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}
}

// HandlePaymentFailed cancels a booking whose checkout failed before payment.
func (s *BookingService) HandlePaymentFailed(ctx context.Context, bookingID uuid.UUID, checkoutID, reason string) error {
	var (
		bk  *bookingDomain.Booking
		err error
	)
	if bookingID != uuid.Nil {
		bk, err = s.repo.FindByID(ctx, bookingID)
	} else {
		bk, err = s.repo.FindByCheckoutID(ctx, checkoutID)
	}
	if err != nil {
		return err
	}
	if bk.Status() != bookingDomain.StatusPendingPayment && bk.Status() != bookingDomain.StatusAwaitingPayment {
		return nil
	}
	if _, err := s.cancel(ctx, bk, auth.SystemActor, "payment failed: "+reason); err != nil {
		if apperror.Is(err, apperror.KindInvalidState) {
			s.logger.Info("failed payment left booking unchanged",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}
	return nil
}

// CancelBooking cancels a booking on behalf of its guest or an admin.
// Cancelling an already cancelled booking succeeds without changes.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, actor auth.Actor, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && bk.GuestID() != actor.ID {
		return nil, apperror.NewForbiddenError("only the guest or an admin can cancel this booking")
	}
	return s.cancel(ctx, bk, actor, reason)
}

func (s *BookingService) cancel(ctx context.Context, bk *bookingDomain.Booking, actor auth.Actor, reason string) (*BookingDTO, error) {
	from := bk.Status()
	changed, err := bk.Cancel(reason, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return nil, err
		}
		s.publishStatusChanged(ctx, events.BookingCancelled, bk, actor, from, reason)
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// MarkComplete marks a booking fulfilled. Only the listing's host or an admin may do so.
func (s *BookingService) MarkComplete(ctx context.Context, bookingID uuid.UUID, actor auth.Actor) (*BookingDTO, error) {
	return s.hostTransition(ctx, bookingID, actor, events.BookingCompleted, func(bk *bookingDomain.Booking) error {
		return bk.Complete(s.now())
	})
}

// CheckIn records the guest's arrival. A non-empty token must be the booking's entry token.
func (s *BookingService) CheckIn(ctx context.Context, bookingID uuid.UUID, actor auth.Actor, token string) (*BookingDTO, error) {
	return s.hostTransition(ctx, bookingID, actor, events.BookingCheckedIn, func(bk *bookingDomain.Booking) error {
		if token != "" {
			b, l, ok := s.signer.Verify(token)
			if !ok || b != bk.ID() || l != bk.ListingID() || token != bk.EntryToken() {
				return apperror.NewValidationError("entry token is not valid for this booking")
			}
		}
		return bk.CheckIn(s.now())
	})
}

// CheckOut records the guest's departure.
func (s *BookingService) CheckOut(ctx context.Context, bookingID uuid.UUID, actor auth.Actor) (*BookingDTO, error) {
	return s.hostTransition(ctx, bookingID, actor, events.BookingCheckedOut, func(bk *bookingDomain.Booking) error {
		return bk.CheckOut(s.now())
	})
}

func (s *BookingService) hostTransition(
	ctx context.Context,
	bookingID uuid.UUID,
	actor auth.Actor,
	eventType string,
	apply func(*bookingDomain.Booking) error,
) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && bk.HostID() != actor.ID {
		return nil, apperror.NewForbiddenError("only the host or an admin can update this booking")
	}

	from := bk.Status()
	if err := apply(bk); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, eventType, bk, actor, from, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking visible to its guest, host or an admin.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, actor auth.Actor) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && bk.GuestID() != actor.ID && bk.HostID() != actor.ID {
		return nil, apperror.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListMine returns the guest's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, actor auth.Actor, page, limit int) (*PaginatedResult[BookingDTO], error) {
	id := actor.ID
	return s.list(ctx, bookingDomain.ListFilter{GuestID: &id, Sort: "-" + bookingDomain.SortCreatedAt, Page: page, Limit: limit})
}

// ListForHost returns bookings on the host's listings.
func (s *BookingService) ListForHost(ctx context.Context, actor auth.Actor, q ListQuery) (*PaginatedResult[BookingDTO], error) {
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	id := actor.ID
	filter.HostID = &id
	return s.list(ctx, filter)
}

func (s *BookingService) list(ctx context.Context, filter bookingDomain.ListFilter) (*PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return &PaginatedResult[BookingDTO]{Items: dtos, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// --- Admin methods ---

// ListQuery is the filter accepted by the admin and host booking lists.
type ListQuery struct {
	Status   string
	DateFrom string
	DateTo   string
	Sort     string
	Page     int
	Limit    int
}

var sortKeys = map[string]string{
	"createdAt":   bookingDomain.SortCreatedAt,
	"startDate":   bookingDomain.SortStartDate,
	"startTime":   bookingDomain.SortStartDate,
	"amount":      bookingDomain.SortAmount,
	"totalAmount": bookingDomain.SortAmount,
}

func (q ListQuery) toFilter() (bookingDomain.ListFilter, error) {
	f := bookingDomain.ListFilter{Page: q.Page, Limit: q.Limit, Sort: "-" + bookingDomain.SortCreatedAt}
	if q.Status != "" && q.Status != "all" {
		st, err := bookingDomain.ParseBookingStatus(q.Status)
		if err != nil {
			return f, apperror.NewValidationError(err.Error())
		}
		f.Status = &st
	}
	for _, d := range []string{q.DateFrom, q.DateTo} {
		if d == "" {
			continue
		}
		if _, err := bookingDomain.ParseDate(d, time.UTC); err != nil {
			return f, apperror.NewValidationError(err.Error())
		}
	}
	f.DateFrom, f.DateTo = q.DateFrom, q.DateTo
	if q.Sort != "" {
		desc := strings.HasPrefix(q.Sort, "-")
		key, ok := sortKeys[strings.TrimPrefix(q.Sort, "-")]
		if !ok {
			return f, apperror.NewValidationError("unsupported sort key: " + q.Sort)
		}
		if desc {
			key = "-" + key
		}
		f.Sort = key
	}
	return f, nil
}

// ListAllBookings returns a filtered page of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, q ListQuery) (*PaginatedResult[BookingDTO], error) {
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// AdminUpdateRequest changes a booking's status and/or notes.
type AdminUpdateRequest struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// AdminUpdateBooking applies an administrative override through the transition table.
func (s *BookingService) AdminUpdateBooking(ctx context.Context, bookingID uuid.UUID, actor auth.Actor, req AdminUpdateRequest) (*BookingDTO, error) {
	if req.Status == nil && req.AdminNotes == nil {
		return nil, apperror.NewValidationError("nothing to update")
	}
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	if req.Status != nil {
		target, err := bookingDomain.ParseBookingStatus(*req.Status)
		if err != nil {
			return nil, apperror.NewValidationError(err.Error())
		}
		if target == bookingDomain.StatusPaid {
			if !from.IsPaid() {
				if req.AdminNotes != nil {
					bk.SetAdminNotes(*req.AdminNotes)
				}
				return s.confirm(ctx, bk, actor, "")
			}
		} else if err := bk.ForceStatus(target, s.now()); err != nil {
			return nil, err
		}
	}
	if req.AdminNotes != nil {
		bk.SetAdminNotes(*req.AdminNotes)
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	if bk.Status() != from {
		s.publishStatusChanged(ctx, events.BookingUpdated, bk, actor, from, "admin override")
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// PaymentActionRequest is the body of the admin capture and refund endpoints.
type PaymentActionRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// ReceiptDTO is the gateway acknowledgement returned to admins.
type ReceiptDTO struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	AmountCents int64       `json:"amount_cents"`
	Booking     *BookingDTO `json:"booking,omitempty"`
}

// CapturePayment captures an authorized gateway payment. A zero amount captures the booking total.
func (s *BookingService) CapturePayment(ctx context.Context, paymentID string, req PaymentActionRequest) (*ReceiptDTO, error) {
	bk, err := s.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	amount := req.AmountCents
	if amount <= 0 {
		amount = bk.GrossCents()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	receipt, err := s.gateway.Capture(ctx, paymentID, amount)
	if err != nil {
		return nil, apperror.NewUpstreamError("payment capture failed", err)
	}

	result := toBookingDTO(bk)
	return &ReceiptDTO{ID: receipt.ID, Status: receipt.Status, AmountCents: receipt.AmountCents, Booking: &result}, nil
}

// RefundPayment refunds a paid booking through the gateway and marks it refunded.
func (s *BookingService) RefundPayment(ctx context.Context, paymentID string, actor auth.Actor, req PaymentActionRequest) (*ReceiptDTO, error) {
	bk, err := s.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !bk.Status().CanTransitionTo(bookingDomain.StatusRefunded) {
		return nil, apperror.NewInvalidStateError(string(bk.Status()), string(bookingDomain.StatusRefunded))
	}
	amount := req.AmountCents
	if amount <= 0 || amount > bk.GrossCents() {
		amount = bk.GrossCents()
	}
	reason := req.Reason
	if reason == "" {
		reason = payment.RefundReasonRequested
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	receipt, err := s.gateway.Refund(gwCtx, paymentID, amount, reason)
	if err != nil {
		return nil, apperror.NewUpstreamError("payment refund failed", err)
	}

	from := bk.Status()
	if err := bk.Refund(receipt.ID, amount, s.now()); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, events.BookingRefunded, bk, actor, from, reason)

	result := toBookingDTO(bk)
	return &ReceiptDTO{ID: receipt.ID, Status: receipt.Status, AmountCents: receipt.AmountCents, Booking: &result}, nil
}

// --- Helpers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	w := bk.Window()
	return BookingDTO{
		ID:           bk.ID(),
		ListingID:    bk.ListingID(),
		GuestID:      bk.GuestID(),
		HostID:       bk.HostID(),
		StartDate:    bk.StartDate(),
		EndDate:      bk.EndDate(),
		CheckInTime:  bk.CheckInTime(),
		CheckOutTime: bk.CheckOutTime(),
		StartsAt:     w.Start,
		EndsAt:       w.End,
		Nights:       bk.Nights(),
		TotalHours:   bk.TotalHours(),
		Guests:       bk.Guests(),
		AmountCents:  bk.AmountCents(),
		Currency:     bk.Currency(),
		Pricing:      bk.Pricing(),
		Status:       string(bk.Status()),
		Provider:     bk.Provider(),
		CheckoutURL:  bk.Payment().CheckoutURL,
		PaymentID:    bk.Payment().PaymentID,
		EntryToken:   bk.EntryToken(),
		AdminNotes:   bk.AdminNotes(),
		CancelReason: bk.CancelReason(),
		PaidAt:       bk.PaidAt(),
		CheckedInAt:  bk.CheckedInAt(),
		CheckedOutAt: bk.CheckedOutAt(),
		CompletedAt:  bk.CompletedAt(),
		CancelledAt:  bk.CancelledAt(),
		RefundedAt:   bk.RefundedAt(),
		Version:      bk.Version(),
		CreatedAt:    bk.CreatedAt(),
		UpdatedAt:    bk.UpdatedAt(),
	}
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingRequestedEvent{
		BookingID:   bk.ID(),
		ListingID:   bk.ListingID(),
		GuestID:     bk.GuestID(),
		HostID:      bk.HostID(),
		StartDate:   bk.StartDate(),
		EndDate:     bk.EndDate(),
		AmountCents: bk.AmountCents(),
		Currency:    bk.Currency(),
		OccurredAt:  time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingRequested, bk.ID().String(), evt)
}

func (s *BookingService) publishStatusChanged(
	ctx context.Context,
	eventType string,
	bk *bookingDomain.Booking,
	actor auth.Actor,
	from bookingDomain.BookingStatus,
	reason string,
) {
	evt := events.BookingStatusChangedEvent{
		BookingID:  bk.ID(),
		ListingID:  bk.ListingID(),
		GuestID:    bk.GuestID(),
		ActorID:    actor.ID,
		From:       string(from),
		To:         string(bk.Status()),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, eventType, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEventWithKey(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
