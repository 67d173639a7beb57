package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

// DefaultProvider is the checkout gateway used for new bookings.
const DefaultProvider = "paymongo"

// Fees are the named fee components of a pricing breakdown.
type Fees struct {
	Service  int64 `json:"service"`
	Cleaning int64 `json:"cleaning"`
}

// Total returns the sum of all fee components.
func (f Fees) Total() int64 { return f.Service + f.Cleaning }

// PricingBreakdown is the itemized price shown to the guest at checkout.
type PricingBreakdown struct {
	Mode      string `json:"mode,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
	Base      int64  `json:"base"`
	Fees      Fees   `json:"fees"`
	Total     int64  `json:"total"`
	Label     string `json:"label,omitempty"`
}

// Payment holds gateway correlation data.
type Payment struct {
	CheckoutID    string `json:"checkout_id,omitempty"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	RefundID      string `json:"refund_id,omitempty"`
	RefundedCents int64  `json:"refunded_cents,omitempty"`
}

// EntryTokenSigner derives the check-in credential for a paid booking.
type EntryTokenSigner interface {
	Sign(bookingID, listingID uuid.UUID) string
}

// Booking is the aggregate root for a reservation of a listing.
type Booking struct {
	id        uuid.UUID
	listingID uuid.UUID
	guestID   uuid.UUID
	hostID    uuid.UUID

	startDate    string
	endDate      string
	checkInTime  string
	checkOutTime string
	window       Window
	nights       int
	totalHours   float64
	guests       int

	amountCents int64
	currency    string
	pricing     *PricingBreakdown

	status   BookingStatus
	provider string
	payment  Payment

	entryToken   string
	entryTokenAt *time.Time
	adminNotes   string
	cancelReason string

	paidAt       *time.Time
	checkedInAt  *time.Time
	checkedOutAt *time.Time
	completedAt  *time.Time
	cancelledAt  *time.Time
	refundedAt   *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams holds the inputs for NewBooking.
type NewBookingParams struct {
	ListingID    uuid.UUID
	GuestID      uuid.UUID
	HostID       uuid.UUID
	StartDate    string
	EndDate      string
	CheckInTime  string
	CheckOutTime string
	Nights       int
	TotalHours   float64
	Guests       int
	AmountCents  int64
	Currency     string
	Pricing      *PricingBreakdown
	Location     *time.Location
}

// NewBooking creates a new Booking aggregate with status=pending_payment.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if p.GuestID == uuid.Nil {
		return nil, apperror.NewValidationError("guest ID is required")
	}
	if p.ListingID == uuid.Nil {
		return nil, apperror.NewValidationError("listing ID is required")
	}
	if p.AmountCents <= 0 {
		return nil, apperror.NewValidationError("amount must be positive")
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	window, err := ResolveWindow(p.StartDate, p.EndDate, p.CheckInTime, p.CheckOutTime, p.Location)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}
	guests := p.Guests
	if guests < 1 {
		guests = 1
	}
	currency := p.Currency
	if currency == "" {
		currency = "PHP"
	}

	now := time.Now().UTC()
	return &Booking{
		id:           uuid.New(),
		listingID:    p.ListingID,
		guestID:      p.GuestID,
		hostID:       p.HostID,
		startDate:    p.StartDate,
		endDate:      p.EndDate,
		checkInTime:  p.CheckInTime,
		checkOutTime: p.CheckOutTime,
		window:       window,
		nights:       p.Nights,
		totalHours:   p.TotalHours,
		guests:       guests,
		amountCents:  p.AmountCents,
		currency:     currency,
		pricing:      p.Pricing,
		status:       StatusPendingPayment,
		provider:     DefaultProvider,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Snapshot is the full persisted state of a booking.
type Snapshot struct {
	ID           uuid.UUID
	ListingID    uuid.UUID
	GuestID      uuid.UUID
	HostID       uuid.UUID
	StartDate    string
	EndDate      string
	CheckInTime  string
	CheckOutTime string
	WindowStart  time.Time
	WindowEnd    time.Time
	Nights       int
	TotalHours   float64
	Guests       int
	AmountCents  int64
	Currency     string
	Pricing      *PricingBreakdown
	Status       BookingStatus
	Provider     string
	Payment      Payment
	EntryToken   string
	EntryTokenAt *time.Time
	AdminNotes   string
	CancelReason string
	PaidAt       *time.Time
	CheckedInAt  *time.Time
	CheckedOutAt *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	RefundedAt   *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(s Snapshot) *Booking {
	return &Booking{
		id:           s.ID,
		listingID:    s.ListingID,
		guestID:      s.GuestID,
		hostID:       s.HostID,
		startDate:    s.StartDate,
		endDate:      s.EndDate,
		checkInTime:  s.CheckInTime,
		checkOutTime: s.CheckOutTime,
		window:       Window{Start: s.WindowStart, End: s.WindowEnd},
		nights:       s.Nights,
		totalHours:   s.TotalHours,
		guests:       s.Guests,
		amountCents:  s.AmountCents,
		currency:     s.Currency,
		pricing:      s.Pricing,
		status:       s.Status,
		provider:     s.Provider,
		payment:      s.Payment,
		entryToken:   s.EntryToken,
		entryTokenAt: s.EntryTokenAt,
		adminNotes:   s.AdminNotes,
		cancelReason: s.CancelReason,
		paidAt:       s.PaidAt,
		checkedInAt:  s.CheckedInAt,
		checkedOutAt: s.CheckedOutAt,
		completedAt:  s.CompletedAt,
		cancelledAt:  s.CancelledAt,
		refundedAt:   s.RefundedAt,
		version:      s.Version,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
	}
}

// Snapshot returns the persisted state of the booking.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:           b.id,
		ListingID:    b.listingID,
		GuestID:      b.guestID,
		HostID:       b.hostID,
		StartDate:    b.startDate,
		EndDate:      b.endDate,
		CheckInTime:  b.checkInTime,
		CheckOutTime: b.checkOutTime,
		WindowStart:  b.window.Start,
		WindowEnd:    b.window.End,
		Nights:       b.nights,
		TotalHours:   b.totalHours,
		Guests:       b.guests,
		AmountCents:  b.amountCents,
		Currency:     b.currency,
		Pricing:      b.pricing,
		Status:       b.status,
		Provider:     b.provider,
		Payment:      b.payment,
		EntryToken:   b.entryToken,
		EntryTokenAt: b.entryTokenAt,
		AdminNotes:   b.adminNotes,
		CancelReason: b.cancelReason,
		PaidAt:       b.paidAt,
		CheckedInAt:  b.checkedInAt,
		CheckedOutAt: b.checkedOutAt,
		CompletedAt:  b.completedAt,
		CancelledAt:  b.cancelledAt,
		RefundedAt:   b.refundedAt,
		Version:      b.version,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// ListingID returns the booked listing.
func (b *Booking) ListingID() uuid.UUID { return b.listingID }

// GuestID returns the user who made the booking.
func (b *Booking) GuestID() uuid.UUID { return b.guestID }

// HostID returns the owner of the listing at booking time.
func (b *Booking) HostID() uuid.UUID { return b.hostID }

func (b *Booking) StartDate() string    { return b.startDate }
func (b *Booking) EndDate() string      { return b.endDate }
func (b *Booking) CheckInTime() string  { return b.checkInTime }
func (b *Booking) CheckOutTime() string { return b.checkOutTime }

// Window returns the resolved absolute interval of the booking.
func (b *Booking) Window() Window { return b.window }

func (b *Booking) Nights() int         { return b.nights }
func (b *Booking) TotalHours() float64 { return b.totalHours }
func (b *Booking) Guests() int         { return b.guests }

// AmountCents returns the charged amount in minor units.
func (b *Booking) AmountCents() int64 { return b.amountCents }

func (b *Booking) Currency() string { return b.currency }

// Pricing returns the itemized breakdown, or nil if none was recorded.
func (b *Booking) Pricing() *PricingBreakdown { return b.pricing }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

func (b *Booking) Provider() string { return b.provider }
func (b *Booking) Payment() Payment { return b.payment }

// EntryToken returns the check-in credential, empty until the booking is paid.
func (b *Booking) EntryToken() string { return b.entryToken }

func (b *Booking) EntryTokenAt() *time.Time { return b.entryTokenAt }
func (b *Booking) AdminNotes() string       { return b.adminNotes }
func (b *Booking) CancelReason() string     { return b.cancelReason }
func (b *Booking) PaidAt() *time.Time       { return b.paidAt }
func (b *Booking) CheckedInAt() *time.Time  { return b.checkedInAt }
func (b *Booking) CheckedOutAt() *time.Time { return b.checkedOutAt }
func (b *Booking) CompletedAt() *time.Time  { return b.completedAt }
func (b *Booking) CancelledAt() *time.Time  { return b.cancelledAt }
func (b *Booking) RefundedAt() *time.Time   { return b.refundedAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

func (b *Booking) CreatedAt() time.Time { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// GrossCents is the revenue attributed to the booking: the amount, or the
// breakdown total when no amount was recorded.
func (b *Booking) GrossCents() int64 {
	if b.amountCents > 0 {
		return b.amountCents
	}
	if b.pricing != nil {
		return b.pricing.Total
	}
	return 0
}

// FeeCents is the sum of fee components in the pricing breakdown.
func (b *Booking) FeeCents() int64 {
	if b.pricing == nil {
		return 0
	}
	return b.pricing.Fees.Total()
}

// --- Behavior ---

// AttachCheckout records the gateway checkout and moves the booking to awaiting_payment.
func (b *Booking) AttachCheckout(checkoutID, checkoutURL string) error {
	if !b.status.CanTransitionTo(StatusAwaitingPayment) {
		return apperror.NewInvalidStateError(string(b.status), string(StatusAwaitingPayment))
	}
	b.payment.CheckoutID = checkoutID
	b.payment.CheckoutURL = checkoutURL
	b.status = StatusAwaitingPayment
	b.updatedAt = time.Now().UTC()
	return nil
}

// MarkPaid records payment and issues the entry token on first payment.
// Returns false when the booking was already paid; the token is left unchanged.
func (b *Booking) MarkPaid(paymentID string, signer EntryTokenSigner) (bool, error) {
	if b.status.IsPaid() {
		changed := b.ensureEntryToken(signer)
		if paymentID != "" && b.payment.PaymentID == "" {
			b.payment.PaymentID = paymentID
			changed = true
		}
		return changed, nil
	}
	if !b.status.CanTransitionTo(StatusPaid) {
		return false, apperror.NewInvalidStateError(string(b.status), string(StatusPaid))
	}
	now := time.Now().UTC()
	b.status = StatusPaid
	b.paidAt = &now
	if paymentID != "" {
		b.payment.PaymentID = paymentID
	}
	b.ensureEntryToken(signer)
	b.updatedAt = now
	return true, nil
}

func (b *Booking) ensureEntryToken(signer EntryTokenSigner) bool {
	if b.entryToken != "" {
		return false
	}
	now := time.Now().UTC()
	b.entryToken = signer.Sign(b.id, b.listingID)
	b.entryTokenAt = &now
	b.updatedAt = now
	return true
}

// Cancel transitions the booking to cancelled. Cancelling twice is a no-op that
// returns false. Bookings that have already started cannot be cancelled.
func (b *Booking) Cancel(reason string, now time.Time) (bool, error) {
	if b.status == StatusCancelled {
		return false, nil
	}
	if !b.window.Start.After(now) {
		return false, apperror.NewInvalidStateMessage("booking has already started")
	}
	if !b.status.CanBeCancelled() {
		return false, apperror.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	ts := now.UTC()
	b.status = StatusCancelled
	b.cancelReason = reason
	b.cancelledAt = &ts
	b.updatedAt = ts
	return true, nil
}

// Confirm acknowledges a paid booking on behalf of the host.
func (b *Booking) Confirm() error {
	return b.transition(StatusConfirmed, time.Now().UTC())
}

// CheckIn marks the guest as arrived.
func (b *Booking) CheckIn(now time.Time) error {
	return b.transition(StatusCheckedIn, now.UTC())
}

// CheckOut marks the guest as departed.
func (b *Booking) CheckOut(now time.Time) error {
	return b.transition(StatusCheckedOut, now.UTC())
}

// Complete marks the booking as fulfilled.
func (b *Booking) Complete(now time.Time) error {
	if b.status == StatusCompleted {
		return apperror.NewInvalidStateMessage("booking is already completed")
	}
	return b.transition(StatusCompleted, now.UTC())
}

// Refund records a gateway refund and moves the booking to refunded.
func (b *Booking) Refund(refundID string, cents int64, now time.Time) error {
	if err := b.transition(StatusRefunded, now.UTC()); err != nil {
		return err
	}
	b.payment.RefundID = refundID
	b.payment.RefundedCents = cents
	return nil
}

// ForceStatus applies an administrative status change through the transition table.
// Moving to paid must go through MarkPaid so the entry token is issued.
func (b *Booking) ForceStatus(target BookingStatus, now time.Time) error {
	if target == b.status {
		return nil
	}
	if target == StatusPaid {
		return apperror.NewValidationError("use payment confirmation to mark a booking paid")
	}
	return b.transition(target, now.UTC())
}

// SetAdminNotes replaces the administrator notes.
func (b *Booking) SetAdminNotes(notes string) {
	b.adminNotes = notes
	b.updatedAt = time.Now().UTC()
}

func (b *Booking) transition(target BookingStatus, now time.Time) error {
	if !b.status.CanTransitionTo(target) {
		return apperror.NewInvalidStateError(string(b.status), string(target))
	}
	b.status = target
	switch target {
	case StatusCheckedIn:
		b.checkedInAt = &now
	case StatusCheckedOut:
		b.checkedOutAt = &now
	case StatusCompleted:
		b.completedAt = &now
	case StatusCancelled:
		b.cancelledAt = &now
	case StatusRefunded:
		b.refundedAt = &now
	}
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
