package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents      = "booking.events"
	TopicPaymentEvents      = "payment.events"
	TopicListingEvents      = "listing.events"
	TopicNotificationEvents = "notification.events"
)

// Event types published by this service.
const (
	BookingRequested  = "booking.requested"
	BookingPaid       = "booking.paid"
	BookingCancelled  = "booking.cancelled"
	BookingCheckedIn  = "booking.checked_in"
	BookingCheckedOut = "booking.checked_out"
	BookingCompleted  = "booking.completed"
	BookingRefunded   = "booking.refunded"
	BookingUpdated    = "booking.updated"

	NotificationBookingConfirmed = "notification.booking_confirmed"
)

// Event types consumed by this service.
const (
	PaymentCheckoutPaid = "payment.checkout_paid"
	PaymentFailed       = "payment.failed"

	ListingUpserted = "listing.upserted"
	ListingArchived = "listing.archived"
)

// BookingRequestedEvent is published when a booking is created.
type BookingRequestedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	ListingID   uuid.UUID `json:"listing_id"`
	GuestID     uuid.UUID `json:"guest_id"`
	HostID      uuid.UUID `json:"host_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is published on every lifecycle transition after creation.
type BookingStatusChangedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	GuestID    uuid.UUID `json:"guest_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CheckoutPaidEvent is published by the payment webhook relay when a checkout succeeds.
type CheckoutPaidEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	CheckoutID string    `json:"checkout_id"`
	PaymentID  string    `json:"payment_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentFailedEvent is published when a checkout payment fails or expires.
type PaymentFailedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	CheckoutID string    `json:"checkout_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ListingEvent carries the state of a listing owned by the listing service.
type ListingEvent struct {
	ID               uuid.UUID    `json:"id"`
	OwnerID          uuid.UUID    `json:"owner_id"`
	Title            string       `json:"title"`
	Venue            string       `json:"venue"`
	Category         string       `json:"category"`
	Scope            string       `json:"scope"`
	Brand            string       `json:"brand"`
	City             string       `json:"city"`
	Region           string       `json:"region"`
	Country          string       `json:"country"`
	Seats            int          `json:"seats"`
	Rooms            int          `json:"rooms"`
	Currency         string       `json:"currency"`
	Rates            ListingRates `json:"rates"`
	MultiplyByGuests bool         `json:"multiply_by_guests"`
	Status           string       `json:"status"`
	OccurredAt       time.Time    `json:"occurred_at"`
}

// ListingRates are listing price points in minor units.
type ListingRates struct {
	SeatDay    int64 `json:"seat_day"`
	RoomDay    int64 `json:"room_day"`
	WholeDay   int64 `json:"whole_day"`
	SeatHour   int64 `json:"seat_hour"`
	RoomHour   int64 `json:"room_hour"`
	WholeMonth int64 `json:"whole_month"`
}

// BookingConfirmationEvent asks the mail service to send a booking confirmation.
type BookingConfirmationEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	GuestID     uuid.UUID `json:"guest_id"`
	ListingID   uuid.UUID `json:"listing_id"`
	ListingName string    `json:"listing_name"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	EntryToken  string    `json:"entry_token"`
	OccurredAt  time.Time `json:"occurred_at"`
}
