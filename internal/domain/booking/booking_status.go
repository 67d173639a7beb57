package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPendingPayment  BookingStatus = "pending_payment"
	StatusAwaitingPayment BookingStatus = "awaiting_payment"
	StatusPaid            BookingStatus = "paid"
	StatusConfirmed       BookingStatus = "confirmed"
	StatusCheckedIn       BookingStatus = "checked_in"
	StatusCheckedOut      BookingStatus = "checked_out"
	StatusCompleted       BookingStatus = "completed"
	StatusCancelled       BookingStatus = "cancelled"
	StatusRefunded        BookingStatus = "refunded"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPendingPayment:  {StatusAwaitingPayment, StatusPaid, StatusCancelled},
	StatusAwaitingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:            {StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusConfirmed:       {StatusCheckedIn, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusCheckedIn:       {StatusCheckedOut, StatusCompleted},
	StatusCheckedOut:      {},
	StatusCompleted:       {},
	StatusCancelled:       {},
	StatusRefunded:        {},
}

// OccupyingStatuses are the statuses counted as realized usage by reports.
var OccupyingStatuses = []BookingStatus{StatusPaid, StatusConfirmed, StatusCompleted}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCancelled returns true if the booking can be cancelled from this status.
func (s BookingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// IsPaid reports whether payment has been received for the booking.
func (s BookingStatus) IsPaid() bool {
	switch s {
	case StatusPaid, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []BookingStatus {
	return []BookingStatus{
		StatusPendingPayment, StatusAwaitingPayment, StatusPaid, StatusConfirmed,
		StatusCheckedIn, StatusCheckedOut, StatusCompleted, StatusCancelled, StatusRefunded,
	}
}
