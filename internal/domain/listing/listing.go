package listing

import (
	"time"

	"github.com/google/uuid"
)

// Status is the publication state of a listing.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Rates holds the listing's price points in minor currency units.
type Rates struct {
	SeatDay    int64 `json:"seat_day"`
	RoomDay    int64 `json:"room_day"`
	WholeDay   int64 `json:"whole_day"`
	SeatHour   int64 `json:"seat_hour"`
	RoomHour   int64 `json:"room_hour"`
	WholeMonth int64 `json:"whole_month"`
}

// Listing is the read-only projection of a bookable workspace.
// The listing service owns writes; this service only reads.
type Listing struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Title            string
	Venue            string
	Category         string
	Scope            string
	Brand            string
	City             string
	Region           string
	Country          string
	Seats            int
	Rooms            int
	Currency         string
	Rates            Rates
	MultiplyByGuests bool
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the listing accepts bookings.
func (l *Listing) IsActive() bool { return l.Status == StatusActive }

// Capacity is the number of concurrent occupants used for utilization math.
func (l *Listing) Capacity() int {
	switch {
	case l.Seats > 0:
		return l.Seats
	case l.Rooms > 0:
		return l.Rooms
	default:
		return 1
	}
}

// DisplayName returns the best human-readable label for the listing.
func (l *Listing) DisplayName() string {
	switch {
	case l.Venue != "":
		return l.Venue
	case l.Title != "":
		return l.Title
	default:
		return "Workspace"
	}
}

// CurrencyOrDefault returns the listing currency, falling back to PHP.
func (l *Listing) CurrencyOrDefault() string {
	if l.Currency == "" {
		return "PHP"
	}
	return l.Currency
}
