// Package notification hands confirmation messages to the mail service.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

// Confirmation is the content of a booking confirmation message.
type Confirmation struct {
	BookingID   uuid.UUID
	GuestID     uuid.UUID
	ListingID   uuid.UUID
	ListingName string
	StartDate   string
	EndDate     string
	AmountCents int64
	Currency    string
	EntryToken  string
}

// Notifier sends booking notifications. Delivery is best-effort.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, c Confirmation) error
}

// Publisher is the subset of the kafka producer the notifier needs.
type Publisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// KafkaNotifier publishes notification requests for the mail service to deliver.
type KafkaNotifier struct {
	publisher Publisher
	source    string
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(publisher Publisher, source string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, source: source}
}

// SendBookingConfirmation publishes a notification.booking_confirmed event keyed by guest.
func (n *KafkaNotifier) SendBookingConfirmation(ctx context.Context, c Confirmation) error {
	ce, err := kafka.NewCloudEvent(n.source, events.NotificationBookingConfirmed, events.BookingConfirmationEvent{
		BookingID:   c.BookingID,
		GuestID:     c.GuestID,
		ListingID:   c.ListingID,
		ListingName: c.ListingName,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		AmountCents: c.AmountCents,
		Currency:    c.Currency,
		EntryToken:  c.EntryToken,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := n.publisher.PublishEventWithKey(ctx, events.TopicNotificationEvents, c.GuestID.String(), ce); err != nil {
		return fmt.Errorf("failed to publish booking confirmation: %w", err)
	}
	return nil
}
