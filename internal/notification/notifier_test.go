package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

type recordingPublisher struct {
	topic, key string
	event      kafka.CloudEvent
	err        error
}

func (p *recordingPublisher) PublishEventWithKey(_ context.Context, topic, key string, ce kafka.CloudEvent) error {
	p.topic, p.key, p.event = topic, key, ce
	return p.err
}

func TestKafkaNotifier_SendBookingConfirmation(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewKafkaNotifier(pub, "service-booking")
	c := Confirmation{
		BookingID:   uuid.New(),
		GuestID:     uuid.New(),
		ListingID:   uuid.New(),
		ListingName: "Makati Hub",
		StartDate:   "2025-01-10",
		EndDate:     "2025-01-10",
		AmountCents: 150000,
		Currency:    "PHP",
		EntryToken:  "FD:x:y:z",
	}

	require.NoError(t, n.SendBookingConfirmation(context.Background(), c))

	assert.Equal(t, events.TopicNotificationEvents, pub.topic)
	assert.Equal(t, c.GuestID.String(), pub.key)
	assert.Equal(t, events.NotificationBookingConfirmed, pub.event.Type)

	var payload events.BookingConfirmationEvent
	require.NoError(t, pub.event.ParseData(&payload))
	assert.Equal(t, c.BookingID, payload.BookingID)
	assert.Equal(t, "Makati Hub", payload.ListingName)
	assert.Equal(t, "FD:x:y:z", payload.EntryToken)
}

func TestKafkaNotifier_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}

	err := NewKafkaNotifier(pub, "service-booking").SendBookingConfirmation(context.Background(), Confirmation{GuestID: uuid.New()})

	assert.ErrorContains(t, err, "broker down")
}
