package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flexidesk/service-booking/internal/application"
	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

type fakePayments struct {
	confirmed []string
	failed    []string
	err       error
}

func (f *fakePayments) ConfirmCheckout(_ context.Context, bookingID uuid.UUID, checkoutID, paymentID string) (*application.BookingDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirmed = append(f.confirmed, checkoutID+"/"+paymentID)
	return &application.BookingDTO{ID: bookingID, Status: "paid"}, nil
}

func (f *fakePayments) HandlePaymentFailed(_ context.Context, _ uuid.UUID, checkoutID, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.failed = append(f.failed, checkoutID+"/"+reason)
	return nil
}

func message(t *testing.T, eventType string, data any) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("test", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Value: raw}
}

func TestPaymentConsumer_CheckoutPaid(t *testing.T) {
	svc := &fakePayments{}
	c := &PaymentEventConsumer{service: svc, logger: zap.NewNop()}

	err := c.HandleMessage(context.Background(), message(t, events.PaymentCheckoutPaid, events.CheckoutPaidEvent{
		BookingID: uuid.New(), CheckoutID: "cs_1", PaymentID: "pay_1",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"cs_1/pay_1"}, svc.confirmed)
}

func TestPaymentConsumer_PaymentFailed(t *testing.T) {
	svc := &fakePayments{}
	c := &PaymentEventConsumer{service: svc, logger: zap.NewNop()}

	err := c.HandleMessage(context.Background(), message(t, events.PaymentFailed, events.PaymentFailedEvent{
		CheckoutID: "cs_2", Reason: "expired",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"cs_2/expired"}, svc.failed)
}

func TestPaymentConsumer_ErrorHandling(t *testing.T) {
	paid := events.CheckoutPaidEvent{BookingID: uuid.New(), CheckoutID: "cs_1"}
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"unknown booking is dropped", apperror.NewNotFoundError("booking", "x"), false},
		{"invalid state is dropped", apperror.NewInvalidStateError("cancelled", "paid"), false},
		{"database failure is retried", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &PaymentEventConsumer{service: &fakePayments{err: tt.err}, logger: zap.NewNop()}
			err := c.HandleMessage(context.Background(), message(t, events.PaymentCheckoutPaid, paid))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaymentConsumer_IgnoresNoise(t *testing.T) {
	svc := &fakePayments{}
	c := &PaymentEventConsumer{service: svc, logger: zap.NewNop()}
	ctx := context.Background()

	assert.NoError(t, c.HandleMessage(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, c.HandleMessage(ctx, message(t, "payment.refunded", map[string]string{"id": "x"})))
	assert.NoError(t, c.HandleMessage(ctx, message(t, events.PaymentCheckoutPaid, events.CheckoutPaidEvent{})))
	assert.Empty(t, svc.confirmed)
}

type fakeProjection struct {
	upserted []*listingDomain.Listing
	statuses map[uuid.UUID]listingDomain.Status
}

func (f *fakeProjection) Upsert(_ context.Context, l *listingDomain.Listing) error {
	f.upserted = append(f.upserted, l)
	return nil
}

func (f *fakeProjection) SetStatus(_ context.Context, id uuid.UUID, status listingDomain.Status) error {
	if f.statuses == nil {
		return apperror.NewNotFoundError("listing", id.String())
	}
	f.statuses[id] = status
	return nil
}

func TestListingConsumer_Upsert(t *testing.T) {
	proj := &fakeProjection{}
	c := &ListingEventConsumer{projection: proj, logger: zap.NewNop()}
	id := uuid.New()

	err := c.HandleMessage(context.Background(), message(t, events.ListingUpserted, events.ListingEvent{
		ID: id, Venue: "Ortigas Loft", Brand: "FlexiDesk", Seats: 12,
		Rates: events.ListingRates{SeatHour: 15000}, Status: "weird",
	}))

	require.NoError(t, err)
	require.Len(t, proj.upserted, 1)
	got := proj.upserted[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(15000), got.Rates.SeatHour)
	assert.Equal(t, listingDomain.StatusActive, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestListingConsumer_Archive(t *testing.T) {
	proj := &fakeProjection{statuses: map[uuid.UUID]listingDomain.Status{}}
	c := &ListingEventConsumer{projection: proj, logger: zap.NewNop()}
	id := uuid.New()

	require.NoError(t, c.HandleMessage(context.Background(), message(t, events.ListingArchived, events.ListingEvent{ID: id})))
	assert.Equal(t, listingDomain.StatusArchived, proj.statuses[id])

	missing := &ListingEventConsumer{projection: &fakeProjection{}, logger: zap.NewNop()}
	assert.NoError(t, missing.HandleMessage(context.Background(), message(t, events.ListingArchived, events.ListingEvent{ID: id})))
}
