// Package consumer applies events from other services to bookings and the listing projection.
package consumer

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

// PaymentHandler is the part of the booking service driven by payment events.
type PaymentHandler interface {
	ConfirmCheckout(ctx context.Context, bookingID uuid.UUID, checkoutID, paymentID string) (*application.BookingDTO, error)
	HandlePaymentFailed(ctx context.Context, bookingID uuid.UUID, checkoutID, reason string) error
}

// PaymentEventConsumer listens to payment events and settles the matching bookings.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  PaymentHandler
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service PaymentHandler,
	logger *zap.Logger,
) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger),
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

// HandleMessage dispatches one payment event. Malformed messages and events for
// unknown bookings are dropped; other failures are returned and the same message is retried.
func (c *PaymentEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	switch cloudEvent.Type {
	case events.PaymentCheckoutPaid:
		return c.handleCheckoutPaid(ctx, cloudEvent)
	case events.PaymentFailed:
		return c.handlePaymentFailed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleCheckoutPaid(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.CheckoutPaidEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse CheckoutPaidEvent data", zap.Error(err))
		return nil
	}
	if evt.BookingID == uuid.Nil && evt.CheckoutID == "" {
		c.logger.Warn("checkout paid event without booking or checkout id", zap.String("event_id", cloudEvent.ID))
		return nil
	}

	c.logger.Info("processing checkout paid event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("checkout_id", evt.CheckoutID),
	)

	bk, err := c.service.ConfirmCheckout(ctx, evt.BookingID, evt.CheckoutID, evt.PaymentID)
	if err != nil {
		return c.settleError("failed to confirm booking after checkout", evt.BookingID, err)
	}

	c.logger.Info("booking paid after checkout",
		zap.String("booking_id", bk.ID.String()),
		zap.String("status", bk.Status),
	)
	return nil
}

func (c *PaymentEventConsumer) handlePaymentFailed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.PaymentFailedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentFailedEvent data", zap.Error(err))
		return nil
	}

	if err := c.service.HandlePaymentFailed(ctx, evt.BookingID, evt.CheckoutID, evt.Reason); err != nil {
		return c.settleError("failed to cancel booking after payment failure", evt.BookingID, err)
	}
	return nil
}

// settleError drops events that can never apply and returns the rest for retry.
func (c *PaymentEventConsumer) settleError(msg string, bookingID uuid.UUID, err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound, apperror.KindInvalidInput, apperror.KindInvalidState:
		c.logger.Warn(msg+", dropping event",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return nil
	}
	c.logger.Error(msg,
		zap.String("booking_id", bookingID.String()),
		zap.Error(err),
	)
	return err
}
