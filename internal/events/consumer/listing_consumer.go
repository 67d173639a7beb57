package consumer

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	listingDomain "github.com/flexidesk/service-booking/internal/domain/listing"
	"github.com/flexidesk/service-booking/internal/events"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
)

// ListingProjection stores the listing state this service reads from.
type ListingProjection interface {
	Upsert(ctx context.Context, l *listingDomain.Listing) error
	SetStatus(ctx context.Context, id uuid.UUID, status listingDomain.Status) error
}

// ListingEventConsumer keeps the local listings table in step with the listing service.
type ListingEventConsumer struct {
	consumer   *kafka.Consumer
	projection ListingProjection
	logger     *zap.Logger
}

// NewListingEventConsumer creates a new ListingEventConsumer.
func NewListingEventConsumer(
	brokers []string,
	groupID string,
	projection ListingProjection,
	logger *zap.Logger,
) *ListingEventConsumer {
	return &ListingEventConsumer{
		consumer:   kafka.NewConsumer(brokers, groupID, events.TopicListingEvents, logger),
		projection: projection,
		logger:     logger,
	}
}

// Start begins consuming listing events. This blocks until the context is cancelled.
func (c *ListingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ListingEventConsumer) Close() error {
	return c.consumer.Close()
}

// HandleMessage applies one listing event to the projection.
func (c *ListingEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from listing topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}
	if cloudEvent.Type != events.ListingUpserted && cloudEvent.Type != events.ListingArchived {
		c.logger.Debug("ignoring unhandled listing event type", zap.String("type", cloudEvent.Type))
		return nil
	}

	var evt events.ListingEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.ID == uuid.Nil {
		c.logger.Error("failed to parse ListingEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	if cloudEvent.Type == events.ListingArchived {
		err := c.projection.SetStatus(ctx, evt.ID, listingDomain.StatusArchived)
		if apperror.Is(err, apperror.KindNotFound) {
			c.logger.Warn("archived listing is not in the projection", zap.String("listing_id", evt.ID.String()))
			return nil
		}
		return err
	}

	if err := c.projection.Upsert(ctx, toListing(evt)); err != nil {
		c.logger.Error("failed to upsert listing",
			zap.String("listing_id", evt.ID.String()),
			zap.Error(err),
		)
		return err
	}
	c.logger.Debug("listing projection updated", zap.String("listing_id", evt.ID.String()))
	return nil
}

func toListing(evt events.ListingEvent) *listingDomain.Listing {
	status := listingDomain.Status(evt.Status)
	switch status {
	case listingDomain.StatusDraft, listingDomain.StatusActive, listingDomain.StatusArchived:
	default:
		status = listingDomain.StatusActive
	}
	ts := evt.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &listingDomain.Listing{
		ID:       evt.ID,
		OwnerID:  evt.OwnerID,
		Title:    evt.Title,
		Venue:    evt.Venue,
		Category: evt.Category,
		Scope:    evt.Scope,
		Brand:    evt.Brand,
		City:     evt.City,
		Region:   evt.Region,
		Country:  evt.Country,
		Seats:    evt.Seats,
		Rooms:    evt.Rooms,
		Currency: evt.Currency,
		Rates: listingDomain.Rates{
			SeatDay:    evt.Rates.SeatDay,
			RoomDay:    evt.Rates.RoomDay,
			WholeDay:   evt.Rates.WholeDay,
			SeatHour:   evt.Rates.SeatHour,
			RoomHour:   evt.Rates.RoomHour,
			WholeMonth: evt.Rates.WholeMonth,
		},
		MultiplyByGuests: evt.MultiplyByGuests,
		Status:           status,
		UpdatedAt:        ts,
	}
}
