package handler

import (
	"context"
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/platform/response"
)

const headerWebhookSecret = "X-Webhook-Secret"

// Gateway webhook event types.
const (
	webhookCheckoutPaid  = "checkout_session.payment.paid"
	webhookPaymentFailed = "payment.failed"
)

// PaymentSettler applies gateway outcomes to bookings.
type PaymentSettler interface {
	ConfirmCheckout(ctx context.Context, bookingID uuid.UUID, checkoutID, paymentID string) (*application.BookingDTO, error)
	HandlePaymentFailed(ctx context.Context, bookingID uuid.UUID, checkoutID, reason string) error
}

// PaymentWebhookHandler receives checkout callbacks from the payment gateway.
type PaymentWebhookHandler struct {
	settler PaymentSettler
	secret  string
	logger  *zap.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler. Requests must carry
// secret in the X-Webhook-Secret header.
func NewPaymentWebhookHandler(settler PaymentSettler, secret string, logger *zap.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{settler: settler, secret: secret, logger: logger}
}

// RegisterRoutes registers the webhook route. It is not behind JWT auth.
func (h *PaymentWebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/v1/payments/webhook", h.Receive)
}

type webhookPayload struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Type       string `json:"type"`
				Attributes struct {
					Metadata map[string]string `json:"metadata"`
					Payments []struct {
						ID string `json:"id"`
					} `json:"payments"`
					PaymentIntentID  string `json:"payment_intent_id"`
					LastPaymentError *struct {
						Code    string `json:"code"`
						Message string `json:"message"`
					} `json:"last_payment_error"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// Receive handles POST /api/v1/payments/webhook.
func (h *PaymentWebhookHandler) Receive(c *gin.Context) {
	got := c.GetHeader(headerWebhookSecret)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		response.Unauthorized(c, "invalid webhook secret")
		return
	}

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event := payload.Data.Attributes
	resource := event.Data
	bookingID, _ := uuid.Parse(resource.Attributes.Metadata["booking_id"])
	log := h.logger.With(
		zap.String("event_id", payload.Data.ID),
		zap.String("event_type", event.Type),
		zap.String("booking_id", bookingID.String()),
	)

	switch event.Type {
	case webhookCheckoutPaid:
		var paymentID string
		if len(resource.Attributes.Payments) > 0 {
			paymentID = resource.Attributes.Payments[0].ID
		}
		result, err := h.settler.ConfirmCheckout(c.Request.Context(), bookingID, resource.ID, paymentID)
		if err != nil {
			log.Error("failed to confirm checkout from webhook", zap.Error(err))
			response.Error(c, err)
			return
		}
		log.Info("checkout confirmed from webhook", zap.String("status", result.Status))
		response.Success(c, gin.H{"received": true, "status": result.Status})

	case webhookPaymentFailed:
		reason := "payment failed"
		if e := resource.Attributes.LastPaymentError; e != nil && e.Message != "" {
			reason = e.Message
		}
		if bookingID == uuid.Nil {
			log.Warn("payment failure without booking metadata")
			response.Success(c, gin.H{"received": true})
			return
		}
		if err := h.settler.HandlePaymentFailed(c.Request.Context(), bookingID, "", reason); err != nil {
			log.Error("failed to apply payment failure from webhook", zap.Error(err))
			response.Error(c, err)
			return
		}
		response.Success(c, gin.H{"received": true})

	default:
		log.Debug("ignoring webhook event")
		response.Success(c, gin.H{"received": true, "ignored": true})
	}
}
