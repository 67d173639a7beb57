package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/platform/middleware"
	"github.com/flexidesk/service-booking/internal/platform/response"
	redisrepo "github.com/flexidesk/service-booking/internal/repository/redis"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idempotencyLockTTL   = 60 * time.Second
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
	idem    *redisrepo.IdempotencyStore
	logger  *zap.Logger
}

// NewBookingHandler creates a new BookingHandler. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewBookingHandler(service *application.BookingService, idem *redisrepo.IdempotencyStore, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, idem: idem, logger: logger}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	hostOrAdmin := middleware.RequireRole(auth.RoleHost, auth.RoleAdmin)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("/intent", h.CreateIntent)
		bookings.POST("/check-availability", h.CheckAvailability)
		bookings.GET("/blocked-dates", h.BlockedDates)
		bookings.GET("/me", h.ListMine)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/confirm-payment", h.ConfirmPayment)
		bookings.POST("/:id/check-in", hostOrAdmin, h.CheckIn)
		bookings.POST("/:id/check-out", hostOrAdmin, h.CheckOut)
		bookings.POST("/:id/complete", hostOrAdmin, h.MarkComplete)
	}
}

// CreateIntent handles POST /api/v1/bookings/intent. A repeated Idempotency-Key
// replays the first successful response.
func (h *BookingHandler) CreateIntent(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	var storageKey string
	if h.idem != nil && idemKey != "" {
		storageKey = redisrepo.KeyIdemIntent(actor.ID.String(), idemKey)

		if payload, found, _ := h.idem.GetResult(ctx, storageKey); found {
			h.replay(c, idemKey, payload)
			return
		}

		locked, err := h.idem.AcquireLock(ctx, storageKey, idempotencyLockTTL)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !locked {
			if payload, found, _ := h.idem.GetResult(ctx, storageKey); found {
				h.replay(c, idemKey, payload)
				return
			}
			c.Header("Retry-After", "1")
			response.Error(c, apperror.NewConflictError("idempotency key in progress"))
			return
		}
	}

	result, err := h.service.CreateBooking(ctx, actor, req)
	if err != nil {
		if storageKey != "" {
			if relErr := h.idem.Release(ctx, storageKey); relErr != nil {
				h.logger.Warn("failed to release idempotency key", zap.Error(relErr))
			}
		}
		response.Error(c, err)
		return
	}

	body := response.Envelope{Success: true, Data: result}
	if storageKey != "" {
		b, _ := json.Marshal(body)
		if err := h.idem.SaveResult(ctx, storageKey, string(b)); err != nil {
			h.logger.Warn("failed to store idempotent response", zap.Error(err))
		}
		c.Header(headerIdempotencyKey, idemKey)
	}
	c.JSON(http.StatusCreated, body)
}

func (h *BookingHandler) replay(c *gin.Context, idemKey, payload string) {
	c.Header(headerIdempotencyKey, idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// CheckAvailability handles POST /api/v1/bookings/check-availability.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req application.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BlockedDates handles GET /api/v1/bookings/blocked-dates?listingId=.
func (h *BookingHandler) BlockedDates(c *gin.Context) {
	listingID, err := uuid.Parse(c.Query("listingId"))
	if err != nil {
		response.BadRequest(c, "invalid listing ID")
		return
	}

	dates, err := h.service.GetBlockedDates(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"listing_id": listingID, "dates": dates})
}

// ListMine handles GET /api/v1/bookings/me.
func (h *BookingHandler) ListMine(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListMine(c.Request.Context(), actor, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, actor, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmPayment handles POST /api/v1/bookings/:id/confirm-payment.
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	var body struct {
		PaymentID string `json:"payment_id"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.ConfirmPayment(c.Request.Context(), bookingID, actor, body.PaymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckIn handles POST /api/v1/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CheckIn(c.Request.Context(), bookingID, actor, body.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckOut handles POST /api/v1/bookings/:id/check-out.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	result, err := h.service.CheckOut(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MarkComplete handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) MarkComplete(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	result, err := h.service.MarkComplete(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// bookingRequest extracts the :id param and the caller, writing the error response on failure.
func bookingRequest(c *gin.Context) (uuid.UUID, auth.Actor, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, auth.Actor{}, false
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, auth.Actor{}, false
	}
	return bookingID, actor, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
