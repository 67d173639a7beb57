package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flexidesk/service-booking/internal/analytics"
	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/platform/middleware"
	"github.com/flexidesk/service-booking/internal/platform/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management and reports.
type AdminBookingHandler struct {
	service   *application.BookingService
	analytics *application.AnalyticsService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService, analytics *application.AnalyticsService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, analytics: analytics}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.PATCH("/bookings/:id", h.UpdateBooking)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/payments/:paymentId/capture", h.CapturePayment)
		admin.POST("/payments/:paymentId/refund", h.RefundPayment)
		admin.GET("/analytics/income", h.Income)
		admin.GET("/analytics/occupancy", h.Occupancy)
		admin.GET("/analytics/overview", h.Overview)
		admin.GET("/analytics/forecast", h.Forecast)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListAllBookings(c.Request.Context(), listQuery(c, page, limit))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// UpdateBooking handles PATCH /api/v1/admin/bookings/:id.
func (h *AdminBookingHandler) UpdateBooking(c *gin.Context) {
	bookingID, actor, ok := bookingRequest(c)
	if !ok {
		return
	}

	var req application.AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AdminUpdateBooking(c.Request.Context(), bookingID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// CapturePayment handles POST /api/v1/admin/payments/:paymentId/capture.
func (h *AdminBookingHandler) CapturePayment(c *gin.Context) {
	var req application.PaymentActionRequest
	_ = c.ShouldBindJSON(&req)

	receipt, err := h.service.CapturePayment(c.Request.Context(), c.Param("paymentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, receipt)
}

// RefundPayment handles POST /api/v1/admin/payments/:paymentId/refund.
func (h *AdminBookingHandler) RefundPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.PaymentActionRequest
	_ = c.ShouldBindJSON(&req)

	receipt, err := h.service.RefundPayment(c.Request.Context(), c.Param("paymentId"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, receipt)
}

// Income handles GET /api/v1/admin/analytics/income.
func (h *AdminBookingHandler) Income(c *gin.Context) {
	rep, err := h.analytics.Income(c.Request.Context(), reportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

// Occupancy handles GET /api/v1/admin/analytics/occupancy.
func (h *AdminBookingHandler) Occupancy(c *gin.Context) {
	rep, err := h.analytics.Occupancy(c.Request.Context(), reportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

// Overview handles GET /api/v1/admin/analytics/overview.
func (h *AdminBookingHandler) Overview(c *gin.Context) {
	rep, err := h.analytics.Overview(c.Request.Context(), reportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

// Forecast handles GET /api/v1/admin/analytics/forecast.
func (h *AdminBookingHandler) Forecast(c *gin.Context) {
	rep, err := h.analytics.Forecast(c.Request.Context(), reportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

func listQuery(c *gin.Context, page, limit int) application.ListQuery {
	return application.ListQuery{
		Status:   c.Query("status"),
		DateFrom: c.Query("dateFrom"),
		DateTo:   c.Query("dateTo"),
		Sort:     c.Query("sort"),
		Page:     page,
		Limit:    limit,
	}
}

func reportQuery(c *gin.Context) application.ReportQuery {
	return application.ReportQuery{
		Range:      c.Query("range"),
		DatePreset: c.Query("datePreset"),
		Filters: analytics.Filters{
			Brand:  c.Query("brand"),
			Branch: c.Query("branch"),
			Type:   c.Query("type"),
			Status: c.Query("status"),
		},
	}
}

