package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/platform/middleware"
	"github.com/flexidesk/service-booking/internal/platform/response"
)

// OwnerHandler serves hosts their bookings and earnings.
type OwnerHandler struct {
	bookings  *application.BookingService
	analytics *application.AnalyticsService
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(bookings *application.BookingService, analytics *application.AnalyticsService) *OwnerHandler {
	return &OwnerHandler{bookings: bookings, analytics: analytics}
}

// RegisterRoutes registers host routes.
func (h *OwnerHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	owner := r.Group("/api/v1/owner")
	owner.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleHost, auth.RoleAdmin))
	{
		owner.GET("/bookings", h.ListBookings)
		owner.GET("/analytics/summary", h.Summary)
	}
}

// ListBookings handles GET /api/v1/owner/bookings.
func (h *OwnerHandler) ListBookings(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.bookings.ListForHost(c.Request.Context(), actor, listQuery(c, page, limit))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Summary handles GET /api/v1/owner/analytics/summary.
func (h *OwnerHandler) Summary(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	summary, err := h.analytics.OwnerSummary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}
