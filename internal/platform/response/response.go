package response

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

// Envelope is the JSON body returned by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Pagination `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Pagination describes a page of results.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data any, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages},
	})
}

// BadRequest writes a 400 response for malformed requests.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, &ErrorBody{Code: "BAD_REQUEST", Message: message})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, &ErrorBody{Code: string(apperror.KindUnauthorized), Message: message})
}

// Forbidden writes a 403 response.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, &ErrorBody{Code: string(apperror.KindForbidden), Message: message})
}

// Error maps err onto a status code and body. Unclassified errors are
// recorded on the context and reported with a generic message.
func Error(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		abort(c, appErr.HTTPStatus(), &ErrorBody{
			Code:    string(appErr.Kind),
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	_ = c.Error(err)
	abort(c, http.StatusInternalServerError, &ErrorBody{
		Code:    string(apperror.KindInternal),
		Message: "internal server error",
	})
}

func abort(c *gin.Context, status int, body *ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}
