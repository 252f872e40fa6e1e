// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the
// ErrorResponse envelope, fail/ok, and failService, which maps the
// service layer's typed errors onto status codes.
//
// Example error response:
//
//	HTTP/1.1 503 Service Unavailable
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "service_unavailable",
//	  "message": "leaderboard temporarily unavailable"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/reaction-leaderboard/internal/http/middleware"
	"github.com/tbourn/reaction-leaderboard/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService translates a service error into a response. Store details
// never reach the client; they are already logged by the service.
func failService(c *gin.Context, err error) {
	var rl *services.RateLimitError
	switch {
	case errors.As(err, &rl):
		c.Header("Retry-After", middleware.RetryAfterSeconds(rl.RetryAfter))
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, MsgSuspiciousActivity)
	case errors.Is(err, services.ErrRateLimited):
		c.Header("Retry-After", "1")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, MsgSuspiciousActivity)
	case errors.Is(err, services.ErrInvalidScore):
		fail(c, http.StatusBadRequest, ErrCodeInvalidScore, "score must be a positive number of milliseconds")
	case errors.Is(err, services.ErrInvalidAction):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "action must be approve or deny")
	case errors.Is(err, services.ErrScoreNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "score not found")
	case errors.Is(err, services.ErrStoreUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "leaderboard temporarily unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
