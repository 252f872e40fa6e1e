// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings returned in the `code` field
// of ErrorResponse. Generic codes mirror HTTP status semantics; domain codes
// name leaderboard failures that a status alone does not convey.
//
// Example response:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 2
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "too_many_requests",
//	  "message": "Suspicious activity detected."
//	}
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeRateLimited        = "too_many_requests"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeInternal           = "internal_error"

	// Domain-specific:
	ErrCodeInvalidScore  = "invalid_score"
	ErrCodeInvalidAction = "invalid_action"
)

// MsgSuspiciousActivity is the message of every cooldown rejection.
const MsgSuspiciousActivity = "Suspicious activity detected."
