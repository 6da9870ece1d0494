package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every JSON endpoint answers with {"data": ...} on success and
// {"error": {"code", "message"}} on failure.

// ErrorCode defines standard error codes for programmatic handling
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"       // 400 - Malformed request
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"  // 400 - Validation failed
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"         // 404 - Resource not found
	ErrCodeConflict        ErrorCode = "CONFLICT"          // 409 - Reply still pending
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS" // 429 - Rate limited

	// Server errors (5xx)
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"      // 500 - Unexpected error
	ErrCodeBadGateway         ErrorCode = "BAD_GATEWAY"         // 502 - Assistant answered badly
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE" // 503 - Assistant unreachable
)

// ErrorResponse is the standard error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// DataResponse wraps a single resource or object response
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// RespondData sends a 200 response with a single data object
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondAccepted sends a 202 Accepted response for async operations
func RespondAccepted[T any](c *gin.Context, data T) {
	c.JSON(http.StatusAccepted, DataResponse[T]{Data: data})
}

func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.AbortWithStatusJSON(status, resp)
}

// RespondBadRequest sends a 400 Bad Request error
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// RespondValidationError sends a 400 for input that parsed but is unusable
func RespondValidationError(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeValidation, message)
}

// RespondConflict sends a 409 Conflict error
func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, ErrCodeConflict, message)
}

// RespondTooManyRequests sends a 429 Too Many Requests error
func RespondTooManyRequests(c *gin.Context, message string) {
	respondError(c, http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

// RespondInternalError sends a 500 Internal Server Error
func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternal, message)
}

// RespondBadGateway sends a 502 Bad Gateway error
func RespondBadGateway(c *gin.Context, message string) {
	respondError(c, http.StatusBadGateway, ErrCodeBadGateway, message)
}

// RespondServiceUnavailable sends a 503 Service Unavailable error
func RespondServiceUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}
