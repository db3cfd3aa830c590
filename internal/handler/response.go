package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTenantID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidServiceType),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrOdometerOrder):
		return http.StatusBadRequest

	// Conflict errors - the lock-and-check losers land here
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrDriverAlreadyAssigned),
		errors.Is(err, service.ErrOfferNotPending),
		errors.Is(err, service.ErrBroadcastInFlight),
		errors.Is(err, service.ErrTripNotStarted),
		errors.Is(err, service.ErrCannotCancel),
		errors.Is(err, service.ErrCannotDelete):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrOfferNotForDriver):
		return http.StatusForbidden

	// Service unavailable
	case errors.Is(err, service.ErrDriverUnavailable),
		errors.Is(err, service.ErrNoDriversAvailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// tenantID extracts the tenant scope from the request. Every route is
// tenant-scoped; a missing header fails validation downstream.
func tenantID(c *gin.Context) string {
	return c.GetHeader("X-Tenant-ID")
}
