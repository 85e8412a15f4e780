// Package errors maps domain errors onto HTTP responses without
// exposing internal details
package errors

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/models"
)

// Respond translates any error into the appropriate HTTP response.
// Domain error codes carry the status; everything else is an internal
// error with the detail logged, not exposed.
func Respond(c echo.Context, err error) error {
	switch domain.GetErrorCode(err) {
	case domain.ErrCodeValidation:
		return ValidationError(c, err)
	case domain.ErrCodeNotFound:
		return NotFoundError(c)
	case domain.ErrCodeUnauthorized:
		return UnauthorizedError(c)
	case domain.ErrCodeForbidden:
		return ForbiddenError(c)
	case domain.ErrCodeConflict:
		return ConflictError(c, err)
	case domain.ErrCodeProvider:
		return ProviderError(c, err)
	case domain.ErrCodeWebhookSignature:
		return WebhookSignatureError(c, err)
	default:
		return InternalError(c, err)
	}
}

// ValidationError returns the validation failure message
func ValidationError(c echo.Context, err error) error {
	msg := "Invalid request data. Please check your input and try again."
	if de, ok := err.(*domain.DomainError); ok && de.Message != "" {
		msg = de.Message
	}
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: msg,
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	// Log the actual error for debugging
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: "You do not have permission to access this resource.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested resource was not found.",
	})
}

// ConflictError returns the conflict message, which is safe to expose
func ConflictError(c echo.Context, err error) error {
	msg := "The request conflicts with existing data."
	if de, ok := err.(*domain.DomainError); ok && de.Message != "" {
		msg = de.Message
	}
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: msg,
	})
}

// ProviderError reports a failed billing provider call. The upstream
// detail is logged, the client gets a retryable 502.
func ProviderError(c echo.Context, err error) error {
	log.Printf("[PROVIDER ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "provider_error",
		Message: "The billing provider could not complete the request. Please try again later.",
	})
}

// WebhookSignatureError rejects an unverifiable webhook delivery
func WebhookSignatureError(c echo.Context, err error) error {
	log.Printf("[WEBHOOK SIGNATURE ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_signature",
		Message: "Webhook signature verification failed.",
	})
}
