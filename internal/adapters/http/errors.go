package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

var errDisconnected = errors.New("disconnected")

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, ip_lookup_failed, timeout, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error for features that are not configured.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errBadGateway returns a 502 error for failing collaborators.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "upstream_error", msg)
}

// errFromService maps service errors to responses.
func errFromService(c *fiber.Ctx, err error) error {
	var rerr *domain.ResolutionError
	switch {
	case errors.As(err, &rerr):
		return newError(c, 422, string(rerr.Code), rerr.Message())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "resolution not found")
	case errors.Is(err, domain.ErrHistoryDisabled), errors.Is(err, domain.ErrStorageDisabled):
		return errUnavailable(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// The timeout middleware answers deadline errors with 408.
		return err
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
		return errInternal(c, "internal error")
	}
}
