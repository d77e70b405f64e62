package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"dossierapi/internal/http/middleware"
	"dossierapi/internal/service"
	"dossierapi/internal/workflow"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "QUOTA_EXCEEDED", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeDomainError translates workflow and service errors into the
// standardized envelope. Conflicts with the dossier lifecycle map to 409,
// unknown entities to 404 and input problems to 400; anything else is an
// opaque 500.
func writeDomainError(c *fiber.Ctx, err error) error {
	var (
		quotaErr *workflow.QuotaExceededError
		stateErr *workflow.InvalidStateTransitionError
		finalErr *workflow.AlreadyFinalizedError
		notFound *workflow.NotFoundError
	)
	switch {
	case errors.As(err, &quotaErr):
		return writeError(c, fiber.StatusConflict, "QUOTA_EXCEEDED", quotaErr.Error())
	case errors.As(err, &stateErr):
		return writeError(c, fiber.StatusConflict, "INVALID_STATE", stateErr.Error())
	case errors.As(err, &finalErr):
		return writeError(c, fiber.StatusConflict, "ALREADY_FINALIZED", finalErr.Error())
	case errors.As(err, &notFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrTemplateRequired),
		errors.Is(err, service.ErrClientsRequired),
		errors.Is(err, service.ErrNoFiles):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrUnsupportedFormat):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return writeError(c, fiber.StatusBadRequest, "FILE_TOO_LARGE", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "insufficient permissions")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
