package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID between services.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the ID lives in fiber's context locals;
	// the logger and the error envelope read it from there.
	RequestIDLocalKey = "request_id"
)

// RequestID takes the incoming X-Request-ID, or mints a UUID when the
// caller sent none, and exposes it on both the context locals and the
// response header. Must run before Logger.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
