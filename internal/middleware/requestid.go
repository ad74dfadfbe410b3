package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDLocal = "request_id"

// RequestID keeps the caller's request id, or mints one, and echoes it back.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDHeader, reqID)
		c.Locals(requestIDLocal, reqID)
		return c.Next()
	}
}

// RequestIDFrom returns the id stored by RequestID.
func RequestIDFrom(c *fiber.Ctx) string {
	reqID, _ := c.Locals(requestIDLocal).(string)
	return reqID
}
