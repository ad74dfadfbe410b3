package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one structured line per request.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if reqID := RequestIDFrom(c); reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if subject := SubjectFrom(c); subject != "" {
			attrs = append(attrs, slog.String("subject", subject))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}
		logger.Debug("request completed", attrs...)
		return nil
	}
}
