package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const throttlePrefix = "mobcash:throttle:v1:"

// Throttle allows at most limit requests per subject and route in each window.
// Rejections carry the remaining wait as an "error_time_message" descriptor.
func Throttle(cache *redis.Client, limit int, window time.Duration) fiber.Handler {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := SubjectFrom(c)
		if subject == "" {
			subject = c.IP()
		}
		key := throttlePrefix + c.Route().Path + ":" + subject

		ctx := c.UserContext()
		count, err := cache.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			return c.Next()
		}
		if count == 1 {
			cache.Expire(ctx, key, window)
		}
		if count <= int64(limit) {
			return c.Next()
		}

		wait, err := cache.TTL(ctx, key).Result()
		if err != nil || wait < 0 {
			wait = window
		}
		return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
			"detail":             "Request was throttled.",
			"error_time_message": WaitDescriptor(wait),
		})
	}
}

// WaitDescriptor renders d as "<minutes> M:<seconds> S", rounding seconds up.
func WaitDescriptor(d time.Duration) string {
	total := int((d + time.Second - 1) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d M:%d S", total/60, total%60)
}
