package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
)

// RateLimitByUser caps authenticated REST traffic per user with a fixed
// window counter in redis (INCR + EXPIRE). Shared across instances, unlike
// the per-connection token bucket the push gateway uses.
func RateLimitByUser(rdb *redis.Client, prefix string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		if userID == "" {
			return c.Next()
		}
		key := fmt.Sprintf("%s:ratelimit:%s", prefix, userID)
		count, err := rdb.Incr(c.Context(), key).Result()
		if err != nil {
			// limiter outage must not take the API down with it
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(c.Context(), key, window)
		}
		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
