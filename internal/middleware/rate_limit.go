package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

// MutationRateLimit caps balance mutations per user id per minute using Redis
// counters. It is a no-op without Redis and fails open on cache errors.
func MutationRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := strings.TrimSpace(c.Params("id"))
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:point:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			// A counter without a TTL would limit the user forever.
			if err := cache.Expire(c.UserContext(), key, rateLimitWindow).Err(); err != nil {
				cache.Del(c.UserContext(), key)
				return c.Next()
			}
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many point mutations, try again later")
		}
		return c.Next()
	}
}
