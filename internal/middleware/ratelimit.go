package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit enforces a fixed window per client IP backed by redis. Redis
// failures fail open: throttling is protection, not a correctness gate.
func RateLimit(redisClient *redis.Client, scope string, max int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

		count, err := redisClient.Incr(c, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limit check failed")
			c.Next()
			return
		}
		if count == 1 {
			redisClient.Expire(c, key, window)
		}

		if count > int64(max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
