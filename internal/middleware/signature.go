package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/loki135/CodeSensei/internal/security"
)

// Signature validates the optional per-request HMAC signature and rejects
// replayed nonces via redis. Mounted only when a signature secret is
// configured.
func Signature(secret string, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, nonce, signature, err := security.ExtractSignatureHeaders(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Request signature required",
			})
			return
		}

		requestTime, err := time.Parse(time.RFC3339, date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid signature date",
			})
			return
		}

		if time.Since(requestTime) > 5*time.Minute || time.Until(requestTime) > 2*time.Minute {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Request expired",
			})
			return
		}

		rawBody, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Invalid request body",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Authentication required",
			})
			return
		}

		path, query := security.CanonicalPath(c.Request)
		valid := security.ValidateSignature(
			secret,
			user.ID,
			signature,
			c.Request.Method,
			path,
			query,
			rawBody,
			date,
			nonce,
		)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid request signature",
			})
			return
		}

		nonceKey := fmt.Sprintf("sig:%s:%s", user.ID, nonce)
		if ok := redisClient.SetNX(c, nonceKey, "1", 5*time.Minute); !ok.Val() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Replay detected",
			})
			return
		}

		c.Next()
	}
}
