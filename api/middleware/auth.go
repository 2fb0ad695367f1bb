package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pdpscrape/models"
)

// ErrCodeUnauthorized is returned when the bearer token is missing or wrong.
const ErrCodeUnauthorized = "UNAUTHORIZED"

// Auth returns token authentication middleware.
//
// Supports two header styles:
//
//	X-API-Key: <token>
//	Authorization: Bearer <token>
//
// If token is empty, the middleware is a no-op (open access).
func Auth(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": models.ErrorDetail{
					Code:    ErrCodeUnauthorized,
					Message: "missing token: provide X-API-Key header or Authorization: Bearer <token>",
				},
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": models.ErrorDetail{Code: ErrCodeUnauthorized, Message: "invalid token"},
			})
			return
		}
		c.Next()
	}
}

// extractAPIKey tries X-API-Key first, then Authorization: Bearer.
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
