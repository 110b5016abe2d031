package middleware

import (
	"crypto/subtle"
	"net/http"

	"slotwise/config"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the slot administration endpoints with the
// static token the upstream schedule producer is configured with.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Admin-Token")
		expected := config.AppConfig.AdminToken
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
