package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminCheck reports whether the user may use admin endpoints.
type AdminCheck func(ctx context.Context, userID int64) (bool, error)

// AdminOnly must run after JWT.
func AdminOnly(isAdmin AdminCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(ContextUserID)
		id, _ := userID.(int64)
		if !ok || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		allowed, err := isAdmin(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check permissions"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
