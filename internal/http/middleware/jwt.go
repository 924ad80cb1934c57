package middleware

import (
	"net/http"
	"strings"

	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
)

const ContextUserID = "user_id"

// JWT authenticates the request from "Authorization: Bearer <token>" or a
// ?token= query parameter and stores the user id in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
