package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminChecker reports whether a user has administrator privileges.
// Implemented by the user service.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin creates a Gin middleware handler that rejects requests from
// non-administrator users. It must run after AuthMiddleware.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		userID, ok := GetUserIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to check admin privileges", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify privileges"})
			return
		}
		if !isAdmin {
			logger.Warn("Non-admin user attempted admin operation")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			return
		}

		c.Next()
	}
}
