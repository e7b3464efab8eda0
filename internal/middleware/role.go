package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/pkg/response"
)

// RequireRole returns a middleware that allows only callers whose verified
// role set intersects the given roles. Role alone never grants tenant access;
// compose with RequireTenant for tenant-scoped routes.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if claims == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !claims.HasRole(roles...) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
