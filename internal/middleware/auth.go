package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/pkg/response"
)

// Auth returns a middleware that requires a valid Bearer credential and
// stores its verified claims in the context. Absent, malformed, or expired
// credentials abort with 401 and the operation is never reached.
func Auth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := tokens.Verify(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}
