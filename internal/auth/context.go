package auth

import "github.com/gin-gonic/gin"

// ContextClaims is the gin context key under which the access guard stores
// the verified credential claims.
const ContextClaims = "auth_claims"

// MustClaims returns the verified claims from the request context. Panics if
// the access guard did not run; only use behind it.
func MustClaims(c *gin.Context) *Claims {
	return c.MustGet(ContextClaims).(*Claims)
}

// ClaimsFrom returns the verified claims, or nil when absent.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
