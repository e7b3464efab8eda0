package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/pkg/response"
)

// ContextCompanyID is the gin context key for the authorized tenant id.
const ContextCompanyID = "company_id"

// RequireTenant returns a middleware that authorizes the :companyId path
// parameter against the credential's tenant binding. A mismatch is always
// 403 ("cross-tenant access"), never 404, even for privileged roles.
// Call after Auth.
func RequireTenant(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if claims == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		companyID, err := uuid.Parse(c.Param("companyId"))
		if err != nil {
			response.BadRequest(c, "invalid company id")
			c.Abort()
			return
		}
		if err := resolver.Authorize(c.Request.Context(), claims, companyID); err != nil {
			if errors.Is(err, auth.ErrCrossTenant) {
				response.Forbidden(c, "cross-tenant access")
			} else {
				response.Internal(c, "authorization failed")
			}
			c.Abort()
			return
		}
		c.Set(ContextCompanyID, companyID)
		c.Next()
	}
}

// CompanyID returns the authorized tenant id set by RequireTenant.
func CompanyID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextCompanyID).(uuid.UUID)
}
