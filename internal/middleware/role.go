package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the caller's displayed role is
// one of roles. Order lifecycle routes are gated this way.
func RequireRole(roles ...access.Role) gin.HandlerFunc {
	return requireFrom(func(identity access.Identity) access.Role { return identity.Displayed }, access.Set(roles))
}

// RequireCapability gates on the capability role, used for catalog and user
// management.
func RequireCapability(roles ...access.Role) gin.HandlerFunc {
	return requireFrom(func(identity access.Identity) access.Role { return identity.Capability }, access.Set(roles))
}

func requireFrom(pick func(access.Identity) access.Role, allowed access.Set) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
			return
		}
		if !access.Allowed(pick(identity), allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "not authorized", map[string]interface{}{
				"allowed_roles": allowed.Strings(),
				"user_role":     identity.Displayed,
			}))
			return
		}
		c.Next()
	}
}
