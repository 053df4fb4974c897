package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

// RequireRoles lets the request through when the caller holds at least one of roles.
// A person may hold several roles, so membership rather than equality is checked.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.RoleSet().HasAny(roles...) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRolesOrSelf also admits callers whose id matches the :id path parameter.
func RequireRolesOrSelf(roles ...models.Role) gin.HandlerFunc {
	gate := RequireRoles(roles...)
	return func(c *gin.Context) {
		if claims := Claims(c); claims != nil {
			if id := c.Param("id"); id != "" && id == claims.UserID {
				c.Next()
				return
			}
		}
		gate(c)
	}
}
