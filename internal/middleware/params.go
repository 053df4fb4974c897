package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

// UUIDParams answers 404 when any of the named path parameters is present but is not
// a uuid. Every stored id is a uuid, so such a path cannot name an existing record.
func UUIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			value := c.Param(name)
			if value == "" {
				continue
			}
			if _, err := uuid.Parse(value); err != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
