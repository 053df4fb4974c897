package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/middleware"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// requireClaims writes a 401 and returns nil when the request is unauthenticated.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// bindJSON decodes the body, writing a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (models.Date, bool) {
	date, err := models.ParseDate(c.Query(key))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+key))
		return models.Date{}, false
	}
	return date, true
}
