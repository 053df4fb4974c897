package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-curriculum-api/internal/middleware"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type authServiceMock struct{}

func (authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return &models.LoginResponse{AccessToken: "token", User: models.UserInfo{Email: req.Email}}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	handler := NewAuthHandler(authServiceMock{})

	c, w := newTestContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"secret"}`)
	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)

	c, w = newTestContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"nope"}`)
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/auth/login", `not json`)
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(authServiceMock{})

	c, w := newTestContext(http.MethodGet, "/auth/me", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Roles: []models.Role{models.RoleMentor, models.RoleTeacher}})
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roles":["teacher","mentor"]`)
}
