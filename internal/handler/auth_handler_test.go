package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

type fakeAuthenticator struct{}

func (fakeAuthenticator) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret123" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", Username: req.Username, Role: models.RoleAdmin}, nil
}

func postLogin(body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(fakeAuthenticator{}).Login)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandlerLogin(t *testing.T) {
	rec := postLogin(`{"username":"admin","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"token"`)

	assert.Equal(t, http.StatusUnauthorized, postLogin(`{"username":"admin","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postLogin(`{"username":`).Code)
}
