package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/service"
)

type fakeAuthRepo struct {
	users map[string]*models.User
}

func (f *fakeAuthRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	f.users[user.Username] = user
	return nil
}

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeAuthRepo{users: map[string]*models.User{
		"admin": {ID: "u-admin", Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin},
	}}
	svc := service.NewAuthService(repo, nil, zap.NewNop(), service.AuthConfig{TokenSecret: "test_secret"})
	return NewAuthHandler(svc)
}

func postLogin(t *testing.T, handler *AuthHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Login(c)
	return rec
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	handler := newAuthHandler(t)

	rec := postLogin(t, handler, `{"username":"admin","password":"admin123"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "admin", body["user"])
	assert.Equal(t, "admin", body["role"])
	assert.NotEmpty(t, body["token"])
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	handler := newAuthHandler(t)

	rec := postLogin(t, handler, `{"username":"admin","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestAuthHandlerLoginMissingFields(t *testing.T) {
	handler := newAuthHandler(t)

	rec := postLogin(t, handler, `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(t, handler, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}
