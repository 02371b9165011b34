package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/timetable-api/internal/dto"
	"github.com/campusworks/timetable-api/internal/models"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/response"
)

type authServiceMock struct {
	registerRes *dto.AuthResponse
	registerErr error
	loginRes    *dto.AuthResponse
	loginErr    error
}

func (m *authServiceMock) Register(_ context.Context, _ dto.RegisterRequest) (*dto.AuthResponse, error) {
	return m.registerRes, m.registerErr
}

func (m *authServiceMock) Login(_ context.Context, _ dto.LoginRequest) (*dto.AuthResponse, error) {
	return m.loginRes, m.loginErr
}

func newJSONContext(t *testing.T, method, target string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAuthHandlerRegister(t *testing.T) {
	mock := &authServiceMock{registerRes: &dto.AuthResponse{
		Token: "signed-token",
		User:  dto.UserInfo{ID: "u1", Username: "admin", Role: models.RoleAdmin},
	}}
	h := NewAuthHandler(mock)

	c, w := newJSONContext(t, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "supersecret",
	})
	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestAuthHandlerRegisterMalformedBody(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	c.Request = req

	h.Register(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{registerErr: appErrors.Clone(appErrors.ErrConflict, "user already exists")})

	c, w := newJSONContext(t, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "supersecret",
	})
	h.Register(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginRes: &dto.AuthResponse{Token: "signed-token"}})

	c, w := newJSONContext(t, http.MethodPost, "/auth/login", dto.LoginRequest{
		Email:    "admin@example.com",
		Password: "supersecret",
	})
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signed-token")
}

func TestAuthHandlerLoginRejected(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})

	c, w := newJSONContext(t, http.MethodPost, "/auth/login", dto.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
