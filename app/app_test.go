package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authhandler "github.com/tech-arch1tect/edgeguard/handlers/auth"
	"github.com/tech-arch1tect/edgeguard/handlers/health"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
)

type client struct {
	handler http.Handler
}

func (c client) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func buildAuthService(t *testing.T) *App {
	t.Helper()
	a, err := NewApp().WithConfig(testConfig()).WithAuth().WithDocs().Build()
	require.NoError(t, err)
	require.NotNil(t, a.DB())

	t.Cleanup(func() {
		if sqlDB, err := a.DB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return a
}

func buildGateway(t *testing.T, backendURL string) *App {
	t.Helper()
	cfg := testConfig()
	cfg.Gateway.AuthServiceURL = backendURL
	cfg.Gateway.UserServiceURL = backendURL
	cfg.Gateway.DocsServiceURL = backendURL

	a, err := NewApp().WithConfig(cfg).WithGateway().Build()
	require.NoError(t, err)
	return a
}

func TestAuthService_TokenLifecycle(t *testing.T) {
	auth := client{handler: buildAuthService(t).Echo()}

	rec := auth.do(t, http.MethodPost, "/auth/register", "", authhandler.RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "Password123",
		ConfirmPassword: "Password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[authhandler.TokenResponse](t, rec)
	assert.Equal(t, "Bearer", registered.TokenType)
	assert.Equal(t, []string{"ROLE_USER"}, registered.Roles)

	rec = auth.do(t, http.MethodPost, "/auth/login", "", authhandler.LoginRequest{
		UsernameOrEmail: "alice@example.com",
		Password:        "Password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authhandler.TokenResponse](t, rec)

	rec = auth.do(t, http.MethodPost, "/auth/refresh?refreshToken="+registered.RefreshToken, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "login replaced the registration refresh token")

	rec = auth.do(t, http.MethodPost, "/auth/refresh?refreshToken="+login.RefreshToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, login.RefreshToken, decode[authhandler.TokenResponse](t, rec).RefreshToken)

	rec = auth.do(t, http.MethodGet, "/docs/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/auth/refresh")
}

func TestGateway_FrontsAuthService(t *testing.T) {
	backend := httptest.NewServer(buildAuthService(t).Echo())
	t.Cleanup(backend.Close)

	gw := client{handler: buildGateway(t, backend.URL).Echo()}

	rec := gw.do(t, http.MethodPost, "/auth/register", "", authhandler.RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "Password123",
		ConfirmPassword: "Password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pair := decode[authhandler.TokenResponse](t, rec)

	t.Run("identity is injected from the access token", func(t *testing.T) {
		rec := gw.do(t, http.MethodGet, "/auth/me", pair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		me := decode[authhandler.PrincipalResponse](t, rec)
		assert.Equal(t, pair.UserID, me.UserID)
		assert.Equal(t, "bob", me.Username)
	})

	t.Run("protected paths need a token", func(t *testing.T) {
		rec := gw.do(t, http.MethodGet, "/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "No JWT token provided", decode[httperr.Body](t, rec).Message)
	})

	t.Run("refresh is auth exempt and rotates", func(t *testing.T) {
		rec := gw.do(t, http.MethodPost, "/auth/refresh?refreshToken="+pair.RefreshToken, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rotated := decode[authhandler.TokenResponse](t, rec)

		rec = gw.do(t, http.MethodPost, "/auth/refresh?refreshToken="+pair.RefreshToken, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Refresh token not found", decode[httperr.Body](t, rec).Message)

		rec = gw.do(t, http.MethodPost, "/auth/logout?refreshToken="+rotated.RefreshToken, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout is protected at the edge")

		rec = gw.do(t, http.MethodPost, "/auth/logout?refreshToken="+rotated.RefreshToken, rotated.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "User logged out successfully", decode[authhandler.MessageResponse](t, rec).Message)

		rec = gw.do(t, http.MethodPost, "/auth/refresh?refreshToken="+rotated.RefreshToken, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("docs are public", func(t *testing.T) {
		rec := gw.do(t, http.MethodGet, "/docs/openapi.yaml", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("gateway health", func(t *testing.T) {
		rec := gw.do(t, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, health.ServiceName, decode[health.Response](t, rec).Service)
	})
}

func TestGateway_BackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	gw := client{handler: buildGateway(t, url).Echo()}

	start := time.Now()
	rec := gw.do(t, http.MethodPost, "/auth/login", "", authhandler.LoginRequest{UsernameOrEmail: "a", Password: "b"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "auth", body["service"])
	assert.Equal(t, true, body["fallback"])
}

func TestApp_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"

	a, err := NewApp().WithConfig(cfg).WithGateway().Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Start(ctx))
	assert.NoError(t, a.Stop(ctx))
	assert.Equal(t, cfg, a.Config())
	assert.NotNil(t, a.Logger())
}
