package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"github.com/tech-arch1tect/edgeguard/services/events"
	"github.com/tech-arch1tect/edgeguard/services/jwt"
	"github.com/tech-arch1tect/edgeguard/services/refreshtoken"
	"github.com/tech-arch1tect/edgeguard/services/users"
	"github.com/tech-arch1tect/edgeguard/testutils"
)

type testAPI struct {
	echo   *echo.Echo
	tokens *jwt.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := testutils.GetTestConfig()
	models := append(users.Models(), &refreshtoken.RefreshToken{})
	db := testutils.SetupTestDB(t, models...)

	tokens := jwt.NewService(cfg, nil)
	service := auth.NewService(cfg,
		users.NewStore(db, cfg, nil),
		refreshtoken.NewService(db, cfg, nil),
		tokens,
		events.NewService(events.NopPublisher{}, cfg.Events, nil),
		nil,
	)

	e := echo.New()
	e.HTTPErrorHandler = httperr.Handler
	NewHandler(service, nil).Register(e.Group("/auth"))

	return &testAPI{echo: e, tokens: tokens}
}

func (api *testAPI) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)
	return rec
}

func (api *testAPI) register(t *testing.T) TokenResponse {
	t.Helper()
	rec := api.do(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"Password123","confirmPassword":"Password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) TokenResponse {
	t.Helper()
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httperr.Body {
	t.Helper()
	var body httperr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func refreshURL(token string) string {
	return "/auth/refresh?refreshToken=" + url.QueryEscape(token)
}

func TestHandler_Register(t *testing.T) {
	api := newTestAPI(t)

	resp := api.register(t)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"ROLE_USER"}, resp.Roles)
	_, err := uuid.Parse(resp.UserID)
	assert.NoError(t, err)

	t.Run("duplicate username", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register",
			`{"username":"alice","email":"other@example.com","password":"Password123","confirmPassword":"Password123"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username is already taken", decodeError(t, rec).Message)
	})

	t.Run("password mismatch", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register",
			`{"username":"bob","email":"bob@example.com","password":"Password123","confirmPassword":"Password321"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Passwords do not match", decodeError(t, rec).Message)
	})

	t.Run("weak password", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register",
			`{"username":"bob","email":"bob@example.com","password":"short","confirmPassword":"short"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "at least 8 characters")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register", `{"username":"bob"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Login(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t)

	t.Run("success", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/login", `{"usernameOrEmail":"alice@example.com","password":"Password123"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeTokens(t, rec)
		assert.Equal(t, registered.UserID, resp.UserID)

		claims, err := api.tokens.Verify(resp.AccessToken)
		require.NoError(t, err)
		assert.True(t, claims.IsAccess())
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/login", `{"usernameOrEmail":"alice","password":"Nope12345"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, http.StatusUnauthorized, body.Status)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/login", `{"usernameOrEmail":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Refresh(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t)

	rec := api.do(http.MethodPost, refreshURL(registered.RefreshToken), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decodeTokens(t, rec)
	assert.NotEqual(t, registered.RefreshToken, rotated.RefreshToken)

	tests := []struct {
		name    string
		target  string
		message string
	}{
		{name: "reused token", target: refreshURL(registered.RefreshToken), message: "Refresh token not found"},
		{name: "access token", target: refreshURL(rotated.AccessToken), message: "Invalid refresh token"},
		{name: "garbage", target: refreshURL("garbage"), message: "Invalid refresh token"},
		{name: "missing", target: "/auth/refresh", message: "Refresh token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec).Message)
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t)

	for i := 0; i < 2; i++ {
		rec := api.do(http.MethodPost, "/auth/logout?refreshToken="+url.QueryEscape(registered.RefreshToken), "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "User logged out successfully", resp.Message)
	}

	rec := api.do(http.MethodPost, refreshURL(registered.RefreshToken), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Refresh token not found", decodeError(t, rec).Message)
}

func TestHandler_Me(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t)

	t.Run("from gateway headers", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/auth/me", "", edgejwt.HeaderUserID, registered.UserID)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PrincipalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
		assert.Equal(t, "alice@example.com", resp.Email)
	})

	t.Run("without identity", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown identity", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/auth/me", "", edgejwt.HeaderUserID, uuid.NewString())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/auth/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UP", resp.Status)
	assert.Equal(t, "auth-service", resp.Service)
}
