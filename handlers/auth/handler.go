package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"github.com/tech-arch1tect/edgeguard/services/events"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type TokenResponse struct {
	AccessToken     string    `json:"accessToken"`
	RefreshToken    string    `json:"refreshToken"`
	TokenType       string    `json:"tokenType"`
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	Roles           []string  `json:"roles"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

type PrincipalResponse struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

type Handler struct {
	service *auth.Service
	logger  *logging.Service
}

func NewHandler(service *auth.Service, logger *logging.Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/register", h.RegisterUser)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.GET("/health", h.Health)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Write(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.UsernameOrEmail) == "" || req.Password == "" {
		return httperr.Write(c, http.StatusBadRequest, "Username/email and password are required")
	}

	pair, err := h.service.IssueForCredentials(c.Request().Context(), req.UsernameOrEmail, req.Password, events.Client{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return httperr.Write(c, http.StatusUnauthorized, "Invalid username/email or password")
		}
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *Handler) RegisterUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return httperr.Write(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return httperr.Write(c, http.StatusBadRequest, "Username, email and password are required")
	}

	pair, err := h.service.Register(c.Request().Context(), auth.RegisterRequest{
		Username:        strings.TrimSpace(req.Username),
		Email:           strings.TrimSpace(req.Email),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			return httperr.Write(c, http.StatusBadRequest, "Passwords do not match")
		case errors.Is(err, auth.ErrDuplicatePrincipal), errors.Is(err, auth.ErrWeakPassword):
			return httperr.Write(c, http.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusCreated, tokenResponse(pair))
}

func (h *Handler) Refresh(c echo.Context) error {
	token := c.QueryParam("refreshToken")
	if token == "" {
		return httperr.Write(c, http.StatusBadRequest, "Refresh token is required")
	}

	pair, err := h.service.Rotate(c.Request().Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			return httperr.Write(c, http.StatusBadRequest, "Invalid refresh token")
		case errors.Is(err, auth.ErrTokenExpired):
			return httperr.Write(c, http.StatusBadRequest, "Refresh token has expired")
		case errors.Is(err, auth.ErrTokenNotFound):
			return httperr.Write(c, http.StatusBadRequest, "Refresh token not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), c.QueryParam("refreshToken")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User logged out successfully"})
}

// Me answers from the identity the gateway injected, or from an in-process edge filter.
func (h *Handler) Me(c echo.Context) error {
	rawID := c.Request().Header.Get(edgejwt.HeaderUserID)
	if principal, ok := edgejwt.GetPrincipal(c); ok {
		rawID = principal.UserID
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return httperr.Write(c, http.StatusUnauthorized, "Authentication required")
	}

	principal, err := h.service.CurrentPrincipal(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			return httperr.Write(c, http.StatusUnauthorized, "Authentication required")
		}
		if h.logger != nil {
			h.logger.Error("failed to load current principal", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return err
	}

	return c.JSON(http.StatusOK, PrincipalResponse{
		UserID:   principal.UserID.String(),
		Username: principal.Username,
		Email:    principal.Email,
		Roles:    nonNil(principal.Roles),
	})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "UP",
		Service:   "auth-service",
		Timestamp: time.Now().UTC(),
	})
}

func tokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		TokenType:       "Bearer",
		UserID:          pair.Principal.UserID.String(),
		Username:        pair.Principal.Username,
		Email:           pair.Principal.Email,
		Roles:           nonNil(pair.Principal.Roles),
		AccessExpiresAt: pair.AccessExpiresAt,
	}
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
