package auth

import (
	"net/http"

	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
	"github.com/tech-arch1tect/edgeguard/openapi"
)

func Document(doc *openapi.Doc) {
	doc.Tag("auth", "Authentication and token lifecycle")

	doc.Operation(http.MethodPost, "/auth/login").
		Summary("Log in").
		Description("Verifies credentials and issues an access and refresh token pair. Any earlier refresh token of the user stops working.").
		Tags("auth").
		Body(LoginRequest{}, "Username or email with password").
		Response(http.StatusOK, TokenResponse{}, "Token pair issued").
		Response(http.StatusUnauthorized, httperr.Body{}, "Invalid credentials").
		Build()

	doc.Operation(http.MethodPost, "/auth/register").
		Summary("Register").
		Tags("auth").
		Body(RegisterRequest{}, "New account").
		Response(http.StatusCreated, TokenResponse{}, "Account created and token pair issued").
		Response(http.StatusBadRequest, httperr.Body{}, "Duplicate account, password mismatch or weak password").
		Build()

	doc.Operation(http.MethodPost, "/auth/refresh").
		Summary("Rotate refresh token").
		Description("Exchanges a refresh token for a new pair. The presented token is consumed.").
		Tags("auth").
		QueryParam("refreshToken", "Current refresh token", true).
		Response(http.StatusOK, TokenResponse{}, "New token pair").
		Response(http.StatusBadRequest, httperr.Body{}, "Invalid, expired or unknown refresh token").
		Build()

	doc.Operation(http.MethodPost, "/auth/logout").
		Summary("Log out").
		Tags("auth").
		Secured().
		QueryParam("refreshToken", "Refresh token to revoke", true).
		Response(http.StatusOK, MessageResponse{}, "Refresh token revoked").
		Build()

	doc.Operation(http.MethodGet, "/auth/me").
		Summary("Current principal").
		Tags("auth").
		Secured().
		HeaderParam(edgejwt.HeaderUserID, "Principal id injected by the gateway after edge authentication", false).
		Response(http.StatusOK, PrincipalResponse{}, "Authenticated principal").
		Response(http.StatusUnauthorized, httperr.Body{}, "No identity on the request").
		Build()

	doc.Operation(http.MethodGet, "/auth/health").
		Summary("Auth service health").
		Tags("auth").
		Response(http.StatusOK, HealthResponse{}, "Service is up").
		Build()
}
