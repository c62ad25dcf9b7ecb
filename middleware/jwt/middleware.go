package jwt

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edgeguard/internal/httperr"
	"github.com/tech-arch1tect/edgeguard/services/jwt"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderUsername  = "X-Username"
	HeaderUserRoles = "X-User-Roles"

	PrincipalKey = "_edge_principal"
	ClaimsKey    = "_jwt_claims"
)

const (
	MessageMissingToken = "No JWT token provided"
	MessageInvalidToken = "Invalid JWT token"
	MessageExpiredToken = "JWT token expired"
)

type PathClass int

const (
	Protected PathClass = iota
	Public
	AuthExempt
)

func (p PathClass) String() string {
	switch p {
	case Public:
		return "public"
	case AuthExempt:
		return "auth-exempt"
	default:
		return "protected"
	}
}

type Verifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type Principal struct {
	UserID   string
	Username string
	Roles    []string
}

type Config struct {
	Verifier           Verifier
	PublicPrefixes     []string
	AuthExemptPrefixes []string
	Now                func() time.Time
	Logger             *logging.Service
}

func (cfg Config) Classify(path string) PathClass {
	if matchesAny(path, cfg.PublicPrefixes) {
		return Public
	}
	if matchesAny(path, cfg.AuthExemptPrefixes) {
		return AuthExempt
	}
	return Protected
}

// Middleware authenticates requests at the edge. Identity headers are stripped from every
// inbound request and only set again from a verified access token.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			req.Header.Del(HeaderUserID)
			req.Header.Del(HeaderUsername)
			req.Header.Del(HeaderUserRoles)

			if cfg.Classify(req.URL.Path) != Protected {
				return next(c)
			}

			token, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return reject(c, cfg.Logger, MessageMissingToken)
			}

			claims, err := cfg.Verifier.Verify(token)
			if err != nil || !claims.IsAccess() {
				if cfg.Logger != nil {
					cfg.Logger.Debug("rejected request with invalid token", zap.String("path", req.URL.Path), zap.Error(err))
				}
				return reject(c, cfg.Logger, MessageInvalidToken)
			}

			if claims.Expired(cfg.Now()) {
				return reject(c, cfg.Logger, MessageExpiredToken)
			}

			principal := &Principal{
				UserID:   claims.UserID,
				Username: claims.Username(),
				Roles:    claims.Roles,
			}

			req.Header.Set(HeaderUserID, principal.UserID)
			req.Header.Set(HeaderUsername, principal.Username)
			req.Header.Set(HeaderUserRoles, strings.Join(principal.Roles, ","))

			c.Set(PrincipalKey, principal)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

// RequireJWT protects every path behind the middleware.
func RequireJWT(verifier Verifier) echo.MiddlewareFunc {
	return Middleware(Config{Verifier: verifier})
}

func GetPrincipal(c echo.Context) (*Principal, bool) {
	principal, ok := c.Get(PrincipalKey).(*Principal)
	return principal, ok && principal != nil
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func reject(c echo.Context, logger *logging.Service, message string) error {
	if logger != nil {
		logger.Info("request rejected at edge",
			zap.String("path", c.Request().URL.Path),
			zap.String("reason", message),
			zap.String("remote_ip", c.RealIP()))
	}
	return httperr.Write(c, http.StatusUnauthorized, message)
}

// matchesAny reports whether path equals a prefix or continues it at a segment boundary.
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if MatchPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func MatchPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
