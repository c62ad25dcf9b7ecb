package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type Claims struct {
	UserID    string   `json:"userId"`
	Roles     []string `json:"roles"`
	TokenKind string   `json:"tokenKind"`
	jwt.RegisteredClaims
}

func (c *Claims) Username() string {
	return c.Subject
}

// Expired treats a token without an exp claim as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

func (c *Claims) IsAccess() bool {
	return c.TokenKind == KindAccess
}

func (c *Claims) IsRefresh() bool {
	return c.TokenKind == KindRefresh
}

type Service struct {
	config *config.Config
	logger *logging.Service
	parser *jwt.Parser
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
		// expiry is left to callers so "expired but authentic" stays distinguishable
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

func (s *Service) GetAccessExpirySeconds() int {
	return int(s.config.JWT.AccessExpiry.Seconds())
}

func (s *Service) IssueAccessToken(userID uuid.UUID, username string, roles []string) (string, time.Time, error) {
	return s.issue(KindAccess, userID, username, roles, s.config.JWT.AccessExpiry)
}

func (s *Service) IssueRefreshToken(userID uuid.UUID, username string, roles []string) (string, time.Time, error) {
	return s.issue(KindRefresh, userID, username, roles, s.config.JWT.RefreshExpiry)
}

func (s *Service) issue(kind string, userID uuid.UUID, username string, roles []string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		UserID:    userID.String(),
		Roles:     roles,
		TokenKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.JWT.Issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := s.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *Service) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign JWT token", zap.String("token_kind", claims.TokenKind), zap.Error(err))
		}
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// Verify checks structure, algorithm, signature and issuer. It does not check expiry.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.config.JWT.SecretKey), nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("JWT token verification failed", zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	if s.config.JWT.Issuer != "" && claims.Issuer != s.config.JWT.Issuer {
		return nil, ErrInvalidToken
	}

	if claims.TokenKind != KindAccess && claims.TokenKind != KindRefresh {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
