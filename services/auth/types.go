package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/edgeguard/services/refreshtoken"
)

var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrDuplicatePrincipal = errors.New("principal already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrTokenExpired       = errors.New("refresh token has expired")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrPrincipalNotFound  = errors.New("principal not found")
)

type Principal struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Roles    []string
}

type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	Principal       Principal
	AccessExpiresAt time.Time
}

type NewPrincipal struct {
	Username string
	Email    string
	Password string
}

type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Directory verifies credentials and owns principal records.
type Directory interface {
	Authenticate(ctx context.Context, usernameOrEmail, password string) (*Principal, error)
	Create(ctx context.Context, principal NewPrincipal) (*Principal, error)
	Find(ctx context.Context, userID uuid.UUID) (*Principal, error)
}

// CredentialStore persists the single live refresh token of each principal.
type CredentialStore interface {
	Replace(ctx context.Context, userID, token string, expiresAt time.Time) error
	Lookup(ctx context.Context, token string) (*refreshtoken.RefreshToken, error)
	Rotate(ctx context.Context, presented, userID, next string, expiresAt time.Time) error
	Revoke(ctx context.Context, token string) error
}

// Error carries a user-facing message while still matching its sentinel kind with errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
