package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/events"
	jwtservice "github.com/tech-arch1tect/edgeguard/services/jwt"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"github.com/tech-arch1tect/edgeguard/services/refreshtoken"
	"go.uber.org/zap"
)

type Service struct {
	config    *config.Config
	directory Directory
	store     CredentialStore
	tokens    *jwtservice.Service
	events    *events.Service
	logger    *logging.Service
	now       func() time.Time
}

func NewService(cfg *config.Config, directory Directory, store CredentialStore, tokens *jwtservice.Service, events *events.Service, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		directory: directory,
		store:     store,
		tokens:    tokens,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) IssueForCredentials(ctx context.Context, usernameOrEmail, password string, client events.Client) (*TokenPair, error) {
	principal, err := s.directory.Authenticate(ctx, usernameOrEmail, password)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("authentication failed", zap.String("username_or_email", usernameOrEmail), zap.Error(err))
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	pair, err := s.issue(ctx, *principal)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.UserLogin(principal.UserID, principal.Username, principal.Email, client)
	}

	if s.logger != nil {
		s.logger.Info("user authenticated", zap.String("user_id", principal.UserID.String()), zap.String("username", principal.Username))
	}
	return pair, nil
}

// IssueForRegistration mints a pair for a principal that was just created.
func (s *Service) IssueForRegistration(ctx context.Context, principal Principal) (*TokenPair, error) {
	return s.issue(ctx, principal)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	principal, err := s.directory.Create(ctx, NewPrincipal{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("registration failed", zap.String("username", req.Username), zap.Error(err))
		}
		return nil, err
	}

	pair, err := s.IssueForRegistration(ctx, *principal)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.UserRegistered(principal.UserID, principal.Username, principal.Email)
	}

	if s.logger != nil {
		s.logger.Info("user registered", zap.String("user_id", principal.UserID.String()), zap.String("username", principal.Username))
	}
	return pair, nil
}

// Rotate redeems a refresh token for a new pair. A token can be redeemed once;
// a second attempt fails with ErrTokenNotFound.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || !claims.IsRefresh() {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	stored, err := s.store.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if stored.UserID != userID.String() {
		if s.logger != nil {
			s.logger.Warn("refresh token owner mismatch", zap.String("claimed_user_id", userID.String()))
		}
		return nil, ErrTokenNotFound
	}

	if claims.Expired(s.now()) {
		if err := s.store.Revoke(ctx, refreshToken); err != nil && s.logger != nil {
			s.logger.Warn("failed to delete expired refresh token", zap.Error(err))
		}
		return nil, ErrTokenExpired
	}

	principal := Principal{
		UserID:   userID,
		Username: claims.Username(),
		Roles:    claims.Roles,
	}

	access, accessExpiresAt, err := s.tokens.IssueAccessToken(principal.UserID, principal.Username, principal.Roles)
	if err != nil {
		return nil, err
	}
	next, refreshExpiresAt, err := s.tokens.IssueRefreshToken(principal.UserID, principal.Username, principal.Roles)
	if err != nil {
		return nil, err
	}

	if err := s.store.Rotate(ctx, refreshToken, userID.String(), next, refreshExpiresAt); err != nil {
		return nil, s.mapStoreError(err)
	}

	if s.logger != nil {
		s.logger.Info("refresh token rotated", zap.String("user_id", userID.String()))
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    next,
		Principal:       principal,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// Logout deletes the stored row for the token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.store.Revoke(ctx, refreshToken); err != nil {
		if s.logger != nil {
			s.logger.Error("logout failed", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) CurrentPrincipal(ctx context.Context, userID uuid.UUID) (*Principal, error) {
	return s.directory.Find(ctx, userID)
}

func (s *Service) issue(ctx context.Context, principal Principal) (*TokenPair, error) {
	access, accessExpiresAt, err := s.tokens.IssueAccessToken(principal.UserID, principal.Username, principal.Roles)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt, err := s.tokens.IssueRefreshToken(principal.UserID, principal.Username, principal.Roles)
	if err != nil {
		return nil, err
	}

	if err := s.store.Replace(ctx, principal.UserID.String(), refresh, refreshExpiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		Principal:       principal,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

func (s *Service) mapStoreError(err error) error {
	switch {
	case errors.Is(err, refreshtoken.ErrRefreshTokenNotFound):
		return ErrTokenNotFound
	case errors.Is(err, refreshtoken.ErrRefreshTokenExpired):
		return ErrTokenExpired
	default:
		return err
	}
}
