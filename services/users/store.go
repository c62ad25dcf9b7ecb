package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed principal directory used by the auth service.
type Store struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
}

func NewStore(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

func (s *Store) Authenticate(ctx context.Context, usernameOrEmail, password string) (*auth.Principal, error) {
	var user User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("username = ? OR email = ?", usernameOrEmail, strings.ToLower(usernameOrEmail)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !user.Enabled {
		if s.logger != nil {
			s.logger.Warn("login attempt for disabled user", zap.String("user_id", user.ID.String()))
		}
		return nil, auth.ErrInvalidCredentials
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return toPrincipal(&user), nil
}

func (s *Store) Create(ctx context.Context, np auth.NewPrincipal) (*auth.Principal, error) {
	db := s.db.WithContext(ctx)
	email := strings.ToLower(strings.TrimSpace(np.Email))

	var count int64
	if err := db.Model(&User{}).Where("username = ?", np.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, auth.Errorf(auth.ErrDuplicatePrincipal, "Username is already taken")
	}

	if err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, auth.Errorf(auth.ErrDuplicatePrincipal, "Email is already in use")
	}

	hash, err := s.HashPassword(np.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username:     np.Username,
		Email:        email,
		PasswordHash: hash,
		Enabled:      true,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		role, err := s.ensureRole(tx, s.config.Auth.DefaultRole)
		if err != nil {
			return err
		}
		user.Roles = []Role{*role}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.Errorf(auth.ErrDuplicatePrincipal, "Username or email is already registered")
		}
		if s.logger != nil {
			s.logger.Error("failed to create user", zap.String("username", np.Username), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	}
	return toPrincipal(&user), nil
}

func (s *Store) Find(ctx context.Context, userID uuid.UUID) (*auth.Principal, error) {
	var user User
	if err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return toPrincipal(&user), nil
}

func (s *Store) SetEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("database error: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrPrincipalNotFound
	}
	return nil
}

func (s *Store) ensureRole(tx *gorm.DB, name string) (*Role, error) {
	if name == "" {
		name = "ROLE_USER"
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Role{Name: name}).Error; err != nil {
		return nil, err
	}
	var role Role
	if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func toPrincipal(user *User) *auth.Principal {
	return &auth.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.RoleNames(),
	}
}
