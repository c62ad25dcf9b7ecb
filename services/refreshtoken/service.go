package refreshtoken

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
	now    func() time.Time
}

func NewService(db *gorm.DB, config *config.Config, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing refresh token store",
			zap.Duration("store_timeout", config.RefreshToken.StoreTimeout),
			zap.Duration("cleanup_interval", config.RefreshToken.CleanupInterval))
	}

	return &Service{
		db:     db,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.RefreshToken.StoreTimeout)
}

// Replace drops every stored token of the user and stores the new one in a single transaction.
func (s *Service) Replace(ctx context.Context, userID, token string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&RefreshToken{
			UserID:    userID,
			TokenHash: hashToken(token),
			ExpiresAt: expiresAt,
			CreatedAt: s.now(),
		}).Error
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to replace refresh token", zap.String("user_id", userID), zap.Error(err))
		}
		return fmt.Errorf("failed to replace refresh token: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("refresh token replaced", zap.String("user_id", userID), zap.Time("expires_at", expiresAt))
	}
	return nil
}

// Lookup finds the stored row for a token. An expired row is deleted and reported as expired.
func (s *Service) Lookup(ctx context.Context, token string) (*RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stored RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logger != nil {
				s.logger.Debug("refresh token not found")
			}
			return nil, ErrRefreshTokenNotFound
		}
		if s.logger != nil {
			s.logger.Error("refresh token lookup failed", zap.Error(err))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if stored.Expired(s.now()) {
		if s.logger != nil {
			s.logger.Warn("refresh token expired",
				zap.Uint("token_id", stored.ID),
				zap.String("user_id", stored.UserID),
				zap.Time("expired_at", stored.ExpiresAt))
		}
		if err := s.db.WithContext(ctx).Delete(&stored).Error; err != nil && s.logger != nil {
			s.logger.Warn("failed to delete expired refresh token", zap.Uint("token_id", stored.ID), zap.Error(err))
		}
		return nil, ErrRefreshTokenExpired
	}

	return &stored, nil
}

// Rotate consumes the presented token and stores its replacement atomically.
// Only one of several concurrent rotations of the same token can succeed; the rest get ErrRefreshTokenNotFound.
func (s *Service) Rotate(ctx context.Context, presented, userID, next string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("token_hash = ? AND user_id = ?", hashToken(presented), userID).Delete(&RefreshToken{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrRefreshTokenNotFound
		}

		if err := tx.Where("user_id = ?", userID).Delete(&RefreshToken{}).Error; err != nil {
			return err
		}

		return tx.Create(&RefreshToken{
			UserID:    userID,
			TokenHash: hashToken(next),
			ExpiresAt: expiresAt,
			CreatedAt: s.now(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			if s.logger != nil {
				s.logger.Warn("refresh token rotation lost: presented token no longer stored", zap.String("user_id", userID))
			}
			return ErrRefreshTokenNotFound
		}
		if s.logger != nil {
			s.logger.Error("refresh token rotation failed", zap.String("user_id", userID), zap.Error(err))
		}
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("refresh token rotated", zap.String("user_id", userID))
	}
	return nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).Delete(&RefreshToken{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to revoke refresh token", zap.Error(result.Error))
		}
		return fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("refresh token revoked", zap.Int64("affected_rows", result.RowsAffected))
	}
	return nil
}

func (s *Service) CountForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Model(&RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return count, nil
}

func (s *Service) CleanupExpiredTokens(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&RefreshToken{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		}
		return fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}

	if s.logger != nil && result.RowsAffected > 0 {
		s.logger.Info("cleaned up expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// StartCleanupWorker runs the reaper every interval until ctx is cancelled.
func (s *Service) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.CleanupExpiredTokens(ctx); err != nil && s.logger != nil {
					s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
				}
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started refresh token cleanup worker", zap.Duration("interval", interval))
	}
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
