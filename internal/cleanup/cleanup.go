package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OTP-строки держим сутки после выпуска: окно валидности давно прошло,
// но свежая история полезна при разборе инцидентов.
const otpRetention = 24 * time.Hour

type CleanupService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCleanupService(db *gorm.DB, log *zap.Logger) *CleanupService {
	return &CleanupService{
		db:  db,
		log: log,
	}
}

// CleanupExpiredTokens удаляет истёкшие refresh токены
func (c *CleanupService) CleanupExpiredTokens(ctx context.Context) error {
	now := time.Now()

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM refresh_tokens WHERE expires_at < ?", now)
	if result.Error != nil {
		c.log.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}

	return nil
}

// CleanupStaleOTPs удаляет одноразовые коды старше суток
func (c *CleanupService) CleanupStaleOTPs(ctx context.Context) error {
	cutoff := time.Now().Add(-otpRetention)

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM otps WHERE created_at < ?", cutoff)
	if result.Error != nil {
		c.log.Error("failed to cleanup stale otps", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up stale otps", zap.Int64("count", result.RowsAffected))
	}

	return nil
}
