package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OTPRepo interface {
	Create(ctx context.Context, o *models.OTP) error
	// GetForUpdate берёт FOR UPDATE на запись с совпадающей парой (id, code),
	// чтобы проверка и пометка is_used были атомарны против двойного
	// погашения одного кода. nil — совпадения нет.
	GetForUpdate(ctx context.Context, id uuid.UUID, code string) (*models.OTP, error)
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type otpRepo struct{ db *gorm.DB }

func NewOTPRepo(db *gorm.DB) OTPRepo { return &otpRepo{db: db} }

func (r *otpRepo) Create(ctx context.Context, o *models.OTP) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *otpRepo) GetForUpdate(ctx context.Context, id uuid.UUID, code string) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&otp, "id = ? AND code = ?", id, code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &otp, err
}

func (r *otpRepo) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id = ? AND is_used = false", id).
		Update("is_used", true)
	return res.RowsAffected > 0, res.Error
}

// DeleteOlderThan подчищает давно истёкшие коды (для периодической уборки).
func (r *otpRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}
