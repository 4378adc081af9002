package repository

import (
	"context"
	"errors"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity uint32) error
	DeleteByIDs(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error)
	DeleteByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) OrderItemRepo { return &orderItemRepo{db: db} }

func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderItemRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return rows, err
}

// UpdateQuantity меняет только количество: снимок unit_price не трогаем.
func (r *orderItemRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity uint32) error {
	return r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *orderItemRepo) DeleteByIDs(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).
		Where("order_id = ? AND id IN ?", orderID, ids).
		Delete(&models.OrderItem{})
	return tx.RowsAffected, tx.Error
}

func (r *orderItemRepo) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{})
	return tx.RowsAffected, tx.Error
}
